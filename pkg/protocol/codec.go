package protocol

import (
	"encoding/json"
	"fmt"
	"io"
)

// maxRequestSize bounds a single request. Pictures are small PNGs; a
// few megabytes of base64 is plenty and keeps hostile peers from
// exhausting memory.
const maxRequestSize = 8 << 20

// ReadRequest decodes one JSON request from r.
func ReadRequest(r io.Reader) (*Request, error) {
	var req Request
	dec := json.NewDecoder(io.LimitReader(r, maxRequestSize))
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	return &req, nil
}

// WriteRequest encodes one request to w as a single JSON object.
func WriteRequest(w io.Writer, req *Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write request: %w", err)
	}
	return nil
}

// ReadResponse decodes one JSON response from r.
func ReadResponse(r io.Reader) (*Response, error) {
	var resp Response
	dec := json.NewDecoder(io.LimitReader(r, maxRequestSize))
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// WriteResponse encodes one response to w as a single JSON object.
func WriteResponse(w io.Writer, resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}
