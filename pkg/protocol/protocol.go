// Package protocol defines the stgmsg wire protocol: newline-free UTF-8
// JSON objects exchanged as synchronous request/response pairs over TCP.
// Binary payloads (pictures, ciphertext) travel base64-encoded.
package protocol

// Default ports. The mDNS advertisement announces ServicePort; the
// request/response channel listens on RequestPort.
const (
	DefaultServicePort = 6161
	DefaultRequestPort = 6162
)

// Actions accepted by the request router.
const (
	ActionRegister = "REQ::REGISTER"
	ActionLogin    = "REQ::LOGIN"
	ActionSend     = "REQ::SEND"
	ActionFetch    = "REQ::FETCH"
	ActionGetUsers = "REQ::GET_USERS"
)

// Response statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Request is a self-contained action envelope. There is no server-side
// session; every request carries everything its handler needs.
type Request struct {
	Action string `json:"action"`

	// REGISTER / LOGIN / FETCH
	Username string `json:"username,omitempty"`

	// REGISTER: base64 PNG with the embedded hash, plus the advisory
	// client-computed hash (base64, 32 bytes).
	Picture      string `json:"picture,omitempty"`
	PasswordHash string `json:"password_hash,omitempty"`

	// LOGIN: base64, first 8 bytes of the password hash.
	PasswordHashPrefix string `json:"password_hash_prefix,omitempty"`

	// SEND: body is base64 iv||ciphertext under the sender's key.
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
	Body string `json:"body,omitempty"`
}

// Envelope is one fetched message as it appears on the wire.
type Envelope struct {
	From      string `json:"from"`
	Body      string `json:"body"` // base64 iv||ciphertext under the recipient's key
	CreatedAt string `json:"created_at"`
}

// Response is the result envelope for every action. Messages and Users
// must never be dropped from the wire: an empty result is an explicit
// empty list, which clients index without probing for the key.
type Response struct {
	Status   string     `json:"status"`
	Message  string     `json:"message,omitempty"`
	Messages []Envelope `json:"messages"`
	Users    []string   `json:"users"`
}

// Errorf builds an error response.
func Errorf(message string) Response {
	return Response{Status: StatusError, Message: message}
}

// Success builds a bare success response.
func Success() Response {
	return Response{Status: StatusSuccess}
}
