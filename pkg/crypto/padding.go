package crypto

import "errors"

var (
	ErrInvalidPadding = errors.New("invalid padding")
)

// pkcs7Pad pads data to a multiple of blockSize. A full block of
// padding is appended when data is already aligned, so padding is
// always present and removable.
func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize

	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}

	return padded
}

// pkcs7Unpad removes PKCS#7 padding. Every padding byte must equal the
// padding length, which must be in [1, blockSize].
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrInvalidPadding
	}

	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize {
		return nil, ErrInvalidPadding
	}

	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, ErrInvalidPadding
		}
	}

	return data[:len(data)-padLen], nil
}
