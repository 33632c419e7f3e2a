package crypto

import (
	"bytes"
	"testing"
)

func testKey(t *testing.T, username, password string) []byte {
	t.Helper()
	key, err := DeriveKey(username, HashPassword(password))
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}
	return key
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := testKey(t, "alice", "pw1")

	tests := []struct {
		name      string
		plaintext string
	}{
		{name: "empty", plaintext: ""},
		{name: "short", plaintext: "hi"},
		{name: "exact block", plaintext: "12345678"},
		{name: "long", plaintext: "The quick brown fox jumps over the lazy dog"},
		{name: "unicode", plaintext: "merhaba dünya 🙂"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := Encrypt(key, tt.plaintext)
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}

			if len(blob) < 16 {
				t.Errorf("Encrypt() produced %d bytes, want at least 16", len(blob))
			}
			if len(blob)%8 != 0 {
				t.Errorf("Encrypt() produced %d bytes, want a multiple of 8", len(blob))
			}

			plaintext, err := Decrypt(key, blob)
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if plaintext != tt.plaintext {
				t.Errorf("Decrypt() = %q, want %q", plaintext, tt.plaintext)
			}
		})
	}
}

func TestEncryptFreshIV(t *testing.T) {
	key := testKey(t, "alice", "pw1")

	blob1, err := Encrypt(key, "same message")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	blob2, err := Encrypt(key, "same message")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	if bytes.Equal(blob1[:8], blob2[:8]) {
		t.Error("Encrypt() reused an IV")
	}
	if bytes.Equal(blob1, blob2) {
		t.Error("Encrypt() produced identical blobs for identical plaintexts")
	}
}

func TestEncryptRejectsBadKey(t *testing.T) {
	if _, err := Encrypt([]byte("toolongkey"), "x"); err != ErrInvalidKey {
		t.Errorf("Encrypt() error = %v, want %v", err, ErrInvalidKey)
	}
	if _, err := Decrypt([]byte("short"), make([]byte, 16)); err != ErrInvalidKey {
		t.Errorf("Decrypt() error = %v, want %v", err, ErrInvalidKey)
	}
}

func TestDecryptRejectsBadInput(t *testing.T) {
	key := testKey(t, "alice", "pw1")

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "empty", input: nil},
		{name: "iv only", input: make([]byte, 8)},
		{name: "truncated block", input: make([]byte, 20)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decrypt(key, tt.input); err != ErrInvalidCiphertext {
				t.Errorf("Decrypt() error = %v, want %v", err, ErrInvalidCiphertext)
			}
		})
	}
}

func TestDecryptWrongKey(t *testing.T) {
	alice := testKey(t, "alice", "pw1")
	bob := testKey(t, "bob", "pw2")

	blob, err := Encrypt(alice, "for alice only")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	if plaintext, err := Decrypt(bob, blob); err == nil {
		// A wrong key can, rarely, yield valid padding by chance. It must
		// never yield the original plaintext.
		if plaintext == "for alice only" {
			t.Error("Decrypt() recovered plaintext under the wrong key")
		}
	}
}

func TestPKCS7RoundTrip(t *testing.T) {
	for size := 0; size <= 24; size++ {
		data := bytes.Repeat([]byte{0xAB}, size)

		padded := pkcs7Pad(data, 8)
		if len(padded)%8 != 0 {
			t.Fatalf("pkcs7Pad(%d bytes) length = %d, want multiple of 8", size, len(padded))
		}
		if len(padded) == len(data) {
			t.Fatalf("pkcs7Pad(%d bytes) added no padding", size)
		}

		unpadded, err := pkcs7Unpad(padded, 8)
		if err != nil {
			t.Fatalf("pkcs7Unpad() error = %v", err)
		}
		if !bytes.Equal(unpadded, data) {
			t.Fatalf("pkcs7Unpad() = %v, want %v", unpadded, data)
		}
	}
}

func TestPKCS7RejectsCorruptPadding(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: []byte{}},
		{name: "unaligned", data: []byte{1, 2, 3}},
		{name: "zero pad byte", data: []byte{1, 2, 3, 4, 5, 6, 7, 0}},
		{name: "pad too large", data: []byte{1, 2, 3, 4, 5, 6, 7, 9}},
		{name: "inconsistent pad", data: []byte{1, 2, 3, 4, 5, 2, 3, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := pkcs7Unpad(tt.data, 8); err != ErrInvalidPadding {
				t.Errorf("pkcs7Unpad() error = %v, want %v", err, ErrInvalidPadding)
			}
		})
	}
}
