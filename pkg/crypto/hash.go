package crypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// HashSize is the size of a password hash in bytes (SHA-256)
	HashSize = 32

	// PrefixSize is the size of the login challenge prefix in bytes
	PrefixSize = 8

	// KeySize is the size of a derived DES key in bytes
	KeySize = 8

	// kdfIterations is the PBKDF2 iteration count. Changing it breaks
	// every identity already stored on disk.
	kdfIterations = 10000
)

// HashPassword computes the SHA-256 hash of a password.
// No salt here: the username salts the key derivation step instead.
func HashPassword(password string) []byte {
	hash := sha256.Sum256([]byte(password))
	return hash[:]
}

// DeriveKey derives the 8-byte DES key for a user from their stored
// password hash using PBKDF2-HMAC-SHA256 with the username as salt.
// The derived key is deterministic for a fixed (username, hash) pair.
func DeriveKey(username string, passwordHash []byte) ([]byte, error) {
	if len(passwordHash) != HashSize {
		return nil, ErrInvalidHash
	}
	return pbkdf2.Key(passwordHash, []byte(username), kdfIterations, KeySize, sha256.New), nil
}

// HashPrefix returns the first 8 bytes of a password hash. Login sends
// only this prefix so the full hash never crosses the wire.
func HashPrefix(passwordHash []byte) ([]byte, error) {
	if len(passwordHash) != HashSize {
		return nil, ErrInvalidHash
	}
	return passwordHash[:PrefixSize], nil
}
