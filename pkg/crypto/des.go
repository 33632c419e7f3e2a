// Package crypto implements the password hashing, key derivation and
// symmetric cipher primitives of the stgmsg protocol.
//
// The cipher is single DES in CBC mode with an 8-byte key derived per
// user via PBKDF2. DES is a legacy choice kept for wire compatibility
// with existing stored mailboxes; it is not a security recommendation.
package crypto

import (
	"crypto/cipher"
	"crypto/des"
	"crypto/rand"
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	ErrInvalidKey        = errors.New("invalid key")
	ErrInvalidHash       = errors.New("invalid password hash")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
)

// Encrypt encrypts a plaintext string under an 8-byte DES key.
// The plaintext is PKCS#7 padded to the DES block size and encrypted in
// CBC mode with a fresh random IV. The result is iv || ciphertext.
func Encrypt(key []byte, plaintext string) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	block, err := des.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to init cipher: %w", err)
	}

	iv := make([]byte, des.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), des.BlockSize)

	out := make([]byte, des.BlockSize+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[des.BlockSize:], padded)

	return out, nil
}

// Decrypt decrypts an iv||ciphertext blob produced by Encrypt and
// returns the recovered plaintext string. The shortest valid input is
// 16 bytes: one IV block plus one ciphertext block.
func Decrypt(key []byte, ivCiphertext []byte) (string, error) {
	if len(key) != KeySize {
		return "", ErrInvalidKey
	}
	if len(ivCiphertext) < 2*des.BlockSize {
		return "", ErrInvalidCiphertext
	}

	iv := ivCiphertext[:des.BlockSize]
	ciphertext := ivCiphertext[des.BlockSize:]
	if len(ciphertext)%des.BlockSize != 0 {
		return "", ErrInvalidCiphertext
	}

	block, err := des.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to init cipher: %w", err)
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	plaintext, err := pkcs7Unpad(padded, des.BlockSize)
	if err != nil {
		// Wrong key or tampered blob both surface as garbage padding.
		return "", ErrInvalidCiphertext
	}
	if !utf8.Valid(plaintext) {
		return "", ErrInvalidCiphertext
	}

	return string(plaintext), nil
}
