// Package tokencrypt encrypts provider tokens before they are persisted.
package tokencrypt

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrEmptyKey = errors.New("encryption key is empty")
	ErrDecrypt  = errors.New("decrypting blob")
)

// Cipher seals blobs with XChaCha20-Poly1305. Sealed blobs are laid out as
// nonce || ciphertext.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a cipher from key. A key that is not exactly 32 bytes
// long is stretched to 32 bytes with SHA-256.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}

	if len(key) != chacha20poly1305.KeySize {
		sum := sha256.Sum256(key)
		key = sum[:]
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("creating aead: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

func (c *Cipher) EncryptBlob(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("reading nonce: %w", err)
	}

	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (c *Cipher) DecryptBlob(blob []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(blob) < nonceSize+c.aead.Overhead() {
		return nil, fmt.Errorf("%w: blob is too short", ErrDecrypt)
	}

	plaintext, err := c.aead.Open(nil, blob[:nonceSize], blob[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecrypt, err)
	}

	if plaintext == nil {
		plaintext = []byte{}
	}

	return plaintext, nil
}

// EncryptText seals a token. An empty token is stored as a nil blob.
func (c *Cipher) EncryptText(text string) ([]byte, error) {
	if text == "" {
		return nil, nil
	}

	return c.EncryptBlob([]byte(text))
}

// TryDecryptText opens a sealed token. Any failure is reported as "no usable
// token" through the second return value.
func (c *Cipher) TryDecryptText(blob []byte) (string, bool) {
	if len(blob) == 0 {
		return "", false
	}

	plaintext, err := c.DecryptBlob(blob)
	if err != nil {
		return "", false
	}

	return string(plaintext), true
}
