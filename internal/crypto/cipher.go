package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/gomokugo/server/internal/protocol"
)

// SessionCipher encrypts and decrypts Active-frame payloads under the
// negotiated session key. The wire carries a 16-byte IV per frame, so the
// GCM instance is built with a matching nonce size.
type SessionCipher struct {
	aead cipher.AEAD
}

// NewSessionCipher wraps a 32-byte key in AES-256-GCM.
func NewSessionCipher(key []byte) (*SessionCipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, protocol.IVLen)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return &SessionCipher{aead: aead}, nil
}

// Encrypt seals plaintext under the given IV.
func (c *SessionCipher) Encrypt(plaintext, iv []byte) []byte {
	return c.aead.Seal(nil, iv, plaintext, nil)
}

// Decrypt opens ciphertext under the given IV. Authentication failure is
// an error; replay protection rides on the per-frame IV.
func (c *SessionCipher) Decrypt(ciphertext, iv []byte) ([]byte, error) {
	plain, err := c.aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting payload: %w", err)
	}
	return plain, nil
}

// NewIV returns a fresh random 16-byte nonce.
func NewIV() ([]byte, error) {
	iv := make([]byte, protocol.IVLen)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("generating iv: %w", err)
	}
	return iv, nil
}
