// Package crypto provides the key agreement and the per-session
// authenticated cipher used by the wire protocol. The server holds a
// long-lived X25519 identity; each session derives a fresh shared key
// from the peer's ephemeral public value.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// PublicKeySize is the length of the X25519 public value exchanged in
// NewSession and Pending frames.
const PublicKeySize = curve25519.ScalarSize

// hkdfInfo binds derived keys to this protocol.
var hkdfInfo = []byte("gomoku-session-v1")

// Identity is the server's key material: an X25519 exchange key plus an
// Ed25519 signing key whose signature over the exchange public value is
// transmitted in NewSession.
type Identity struct {
	exchPriv []byte
	exchPub  []byte
	signPriv ed25519.PrivateKey
	signPub  ed25519.PublicKey
}

// NewIdentity generates fresh server key material.
func NewIdentity() (*Identity, error) {
	priv := make([]byte, curve25519.ScalarSize)
	if _, err := io.ReadFull(rand.Reader, priv); err != nil {
		return nil, fmt.Errorf("generating exchange key: %w", err)
	}
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("computing exchange public: %w", err)
	}
	signPub, signPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating signing key: %w", err)
	}
	return &Identity{exchPriv: priv, exchPub: pub, signPriv: signPriv, signPub: signPub}, nil
}

// ServerPublicBytes returns the X25519 public value sent in NewSession.
func (id *Identity) ServerPublicBytes() []byte {
	return append([]byte(nil), id.exchPub...)
}

// Signature returns the Ed25519 signature over the exchange public value.
func (id *Identity) Signature() []byte {
	return ed25519.Sign(id.signPriv, id.exchPub)
}

// SigningPublic returns the verification key (used by test clients).
func (id *Identity) SigningPublic() ed25519.PublicKey {
	return id.signPub
}

// Derive computes the session cipher from the peer's public value:
// X25519 shared secret → HKDF-SHA256 → AES-256-GCM key.
func (id *Identity) Derive(peerPublic []byte) (*SessionCipher, error) {
	if len(peerPublic) != PublicKeySize {
		return nil, fmt.Errorf("peer public value: got %d bytes, want %d", len(peerPublic), PublicKeySize)
	}
	shared, err := curve25519.X25519(id.exchPriv, peerPublic)
	if err != nil {
		return nil, fmt.Errorf("key agreement: %w", err)
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, nil, hkdfInfo), key); err != nil {
		return nil, fmt.Errorf("deriving session key: %w", err)
	}
	return NewSessionCipher(key)
}

// DeriveClient is the client half of the agreement, used by test clients:
// given a client private scalar and the server public value it produces
// the same session cipher as the server's Derive.
func DeriveClient(clientPriv, serverPublic []byte) (*SessionCipher, error) {
	shared, err := curve25519.X25519(clientPriv, serverPublic)
	if err != nil {
		return nil, fmt.Errorf("key agreement: %w", err)
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, nil, hkdfInfo), key); err != nil {
		return nil, fmt.Errorf("deriving session key: %w", err)
	}
	return NewSessionCipher(key)
}

// GenerateKeyPair returns a fresh X25519 (private, public) pair.
func GenerateKeyPair() (priv, pub []byte, err error) {
	priv = make([]byte, curve25519.ScalarSize)
	if _, err := io.ReadFull(rand.Reader, priv); err != nil {
		return nil, nil, fmt.Errorf("generating key: %w", err)
	}
	pub, err = curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return nil, nil, fmt.Errorf("computing public: %w", err)
	}
	return priv, pub, nil
}
