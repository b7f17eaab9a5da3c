package testutil

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gomokugo/server/internal/crypto"
	"github.com/gomokugo/server/internal/protocol"
)

// Client is a minimal wire client: it dials, performs the handshake, and
// exchanges encrypted packets.
type Client struct {
	conn      net.Conn
	sessionID uint64
	cipher    *crypto.SessionCipher
	buf       []byte
}

// Dial connects and completes the full handshake. When serverSignKey is
// non-nil the NewSession signature is verified against it.
func Dial(addr string, serverSignKey ed25519.PublicKey) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}
	c := &Client{conn: conn}

	if err := c.writeFrame(&protocol.Frame{Status: protocol.StatusHello}); err != nil {
		conn.Close()
		return nil, err
	}
	f, err := c.readFrame(5 * time.Second)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if f.Status != protocol.StatusNewSession {
		conn.Close()
		return nil, fmt.Errorf("expected NewSession, got status %d", f.Status)
	}
	if len(f.Payload) != crypto.PublicKeySize+ed25519.SignatureSize {
		conn.Close()
		return nil, fmt.Errorf("bad NewSession payload length %d", len(f.Payload))
	}
	serverPub := f.Payload[:crypto.PublicKeySize]
	sig := f.Payload[crypto.PublicKeySize:]
	if serverSignKey != nil && !ed25519.Verify(serverSignKey, serverPub, sig) {
		conn.Close()
		return nil, errors.New("server signature verification failed")
	}
	c.sessionID = f.SessionID

	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		conn.Close()
		return nil, err
	}
	c.cipher, err = crypto.DeriveClient(priv, serverPub)
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := c.writeFrame(&protocol.Frame{
		Status:    protocol.StatusPending,
		SessionID: c.sessionID,
		Payload:   pub,
	}); err != nil {
		conn.Close()
		return nil, err
	}
	f, err = c.readFrame(5 * time.Second)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if f.Status != protocol.StatusActivated {
		conn.Close()
		return nil, fmt.Errorf("expected Activated, got status %d", f.Status)
	}
	return c, nil
}

// SessionID returns the id the server assigned.
func (c *Client) SessionID() uint64 {
	return c.sessionID
}

// Close shuts the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Send encrypts and writes one packet.
func (c *Client) Send(p *protocol.Packet) error {
	iv, err := crypto.NewIV()
	if err != nil {
		return err
	}
	return c.writeFrame(&protocol.Frame{
		Status:    protocol.StatusActive,
		SessionID: c.sessionID,
		IV:        iv,
		Payload:   c.cipher.Encrypt(p.Encode(), iv),
	})
}

// Heartbeat sends the TTL-refresh packet.
func (c *Client) Heartbeat() error {
	return c.Send(protocol.NewPacket(c.sessionID, protocol.MsgHeartbeat))
}

// Recv reads the next packet, blocking up to timeout.
func (c *Client) Recv(timeout time.Duration) (*protocol.Packet, error) {
	f, err := c.readFrame(timeout)
	if err != nil {
		return nil, err
	}
	if f.Status != protocol.StatusActive {
		return nil, fmt.Errorf("unexpected frame status %d", f.Status)
	}
	plain, err := c.cipher.Decrypt(f.Payload, f.IV)
	if err != nil {
		return nil, err
	}
	return protocol.DecodePacket(f.SessionID, plain)
}

// RecvType discards packets until one of the wanted type arrives, which
// lets tests wait for a response while pushes interleave.
func (c *Client) RecvType(t protocol.MsgType, timeout time.Duration) (*protocol.Packet, error) {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("timed out waiting for %s", t)
		}
		p, err := c.Recv(remaining)
		if err != nil {
			return nil, err
		}
		if p.Type == t {
			return p, nil
		}
	}
}

func (c *Client) writeFrame(f *protocol.Frame) error {
	_, err := c.conn.Write(f.Encode())
	return err
}

func (c *Client) readFrame(timeout time.Duration) (*protocol.Frame, error) {
	deadline := time.Now().Add(timeout)
	tmp := make([]byte, 4096)
	for {
		f, n, err := protocol.DecodeFrame(c.buf)
		if err != nil {
			return nil, err
		}
		if f != nil {
			c.buf = c.buf[n:]
			return f, nil
		}

		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
		rn, err := c.conn.Read(tmp)
		if rn > 0 {
			c.buf = append(c.buf, tmp[:rn]...)
		}
		if err != nil {
			return nil, err
		}
	}
}
