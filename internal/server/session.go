package server

import (
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gomokugo/server/internal/crypto"
	"github.com/gomokugo/server/internal/protocol"
)

// Phase is the handshake state of a session.
type Phase int

const (
	PhaseGreeting Phase = iota
	PhaseKeyPending
	PhaseActive
)

func (p Phase) String() string {
	switch p {
	case PhaseGreeting:
		return "greeting"
	case PhaseKeyPending:
		return "key-pending"
	case PhaseActive:
		return "active"
	default:
		return "unknown"
	}
}

// Session is a terminated wire connection: a stable id, the negotiated
// cipher, and an outbound queue drained by a dedicated writer goroutine.
type Session struct {
	id   uint64
	conn net.Conn

	mu       sync.Mutex
	phase    Phase
	cipher   *crypto.SessionCipher
	lastSeen time.Time
	expiry   *WheelTask

	sendCh    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(id uint64, conn net.Conn, queueLen int) *Session {
	if queueLen <= 0 {
		queueLen = 64
	}
	s := &Session{
		id:       id,
		conn:     conn,
		phase:    PhaseGreeting,
		lastSeen: time.Now(),
		sendCh:   make(chan []byte, queueLen),
		done:     make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

// ID returns the session id.
func (s *Session) ID() uint64 {
	return s.id
}

// Phase returns the handshake state.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// beginKeyExchange marks the greeting as answered; the next frame must
// carry the client key material.
func (s *Session) beginKeyExchange() {
	s.mu.Lock()
	s.phase = PhaseKeyPending
	s.mu.Unlock()
}

func (s *Session) activate(c *crypto.SessionCipher) {
	s.mu.Lock()
	s.phase = PhaseActive
	s.cipher = c
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// Touch refreshes the heartbeat timestamp.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// LastSeen returns the time of the last Active frame.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) setExpiry(t *WheelTask) {
	s.mu.Lock()
	old := s.expiry
	s.expiry = t
	s.mu.Unlock()
	if old != nil {
		old.Cancel()
	}
}

// Send encrypts and enqueues a packet. Sessions that are not Active drop
// the packet; a full queue also drops rather than block the caller.
func (s *Session) Send(p *protocol.Packet) {
	s.mu.Lock()
	phase := s.phase
	cipher := s.cipher
	s.mu.Unlock()
	if phase != PhaseActive || cipher == nil {
		return
	}

	iv, err := crypto.NewIV()
	if err != nil {
		slog.Error("generating iv", "session", s.id, "err", err)
		return
	}
	f := &protocol.Frame{
		Status:    protocol.StatusActive,
		SessionID: s.id,
		IV:        iv,
		Payload:   cipher.Encrypt(p.Encode(), iv),
	}
	s.enqueue(f.Encode())
}

// sendFrame enqueues a raw (handshake) frame.
func (s *Session) sendFrame(f *protocol.Frame) {
	s.enqueue(f.Encode())
}

func (s *Session) enqueue(b []byte) {
	select {
	case s.sendCh <- b:
	case <-s.done:
	default:
		slog.Warn("outbound queue full, dropping packet", "session", s.id)
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case b := <-s.sendCh:
			if _, err := s.conn.Write(b); err != nil {
				s.Close()
				return
			}
		}
	}
}

// Close shuts the socket and stops the writer. Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		if s.expiry != nil {
			s.expiry.Cancel()
		}
		s.mu.Unlock()
		close(s.done)
		s.conn.Close()
	})
}
