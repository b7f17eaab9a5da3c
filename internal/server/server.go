// Package server terminates the wire protocol: TCP listener, per-session
// handshake state machine, frame framing, encryption, heartbeat expiry.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gomokugo/server/internal/config"
	"github.com/gomokugo/server/internal/crypto"
	"github.com/gomokugo/server/internal/protocol"
)

// PacketHandler consumes decoded Active packets. It sends its responses
// through the table sink before publishing any events.
type PacketHandler interface {
	Handle(sessionID uint64, p *protocol.Packet)
}

// Server accepts client connections and owns the session table.
type Server struct {
	cfg      config.Server
	identity *crypto.Identity
	table    *Table
	wheel    *TimeWheel
	handler  PacketHandler

	// onEvict cleans up domain state (session bindings, room exit) when a
	// session dies. Set once at wiring time.
	onEvict func(sessionID uint64)

	listener net.Listener
	mu       sync.Mutex
}

// NewServer creates a server around an existing session table and wheel.
func NewServer(cfg config.Server, id *crypto.Identity, table *Table, wheel *TimeWheel, h PacketHandler, onEvict func(uint64)) *Server {
	if onEvict == nil {
		onEvict = func(uint64) {}
	}
	return &Server{
		cfg:      cfg,
		identity: id,
		table:    table,
		wheel:    wheel,
		handler:  h,
		onEvict:  onEvict,
	}
}

// Table returns the session table (the send sink for handlers and the
// notifier).
func (s *Server) Table() *Table {
	return s.table
}

// Addr returns the bound listener address, nil before Run.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close closes the listener.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.BindAddress, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	return s.Serve(ctx, ln)
}

// Serve runs the accept loop on a ready listener. Used directly by tests
// with an ephemeral-port listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("game server started", "address", ln.Addr())
		s.acceptLoop(ctx, &wg, ln)
	}()

	wg.Wait()
	return nil
}

func (s *Server) acceptLoop(ctx context.Context, wg *sync.WaitGroup, ln net.Listener) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				slog.Error("failed to accept new connection", "err", err)
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.handleConnection(ctx, conn)
			}()
		}
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	done := make(chan struct{})
	defer close(done)
	defer conn.Close()

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	slog.Debug("new connection", "remote", conn.RemoteAddr())

	var sess *Session
	defer func() {
		if sess != nil {
			s.evict(sess)
		}
	}()

	var buf []byte
	tmp := make([]byte, 4096)
	for {
		n, err := conn.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		if err != nil {
			return
		}

		for {
			f, consumed, derr := protocol.DecodeFrame(buf)
			if derr != nil {
				// bad magic or oversize: close without a reply
				slog.Warn("closing malformed connection", "remote", conn.RemoteAddr(), "err", derr)
				return
			}
			if f == nil {
				break
			}
			buf = buf[consumed:]

			next, ok := s.processFrame(sess, conn, f)
			if !ok {
				return
			}
			sess = next
		}
	}
}

// processFrame advances the handshake state machine by one inbound frame.
// It returns the (possibly newly created) session and whether the
// connection stays open.
func (s *Server) processFrame(sess *Session, conn net.Conn, f *protocol.Frame) (*Session, bool) {
	if sess == nil {
		if f.Status != protocol.StatusHello {
			writeFrame(conn, &protocol.Frame{Status: protocol.StatusError})
			return nil, false
		}
		return s.greet(conn)
	}

	switch sess.Phase() {
	case PhaseKeyPending:
		if f.Status != protocol.StatusPending {
			sess.sendFrame(&protocol.Frame{Status: protocol.StatusError, SessionID: sess.id})
			return sess, false
		}
		cipher, err := s.identity.Derive(f.Payload)
		if err != nil {
			slog.Warn("key derivation failed", "session", sess.id, "err", err)
			sess.sendFrame(&protocol.Frame{Status: protocol.StatusError, SessionID: sess.id})
			return sess, false
		}
		sess.activate(cipher)
		s.armExpiry(sess)
		sess.sendFrame(&protocol.Frame{Status: protocol.StatusActivated, SessionID: sess.id})
		slog.Info("session activated", "session", sess.id)
		return sess, true

	case PhaseActive:
		if f.Status != protocol.StatusActive || len(f.IV) != protocol.IVLen {
			sess.sendFrame(&protocol.Frame{Status: protocol.StatusError, SessionID: sess.id})
			return sess, false
		}
		sess.Touch()

		sess.mu.Lock()
		cipher := sess.cipher
		sess.mu.Unlock()
		plain, err := cipher.Decrypt(f.Payload, f.IV)
		if err != nil {
			s.sendErrorPacket(sess, "decrypt failed")
			return sess, true
		}
		p, err := protocol.DecodePacket(sess.id, plain)
		if err != nil {
			s.sendErrorPacket(sess, "malformed packet")
			return sess, true
		}
		if p.Type == protocol.MsgHeartbeat {
			return sess, true
		}
		s.handler.Handle(sess.id, p)
		return sess, true

	default:
		sess.sendFrame(&protocol.Frame{Status: protocol.StatusError, SessionID: sess.id})
		return sess, false
	}
}

// greet mints a session on the first well-formed Hello frame and answers
// NewSession with the server public value and its signature.
func (s *Server) greet(conn net.Conn) (*Session, bool) {
	id, err := s.table.NewID()
	if err != nil {
		slog.Error("minting session id", "err", err)
		return nil, false
	}
	sess := newSession(id, conn, s.cfg.MaxPendingWrites)
	s.table.Add(sess)

	payload := append(s.identity.ServerPublicBytes(), s.identity.Signature()...)
	sess.sendFrame(&protocol.Frame{
		Status:    protocol.StatusNewSession,
		SessionID: id,
		Payload:   payload,
	})
	sess.beginKeyExchange()
	slog.Debug("session created", "session", id, "remote", conn.RemoteAddr())
	return sess, true
}

func (s *Server) sendErrorPacket(sess *Session, reason string) {
	p := protocol.NewPacket(sess.id, protocol.MsgError)
	p.SetString("reason", reason)
	sess.Send(p)
}

// armExpiry schedules the idle check. The task re-arms itself for the
// remaining window while the session keeps heartbeating.
func (s *Server) armExpiry(sess *Session) {
	timeout := s.cfg.SessionTimeout()
	if timeout <= 0 {
		return
	}
	var check func()
	check = func() {
		idle := time.Since(sess.LastSeen())
		if idle >= timeout {
			slog.Info("session expired", "session", sess.id, "idle", idle)
			s.evict(sess)
			return
		}
		sess.setExpiry(s.wheel.Schedule(timeout-idle, check))
	}
	sess.setExpiry(s.wheel.Schedule(timeout, check))
}

// writeFrame writes directly on the socket, used before a session (and
// its writer goroutine) exists.
func writeFrame(conn net.Conn, f *protocol.Frame) {
	if _, err := conn.Write(f.Encode()); err != nil {
		slog.Debug("writing frame", "remote", conn.RemoteAddr(), "err", err)
	}
}

// evict tears a session down: socket, table entry, and domain bindings.
func (s *Server) evict(sess *Session) {
	sess.Close()
	s.table.Remove(sess.id)
	s.onEvict(sess.id)
}
