package server

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gomokugo/server/internal/protocol"
)

// Table is the session table. A separate readers-writer lock guards it;
// the used-ID set keeps session ids unique over the process lifetime.
type Table struct {
	mu       sync.RWMutex
	sessions map[uint64]*Session
	used     map[uint64]struct{}
}

// NewTable creates an empty session table.
func NewTable() *Table {
	return &Table{
		sessions: make(map[uint64]*Session),
		used:     make(map[uint64]struct{}),
	}
}

// NewID mints a cryptographically random session id that has never been
// issued by this process.
func (t *Table) NewID() (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for {
		var buf [8]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("generating session id: %w", err)
		}
		id := binary.BigEndian.Uint64(buf[:])
		if id == 0 {
			continue
		}
		if _, taken := t.used[id]; taken {
			continue
		}
		t.used[id] = struct{}{}
		return id, nil
	}
}

// Add registers a session.
func (t *Table) Add(s *Session) {
	t.mu.Lock()
	t.sessions[s.ID()] = s
	t.mu.Unlock()
}

// Remove drops a session from the table.
func (t *Table) Remove(id uint64) {
	t.mu.Lock()
	delete(t.sessions, id)
	t.mu.Unlock()
}

// Get returns the session by id, nil when absent.
func (t *Table) Get(id uint64) *Session {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sessions[id]
}

// Len returns the number of live sessions.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

// Send enqueues a packet on the session's outbound queue. Packets to
// unknown or non-Active sessions are silently dropped; handlers and the
// notifier use this as their only send sink.
func (t *Table) Send(sessionID uint64, p *protocol.Packet) {
	s := t.Get(sessionID)
	if s == nil {
		return
	}
	s.Send(p)
}
