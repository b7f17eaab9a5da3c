// Package store is the shared in-memory object store: users, rooms, and
// the bidirectional index maps that tie sessions, users, and rooms
// together.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gomokugo/server/internal/model"
	"github.com/gomokugo/server/internal/room"
)

// Store holds all live domain objects. A single readers–writer lock
// guards the maps: hot-path lookups take the read lock, creations and
// index mutations the write lock. Room-internal state has its own
// per-room mutex and is never touched under the store lock.
type Store struct {
	gw Gateway

	mu            sync.RWMutex
	users         map[uint64]*model.User
	usernameToID  map[string]uint64
	rooms         map[uint64]*room.Room
	sessionToUser map[uint64]uint64
	userToSession map[uint64]uint64
	userToRoom    map[uint64]uint64

	nextRoomID  uint64
	nextGuestID uint64
}

// New creates an empty store backed by the gateway.
func New(gw Gateway) *Store {
	return &Store{
		gw:            gw,
		users:         make(map[uint64]*model.User),
		usernameToID:  make(map[string]uint64),
		rooms:         make(map[uint64]*room.Room),
		sessionToUser: make(map[uint64]uint64),
		userToSession: make(map[uint64]uint64),
		userToRoom:    make(map[uint64]uint64),
		nextRoomID:    1,
		nextGuestID:   model.GuestIDBase,
	}
}

// Load warm-loads all persistent users at startup.
func (s *Store) Load(ctx context.Context) error {
	users, err := s.gw.LoadAllUsers(ctx)
	if err != nil {
		return fmt.Errorf("loading users: %w", err)
	}

	s.mu.Lock()
	for _, u := range users {
		s.users[u.ID] = u
		s.usernameToID[u.Username] = u.ID
	}
	n := len(s.users)
	s.mu.Unlock()

	slog.Info("users loaded", "count", n)
	return nil
}

// --- users ---

// Authenticate verifies a username/password pair and returns the user.
func (s *Store) Authenticate(username, password string) (*model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernameToID[username]
	if !ok {
		return nil, false
	}
	u := s.users[id]
	if u == nil || u.Password != HashPassword(password) {
		return nil, false
	}
	return u, true
}

// CreateUser inserts a new account via the gateway and caches it. The
// gateway call runs outside the store lock; the post-insert
// uniqueness re-check under the write lock closes the race window.
func (s *Store) CreateUser(ctx context.Context, username, password string) (*model.User, error) {
	s.mu.RLock()
	_, exists := s.usernameToID[username]
	s.mu.RUnlock()
	if exists {
		return nil, fmt.Errorf("username %q already exists", username)
	}

	hashed := HashPassword(password)
	id, err := s.gw.InsertUser(ctx, username, hashed)
	if err != nil {
		return nil, fmt.Errorf("inserting user %q: %w", username, err)
	}

	u := model.NewUser(username, hashed)
	u.ID = id

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.usernameToID[username]; exists {
		return nil, fmt.Errorf("username %q already exists", username)
	}
	s.users[id] = u
	s.usernameToID[username] = id
	return u, nil
}

// User returns the user by id, nil for unknown or guest ids.
func (s *Store) User(id uint64) *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[id]
}

// UserByUsername resolves a username.
func (s *Store) UserByUsername(username string) *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernameToID[username]
	if !ok {
		return nil
	}
	return s.users[id]
}

// Users returns up to max users, ordered by id for stable listings.
func (s *Store) Users(max int) []*model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uint64, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > max {
		ids = ids[:max]
	}
	out := make([]*model.User, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.users[id])
	}
	return out
}

// SaveUser persists a mutated user. Runs outside any store lock.
func (s *Store) SaveUser(ctx context.Context, u *model.User) error {
	return s.gw.UpdateUser(ctx, u)
}

// NextGuestID mints a fresh id from the reserved guest range.
func (s *Store) NextGuestID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextGuestID
	s.nextGuestID++
	return id
}

// --- rooms ---

// CreateRoom allocates a room with a fresh monotonic id. Room ids are
// never reused within a process lifetime.
func (s *Store) CreateRoom() *room.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextRoomID
	s.nextRoomID++
	r := room.New(id)
	s.rooms[id] = r
	return r
}

// Room returns the room by id, nil for unknown.
func (s *Store) Room(id uint64) *room.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[id]
}

// RemoveRoom drops the room and any user→room entries pointing at it.
func (s *Store) RemoveRoom(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return
	}
	for _, uid := range r.Members() {
		delete(s.userToRoom, uid)
	}
	delete(s.rooms, id)
}

// Rooms returns up to max rooms, ordered by id.
func (s *Store) Rooms(max int) []*room.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uint64, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > max {
		ids = ids[:max]
	}
	out := make([]*room.Room, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.rooms[id])
	}
	return out
}

// --- session ↔ user ---

// BindSession records the session↔user bijection for a logged-in user.
// A previous binding of either side is displaced.
func (s *Store) BindSession(sessionID, userID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.sessionToUser[sessionID]; ok {
		delete(s.userToSession, old)
	}
	if old, ok := s.userToSession[userID]; ok {
		delete(s.sessionToUser, old)
	}
	s.sessionToUser[sessionID] = userID
	s.userToSession[userID] = sessionID
}

// UnbindSession clears both directions for a session.
func (s *Store) UnbindSession(sessionID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uid, ok := s.sessionToUser[sessionID]; ok {
		delete(s.userToSession, uid)
	}
	delete(s.sessionToUser, sessionID)
}

// UserBySession answers "who is this connection logged in as?" (0 = nobody).
func (s *Store) UserBySession(sessionID uint64) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionToUser[sessionID]
}

// SessionByUser resolves the push target for a user (0 = offline).
func (s *Store) SessionByUser(userID uint64) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userToSession[userID]
}

// IsOnline reports whether the user has a live session.
func (s *Store) IsOnline(userID uint64) bool {
	return s.SessionByUser(userID) != 0
}

// OnlineUsers returns the user ids with live sessions, sorted for stable
// lobby-broadcast order.
func (s *Store) OnlineUsers() []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uint64, 0, len(s.userToSession))
	for uid := range s.userToSession {
		ids = append(ids, uid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// --- user ↔ room ---

// BindUserRoom indexes the user's current room.
func (s *Store) BindUserRoom(userID, roomID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userToRoom[userID] = roomID
}

// UnbindUserRoom clears the user's room index.
func (s *Store) UnbindUserRoom(userID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.userToRoom, userID)
}

// RoomByUser resolves the room a user is in (0 = none).
func (s *Store) RoomByUser(userID uint64) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userToRoom[userID]
}

// Username resolves a display name: stored username for accounts, a
// synthetic "guest-N" for ids in the guest range.
func (s *Store) Username(userID uint64) string {
	if model.IsGuest(userID) {
		return fmt.Sprintf("guest-%d", userID-model.GuestIDBase)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u := s.users[userID]; u != nil {
		return u.Username
	}
	return fmt.Sprintf("user-%d", userID)
}

// ParseGuestName inverts the guest display name Username produces.
// Guests have no account record, so name lookups go through here.
func ParseGuestName(name string) (uint64, bool) {
	suffix, ok := strings.CutPrefix(name, "guest-")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseUint(suffix, 10, 64)
	if err != nil {
		return 0, false
	}
	return model.GuestIDBase + n, true
}
