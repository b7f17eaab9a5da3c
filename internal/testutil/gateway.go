// Package testutil holds the in-memory persistence mock and a minimal
// wire client for end-to-end tests.
package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/gomokugo/server/internal/model"
	"github.com/gomokugo/server/internal/store"
)

// MemoryGateway is an in-memory store.Gateway. Set Err to make every
// call fail with it.
type MemoryGateway struct {
	mu      sync.Mutex
	nextID  uint64
	users   map[uint64]*model.User
	records []store.GameRecord

	Err error
}

// NewMemoryGateway creates an empty gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		nextID: 1,
		users:  make(map[uint64]*model.User),
	}
}

// Seed inserts a user directly, returning its id.
func (g *MemoryGateway) Seed(username, hashedPassword string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID
	g.nextID++
	u := model.NewUser(username, hashedPassword)
	u.ID = id
	g.users[id] = u
	return id
}

func (g *MemoryGateway) LoadAllUsers(ctx context.Context) ([]*model.User, error) {
	if g.Err != nil {
		return nil, g.Err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*model.User, 0, len(g.users))
	for _, u := range g.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (g *MemoryGateway) InsertUser(ctx context.Context, username, password string) (uint64, error) {
	if g.Err != nil {
		return 0, g.Err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, u := range g.users {
		if u.Username == username {
			return 0, errors.New("duplicate username")
		}
	}
	id := g.nextID
	g.nextID++
	u := model.NewUser(username, password)
	u.ID = id
	g.users[id] = u
	return id, nil
}

func (g *MemoryGateway) UpdateUser(ctx context.Context, u *model.User) error {
	if g.Err != nil {
		return g.Err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.users[u.ID]; !ok {
		return errors.New("unknown user")
	}
	cp := *u
	g.users[u.ID] = &cp
	return nil
}

func (g *MemoryGateway) LookupUserIDByUsername(ctx context.Context, username string) (uint64, error) {
	if g.Err != nil {
		return 0, g.Err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, u := range g.users {
		if u.Username == username {
			return id, nil
		}
	}
	return 0, nil
}

func (g *MemoryGateway) SaveGameRecord(ctx context.Context, rec store.GameRecord) error {
	if g.Err != nil {
		return g.Err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.records = append(g.records, rec)
	return nil
}

// Records returns a copy of the saved game records.
func (g *MemoryGateway) Records() []store.GameRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]store.GameRecord(nil), g.records...)
}

// User returns the stored copy of a user.
func (g *MemoryGateway) User(id uint64) *model.User {
	g.mu.Lock()
	defer g.mu.Unlock()
	u, ok := g.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}
