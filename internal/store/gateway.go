package store

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"time"

	"github.com/gomokugo/server/internal/model"
)

// Gateway is the persistence boundary. Implementations may block but must
// never be called while a core lock is held.
type Gateway interface {
	LoadAllUsers(ctx context.Context) ([]*model.User, error)
	InsertUser(ctx context.Context, username, password string) (uint64, error)
	UpdateUser(ctx context.Context, u *model.User) error
	LookupUserIDByUsername(ctx context.Context, username string) (uint64, error)
	SaveGameRecord(ctx context.Context, rec GameRecord) error
}

// GameRecord is a finished game as persisted to game_records.
type GameRecord struct {
	RoomID        uint64
	BlackPlayerID uint64
	WhitePlayerID uint64
	WinnerID      uint64 // 0 on draw
	Status        string // "win" or "draw"
	MovesJSON     string
	StartTime     time.Time
	EndTime       time.Time
}

// HashPassword hashes a password as SHA-1 → Base64. Stored passwords and
// login attempts are compared in hashed form only.
func HashPassword(password string) string {
	h := sha1.New()
	h.Write([]byte(password))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
