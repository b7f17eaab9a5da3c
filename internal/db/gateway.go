package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gomokugo/server/internal/model"
	"github.com/gomokugo/server/internal/store"
)

// Gateway implements store.Gateway on top of the pgx pool.
type Gateway struct {
	db *DB
}

// NewGateway wraps a DB handle as a store gateway.
func NewGateway(db *DB) *Gateway {
	return &Gateway{db: db}
}

// LoadAllUsers returns every persistent account.
func (g *Gateway) LoadAllUsers(ctx context.Context) ([]*model.User, error) {
	rows, err := g.db.pool.Query(ctx,
		`SELECT id, username, password, rank, ranking, score, win_count, lose_count, draw_count
		 FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Password, &u.Rank, &u.Ranking,
			&u.Score, &u.WinCount, &u.LoseCount, &u.DrawCount); err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading user rows: %w", err)
	}
	return users, nil
}

// InsertUser creates an account and returns its id.
func (g *Gateway) InsertUser(ctx context.Context, username, password string) (uint64, error) {
	var id uint64
	err := g.db.pool.QueryRow(ctx,
		`INSERT INTO users (username, password, rank) VALUES ($1, $2, $3) RETURNING id`,
		username, password, model.StartingRank(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting user %q: %w", username, err)
	}
	return id, nil
}

// UpdateUser persists the mutable account fields.
func (g *Gateway) UpdateUser(ctx context.Context, u *model.User) error {
	_, err := g.db.pool.Exec(ctx,
		`UPDATE users
		 SET rank = $1, ranking = $2, score = $3, win_count = $4, lose_count = $5, draw_count = $6,
		     updated_at = now()
		 WHERE id = $7`,
		u.Rank, u.Ranking, u.Score, u.WinCount, u.LoseCount, u.DrawCount, u.ID)
	if err != nil {
		return fmt.Errorf("updating user %d: %w", u.ID, err)
	}
	return nil
}

// LookupUserIDByUsername resolves a username to an id, 0 when absent.
func (g *Gateway) LookupUserIDByUsername(ctx context.Context, username string) (uint64, error) {
	var id uint64
	err := g.db.pool.QueryRow(ctx,
		`SELECT id FROM users WHERE username = $1`, username,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("looking up user %q: %w", username, err)
	}
	return id, nil
}

// SaveGameRecord inserts a finished-game record.
func (g *Gateway) SaveGameRecord(ctx context.Context, rec store.GameRecord) error {
	_, err := g.db.pool.Exec(ctx,
		`INSERT INTO game_records
		 (room_id, black_player_id, white_player_id, winner_id, status, moves_json, start_time, end_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.RoomID, rec.BlackPlayerID, rec.WhitePlayerID, rec.WinnerID,
		rec.Status, rec.MovesJSON, rec.StartTime, rec.EndTime)
	if err != nil {
		return fmt.Errorf("saving game record for room %d: %w", rec.RoomID, err)
	}
	return nil
}
