package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gomokugo/server/internal/event"
	"github.com/gomokugo/server/internal/model"
	"github.com/gomokugo/server/internal/room"
)

// Finalizer persists finished games: it subscribes to GameEnded, saves a
// game record, and applies the rating update for ranked games. Gateway
// calls run on the publishing goroutine but outside every core lock.
type Finalizer struct {
	store *Store
	sub   *event.Subscription
}

// NewFinalizer subscribes a finalizer on the bus.
func NewFinalizer(s *Store, bus *event.Bus) *Finalizer {
	f := &Finalizer{store: s}
	f.sub = bus.Subscribe(event.GameEnded, f.onGameEnded)
	return f
}

// Close cancels the subscription.
func (f *Finalizer) Close() {
	f.sub.Cancel()
}

func (f *Finalizer) onGameEnded(ev event.Event) {
	r := f.store.Room(ev.RoomID)
	if r == nil {
		slog.Warn("game ended for unknown room", "room", ev.RoomID)
		return
	}
	res := r.Result()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	f.saveRecord(ctx, ev, res.BlackID, res.WhiteID, res.StartedAt, res.RoomID, movesJSON(res))
	if res.Ranked {
		f.updateScores(ctx, ev.WinnerID, res.BlackID, res.WhiteID)
	}
}

type recordedMove struct {
	X int    `json:"x"`
	Y int    `json:"y"`
	C string `json:"c"`
}

func movesJSON(res room.Result) string {
	moves := make([]recordedMove, 0, len(res.Moves))
	for _, m := range res.Moves {
		moves = append(moves, recordedMove{X: m.X, Y: m.Y, C: m.Color.String()})
	}
	data, err := json.Marshal(moves)
	if err != nil {
		slog.Error("encoding moves", "err", err)
		return "[]"
	}
	return string(data)
}

func (f *Finalizer) saveRecord(ctx context.Context, ev event.Event, blackID, whiteID uint64, startedAt time.Time, roomID uint64, moves string) {
	status := "win"
	if ev.WinnerID == 0 {
		status = "draw"
	}
	rec := GameRecord{
		RoomID:        roomID,
		BlackPlayerID: blackID,
		WhitePlayerID: whiteID,
		WinnerID:      ev.WinnerID,
		Status:        status,
		MovesJSON:     moves,
		StartTime:     startedAt,
		EndTime:       time.Now(),
	}
	if err := f.store.gw.SaveGameRecord(ctx, rec); err != nil {
		slog.Error("saving game record", "room", roomID, "err", err)
	}
}

// updateScores applies the ELO update and persists both sides. Guests
// have no persistent account and are skipped.
func (f *Finalizer) updateScores(ctx context.Context, winnerID, blackID, whiteID uint64) {
	loserID := blackID
	if winnerID == blackID {
		loserID = whiteID
	}
	draw := winnerID == 0
	if draw {
		winnerID, loserID = blackID, whiteID
	}
	if model.IsGuest(winnerID) || model.IsGuest(loserID) {
		return
	}

	winner := f.store.User(winnerID)
	loser := f.store.User(loserID)
	if winner == nil || loser == nil {
		return
	}

	model.UpdateScore(winner, loser, draw)

	if err := f.store.SaveUser(ctx, winner); err != nil {
		slog.Error("saving user score", "user", winner.ID, "err", err)
	}
	if err := f.store.SaveUser(ctx, loser); err != nil {
		slog.Error("saving user score", "user", loser.ID, "err", err)
	}
}
