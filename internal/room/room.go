// Package room implements the authoritative game-room state machine:
// seating, start/end transitions, move legality, negotiations, and
// setting edits.
package room

import (
	"fmt"
	"sync"
	"time"

	"github.com/gomokugo/server/internal/event"
	"github.com/gomokugo/server/internal/game"
)

// Status is the room lifecycle state. End is terminal for the room
// instance; finished rooms are destroyed when the last member leaves.
type Status int

const (
	StatusFree Status = iota
	StatusPlaying
	StatusEnd
)

func (s Status) String() string {
	switch s {
	case StatusFree:
		return "free"
	case StatusPlaying:
		return "playing"
	case StatusEnd:
		return "end"
	default:
		return "unknown"
	}
}

// MaxMembers caps the member list; Gomoku rooms hold the two players.
const MaxMembers = 2

// Settings is the owner-editable configuration block.
type Settings struct {
	BoardSize     int
	Ranked        bool
	AllowTakeback bool
	BaseTimeSec   int
	ByoyomiSec    int
	ByoyomiCount  int
}

// DefaultSettings returns the configuration a fresh room starts with.
func DefaultSettings() Settings {
	return Settings{
		BoardSize:     game.DefaultBoardSize,
		Ranked:        false,
		AllowTakeback: true,
		BaseTimeSec:   600,
		ByoyomiSec:    30,
		ByoyomiCount:  5,
	}
}

// Room is an in-memory game context. All business validation lives here;
// handlers only resolve entities and relay results. Mutating methods
// return the domain events the caller must publish after it has sent its
// response, which keeps response-before-push ordering intact.
//
// A per-room mutex guards all state; events are emitted outside it.
type Room struct {
	mu sync.Mutex

	id      uint64
	status  Status
	ownerID uint64
	members []uint64
	blackID uint64
	whiteID uint64

	settings Settings
	board    *game.Board

	pendingDraw uint64 // user id of an open draw ask, 0 when none
	pendingUndo uint64

	startedAt time.Time
	lastErr   string
}

// New creates an empty room in status Free.
func New(id uint64) *Room {
	return &Room{
		id:       id,
		status:   StatusFree,
		settings: DefaultSettings(),
		board:    game.NewBoard(game.DefaultBoardSize),
	}
}

// ID returns the room id.
func (r *Room) ID() uint64 {
	return r.id
}

// Status returns the current lifecycle state.
func (r *Room) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// OwnerID returns the current owner.
func (r *Room) OwnerID() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ownerID
}

// Members returns the member list in join order.
func (r *Room) Members() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.members...)
}

// Seats returns the black and white seat occupants (0 = empty).
func (r *Room) Seats() (black, white uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blackID, r.whiteID
}

// Settings returns a copy of the configuration block.
func (r *Room) Settings() Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings
}

// LastError returns the reason of the most recent failed mutation.
func (r *Room) LastError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Empty reports whether the member list is empty.
func (r *Room) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members) == 0
}

// HasMember reports membership.
func (r *Room) HasMember(userID uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hasMember(userID)
}

func (r *Room) hasMember(userID uint64) bool {
	for _, id := range r.members {
		if id == userID {
			return true
		}
	}
	return false
}

func (r *Room) fail(reason string) bool {
	r.lastErr = reason
	return false
}

// AddPlayer appends a member. The first entrant becomes owner.
func (r *Room) AddPlayer(userID uint64) ([]event.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.hasMember(userID) {
		return nil, r.fail("Player already in room")
	}
	if len(r.members) >= MaxMembers {
		return nil, r.fail("Room is full")
	}
	if len(r.members) == 0 {
		r.ownerID = userID
	}
	r.members = append(r.members, userID)

	return []event.Event{
		{Type: event.PlayerJoined, RoomID: r.id, UserID: userID},
		{Type: event.RoomListUpdated},
	}, true
}

// RemovePlayer removes a member, transfers ownership if needed, and
// clears any seat the member held. A seated player leaving mid-game
// forfeits it: the room moves to End and the opponent wins.
func (r *Room) RemovePlayer(userID uint64) ([]event.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, id := range r.members {
		if id == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, r.fail("Player not in room")
	}
	r.members = append(r.members[:idx], r.members[idx+1:]...)

	if userID == r.ownerID {
		if len(r.members) > 0 {
			r.ownerID = r.members[0]
		} else {
			r.ownerID = 0
		}
	}

	var events []event.Event
	if r.status == StatusPlaying && (r.blackID == userID || r.whiteID == userID) {
		winnerID := r.blackID
		if userID == r.blackID {
			winnerID = r.whiteID
		}
		r.status = StatusEnd
		r.pendingDraw = 0
		r.pendingUndo = 0
		// the seats stay as played so the finished game records the
		// real participants
		events = append(events, event.Event{
			Type: event.GameEnded, RoomID: r.id, WinnerID: winnerID,
		})
	} else {
		seatChanged := false
		if r.blackID == userID {
			r.blackID = 0
			seatChanged = true
		}
		if r.whiteID == userID {
			r.whiteID = 0
			seatChanged = true
		}
		if seatChanged {
			events = append(events, event.Event{
				Type: event.SyncSeat, RoomID: r.id, BlackID: r.blackID, WhiteID: r.whiteID,
			})
		}
	}
	events = append(events,
		event.Event{Type: event.PlayerLeft, RoomID: r.id, UserID: userID},
		event.Event{Type: event.RoomListUpdated},
	)
	return events, true
}

// SyncSeat applies a requested seat configuration. The caller may only
// claim a free seat (or one it already holds) for itself, or vacate its
// own seat; at most one seat may change per request. A request matching
// the current seats is a no-op but still announces the seats once.
func (r *Room) SyncSeat(userID, reqBlack, reqWhite uint64) ([]event.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.hasMember(userID) {
		return nil, r.fail("Player not in room")
	}
	if r.status == StatusPlaying {
		return nil, r.fail("Game already started")
	}

	changes := 0
	if reqBlack != r.blackID {
		changes++
		if reqBlack != 0 && reqBlack != userID {
			return nil, r.fail("Cannot seat another player")
		}
		if r.blackID != 0 && r.blackID != userID {
			return nil, r.fail("Seat already taken")
		}
	}
	if reqWhite != r.whiteID {
		changes++
		if reqWhite != 0 && reqWhite != userID {
			return nil, r.fail("Cannot seat another player")
		}
		if r.whiteID != 0 && r.whiteID != userID {
			return nil, r.fail("Seat already taken")
		}
	}
	if changes > 1 {
		return nil, r.fail("Invalid seat request")
	}

	if reqBlack != r.blackID {
		r.blackID = reqBlack
		if reqBlack == userID && r.whiteID == userID {
			r.whiteID = 0
		}
	} else if reqWhite != r.whiteID {
		r.whiteID = reqWhite
		if reqWhite == userID && r.blackID == userID {
			r.blackID = 0
		}
	}

	return []event.Event{
		{Type: event.SyncSeat, RoomID: r.id, BlackID: r.blackID, WhiteID: r.whiteID},
	}, true
}

// SettingsPatch carries the fields a SyncRoomSetting request wants to
// change; nil fields stay untouched.
type SettingsPatch struct {
	BoardSize     *int
	Ranked        *bool
	AllowTakeback *bool
	BaseTimeSec   *int
	ByoyomiSec    *int
	ByoyomiCount  *int
}

// UpdateSettings applies a patch. Owner-only, and never while playing.
// Changing the board size resets the board.
func (r *Room) UpdateSettings(userID uint64, patch SettingsPatch) ([]event.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if userID != r.ownerID {
		return nil, r.fail("Only room owner can edit settings")
	}
	if r.status == StatusPlaying {
		return nil, r.fail("Cannot edit settings while playing")
	}

	if patch.BoardSize != nil && *patch.BoardSize != r.settings.BoardSize {
		if *patch.BoardSize < 5 || *patch.BoardSize > 25 {
			return nil, r.fail("Invalid board size")
		}
		r.settings.BoardSize = *patch.BoardSize
		r.board = game.NewBoard(*patch.BoardSize)
	}
	if patch.Ranked != nil {
		r.settings.Ranked = *patch.Ranked
	}
	if patch.AllowTakeback != nil {
		r.settings.AllowTakeback = *patch.AllowTakeback
	}
	if patch.BaseTimeSec != nil {
		r.settings.BaseTimeSec = *patch.BaseTimeSec
	}
	if patch.ByoyomiSec != nil {
		r.settings.ByoyomiSec = *patch.ByoyomiSec
	}
	if patch.ByoyomiCount != nil {
		r.settings.ByoyomiCount = *patch.ByoyomiCount
	}

	return []event.Event{
		{Type: event.RoomStatusChanged, RoomID: r.id, UserID: userID, Status: "settings_updated"},
		{Type: event.RoomListUpdated},
	}, true
}

// StartGame moves the room to Playing. Only the owner may start; both
// seats must be filled by distinct members.
func (r *Room) StartGame(userID uint64) ([]event.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if userID != r.ownerID {
		return nil, r.fail("Only room owner can start the game")
	}
	if r.status == StatusPlaying {
		return nil, r.fail("Game already started")
	}
	if len(r.members) < MaxMembers {
		return nil, r.fail("Not enough players")
	}
	if r.blackID == 0 || r.whiteID == 0 {
		return nil, r.fail("Both players must choose a color")
	}
	if r.blackID == r.whiteID {
		return nil, r.fail("Seats must be held by different players")
	}
	if !r.hasMember(r.blackID) || !r.hasMember(r.whiteID) {
		return nil, r.fail("Seated player left the room")
	}

	r.status = StatusPlaying
	r.board = game.NewBoard(r.settings.BoardSize)
	r.pendingDraw = 0
	r.pendingUndo = 0
	r.startedAt = time.Now()

	return []event.Event{
		{Type: event.GameStarted, RoomID: r.id},
		{Type: event.RoomStatusChanged, RoomID: r.id, UserID: userID, Status: "playing"},
		{Type: event.RoomListUpdated},
	}, true
}

// seatColor returns the colour the user occupies, or Empty.
func (r *Room) seatColor(userID uint64) game.Piece {
	switch userID {
	case r.blackID:
		return game.Black
	case r.whiteID:
		return game.White
	default:
		return game.Empty
	}
}

// MakeMove places a stone for the user. The mover must hold the seat of
// the colour to move; the board enforces bounds and occupancy. A
// completed five-in-a-row (or a full board) ends the game.
func (r *Room) MakeMove(userID uint64, x, y int) ([]event.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusPlaying {
		return nil, r.fail("Game not in progress")
	}
	color := r.seatColor(userID)
	if color == game.Empty {
		return nil, r.fail("Player is not in this game")
	}
	if color != r.board.NextColor() {
		return nil, r.fail("Not your turn")
	}
	if !r.board.Place(x, y, color) {
		return nil, r.fail("Illegal move")
	}

	events := []event.Event{
		{Type: event.PiecePlaced, RoomID: r.id, UserID: userID, X: uint32(x), Y: uint32(y)},
	}

	if r.board.CheckWin(x, y) != game.Empty {
		r.status = StatusEnd
		events = append(events, event.Event{Type: event.GameEnded, RoomID: r.id, WinnerID: userID})
	} else if r.board.Full() {
		r.status = StatusEnd
		events = append(events, event.Event{Type: event.GameEnded, RoomID: r.id, WinnerID: 0})
	}
	return events, true
}

// RequestDraw handles the three-phase draw negotiation. Ask comes from a
// seated player during play; Accept by the opponent ends the game as a
// draw; Reject clears the ask. A second Ask by the same player
// supersedes its predecessor.
func (r *Room) RequestDraw(userID uint64, neg uint32) ([]event.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusPlaying {
		return nil, r.fail("Game not in progress")
	}
	if r.seatColor(userID) == game.Empty {
		return nil, r.fail("Player is not in this game")
	}

	switch neg {
	case 0: // ask
		r.pendingDraw = userID
		return []event.Event{
			{Type: event.DrawRequested, RoomID: r.id, UserID: userID},
		}, true
	case 1: // accept
		if r.pendingDraw == 0 || r.pendingDraw == userID {
			return nil, r.fail("No draw request to accept")
		}
		r.pendingDraw = 0
		r.status = StatusEnd
		return []event.Event{
			{Type: event.DrawAccepted, RoomID: r.id, UserID: userID},
			{Type: event.GameEnded, RoomID: r.id, WinnerID: 0},
		}, true
	case 2: // reject
		if r.pendingDraw == 0 || r.pendingDraw == userID {
			return nil, r.fail("No draw request to reject")
		}
		r.pendingDraw = 0
		return []event.Event{
			{Type: event.RoomStatusChanged, RoomID: r.id, UserID: userID, Status: "draw_rejected"},
		}, true
	default:
		return nil, r.fail(fmt.Sprintf("Unknown negotiation status %d", neg))
	}
}

// RequestUndo handles the takeback negotiation. The negotiation carries
// no coordinates; Accept rolls back exactly one ply. Announced through
// RoomStatusChanged so members receive a fresh game snapshot.
func (r *Room) RequestUndo(userID uint64, neg uint32) ([]event.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.settings.AllowTakeback {
		return nil, r.fail("Takeback disabled")
	}
	if r.status != StatusPlaying {
		return nil, r.fail("Game not in progress")
	}
	if r.seatColor(userID) == game.Empty {
		return nil, r.fail("Player is not in this game")
	}

	switch neg {
	case 0: // ask
		if r.board.MoveCount() == 0 {
			return nil, r.fail("No move to undo")
		}
		r.pendingUndo = userID
		return []event.Event{
			{Type: event.RoomStatusChanged, RoomID: r.id, UserID: userID, Status: "undo_requested"},
		}, true
	case 1: // accept
		if r.pendingUndo == 0 || r.pendingUndo == userID {
			return nil, r.fail("No undo request to accept")
		}
		r.pendingUndo = 0
		if _, ok := r.board.Undo(); !ok {
			return nil, r.fail("No move to undo")
		}
		return []event.Event{
			{Type: event.RoomStatusChanged, RoomID: r.id, UserID: userID, Status: "undo_accepted"},
		}, true
	case 2: // reject
		if r.pendingUndo == 0 || r.pendingUndo == userID {
			return nil, r.fail("No undo request to reject")
		}
		r.pendingUndo = 0
		return []event.Event{
			{Type: event.RoomStatusChanged, RoomID: r.id, UserID: userID, Status: "undo_rejected"},
		}, true
	default:
		return nil, r.fail(fmt.Sprintf("Unknown negotiation status %d", neg))
	}
}

// GiveUp resigns unilaterally; the opponent wins.
func (r *Room) GiveUp(userID uint64) ([]event.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusPlaying {
		return nil, r.fail("Game not in progress")
	}
	color := r.seatColor(userID)
	if color == game.Empty {
		return nil, r.fail("Player is not in this game")
	}

	winnerID := r.blackID
	if userID == r.blackID {
		winnerID = r.whiteID
	}

	r.status = StatusEnd
	return []event.Event{
		{Type: event.GiveUpRequested, RoomID: r.id, UserID: userID},
		{Type: event.GameEnded, RoomID: r.id, WinnerID: winnerID},
	}, true
}

// Snapshot is the SyncGame view of a room.
type Snapshot struct {
	RoomID    uint64
	Status    Status
	OwnerID   uint64
	BlackID   uint64
	WhiteID   uint64
	BoardSize int
	MoveCount int
	LastX     int32
	LastY     int32
	Board     string
	Ranked    bool
}

// Snapshot returns a consistent view for SyncGame replies and pushes.
func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Snapshot{
		RoomID:    r.id,
		Status:    r.status,
		OwnerID:   r.ownerID,
		BlackID:   r.blackID,
		WhiteID:   r.whiteID,
		BoardSize: r.board.Size(),
		MoveCount: r.board.MoveCount(),
		LastX:     -1,
		LastY:     -1,
		Board:     r.board.Flatten(),
		Ranked:    r.settings.Ranked,
	}
	if last, ok := r.board.LastMove(); ok {
		s.LastX = int32(last.X)
		s.LastY = int32(last.Y)
	}
	return s
}

// Result captures what the persistence gateway needs after a game ends.
type Result struct {
	RoomID    uint64
	BlackID   uint64
	WhiteID   uint64
	Ranked    bool
	Moves     []game.Move
	StartedAt time.Time
}

// Result returns the finished-game record data. Valid once the room has
// reached End.
func (r *Room) Result() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Result{
		RoomID:    r.id,
		BlackID:   r.blackID,
		WhiteID:   r.whiteID,
		Ranked:    r.settings.Ranked,
		Moves:     r.board.Moves(),
		StartedAt: r.startedAt,
	}
}

// Describe renders the room-list line: "#<id>, <status>, <description>".
func (r *Room) Describe() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kind := "casual"
	if r.settings.Ranked {
		kind = "ranked"
	}
	return fmt.Sprintf("#%d, %s, %dx%d %s (%d/%d)",
		r.id, r.status, r.settings.BoardSize, r.settings.BoardSize, kind, len(r.members), MaxMembers)
}
