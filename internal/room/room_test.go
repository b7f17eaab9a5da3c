package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomokugo/server/internal/event"
)

func eventTypes(events []event.Event) []event.Type {
	out := make([]event.Type, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Type)
	}
	return out
}

// playingRoom returns a started room with user 1 on black and 2 on white.
func playingRoom(t *testing.T) *Room {
	t.Helper()
	r := New(1)
	_, ok := r.AddPlayer(1)
	require.True(t, ok)
	_, ok = r.AddPlayer(2)
	require.True(t, ok)
	_, ok = r.SyncSeat(1, 1, 0)
	require.True(t, ok)
	_, ok = r.SyncSeat(2, 1, 2)
	require.True(t, ok)
	_, ok = r.StartGame(1)
	require.True(t, ok)
	return r
}

func TestAddPlayerFirstEntrantOwns(t *testing.T) {
	r := New(1)

	events, ok := r.AddPlayer(10)
	require.True(t, ok)
	assert.Equal(t, uint64(10), r.OwnerID())
	assert.Equal(t, []event.Type{event.PlayerJoined, event.RoomListUpdated}, eventTypes(events))

	_, ok = r.AddPlayer(10)
	assert.False(t, ok)
	assert.Equal(t, "Player already in room", r.LastError())

	_, ok = r.AddPlayer(11)
	require.True(t, ok)
	_, ok = r.AddPlayer(12)
	assert.False(t, ok)
	assert.Equal(t, "Room is full", r.LastError())
}

func TestRemovePlayerTransfersOwnership(t *testing.T) {
	r := New(1)
	r.AddPlayer(10)
	r.AddPlayer(11)

	_, ok := r.RemovePlayer(10)
	require.True(t, ok)
	assert.Equal(t, uint64(11), r.OwnerID())
	assert.Equal(t, []uint64{11}, r.Members())

	_, ok = r.RemovePlayer(99)
	assert.False(t, ok)
	assert.Equal(t, "Player not in room", r.LastError())

	_, ok = r.RemovePlayer(11)
	require.True(t, ok)
	assert.True(t, r.Empty())
	assert.Zero(t, r.OwnerID())
}

func TestRemoveSeatedPlayerClearsSeat(t *testing.T) {
	r := New(1)
	r.AddPlayer(10)
	r.AddPlayer(11)
	_, ok := r.SyncSeat(10, 10, 0)
	require.True(t, ok)

	events, ok := r.RemovePlayer(10)
	require.True(t, ok)
	assert.Equal(t,
		[]event.Type{event.SyncSeat, event.PlayerLeft, event.RoomListUpdated},
		eventTypes(events))

	black, white := r.Seats()
	assert.Zero(t, black)
	assert.Zero(t, white)
}

func TestRemoveSeatedPlayerForfeitsGame(t *testing.T) {
	r := playingRoom(t)
	_, ok := r.MakeMove(1, 7, 7)
	require.True(t, ok)

	events, ok := r.RemovePlayer(2)
	require.True(t, ok)
	assert.Equal(t, StatusEnd, r.Status())
	assert.Equal(t,
		[]event.Type{event.GameEnded, event.PlayerLeft, event.RoomListUpdated},
		eventTypes(events))
	assert.Equal(t, uint64(1), events[0].WinnerID, "the remaining player wins")

	// the seats record the real participants for persistence
	black, white := r.Seats()
	assert.Equal(t, uint64(1), black)
	assert.Equal(t, uint64(2), white)

	res := r.Result()
	assert.Equal(t, uint64(1), res.BlackID)
	assert.Equal(t, uint64(2), res.WhiteID)

	// the abandoned game cannot be resigned into a draw afterwards
	_, ok = r.GiveUp(1)
	assert.False(t, ok)
	assert.Equal(t, "Game not in progress", r.LastError())

	_, ok = r.MakeMove(1, 8, 8)
	assert.False(t, ok)
}

func TestRemoveUnseatedPlayerKeepsGame(t *testing.T) {
	r := New(1)
	r.AddPlayer(10)
	r.AddPlayer(11)
	_, ok := r.SyncSeat(10, 10, 0)
	require.True(t, ok)

	// 11 holds no seat; leaving before the game starts changes nothing
	events, ok := r.RemovePlayer(11)
	require.True(t, ok)
	assert.Equal(t, StatusFree, r.Status())
	assert.Equal(t,
		[]event.Type{event.PlayerLeft, event.RoomListUpdated},
		eventTypes(events))
}

func TestSyncSeatClaimFreeSeat(t *testing.T) {
	r := New(1)
	r.AddPlayer(10)

	events, ok := r.SyncSeat(10, 10, 0)
	require.True(t, ok)
	black, white := r.Seats()
	assert.Equal(t, uint64(10), black)
	assert.Zero(t, white)
	require.Len(t, events, 1)
	assert.Equal(t, event.SyncSeat, events[0].Type)
	assert.Equal(t, uint64(10), events[0].BlackID)
}

func TestSyncSeatSwitchClearsOldSeat(t *testing.T) {
	r := New(1)
	r.AddPlayer(10)
	_, ok := r.SyncSeat(10, 10, 0)
	require.True(t, ok)

	// claiming white while holding black switches sides in one step
	_, ok = r.SyncSeat(10, 10, 10)
	require.True(t, ok)
	black, white := r.Seats()
	assert.Zero(t, black)
	assert.Equal(t, uint64(10), white)

	// changing both seats at once is rejected
	_, ok = r.SyncSeat(10, 10, 0)
	assert.False(t, ok)
	assert.Equal(t, "Invalid seat request", r.LastError())
}

func TestSyncSeatRules(t *testing.T) {
	r := New(1)
	r.AddPlayer(10)
	r.AddPlayer(11)
	_, ok := r.SyncSeat(10, 10, 0)
	require.True(t, ok)

	_, ok = r.SyncSeat(99, 99, 0)
	assert.False(t, ok)
	assert.Equal(t, "Player not in room", r.LastError())

	// cannot seat somebody else
	_, ok = r.SyncSeat(11, 10, 10)
	assert.False(t, ok)
	assert.Equal(t, "Cannot seat another player", r.LastError())

	// cannot overwrite an occupied seat
	_, ok = r.SyncSeat(11, 11, 0)
	assert.False(t, ok)
	assert.Equal(t, "Seat already taken", r.LastError())

	// cannot vacate somebody else's seat
	_, ok = r.SyncSeat(11, 0, 0)
	assert.False(t, ok)

	// the opponent takes the free seat, repeating the current black
	_, ok = r.SyncSeat(11, 10, 11)
	require.True(t, ok)
	black, white := r.Seats()
	assert.Equal(t, uint64(10), black)
	assert.Equal(t, uint64(11), white)
}

func TestSyncSeatNoOpStillPublishesOnce(t *testing.T) {
	r := New(1)
	r.AddPlayer(10)
	_, ok := r.SyncSeat(10, 10, 0)
	require.True(t, ok)

	events, ok := r.SyncSeat(10, 10, 0)
	require.True(t, ok)
	require.Len(t, events, 1)
	assert.Equal(t, event.SyncSeat, events[0].Type)

	black, white := r.Seats()
	assert.Equal(t, uint64(10), black)
	assert.Zero(t, white)
}

func TestSyncSeatBlockedWhilePlaying(t *testing.T) {
	r := playingRoom(t)
	_, ok := r.SyncSeat(1, 0, 0)
	assert.False(t, ok)
	assert.Equal(t, "Game already started", r.LastError())
}

func TestUpdateSettings(t *testing.T) {
	r := New(1)
	r.AddPlayer(10)
	r.AddPlayer(11)

	size := 19
	ranked := true
	_, ok := r.UpdateSettings(11, SettingsPatch{BoardSize: &size})
	assert.False(t, ok)
	assert.Equal(t, "Only room owner can edit settings", r.LastError())

	events, ok := r.UpdateSettings(10, SettingsPatch{BoardSize: &size, Ranked: &ranked})
	require.True(t, ok)
	assert.Equal(t, 19, r.Settings().BoardSize)
	assert.True(t, r.Settings().Ranked)
	assert.Equal(t,
		[]event.Type{event.RoomStatusChanged, event.RoomListUpdated},
		eventTypes(events))

	bad := 30
	_, ok = r.UpdateSettings(10, SettingsPatch{BoardSize: &bad})
	assert.False(t, ok)
	assert.Equal(t, "Invalid board size", r.LastError())
}

func TestUpdateSettingsBlockedWhilePlaying(t *testing.T) {
	r := playingRoom(t)
	ranked := true
	_, ok := r.UpdateSettings(1, SettingsPatch{Ranked: &ranked})
	assert.False(t, ok)
	assert.Equal(t, "Cannot edit settings while playing", r.LastError())
}

func TestStartGameValidation(t *testing.T) {
	r := New(1)
	r.AddPlayer(10)

	_, ok := r.StartGame(10)
	assert.False(t, ok)
	assert.Equal(t, "Not enough players", r.LastError())

	r.AddPlayer(11)
	_, ok = r.StartGame(11)
	assert.False(t, ok)
	assert.Equal(t, "Only room owner can start the game", r.LastError())

	_, ok = r.StartGame(10)
	assert.False(t, ok)
	assert.Equal(t, "Both players must choose a color", r.LastError())

	r.SyncSeat(10, 10, 0)
	r.SyncSeat(11, 10, 11)
	events, ok := r.StartGame(10)
	require.True(t, ok)
	assert.Equal(t, StatusPlaying, r.Status())
	assert.Equal(t,
		[]event.Type{event.GameStarted, event.RoomStatusChanged, event.RoomListUpdated},
		eventTypes(events))

	_, ok = r.StartGame(10)
	assert.False(t, ok)
	assert.Equal(t, "Game already started", r.LastError())
}

func TestMakeMoveTurnOrder(t *testing.T) {
	r := playingRoom(t)

	// white cannot open
	_, ok := r.MakeMove(2, 7, 7)
	assert.False(t, ok)
	assert.Equal(t, "Not your turn", r.LastError())

	events, ok := r.MakeMove(1, 7, 7)
	require.True(t, ok)
	require.Len(t, events, 1)
	assert.Equal(t, event.PiecePlaced, events[0].Type)
	assert.Equal(t, uint32(7), events[0].X)

	_, ok = r.MakeMove(1, 8, 8)
	assert.False(t, ok)
	assert.Equal(t, "Not your turn", r.LastError())

	_, ok = r.MakeMove(2, 8, 8)
	assert.True(t, ok)
}

func TestMakeMoveIllegal(t *testing.T) {
	r := playingRoom(t)
	_, ok := r.MakeMove(1, 7, 7)
	require.True(t, ok)

	_, ok = r.MakeMove(2, 7, 7)
	assert.False(t, ok)
	assert.Equal(t, "Illegal move", r.LastError())

	_, ok = r.MakeMove(2, 99, 99)
	assert.False(t, ok)
	assert.Equal(t, "Illegal move", r.LastError())

	// non-member
	_, ok = r.MakeMove(3, 0, 0)
	assert.False(t, ok)
	assert.Equal(t, "Player is not in this game", r.LastError())

	// board unchanged: still white to move
	assert.Equal(t, 1, r.Snapshot().MoveCount)
}

func TestMakeMoveNotPlaying(t *testing.T) {
	r := New(1)
	r.AddPlayer(1)
	_, ok := r.MakeMove(1, 0, 0)
	assert.False(t, ok)
	assert.Equal(t, "Game not in progress", r.LastError())
}

func TestFiveInARowEndsGame(t *testing.T) {
	r := playingRoom(t)

	// black builds a vertical five; white plays elsewhere
	for i := 0; i < 4; i++ {
		_, ok := r.MakeMove(1, 7, 7+i)
		require.True(t, ok)
		_, ok = r.MakeMove(2, 0, i)
		require.True(t, ok)
	}
	events, ok := r.MakeMove(1, 7, 11)
	require.True(t, ok)

	require.Len(t, events, 2)
	assert.Equal(t, event.PiecePlaced, events[0].Type)
	assert.Equal(t, event.GameEnded, events[1].Type)
	assert.Equal(t, uint64(1), events[1].WinnerID)
	assert.Equal(t, StatusEnd, r.Status())

	_, ok = r.MakeMove(2, 1, 1)
	assert.False(t, ok)
}

func TestDrawNegotiation(t *testing.T) {
	r := playingRoom(t)

	// accept with nothing pending
	_, ok := r.RequestDraw(2, 1)
	assert.False(t, ok)
	assert.Equal(t, "No draw request to accept", r.LastError())

	events, ok := r.RequestDraw(1, 0)
	require.True(t, ok)
	assert.Equal(t, []event.Type{event.DrawRequested}, eventTypes(events))

	// requester cannot accept its own ask
	_, ok = r.RequestDraw(1, 1)
	assert.False(t, ok)

	events, ok = r.RequestDraw(2, 1)
	require.True(t, ok)
	assert.Equal(t, []event.Type{event.DrawAccepted, event.GameEnded}, eventTypes(events))
	assert.Zero(t, events[1].WinnerID)
	assert.Equal(t, StatusEnd, r.Status())
}

func TestDrawReject(t *testing.T) {
	r := playingRoom(t)
	_, ok := r.RequestDraw(1, 0)
	require.True(t, ok)

	events, ok := r.RequestDraw(2, 2)
	require.True(t, ok)
	require.Len(t, events, 1)
	assert.Equal(t, event.RoomStatusChanged, events[0].Type)
	assert.Equal(t, "draw_rejected", events[0].Status)
	assert.Equal(t, StatusPlaying, r.Status())

	// cleared: a second reject has nothing to act on
	_, ok = r.RequestDraw(2, 2)
	assert.False(t, ok)
}

func TestUndoNegotiation(t *testing.T) {
	r := playingRoom(t)

	_, ok := r.RequestUndo(1, 0)
	assert.False(t, ok)
	assert.Equal(t, "No move to undo", r.LastError())

	_, ok = r.MakeMove(1, 7, 7)
	require.True(t, ok)

	events, ok := r.RequestUndo(1, 0)
	require.True(t, ok)
	require.Len(t, events, 1)
	assert.Equal(t, "undo_requested", events[0].Status)

	events, ok = r.RequestUndo(2, 1)
	require.True(t, ok)
	assert.Equal(t, "undo_accepted", events[0].Status)

	// the ply came back off the board: black to move again
	assert.Zero(t, r.Snapshot().MoveCount)
	_, ok = r.MakeMove(1, 7, 7)
	assert.True(t, ok)
}

func TestUndoDisabledBySettings(t *testing.T) {
	r := New(1)
	r.AddPlayer(1)
	r.AddPlayer(2)
	off := false
	_, ok := r.UpdateSettings(1, SettingsPatch{AllowTakeback: &off})
	require.True(t, ok)
	r.SyncSeat(1, 1, 0)
	r.SyncSeat(2, 1, 2)
	_, ok = r.StartGame(1)
	require.True(t, ok)
	_, ok = r.MakeMove(1, 7, 7)
	require.True(t, ok)

	_, ok = r.RequestUndo(1, 0)
	assert.False(t, ok)
	assert.Equal(t, "Takeback disabled", r.LastError())
}

func TestGiveUp(t *testing.T) {
	r := playingRoom(t)

	_, ok := r.GiveUp(3)
	assert.False(t, ok)
	assert.Equal(t, "Player is not in this game", r.LastError())

	events, ok := r.GiveUp(1)
	require.True(t, ok)
	assert.Equal(t, []event.Type{event.GiveUpRequested, event.GameEnded}, eventTypes(events))
	assert.Equal(t, uint64(2), events[1].WinnerID)
	assert.Equal(t, StatusEnd, r.Status())
}

func TestPlayingInvariant(t *testing.T) {
	r := playingRoom(t)

	black, white := r.Seats()
	members := r.Members()
	assert.Len(t, members, 2)
	assert.NotZero(t, black)
	assert.NotZero(t, white)
	assert.NotEqual(t, black, white)
	assert.Contains(t, members, black)
	assert.Contains(t, members, white)
}

func TestSnapshot(t *testing.T) {
	r := playingRoom(t)
	snap := r.Snapshot()
	assert.Equal(t, int32(-1), snap.LastX)
	assert.Equal(t, int32(-1), snap.LastY)
	assert.Equal(t, 15, snap.BoardSize)
	assert.Equal(t, StatusPlaying, snap.Status)

	r.MakeMove(1, 3, 4)
	snap = r.Snapshot()
	assert.Equal(t, int32(3), snap.LastX)
	assert.Equal(t, int32(4), snap.LastY)
	assert.Equal(t, 1, snap.MoveCount)
	assert.Equal(t, byte('b'), snap.Board[3*15+4])
}

func TestResult(t *testing.T) {
	r := playingRoom(t)
	r.MakeMove(1, 7, 7)
	r.GiveUp(2)

	res := r.Result()
	assert.Equal(t, uint64(1), res.BlackID)
	assert.Equal(t, uint64(2), res.WhiteID)
	assert.False(t, res.Ranked)
	require.Len(t, res.Moves, 1)
	assert.False(t, res.StartedAt.IsZero())
}

func TestDescribe(t *testing.T) {
	r := New(7)
	r.AddPlayer(1)
	assert.Equal(t, "#7, free, 15x15 casual (1/2)", r.Describe())
}
