// Package event is the in-process publish/subscribe broker through which
// handlers and the room state machine announce state changes. It is the
// only back-channel from domain logic to the I/O edge.
package event

// Type tags an event. The catalogue is closed; each tag has a fixed
// payload shape (see Event).
type Type int

const (
	PlayerJoined Type = iota
	PlayerLeft
	PiecePlaced
	GameStarted
	GameEnded
	RoomStatusChanged
	DrawRequested
	DrawAccepted
	GiveUpRequested
	RoomCreated
	UserLoggedIn
	RoomListUpdated
	ChatMessageRecv
	SyncSeat

	numTypes
)

func (t Type) String() string {
	switch t {
	case PlayerJoined:
		return "PlayerJoined"
	case PlayerLeft:
		return "PlayerLeft"
	case PiecePlaced:
		return "PiecePlaced"
	case GameStarted:
		return "GameStarted"
	case GameEnded:
		return "GameEnded"
	case RoomStatusChanged:
		return "RoomStatusChanged"
	case DrawRequested:
		return "DrawRequested"
	case DrawAccepted:
		return "DrawAccepted"
	case GiveUpRequested:
		return "GiveUpRequested"
	case RoomCreated:
		return "RoomCreated"
	case UserLoggedIn:
		return "UserLoggedIn"
	case RoomListUpdated:
		return "RoomListUpdated"
	case ChatMessageRecv:
		return "ChatMessageRecv"
	case SyncSeat:
		return "SyncSeat"
	default:
		return "Unknown"
	}
}

// Event carries a tag plus the positional arguments for that tag. Events
// carry ids, never pointers; unused fields are zero.
//
//	PlayerJoined      RoomID, UserID
//	PlayerLeft        RoomID, UserID
//	PiecePlaced       RoomID, UserID, X, Y
//	GameStarted       RoomID
//	GameEnded         RoomID, WinnerID (0 on draw)
//	RoomStatusChanged RoomID, UserID, Status
//	DrawRequested     RoomID, UserID
//	DrawAccepted      RoomID, UserID
//	GiveUpRequested   RoomID, UserID
//	RoomCreated       RoomID, OwnerID (in UserID)
//	UserLoggedIn      UserID
//	RoomListUpdated   —
//	ChatMessageRecv   RoomID, UserID, Message
//	SyncSeat          RoomID, BlackID, WhiteID
type Event struct {
	Type Type

	RoomID   uint64
	UserID   uint64
	WinnerID uint64
	BlackID  uint64
	WhiteID  uint64
	X, Y     uint32
	Status   string
	Message  string
}
