package protocol

// MsgType identifies an application message. Types are partitioned into
// hundred-ranges; the range is the dispatcher's routing key (MsgType/100).
type MsgType uint16

const (
	// MsgHeartbeat carries no parameters; it only refreshes the session TTL.
	MsgHeartbeat MsgType = 0

	// 100–199: authentication
	MsgLogin        MsgType = 100
	MsgSignIn       MsgType = 101
	MsgLoginAsGuest MsgType = 102
	MsgLogOut       MsgType = 103

	// 200–299: lobby
	MsgCreateRoom         MsgType = 200
	MsgJoinRoom           MsgType = 201
	MsgQuickMatch         MsgType = 202
	MsgUpdateUsersToLobby MsgType = 203
	MsgUpdateRoomsToLobby MsgType = 204

	// 300–399: room
	MsgSyncSeat        MsgType = 300
	MsgSyncRoomSetting MsgType = 301
	MsgChatMessage     MsgType = 302
	MsgExitRoom        MsgType = 303
	MsgSyncUsersToRoom MsgType = 304

	// 400–499: game
	MsgMakeMove    MsgType = 400
	MsgUndoMove    MsgType = 401
	MsgDraw        MsgType = 402
	MsgGiveUp      MsgType = 403
	MsgGameStarted MsgType = 404
	MsgGameEnded   MsgType = 405
	MsgSyncGame    MsgType = 406

	// 9900–9999: error/push
	MsgError MsgType = 9900
)

// Handler families, selected by MsgType/100.
const (
	FamilyAuth  = 1
	FamilyLobby = 2
	FamilyRoom  = 3
	FamilyGame  = 4
)

// Family returns the handler family index for the message type.
func (t MsgType) Family() int {
	return int(t) / 100
}

func (t MsgType) String() string {
	switch t {
	case MsgHeartbeat:
		return "Heartbeat"
	case MsgLogin:
		return "Login"
	case MsgSignIn:
		return "SignIn"
	case MsgLoginAsGuest:
		return "LoginAsGuest"
	case MsgLogOut:
		return "LogOut"
	case MsgCreateRoom:
		return "CreateRoom"
	case MsgJoinRoom:
		return "JoinRoom"
	case MsgQuickMatch:
		return "QuickMatch"
	case MsgUpdateUsersToLobby:
		return "UpdateUsersToLobby"
	case MsgUpdateRoomsToLobby:
		return "UpdateRoomsToLobby"
	case MsgSyncSeat:
		return "SyncSeat"
	case MsgSyncRoomSetting:
		return "SyncRoomSetting"
	case MsgChatMessage:
		return "ChatMessage"
	case MsgExitRoom:
		return "ExitRoom"
	case MsgSyncUsersToRoom:
		return "SyncUsersToRoom"
	case MsgMakeMove:
		return "MakeMove"
	case MsgUndoMove:
		return "UndoMove"
	case MsgDraw:
		return "Draw"
	case MsgGiveUp:
		return "GiveUp"
	case MsgGameStarted:
		return "GameStarted"
	case MsgGameEnded:
		return "GameEnded"
	case MsgSyncGame:
		return "SyncGame"
	case MsgError:
		return "Error"
	default:
		return "Unknown"
	}
}

// NegStatus is the three-phase negotiation marker carried by Draw and
// UndoMove requests.
type NegStatus uint32

const (
	NegAsk    NegStatus = 0
	NegAccept NegStatus = 1
	NegReject NegStatus = 2
)
