// Package notifier turns domain events into push packets addressed to
// the right sessions: room broadcasts in member-list order, lobby
// broadcasts to every online user.
package notifier

import (
	"github.com/gomokugo/server/internal/event"
	"github.com/gomokugo/server/internal/handler"
	"github.com/gomokugo/server/internal/protocol"
	"github.com/gomokugo/server/internal/store"
)

// Sender is the session layer's send sink. Offline recipients resolve to
// session id 0 and are dropped before reaching it.
type Sender interface {
	Send(sessionID uint64, p *protocol.Packet)
}

// Notifier holds one subscription per event type for the process
// lifetime.
type Notifier struct {
	store    *store.Store
	sender   Sender
	lobbyMax int
	subs     []*event.Subscription
}

// New subscribes the notifier to every event on the bus.
func New(st *store.Store, bus *event.Bus, sender Sender, lobbyMax int) *Notifier {
	if lobbyMax <= 0 {
		lobbyMax = 10
	}
	n := &Notifier{store: st, sender: sender, lobbyMax: lobbyMax}

	sub := func(t event.Type, fn func(event.Event)) {
		n.subs = append(n.subs, bus.Subscribe(t, fn))
	}
	sub(event.PlayerJoined, n.onMembersChanged)
	sub(event.PlayerLeft, n.onMembersChanged)
	sub(event.PiecePlaced, n.onPiecePlaced)
	sub(event.GameStarted, n.onGameStarted)
	sub(event.GameEnded, n.onGameEnded)
	sub(event.RoomStatusChanged, n.onRoomStatusChanged)
	sub(event.DrawRequested, n.onDrawRequested)
	sub(event.DrawAccepted, n.onDrawAccepted)
	sub(event.GiveUpRequested, n.onGiveUp)
	sub(event.RoomCreated, n.onRoomCreated)
	sub(event.UserLoggedIn, n.onUserLoggedIn)
	sub(event.RoomListUpdated, n.onRoomListUpdated)
	sub(event.ChatMessageRecv, n.onChatMessage)
	sub(event.SyncSeat, n.onSyncSeat)
	return n
}

// Close cancels every subscription.
func (n *Notifier) Close() {
	for _, s := range n.subs {
		s.Cancel()
	}
}

// roomBroadcast sends one packet per room member, in member-list order.
// Members without a live session are skipped.
func (n *Notifier) roomBroadcast(roomID uint64, build func(sessionID uint64) *protocol.Packet) {
	r := n.store.Room(roomID)
	if r == nil {
		return
	}
	for _, uid := range r.Members() {
		sid := n.store.SessionByUser(uid)
		if sid == 0 {
			continue
		}
		n.sender.Send(sid, build(sid))
	}
}

// lobbyBroadcast sends one packet to every online user, in sorted
// user-id order.
func (n *Notifier) lobbyBroadcast(build func(sessionID uint64) *protocol.Packet) {
	for _, uid := range n.store.OnlineUsers() {
		sid := n.store.SessionByUser(uid)
		if sid == 0 {
			continue
		}
		n.sender.Send(sid, build(sid))
	}
}

func (n *Notifier) onMembersChanged(ev event.Event) {
	r := n.store.Room(ev.RoomID)
	if r == nil {
		return
	}
	users, count := handler.RoomMembersSnapshot(n.store, r)
	n.roomBroadcast(ev.RoomID, func(sid uint64) *protocol.Packet {
		p := protocol.NewPacket(sid, protocol.MsgSyncUsersToRoom)
		p.SetU32("count", uint32(count))
		p.SetString("users", users)
		return p
	})
}

func (n *Notifier) onPiecePlaced(ev event.Event) {
	n.roomBroadcast(ev.RoomID, func(sid uint64) *protocol.Packet {
		p := protocol.NewPacket(sid, protocol.MsgMakeMove)
		p.SetU64("userId", ev.UserID)
		p.SetU32("x", ev.X)
		p.SetU32("y", ev.Y)
		return p
	})
}

func (n *Notifier) onGameStarted(ev event.Event) {
	n.roomBroadcast(ev.RoomID, func(sid uint64) *protocol.Packet {
		p := protocol.NewPacket(sid, protocol.MsgGameStarted)
		p.SetU64("roomId", ev.RoomID)
		return p
	})
}

func (n *Notifier) onGameEnded(ev event.Event) {
	n.roomBroadcast(ev.RoomID, func(sid uint64) *protocol.Packet {
		p := protocol.NewPacket(sid, protocol.MsgGameEnded)
		p.SetU64("roomId", ev.RoomID)
		p.SetU64("winnerId", ev.WinnerID)
		return p
	})
}

func (n *Notifier) onRoomStatusChanged(ev event.Event) {
	r := n.store.Room(ev.RoomID)
	if r == nil {
		return
	}
	snap := r.Snapshot()
	n.roomBroadcast(ev.RoomID, func(sid uint64) *protocol.Packet {
		return handler.GamePacket(sid, snap)
	})
}

func (n *Notifier) onDrawRequested(ev event.Event) {
	n.drawPush(ev, uint32(protocol.NegAsk))
}

func (n *Notifier) onDrawAccepted(ev event.Event) {
	n.drawPush(ev, uint32(protocol.NegAccept))
}

func (n *Notifier) drawPush(ev event.Event, neg uint32) {
	n.roomBroadcast(ev.RoomID, func(sid uint64) *protocol.Packet {
		p := protocol.NewPacket(sid, protocol.MsgDraw)
		p.SetU64("userId", ev.UserID)
		p.SetU32("neg", neg)
		return p
	})
}

func (n *Notifier) onGiveUp(ev event.Event) {
	n.roomBroadcast(ev.RoomID, func(sid uint64) *protocol.Packet {
		p := protocol.NewPacket(sid, protocol.MsgGiveUp)
		p.SetU64("userId", ev.UserID)
		return p
	})
}

// onRoomCreated pushes the fresh game snapshot plus the member list.
func (n *Notifier) onRoomCreated(ev event.Event) {
	r := n.store.Room(ev.RoomID)
	if r == nil {
		return
	}
	snap := r.Snapshot()
	n.roomBroadcast(ev.RoomID, func(sid uint64) *protocol.Packet {
		return handler.GamePacket(sid, snap)
	})
	n.onMembersChanged(ev)
}

func (n *Notifier) onUserLoggedIn(ev event.Event) {
	users, count := handler.UsersSnapshot(n.store, n.lobbyMax)
	n.lobbyBroadcast(func(sid uint64) *protocol.Packet {
		p := protocol.NewPacket(sid, protocol.MsgUpdateUsersToLobby)
		p.SetU32("count", uint32(count))
		p.SetString("users", users)
		return p
	})
}

func (n *Notifier) onRoomListUpdated(ev event.Event) {
	rooms, count := handler.RoomsSnapshot(n.store, n.lobbyMax)
	n.lobbyBroadcast(func(sid uint64) *protocol.Packet {
		p := protocol.NewPacket(sid, protocol.MsgUpdateRoomsToLobby)
		p.SetU32("count", uint32(count))
		p.SetString("rooms", rooms)
		return p
	})
}

func (n *Notifier) onChatMessage(ev event.Event) {
	username := n.store.Username(ev.UserID)
	n.roomBroadcast(ev.RoomID, func(sid uint64) *protocol.Packet {
		p := protocol.NewPacket(sid, protocol.MsgChatMessage)
		p.SetU64("userId", ev.UserID)
		p.SetString("username", username)
		p.SetString("message", ev.Message)
		return p
	})
}

func (n *Notifier) onSyncSeat(ev event.Event) {
	p1 := ""
	if ev.BlackID != 0 {
		p1 = n.store.Username(ev.BlackID)
	}
	p2 := ""
	if ev.WhiteID != 0 {
		p2 = n.store.Username(ev.WhiteID)
	}
	n.roomBroadcast(ev.RoomID, func(sid uint64) *protocol.Packet {
		p := protocol.NewPacket(sid, protocol.MsgSyncSeat)
		p.SetU64("blackId", ev.BlackID)
		p.SetU64("whiteId", ev.WhiteID)
		p.SetString("p1Name", p1)
		p.SetString("p2Name", p2)
		return p
	})
}
