// Package handler routes decoded packets to the auth, lobby, room, and
// game families and translates entity results into response packets.
package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/gomokugo/server/internal/event"
	"github.com/gomokugo/server/internal/protocol"
	"github.com/gomokugo/server/internal/room"
	"github.com/gomokugo/server/internal/store"
)

// Sender is the outbound sink: the session layer's table. Sends to
// offline or non-Active sessions are dropped there.
type Sender interface {
	Send(sessionID uint64, p *protocol.Packet)
}

// Handler dispatches by message-type family (MsgType/100). Handlers send
// the response first and publish resulting events after, so pushes never
// overtake the response on the caller's session.
type Handler struct {
	store    *store.Store
	bus      *event.Bus
	sender   Sender
	lobbyMax int
}

// New creates the dispatcher.
func New(st *store.Store, bus *event.Bus, sender Sender, lobbyMax int) *Handler {
	if lobbyMax <= 0 {
		lobbyMax = 10
	}
	return &Handler{store: st, bus: bus, sender: sender, lobbyMax: lobbyMax}
}

// Handle processes one packet. A panicking handler is contained here:
// the caller gets a generic error and the session survives.
func (h *Handler) Handle(sessionID uint64, p *protocol.Packet) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("handler panic", "session", sessionID, "type", p.Type.String(), "panic", r)
			h.sendError(sessionID, "internal error")
		}
	}()

	switch p.Type.Family() {
	case protocol.FamilyAuth:
		h.handleAuth(sessionID, p)
	case protocol.FamilyLobby:
		h.handleLobby(sessionID, p)
	case protocol.FamilyRoom:
		h.handleRoom(sessionID, p)
	case protocol.FamilyGame:
		h.handleGame(sessionID, p)
	default:
		h.sendError(sessionID, "Unknown message type")
	}
}

// dbContext bounds the gateway calls a handler makes inline.
func dbContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (h *Handler) sendError(sessionID uint64, reason string) {
	p := protocol.NewPacket(sessionID, protocol.MsgError)
	p.SetString("reason", reason)
	h.sender.Send(sessionID, p)
}

func (h *Handler) publish(events []event.Event) {
	for _, ev := range events {
		h.bus.Publish(ev)
	}
}

// user resolves the calling user; absence sends "Not logged in".
func (h *Handler) user(sessionID uint64) (uint64, bool) {
	uid := h.store.UserBySession(sessionID)
	if uid == 0 {
		h.sendError(sessionID, "Not logged in")
		return 0, false
	}
	return uid, true
}

// roomOf resolves the caller's room via the user→room index, never from
// the packet body.
func (h *Handler) roomOf(sessionID, userID uint64) (*room.Room, bool) {
	rid := h.store.RoomByUser(userID)
	if rid == 0 {
		h.sendError(sessionID, "You are not in a room")
		return nil, false
	}
	r := h.store.Room(rid)
	if r == nil {
		h.sendError(sessionID, "You are not in a room")
		return nil, false
	}
	return r, true
}

// CleanupSession clears all domain state a dying session owned: room
// membership (with the usual room events) and the session↔user binding.
// Called on socket close, expiry, and logout.
func (h *Handler) CleanupSession(sessionID uint64) {
	uid := h.store.UserBySession(sessionID)
	if uid == 0 {
		return
	}
	h.leaveRoom(uid)
	h.store.UnbindSession(sessionID)
}

// leaveRoom performs the exit path for a user, destroying the room when
// it empties. The returned events are published here.
func (h *Handler) leaveRoom(userID uint64) {
	rid := h.store.RoomByUser(userID)
	if rid == 0 {
		return
	}
	r := h.store.Room(rid)
	h.store.UnbindUserRoom(userID)
	if r == nil {
		return
	}
	events, ok := r.RemovePlayer(userID)
	if !ok {
		return
	}
	if r.Empty() {
		h.store.RemoveRoom(rid)
	}
	h.publish(events)
}
