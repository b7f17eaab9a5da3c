package handler

import (
	"fmt"
	"strings"

	"github.com/gomokugo/server/internal/event"
	"github.com/gomokugo/server/internal/protocol"
	"github.com/gomokugo/server/internal/room"
	"github.com/gomokugo/server/internal/store"
)

func (h *Handler) handleLobby(sessionID uint64, p *protocol.Packet) {
	switch p.Type {
	case protocol.MsgCreateRoom:
		h.handleCreateRoom(sessionID, p)
	case protocol.MsgJoinRoom:
		h.handleJoinRoom(sessionID, p)
	case protocol.MsgQuickMatch:
		h.handleQuickMatch(sessionID, p)
	case protocol.MsgUpdateUsersToLobby:
		h.handleUpdateUsersToLobby(sessionID, p)
	case protocol.MsgUpdateRoomsToLobby:
		h.handleUpdateRoomsToLobby(sessionID, p)
	default:
		h.sendError(sessionID, "Unknown message type")
	}
}

func (h *Handler) handleCreateRoom(sessionID uint64, p *protocol.Packet) {
	uid, ok := h.user(sessionID)
	if !ok {
		return
	}
	if h.store.RoomByUser(uid) != 0 {
		h.sendError(sessionID, "Already in a room")
		return
	}

	r := h.store.CreateRoom()
	events, ok := r.AddPlayer(uid)
	if !ok {
		h.store.RemoveRoom(r.ID())
		h.sendError(sessionID, r.LastError())
		return
	}
	h.store.BindUserRoom(uid, r.ID())

	resp := protocol.NewPacket(sessionID, protocol.MsgCreateRoom)
	resp.SetBool("success", true)
	resp.SetU64("roomId", r.ID())
	h.sender.Send(sessionID, resp)

	h.publish(append([]event.Event{
		{Type: event.RoomCreated, RoomID: r.ID(), UserID: uid},
	}, events...))
}

func (h *Handler) handleJoinRoom(sessionID uint64, p *protocol.Packet) {
	uid, ok := h.user(sessionID)
	if !ok {
		return
	}
	roomID, ok := p.U64("roomId")
	if !ok {
		h.sendError(sessionID, "Missing roomId")
		return
	}
	if h.store.RoomByUser(uid) != 0 {
		h.sendError(sessionID, "Already in a room")
		return
	}
	r := h.store.Room(roomID)
	if r == nil {
		h.sendError(sessionID, "Room not found")
		return
	}

	events, ok := r.AddPlayer(uid)
	if !ok {
		h.sendError(sessionID, r.LastError())
		return
	}
	h.store.BindUserRoom(uid, roomID)

	resp := protocol.NewPacket(sessionID, protocol.MsgJoinRoom)
	resp.SetBool("success", true)
	resp.SetU64("roomId", roomID)
	h.sender.Send(sessionID, resp)

	h.publish(events)
}

// handleQuickMatch joins the first room that is Free and has space, or
// creates a fresh one when none exists.
func (h *Handler) handleQuickMatch(sessionID uint64, p *protocol.Packet) {
	uid, ok := h.user(sessionID)
	if !ok {
		return
	}
	if h.store.RoomByUser(uid) != 0 {
		h.sendError(sessionID, "Already in a room")
		return
	}

	var target *room.Room
	for _, r := range h.store.Rooms(1 << 16) {
		if r.Status() == room.StatusFree && len(r.Members()) < room.MaxMembers {
			target = r
			break
		}
	}

	created := false
	var events []event.Event
	if target == nil {
		target = h.store.CreateRoom()
		created = true
		events = append(events, event.Event{Type: event.RoomCreated, RoomID: target.ID(), UserID: uid})
	}

	joinEvents, ok := target.AddPlayer(uid)
	if !ok {
		if created {
			h.store.RemoveRoom(target.ID())
		}
		h.sendError(sessionID, target.LastError())
		return
	}
	h.store.BindUserRoom(uid, target.ID())

	resp := protocol.NewPacket(sessionID, protocol.MsgQuickMatch)
	resp.SetBool("success", true)
	resp.SetU64("roomId", target.ID())
	resp.SetBool("created", created)
	h.sender.Send(sessionID, resp)

	h.publish(append(events, joinEvents...))
}

// UserLobbyLine formats one lobby user entry.
func UserLobbyLine(username string, online bool) string {
	state := "offline"
	if online {
		state = "online"
	}
	return fmt.Sprintf("%s (%s)", username, state)
}

// UsersSnapshot renders the bounded lobby user list. Shared with the
// notifier's UserLoggedIn pushes.
func UsersSnapshot(st *store.Store, max int) (string, int) {
	users := st.Users(max)
	lines := make([]string, 0, len(users))
	for _, u := range users {
		lines = append(lines, UserLobbyLine(u.Username, st.IsOnline(u.ID)))
	}
	return strings.Join(lines, "\n"), len(lines)
}

// RoomsSnapshot renders the bounded lobby room list.
func RoomsSnapshot(st *store.Store, max int) (string, int) {
	rooms := st.Rooms(max)
	lines := make([]string, 0, len(rooms))
	for _, r := range rooms {
		lines = append(lines, r.Describe())
	}
	return strings.Join(lines, "\n"), len(lines)
}

func (h *Handler) handleUpdateUsersToLobby(sessionID uint64, p *protocol.Packet) {
	if _, ok := h.user(sessionID); !ok {
		return
	}
	max := h.lobbyMax
	if v, ok := p.U32("maxCount"); ok && v > 0 {
		max = int(v)
	}
	users, count := UsersSnapshot(h.store, max)

	resp := protocol.NewPacket(sessionID, protocol.MsgUpdateUsersToLobby)
	resp.SetBool("success", true)
	resp.SetU32("count", uint32(count))
	resp.SetString("users", users)
	h.sender.Send(sessionID, resp)
}

func (h *Handler) handleUpdateRoomsToLobby(sessionID uint64, p *protocol.Packet) {
	if _, ok := h.user(sessionID); !ok {
		return
	}
	max := h.lobbyMax
	if v, ok := p.U32("maxCount"); ok && v > 0 {
		max = int(v)
	}
	rooms, count := RoomsSnapshot(h.store, max)

	resp := protocol.NewPacket(sessionID, protocol.MsgUpdateRoomsToLobby)
	resp.SetBool("success", true)
	resp.SetU32("count", uint32(count))
	resp.SetString("rooms", rooms)
	h.sender.Send(sessionID, resp)
}
