package handler

import (
	"strings"

	"github.com/gomokugo/server/internal/event"
	"github.com/gomokugo/server/internal/protocol"
	"github.com/gomokugo/server/internal/room"
	"github.com/gomokugo/server/internal/store"
)

func (h *Handler) handleRoom(sessionID uint64, p *protocol.Packet) {
	switch p.Type {
	case protocol.MsgSyncSeat:
		h.handleSyncSeat(sessionID, p)
	case protocol.MsgSyncRoomSetting:
		h.handleSyncRoomSetting(sessionID, p)
	case protocol.MsgChatMessage:
		h.handleChatMessage(sessionID, p)
	case protocol.MsgExitRoom:
		h.handleExitRoom(sessionID, p)
	case protocol.MsgSyncUsersToRoom:
		h.handleSyncUsersToRoom(sessionID, p)
	default:
		h.sendError(sessionID, "Unknown message type")
	}
}

// resolveSeatName maps a seat request name to a user id. Empty means
// vacant; a caller may name itself by its display name (guests included).
func (h *Handler) resolveSeatName(name string, callerID uint64) (uint64, bool) {
	if name == "" {
		return 0, true
	}
	if name == h.store.Username(callerID) {
		return callerID, true
	}
	if u := h.store.UserByUsername(name); u != nil {
		return u.ID, true
	}
	if uid, ok := store.ParseGuestName(name); ok {
		return uid, true
	}
	return 0, false
}

func (h *Handler) handleSyncSeat(sessionID uint64, p *protocol.Packet) {
	uid, ok := h.user(sessionID)
	if !ok {
		return
	}
	r, ok := h.roomOf(sessionID, uid)
	if !ok {
		return
	}

	p1Name, _ := p.String("p1Name")
	p2Name, _ := p.String("p2Name")
	black, ok := h.resolveSeatName(p1Name, uid)
	if !ok {
		h.sendError(sessionID, "Unknown player name")
		return
	}
	white, ok := h.resolveSeatName(p2Name, uid)
	if !ok {
		h.sendError(sessionID, "Unknown player name")
		return
	}

	events, ok := r.SyncSeat(uid, black, white)
	if !ok {
		h.sendError(sessionID, r.LastError())
		return
	}

	resp := protocol.NewPacket(sessionID, protocol.MsgSyncSeat)
	resp.SetBool("success", true)
	h.sender.Send(sessionID, resp)

	h.publish(events)
}

func (h *Handler) handleSyncRoomSetting(sessionID uint64, p *protocol.Packet) {
	uid, ok := h.user(sessionID)
	if !ok {
		return
	}
	r, ok := h.roomOf(sessionID, uid)
	if !ok {
		return
	}

	var patch room.SettingsPatch
	if v, ok := p.U32("boardSize"); ok {
		size := int(v)
		patch.BoardSize = &size
	}
	if v, ok := p.Bool("ranked"); ok {
		patch.Ranked = &v
	}
	if v, ok := p.Bool("allowTakeback"); ok {
		patch.AllowTakeback = &v
	}
	if v, ok := p.U32("baseTimeSec"); ok {
		sec := int(v)
		patch.BaseTimeSec = &sec
	}
	if v, ok := p.U32("byoyomiSec"); ok {
		sec := int(v)
		patch.ByoyomiSec = &sec
	}
	if v, ok := p.U32("byoyomiCount"); ok {
		n := int(v)
		patch.ByoyomiCount = &n
	}

	events, ok := r.UpdateSettings(uid, patch)
	if !ok {
		h.sendError(sessionID, r.LastError())
		return
	}

	resp := protocol.NewPacket(sessionID, protocol.MsgSyncRoomSetting)
	resp.SetBool("success", true)
	h.sender.Send(sessionID, resp)

	h.publish(events)
}

func (h *Handler) handleChatMessage(sessionID uint64, p *protocol.Packet) {
	uid, ok := h.user(sessionID)
	if !ok {
		return
	}
	r, ok := h.roomOf(sessionID, uid)
	if !ok {
		return
	}
	message, _ := p.String("message")
	if message == "" {
		h.sendError(sessionID, "Empty message")
		return
	}

	resp := protocol.NewPacket(sessionID, protocol.MsgChatMessage)
	resp.SetBool("success", true)
	h.sender.Send(sessionID, resp)

	h.publish([]event.Event{{
		Type: event.ChatMessageRecv, RoomID: r.ID(), UserID: uid, Message: message,
	}})
}

func (h *Handler) handleExitRoom(sessionID uint64, p *protocol.Packet) {
	uid, ok := h.user(sessionID)
	if !ok {
		return
	}
	r, ok := h.roomOf(sessionID, uid)
	if !ok {
		return
	}

	events, ok := r.RemovePlayer(uid)
	if !ok {
		h.sendError(sessionID, r.LastError())
		return
	}
	h.store.UnbindUserRoom(uid)
	if r.Empty() {
		h.store.RemoveRoom(r.ID())
	}

	resp := protocol.NewPacket(sessionID, protocol.MsgExitRoom)
	resp.SetBool("success", true)
	h.sender.Send(sessionID, resp)

	h.publish(events)
}

// RoomMembersSnapshot renders the formatted member list for a room.
// Shared with the notifier's SyncUsersToRoom pushes.
func RoomMembersSnapshot(st *store.Store, r *room.Room) (string, int) {
	members := r.Members()
	black, white := r.Seats()
	lines := make([]string, 0, len(members))
	for _, uid := range members {
		line := st.Username(uid)
		switch uid {
		case black:
			line += " [black]"
		case white:
			line += " [white]"
		}
		if uid == r.OwnerID() {
			line += " (owner)"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), len(lines)
}

func (h *Handler) handleSyncUsersToRoom(sessionID uint64, p *protocol.Packet) {
	uid, ok := h.user(sessionID)
	if !ok {
		return
	}
	r, ok := h.roomOf(sessionID, uid)
	if !ok {
		return
	}

	users, count := RoomMembersSnapshot(h.store, r)
	resp := protocol.NewPacket(sessionID, protocol.MsgSyncUsersToRoom)
	resp.SetBool("success", true)
	resp.SetU32("count", uint32(count))
	resp.SetString("users", users)
	h.sender.Send(sessionID, resp)
}
