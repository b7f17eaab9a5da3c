package handler

import (
	"github.com/gomokugo/server/internal/protocol"
	"github.com/gomokugo/server/internal/room"
)

func (h *Handler) handleGame(sessionID uint64, p *protocol.Packet) {
	switch p.Type {
	case protocol.MsgMakeMove:
		h.handleMakeMove(sessionID, p)
	case protocol.MsgUndoMove:
		h.handleUndoMove(sessionID, p)
	case protocol.MsgDraw:
		h.handleDraw(sessionID, p)
	case protocol.MsgGiveUp:
		h.handleGiveUp(sessionID, p)
	case protocol.MsgGameStarted:
		h.handleGameStarted(sessionID, p)
	case protocol.MsgSyncGame:
		h.handleSyncGame(sessionID, p)
	default:
		h.sendError(sessionID, "Unknown message type")
	}
}

func (h *Handler) handleMakeMove(sessionID uint64, p *protocol.Packet) {
	uid, ok := h.user(sessionID)
	if !ok {
		return
	}
	r, ok := h.roomOf(sessionID, uid)
	if !ok {
		return
	}
	x, okX := p.U32("x")
	y, okY := p.U32("y")
	if !okX || !okY {
		h.sendError(sessionID, "Missing coordinates")
		return
	}

	events, ok := r.MakeMove(uid, int(x), int(y))
	if !ok {
		h.sendError(sessionID, r.LastError())
		return
	}

	resp := protocol.NewPacket(sessionID, protocol.MsgMakeMove)
	resp.SetBool("success", true)
	resp.SetU32("x", x)
	resp.SetU32("y", y)
	h.sender.Send(sessionID, resp)

	h.publish(events)
}

func (h *Handler) handleUndoMove(sessionID uint64, p *protocol.Packet) {
	uid, ok := h.user(sessionID)
	if !ok {
		return
	}
	r, ok := h.roomOf(sessionID, uid)
	if !ok {
		return
	}
	neg, _ := p.U32("neg")

	events, ok := r.RequestUndo(uid, neg)
	if !ok {
		h.sendError(sessionID, r.LastError())
		return
	}

	resp := protocol.NewPacket(sessionID, protocol.MsgUndoMove)
	resp.SetBool("success", true)
	resp.SetU32("neg", neg)
	h.sender.Send(sessionID, resp)

	h.publish(events)
}

func (h *Handler) handleDraw(sessionID uint64, p *protocol.Packet) {
	uid, ok := h.user(sessionID)
	if !ok {
		return
	}
	r, ok := h.roomOf(sessionID, uid)
	if !ok {
		return
	}
	neg, _ := p.U32("neg")

	events, ok := r.RequestDraw(uid, neg)
	if !ok {
		h.sendError(sessionID, r.LastError())
		return
	}

	resp := protocol.NewPacket(sessionID, protocol.MsgDraw)
	resp.SetBool("success", true)
	resp.SetU32("neg", neg)
	h.sender.Send(sessionID, resp)

	h.publish(events)
}

func (h *Handler) handleGiveUp(sessionID uint64, p *protocol.Packet) {
	uid, ok := h.user(sessionID)
	if !ok {
		return
	}
	r, ok := h.roomOf(sessionID, uid)
	if !ok {
		return
	}

	events, ok := r.GiveUp(uid)
	if !ok {
		h.sendError(sessionID, r.LastError())
		return
	}

	resp := protocol.NewPacket(sessionID, protocol.MsgGiveUp)
	resp.SetBool("success", true)
	h.sender.Send(sessionID, resp)

	h.publish(events)
}

func (h *Handler) handleGameStarted(sessionID uint64, p *protocol.Packet) {
	uid, ok := h.user(sessionID)
	if !ok {
		return
	}
	r, ok := h.roomOf(sessionID, uid)
	if !ok {
		return
	}

	events, ok := r.StartGame(uid)
	if !ok {
		h.sendError(sessionID, r.LastError())
		return
	}

	resp := protocol.NewPacket(sessionID, protocol.MsgGameStarted)
	resp.SetBool("success", true)
	h.sender.Send(sessionID, resp)

	h.publish(events)
}

// GamePacket builds a SyncGame packet from a room snapshot, shared with
// the notifier's pushes.
func GamePacket(sessionID uint64, s room.Snapshot) *protocol.Packet {
	p := protocol.NewPacket(sessionID, protocol.MsgSyncGame)
	p.SetBool("success", true)
	p.SetU64("roomId", s.RoomID)
	p.SetString("status", s.Status.String())
	p.SetU64("blackId", s.BlackID)
	p.SetU64("whiteId", s.WhiteID)
	p.SetU32("boardSize", uint32(s.BoardSize))
	p.SetU32("moveCount", uint32(s.MoveCount))
	p.SetI32("lastX", s.LastX)
	p.SetI32("lastY", s.LastY)
	p.SetString("board", s.Board)
	p.SetBool("ranked", s.Ranked)
	return p
}

func (h *Handler) handleSyncGame(sessionID uint64, p *protocol.Packet) {
	uid, ok := h.user(sessionID)
	if !ok {
		return
	}
	r, ok := h.roomOf(sessionID, uid)
	if !ok {
		return
	}
	h.sender.Send(sessionID, GamePacket(sessionID, r.Snapshot()))
}
