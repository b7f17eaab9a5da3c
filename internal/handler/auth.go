package handler

import (
	"log/slog"

	"github.com/gomokugo/server/internal/event"
	"github.com/gomokugo/server/internal/protocol"
)

func (h *Handler) handleAuth(sessionID uint64, p *protocol.Packet) {
	switch p.Type {
	case protocol.MsgLogin:
		h.handleLogin(sessionID, p)
	case protocol.MsgSignIn:
		h.handleSignIn(sessionID, p)
	case protocol.MsgLoginAsGuest:
		h.handleLoginAsGuest(sessionID, p)
	case protocol.MsgLogOut:
		h.handleLogOut(sessionID, p)
	default:
		h.sendError(sessionID, "Unknown message type")
	}
}

func (h *Handler) handleLogin(sessionID uint64, p *protocol.Packet) {
	username, _ := p.String("username")
	password, _ := p.String("password")
	if username == "" {
		h.sendError(sessionID, "Invalid username or password")
		return
	}

	u, ok := h.store.Authenticate(username, password)
	if !ok || h.store.IsOnline(u.ID) {
		h.sendError(sessionID, "Invalid username or password")
		return
	}

	h.store.BindSession(sessionID, u.ID)

	resp := protocol.NewPacket(sessionID, protocol.MsgLogin)
	resp.SetBool("success", true)
	resp.SetU64("userId", u.ID)
	resp.SetString("username", u.Username)
	resp.SetString("rank", u.Rank)
	h.sender.Send(sessionID, resp)

	slog.Info("user logged in", "user", u.ID, "username", u.Username)
	h.publish([]event.Event{{Type: event.UserLoggedIn, UserID: u.ID}})
}

func (h *Handler) handleSignIn(sessionID uint64, p *protocol.Packet) {
	username, _ := p.String("username")
	password, _ := p.String("password")
	if username == "" || password == "" {
		h.sendError(sessionID, "Username and password required")
		return
	}

	ctx, cancel := dbContext()
	defer cancel()
	u, err := h.store.CreateUser(ctx, username, password)
	if err != nil {
		slog.Warn("sign-in rejected", "username", username, "err", err)
		h.sendError(sessionID, "Username already exists")
		return
	}

	h.store.BindSession(sessionID, u.ID)

	resp := protocol.NewPacket(sessionID, protocol.MsgSignIn)
	resp.SetBool("success", true)
	resp.SetU64("userId", u.ID)
	resp.SetString("username", u.Username)
	h.sender.Send(sessionID, resp)

	slog.Info("user signed up", "user", u.ID, "username", u.Username)
	h.publish([]event.Event{{Type: event.UserLoggedIn, UserID: u.ID}})
}

func (h *Handler) handleLoginAsGuest(sessionID uint64, p *protocol.Packet) {
	uid := h.store.NextGuestID()
	h.store.BindSession(sessionID, uid)

	resp := protocol.NewPacket(sessionID, protocol.MsgLoginAsGuest)
	resp.SetBool("success", true)
	resp.SetU64("userId", uid)
	resp.SetString("username", h.store.Username(uid))
	h.sender.Send(sessionID, resp)

	slog.Info("guest logged in", "user", uid)
	h.publish([]event.Event{{Type: event.UserLoggedIn, UserID: uid}})
}

func (h *Handler) handleLogOut(sessionID uint64, p *protocol.Packet) {
	uid, ok := h.user(sessionID)
	if !ok {
		return
	}

	resp := protocol.NewPacket(sessionID, protocol.MsgLogOut)
	resp.SetBool("success", true)
	h.sender.Send(sessionID, resp)

	h.leaveRoom(uid)
	h.store.UnbindSession(sessionID)
	slog.Info("user logged out", "user", uid)
}
