package game

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/LemmyAI/ideaparty/internal/player"
	"github.com/LemmyAI/ideaparty/internal/protocol"
	"github.com/LemmyAI/ideaparty/internal/room"
	"github.com/LemmyAI/ideaparty/internal/voting"
)

// Messages sent with fail_* events.
const (
	msgBadRequest      = "invalid request"
	msgInvalidUsername = "invalid username"
	msgInvalidRoomCode = "invalid room code"
	msgRoomFull        = "room is full"
	msgUnknownAlgo     = "unknown voting algorithm"
	msgNotInRoom       = "not in this room"
	msgNotHost         = "only the host can start the game"
	msgAlreadyStarted  = "game already started"
)

func (e *Engine) handleCreateRoom(p *player.Player, env protocol.Envelope) {
	var req protocol.CreateRoom
	if err := env.Bind(&req); err != nil {
		e.fail(p.ConnID, protocol.EventFailToCreateRoom, msgBadRequest)
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		e.fail(p.ConnID, protocol.EventFailToCreateRoom, msgInvalidUsername)
		return
	}
	alg, err := voting.ParseAlgorithm(req.Algorithm)
	if err != nil {
		e.fail(p.ConnID, protocol.EventFailToCreateRoom, msgUnknownAlgo)
		return
	}

	r, prev := e.state.CreateRoom(p, username, alg)
	e.left(prev, p.ConnID)

	e.transport.Join(r.Code, p.ConnID)
	e.unicast(p.ConnID, protocol.EventRoomCreated, protocol.RoomRef{RoomCode: r.Code})
	e.broadcastPlayers(r)
	slog.Info("🏠 Room created", "room", r.Code, "host", p.ConnID, "algorithm", alg)
}

func (e *Engine) handleJoinRoom(p *player.Player, env protocol.Envelope) {
	var req protocol.JoinRoom
	if err := env.Bind(&req); err != nil {
		e.fail(p.ConnID, protocol.EventFailToJoinRoom, msgBadRequest)
		return
	}
	code := strings.TrimSpace(req.RoomCode)
	if r, err := e.state.Rooms.Get(code); err != nil || (!r.CanJoin && !r.Has(p.ConnID)) {
		e.fail(p.ConnID, protocol.EventFailToJoinRoom, msgInvalidRoomCode)
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		e.fail(p.ConnID, protocol.EventFailToJoinRoom, msgInvalidUsername)
		return
	}

	r, prev, err := e.state.JoinRoom(p, code, username)
	switch {
	case errors.Is(err, room.ErrRoomFull):
		e.fail(p.ConnID, protocol.EventFailToJoinRoom, msgRoomFull)
		return
	case err != nil:
		e.fail(p.ConnID, protocol.EventFailToJoinRoom, msgInvalidRoomCode)
		return
	}
	e.left(prev, p.ConnID)

	e.transport.Join(r.Code, p.ConnID)
	e.unicast(p.ConnID, protocol.EventSendToRoom, protocol.RoomRef{RoomCode: r.Code})
	e.broadcastPlayers(r)
	slog.Info("👋 Player joined", "room", r.Code, "conn", p.ConnID, "players", r.PlayerCount())
}

func (e *Engine) handleLeaveRoom(p *player.Player, env protocol.Envelope) {
	var req protocol.RoomRef
	if err := env.Bind(&req); err != nil {
		slog.Debug("bad leave_room", "conn", p.ConnID, "err", err)
		return
	}
	r, err := e.state.LeaveRoom(p, req.RoomCode)
	if err != nil {
		slog.Debug("leave_room ignored", "conn", p.ConnID, "room", req.RoomCode, "err", err)
		return
	}
	e.left(r, p.ConnID)
	slog.Info("🚪 Player left", "room", r.Code, "conn", p.ConnID, "players", r.PlayerCount())
}

func (e *Engine) handleGetPlayerList(p *player.Player, env protocol.Envelope) {
	var req protocol.RoomRef
	if err := env.Bind(&req); err != nil {
		slog.Debug("bad get_player_list", "conn", p.ConnID, "err", err)
		return
	}
	r, err := e.state.Rooms.Get(req.RoomCode)
	if err != nil {
		slog.Debug("get_player_list ignored", "conn", p.ConnID, "room", req.RoomCode, "err", err)
		return
	}
	e.broadcastPlayers(r)
}

// left tells r's remaining members that connID is gone and lets a pending
// barrier complete without it.
func (e *Engine) left(r *room.Room, connID string) {
	if r == nil {
		return
	}
	e.transport.Leave(r.Code, connID)
	e.broadcastPlayers(r)
	e.advance(r)
}
