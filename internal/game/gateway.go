package game

import (
	"log/slog"
	"time"

	"github.com/LemmyAI/ideaparty/internal/player"
	"github.com/LemmyAI/ideaparty/internal/protocol"
)

type eventHandler func(e *Engine, p *player.Player, env protocol.Envelope)

var handlers = map[string]eventHandler{
	protocol.EventCreateRoom:    (*Engine).handleCreateRoom,
	protocol.EventJoinRoom:      (*Engine).handleJoinRoom,
	protocol.EventLeaveRoom:     (*Engine).handleLeaveRoom,
	protocol.EventGetPlayerList: (*Engine).handleGetPlayerList,
	protocol.EventStartWriting:  (*Engine).handleStartWriting,
	protocol.EventSubmitIdeas:   (*Engine).handleSubmitIdeas,
	protocol.EventSubmitRank:    (*Engine).handleSubmitRank,
}

func (e *Engine) handleConnect(connID, token string) {
	p, oldConn := e.state.Connect(connID, token, e.sched.Now())
	if oldConn == "" {
		e.unicast(connID, protocol.EventSession, protocol.Session{SessionToken: p.Session})
		slog.Info("✅ Player connected", "conn", connID)
		return
	}

	if t, ok := e.grace[oldConn]; ok {
		t.Stop()
		delete(e.grace, oldConn)
	}
	if p.InRoom() {
		// The old socket may still be open (a second tab); it no longer
		// speaks for this player.
		e.transport.Leave(p.RoomCode, oldConn)
		e.transport.Join(p.RoomCode, connID)
		if r, err := e.state.Rooms.Get(p.RoomCode); err == nil {
			e.unicast(connID, protocol.EventUpdatePlayerList, e.state.Members(r))
		}
	}
	slog.Info("🔁 Player reconnected", "conn", connID, "was", oldConn, "room", p.RoomCode)
}

// handleDisconnect gives the player a grace period to come back on a new
// connection before removing them.
func (e *Engine) handleDisconnect(connID string) {
	token, ok := e.state.Sessions.TokenFor(connID)
	if !ok {
		return
	}
	e.grace[connID] = e.sched.After(e.config.DisconnectGrace, func() {
		e.post(func() { e.expire(token, connID) })
	})
	slog.Debug("player disconnected", "conn", connID)
}

// expire removes the player unless the session has moved on since the
// disconnect.
func (e *Engine) expire(token, connID string) {
	delete(e.grace, connID)
	current, ok := e.state.Sessions.Lookup(token)
	if !ok || current != connID {
		return
	}
	e.removePlayer(connID)
}

func (e *Engine) removePlayer(connID string) {
	var online time.Duration
	if p, ok := e.state.Players.Get(connID); ok {
		online = e.sched.Now().Sub(p.ConnectedAt)
	}
	e.left(e.state.Remove(connID), connID)
	slog.Info("❎ Player removed", "conn", connID, "online", online)
}

func (e *Engine) handleMessage(connID string, env protocol.Envelope) {
	handle, ok := handlers[env.Event]
	if !ok {
		slog.Debug("unknown event", "conn", connID, "event", env.Event)
		return
	}
	p, ok := e.state.Players.Get(connID)
	if !ok {
		slog.Debug("event from unknown connection", "conn", connID, "event", env.Event)
		return
	}
	handle(e, p, env)
}
