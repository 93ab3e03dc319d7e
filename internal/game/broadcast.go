package game

import (
	"log/slog"

	"github.com/LemmyAI/ideaparty/internal/protocol"
	"github.com/LemmyAI/ideaparty/internal/room"
)

// broadcast sends an event to every connection in the room's channel.
func (e *Engine) broadcast(code, event string, payload any) {
	env, err := protocol.NewEnvelope(event, payload)
	if err != nil {
		slog.Error("encode failed", "event", event, "err", err)
		return
	}
	if err := e.transport.Broadcast(code, env); err != nil {
		slog.Warn("broadcast failed", "room", code, "event", event, "err", err)
	}
}

// unicast sends an event to one connection.
func (e *Engine) unicast(connID, event string, payload any) {
	env, err := protocol.NewEnvelope(event, payload)
	if err != nil {
		slog.Error("encode failed", "event", event, "err", err)
		return
	}
	if err := e.transport.Unicast(connID, env); err != nil {
		slog.Debug("unicast failed", "conn", connID, "event", event, "err", err)
	}
}

// fail reports a rejected request to its sender only.
func (e *Engine) fail(connID, event, message string) {
	e.unicast(connID, event, protocol.Failure{Message: message})
}

// broadcastPlayers sends the room's current usernames to its members.
func (e *Engine) broadcastPlayers(r *room.Room) {
	e.broadcast(r.Code, protocol.EventUpdatePlayerList, e.state.Members(r))
}
