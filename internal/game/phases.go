package game

import (
	"errors"
	"log/slog"

	"github.com/LemmyAI/ideaparty/internal/player"
	"github.com/LemmyAI/ideaparty/internal/protocol"
	"github.com/LemmyAI/ideaparty/internal/room"
	"github.com/LemmyAI/ideaparty/internal/voting"
)

func (e *Engine) handleStartWriting(p *player.Player, env protocol.Envelope) {
	var req protocol.RoomRef
	if err := env.Bind(&req); err != nil {
		e.fail(p.ConnID, protocol.EventFailToStartWriting, msgBadRequest)
		return
	}
	r, err := e.state.Rooms.Get(req.RoomCode)
	if err != nil {
		e.fail(p.ConnID, protocol.EventFailToStartWriting, msgInvalidRoomCode)
		return
	}

	if err := r.StartWriting(p.ConnID, e.config.WritingTicks); err != nil {
		switch {
		case errors.Is(err, room.ErrNotInRoom):
			e.fail(p.ConnID, protocol.EventFailToStartWriting, msgNotInRoom)
		case errors.Is(err, room.ErrNotHost):
			e.fail(p.ConnID, protocol.EventFailToStartWriting, msgNotHost)
		default:
			e.fail(p.ConnID, protocol.EventFailToStartWriting, msgAlreadyStarted)
		}
		return
	}

	code := r.Code
	e.broadcast(code, protocol.EventOpenWriteScreen, protocol.RoomRef{RoomCode: code})
	r.SetTimer(e.sched.Every(e.config.TickInterval, func() {
		e.post(func() { e.tickCountdown(code) })
	}))
	slog.Info("✍️ Writing started", "room", code, "players", r.PlayerCount(), "ticks", r.TimeRemaining)
}

// tickCountdown runs once per tick interval while a room is writing. Ticks
// for rooms that are gone or already past the countdown do nothing.
func (e *Engine) tickCountdown(code string) {
	r, err := e.state.Rooms.Get(code)
	if err != nil {
		return
	}
	left, err := r.Tick()
	if err != nil {
		slog.Debug("stale tick", "room", code, "phase", r.Phase)
		return
	}
	e.broadcast(code, protocol.EventUpdateTimer, protocol.Timer{SecondsRemaining: left})
	if left > 0 {
		return
	}

	r.StopTimer()
	r.OpenBarriers()
	e.broadcast(code, protocol.EventRequestIdeas, protocol.RoomRef{RoomCode: code})
	slog.Info("⏰ Ideas requested", "room", code, "expected", r.IdeaBarrier().Remaining())
	e.advance(r)
}

func (e *Engine) handleSubmitIdeas(p *player.Player, env protocol.Envelope) {
	var req protocol.SubmitIdeas
	if err := env.Bind(&req); err != nil {
		e.fail(p.ConnID, protocol.EventFailToSubmit, msgBadRequest)
		return
	}
	r, ok := e.memberRoom(p, req.RoomCode)
	if !ok {
		return
	}
	added, err := r.SubmitIdeas(p.ConnID, req.Ideas)
	if err != nil {
		e.fail(p.ConnID, protocol.EventFailToSubmit, err.Error())
		return
	}
	slog.Debug("ideas submitted", "room", r.Code, "conn", p.ConnID, "added", len(added),
		"remaining", r.IdeaBarrier().Remaining())
	e.advance(r)
}

func (e *Engine) handleSubmitRank(p *player.Player, env protocol.Envelope) {
	var req protocol.SubmitRank
	if err := env.Bind(&req); err != nil {
		e.fail(p.ConnID, protocol.EventFailToSubmit, msgBadRequest)
		return
	}
	r, ok := e.memberRoom(p, req.RoomCode)
	if !ok {
		return
	}
	if err := r.SubmitRanking(p.ConnID, req.Ordering); err != nil {
		e.fail(p.ConnID, protocol.EventFailToSubmit, err.Error())
		return
	}
	slog.Debug("ranking submitted", "room", r.Code, "conn", p.ConnID,
		"remaining", r.RankBarrier().Remaining())
	e.advance(r)
}

// memberRoom resolves code to a room p belongs to, reporting failure to p.
func (e *Engine) memberRoom(p *player.Player, code string) (*room.Room, bool) {
	r, err := e.state.Rooms.Get(code)
	if err != nil {
		e.fail(p.ConnID, protocol.EventFailToSubmit, msgInvalidRoomCode)
		return nil, false
	}
	if !r.Has(p.ConnID) {
		e.fail(p.ConnID, protocol.EventFailToSubmit, msgNotInRoom)
		return nil, false
	}
	return r, true
}

// advance moves r past any barrier that has just completed. It is called
// after every submission and every departure.
func (e *Engine) advance(r *room.Room) {
	if r.Phase == room.PhaseWriting {
		if b := r.IdeaBarrier(); b != nil && b.Release() {
			e.finishIdeas(r)
		}
	}
	if r.Phase == room.PhaseRanking {
		if b := r.RankBarrier(); b != nil && b.Release() {
			e.finishRanking(r)
		}
	}
}

func (e *Engine) finishIdeas(r *room.Room) {
	if err := r.Advance(room.PhaseRanking); err != nil {
		slog.Error("phase change failed", "room", r.Code, "err", err)
		return
	}
	ideas := append([]string{}, r.Ideas...)
	e.broadcast(r.Code, protocol.EventOpenRankScreen, protocol.RankScreen{RoomCode: r.Code, Ideas: ideas})
	slog.Info("🗳️ Ranking started", "room", r.Code, "ideas", len(ideas))
}

func (e *Engine) finishRanking(r *room.Room) {
	res, err := voting.Tally(r.Algorithm, r.Ideas, r.Rankings)
	if err != nil {
		slog.Error("tally failed", "room", r.Code, "algorithm", r.Algorithm, "err", err)
		return
	}
	if err := r.Advance(room.PhaseResults); err != nil {
		slog.Error("phase change failed", "room", r.Code, "err", err)
		return
	}
	r.SetResults(res)
	e.broadcast(r.Code, protocol.EventOpenResultsScreen, protocol.ResultsScreen{
		RoomCode:   r.Code,
		PointsDict: res.Points,
		RankDict:   res.Ranks,
	})
	slog.Info("🏆 Results ready", "room", r.Code, "ballots", len(r.Rankings), "locked", len(res.Locked))
}
