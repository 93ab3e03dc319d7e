package room

// Phase is where a room is in its single play-through.
type Phase string

const (
	PhaseLobby   Phase = "LOBBY"   // open for joins
	PhaseWriting Phase = "WRITING" // countdown, then idea collection
	PhaseRanking Phase = "RANKING" // collecting orderings
	PhaseResults Phase = "RESULTS" // terminal
)

var nextPhase = map[Phase]Phase{
	PhaseLobby:   PhaseWriting,
	PhaseWriting: PhaseRanking,
	PhaseRanking: PhaseResults,
}

// String returns the phase name.
func (p Phase) String() string {
	return string(p)
}

// CanTransitionTo reports whether target directly follows p.
// Phases only move forward, one step at a time.
func (p Phase) CanTransitionTo(target Phase) bool {
	next, ok := nextPhase[p]
	return ok && next == target
}
