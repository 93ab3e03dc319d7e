package room

import "errors"

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomClosed   = errors.New("room is not accepting players")
	ErrRoomFull     = errors.New("room is full")
	ErrNotHost      = errors.New("only host can perform this action")
	ErrNotInRoom    = errors.New("player not in room")
	ErrBadPhase     = errors.New("action not allowed in current phase")
	ErrTransition   = errors.New("invalid phase transition")

	ErrBarrierClosed    = errors.New("barrier is not open")
	ErrNotExpected      = errors.New("submission not expected from this player")
	ErrAlreadySubmitted = errors.New("player already submitted")
	ErrInvalidOrdering  = errors.New("ordering is not a permutation of the ideas")
)
