// Package protocol defines the named events exchanged with clients and
// helpers for encoding/decoding them.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Client to server events.
const (
	EventCreateRoom    = "create_room"
	EventJoinRoom      = "attempt_join_room"
	EventLeaveRoom     = "leave_room"
	EventGetPlayerList = "get_player_list"
	EventStartWriting  = "start_writing"
	EventSubmitIdeas   = "submit_ideas"
	EventSubmitRank    = "submit_rank"
)

// Server to client events.
const (
	EventSession            = "session"
	EventRoomCreated        = "room_created"
	EventFailToCreateRoom   = "fail_to_create_room"
	EventSendToRoom         = "send_to_room"
	EventFailToJoinRoom     = "fail_to_join_room"
	EventFailToStartWriting = "fail_to_start_writing"
	EventFailToSubmit       = "fail_to_submit"
	EventUpdatePlayerList   = "update_player_list"
	EventOpenWriteScreen    = "open_write_screen"
	EventUpdateTimer        = "update_timer"
	EventRequestIdeas       = "request_ideas"
	EventOpenRankScreen     = "open_rank_screen"
	EventOpenResultsScreen  = "open_results_screen"
)

// Envelope is one named event with its payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope wraps payload under event.
func NewEnvelope(event string, payload any) (Envelope, error) {
	if payload == nil {
		return Envelope{Event: event}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s: %w", event, err)
	}
	return Envelope{Event: event, Data: data}, nil
}

// Bind decodes the payload into dst.
func (e Envelope) Bind(dst any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%s: empty payload", e.Event)
	}
	if err := json.Unmarshal(e.Data, dst); err != nil {
		return fmt.Errorf("%s: %w", e.Event, err)
	}
	return nil
}

// --- client payloads ---

type CreateRoom struct {
	Username  string `json:"username"`
	Algorithm string `json:"algorithm,omitempty"`
}

type JoinRoom struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
}

// RoomRef is the payload of events that only name a room.
type RoomRef struct {
	RoomCode string `json:"roomCode"`
}

type SubmitIdeas struct {
	RoomCode string   `json:"roomCode"`
	Ideas    []string `json:"ideas"`
}

type SubmitRank struct {
	RoomCode string   `json:"roomCode"`
	Ordering []string `json:"ordering"`
}

// --- server payloads ---

type Session struct {
	SessionToken string `json:"sessionToken"`
}

// Failure carries a human-readable reason to the caller only.
type Failure struct {
	Message string `json:"message"`
}

type Timer struct {
	SecondsRemaining int `json:"secondsRemaining"`
}

type RankScreen struct {
	RoomCode string   `json:"roomCode"`
	Ideas    []string `json:"ideas"`
}

type ResultsScreen struct {
	RoomCode   string         `json:"roomCode"`
	PointsDict map[string]int `json:"pointsDict"`
	RankDict   map[string]int `json:"rankDict"`
}
