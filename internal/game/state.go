// Package game implements the authoritative game engine: one goroutine that
// owns every player, session and room, and turns client events and timer
// ticks into state changes and outbound events.
package game

import (
	"time"

	"github.com/LemmyAI/ideaparty/internal/player"
	"github.com/LemmyAI/ideaparty/internal/room"
	"github.com/LemmyAI/ideaparty/internal/session"
	"github.com/LemmyAI/ideaparty/internal/voting"
)

// State is everything the engine owns. Its methods keep the player
// directory, the session store and room membership in agreement; none of
// them send anything.
type State struct {
	Sessions *session.Store
	Players  *player.Directory
	Rooms    *room.Registry
}

// NewState creates empty state. now stamps room activity; nil means
// time.Now.
func NewState(config room.Config, now func() time.Time) *State {
	return &State{
		Sessions: session.NewStore(),
		Players:  player.NewDirectory(),
		Rooms:    room.NewRegistry(config, now),
	}
}

// Connect registers connID. A token bound to another connection reattaches
// that player to connID and returns the old connection id. Otherwise a new
// identity is minted.
func (s *State) Connect(connID, token string, now time.Time) (p *player.Player, oldConn string) {
	if prev, ok := s.Sessions.Lookup(token); ok && token != "" {
		if prev == connID {
			if p, ok := s.Players.Get(connID); ok {
				return p, ""
			}
		} else if p, ok := s.Players.Move(prev, connID); ok {
			s.Sessions.Rebind(token, connID)
			if p.InRoom() {
				if r, err := s.Rooms.Get(p.RoomCode); err == nil {
					_ = r.ReplaceMember(prev, connID)
				}
			}
			return p, prev
		}
	}

	token = s.Sessions.Mint(connID)
	return s.Players.Add(connID, token, now), ""
}

// CreateRoom opens a room with p as host, leaving p's previous room first.
// The previous room, if any, is returned so its members can be told.
func (s *State) CreateRoom(p *player.Player, username string, alg voting.Algorithm) (r, prev *room.Room) {
	prev, _ = s.leaveCurrent(p)

	r = s.Rooms.Create(p.ConnID, alg)
	p.Username = username
	p.RoomCode = r.Code
	return r, prev
}

// JoinRoom moves p into the room with code. On failure p stays where it
// was. Joining the room p is already in only updates the username.
func (s *State) JoinRoom(p *player.Player, code, username string) (r, prev *room.Room, err error) {
	if p.RoomCode == code {
		r, err = s.Rooms.Get(code)
		if err != nil {
			return nil, nil, err
		}
		p.Username = username
		return r, nil, nil
	}

	r, err = s.Rooms.Join(code, p.ConnID)
	if err != nil {
		return nil, nil, err
	}
	prev, _ = s.leaveCurrent(p)

	p.Username = username
	p.RoomCode = r.Code
	return r, prev, nil
}

// LeaveRoom takes p out of the room with code.
func (s *State) LeaveRoom(p *player.Player, code string) (*room.Room, error) {
	if p.RoomCode != code {
		return nil, room.ErrNotInRoom
	}
	return s.leaveCurrent(p)
}

// Remove forgets connID entirely: its room membership, player record and
// session. The room it was in, if any, is returned.
func (s *State) Remove(connID string) *room.Room {
	p, ok := s.Players.Get(connID)
	if !ok {
		return nil
	}
	r, _ := s.leaveCurrent(p)
	s.Players.Remove(connID)
	s.Sessions.Delete(p.Session)
	return r
}

// Members returns the usernames of r's members in join order.
func (s *State) Members(r *room.Room) []string {
	return s.Players.Usernames(r.Members)
}

// leaveCurrent takes p out of its room. Host hand-off happens in the room.
func (s *State) leaveCurrent(p *player.Player) (*room.Room, error) {
	if !p.InRoom() {
		return nil, room.ErrNotInRoom
	}
	code := p.RoomCode
	p.RoomCode = ""

	r, _, err := s.Rooms.Leave(code, p.ConnID)
	if err != nil {
		return nil, err
	}
	return r, nil
}
