// Package room holds the room registry and each room's lifecycle:
// membership, phase, collected ideas and rankings, and the two response
// barriers. Nothing here is safe for concurrent use; the game loop owns it.
package room

import (
	"strconv"
	"strings"
	"time"

	"github.com/LemmyAI/ideaparty/internal/schedule"
	"github.com/LemmyAI/ideaparty/internal/voting"
)

// Config for room settings
type Config struct {
	MaxPlayers    int           `yaml:"max_players"`
	FirstCode     int           `yaml:"first_code"`
	RoomTTL       time.Duration `yaml:"ttl"`            // Time before an empty room is reclaimed, 0 disables
	CleanupPeriod time.Duration `yaml:"cleanup_period"` // How often to check for expired rooms
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxPlayers:    8,
		FirstCode:     1000,
		RoomTTL:       5 * time.Minute,
		CleanupPeriod: 30 * time.Second,
	}
}

// Room represents one play-through
type Room struct {
	Code      string
	Phase     Phase
	Members   []string // connection ids, join order
	HostID    string
	CanJoin   bool
	Algorithm voting.Algorithm
	CreatedAt time.Time

	Ideas    []string
	Rankings []voting.Ballot

	RankResult   map[string]int
	PointsResult map[string]int

	TimeRemaining int

	ideaBarrier  *Barrier
	rankBarrier  *Barrier
	timer        schedule.Task
	lastActivity time.Time
	maxPlayers   int
}

// Has reports whether connID is a member.
func (room *Room) Has(connID string) bool {
	return room.indexOf(connID) >= 0
}

func (room *Room) indexOf(connID string) int {
	for i, id := range room.Members {
		if id == connID {
			return i
		}
	}
	return -1
}

// Join adds a player to the room
func (room *Room) Join(connID string, now time.Time) error {
	// If player already in room, nothing to do
	if room.Has(connID) {
		return nil
	}
	if !room.CanJoin {
		return ErrRoomClosed
	}
	if room.maxPlayers > 0 && len(room.Members) >= room.maxPlayers {
		return ErrRoomFull
	}

	// First player is host
	if len(room.Members) == 0 {
		room.HostID = connID
	}
	room.Members = append(room.Members, connID)
	room.lastActivity = now
	return nil
}

// Leave removes a player from the room. If the host left, the earliest
// remaining member becomes host and is returned.
func (room *Room) Leave(connID string, now time.Time) (newHost string, err error) {
	i := room.indexOf(connID)
	if i < 0 {
		return "", ErrNotInRoom
	}
	room.Members = append(room.Members[:i:i], room.Members[i+1:]...)
	room.lastActivity = now

	if room.ideaBarrier != nil {
		room.ideaBarrier.Drop(connID)
	}
	if room.rankBarrier != nil {
		room.rankBarrier.Drop(connID)
	}

	if connID == room.HostID {
		room.HostID = ""
		if len(room.Members) > 0 {
			room.HostID = room.Members[0]
			return room.HostID, nil
		}
	}
	return "", nil
}

// ReplaceMember swaps oldID for newID in place, keeping join order, host
// and barrier slots.
func (room *Room) ReplaceMember(oldID, newID string) error {
	i := room.indexOf(oldID)
	if i < 0 {
		return ErrNotInRoom
	}
	room.Members[i] = newID
	if room.HostID == oldID {
		room.HostID = newID
	}
	if room.ideaBarrier != nil {
		room.ideaBarrier.Rename(oldID, newID)
	}
	if room.rankBarrier != nil {
		room.rankBarrier.Rename(oldID, newID)
	}
	return nil
}

// PlayerCount returns the number of players in the room
func (room *Room) PlayerCount() int {
	return len(room.Members)
}

// IsEmpty returns true if the room has no players
func (room *Room) IsEmpty() bool {
	return len(room.Members) == 0
}

// IsExpired returns true if the room has been empty longer than ttl
func (room *Room) IsExpired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 || !room.IsEmpty() {
		return false
	}
	return now.Sub(room.lastActivity) > ttl
}

// Advance moves the room to target, which must directly follow the current
// phase.
func (room *Room) Advance(target Phase) error {
	if !room.Phase.CanTransitionTo(target) {
		return ErrTransition
	}
	room.Phase = target
	return nil
}

// StartWriting closes the room to joins and starts a countdown of ticks.
func (room *Room) StartWriting(byConn string, ticks int) error {
	if !room.Has(byConn) {
		return ErrNotInRoom
	}
	if room.HostID != byConn {
		return ErrNotHost
	}
	if err := room.Advance(PhaseWriting); err != nil {
		return ErrBadPhase
	}
	room.CanJoin = false
	room.TimeRemaining = ticks
	return nil
}

// SetTimer attaches the countdown task, stopping any previous one.
func (room *Room) SetTimer(task schedule.Task) {
	room.StopTimer()
	room.timer = task
}

// StopTimer cancels the countdown. Safe to call any number of times.
func (room *Room) StopTimer() {
	if room.timer != nil {
		room.timer.Stop()
		room.timer = nil
	}
}

// Counting reports whether the writing countdown is running.
func (room *Room) Counting() bool {
	return room.Phase == PhaseWriting && room.timer != nil
}

// Tick consumes one countdown tick and returns the time left.
func (room *Room) Tick() (int, error) {
	if !room.Counting() || room.TimeRemaining <= 0 {
		return 0, ErrBadPhase
	}
	room.TimeRemaining--
	return room.TimeRemaining, nil
}

// OpenBarriers snapshots the current members as the expected responders
// for both the idea and the rank barrier.
func (room *Room) OpenBarriers() {
	room.ideaBarrier = NewBarrier(room.Members)
	room.rankBarrier = NewBarrier(room.Members)
}

// IdeaBarrier returns the idea barrier, nil until opened.
func (room *Room) IdeaBarrier() *Barrier {
	return room.ideaBarrier
}

// RankBarrier returns the rank barrier, nil until opened.
func (room *Room) RankBarrier() *Barrier {
	return room.rankBarrier
}

// SubmitIdeas records connID's batch. Ideas are trimmed; blank ones and
// ones already in the room are dropped. It returns the ideas actually added.
func (room *Room) SubmitIdeas(connID string, ideas []string) ([]string, error) {
	if room.Phase != PhaseWriting || room.ideaBarrier == nil {
		return nil, ErrBadPhase
	}
	if err := room.ideaBarrier.Submit(connID); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(room.Ideas)+len(ideas))
	for _, idea := range room.Ideas {
		seen[idea] = true
	}
	added := make([]string, 0, len(ideas))
	for _, idea := range ideas {
		idea = strings.TrimSpace(idea)
		if idea == "" || seen[idea] {
			continue
		}
		seen[idea] = true
		added = append(added, idea)
	}
	room.Ideas = append(room.Ideas, added...)
	return added, nil
}

// SubmitRanking records connID's ordering, which must be a permutation of
// the room's ideas.
func (room *Room) SubmitRanking(connID string, ordering []string) error {
	if room.Phase != PhaseRanking || room.rankBarrier == nil {
		return ErrBadPhase
	}
	if !isPermutation(room.Ideas, ordering) {
		return ErrInvalidOrdering
	}
	if err := room.rankBarrier.Submit(connID); err != nil {
		return err
	}
	ballot := make(voting.Ballot, len(ordering))
	copy(ballot, ordering)
	room.Rankings = append(room.Rankings, ballot)
	return nil
}

// SetResults stores the tally.
func (room *Room) SetResults(res voting.Result) {
	room.RankResult = res.Ranks
	room.PointsResult = res.Points
}

func isPermutation(ideas, ordering []string) bool {
	if len(ideas) != len(ordering) {
		return false
	}
	want := make(map[string]int, len(ideas))
	for _, idea := range ideas {
		want[idea]++
	}
	for _, idea := range ordering {
		if want[idea] == 0 {
			return false
		}
		want[idea]--
	}
	return true
}

// Registry manages all rooms
type Registry struct {
	rooms  map[string]*Room
	config Config
	next   int
	now    func() time.Time
}

// NewRegistry creates a new room registry. now supplies activity
// timestamps; nil means time.Now.
func NewRegistry(config Config, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		rooms:  make(map[string]*Room),
		config: config,
		next:   config.FirstCode,
		now:    now,
	}
}

// Create opens a new room in the lobby with connID as sole member and host.
// Codes come from a counter and are never reused.
func (r *Registry) Create(connID string, alg voting.Algorithm) *Room {
	code := strconv.Itoa(r.next)
	r.next++

	now := r.now()
	room := &Room{
		Code:         code,
		Phase:        PhaseLobby,
		CanJoin:      true,
		Algorithm:    alg,
		CreatedAt:    now,
		lastActivity: now,
		maxPlayers:   r.config.MaxPlayers,
	}
	_ = room.Join(connID, now)
	r.rooms[code] = room
	return room
}

// Get retrieves a room by code
func (r *Registry) Get(code string) (*Room, error) {
	room, ok := r.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// Join adds a player to a room.
func (r *Registry) Join(code, connID string) (*Room, error) {
	room, err := r.Get(code)
	if err != nil {
		return nil, err
	}
	if err := room.Join(connID, r.now()); err != nil {
		return nil, err
	}
	return room, nil
}

// Leave removes a player from a room and returns the room and the new host,
// if the host changed.
func (r *Registry) Leave(code, connID string) (*Room, string, error) {
	room, err := r.Get(code)
	if err != nil {
		return nil, "", err
	}
	newHost, err := room.Leave(connID, r.now())
	if err != nil {
		return nil, "", err
	}
	return room, newHost, nil
}

// Delete removes a room from the registry and cancels its countdown
func (r *Registry) Delete(code string) {
	if room, ok := r.rooms[code]; ok {
		room.StopTimer()
		delete(r.rooms, code)
	}
}

// Sweep deletes and returns every room that has been empty longer than the
// configured TTL.
func (r *Registry) Sweep() []*Room {
	now := r.now()
	var expired []*Room
	for code, room := range r.rooms {
		if room.IsExpired(now, r.config.RoomTTL) {
			room.StopTimer()
			delete(r.rooms, code)
			expired = append(expired, room)
		}
	}
	return expired
}

// AllRooms returns all active rooms (for debugging/admin)
func (r *Registry) AllRooms() []*Room {
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// Count returns the total number of rooms
func (r *Registry) Count() int {
	return len(r.rooms)
}
