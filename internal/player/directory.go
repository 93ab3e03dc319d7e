// Package player keeps the per-connection player records.
package player

import "time"

// Player is what the server knows about one connection.
type Player struct {
	ConnID      string
	Session     string
	Username    string
	RoomCode    string // empty when not in a room
	ConnectedAt time.Time
}

// InRoom reports whether the player currently belongs to a room.
func (p *Player) InRoom() bool {
	return p.RoomCode != ""
}

// Directory indexes players by connection id. It is not safe for concurrent
// use; the game loop owns it.
type Directory struct {
	players map[string]*Player
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{players: make(map[string]*Player)}
}

// Add creates the record for a freshly connected client. An existing record
// for connID is returned unchanged.
func (d *Directory) Add(connID, session string, now time.Time) *Player {
	if p, ok := d.players[connID]; ok {
		return p
	}
	p := &Player{
		ConnID:      connID,
		Session:     session,
		ConnectedAt: now,
	}
	d.players[connID] = p
	return p
}

// Get returns the player for connID.
func (d *Directory) Get(connID string) (*Player, bool) {
	p, ok := d.players[connID]
	return p, ok
}

// Move re-keys the record from oldConn to newConn, keeping username and
// room. It reports false if oldConn is unknown.
func (d *Directory) Move(oldConn, newConn string) (*Player, bool) {
	p, ok := d.players[oldConn]
	if !ok {
		return nil, false
	}
	delete(d.players, oldConn)
	p.ConnID = newConn
	d.players[newConn] = p
	return p, true
}

// Remove deletes the record for connID.
func (d *Directory) Remove(connID string) {
	delete(d.players, connID)
}

// Usernames resolves connection ids to usernames, preserving order.
// Unknown ids are skipped.
func (d *Directory) Usernames(connIDs []string) []string {
	names := make([]string, 0, len(connIDs))
	for _, id := range connIDs {
		if p, ok := d.players[id]; ok {
			names = append(names, p.Username)
		}
	}
	return names
}

// Count returns the number of known players.
func (d *Directory) Count() int {
	return len(d.players)
}
