// Package session maps durable client-held tokens to the connection
// currently speaking for them. A token survives reconnects; the connection
// id does not.
package session

import (
	"github.com/google/uuid"
)

// Store is the identity store. It is not safe for concurrent use; the game
// loop owns it.
type Store struct {
	byToken map[string]string
	byConn  map[string]string
	newID   func() string
}

// NewStore creates an empty store minting uuid tokens.
func NewStore() *Store {
	return &Store{
		byToken: make(map[string]string),
		byConn:  make(map[string]string),
		newID:   uuid.NewString,
	}
}

// Mint issues a new token bound to connID.
func (s *Store) Mint(connID string) string {
	token := s.newID()
	for _, taken := s.byToken[token]; taken; _, taken = s.byToken[token] {
		token = s.newID()
	}
	s.bind(token, connID)
	return token
}

// Lookup returns the connection currently bound to token.
func (s *Store) Lookup(token string) (string, bool) {
	connID, ok := s.byToken[token]
	return connID, ok
}

// TokenFor returns the token bound to connID.
func (s *Store) TokenFor(connID string) (string, bool) {
	token, ok := s.byConn[connID]
	return token, ok
}

// Rebind moves token to newConn and forgets the old connection.
// It reports false if the token is unknown.
func (s *Store) Rebind(token, newConn string) bool {
	old, ok := s.byToken[token]
	if !ok {
		return false
	}
	delete(s.byConn, old)
	s.bind(token, newConn)
	return true
}

// Delete forgets token and its connection.
func (s *Store) Delete(token string) {
	if connID, ok := s.byToken[token]; ok {
		delete(s.byConn, connID)
	}
	delete(s.byToken, token)
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	return len(s.byToken)
}

func (s *Store) bind(token, connID string) {
	if prev, ok := s.byConn[connID]; ok && prev != token {
		delete(s.byToken, prev)
	}
	s.byToken[token] = connID
	s.byConn[connID] = token
}
