// internal/lobby/lobby_store.go
package lobby

import (
	"sync"

	"github.com/google/uuid"
)

// Store keeps active lobbies in memory.
type Store struct {
	mu      sync.Mutex
	lobbies map[uuid.UUID]*Lobby
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{lobbies: make(map[uuid.UUID]*Lobby)}
}

// Add registers a lobby. Set the lobby's OnEmpty callback before
// adding it so it cleans itself up when the last user leaves.
func (s *Store) Add(l *Lobby) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.lobbies[l.ID]; exists {
		return
	}
	s.lobbies[l.ID] = l
}

// Delete removes a lobby by ID.
func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lobbies, id)
}

// Get fetches a lobby by ID.
func (s *Store) Get(id uuid.UUID) (*Lobby, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lobbies[id]
	return l, ok
}

// List returns a snapshot of all active lobbies.
func (s *Store) List() map[uuid.UUID]*Lobby {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uuid.UUID]*Lobby, len(s.lobbies))
	for k, v := range s.lobbies {
		out[k] = v
	}
	return out
}
