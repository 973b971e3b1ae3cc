// internal/lobby/lobby_store.go
package lobby

import (
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
)

// maxCodeAttempts bounds the unique-code loop. With a 32^6 code space it is never
// reached in practice.
const maxCodeAttempts = 100

// LobbyStore indexes live lobbies by id and by join code. It guards only the
// indexes; a lobby's own state is guarded by its Mu.
type LobbyStore struct {
	mu      sync.RWMutex
	lobbies map[string]*Lobby
	codes   map[string]string // code -> lobby id

	// genCode is swappable in tests.
	genCode func() string
}

// NewLobbyStore initializes and returns an empty LobbyStore.
func NewLobbyStore() *LobbyStore {
	return &LobbyStore{
		lobbies: make(map[string]*Lobby),
		codes:   make(map[string]string),
		genCode: GenerateCode,
	}
}

// Add assigns the lobby a join code unused by any live lobby and indexes it.
func (s *LobbyStore) Add(l *Lobby) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.lobbies[l.ID]; exists {
		log.Warnf("LobbyStore: attempted to add lobby %s which already exists", l.ID)
		return
	}
	code := s.genCode()
	for i := 0; i < maxCodeAttempts; i++ {
		if _, taken := s.codes[code]; !taken {
			break
		}
		code = s.genCode()
	}
	l.Code = code
	s.lobbies[l.ID] = l
	s.codes[code] = l.ID
	log.Debugf("LobbyStore: added lobby %s (code %s)", l.ID, code)
}

// Delete removes a lobby from both indexes.
func (s *LobbyStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, exists := s.lobbies[id]
	if !exists {
		log.Warnf("LobbyStore: attempted to delete non-existent lobby %s", id)
		return
	}
	delete(s.lobbies, id)
	if s.codes[l.Code] == id {
		delete(s.codes, l.Code)
	}
	log.Debugf("LobbyStore: deleted lobby %s", id)
}

// Get retrieves a lobby by id.
func (s *LobbyStore) Get(id string) (*Lobby, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lobbies[id]
	return l, ok
}

// GetByCode retrieves a lobby by join code, case-insensitively.
func (s *LobbyStore) GetByCode(code string) (*Lobby, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.codes[NormalizeCode(code)]
	if !ok {
		return nil, false
	}
	l, ok := s.lobbies[id]
	return l, ok
}

// All returns a snapshot of the live lobbies, oldest first.
func (s *LobbyStore) All() []*Lobby {
	s.mu.RLock()
	out := make([]*Lobby, 0, len(s.lobbies))
	for _, l := range s.lobbies {
		out = append(out, l)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len is the number of live lobbies.
func (s *LobbyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lobbies)
}
