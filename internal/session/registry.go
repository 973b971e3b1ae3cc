// internal/session/registry.go
package session

import (
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/crystal-clear/internal/models"
)

// Session binds a player identity to its current transport connection and
// lobby. ConnectionID is empty while the player is disconnected.
type Session struct {
	Player       models.Player
	ConnectionID string
	LobbyID      string
}

// Connected reports whether a transport connection is attached.
func (s Session) Connected() bool {
	return s.ConnectionID != ""
}

// Registry maps connections to players and players to connections. Both indexes
// are updated together under one lock so they never disagree.
//
// Lookups return copies; mutate through the Registry methods.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session // player id -> session
	byConn   map[string]string   // connection id -> player id

	newID func() string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		byConn:   make(map[string]string),
		newID:    uuid.NewString,
	}
}

// Profile is the client-supplied part of a player identity.
type Profile struct {
	Name            string
	IsGuest         bool
	ProfilePicIndex int
}

// Join mints a new player for connID.
func (r *Registry) Join(connID string, prof Profile) Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.joinLocked(connID, prof)
}

func (r *Registry) joinLocked(connID string, prof Profile) Session {
	r.detachConnLocked(connID)
	s := &Session{
		Player: models.Player{
			ID:              r.newID(),
			Name:            prof.Name,
			IsGuest:         prof.IsGuest,
			ProfilePicIndex: prof.ProfilePicIndex,
			Avatar:          models.AvatarColors[rand.IntN(len(models.AvatarColors))],
		},
		ConnectionID: connID,
	}
	r.sessions[s.Player.ID] = s
	r.byConn[connID] = s.Player.ID
	return *s
}

// Reconnect re-attaches a known playerID to connID, keeping its lobby and
// avatar; the profile's name and picture replace the stored ones when set. If
// playerID is unknown a fresh player is minted and restored is false.
func (r *Registry) Reconnect(connID, playerID string, prof Profile) (s Session, restored bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.sessions[playerID]
	if !ok {
		return r.joinLocked(connID, prof), false
	}
	r.detachConnLocked(connID)
	if existing.ConnectionID != "" {
		delete(r.byConn, existing.ConnectionID)
	}
	existing.ConnectionID = connID
	if prof.Name != "" {
		existing.Player.Name = prof.Name
	}
	existing.Player.ProfilePicIndex = prof.ProfilePicIndex
	r.byConn[connID] = playerID
	return *existing, true
}

// detachConnLocked unbinds connID from whatever player it pointed to, so one
// connection never serves two identities.
func (r *Registry) detachConnLocked(connID string) {
	pid, ok := r.byConn[connID]
	if !ok {
		return
	}
	delete(r.byConn, connID)
	if s, ok := r.sessions[pid]; ok && s.ConnectionID == connID {
		s.ConnectionID = ""
	}
}

// Lookup returns the session bound to connID.
func (r *Registry) Lookup(connID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pid, ok := r.byConn[connID]
	if !ok {
		return Session{}, false
	}
	s, ok := r.sessions[pid]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Get returns the session of playerID, connected or not.
func (r *Registry) Get(playerID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[playerID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// ConnectionFor returns the live connection of playerID.
func (r *Registry) ConnectionFor(playerID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[playerID]
	if !ok || s.ConnectionID == "" {
		return "", false
	}
	return s.ConnectionID, true
}

// SetLobby records the lobby playerID is in. An empty lobbyID clears it.
func (r *Registry) SetLobby(playerID, lobbyID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[playerID]; ok {
		s.LobbyID = lobbyID
	}
}

// Disconnect drops the mapping for connID. The player identity and its lobby
// are kept so a later Reconnect can resume. It returns the session as it was
// bound to connID.
func (r *Registry) Disconnect(connID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pid, ok := r.byConn[connID]
	if !ok {
		return Session{}, false
	}
	s := r.sessions[pid]
	r.detachConnLocked(connID)
	if s == nil {
		return Session{}, false
	}
	return *s, true
}

// Forget removes playerID entirely.
func (r *Registry) Forget(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[playerID]
	if !ok {
		return
	}
	if s.ConnectionID != "" && r.byConn[s.ConnectionID] == playerID {
		delete(r.byConn, s.ConnectionID)
	}
	delete(r.sessions, playerID)
}

// Len is the number of known players.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
