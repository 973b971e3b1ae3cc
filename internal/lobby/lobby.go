// internal/lobby/lobby.go
package lobby

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/crystal-clear/internal/apperr"
	"github.com/jason-s-yu/crystal-clear/internal/auth"
	"github.com/jason-s-yu/crystal-clear/internal/game"
	"github.com/jason-s-yu/crystal-clear/internal/models"
)

const (
	// MinCapacity and MaxCapacity bound a lobby's maxPlayers.
	MinCapacity = 2
	MaxCapacity = 10
)

// Lobby is a named room players gather in before and between games. It holds at
// most one RoundState.
//
// Mu serializes everything that touches the lobby or its game: member changes,
// player actions and timer commands alike. Methods assume it is held.
type Lobby struct {
	ID         string
	Code       string
	Name       string
	HostID     string
	MaxPlayers int
	MinPlayers int
	CreatedAt  time.Time

	// Members is the ordered membership list. The first member inherits the host
	// role when the host leaves.
	Members []models.Player

	// Words overrides the built-in word table when the host uploaded one.
	Words game.WordSource

	// Game is the active round state, nil while the lobby is waiting.
	Game *game.RoundState

	passwordHash string
	closed       bool

	Mu sync.Mutex
}

// ClampCapacity forces maxPlayers into [MinCapacity, MaxCapacity]. Zero means
// the maximum.
func ClampCapacity(maxPlayers int) int {
	if maxPlayers == 0 {
		return MaxCapacity
	}
	return min(max(maxPlayers, MinCapacity), MaxCapacity)
}

// New creates a lobby with host as its only member. A non-empty password makes it
// private; only its argon2id hash is kept.
func New(name string, host models.Player, maxPlayers, minPlayers int, password string) (*Lobby, error) {
	l := &Lobby{
		ID:         uuid.NewString(),
		Name:       name,
		HostID:     host.ID,
		MaxPlayers: ClampCapacity(maxPlayers),
		MinPlayers: minPlayers,
		CreatedAt:  time.Now(),
		Members:    []models.Player{host},
	}
	if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("hashing lobby password: %w", err)
		}
		l.passwordHash = hash
	}
	return l, nil
}

// IsPrivate reports whether joining needs a password.
func (l *Lobby) IsPrivate() bool {
	return l.passwordHash != ""
}

// CheckPassword verifies password against the stored hash. Public lobbies accept
// anything.
func (l *Lobby) CheckPassword(password string) bool {
	if !l.IsPrivate() {
		return true
	}
	ok, err := auth.VerifyPassword(password, l.passwordHash)
	return err == nil && ok
}

// AddMember appends p to the membership list.
func (l *Lobby) AddMember(p models.Player) error {
	if l.HasMember(p.ID) {
		return apperr.ErrAlreadyInLobby
	}
	if len(l.Members) >= l.MaxPlayers {
		return apperr.ErrLobbyFull
	}
	l.Members = append(l.Members, p)
	return nil
}

// RemoveMember drops playerID. When the host leaves and others remain, the first
// remaining member becomes host. It returns the (possibly new) host id.
func (l *Lobby) RemoveMember(playerID string) (string, error) {
	idx := l.indexOf(playerID)
	if idx < 0 {
		return l.HostID, apperr.ErrNotInLobby
	}
	l.Members = append(l.Members[:idx], l.Members[idx+1:]...)
	if playerID == l.HostID && len(l.Members) > 0 {
		l.HostID = l.Members[0].ID
	}
	return l.HostID, nil
}

// UpdateMember refreshes the stored identity of a member, e.g. after a reconnect
// with a new display name.
func (l *Lobby) UpdateMember(p models.Player) {
	if idx := l.indexOf(p.ID); idx >= 0 {
		l.Members[idx] = p
	}
}

// HasMember reports whether playerID is in the lobby.
func (l *Lobby) HasMember(playerID string) bool {
	return l.indexOf(playerID) >= 0
}

func (l *Lobby) indexOf(playerID string) int {
	for i, m := range l.Members {
		if m.ID == playerID {
			return i
		}
	}
	return -1
}

// HumanCount is the number of non-bot members.
func (l *Lobby) HumanCount() int {
	n := 0
	for _, m := range l.Members {
		if !m.IsBot {
			n++
		}
	}
	return n
}

// CanStart reports whether enough members are present to start a game.
func (l *Lobby) CanStart() bool {
	return len(l.Members) >= l.MinPlayers
}

// HasGame reports whether a round state is attached.
func (l *Lobby) HasGame() bool {
	return l.Game != nil
}

// WordSource returns the uploaded table or the built-in one.
func (l *Lobby) WordSource() game.WordSource {
	if l.Words != nil {
		return l.Words.Clone()
	}
	return game.DefaultWords()
}

// Close marks the lobby as deleted. Callers that looked the lobby up before
// acquiring Mu must check Closed.
func (l *Lobby) Close() {
	l.closed = true
	l.Game = nil
}

// Closed reports whether the lobby was deleted.
func (l *Lobby) Closed() bool {
	return l.closed
}

// Summary is the public listing entry.
func (l *Lobby) Summary() models.LobbySummary {
	return models.LobbySummary{
		ID:          l.ID,
		Code:        l.Code,
		Name:        l.Name,
		IsPrivate:   l.IsPrivate(),
		PlayerCount: len(l.Members),
		MaxPlayers:  l.MaxPlayers,
		HasGame:     l.HasGame(),
	}
}

// Info is the full view sent to members.
func (l *Lobby) Info() models.LobbyInfo {
	info := models.LobbyInfo{
		LobbySummary:   l.Summary(),
		HostID:         l.HostID,
		Players:        make([]models.LobbyMember, 0, len(l.Members)),
		HasCustomWords: l.Words != nil,
	}
	if l.Game != nil {
		info.GameID = l.Game.ID
	}
	for _, m := range l.Members {
		info.Players = append(info.Players, models.LobbyMember{
			ID:              m.ID,
			Name:            m.Name,
			Avatar:          m.Avatar,
			ProfilePicIndex: m.ProfilePicIndex,
			IsHost:          m.ID == l.HostID,
			IsBot:           m.IsBot,
		})
	}
	return info
}
