// internal/coordinator/coordinator.go
package coordinator

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/jason-s-yu/crystal-clear/internal/apperr"
	"github.com/jason-s-yu/crystal-clear/internal/auth"
	"github.com/jason-s-yu/crystal-clear/internal/config"
	"github.com/jason-s-yu/crystal-clear/internal/game"
	"github.com/jason-s-yu/crystal-clear/internal/lobby"
	"github.com/jason-s-yu/crystal-clear/internal/models"
	"github.com/jason-s-yu/crystal-clear/internal/scheduler"
	"github.com/jason-s-yu/crystal-clear/internal/session"
	"github.com/sirupsen/logrus"
)

// Broadcaster delivers server events to connections. Groups are lobby ids.
// Implementations must serialize data before returning and must not block.
type Broadcaster interface {
	Subscribe(connID, group string)
	Unsubscribe(connID, group string)
	SendTo(connID, event string, data interface{})
	// Broadcast sends to every connection in group except exceptConnID.
	Broadcast(group, event string, data interface{}, exceptConnID string)
}

// EventLog receives every accepted game mutation.
type EventLog interface {
	Append(ctx context.Context, ev models.RoundEvent) error
}

// Archiver stores finished rounds.
type Archiver interface {
	RecordRound(ctx context.Context, rec models.RoundRecord) error
}

// Coordinator routes player requests, timer expiry and bot actions to the right
// lobby and fans the resulting events out. Every mutation of a lobby or its game
// happens under that lobby's Mu.
type Coordinator struct {
	cfg        *config.Config
	durations  game.Durations
	minPlayers int

	out      Broadcaster
	sessions *session.Registry
	lobbies  *lobby.LobbyStore
	sched    *scheduler.PhaseScheduler
	clock    scheduler.Clock
	log      *logrus.Logger

	events  EventLog
	archive Archiver
	rec     *recorder
	tokens  *auth.TokenSigner

	newRand func() *rand.Rand
	botSeq  atomic.Int64

	seqMu    sync.Mutex
	eventSeq map[string]int // game id -> last event seq

	reapMu  sync.Mutex
	reapers map[string]*reaper // player id -> grace timer
}

// Option configures a Coordinator.
type Option func(*Coordinator)

func WithLogger(l *logrus.Logger) Option { return func(c *Coordinator) { c.log = l } }

func WithEventLog(e EventLog) Option { return func(c *Coordinator) { c.events = e } }

func WithArchive(a Archiver) Option { return func(c *Coordinator) { c.archive = a } }

// WithTokenSigner enables reconnect tokens.
func WithTokenSigner(s *auth.TokenSigner) Option { return func(c *Coordinator) { c.tokens = s } }

// WithClock drives phase timers, bot delays and disconnect grace from clock.
func WithClock(clock scheduler.Clock) Option { return func(c *Coordinator) { c.clock = clock } }

// WithRand sets the source of per-game randomness.
func WithRand(newRand func() *rand.Rand) Option { return func(c *Coordinator) { c.newRand = newRand } }

// WithDurations overrides the phase durations picked from the config.
func WithDurations(d game.Durations) Option { return func(c *Coordinator) { c.durations = d } }

// New builds a Coordinator around out.
func New(cfg *config.Config, out Broadcaster, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:        cfg,
		durations:  cfg.Durations(),
		minPlayers: cfg.MinPlayers(),
		out:        out,
		sessions:   session.NewRegistry(),
		lobbies:    lobby.NewLobbyStore(),
		clock:      scheduler.RealClock,
		log:        logrus.StandardLogger(),
		newRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
		eventSeq: make(map[string]int),
		reapers:  make(map[string]*reaper),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.sched = scheduler.New(c.clock)
	if c.events != nil || c.archive != nil {
		c.rec = newRecorder(c.log, 1024)
	}
	return c
}

// Close stops every timer and drains pending persistence work.
func (c *Coordinator) Close() {
	c.sched.Stop()
	c.reapMu.Lock()
	for id, r := range c.reapers {
		r.timer.Stop()
		delete(c.reapers, id)
	}
	c.reapMu.Unlock()
	if c.rec != nil {
		c.rec.close()
	}
}

// ServerConfig is what clients are told about the server on join.
func (c *Coordinator) ServerConfig() models.ServerConfig {
	return models.ServerConfig{DevMode: c.cfg.DevMode, MinPlayers: c.minPlayers}
}

// Sessions exposes the session registry.
func (c *Coordinator) Sessions() *session.Registry {
	return c.sessions
}

// session resolves the caller of a request.
func (c *Coordinator) session(connID string) (session.Session, error) {
	s, ok := c.sessions.Lookup(connID)
	if !ok {
		return s, apperr.ErrSessionNotFound
	}
	return s, nil
}

// lockLobby looks up id and locks it. The caller must Unlock l.Mu.
func (c *Coordinator) lockLobby(id string) (*lobby.Lobby, error) {
	l, ok := c.lobbies.Get(id)
	if !ok {
		return nil, apperr.ErrLobbyNotFound
	}
	l.Mu.Lock()
	if l.Closed() {
		l.Mu.Unlock()
		return nil, apperr.ErrLobbyNotFound
	}
	return l, nil
}

// callerLobby resolves the caller and locks their lobby. The caller must Unlock
// l.Mu.
func (c *Coordinator) callerLobby(connID string) (session.Session, *lobby.Lobby, error) {
	s, err := c.session(connID)
	if err != nil {
		return s, nil, err
	}
	if s.LobbyID == "" {
		return s, nil, apperr.ErrNotInLobby
	}
	l, err := c.lockLobby(s.LobbyID)
	if err != nil {
		return s, nil, err
	}
	if !l.HasMember(s.Player.ID) {
		l.Mu.Unlock()
		return s, nil, apperr.ErrNotInLobby
	}
	return s, l, nil
}

// callerGame is callerLobby that also requires a running game.
func (c *Coordinator) callerGame(connID string) (session.Session, *lobby.Lobby, error) {
	s, l, err := c.callerLobby(connID)
	if err != nil {
		return s, nil, err
	}
	if l.Game == nil {
		l.Mu.Unlock()
		return s, nil, apperr.ErrNoGame
	}
	return s, l, nil
}

func (c *Coordinator) lobbyLog(l *lobby.Lobby) *logrus.Entry {
	fields := logrus.Fields{"lobby": l.ID}
	if l.Game != nil {
		fields["phase"] = l.Game.Phase
		fields["round"] = l.Game.Round
	}
	return c.log.WithFields(fields)
}

// emitStates sends every connected human member their own view of the game.
// Assumes l.Mu is held.
func (c *Coordinator) emitStates(l *lobby.Lobby) {
	if l.Game == nil {
		return
	}
	for _, m := range l.Members {
		if m.IsBot {
			continue
		}
		if conn, ok := c.sessions.ConnectionFor(m.ID); ok {
			c.out.SendTo(conn, EventGameState, l.Game.ViewFor(m.ID))
		}
	}
}

func (c *Coordinator) broadcast(l *lobby.Lobby, event string, data interface{}) {
	c.out.Broadcast(l.ID, event, data, "")
}
