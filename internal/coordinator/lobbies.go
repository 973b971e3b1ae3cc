// internal/coordinator/lobbies.go
package coordinator

import (
	"encoding/json"

	"github.com/jason-s-yu/crystal-clear/internal/apperr"
	"github.com/jason-s-yu/crystal-clear/internal/game"
	"github.com/jason-s-yu/crystal-clear/internal/lobby"
	"github.com/jason-s-yu/crystal-clear/internal/models"
	"github.com/sirupsen/logrus"
)

// CreateLobby opens a lobby with the caller as host. A caller already in
// another lobby leaves it first.
func (c *Coordinator) CreateLobby(connID, name string, maxPlayers int, password string) (models.LobbyInfo, error) {
	s, err := c.session(connID)
	if err != nil {
		return models.LobbyInfo{}, err
	}
	if s.LobbyID != "" {
		c.leaveLobby(s.Player.ID, connID)
	}

	l, err := lobby.New(name, s.Player, maxPlayers, c.minPlayers, password)
	if err != nil {
		c.log.WithError(err).Error("failed to create lobby")
		return models.LobbyInfo{}, apperr.New(apperr.CodeInternal)
	}
	l.Mu.Lock()
	defer l.Mu.Unlock()
	c.lobbies.Add(l)
	c.sessions.SetLobby(s.Player.ID, l.ID)
	c.out.Subscribe(connID, l.ID)

	c.log.WithFields(logrus.Fields{"lobby": l.ID, "player": s.Player.ID, "code": l.Code}).Info("lobby created")
	return l.Info(), nil
}

// JoinLobby adds the caller to lobbyID.
func (c *Coordinator) JoinLobby(connID, lobbyID, password string) (models.LobbyInfo, error) {
	s, err := c.session(connID)
	if err != nil {
		return models.LobbyInfo{}, err
	}
	if _, ok := c.lobbies.Get(lobbyID); !ok {
		return models.LobbyInfo{}, apperr.ErrLobbyNotFound
	}
	if s.LobbyID == lobbyID {
		return models.LobbyInfo{}, apperr.ErrAlreadyInLobby
	}

	// Validate before leaving the current lobby so a failed join keeps it.
	if err := c.checkJoinable(lobbyID, s.Player.ID, password); err != nil {
		return models.LobbyInfo{}, err
	}
	if s.LobbyID != "" {
		c.leaveLobby(s.Player.ID, connID)
	}

	l, err := c.lockLobby(lobbyID)
	if err != nil {
		return models.LobbyInfo{}, err
	}
	defer l.Mu.Unlock()
	if err := c.joinableLocked(l, s.Player.ID, password); err != nil {
		return models.LobbyInfo{}, err
	}
	if err := l.AddMember(s.Player); err != nil {
		return models.LobbyInfo{}, err
	}
	c.sessions.SetLobby(s.Player.ID, l.ID)
	c.out.Subscribe(connID, l.ID)

	info := l.Info()
	c.out.Broadcast(l.ID, EventLobbyPlayerJoined, info, connID)
	c.lobbyLog(l).WithField("player", s.Player.ID).Info("player joined lobby")
	return info, nil
}

// JoinLobbyByCode resolves a join code and joins that lobby.
func (c *Coordinator) JoinLobbyByCode(connID, code, password string) (models.LobbyInfo, error) {
	l, ok := c.lobbies.GetByCode(code)
	if !ok {
		return models.LobbyInfo{}, apperr.ErrLobbyNotFound
	}
	return c.JoinLobby(connID, l.ID, password)
}

func (c *Coordinator) checkJoinable(lobbyID, playerID, password string) error {
	l, err := c.lockLobby(lobbyID)
	if err != nil {
		return err
	}
	defer l.Mu.Unlock()
	return c.joinableLocked(l, playerID, password)
}

// joinableLocked checks password, game state and capacity, in that order.
func (c *Coordinator) joinableLocked(l *lobby.Lobby, playerID, password string) error {
	if l.HasMember(playerID) {
		return apperr.ErrAlreadyInLobby
	}
	if !l.CheckPassword(password) {
		return apperr.ErrIncorrectPassword
	}
	if l.HasGame() {
		return apperr.ErrGameInProgress
	}
	if len(l.Members) >= l.MaxPlayers {
		return apperr.ErrLobbyFull
	}
	return nil
}

// LeaveLobby removes the caller from their lobby.
func (c *Coordinator) LeaveLobby(connID string) (LeaveResult, error) {
	s, err := c.session(connID)
	if err != nil {
		return LeaveResult{}, err
	}
	if s.LobbyID == "" {
		return LeaveResult{}, apperr.ErrNotInLobby
	}
	res, ok := c.leaveLobby(s.Player.ID, connID)
	if !ok {
		return LeaveResult{}, apperr.ErrLobbyNotFound
	}
	return res, nil
}

// leaveLobby removes playerID from the lobby recorded in their session. connID
// is their connection, empty when they are gone. A lobby with no human members
// left is deleted.
func (c *Coordinator) leaveLobby(playerID, connID string) (LeaveResult, bool) {
	s, ok := c.sessions.Get(playerID)
	if !ok || s.LobbyID == "" {
		return LeaveResult{}, false
	}
	c.sessions.SetLobby(playerID, "")
	if connID != "" {
		c.out.Unsubscribe(connID, s.LobbyID)
	}

	l, err := c.lockLobby(s.LobbyID)
	if err != nil {
		return LeaveResult{}, false
	}
	defer l.Mu.Unlock()

	res := LeaveResult{LobbyID: l.ID}
	host, err := l.RemoveMember(playerID)
	if err != nil {
		return res, false
	}
	c.lobbyLog(l).WithField("player", playerID).Info("player left lobby")

	if l.HumanCount() == 0 {
		c.deleteLobby(l)
		res.LobbyDeleted = true
		return res, true
	}
	res.NewHostID = host
	c.broadcast(l, EventLobbyPlayerLeft, l.Info())
	if l.Game != nil {
		c.removeFromGame(l, playerID)
	}
	return res, true
}

// removeFromGame takes playerID out of the running round and resolves whatever
// their absence completes. Assumes l.Mu is held.
func (c *Coordinator) removeFromGame(l *lobby.Lobby, playerID string) {
	g := l.Game
	before := g.Phase
	heldTurn, err := g.RemovePlayer(playerID)
	if err != nil {
		return
	}
	c.record(l, playerID, models.EventPlayerLeft, map[string]interface{}{"heldTurn": heldTurn})

	switch {
	case g.Phase != before:
		// the impostor left
		c.afterTransition(l, game.Transition{From: before, To: g.Phase})
	case heldTurn && g.TurnsExhausted():
		c.advance(l)
	case heldTurn:
		// the next player in order inherits the turn
		c.afterTransition(l, game.Transition{From: before, To: before, TurnAdvanced: true})
	case g.Phase == game.PhaseVoting && g.AllVotesIn():
		c.advance(l)
	case g.Phase == game.PhaseActionChoice && g.AllActionVotesIn():
		c.advance(l)
	case g.Phase == game.PhaseDiscussion && g.SkipTally().ShouldSkip:
		c.advance(l)
	default:
		c.emitStates(l)
	}
}

// deleteLobby drops l from the index and stops its timer. Remaining bots go
// with it. Assumes l.Mu is held.
func (c *Coordinator) deleteLobby(l *lobby.Lobby) {
	c.endGame(l, "")
	c.sched.Cancel(l.ID)
	l.Close()
	c.lobbies.Delete(l.ID)
	c.lobbyLog(l).Info("lobby deleted")
}

// ListLobbies returns public lobbies that are not playing.
func (c *Coordinator) ListLobbies() []models.LobbySummary {
	out := []models.LobbySummary{}
	for _, l := range c.lobbies.All() {
		l.Mu.Lock()
		if !l.Closed() && !l.IsPrivate() && !l.HasGame() {
			out = append(out, l.Summary())
		}
		l.Mu.Unlock()
	}
	return out
}

// AddBot adds a synthetic player to the caller's lobby. Dev mode only.
func (c *Coordinator) AddBot(connID string) (models.LobbyInfo, error) {
	if !c.cfg.DevMode {
		return models.LobbyInfo{}, apperr.ErrDevModeOnly
	}
	_, l, err := c.callerLobby(connID)
	if err != nil {
		return models.LobbyInfo{}, err
	}
	defer l.Mu.Unlock()

	if l.HasGame() {
		return models.LobbyInfo{}, apperr.ErrGameInProgress
	}
	bot := game.NewBot(int(c.botSeq.Add(1)), c.newRand(), c.clock.Now())
	if err := l.AddMember(bot); err != nil {
		return models.LobbyInfo{}, err
	}
	info := l.Info()
	c.broadcast(l, EventLobbyPlayerJoined, info)
	c.lobbyLog(l).WithField("bot", bot.ID).Info("bot added")
	return info, nil
}

// UploadWords replaces the lobby's word table for future rounds. Host only.
func (c *Coordinator) UploadWords(connID string, raw json.RawMessage) error {
	s, l, err := c.callerLobby(connID)
	if err != nil {
		return err
	}
	defer l.Mu.Unlock()

	if l.HostID != s.Player.ID {
		return apperr.ErrNotHost
	}
	words, err := game.ParseWordData(raw)
	if err != nil {
		return err
	}
	l.Words = words
	c.broadcast(l, EventLobbyUpdated, l.Info())
	c.lobbyLog(l).WithField("categories", len(words)).Info("custom words uploaded")
	return nil
}
