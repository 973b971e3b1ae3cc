// internal/coordinator/game.go
package coordinator

import (
	"github.com/jason-s-yu/crystal-clear/internal/apperr"
	"github.com/jason-s-yu/crystal-clear/internal/game"
	"github.com/jason-s-yu/crystal-clear/internal/lobby"
	"github.com/jason-s-yu/crystal-clear/internal/models"
)

// StartGame creates the lobby's round state and enters role_reveal. Host only.
func (c *Coordinator) StartGame(connID string) (game.PlayerView, error) {
	s, l, err := c.callerLobby(connID)
	if err != nil {
		return game.PlayerView{}, err
	}
	defer l.Mu.Unlock()

	if l.HostID != s.Player.ID {
		return game.PlayerView{}, apperr.ErrNotHost
	}
	if l.HasGame() {
		return game.PlayerView{}, apperr.ErrGameInProgress
	}
	if !l.CanStart() {
		return game.PlayerView{}, apperr.Newf(apperr.CodeBelowMinimumPlayers, "Need at least %d player(s) to start", l.MinPlayers)
	}

	g, err := game.NewRoundState(l.ID, l.Members, l.WordSource(), c.newRand())
	if err != nil {
		c.lobbyLog(l).WithError(err).Error("failed to create round state")
		return game.PlayerView{}, apperr.New(apperr.CodeInternal)
	}
	if err := g.Start(); err != nil {
		return game.PlayerView{}, err
	}
	l.Game = g

	c.broadcast(l, EventGameStarted, GameStartedPayload{Phase: g.Phase})
	c.record(l, s.Player.ID, models.EventGameStarted, map[string]interface{}{
		"round":    g.Round,
		"players":  append([]string{}, g.TurnOrder...),
		"category": g.Category,
	})
	c.lobbyLog(l).WithField("game", g.ID).Info("game started")
	c.afterTransition(l, game.Transition{From: game.PhaseWaiting, To: g.Phase})
	return g.ViewFor(s.Player.ID), nil
}

// SubmitClue records the caller's clue for the current turn.
func (c *Coordinator) SubmitClue(connID, clue string) error {
	s, l, err := c.callerGame(connID)
	if err != nil {
		return err
	}
	defer l.Mu.Unlock()
	return c.applyClue(l, s.Player.ID, clue)
}

// applyClue is shared by players and bots. After the last clue of the round the
// move to discussion is delayed by LastClueDelay so clients can show it.
// Assumes l.Mu is held.
func (c *Coordinator) applyClue(l *lobby.Lobby, playerID, clue string) error {
	g := l.Game
	if err := g.SubmitClue(playerID, clue); err != nil {
		return err
	}
	c.broadcast(l, EventClueSubmitted, ClueSubmittedPayload{
		Clues:              g.Clues,
		CurrentPlayerIndex: g.CurrentPlayerIndex,
		CurrentPlayerID:    g.CurrentPlayerID(),
	})
	c.record(l, playerID, models.EventClueSubmitted, map[string]interface{}{"clue": clue, "round": g.Round})

	if g.IsLastTurn() {
		// replaces the turn timer; no timerStarted for the pause
		c.sched.Schedule(l.ID, g.Phase, g.Epoch, c.cfg.LastClueDelay(), c.onPhaseTimer)
		return nil
	}
	c.advance(l)
	return nil
}

// SubmitVote records the caller's vote. Voting closes as soon as every player
// has voted.
func (c *Coordinator) SubmitVote(connID, targetID string) error {
	s, l, err := c.callerGame(connID)
	if err != nil {
		return err
	}
	defer l.Mu.Unlock()
	return c.applyVote(l, s.Player.ID, targetID)
}

// applyVote is shared by players and bots. Assumes l.Mu is held.
func (c *Coordinator) applyVote(l *lobby.Lobby, voterID, targetID string) error {
	g := l.Game
	if err := g.SubmitVote(voterID, targetID); err != nil {
		return err
	}
	c.broadcast(l, EventVoteSubmitted, VoteSubmittedPayload{PlayersVoted: g.PlayersVoted()})
	c.record(l, voterID, models.EventVoteSubmitted, map[string]interface{}{"votedFor": targetID})
	if g.AllVotesIn() {
		c.advance(l)
	}
	return nil
}

// SubmitActionVote records continue or start_vote. action_choice resolves early
// once every human has chosen.
func (c *Coordinator) SubmitActionVote(connID string, action game.Action) error {
	s, l, err := c.callerGame(connID)
	if err != nil {
		return err
	}
	defer l.Mu.Unlock()

	g := l.Game
	if err := g.SubmitActionVote(s.Player.ID, action); err != nil {
		return err
	}
	c.broadcast(l, EventActionVoteSubmitted, ActionVoteSubmittedPayload{ActionVoteStatus: g.ActionVoteStatus()})
	c.record(l, s.Player.ID, models.EventActionVote, map[string]interface{}{"action": action})
	if g.AllActionVotesIn() {
		c.advance(l)
	}
	return nil
}

// VoteSkipDiscussion counts the caller towards ending discussion early.
func (c *Coordinator) VoteSkipDiscussion(connID string) (game.SkipTally, error) {
	s, l, err := c.callerGame(connID)
	if err != nil {
		return game.SkipTally{}, err
	}
	defer l.Mu.Unlock()

	g := l.Game
	tally, err := g.VoteSkipDiscussion(s.Player.ID)
	if err != nil {
		return tally, err
	}
	c.broadcast(l, EventSkipDiscussionVoteUpdate, tally)
	c.record(l, s.Player.ID, models.EventSkipVote, map[string]interface{}{"voteCount": tally.VoteCount, "needed": tally.Needed})
	if tally.ShouldSkip {
		c.advance(l)
	}
	return tally, nil
}

// SkipDiscussion ends discussion immediately. Host only.
func (c *Coordinator) SkipDiscussion(connID string) error {
	s, l, err := c.callerGame(connID)
	if err != nil {
		return err
	}
	defer l.Mu.Unlock()

	if l.HostID != s.Player.ID {
		return apperr.ErrNotHost
	}
	if l.Game.Phase != game.PhaseDiscussion {
		return apperr.ErrWrongPhase
	}
	c.advance(l)
	return nil
}

// GetState returns the caller's view of the running game.
func (c *Coordinator) GetState(connID string) (game.PlayerView, error) {
	s, l, err := c.callerGame(connID)
	if err != nil {
		return game.PlayerView{}, err
	}
	defer l.Mu.Unlock()
	return l.Game.ViewFor(s.Player.ID), nil
}

// NewRound starts the next round from game_over with fresh roles and word.
func (c *Coordinator) NewRound(connID string) error {
	s, l, err := c.callerGame(connID)
	if err != nil {
		return err
	}
	defer l.Mu.Unlock()

	g := l.Game
	if err := g.StartNextRound(); err != nil {
		return err
	}
	c.record(l, s.Player.ID, models.EventGameStarted, map[string]interface{}{
		"round":    g.Round,
		"players":  append([]string{}, g.TurnOrder...),
		"category": g.Category,
	})
	c.afterTransition(l, game.Transition{From: game.PhaseGameOver, To: g.Phase})
	return nil
}

// ReturnToLobby discards the game and keeps the lobby.
func (c *Coordinator) ReturnToLobby(connID string) (models.LobbyInfo, error) {
	s, l, err := c.callerGame(connID)
	if err != nil {
		return models.LobbyInfo{}, err
	}
	defer l.Mu.Unlock()

	c.endGame(l, s.Player.ID)
	info := l.Info()
	c.broadcast(l, EventGameEnded, GameEndedPayload{Lobby: info})
	return info, nil
}

// endGame cancels the lobby's timer and detaches its game. Assumes l.Mu is
// held.
func (c *Coordinator) endGame(l *lobby.Lobby, actorID string) {
	if l.Game == nil {
		return
	}
	c.sched.Cancel(l.ID)
	c.record(l, actorID, models.EventGameEnded, map[string]interface{}{"round": l.Game.Round})
	c.lobbyLog(l).WithField("game", l.Game.ID).Info("game ended")
	l.Game = nil
}
