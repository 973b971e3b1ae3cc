// internal/coordinator/timers.go
package coordinator

import (
	"time"

	"github.com/jason-s-yu/crystal-clear/internal/game"
	"github.com/jason-s-yu/crystal-clear/internal/lobby"
	"github.com/jason-s-yu/crystal-clear/internal/models"
)

// advance performs one state machine step and publishes it. Assumes l.Mu is
// held and l.Game is set.
func (c *Coordinator) advance(l *lobby.Lobby) {
	t, err := l.Game.Advance()
	if err != nil {
		c.lobbyLog(l).WithError(err).Debug("advance rejected")
		return
	}
	c.afterTransition(l, t)
}

// afterTransition tells clients what changed, arms the timer for the new phase
// or turn, and queues bot moves. Assumes l.Mu is held.
func (c *Coordinator) afterTransition(l *lobby.Lobby, t game.Transition) {
	g := l.Game
	if t.PhaseChanged() {
		payload := PhaseChangedPayload{Phase: g.Phase, Round: g.Round}
		switch g.Phase {
		case game.PhaseVoteResults, game.PhaseGameOver:
			payload.VoteResults = g.VoteResults()
		case game.PhaseActionChoice:
			payload.ActionVoteStatus = g.ActionVoteStatus()
		}
		c.broadcast(l, EventPhaseChanged, payload)

		ev := map[string]interface{}{"from": t.From, "to": t.To, "round": g.Round}
		if t.Continued {
			c.record(l, "", models.EventRoundContinued, ev)
		} else {
			c.record(l, "", models.EventPhaseChanged, ev)
		}
		if g.Phase == game.PhaseVoteResults {
			c.record(l, "", models.EventRoundFinished, resultsPayload(g.VoteResults()))
			c.archiveRound(l)
		}
		c.lobbyLog(l).Debugf("phase %s -> %s", t.From, t.To)
	}
	c.emitStates(l)
	c.schedulePhase(l)
	c.driveBots(l)
}

// schedulePhase arms the timer for the current phase (or clue turn) and
// announces it. Phases without a duration clear any pending timer. Assumes
// l.Mu is held.
func (c *Coordinator) schedulePhase(l *lobby.Lobby) {
	g := l.Game
	d, ok := c.durations.For(g.Phase)
	if !ok {
		c.sched.Cancel(l.ID)
		g.PhaseEndTime = time.Time{}
		return
	}
	dl := c.sched.Schedule(l.ID, g.Phase, g.Epoch, d, c.onPhaseTimer)
	g.PhaseEndTime = time.UnixMilli(dl.EndTime)
	c.broadcast(l, EventTimerStarted, dl)
}

// onPhaseTimer runs when a phase or clue turn times out, and after the short
// pause that follows the last clue.
func (c *Coordinator) onPhaseTimer(lobbyID string, epoch uint64) {
	l, err := c.lockLobby(lobbyID)
	if err != nil {
		c.log.WithField("lobby", lobbyID).Debug("timer fired for deleted lobby")
		return
	}
	defer l.Mu.Unlock()
	if l.Game == nil || l.Game.Epoch != epoch {
		c.lobbyLog(l).Debug("dropping stale timer")
		return
	}
	c.advance(l)
}

// after runs f once d elapses on the coordinator's clock.
func (c *Coordinator) after(d time.Duration, f func()) {
	c.clock.AfterFunc(d, f)
}

// driveBots queues the moves of bots that owe one in the current phase. Each
// move is tagged with the epoch it was queued in. Assumes l.Mu is held.
func (c *Coordinator) driveBots(l *lobby.Lobby) {
	g := l.Game
	lobbyID, epoch := l.ID, g.Epoch
	switch g.Phase {
	case game.PhaseClueSubmission:
		id := g.CurrentPlayerID()
		if p, ok := g.Participant(id); ok && p.IsBot && p.Clue == nil {
			c.after(c.cfg.BotDelay(), func() { c.botClue(lobbyID, epoch, id) })
		}
	case game.PhaseVoting:
		for _, p := range g.Players() {
			if p.IsBot && p.Vote == "" {
				id := p.ID
				c.after(c.cfg.BotDelay(), func() { c.botVote(lobbyID, epoch, id) })
			}
		}
	}
}

// botLobby locks lobbyID for a bot command, or returns nil when the command is
// stale. The caller must Unlock l.Mu on a non-nil result.
func (c *Coordinator) botLobby(lobbyID string, epoch uint64) *lobby.Lobby {
	l, err := c.lockLobby(lobbyID)
	if err != nil {
		return nil
	}
	if l.Game == nil || l.Game.Epoch != epoch {
		l.Mu.Unlock()
		return nil
	}
	return l
}

func (c *Coordinator) botClue(lobbyID string, epoch uint64, botID string) {
	l := c.botLobby(lobbyID, epoch)
	if l == nil {
		return
	}
	defer l.Mu.Unlock()
	if err := c.applyClue(l, botID, game.BotClue()); err != nil {
		c.lobbyLog(l).WithError(err).Debug("bot clue rejected")
	}
}

func (c *Coordinator) botVote(lobbyID string, epoch uint64, botID string) {
	l := c.botLobby(lobbyID, epoch)
	if l == nil {
		return
	}
	defer l.Mu.Unlock()
	target, ok := l.Game.BotVoteTarget(botID)
	if !ok {
		return
	}
	if err := c.applyVote(l, botID, target); err != nil {
		c.lobbyLog(l).WithError(err).Debug("bot vote rejected")
	}
}
