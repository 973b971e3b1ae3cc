// internal/coordinator/recorder.go
package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/jason-s-yu/crystal-clear/internal/game"
	"github.com/jason-s-yu/crystal-clear/internal/lobby"
	"github.com/jason-s-yu/crystal-clear/internal/models"
	"github.com/sirupsen/logrus"
)

const persistTimeout = 5 * time.Second

// recorder runs persistence jobs on one goroutine so the lobby lock is never
// held across network calls and events reach the log in the order they were
// accepted.
type recorder struct {
	jobs chan func(context.Context)
	log  *logrus.Logger
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func newRecorder(log *logrus.Logger, size int) *recorder {
	r := &recorder{jobs: make(chan func(context.Context), size), log: log}
	r.wg.Add(1)
	go r.run()
	return r
}

func (r *recorder) run() {
	defer r.wg.Done()
	for job := range r.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		job(ctx)
		cancel()
	}
}

// enqueue never blocks; when the queue is full or closed the job is dropped.
func (r *recorder) enqueue(job func(context.Context)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		r.log.Debug("recorder closed, dropping job")
		return false
	}
	select {
	case r.jobs <- job:
		return true
	default:
		r.log.Warn("recorder queue full, dropping job")
		return false
	}
}

// close stops accepting jobs and waits for the queued ones to finish.
func (r *recorder) close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.jobs)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

// record appends one event for l's game. Assumes l.Mu is held.
func (c *Coordinator) record(l *lobby.Lobby, actorID, typ string, payload map[string]interface{}) {
	if c.rec == nil || c.events == nil || l.Game == nil {
		return
	}
	c.seqMu.Lock()
	c.eventSeq[l.Game.ID]++
	seq := c.eventSeq[l.Game.ID]
	if typ == models.EventGameEnded {
		delete(c.eventSeq, l.Game.ID)
	}
	c.seqMu.Unlock()

	ev := models.RoundEvent{
		GameID:    l.Game.ID,
		LobbyID:   l.ID,
		Seq:       seq,
		ActorID:   actorID,
		Type:      typ,
		Payload:   payload,
		Timestamp: c.clock.Now().UnixMilli(),
	}
	events := c.events
	log := c.lobbyLog(l)
	c.rec.enqueue(func(ctx context.Context) {
		if err := events.Append(ctx, ev); err != nil {
			log.WithError(err).Warn("failed to append round event")
		}
	})
}

// archiveRound stores the outcome of the round that just reached
// vote_results. Assumes l.Mu is held.
func (c *Coordinator) archiveRound(l *lobby.Lobby) {
	g := l.Game
	res := g.VoteResults()
	if c.rec == nil || c.archive == nil || res == nil {
		return
	}
	rec := models.RoundRecord{
		GameID:        g.ID,
		LobbyID:       l.ID,
		Round:         g.Round,
		Category:      g.Category,
		Word:          g.Word,
		ImpostorID:    g.ImpostorID,
		Tie:           res.Tie,
		DetectivesWin: res.DetectivesWin,
		ImpostorLeft:  res.ImpostorLeft,
		PlayerIDs:     append([]string{}, g.TurnOrder...),
		FinishedAt:    c.clock.Now(),
	}
	if res.VotedOut != nil {
		rec.VotedOutID = res.VotedOut.ID
	}
	archive := c.archive
	log := c.lobbyLog(l)
	c.rec.enqueue(func(ctx context.Context) {
		if err := archive.RecordRound(ctx, rec); err != nil {
			log.WithError(err).Warn("failed to archive round")
		}
	})
}

func resultsPayload(res *game.VoteResults) map[string]interface{} {
	if res == nil {
		return nil
	}
	p := map[string]interface{}{
		"tie":           res.Tie,
		"detectivesWin": res.DetectivesWin,
		"impostorId":    res.Impostor.ID,
		"impostorLeft":  res.ImpostorLeft,
	}
	if res.VotedOut != nil {
		p["votedOut"] = res.VotedOut.ID
	}
	return p
}
