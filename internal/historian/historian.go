// internal/historian/historian.go
package historian

import (
	"context"
	"sync"
	"time"

	"github.com/jason-s-yu/crystal-clear/internal/models"
	"github.com/sirupsen/logrus"
)

// EventSource yields round events, blocking up to timeout.
type EventSource interface {
	Pop(ctx context.Context, timeout time.Duration) (models.RoundEvent, bool, error)
}

// EventSink persists batches of round events.
type EventSink interface {
	InsertEvents(ctx context.Context, events []models.RoundEvent) error
	MarkAbandoned(ctx context.Context, gameID string) error
}

// Config tunes batching and abandonment.
type Config struct {
	BatchSize  int
	FlushDelay time.Duration
	PopTimeout time.Duration
	// Inactivity is how long a game may go without events before it is marked
	// abandoned. Zero disables the check.
	Inactivity    time.Duration
	InactivityTic time.Duration
}

// Service drains round events from the queue into the archive in batches, and
// marks games abandoned when their event stream goes quiet.
type Service struct {
	source EventSource
	sink   EventSink
	cfg    Config
	log    *logrus.Logger
	now    func() time.Time

	lastActivity sync.Map // game id -> time.Time

	batchMu sync.Mutex
	batch   []models.RoundEvent
}

// New constructs a Service. Zero config fields get defaults.
func New(source EventSource, sink EventSink, cfg Config, logger *logrus.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = 500 * time.Millisecond
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = 3 * time.Second
	}
	if cfg.InactivityTic <= 0 {
		cfg.InactivityTic = time.Minute
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		source: source,
		sink:   sink,
		cfg:    cfg,
		log:    logger,
		now:    time.Now,
		batch:  make([]models.RoundEvent, 0, cfg.BatchSize),
	}
}

// Run blocks until ctx is cancelled, then flushes what is buffered.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.flushLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		s.inactivityLoop(ctx)
	}()

	s.log.Info("historian started")
	s.readLoop(ctx)
	wg.Wait()

	// ctx is done; give the final flush its own deadline.
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Flush(flushCtx)
	s.log.Info("historian stopped")
}

func (s *Service) readLoop(ctx context.Context) {
	for ctx.Err() == nil {
		ev, ok, err := s.source.Pop(ctx, s.cfg.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.WithError(err).Error("historian: pop failed")
			continue
		}
		if !ok {
			continue
		}
		s.Ingest(ctx, ev)
	}
}

func (s *Service) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.FlushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Flush(ctx)
		}
	}
}

// Ingest buffers one event, flushing when the batch is full.
func (s *Service) Ingest(ctx context.Context, ev models.RoundEvent) {
	if ev.Type == models.EventGameEnded {
		s.lastActivity.Delete(ev.GameID)
	} else {
		s.lastActivity.Store(ev.GameID, s.now())
	}

	s.batchMu.Lock()
	s.batch = append(s.batch, ev)
	full := len(s.batch) >= s.cfg.BatchSize
	s.batchMu.Unlock()

	if full {
		s.Flush(ctx)
	}
}

// Flush writes the buffered batch. A failed batch is put back in front of
// anything buffered since, so ordering is kept for the next attempt.
func (s *Service) Flush(ctx context.Context) {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	pending := s.batch
	s.batch = make([]models.RoundEvent, 0, s.cfg.BatchSize)
	s.batchMu.Unlock()

	if err := s.sink.InsertEvents(ctx, pending); err != nil {
		s.log.WithError(err).WithField("events", len(pending)).Error("historian: flush failed")
		s.batchMu.Lock()
		s.batch = append(pending, s.batch...)
		s.batchMu.Unlock()
		return
	}
	s.log.WithField("events", len(pending)).Debug("historian: flushed")
}

// Pending is the number of buffered events.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}

func (s *Service) inactivityLoop(ctx context.Context) {
	if s.cfg.Inactivity <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(s.cfg.InactivityTic)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepInactive(ctx)
		}
	}
}

// SweepInactive marks every game idle for longer than Inactivity as abandoned.
func (s *Service) SweepInactive(ctx context.Context) {
	now := s.now()
	s.lastActivity.Range(func(key, val interface{}) bool {
		gameID, ok1 := key.(string)
		last, ok2 := val.(time.Time)
		if ok1 && ok2 && now.Sub(last) > s.cfg.Inactivity {
			// events for the game must be stored before it can be marked
			s.Flush(ctx)
			if err := s.sink.MarkAbandoned(ctx, gameID); err != nil {
				s.log.WithError(err).WithField("game", gameID).Error("historian: mark abandoned failed")
				return true
			}
			s.log.WithField("game", gameID).Info("historian: marked game abandoned")
			s.lastActivity.Delete(gameID)
		}
		return true
	})
}
