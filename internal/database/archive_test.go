package database

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/crystal-clear/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeTx embeds pgx.Tx so only the methods beginTxFunc touches need bodies.
type fakeTx struct {
	pgx.Tx
	mock.Mock
}

func (f *fakeTx) Commit(ctx context.Context) error   { return f.Called().Error(0) }
func (f *fakeTx) Rollback(ctx context.Context) error { return f.Called().Error(0) }

type fakeBeginner struct {
	tx  *fakeTx
	err error
}

func (b fakeBeginner) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.tx, nil
}

func TestBeginTxFuncCommits(t *testing.T) {
	tx := &fakeTx{}
	tx.On("Commit").Return(nil).Once()

	err := beginTxFunc(context.Background(), fakeBeginner{tx: tx}, pgx.TxOptions{}, func(pgx.Tx) error { return nil })
	require.NoError(t, err)
	tx.AssertExpectations(t)
	tx.AssertNotCalled(t, "Rollback")
}

func TestBeginTxFuncRollsBackOnError(t *testing.T) {
	tx := &fakeTx{}
	tx.On("Rollback").Return(nil).Once()
	boom := errors.New("boom")

	err := beginTxFunc(context.Background(), fakeBeginner{tx: tx}, pgx.TxOptions{}, func(pgx.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	tx.AssertExpectations(t)
	tx.AssertNotCalled(t, "Commit")
}

func TestBeginTxFuncReportsRollbackFailure(t *testing.T) {
	tx := &fakeTx{}
	tx.On("Rollback").Return(errors.New("conn lost")).Once()
	boom := errors.New("boom")

	err := beginTxFunc(context.Background(), fakeBeginner{tx: tx}, pgx.TxOptions{}, func(pgx.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "conn lost")
}

func TestBeginTxFuncBeginError(t *testing.T) {
	called := false
	err := beginTxFunc(context.Background(), fakeBeginner{err: errors.New("no conn")}, pgx.TxOptions{}, func(pgx.Tx) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}

// TestArchiveIntegration needs a reachable Postgres in DATABASE_URL.
func TestArchiveIntegration(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := Connect(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	a := NewArchive(pool)
	require.NoError(t, a.Migrate(ctx))

	gameID := uuid.NewString()
	now := time.Now().UnixMilli()
	events := []models.RoundEvent{
		{GameID: gameID, LobbyID: "L", Seq: 1, Type: models.EventGameStarted, Timestamp: now},
		{GameID: gameID, LobbyID: "L", Seq: 2, ActorID: "p1", Type: models.EventClueSubmitted, Payload: map[string]interface{}{"clue": "cold"}, Timestamp: now},
		{GameID: gameID, LobbyID: "L", Seq: 3, Type: models.EventGameEnded, Timestamp: now},
	}
	require.NoError(t, a.InsertEvents(ctx, events))
	require.NoError(t, a.InsertEvents(ctx, events), "replays are ignored")

	var status string
	require.NoError(t, pool.QueryRow(ctx, `SELECT status FROM games WHERE id = $1`, gameID).Scan(&status))
	assert.Equal(t, "completed", status)

	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM round_events WHERE game_id = $1`, gameID).Scan(&n))
	assert.Equal(t, 3, n)

	require.NoError(t, a.RecordRound(ctx, models.RoundRecord{
		GameID: gameID, LobbyID: "L", Round: 1, Category: "Animals", Word: "penguin",
		ImpostorID: "b", VotedOutID: "b", DetectivesWin: true,
		PlayerIDs: []string{"a", "b", "c"}, FinishedAt: time.Now(),
	}))
}
