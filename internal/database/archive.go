// internal/database/archive.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/crystal-clear/internal/models"
)

// Schema creates the archive tables. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS games (
	id         TEXT PRIMARY KEY,
	lobby_id   TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'in_progress',
	start_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	end_time   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS round_events (
	game_id   TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	seq       INT NOT NULL,
	actor_id  TEXT,
	type      TEXT NOT NULL,
	payload   JSONB,
	ts        TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (game_id, seq)
);

CREATE TABLE IF NOT EXISTS rounds (
	game_id        TEXT NOT NULL,
	round          INT NOT NULL,
	lobby_id       TEXT NOT NULL,
	category       TEXT NOT NULL,
	word           TEXT NOT NULL,
	impostor_id    TEXT NOT NULL,
	voted_out_id   TEXT,
	tie            BOOLEAN NOT NULL DEFAULT FALSE,
	detectives_win BOOLEAN NOT NULL,
	impostor_left  BOOLEAN NOT NULL DEFAULT FALSE,
	player_ids     TEXT[] NOT NULL,
	finished_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (game_id, round)
);
`

// Archive persists games, their event streams and finished rounds.
type Archive struct {
	pool *pgxpool.Pool
}

// NewArchive wraps pool.
func NewArchive(pool *pgxpool.Pool) *Archive {
	return &Archive{pool: pool}
}

// Migrate applies Schema.
func (a *Archive) Migrate(ctx context.Context) error {
	if _, err := a.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply archive schema: %w", err)
	}
	return nil
}

// InsertEvents writes a batch of events in one transaction. Each event upserts
// its game row; a game_ended event completes it. Replayed events are ignored.
func (a *Archive) InsertEvents(ctx context.Context, events []models.RoundEvent) error {
	if len(events) == 0 {
		return nil
	}
	return beginTxFunc(ctx, a.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, ev := range events {
			if err := insertEventTx(ctx, tx, ev); err != nil {
				return fmt.Errorf("insert event %s/%d: %w", ev.GameID, ev.Seq, err)
			}
		}
		return nil
	})
}

func insertEventTx(ctx context.Context, tx pgx.Tx, ev models.RoundEvent) error {
	upsertGameQ := `
		INSERT INTO games (id, lobby_id, status, start_time)
		VALUES ($1, $2, 'in_progress', $3)
		ON CONFLICT (id) DO NOTHING
	`
	ts := time.UnixMilli(ev.Timestamp)
	if _, err := tx.Exec(ctx, upsertGameQ, ev.GameID, ev.LobbyID, ts); err != nil {
		return err
	}

	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return err
	}
	insertQ := `
		INSERT INTO round_events (game_id, seq, actor_id, type, payload, ts)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
		ON CONFLICT (game_id, seq) DO NOTHING
	`
	if _, err := tx.Exec(ctx, insertQ, ev.GameID, ev.Seq, ev.ActorID, ev.Type, payload, ts); err != nil {
		return err
	}

	if ev.Type == models.EventGameEnded {
		finalizeQ := `
			UPDATE games
			SET status = 'completed', end_time = $2
			WHERE id = $1 AND status = 'in_progress'
		`
		if _, err := tx.Exec(ctx, finalizeQ, ev.GameID, ts); err != nil {
			return err
		}
	}
	return nil
}

// RecordRound stores the outcome of one finished round.
func (a *Archive) RecordRound(ctx context.Context, rec models.RoundRecord) error {
	q := `
		INSERT INTO rounds (
			game_id, round, lobby_id, category, word, impostor_id, voted_out_id,
			tie, detectives_win, impostor_left, player_ids, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10, $11, $12)
		ON CONFLICT (game_id, round) DO NOTHING
	`
	_, err := a.pool.Exec(ctx, q,
		rec.GameID, rec.Round, rec.LobbyID, rec.Category, rec.Word, rec.ImpostorID, rec.VotedOutID,
		rec.Tie, rec.DetectivesWin, rec.ImpostorLeft, rec.PlayerIDs, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record round %s/%d: %w", rec.GameID, rec.Round, err)
	}
	return nil
}

// MarkAbandoned flags a game that stopped producing events while in progress.
func (a *Archive) MarkAbandoned(ctx context.Context, gameID string) error {
	return beginTxFunc(ctx, a.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE games
			SET status = 'abandoned', end_time = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`
		_, err := tx.Exec(ctx, q, gameID)
		return err
	})
}
