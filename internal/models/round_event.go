// internal/models/round_event.go
package models

import "time"

// Round event types recorded to the event log.
const (
	EventGameStarted    = "game_started"
	EventPhaseChanged   = "phase_changed"
	EventClueSubmitted  = "clue_submitted"
	EventVoteSubmitted  = "vote_submitted"
	EventActionVote     = "action_vote_submitted"
	EventSkipVote       = "skip_discussion_vote"
	EventRoundContinued = "round_continued"
	EventRoundFinished  = "round_finished"
	EventPlayerLeft     = "player_left"
	EventGameEnded      = "game_ended"
)

// RoundEvent is one accepted mutation of a game, in the order it was applied.
// Seq is per game and starts at 1.
type RoundEvent struct {
	GameID    string                 `json:"game_id"`
	LobbyID   string                 `json:"lobby_id"`
	Seq       int                    `json:"seq"`
	ActorID   string                 `json:"actor_id,omitempty"`
	Type      string                 `json:"type"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp int64                  `json:"timestamp"` // unix ms
}

// RoundRecord summarizes a finished round for the archive.
type RoundRecord struct {
	GameID        string    `json:"game_id"`
	LobbyID       string    `json:"lobby_id"`
	Round         int       `json:"round"`
	Category      string    `json:"category"`
	Word          string    `json:"word"`
	ImpostorID    string    `json:"impostor_id"`
	VotedOutID    string    `json:"voted_out_id,omitempty"`
	Tie           bool      `json:"tie"`
	DetectivesWin bool      `json:"detectives_win"`
	ImpostorLeft  bool      `json:"impostor_left"`
	PlayerIDs     []string  `json:"player_ids"`
	FinishedAt    time.Time `json:"finished_at"`
}
