// internal/game/phase.go
package game

import "time"

// Phase is one state of a round's state machine.
type Phase string

const (
	PhaseWaiting        Phase = "waiting"
	PhaseRoleReveal     Phase = "role_reveal"
	PhaseThemeReveal    Phase = "theme_reveal"
	PhaseWordReveal     Phase = "word_reveal"
	PhaseClueSubmission Phase = "clue_submission"
	PhaseDiscussion     Phase = "discussion"
	PhaseActionChoice   Phase = "action_choice"
	PhaseVoting         Phase = "voting"
	PhaseVoteResults    Phase = "vote_results"
	PhaseGameOver       Phase = "game_over"
)

// InRound reports whether the phase belongs to a running round, i.e. roles are
// assigned and the game is not over.
func (p Phase) InRound() bool {
	return p != PhaseWaiting && p != PhaseGameOver
}

// Durations maps each timed phase to how long it lasts before auto-advancing.
// For clue_submission the duration is per turn. Phases absent from the map
// (waiting, game_over) never auto-advance.
type Durations map[Phase]time.Duration

// For returns the configured duration of p and whether p is timed at all.
func (d Durations) For(p Phase) (time.Duration, bool) {
	v, ok := d[p]
	return v, ok && v > 0
}

// NormalDurations is the production timing profile.
func NormalDurations() Durations {
	return Durations{
		PhaseRoleReveal:     3 * time.Second,
		PhaseThemeReveal:    6 * time.Second,
		PhaseWordReveal:     6 * time.Second,
		PhaseClueSubmission: 20 * time.Second,
		PhaseDiscussion:     30 * time.Second,
		PhaseActionChoice:   15 * time.Second,
		PhaseVoting:         30 * time.Second,
		PhaseVoteResults:    5 * time.Second,
	}
}

// DevDurations is the relaxed profile used with DEV_MODE. Only the reveal,
// action, voting and results phases are shorter.
func DevDurations() Durations {
	return Durations{
		PhaseRoleReveal:     2 * time.Second,
		PhaseThemeReveal:    6 * time.Second,
		PhaseWordReveal:     6 * time.Second,
		PhaseClueSubmission: 20 * time.Second,
		PhaseDiscussion:     30 * time.Second,
		PhaseActionChoice:   10 * time.Second,
		PhaseVoting:         15 * time.Second,
		PhaseVoteResults:    3 * time.Second,
	}
}
