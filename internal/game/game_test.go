// internal/game/game_test.go
package game

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/jason-s-yu/crystal-clear/internal/apperr"
	"github.com/jason-s-yu/crystal-clear/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlayers(names ...string) []models.Player {
	out := make([]models.Player, len(names))
	for i, n := range names {
		out[i] = models.Player{ID: "id_" + n, Name: n}
	}
	return out
}

// setupTestRound starts a round with the given player names and a seeded rng.
func setupTestRound(t *testing.T, seed uint64, names ...string) *RoundState {
	t.Helper()
	r, err := NewRoundState("lobby-1", testPlayers(names...), nil, rand.New(rand.NewPCG(seed, seed+1)))
	require.NoError(t, err)
	require.NoError(t, r.Start())
	require.Equal(t, PhaseRoleReveal, r.Phase)
	return r
}

// forceRoles overrides the random role draw and turn order.
func forceRoles(r *RoundState, impostorID string, order ...string) {
	for id, p := range r.players {
		if id == impostorID {
			p.Role = RoleImpostor
		} else {
			p.Role = RoleDetective
		}
	}
	r.ImpostorID = impostorID
	r.impostor = r.players[impostorID].Player
	r.TurnOrder = append([]string(nil), order...)
}

func advanceTo(t *testing.T, r *RoundState, target Phase) {
	t.Helper()
	for i := 0; i < 50 && r.Phase != target; i++ {
		_, err := r.Advance()
		require.NoError(t, err)
	}
	require.Equal(t, target, r.Phase)
}

func countImpostors(r *RoundState) int {
	n := 0
	for _, p := range r.players {
		if p.Role == RoleImpostor {
			n++
		}
	}
	return n
}

func TestExactlyOneImpostorEveryRound(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		r := setupTestRound(t, seed, "A", "B", "C", "D", "E")
		for round := 0; round < 3; round++ {
			require.Equal(t, 1, countImpostors(r), "seed %d round %d", seed, r.Round)
			imp, ok := r.Participant(r.ImpostorID)
			require.True(t, ok)
			assert.Equal(t, RoleImpostor, imp.Role)

			advanceTo(t, r, PhaseGameOver)
			require.Equal(t, 1, countImpostors(r))
			require.NoError(t, r.StartNextRound())
		}
	}
}

func TestStartShufflesTurnOrderAsPermutation(t *testing.T) {
	r := setupTestRound(t, 7, "A", "B", "C", "D")
	assert.ElementsMatch(t, []string{"id_A", "id_B", "id_C", "id_D"}, r.TurnOrder)
	assert.NotEmpty(t, r.Category)
	assert.Contains(t, defaultWords[r.Category], r.Word)
	assert.Error(t, r.Start(), "start twice")
}

func TestPhaseSequencingReachesDiscussion(t *testing.T) {
	for _, n := range []int{1, 3, 6} {
		names := make([]string, n)
		for i := range names {
			names[i] = fmt.Sprintf("P%d", i)
		}
		r := setupTestRound(t, 1, names...)

		steps, clueAdvances := 0, 0
		for r.Phase != PhaseDiscussion {
			from := r.Phase
			tr, err := r.Advance()
			require.NoError(t, err)
			steps++
			if from == PhaseClueSubmission {
				clueAdvances++
			}
			if tr.TurnAdvanced {
				assert.Equal(t, PhaseClueSubmission, tr.To)
			}
		}
		assert.Equal(t, n, clueAdvances, "players=%d", n)
		assert.Equal(t, 3+n, steps, "players=%d", n)
	}
}

func TestWordRevealResetsTurnIndex(t *testing.T) {
	r := setupTestRound(t, 2, "A", "B", "C")
	r.CurrentPlayerIndex = 2
	advanceTo(t, r, PhaseClueSubmission)
	assert.Equal(t, 0, r.CurrentPlayerIndex)
	assert.Equal(t, r.TurnOrder[0], r.CurrentPlayerID())
}

func TestEpochMovesOnTurnAndPhase(t *testing.T) {
	r := setupTestRound(t, 3, "A", "B")
	e := r.Epoch
	advanceTo(t, r, PhaseClueSubmission)
	assert.Greater(t, r.Epoch, e)
	e = r.Epoch
	tr, err := r.Advance()
	require.NoError(t, err)
	assert.True(t, tr.TurnAdvanced)
	assert.False(t, tr.PhaseChanged())
	assert.Greater(t, r.Epoch, e)
}

func TestSubmitClueRules(t *testing.T) {
	r := setupTestRound(t, 4, "A", "B", "C")
	forceRoles(r, "id_B", "id_C", "id_A", "id_B")

	assert.ErrorIs(t, r.SubmitClue("id_C", "early"), apperr.ErrWrongPhase)
	advanceTo(t, r, PhaseClueSubmission)

	assert.ErrorIs(t, r.SubmitClue("ghost", "x"), apperr.ErrPlayerNotFound)
	assert.ErrorIs(t, r.SubmitClue("id_A", "x"), apperr.ErrNotYourTurn)
	require.NoError(t, r.SubmitClue("id_C", "cold"))
	assert.ErrorIs(t, r.SubmitClue("id_C", "again"), apperr.ErrNotYourTurn, "one clue per turn")

	require.Len(t, r.Clues, 1)
	assert.Equal(t, Clue{PlayerID: "id_C", PlayerName: "C", Clue: "cold"}, r.Clues[0])
	require.Len(t, r.ClueHistory, 1)
	assert.Equal(t, 1, r.ClueHistory[0].Round)
}

func TestClueHistoryDeduplicatesTriple(t *testing.T) {
	r := setupTestRound(t, 5, "A", "B")
	forceRoles(r, "id_B", "id_A", "id_B")
	advanceTo(t, r, PhaseClueSubmission)

	require.NoError(t, r.SubmitClue("id_A", "ice"))
	// A retried request for the same turn.
	r.players["id_A"].Clue = nil
	require.NoError(t, r.SubmitClue("id_A", "ice"))

	assert.Len(t, r.Clues, 2)
	assert.Len(t, r.ClueHistory, 1)
}

func TestClueHistorySurvivesContinue(t *testing.T) {
	r := setupTestRound(t, 6, "A", "B", "C")
	forceRoles(r, "id_A", "id_A", "id_B", "id_C")
	advanceTo(t, r, PhaseClueSubmission)
	for _, id := range []string{"id_A", "id_B", "id_C"} {
		require.NoError(t, r.SubmitClue(id, "same"))
		_, err := r.Advance()
		require.NoError(t, err)
	}
	require.Equal(t, PhaseDiscussion, r.Phase)
	advanceTo(t, r, PhaseActionChoice)
	for _, id := range []string{"id_A", "id_B", "id_C"} {
		require.NoError(t, r.SubmitActionVote(id, ActionContinue))
	}
	tr, err := r.Advance()
	require.NoError(t, err)
	require.True(t, tr.Continued)

	require.NoError(t, r.SubmitClue(r.CurrentPlayerID(), "same"))
	assert.Len(t, r.Clues, 1, "clues are per round")
	assert.Len(t, r.ClueHistory, 4, "same text in a new round is a new triple")
	assert.Equal(t, 2, r.ClueHistory[3].Round)
}

func TestSubmitVoteRejectsSelfVote(t *testing.T) {
	r := setupTestRound(t, 8, "A", "B", "C", "D")
	advanceTo(t, r, PhaseVoting)
	for _, id := range r.TurnOrder {
		assert.ErrorIs(t, r.SubmitVote(id, id), apperr.ErrInvalidTarget)
	}
	assert.Empty(t, r.Votes)
}

func TestSubmitVoteValidation(t *testing.T) {
	r := setupTestRound(t, 9, "A", "B", "C")
	assert.ErrorIs(t, r.SubmitVote("id_A", "id_B"), apperr.ErrWrongPhase)
	advanceTo(t, r, PhaseVoting)
	assert.ErrorIs(t, r.SubmitVote("id_A", "ghost"), apperr.ErrPlayerNotFound)
	assert.ErrorIs(t, r.SubmitVote("ghost", "id_A"), apperr.ErrPlayerNotFound)

	require.NoError(t, r.SubmitVote("id_A", "id_B"))
	require.NoError(t, r.SubmitVote("id_A", "id_C"))
	assert.Equal(t, map[string]string{"id_A": "id_C"}, r.Votes)
	assert.False(t, r.AllVotesIn())
	assert.Equal(t, []string{"id_A"}, r.PlayersVoted())
}

func TestTallyIsPureRecount(t *testing.T) {
	r := setupTestRound(t, 10, "A", "B", "C", "D")
	advanceTo(t, r, PhaseVoting)

	require.NoError(t, r.SubmitVote("id_A", "id_B"))
	require.NoError(t, r.SubmitVote("id_A", "id_B"))
	require.NoError(t, r.SubmitVote("id_C", "id_D"))
	require.NoError(t, r.SubmitVote("id_C", "id_B"))
	require.NoError(t, r.SubmitVote("id_D", "id_A"))

	r.Tally()
	r.Tally()

	for _, id := range r.TurnOrder {
		want := 0
		for _, target := range r.Votes {
			if target == id {
				want++
			}
		}
		p, _ := r.Participant(id)
		assert.Equal(t, want, p.VotesReceived, id)
	}
	p, _ := r.Participant("id_B")
	assert.Equal(t, 2, p.VotesReceived)
}

func TestTieResolutionPicksFromMaximalSet(t *testing.T) {
	seen := map[string]bool{}
	for seed := uint64(0); seed < 40; seed++ {
		r := setupTestRound(t, seed, "A", "B", "C", "D")
		advanceTo(t, r, PhaseVoting)
		require.NoError(t, r.SubmitVote("id_A", "id_B"))
		require.NoError(t, r.SubmitVote("id_B", "id_A"))
		require.NoError(t, r.SubmitVote("id_C", "id_A"))
		require.NoError(t, r.SubmitVote("id_D", "id_B"))
		advanceTo(t, r, PhaseVoteResults)

		res := r.VoteResults()
		require.NotNil(t, res)
		require.NotNil(t, res.VotedOut)
		assert.True(t, res.Tie)
		assert.Len(t, res.TiedPlayers, 2)
		assert.Contains(t, []string{"id_A", "id_B"}, res.VotedOut.ID)
		out, _ := r.Participant(res.VotedOut.ID)
		assert.Equal(t, 2, out.VotesReceived)
		assert.Equal(t, res.VotedOut.ID == r.ImpostorID, res.DetectivesWin)
		seen[res.VotedOut.ID] = true
	}
	assert.Len(t, seen, 2, "both tied players get picked across seeds")
}

func TestNoVotesEliminatesNobody(t *testing.T) {
	r := setupTestRound(t, 11, "A", "B", "C")
	advanceTo(t, r, PhaseVoteResults)
	res := r.VoteResults()
	require.NotNil(t, res)
	assert.Nil(t, res.VotedOut)
	assert.False(t, res.Tie)
	assert.False(t, res.DetectivesWin)
	assert.Equal(t, r.ImpostorID, res.Impostor.ID)
	assert.Empty(t, res.TiedPlayers)
}

func TestActionChoiceMajority(t *testing.T) {
	cases := []struct {
		name     string
		votes    []Action
		wantContinue bool
	}{
		{"two continue one vote", []Action{ActionContinue, ActionContinue, ActionStartVote}, true},
		{"one continue two vote", []Action{ActionContinue, ActionStartVote, ActionStartVote}, false},
		{"tie", []Action{ActionContinue, ActionStartVote}, false},
		{"no votes", nil, false},
		{"single continue", []Action{ActionContinue}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := setupTestRound(t, 12, "A", "B", "C")
			impostor := r.ImpostorID
			advanceTo(t, r, PhaseClueSubmission)
			require.NoError(t, r.SubmitClue(r.CurrentPlayerID(), "hint"))
			advanceTo(t, r, PhaseActionChoice)
			for i, a := range tc.votes {
				require.NoError(t, r.SubmitActionVote(r.TurnOrder[i], a))
			}

			tr, err := r.Advance()
			require.NoError(t, err)
			if tc.wantContinue {
				assert.True(t, tr.Continued)
				assert.Equal(t, PhaseClueSubmission, r.Phase)
				assert.Equal(t, 2, r.Round)
				assert.Equal(t, 0, r.CurrentPlayerIndex)
				assert.Empty(t, r.Clues)
				assert.Empty(t, r.ActionVotes)
				assert.Empty(t, r.Votes)
				assert.Equal(t, impostor, r.ImpostorID, "roles are kept")
				for _, p := range r.Players() {
					assert.Nil(t, p.Clue)
					assert.Empty(t, p.ActionVote)
				}
			} else {
				assert.False(t, tr.Continued)
				assert.Equal(t, PhaseVoting, r.Phase)
				assert.Equal(t, 1, r.Round)
			}
		})
	}
}

func TestActionVoteValidationAndBots(t *testing.T) {
	players := testPlayers("A", "B")
	players = append(players, models.Player{ID: "bot_1", Name: "IceBot1", IsBot: true})
	r, err := NewRoundState("l", players, nil, rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)
	require.NoError(t, r.Start())

	assert.ErrorIs(t, r.SubmitActionVote("id_A", ActionContinue), apperr.ErrWrongPhase)
	advanceTo(t, r, PhaseActionChoice)
	assert.ErrorIs(t, r.SubmitActionVote("id_A", Action("maybe")), apperr.ErrInvalidAction)
	assert.ErrorIs(t, r.SubmitActionVote("ghost", ActionContinue), apperr.ErrPlayerNotFound)

	require.NoError(t, r.SubmitActionVote("bot_1", ActionContinue))
	require.NoError(t, r.SubmitActionVote("id_A", ActionStartVote))
	require.NoError(t, r.SubmitActionVote("id_A", ActionContinue))
	assert.False(t, r.AllActionVotesIn())
	require.NoError(t, r.SubmitActionVote("id_B", ActionStartVote))
	assert.True(t, r.AllActionVotesIn())

	res := r.ActionVoteResult()
	assert.Equal(t, 1, res.ContinueVotes, "bot votes are ignored")
	assert.Equal(t, 1, res.StartVoteVotes)
	assert.Equal(t, ActionStartVote, res.Action)

	st := r.ActionVoteStatus()
	assert.Equal(t, 2, st.TotalPlayers)
	assert.Len(t, st.HasVoted, 2)
}

func TestSkipDiscussionNeedsHalfOfHumans(t *testing.T) {
	players := testPlayers("A", "B", "C")
	players = append(players, models.Player{ID: "bot_1", Name: "IceBot1", IsBot: true})
	r, err := NewRoundState("l", players, nil, rand.New(rand.NewPCG(2, 2)))
	require.NoError(t, err)
	require.NoError(t, r.Start())

	_, err = r.VoteSkipDiscussion("id_A")
	assert.ErrorIs(t, err, apperr.ErrWrongPhase)
	advanceTo(t, r, PhaseDiscussion)

	st, err := r.VoteSkipDiscussion("id_A")
	require.NoError(t, err)
	assert.Equal(t, SkipTally{VoteCount: 1, Needed: 2, TotalHumans: 3}, st)

	st, err = r.VoteSkipDiscussion("id_A")
	require.NoError(t, err)
	assert.Equal(t, 1, st.VoteCount, "idempotent per player")

	st, err = r.VoteSkipDiscussion("bot_1")
	require.NoError(t, err)
	assert.Equal(t, 1, st.VoteCount, "bots don't count")

	st, err = r.VoteSkipDiscussion("id_C")
	require.NoError(t, err)
	assert.True(t, st.ShouldSkip)
}

func TestStartNextRoundOnlyFromGameOver(t *testing.T) {
	r := setupTestRound(t, 13, "A", "B", "C")
	assert.ErrorIs(t, r.StartNextRound(), apperr.ErrWrongPhase)
	advanceTo(t, r, PhaseClueSubmission)
	require.NoError(t, r.SubmitClue(r.CurrentPlayerID(), "first"))
	advanceTo(t, r, PhaseGameOver)
	_, err := r.Advance()
	assert.ErrorIs(t, err, apperr.ErrWrongPhase, "game_over is terminal")

	require.NoError(t, r.StartNextRound())
	assert.Equal(t, PhaseRoleReveal, r.Phase)
	assert.Equal(t, 2, r.Round)
	assert.Empty(t, r.Clues)
	assert.Nil(t, r.VoteResults())
	assert.Len(t, r.ClueHistory, 1, "history is kept across rounds")
	assert.Equal(t, 1, countImpostors(r))
}

func TestRemoveTurnHolder(t *testing.T) {
	r := setupTestRound(t, 14, "A", "B", "C")
	forceRoles(r, "id_A", "id_A", "id_B", "id_C")
	advanceTo(t, r, PhaseClueSubmission)
	require.NoError(t, r.SubmitClue("id_A", "one"))
	_, err := r.Advance()
	require.NoError(t, err)

	held, err := r.RemovePlayer("id_B")
	require.NoError(t, err)
	assert.True(t, held)
	assert.Equal(t, "id_C", r.CurrentPlayerID(), "next player inherits the turn")
	assert.False(t, r.TurnsExhausted())

	held, err = r.RemovePlayer("id_C")
	require.NoError(t, err)
	assert.True(t, held)
	assert.True(t, r.TurnsExhausted())
	tr, err := r.Advance()
	require.NoError(t, err)
	assert.Equal(t, PhaseDiscussion, tr.To)
}

func TestRemoveImpostorEndsRound(t *testing.T) {
	r := setupTestRound(t, 15, "A", "B", "C")
	forceRoles(r, "id_B", "id_A", "id_B", "id_C")
	advanceTo(t, r, PhaseVoting)
	require.NoError(t, r.SubmitVote("id_A", "id_C"))
	require.NoError(t, r.SubmitVote("id_C", "id_B"))

	_, err := r.RemovePlayer("id_B")
	require.NoError(t, err)
	assert.Equal(t, PhaseVoteResults, r.Phase)
	res := r.VoteResults()
	require.NotNil(t, res)
	assert.True(t, res.ImpostorLeft)
	assert.True(t, res.DetectivesWin)
	assert.Equal(t, "id_B", res.Impostor.ID)
	assert.NotContains(t, r.Votes, "id_C", "votes for the leaver are dropped")

	_, err = r.RemovePlayer("ghost")
	assert.ErrorIs(t, err, apperr.ErrPlayerNotFound)
}

func TestBotVoteTargetNeverSelf(t *testing.T) {
	r := setupTestRound(t, 16, "A", "B", "C")
	for i := 0; i < 50; i++ {
		target, ok := r.BotVoteTarget("id_A")
		require.True(t, ok)
		assert.NotEqual(t, "id_A", target)
	}
	solo := setupTestRound(t, 16, "A")
	_, ok := solo.BotVoteTarget("id_A")
	assert.False(t, ok)
}

// TestThreePlayerScenario plays A, B, C with B as impostor and turn order C, A, B.
func TestThreePlayerScenario(t *testing.T) {
	r, err := NewRoundState("lobby-test", testPlayers("A", "B", "C"),
		WordSource{"animals": {"penguin"}}, rand.New(rand.NewPCG(3, 3)))
	require.NoError(t, err)
	require.NoError(t, r.Start())
	forceRoles(r, "id_B", "id_C", "id_A", "id_B")
	assert.Equal(t, "animals", r.Category)
	assert.Equal(t, "penguin", r.Word)

	advanceTo(t, r, PhaseClueSubmission)
	for i, id := range []string{"id_C", "id_A", "id_B"} {
		require.Equal(t, id, r.CurrentPlayerID())
		require.NoError(t, r.SubmitClue(id, fmt.Sprintf("clue-%d", i)))
		_, err := r.Advance()
		require.NoError(t, err)
	}
	require.Equal(t, PhaseDiscussion, r.Phase)
	assert.Equal(t, []string{"id_C", "id_A", "id_B"}, []string{r.Clues[0].PlayerID, r.Clues[1].PlayerID, r.Clues[2].PlayerID})

	advanceTo(t, r, PhaseActionChoice)
	for _, id := range r.TurnOrder {
		require.NoError(t, r.SubmitActionVote(id, ActionStartVote))
	}
	_, err = r.Advance()
	require.NoError(t, err)
	require.Equal(t, PhaseVoting, r.Phase)

	require.NoError(t, r.SubmitVote("id_A", "id_B"))
	require.NoError(t, r.SubmitVote("id_C", "id_B"))
	require.NoError(t, r.SubmitVote("id_B", "id_A"))
	require.True(t, r.AllVotesIn())

	_, err = r.Advance()
	require.NoError(t, err)
	res := r.VoteResults()
	require.NotNil(t, res.VotedOut)
	assert.Equal(t, "id_B", res.VotedOut.ID)
	assert.False(t, res.Tie)
	assert.True(t, res.ImpostorCaught)
	assert.True(t, res.DetectivesWin)
	b, _ := r.Participant("id_B")
	assert.Equal(t, 2, b.VotesReceived)
}
