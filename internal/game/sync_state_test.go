package game

import (
	"encoding/json"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewHidesWordFromImpostorUntilGameOver(t *testing.T) {
	r := setupTestRound(t, 20, "A", "B", "C")
	forceRoles(r, "id_B", "id_A", "id_B", "id_C")

	for r.Phase != PhaseGameOver {
		imp := r.ViewFor("id_B")
		assert.Nil(t, imp.Word, "phase %s", r.Phase)
		assert.Nil(t, imp.ImpostorID)
		require.NotNil(t, imp.MyRole)
		assert.Equal(t, RoleImpostor, *imp.MyRole)
		assert.Equal(t, r.Category, imp.Category, "the impostor knows the category")

		det := r.ViewFor("id_A")
		require.NotNil(t, det.Word, "phase %s", r.Phase)
		assert.Equal(t, r.Word, *det.Word)
		assert.Nil(t, det.ImpostorID)
		require.NotNil(t, det.MyRole)
		assert.Equal(t, RoleDetective, *det.MyRole)

		for _, view := range []PlayerView{imp, det} {
			for _, p := range view.Players {
				if p.ID == "id_B" && view.MyRole != nil && *view.MyRole == RoleImpostor {
					continue
				}
				if p.ID == "id_A" && view.MyRole != nil && *view.MyRole == RoleDetective {
					continue
				}
				assert.Nil(t, p.Role, "role of %s leaked in %s", p.ID, r.Phase)
			}
		}
		_, err := r.Advance()
		require.NoError(t, err)
	}

	over := r.ViewFor("id_B")
	require.NotNil(t, over.Word)
	require.NotNil(t, over.ImpostorID)
	assert.Equal(t, "id_B", *over.ImpostorID)
	for _, p := range over.Players {
		assert.NotNil(t, p.Role)
	}
	assert.NotNil(t, over.VoteResults)
}

func TestViewForOutsider(t *testing.T) {
	r := setupTestRound(t, 21, "A", "B")
	v := r.ViewFor("stranger")
	assert.Nil(t, v.Word)
	assert.Nil(t, v.MyRole)
	for _, p := range v.Players {
		assert.Nil(t, p.Role)
	}
}

func TestViewsAreIndependentCopies(t *testing.T) {
	r := setupTestRound(t, 22, "A", "B", "C")
	forceRoles(r, "id_C", "id_A", "id_B", "id_C")
	advanceTo(t, r, PhaseClueSubmission)
	require.NoError(t, r.SubmitClue("id_A", "snow"))

	a := r.ViewFor("id_A")
	b := r.ViewFor("id_B")
	a.Clues[0].Clue = "tampered"
	a.AllCluesHistory[0].Clue.Clue = "tampered"
	*a.Players[0].Clue = "tampered"

	assert.Equal(t, "snow", b.Clues[0].Clue)
	assert.Equal(t, "snow", r.Clues[0].Clue)
	assert.Equal(t, "snow", r.ClueHistory[0].Clue.Clue)
	p, _ := r.Participant("id_A")
	assert.Equal(t, "snow", *p.Clue)
}

func TestViewPhaseSpecificFields(t *testing.T) {
	r := setupTestRound(t, 23, "A", "B", "C")
	advanceTo(t, r, PhaseDiscussion)
	v := r.ViewFor("id_A")
	require.NotNil(t, v.SkipDiscussion)
	assert.Equal(t, 2, v.SkipDiscussion.Needed)
	assert.Nil(t, v.ActionVoteStatus)

	advanceTo(t, r, PhaseActionChoice)
	v = r.ViewFor("id_A")
	require.NotNil(t, v.ActionVoteStatus)
	assert.Equal(t, 3, v.ActionVoteStatus.TotalPlayers)

	advanceTo(t, r, PhaseVoting)
	require.NoError(t, r.SubmitVote("id_A", "id_B"))
	v = r.ViewFor("id_C")
	assert.Nil(t, v.VoteResults)
	for _, p := range v.Players {
		assert.Equal(t, p.ID == "id_A", p.HasVoted)
	}

	advanceTo(t, r, PhaseVoteResults)
	v = r.ViewFor("id_C")
	require.NotNil(t, v.VoteResults)
	assert.Nil(t, v.ImpostorID, "impostorId waits for game_over")
}

func TestViewJSONUsesNullForHiddenFields(t *testing.T) {
	r, err := NewRoundState("l", testPlayers("A", "B"), nil, rand.New(rand.NewPCG(4, 4)))
	require.NoError(t, err)
	require.NoError(t, r.Start())
	forceRoles(r, "id_A", "id_A", "id_B")

	data, err := json.Marshal(r.ViewFor("id_A"))
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "word")
	assert.Nil(t, decoded["word"])
	assert.Nil(t, decoded["impostorId"])
	assert.Equal(t, "impostor", decoded["myRole"])
}
