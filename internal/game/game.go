// internal/game/game.go
package game

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/crystal-clear/internal/apperr"
	"github.com/jason-s-yu/crystal-clear/internal/models"
)

// Role is a player's hidden allegiance for the current round.
type Role string

const (
	RoleUnassigned Role = "unassigned"
	RoleImpostor   Role = "impostor"
	RoleDetective  Role = "detective"
)

// Action is a vote cast during action_choice.
type Action string

const (
	ActionContinue  Action = "continue"
	ActionStartVote Action = "start_vote"
)

// Participant is a player's per-round record. Everything except the embedded
// identity is reset at the start of every round.
type Participant struct {
	models.Player
	Role          Role
	Clue          *string
	Vote          string // target id, "" if none
	VotesReceived int
	ActionVote    Action // "" if none
}

// Clue is one accepted clue of the current round.
type Clue struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Clue       string `json:"clue"`
}

// HistoryClue is a clue tagged with the round it was given in.
type HistoryClue struct {
	Clue
	Round int `json:"round"`
}

// Transition describes what a single Advance did.
type Transition struct {
	From Phase
	To   Phase
	// TurnAdvanced is set when clue_submission moved to the next player without
	// leaving the phase.
	TurnAdvanced bool
	// Continued is set when action_choice resolved to another clue round.
	Continued bool
}

// PhaseChanged reports whether the transition crossed a phase boundary.
func (t Transition) PhaseChanged() bool {
	return t.From != t.To
}

// RoundState is the authoritative state of one lobby's game. It is not safe for
// concurrent use; the owner serializes every call.
type RoundState struct {
	ID      string
	LobbyID string
	Phase   Phase
	Round   int
	// Epoch increases on every phase change and every turn change. Scheduled
	// commands carry the epoch they were armed for and are dropped if it moved.
	Epoch uint64

	TurnOrder          []string
	CurrentPlayerIndex int

	Category   string
	Word       string
	ImpostorID string

	Clues       []Clue
	ClueHistory []HistoryClue

	Votes               map[string]string
	ActionVotes         map[string]Action
	SkipDiscussionVotes map[string]struct{}

	PhaseEndTime time.Time

	players  map[string]*Participant
	impostor models.Player
	results  *VoteResults
	words    WordSource
	rng      *rand.Rand
}

// NewRoundState builds a game in the waiting phase. players keeps its order until
// Start shuffles it.
func NewRoundState(lobbyID string, players []models.Player, words WordSource, rng *rand.Rand) (*RoundState, error) {
	if len(players) == 0 {
		return nil, fmt.Errorf("round for lobby %s needs at least one player", lobbyID)
	}
	if words == nil {
		words = DefaultWords()
	}
	if err := words.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	r := &RoundState{
		ID:      uuid.NewString(),
		LobbyID: lobbyID,
		Phase:   PhaseWaiting,
		Round:   1,
		players: make(map[string]*Participant, len(players)),
		words:   words,
		rng:     rng,
	}
	for _, p := range players {
		if _, dup := r.players[p.ID]; dup {
			continue
		}
		r.players[p.ID] = &Participant{Player: p, Role: RoleUnassigned}
		r.TurnOrder = append(r.TurnOrder, p.ID)
	}
	r.resetRoundFields()
	return r, nil
}

// Start draws the first word, assigns roles, shuffles the turn order and enters
// role_reveal.
func (r *RoundState) Start() error {
	if r.Phase != PhaseWaiting {
		return apperr.ErrWrongPhase
	}
	r.Category, r.Word = r.words.Draw(r.rng)
	r.assignRoles()
	r.shuffleTurnOrder()
	r.setPhase(PhaseRoleReveal)
	return nil
}

// StartNextRound begins a fresh round after game_over: new word, new roles, new
// turn order, round counter incremented.
func (r *RoundState) StartNextRound() error {
	if r.Phase != PhaseGameOver {
		return apperr.ErrWrongPhase
	}
	r.Category, r.Word = r.words.Draw(r.rng)
	r.resetRoundFields()
	r.assignRoles()
	r.shuffleTurnOrder()
	r.Round++
	r.setPhase(PhaseRoleReveal)
	return nil
}

// Advance performs exactly one step of the state machine. It is the single entry
// point for both timer expiry and player-driven completion.
func (r *RoundState) Advance() (Transition, error) {
	t := Transition{From: r.Phase}
	switch r.Phase {
	case PhaseRoleReveal:
		r.setPhase(PhaseThemeReveal)
	case PhaseThemeReveal:
		r.setPhase(PhaseWordReveal)
	case PhaseWordReveal:
		r.CurrentPlayerIndex = 0
		r.setPhase(PhaseClueSubmission)
	case PhaseClueSubmission:
		if r.CurrentPlayerIndex >= len(r.TurnOrder)-1 {
			r.setPhase(PhaseDiscussion)
		} else {
			r.CurrentPlayerIndex++
			r.Epoch++
			t.TurnAdvanced = true
		}
	case PhaseDiscussion:
		r.setPhase(PhaseActionChoice)
	case PhaseActionChoice:
		if r.ActionVoteResult().Action == ActionContinue {
			r.continueRound()
			t.Continued = true
		} else {
			r.setPhase(PhaseVoting)
		}
	case PhaseVoting:
		r.Tally()
		r.results = r.computeVoteResults()
		r.setPhase(PhaseVoteResults)
	case PhaseVoteResults:
		r.setPhase(PhaseGameOver)
	default:
		return t, apperr.ErrWrongPhase
	}
	t.To = r.Phase
	return t, nil
}

// continueRound runs another clue round with the same roles.
func (r *RoundState) continueRound() {
	r.Round++
	r.resetRoundFields()
	r.Category, r.Word = r.words.Draw(r.rng)
	r.CurrentPlayerIndex = 0
	r.setPhase(PhaseClueSubmission)
}

// SubmitClue records the current turn holder's clue. It does not advance the
// turn; the caller decides when to call Advance.
func (r *RoundState) SubmitClue(playerID, text string) error {
	if r.Phase != PhaseClueSubmission {
		return apperr.ErrWrongPhase
	}
	p, ok := r.players[playerID]
	if !ok {
		return apperr.ErrPlayerNotFound
	}
	if r.CurrentPlayerID() != playerID || p.Clue != nil {
		return apperr.ErrNotYourTurn
	}

	p.Clue = &text
	entry := Clue{PlayerID: playerID, PlayerName: p.Name, Clue: text}
	r.Clues = append(r.Clues, entry)
	if !r.inHistory(playerID, text) {
		r.ClueHistory = append(r.ClueHistory, HistoryClue{Clue: entry, Round: r.Round})
	}
	return nil
}

func (r *RoundState) inHistory(playerID, text string) bool {
	for _, c := range r.ClueHistory {
		if c.PlayerID == playerID && c.Round == r.Round && c.Clue.Clue == text {
			return true
		}
	}
	return false
}

// IsLastTurn reports whether the current turn holder is the last in order.
func (r *RoundState) IsLastTurn() bool {
	return r.CurrentPlayerIndex >= len(r.TurnOrder)-1
}

// TurnsExhausted reports whether clue_submission has no turn holder left, which
// happens when the last player in order leaves while holding the turn.
func (r *RoundState) TurnsExhausted() bool {
	return r.Phase == PhaseClueSubmission && r.CurrentPlayerIndex >= len(r.TurnOrder)
}

// SubmitVote records voterID's vote for targetID, replacing any earlier vote.
func (r *RoundState) SubmitVote(voterID, targetID string) error {
	if r.Phase != PhaseVoting {
		return apperr.ErrWrongPhase
	}
	voter, ok := r.players[voterID]
	if !ok {
		return apperr.ErrPlayerNotFound
	}
	if voterID == targetID {
		return apperr.ErrInvalidTarget
	}
	if _, ok := r.players[targetID]; !ok {
		return apperr.ErrPlayerNotFound
	}
	voter.Vote = targetID
	r.Votes[voterID] = targetID
	return nil
}

// AllVotesIn reports whether every player, bots included, has voted.
func (r *RoundState) AllVotesIn() bool {
	for _, p := range r.players {
		if p.Vote == "" {
			return false
		}
	}
	return true
}

// PlayersVoted lists the ids of players who have voted, in turn order.
func (r *RoundState) PlayersVoted() []string {
	out := []string{}
	for _, id := range r.TurnOrder {
		if r.players[id].Vote != "" {
			out = append(out, id)
		}
	}
	return out
}

// SubmitActionVote records a continue/start_vote choice, replacing any earlier one.
func (r *RoundState) SubmitActionVote(playerID string, action Action) error {
	if r.Phase != PhaseActionChoice {
		return apperr.ErrWrongPhase
	}
	p, ok := r.players[playerID]
	if !ok {
		return apperr.ErrPlayerNotFound
	}
	if action != ActionContinue && action != ActionStartVote {
		return apperr.ErrInvalidAction
	}
	p.ActionVote = action
	r.ActionVotes[playerID] = action
	return nil
}

// AllActionVotesIn reports whether every human player has chosen an action.
// Bots never take part in action_choice.
func (r *RoundState) AllActionVotesIn() bool {
	for _, p := range r.players {
		if !p.IsBot && p.ActionVote == "" {
			return false
		}
	}
	return true
}

// ActionVoteResult counts action votes from human players. continue needs a
// strict majority of votes cast; ties go to voting.
func (r *RoundState) ActionVoteResult() ActionVoteResult {
	var res ActionVoteResult
	for id, a := range r.ActionVotes {
		if p, ok := r.players[id]; !ok || p.IsBot {
			continue
		}
		switch a {
		case ActionContinue:
			res.ContinueVotes++
		case ActionStartVote:
			res.StartVoteVotes++
		}
	}
	res.TotalVotes = res.ContinueVotes + res.StartVoteVotes
	res.Action = ActionStartVote
	if res.ContinueVotes > res.StartVoteVotes {
		res.Action = ActionContinue
	}
	return res
}

// ActionVoteStatus is the live action_choice tally shown to clients.
func (r *RoundState) ActionVoteStatus() *ActionVoteStatus {
	res := r.ActionVoteResult()
	st := &ActionVoteStatus{
		ContinueVotes:  res.ContinueVotes,
		StartVoteVotes: res.StartVoteVotes,
		HasVoted:       []ActionVoter{},
	}
	for _, id := range r.TurnOrder {
		p := r.players[id]
		if p.IsBot {
			continue
		}
		st.TotalPlayers++
		v := ActionVoter{ID: p.ID, Name: p.Name, HasVoted: p.ActionVote != ""}
		if p.ActionVote != "" {
			a := p.ActionVote
			v.Vote = &a
		}
		st.HasVoted = append(st.HasVoted, v)
	}
	return st
}

// VoteSkipDiscussion registers a human's wish to end discussion early.
func (r *RoundState) VoteSkipDiscussion(playerID string) (SkipTally, error) {
	if r.Phase != PhaseDiscussion {
		return SkipTally{}, apperr.ErrWrongPhase
	}
	p, ok := r.players[playerID]
	if !ok {
		return SkipTally{}, apperr.ErrPlayerNotFound
	}
	if !p.IsBot {
		r.SkipDiscussionVotes[playerID] = struct{}{}
	}
	return r.SkipTally(), nil
}

// SkipTally counts skip votes against ceil(humans/2).
func (r *RoundState) SkipTally() SkipTally {
	humans := r.HumanCount()
	st := SkipTally{
		Needed:      (humans + 1) / 2,
		TotalHumans: humans,
	}
	for id := range r.SkipDiscussionVotes {
		if p, ok := r.players[id]; ok && !p.IsBot {
			st.VoteCount++
		}
	}
	st.ShouldSkip = st.VoteCount >= st.Needed
	return st
}

// HumanCount is the number of non-bot players in the round.
func (r *RoundState) HumanCount() int {
	n := 0
	for _, p := range r.players {
		if !p.IsBot {
			n++
		}
	}
	return n
}

// Tally recomputes every player's votesReceived from the votes map. It never
// increments, so revotes cannot double count.
func (r *RoundState) Tally() {
	for _, p := range r.players {
		p.VotesReceived = 0
	}
	for _, target := range r.Votes {
		if p, ok := r.players[target]; ok {
			p.VotesReceived++
		}
	}
}

// VoteResults returns the outcome frozen when voting closed, or nil before that.
func (r *RoundState) VoteResults() *VoteResults {
	return r.results
}

func (r *RoundState) computeVoteResults() *VoteResults {
	maxVotes := 0
	for _, p := range r.players {
		if p.VotesReceived > maxVotes {
			maxVotes = p.VotesReceived
		}
	}

	var top []*Participant
	if maxVotes > 0 {
		for _, id := range r.TurnOrder {
			if p := r.players[id]; p.VotesReceived == maxVotes {
				top = append(top, p)
			}
		}
	}

	res := &VoteResults{
		Tie:         len(top) > 1,
		TiedPlayers: []PlayerRef{},
		Impostor:    refOf(r.impostor),
		Votes:       make(map[string]string, len(r.Votes)),
		VoteDetails: make([]VoteDetail, 0, len(r.TurnOrder)),
	}
	if len(top) > 0 {
		out := top[r.rng.IntN(len(top))]
		ref := refOf(out.Player)
		res.VotedOut = &ref
		res.ImpostorCaught = out.ID == r.ImpostorID
	}
	if res.Tie {
		for _, p := range top {
			res.TiedPlayers = append(res.TiedPlayers, refOf(p.Player))
		}
	}
	res.DetectivesWin = res.ImpostorCaught
	for voter, target := range r.Votes {
		res.Votes[voter] = target
	}
	for _, id := range r.TurnOrder {
		p := r.players[id]
		d := VoteDetail{PlayerRef: refOf(p.Player), VotesReceived: p.VotesReceived}
		if p.Vote != "" {
			v := p.Vote
			d.VotedFor = &v
		}
		res.VoteDetails = append(res.VoteDetails, d)
	}
	return res
}

// RemovePlayer drops a player who explicitly left mid-game. Votes cast by or
// for them are discarded. It reports whether the player held the clue turn.
// If the impostor leaves a running round, the round ends in the detectives'
// favour and jumps to vote_results.
func (r *RoundState) RemovePlayer(playerID string) (heldTurn bool, err error) {
	if _, ok := r.players[playerID]; !ok {
		return false, apperr.ErrPlayerNotFound
	}
	idx := -1
	for i, id := range r.TurnOrder {
		if id == playerID {
			idx = i
			break
		}
	}
	heldTurn = r.Phase == PhaseClueSubmission && idx == r.CurrentPlayerIndex

	delete(r.players, playerID)
	r.TurnOrder = append(r.TurnOrder[:idx], r.TurnOrder[idx+1:]...)
	if idx < r.CurrentPlayerIndex {
		r.CurrentPlayerIndex--
	}
	delete(r.Votes, playerID)
	for voter, target := range r.Votes {
		if target == playerID {
			delete(r.Votes, voter)
			if p, ok := r.players[voter]; ok {
				p.Vote = ""
			}
		}
	}
	delete(r.ActionVotes, playerID)
	delete(r.SkipDiscussionVotes, playerID)

	if playerID == r.ImpostorID && r.Phase.InRound() && r.Phase != PhaseVoteResults {
		r.Tally()
		r.results = r.computeVoteResults()
		r.results.ImpostorLeft = true
		r.results.DetectivesWin = true
		r.setPhase(PhaseVoteResults)
		return heldTurn, nil
	}
	if heldTurn {
		r.Epoch++
	}
	return heldTurn, nil
}

// CurrentPlayerID returns the clue turn holder, or "" outside clue_submission.
func (r *RoundState) CurrentPlayerID() string {
	if r.Phase != PhaseClueSubmission || r.CurrentPlayerIndex < 0 || r.CurrentPlayerIndex >= len(r.TurnOrder) {
		return ""
	}
	return r.TurnOrder[r.CurrentPlayerIndex]
}

// Participant returns the round record of playerID.
func (r *RoundState) Participant(playerID string) (*Participant, bool) {
	p, ok := r.players[playerID]
	return p, ok
}

// Players returns the participants in turn order.
func (r *RoundState) Players() []*Participant {
	out := make([]*Participant, 0, len(r.TurnOrder))
	for _, id := range r.TurnOrder {
		out = append(out, r.players[id])
	}
	return out
}

// BotVoteTarget picks a uniformly random player other than botID.
func (r *RoundState) BotVoteTarget(botID string) (string, bool) {
	others := make([]string, 0, len(r.TurnOrder))
	for _, id := range r.TurnOrder {
		if id != botID {
			others = append(others, id)
		}
	}
	if len(others) == 0 {
		return "", false
	}
	return others[r.rng.IntN(len(others))], true
}

// assignRoles picks one impostor uniformly; everyone else is a detective.
func (r *RoundState) assignRoles() {
	ids := r.TurnOrder
	pick := ids[r.rng.IntN(len(ids))]
	for _, id := range ids {
		p := r.players[id]
		if id == pick {
			p.Role = RoleImpostor
		} else {
			p.Role = RoleDetective
		}
	}
	r.ImpostorID = pick
	r.impostor = r.players[pick].Player
}

func (r *RoundState) shuffleTurnOrder() {
	r.rng.Shuffle(len(r.TurnOrder), func(i, j int) {
		r.TurnOrder[i], r.TurnOrder[j] = r.TurnOrder[j], r.TurnOrder[i]
	})
	r.CurrentPlayerIndex = 0
}

func (r *RoundState) resetRoundFields() {
	for _, p := range r.players {
		p.Clue = nil
		p.Vote = ""
		p.VotesReceived = 0
		p.ActionVote = ""
	}
	r.Clues = []Clue{}
	r.Votes = make(map[string]string)
	r.ActionVotes = make(map[string]Action)
	r.SkipDiscussionVotes = make(map[string]struct{})
	r.results = nil
}

// setPhase moves to p and bumps the epoch. Assumes the caller serializes access.
func (r *RoundState) setPhase(p Phase) {
	r.Phase = p
	r.Epoch++
	r.PhaseEndTime = time.Time{}
}
