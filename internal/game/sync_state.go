// internal/game/sync_state.go
package game

// PlayerStateView is one player as seen by a particular recipient.
type PlayerStateView struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Avatar          string  `json:"avatar,omitempty"`
	ProfilePicIndex int     `json:"profilePicIndex"`
	IsBot           bool    `json:"isBot,omitempty"`
	Role            *Role   `json:"role"`
	Clue            *string `json:"clue"`
	HasVoted        bool    `json:"hasVoted"`
	VotesReceived   int     `json:"votesReceived"`
	ActionVote      *Action `json:"actionVote"`
}

// PlayerView is the filtered game state sent to one player.
type PlayerView struct {
	ID                 string            `json:"id"`
	LobbyID            string            `json:"lobbyId"`
	Phase              Phase             `json:"phase"`
	Round              int               `json:"round"`
	Category           string            `json:"category"`
	Word               *string           `json:"word"`
	ImpostorID         *string           `json:"impostorId"`
	MyRole             *Role             `json:"myRole"`
	CurrentPlayerIndex int               `json:"currentPlayerIndex"`
	CurrentPlayerID    string            `json:"currentPlayerId,omitempty"`
	Players            []PlayerStateView `json:"players"`
	Clues              []Clue            `json:"clues"`
	AllCluesHistory    []HistoryClue     `json:"allCluesHistory"`
	PhaseEndTime       int64             `json:"phaseEndTime,omitempty"`
	ActionVoteStatus   *ActionVoteStatus `json:"actionVoteStatus"`
	SkipDiscussion     *SkipTally        `json:"skipDiscussion,omitempty"`
	VoteResults        *VoteResults      `json:"voteResults,omitempty"`
}

// ViewFor builds a fresh projection of the game for forPlayer. Nothing in the
// result aliases the round's own slices or maps, so each recipient can be
// handed its own copy.
//
// Hidden until game_over: other players' roles, impostorId, and the word when
// forPlayer is the impostor.
func (r *RoundState) ViewFor(forPlayer string) PlayerView {
	over := r.Phase == PhaseGameOver
	me, isMember := r.players[forPlayer]

	v := PlayerView{
		ID:                 r.ID,
		LobbyID:            r.LobbyID,
		Phase:              r.Phase,
		Round:              r.Round,
		Category:           r.Category,
		CurrentPlayerIndex: r.CurrentPlayerIndex,
		CurrentPlayerID:    r.CurrentPlayerID(),
		Players:            make([]PlayerStateView, 0, len(r.TurnOrder)),
		Clues:              append([]Clue{}, r.Clues...),
		AllCluesHistory:    append([]HistoryClue{}, r.ClueHistory...),
	}
	if !r.PhaseEndTime.IsZero() {
		v.PhaseEndTime = r.PhaseEndTime.UnixMilli()
	}

	if isMember && me.Role != RoleUnassigned {
		role := me.Role
		v.MyRole = &role
	}
	// Non-members never see the word before game_over.
	if r.Word != "" && (over || (isMember && me.Role != RoleImpostor)) {
		word := r.Word
		v.Word = &word
	}
	if over && r.ImpostorID != "" {
		id := r.ImpostorID
		v.ImpostorID = &id
	}

	for _, id := range r.TurnOrder {
		p := r.players[id]
		ps := PlayerStateView{
			ID:              p.ID,
			Name:            p.Name,
			Avatar:          p.Avatar,
			ProfilePicIndex: p.ProfilePicIndex,
			IsBot:           p.IsBot,
			HasVoted:        p.Vote != "",
			VotesReceived:   p.VotesReceived,
		}
		if p.Role != RoleUnassigned && (over || id == forPlayer) {
			role := p.Role
			ps.Role = &role
		}
		if p.Clue != nil {
			clue := *p.Clue
			ps.Clue = &clue
		}
		if p.ActionVote != "" {
			a := p.ActionVote
			ps.ActionVote = &a
		}
		v.Players = append(v.Players, ps)
	}

	switch r.Phase {
	case PhaseActionChoice:
		v.ActionVoteStatus = r.ActionVoteStatus()
	case PhaseDiscussion:
		st := r.SkipTally()
		v.SkipDiscussion = &st
	case PhaseVoteResults, PhaseGameOver:
		v.VoteResults = r.results.clone()
	}
	return v
}

func (res *VoteResults) clone() *VoteResults {
	if res == nil {
		return nil
	}
	out := *res
	if res.VotedOut != nil {
		ref := *res.VotedOut
		out.VotedOut = &ref
	}
	out.TiedPlayers = append([]PlayerRef{}, res.TiedPlayers...)
	out.Votes = make(map[string]string, len(res.Votes))
	for k, v := range res.Votes {
		out.Votes[k] = v
	}
	out.VoteDetails = make([]VoteDetail, len(res.VoteDetails))
	for i, d := range res.VoteDetails {
		if d.VotedFor != nil {
			target := *d.VotedFor
			d.VotedFor = &target
		}
		out.VoteDetails[i] = d
	}
	return &out
}
