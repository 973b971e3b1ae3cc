package game

import "github.com/jason-s-yu/crystal-clear/internal/models"

// PlayerRef is the public identity of a player inside result payloads.
type PlayerRef struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ProfilePicIndex int    `json:"profilePicIndex"`
	Avatar          string `json:"avatar,omitempty"`
}

func refOf(p models.Player) PlayerRef {
	return PlayerRef{ID: p.ID, Name: p.Name, ProfilePicIndex: p.ProfilePicIndex, Avatar: p.Avatar}
}

// VoteDetail is one row of the per-player vote breakdown.
type VoteDetail struct {
	PlayerRef
	VotedFor      *string `json:"votedFor"`
	VotesReceived int     `json:"votesReceived"`
}

// VoteResults is the outcome of a voting phase.
type VoteResults struct {
	VotedOut       *PlayerRef        `json:"votedOut"`
	Tie            bool              `json:"tie"`
	TiedPlayers    []PlayerRef       `json:"tiedPlayers"`
	ImpostorCaught bool              `json:"impostorCaught"`
	DetectivesWin  bool              `json:"detectivesWin"`
	Impostor       PlayerRef         `json:"impostor"`
	Votes          map[string]string `json:"votes"`
	VoteDetails    []VoteDetail      `json:"voteDetails"`
	ImpostorLeft   bool              `json:"impostorLeft,omitempty"`
}

// ActionVoteResult is the resolved action_choice outcome.
type ActionVoteResult struct {
	Action         Action `json:"action"`
	ContinueVotes  int    `json:"continueVotes"`
	StartVoteVotes int    `json:"startVoteVotes"`
	TotalVotes     int    `json:"totalVotes"`
}

// ActionVoter is one human's action_choice status.
type ActionVoter struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	HasVoted bool    `json:"hasVoted"`
	Vote     *Action `json:"vote"`
}

// ActionVoteStatus is the running action_choice tally.
type ActionVoteStatus struct {
	ContinueVotes  int           `json:"continueVotes"`
	StartVoteVotes int           `json:"startVoteVotes"`
	TotalPlayers   int           `json:"totalPlayers"`
	HasVoted       []ActionVoter `json:"hasVoted"`
}

// SkipTally is the discussion skip-vote count.
type SkipTally struct {
	VoteCount   int  `json:"voteCount"`
	Needed      int  `json:"needed"`
	TotalHumans int  `json:"totalHumans"`
	ShouldSkip  bool `json:"shouldSkip"`
}
