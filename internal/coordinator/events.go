// internal/coordinator/events.go
package coordinator

import (
	"github.com/jason-s-yu/crystal-clear/internal/game"
	"github.com/jason-s-yu/crystal-clear/internal/models"
)

// Server -> client event names.
const (
	EventLobbyPlayerJoined = "lobby:playerJoined"
	EventLobbyPlayerLeft   = "lobby:playerLeft"
	EventLobbyUpdated      = "lobby:updated"

	EventGameStarted              = "game:started"
	EventGameState                = "game:state"
	EventPhaseChanged             = "game:phaseChanged"
	EventClueSubmitted            = "game:clueSubmitted"
	EventVoteSubmitted            = "game:voteSubmitted"
	EventActionVoteSubmitted      = "game:actionVoteSubmitted"
	EventTimerStarted             = "game:timerStarted"
	EventSkipDiscussionVoteUpdate = "game:skipDiscussionVoteUpdate"
	EventGameEnded                = "game:ended"
)

type GameStartedPayload struct {
	Phase game.Phase `json:"phase"`
}

type PhaseChangedPayload struct {
	Phase            game.Phase             `json:"phase"`
	Round            int                    `json:"round"`
	VoteResults      *game.VoteResults      `json:"voteResults,omitempty"`
	ActionVoteStatus *game.ActionVoteStatus `json:"actionVoteStatus,omitempty"`
}

type ClueSubmittedPayload struct {
	Clues              []game.Clue `json:"clues"`
	CurrentPlayerIndex int         `json:"currentPlayerIndex"`
	CurrentPlayerID    string      `json:"currentPlayerId"`
}

type VoteSubmittedPayload struct {
	PlayersVoted []string `json:"playersVoted"`
}

type ActionVoteSubmittedPayload struct {
	ActionVoteStatus *game.ActionVoteStatus `json:"actionVoteStatus"`
}

type GameEndedPayload struct {
	Lobby models.LobbyInfo `json:"lobby"`
}

// JoinResult answers player:join and player:reconnect.
type JoinResult struct {
	Player       models.Player       `json:"player"`
	Token        string              `json:"token,omitempty"`
	ServerConfig models.ServerConfig `json:"serverConfig"`
	Restored     bool                `json:"restored"`
	Lobby        *models.LobbyInfo   `json:"lobby,omitempty"`
	State        *game.PlayerView    `json:"state,omitempty"`
}

// LeaveResult answers lobby:leave.
type LeaveResult struct {
	LobbyID      string `json:"lobbyId"`
	LobbyDeleted bool   `json:"lobbyDeleted"`
	NewHostID    string `json:"newHostId,omitempty"`
}
