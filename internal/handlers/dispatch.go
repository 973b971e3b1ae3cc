// internal/handlers/dispatch.go
package handlers

import (
	"encoding/json"

	"github.com/jason-s-yu/crystal-clear/internal/apperr"
	"github.com/jason-s-yu/crystal-clear/internal/coordinator"
	"github.com/jason-s-yu/crystal-clear/internal/game"
	"github.com/jason-s-yu/crystal-clear/internal/models"
	"github.com/jason-s-yu/crystal-clear/internal/session"
)

type joinRequest struct {
	Name            string `json:"name"`
	IsGuest         *bool  `json:"isGuest"`
	ProfilePicIndex int    `json:"profilePicIndex"`
}

func (r joinRequest) profile() session.Profile {
	guest := true
	if r.IsGuest != nil {
		guest = *r.IsGuest
	}
	return session.Profile{
		Name:            clampText(r.Name, maxNameLength),
		IsGuest:         guest,
		ProfilePicIndex: r.ProfilePicIndex,
	}
}

type reconnectRequest struct {
	joinRequest
	PlayerID string `json:"playerId"`
	Token    string `json:"token"`
}

type createLobbyRequest struct {
	Name       string `json:"name"`
	MaxPlayers int    `json:"maxPlayers"`
	Password   string `json:"password"`
}

type joinLobbyRequest struct {
	LobbyID  string `json:"lobbyId"`
	Code     string `json:"code"`
	Password string `json:"password"`
}

type uploadWordsRequest struct {
	WordData json.RawMessage `json:"wordData"`
}

type clueRequest struct {
	Clue string `json:"clue"`
}

type voteRequest struct {
	VotedForID string `json:"votedForId"`
}

type actionVoteRequest struct {
	Action game.Action `json:"action"`
}

type route func(h *WSHandler, connID string, data json.RawMessage) (map[string]interface{}, error)

var routes = map[string]route{
	"player:join":             handleJoin,
	"player:reconnect":        handleReconnect,
	"lobby:create":            handleCreateLobby,
	"lobby:join":              handleJoinLobby,
	"lobby:joinByCode":        handleJoinByCode,
	"lobby:rejoin":            handleRejoin,
	"lobby:leave":             handleLeaveLobby,
	"lobbies:list":            handleListLobbies,
	"lobby:addBot":            handleAddBot,
	"lobby:uploadWords":       handleUploadWords,
	"game:start":              handleStartGame,
	"game:submitClue":         handleSubmitClue,
	"game:submitVote":         handleSubmitVote,
	"game:submitActionVote":   handleSubmitActionVote,
	"game:voteSkipDiscussion": handleVoteSkipDiscussion,
	"game:skipDiscussion":     handleSkipDiscussion,
	"game:newRound":           handleNewRound,
	"game:returnToLobby":      handleReturnToLobby,
	"game:getState":           handleGetState,
}

// dispatch runs one request and returns the ack fields.
func (h *WSHandler) dispatch(connID string, req models.Request) (map[string]interface{}, error) {
	fn, ok := routes[req.Event]
	if !ok {
		return nil, apperr.Newf(apperr.CodeBadRequest, "Unknown event: %s", req.Event)
	}
	return fn(h, connID, req.Data)
}

// decode unmarshals request arguments. Absent data decodes to the zero value.
func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperr.Newf(apperr.CodeBadRequest, "Malformed request data")
	}
	return nil
}

func joinAck(res coordinator.JoinResult) map[string]interface{} {
	out := map[string]interface{}{
		"player":       res.Player,
		"serverConfig": res.ServerConfig,
		"restored":     res.Restored,
	}
	if res.Token != "" {
		out["token"] = res.Token
	}
	if res.Lobby != nil {
		out["lobby"] = res.Lobby
	}
	if res.State != nil {
		out["state"] = res.State
	}
	return out
}

func handleJoin(h *WSHandler, connID string, data json.RawMessage) (map[string]interface{}, error) {
	var req joinRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	return joinAck(h.coord.Join(connID, req.profile())), nil
}

func handleReconnect(h *WSHandler, connID string, data json.RawMessage) (map[string]interface{}, error) {
	var req reconnectRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	return joinAck(h.coord.Reconnect(connID, req.PlayerID, req.Token, req.profile())), nil
}

func lobbyAck(info models.LobbyInfo, err error) (map[string]interface{}, error) {
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"lobby": info}, nil
}

func handleCreateLobby(h *WSHandler, connID string, data json.RawMessage) (map[string]interface{}, error) {
	var req createLobbyRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	return lobbyAck(h.coord.CreateLobby(connID, clampText(req.Name, maxLobbyNameLength), req.MaxPlayers, req.Password))
}

func handleJoinLobby(h *WSHandler, connID string, data json.RawMessage) (map[string]interface{}, error) {
	var req joinLobbyRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	return lobbyAck(h.coord.JoinLobby(connID, req.LobbyID, req.Password))
}

func handleJoinByCode(h *WSHandler, connID string, data json.RawMessage) (map[string]interface{}, error) {
	var req joinLobbyRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	return lobbyAck(h.coord.JoinLobbyByCode(connID, req.Code, req.Password))
}

func handleRejoin(h *WSHandler, connID string, data json.RawMessage) (map[string]interface{}, error) {
	var req joinLobbyRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	res, err := h.coord.Rejoin(connID, req.LobbyID)
	if err != nil {
		return nil, err
	}
	return joinAck(res), nil
}

func handleLeaveLobby(h *WSHandler, connID string, _ json.RawMessage) (map[string]interface{}, error) {
	res, err := h.coord.LeaveLobby(connID)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{"lobbyId": res.LobbyID, "lobbyDeleted": res.LobbyDeleted}
	if res.NewHostID != "" {
		out["newHostId"] = res.NewHostID
	}
	return out, nil
}

func handleListLobbies(h *WSHandler, _ string, _ json.RawMessage) (map[string]interface{}, error) {
	return map[string]interface{}{"lobbies": h.coord.ListLobbies()}, nil
}

func handleAddBot(h *WSHandler, connID string, _ json.RawMessage) (map[string]interface{}, error) {
	return lobbyAck(h.coord.AddBot(connID))
}

func handleUploadWords(h *WSHandler, connID string, data json.RawMessage) (map[string]interface{}, error) {
	var req uploadWordsRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	return nil, h.coord.UploadWords(connID, req.WordData)
}

func handleStartGame(h *WSHandler, connID string, _ json.RawMessage) (map[string]interface{}, error) {
	view, err := h.coord.StartGame(connID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"game": view}, nil
}

func handleSubmitClue(h *WSHandler, connID string, data json.RawMessage) (map[string]interface{}, error) {
	var req clueRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	clue := clampText(req.Clue, maxClueLength)
	if clue == "" {
		return nil, apperr.Newf(apperr.CodeBadRequest, "Clue must not be empty")
	}
	return nil, h.coord.SubmitClue(connID, clue)
}

func handleSubmitVote(h *WSHandler, connID string, data json.RawMessage) (map[string]interface{}, error) {
	var req voteRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	return nil, h.coord.SubmitVote(connID, req.VotedForID)
}

func handleSubmitActionVote(h *WSHandler, connID string, data json.RawMessage) (map[string]interface{}, error) {
	var req actionVoteRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	return nil, h.coord.SubmitActionVote(connID, req.Action)
}

func handleVoteSkipDiscussion(h *WSHandler, connID string, _ json.RawMessage) (map[string]interface{}, error) {
	tally, err := h.coord.VoteSkipDiscussion(connID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"voteCount":   tally.VoteCount,
		"needed":      tally.Needed,
		"totalHumans": tally.TotalHumans,
	}, nil
}

func handleSkipDiscussion(h *WSHandler, connID string, _ json.RawMessage) (map[string]interface{}, error) {
	return nil, h.coord.SkipDiscussion(connID)
}

func handleNewRound(h *WSHandler, connID string, _ json.RawMessage) (map[string]interface{}, error) {
	return nil, h.coord.NewRound(connID)
}

func handleReturnToLobby(h *WSHandler, connID string, _ json.RawMessage) (map[string]interface{}, error) {
	return lobbyAck(h.coord.ReturnToLobby(connID))
}

func handleGetState(h *WSHandler, connID string, _ json.RawMessage) (map[string]interface{}, error) {
	view, err := h.coord.GetState(connID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"state": view}, nil
}
