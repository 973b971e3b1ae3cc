// internal/models/lobby.go
package models

// LobbyMember is one entry of a lobby's ordered membership list.
type LobbyMember struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Avatar          string `json:"avatar,omitempty"`
	ProfilePicIndex int    `json:"profilePicIndex"`
	IsHost          bool   `json:"isHost"`
	IsBot           bool   `json:"isBot,omitempty"`
}

// LobbySummary is what the public lobby listing exposes.
type LobbySummary struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	IsPrivate   bool   `json:"isPrivate"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	HasGame     bool   `json:"hasGame"`
}

// LobbyInfo is the full view sent to members of the lobby.
type LobbyInfo struct {
	LobbySummary
	HostID         string        `json:"hostId"`
	Players        []LobbyMember `json:"players"`
	GameID         string        `json:"gameId,omitempty"`
	HasCustomWords bool          `json:"hasCustomWords"`
}
