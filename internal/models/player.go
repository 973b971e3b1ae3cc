package models

// Player is the stable identity of a participant: who they are, not what they
// are doing in a round. Bots share the shape and set IsBot.
type Player struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	IsGuest         bool   `json:"isGuest"`
	ProfilePicIndex int    `json:"profilePicIndex"`
	Avatar          string `json:"avatar"`
	IsBot           bool   `json:"isBot,omitempty"`
}

// AvatarColors is the palette new players and bots draw their avatar colour from.
var AvatarColors = []string{
	"#FFD700", "#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4",
	"#FFEAA7", "#DDA0DD", "#98D8C8", "#F39C12", "#3498DB",
}

// ServerConfig tells clients which rules this server runs with.
type ServerConfig struct {
	DevMode    bool `json:"devMode"`
	MinPlayers int  `json:"minPlayers"`
}
