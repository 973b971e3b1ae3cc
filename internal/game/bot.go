package game

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jason-s-yu/crystal-clear/internal/models"
)

// BotNames are the base names bots are drawn from; a number 0-99 is appended.
var BotNames = []string{
	"FrostyBot", "IceBot", "ChillBot", "SnowBot", "GlacierBot",
	"CrystalBot", "WinterBot", "ArcticBot", "PolarBot", "BlizzardBot",
}

// botProfilePics is the number of selectable profile pictures.
const botProfilePics = 15

// NewBot creates the identity of a synthetic player. seq distinguishes bots
// created within the same millisecond.
func NewBot(seq int, rng *rand.Rand, now time.Time) models.Player {
	return models.Player{
		ID:              fmt.Sprintf("bot_%d_%d", seq, now.UnixMilli()),
		Name:            fmt.Sprintf("%s%d", BotNames[rng.IntN(len(BotNames))], rng.IntN(100)),
		IsGuest:         true,
		ProfilePicIndex: rng.IntN(botProfilePics),
		Avatar:          models.AvatarColors[rng.IntN(len(models.AvatarColors))],
		IsBot:           true,
	}
}

// BotClue is the clue a bot gives. Bots are a testing aid and don't try to play well.
func BotClue() string {
	return "test"
}
