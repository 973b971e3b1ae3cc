package game

import (
	"encoding/json"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/jason-s-yu/crystal-clear/internal/apperr"
)

// WordSource maps a category to the secret words that may be drawn from it.
type WordSource map[string][]string

var defaultWords = WordSource{
	"animals": {
		"elephant", "giraffe", "penguin", "dolphin", "kangaroo",
		"octopus", "butterfly", "cheetah", "flamingo", "hedgehog",
	},
	"food": {
		"pizza", "sushi", "tacos", "pasta", "burger",
		"chocolate", "avocado", "pancakes", "ice cream", "ramen",
	},
	"sports": {
		"basketball", "swimming", "skateboarding", "tennis", "surfing",
		"archery", "volleyball", "gymnastics", "hockey", "boxing",
	},
	"movies": {
		"titanic", "avatar", "inception", "frozen", "jaws",
		"matrix", "gladiator", "interstellar", "shrek", "up",
	},
	"countries": {
		"japan", "brazil", "australia", "egypt", "canada",
		"norway", "mexico", "thailand", "greece", "morocco",
	},
	"occupations": {
		"astronaut", "chef", "detective", "pilot", "artist",
		"firefighter", "doctor", "teacher", "scientist", "musician",
	},
	"objects": {
		"umbrella", "telescope", "compass", "hourglass", "lantern",
		"crystal", "mirror", "treasure", "anchor", "crown",
	},
	"nature": {
		"volcano", "waterfall", "glacier", "rainbow", "aurora",
		"thunder", "canyon", "coral", "forest", "desert",
	},
	"music": {
		"guitar", "piano", "drums", "violin", "saxophone",
		"trumpet", "harmonica", "flute", "accordion", "harp",
	},
	"technology": {
		"robot", "satellite", "hologram", "drone", "laser",
		"virtual reality", "artificial intelligence", "quantum", "blockchain", "cybersecurity",
	},
}

// DefaultWords returns a copy of the built-in word table.
func DefaultWords() WordSource {
	return defaultWords.Clone()
}

// Clone deep-copies the table so callers can't mutate a shared one.
func (w WordSource) Clone() WordSource {
	out := make(WordSource, len(w))
	for cat, words := range w {
		out[cat] = append([]string(nil), words...)
	}
	return out
}

// Validate checks the table has at least one category and that every category
// holds at least one non-blank word.
func (w WordSource) Validate() error {
	if len(w) == 0 {
		return apperr.Newf(apperr.CodeInvalidWords, "Word data must contain at least one category")
	}
	for cat, words := range w {
		if strings.TrimSpace(cat) == "" {
			return apperr.Newf(apperr.CodeInvalidWords, "Category names must not be empty")
		}
		if len(words) == 0 {
			return apperr.Newf(apperr.CodeInvalidWords, "Category %q has no words", cat)
		}
		for _, word := range words {
			if strings.TrimSpace(word) == "" {
				return apperr.Newf(apperr.CodeInvalidWords, "Category %q contains an empty word", cat)
			}
		}
	}
	return nil
}

// ParseWordData decodes a host upload, which must be a JSON object of
// category -> array of strings, and validates its shape.
func ParseWordData(raw json.RawMessage) (WordSource, error) {
	var w WordSource
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, apperr.Newf(apperr.CodeInvalidWords, "Word data must map categories to lists of words")
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	for cat, words := range w {
		for i := range words {
			words[i] = strings.TrimSpace(words[i])
		}
		w[cat] = words
	}
	return w, nil
}

// Draw picks a category uniformly, then a word uniformly within it. Categories
// are sorted first so a seeded rng gives repeatable draws.
func (w WordSource) Draw(rng *rand.Rand) (category, word string) {
	cats := make([]string, 0, len(w))
	for cat := range w {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	category = cats[rng.IntN(len(cats))]
	words := w[category]
	return category, words[rng.IntN(len(words))]
}
