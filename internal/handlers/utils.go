package handlers

import "strings"

// Input caps applied at the boundary, in runes.
const (
	maxClueLength      = 50
	maxNameLength      = 20
	maxLobbyNameLength = 30
)

// clampText trims s and cuts it to at most max runes.
func clampText(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) > max {
		s = strings.TrimSpace(string(r[:max]))
	}
	return s
}
