package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsIsMatchesByCode(t *testing.T) {
	custom := Newf(CodeBelowMinimumPlayers, "Need at least %d players to start", 3)
	assert.True(t, errors.Is(custom, ErrBelowMinimumPlayers))
	assert.False(t, errors.Is(custom, ErrLobbyFull))
	assert.Equal(t, "Need at least 3 players to start", custom.Error())

	wrapped := fmt.Errorf("joining: %w", ErrLobbyFull)
	assert.True(t, errors.Is(wrapped, ErrLobbyFull))
	assert.Equal(t, CodeLobbyFull, CodeOf(wrapped))
}

func TestCodeOfUncoded(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.Equal(t, "Lobby not found", New(CodeLobbyNotFound).Message)
}
