// internal/apperr/apperr.go
package apperr

import (
	"errors"
	"fmt"
)

// Code identifies a caller-recoverable failure. Codes travel on the wire in the
// "code" field of a failed ack.
type Code string

const (
	CodeSessionNotFound     Code = "SESSION_NOT_FOUND"
	CodeLobbyNotFound       Code = "LOBBY_NOT_FOUND"
	CodeLobbyFull           Code = "LOBBY_FULL"
	CodeIncorrectPassword   Code = "INCORRECT_PASSWORD"
	CodeGameInProgress      Code = "GAME_IN_PROGRESS"
	CodeNotHost             Code = "NOT_HOST"
	CodeBelowMinimumPlayers Code = "BELOW_MINIMUM_PLAYERS"
	CodeNotYourTurn         Code = "NOT_YOUR_TURN"
	CodeInvalidTarget       Code = "INVALID_TARGET"
	CodeWrongPhase          Code = "WRONG_PHASE"
	CodePlayerNotFound      Code = "PLAYER_NOT_FOUND"
	CodeNotInLobby          Code = "NOT_IN_LOBBY"
	CodeAlreadyInLobby      Code = "ALREADY_IN_LOBBY"
	CodeNoGame              Code = "NO_GAME"
	CodeInvalidAction       Code = "INVALID_ACTION"
	CodeInvalidWords        Code = "INVALID_WORDS"
	CodeDevModeOnly         Code = "DEV_MODE_ONLY"
	CodeBadRequest          Code = "BAD_REQUEST"
	CodeRateLimited         Code = "RATE_LIMITED"
	CodeInternal            Code = "INTERNAL"
)

var defaultMessages = map[Code]string{
	CodeSessionNotFound:     "Session not found",
	CodeLobbyNotFound:       "Lobby not found",
	CodeLobbyFull:           "Lobby is full",
	CodeIncorrectPassword:   "Incorrect password",
	CodeGameInProgress:      "Game already in progress",
	CodeNotHost:             "Only the host can do that",
	CodeBelowMinimumPlayers: "Not enough players to start",
	CodeNotYourTurn:         "Not your turn",
	CodeInvalidTarget:       "Cannot vote for yourself",
	CodeWrongPhase:          "Action not allowed in the current phase",
	CodePlayerNotFound:      "Player not found",
	CodeNotInLobby:          "Not in a lobby",
	CodeAlreadyInLobby:      "Already in lobby",
	CodeNoGame:              "Game not found",
	CodeInvalidAction:       "Invalid action",
	CodeInvalidWords:        "Invalid word data",
	CodeDevModeOnly:         "Bot creation only available in dev mode",
	CodeBadRequest:          "Bad request",
	CodeRateLimited:         "Too many requests",
	CodeInternal:            "Internal error",
}

// Error is a coded failure returned on a single request.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error carrying the same code, so sentinels work with errors.Is
// even after the message was customised.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New builds an error with the default message for code.
func New(code Code) *Error {
	msg, ok := defaultMessages[code]
	if !ok {
		msg = string(code)
	}
	return &Error{Code: code, Message: msg}
}

// Newf builds an error with a custom message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the code from err, or CodeInternal if err is not coded.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Sentinels for errors.Is comparisons.
var (
	ErrSessionNotFound     = New(CodeSessionNotFound)
	ErrLobbyNotFound       = New(CodeLobbyNotFound)
	ErrLobbyFull           = New(CodeLobbyFull)
	ErrIncorrectPassword   = New(CodeIncorrectPassword)
	ErrGameInProgress      = New(CodeGameInProgress)
	ErrNotHost             = New(CodeNotHost)
	ErrBelowMinimumPlayers = New(CodeBelowMinimumPlayers)
	ErrNotYourTurn         = New(CodeNotYourTurn)
	ErrInvalidTarget       = New(CodeInvalidTarget)
	ErrWrongPhase          = New(CodeWrongPhase)
	ErrPlayerNotFound      = New(CodePlayerNotFound)
	ErrNotInLobby          = New(CodeNotInLobby)
	ErrAlreadyInLobby      = New(CodeAlreadyInLobby)
	ErrNoGame              = New(CodeNoGame)
	ErrInvalidAction       = New(CodeInvalidAction)
	ErrInvalidWords        = New(CodeInvalidWords)
	ErrDevModeOnly         = New(CodeDevModeOnly)
	ErrRateLimited         = New(CodeRateLimited)
)
