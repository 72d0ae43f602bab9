package engine

import "errors"

// Errors surfaced to the player. Connection problems wrap the underlying
// store error, so errors.Is works against both.
var (
	ErrWrongState       = errors.New("action not available right now")
	ErrMissingFields    = errors.New("please fill in every field")
	ErrNotLoggedIn      = errors.New("sign in to use your profile")
	ErrInvalidSettings  = errors.New("need 3-12 players and at least one imposter fewer than players")
	ErrMissingRoomCode  = errors.New("please enter a room code")
	ErrRoomNotFound     = errors.New("room not found")
	ErrGameInProgress   = errors.New("game has already started, join another room")
	ErrCodeUnavailable  = errors.New("could not find a free room code")
	ErrConnection       = errors.New("connection problem, try again")
	ErrNotEnoughPlayers = errors.New("not enough players in the room")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrUnknownPlayer    = errors.New("unknown player")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrEmptyMessage     = errors.New("message is empty")
)
