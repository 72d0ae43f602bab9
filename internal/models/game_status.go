package models

// GameStatus is the client-side screen/state of the game
type GameStatus string

const (
	StatusAuth           GameStatus = "AUTH"
	StatusLobby          GameStatus = "LOBBY"
	StatusProfile        GameStatus = "PROFILE"
	StatusCategorySelect GameStatus = "CATEGORY_SELECT"
	StatusWaitingForHost GameStatus = "WAITING_FOR_HOST"
	StatusRevealing      GameStatus = "REVEALING"
	StatusPlaying        GameStatus = "PLAYING"
	StatusVoting         GameStatus = "VOTING"
	StatusResults        GameStatus = "RESULTS"
)

var validTransitions = map[GameStatus][]GameStatus{
	StatusAuth:           {StatusLobby},
	StatusLobby:          {StatusCategorySelect, StatusWaitingForHost, StatusProfile, StatusAuth},
	StatusProfile:        {StatusLobby, StatusAuth},
	StatusCategorySelect: {StatusRevealing},
	StatusWaitingForHost: {StatusRevealing, StatusPlaying, StatusVoting, StatusResults},
	StatusRevealing:      {StatusPlaying, StatusVoting, StatusResults},
	StatusPlaying:        {StatusVoting, StatusResults},
	StatusVoting:         {StatusResults},
}

// CanTransitionTo reports whether target is a legal forward move from s.
// Returning to the lobby is a reset, not a transition, and is not listed here.
func (s GameStatus) CanTransitionTo(target GameStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// InGame reports whether s belongs to a running round (room joined or created)
func (s GameStatus) InGame() bool {
	switch s {
	case StatusCategorySelect, StatusWaitingForHost, StatusRevealing, StatusPlaying, StatusVoting, StatusResults:
		return true
	}
	return false
}

// RoomStatus is the status persisted on the shared room record
type RoomStatus string

const (
	RoomWaiting        RoomStatus = "waiting"
	RoomCategorySelect RoomStatus = "category_select"
	RoomRevealing      RoomStatus = "revealing"
	RoomPlaying        RoomStatus = "playing"
	RoomVoting         RoomStatus = "voting"
	RoomResults        RoomStatus = "results"
)

// GameStatus maps a room status onto the local status it drives.
// waiting and category_select do not drive any transition.
func (r RoomStatus) GameStatus() (GameStatus, bool) {
	switch r {
	case RoomRevealing:
		return StatusRevealing, true
	case RoomPlaying:
		return StatusPlaying, true
	case RoomVoting:
		return StatusVoting, true
	case RoomResults:
		return StatusResults, true
	}
	return "", false
}

// Joinable reports whether new players may still enter a room in this status
func (r RoomStatus) Joinable() bool {
	return r == RoomWaiting || r == RoomCategorySelect
}

// Valid reports whether r is a known room status
func (r RoomStatus) Valid() bool {
	switch r {
	case RoomWaiting, RoomCategorySelect, RoomRevealing, RoomPlaying, RoomVoting, RoomResults:
		return true
	}
	return false
}

// GameMode selects pass-the-device or networked play
type GameMode string

const (
	ModeLocal  GameMode = "LOCAL"
	ModeOnline GameMode = "ONLINE"
)
