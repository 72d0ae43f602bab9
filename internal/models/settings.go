package models

// GameSettings is what the lobby hands to the state machine when a game is set up
type GameSettings struct {
	PlayerCount   int
	ImposterCount int
	PlayerNames   []string
	Mode          GameMode
	RoundTime     int // minutes
	RoomCode      string
	IsHost        bool
}
