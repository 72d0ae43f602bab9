package models

import "time"

// Player represents a participant in one game
type Player struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsImposter bool   `json:"is_imposter"`
	Word       string `json:"word"`
	UserID     string `json:"user_id,omitempty"`
}

// RoomPlayer is the per-room player sub-record kept alongside the room's players array
type RoomPlayer struct {
	RoomID     string    `json:"room_id"`
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	IsHost     bool      `json:"is_host"`
	UserID     string    `json:"user_id,omitempty"`
	JoinedAt   time.Time `json:"joined_at"`
}

// IndexOfPlayer returns the position of the player with id, or -1
func IndexOfPlayer(players []Player, id string) int {
	for i, p := range players {
		if p.ID == id {
			return i
		}
	}
	return -1
}
