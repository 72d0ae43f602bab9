package models

import "time"

// ChatMessage is one turn of deduction-phase speech
type ChatMessage struct {
	ID         string `json:"id"`
	Seq        int64  `json:"seq,omitempty"` // backend insert order
	RoomID     string `json:"room_id,omitempty"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp"` // unix millis, sender's clock
}

// Vote is one accusation cast by a voter
type Vote struct {
	ID            string    `json:"id"`
	RoomID        string    `json:"room_id"`
	VoterID       string    `json:"voter_id"`
	VotedPlayerID string    `json:"voted_player_id"`
	CreatedAt     time.Time `json:"created_at"`
}
