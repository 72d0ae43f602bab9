package models

import (
	"encoding/json"
	"time"
)

// RoomSettings are the host's settings copied onto the room
type RoomSettings struct {
	ImposterCount int `json:"imposter_count"`
	RoundTime     int `json:"round_time"`
}

// Room is the shared record of one online game
type Room struct {
	ID        string       `json:"id"`
	Code      string       `json:"code"`
	HostID    string       `json:"host_id"`
	HostName  string       `json:"host_name"`
	Status    RoomStatus   `json:"status"`
	Category  *Category    `json:"category,omitempty"`
	WordPair  *WordPair    `json:"word_pair,omitempty"`
	Players   []Player     `json:"players"`
	Settings  RoomSettings `json:"settings"`
	AccusedID string       `json:"accused_id,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// RoomUpdate is a partial room write; nil fields are left untouched
type RoomUpdate struct {
	Status    *RoomStatus `json:"status,omitempty"`
	Category  *Category   `json:"category,omitempty"`
	WordPair  *WordPair   `json:"word_pair,omitempty"`
	Players   *[]Player   `json:"players,omitempty"`
	AccusedID *string     `json:"accused_id,omitempty"`
}

// Apply copies the set fields of u onto r and stamps UpdatedAt
func (u RoomUpdate) Apply(r *Room, now time.Time) {
	if u.Status != nil {
		r.Status = *u.Status
	}
	if u.Category != nil {
		c := *u.Category
		r.Category = &c
	}
	if u.WordPair != nil {
		w := *u.WordPair
		r.WordPair = &w
	}
	if u.Players != nil {
		r.Players = append([]Player(nil), (*u.Players)...)
	}
	if u.AccusedID != nil {
		r.AccusedID = *u.AccusedID
	}
	r.UpdatedAt = now
}

// Clone returns a deep copy of the room
func (r *Room) Clone() *Room {
	c := *r
	c.Players = append([]Player(nil), r.Players...)
	if r.Category != nil {
		cat := *r.Category
		c.Category = &cat
	}
	if r.WordPair != nil {
		wp := *r.WordPair
		c.WordPair = &wp
	}
	return &c
}

// Change tables and events carried on the change feed
const (
	TableRooms  = "rooms"
	TableChats  = "room_chats"
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// Change is one raw row-level change notification for a room.
// New holds the row as JSON: a Room for TableRooms, a ChatMessage for TableChats.
type Change struct {
	Table  string          `json:"table"`
	Event  string          `json:"event"`
	RoomID string          `json:"room_id"`
	New    json.RawMessage `json:"new,omitempty"`
}
