package store

import (
	"context"

	"github.com/aaronzipp/imposter/internal/models"
)

// Backend is the hosted record store behind online games: rooms, their player
// sub-records, chat and votes, plus a per-room change feed.
//
// Implementations return errors wrapping ErrNotFound, ErrConflict or
// ErrValidation where those apply; anything else is treated as transient.
type Backend interface {
	// InsertRoom stores a new room and returns it with ID and timestamps set.
	// A code already held by another room yields ErrConflict.
	InsertRoom(ctx context.Context, room models.Room) (models.Room, error)
	RoomByCode(ctx context.Context, code string) (models.Room, error)
	RoomByID(ctx context.Context, id string) (models.Room, error)
	UpdateRoom(ctx context.Context, id string, u models.RoomUpdate) (models.Room, error)
	DeleteRoom(ctx context.Context, id string) error
	CodeExists(ctx context.Context, code string) (bool, error)

	InsertPlayer(ctx context.Context, p models.RoomPlayer) error
	DeletePlayer(ctx context.Context, roomID, playerID string) error
	ListPlayers(ctx context.Context, roomID string) ([]models.RoomPlayer, error)

	// InsertChat appends a message. Inserting an ID that already exists
	// returns the stored message and emits no second change.
	InsertChat(ctx context.Context, m models.ChatMessage) (models.ChatMessage, error)
	ListChats(ctx context.Context, roomID string) ([]models.ChatMessage, error)

	// InsertVote records a vote; repeating an ID is a no-op.
	InsertVote(ctx context.Context, v models.Vote) error
	ListVotes(ctx context.Context, roomID string) ([]models.Vote, error)
	ClearVotes(ctx context.Context, roomID string) error

	// Subscribe streams changes to the room and its chat until ctx ends.
	Subscribe(ctx context.Context, roomID string) (<-chan models.Change, error)

	Ping(ctx context.Context) error
}
