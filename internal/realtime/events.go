package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/aaronzipp/imposter/internal/models"
)

// Event is a typed change for the active room.
type Event interface {
	Room() string
}

// RoomChanged carries the room record after an update.
type RoomChanged struct {
	RoomID string
	Record models.Room
}

// ChatAppended carries one newly inserted chat message.
type ChatAppended struct {
	RoomID  string
	Message models.ChatMessage
}

// RoomClosed reports that the room record was deleted.
type RoomClosed struct {
	RoomID string
}

// SubscriptionLost reports that the change stream ended without being stopped.
type SubscriptionLost struct {
	RoomID string
}

func (e RoomChanged) Room() string      { return e.RoomID }
func (e ChatAppended) Room() string     { return e.RoomID }
func (e RoomClosed) Room() string       { return e.RoomID }
func (e SubscriptionLost) Room() string { return e.RoomID }

// Decode translates a raw change into an event. Changes that carry nothing
// the game reacts to yield (nil, nil).
func Decode(c models.Change) (Event, error) {
	switch {
	case c.Table == models.TableRooms && c.Event == models.EventUpdate:
		var r models.Room
		if err := json.Unmarshal(c.New, &r); err != nil {
			return nil, fmt.Errorf("decode room change: %w", err)
		}
		return RoomChanged{RoomID: c.RoomID, Record: r}, nil

	case c.Table == models.TableRooms && c.Event == models.EventDelete:
		return RoomClosed{RoomID: c.RoomID}, nil

	case c.Table == models.TableChats && c.Event == models.EventInsert:
		var m models.ChatMessage
		if err := json.Unmarshal(c.New, &m); err != nil {
			return nil, fmt.Errorf("decode chat change: %w", err)
		}
		return ChatAppended{RoomID: c.RoomID, Message: m}, nil
	}
	return nil, nil
}
