package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aaronzipp/imposter/internal/models"
	"github.com/aaronzipp/imposter/internal/realtime"
)

// feedBuffer is how many changes a subscriber may lag before its stream is closed
const feedBuffer = 64

// Memory is an in-process Backend
type Memory struct {
	mu      sync.RWMutex
	rooms   map[string]*models.Room // by id
	codes   map[string]string       // code -> room id
	players map[string][]models.RoomPlayer
	chats   map[string][]models.ChatMessage
	chatIDs map[string]models.ChatMessage
	votes   map[string][]models.Vote
	voteIDs map[string]bool
	seq     int64

	feed *realtime.Topics[models.Change]
	now  func() time.Time
}

// NewMemory creates an empty in-memory backend
func NewMemory() *Memory {
	return &Memory{
		rooms:   make(map[string]*models.Room),
		codes:   make(map[string]string),
		players: make(map[string][]models.RoomPlayer),
		chats:   make(map[string][]models.ChatMessage),
		chatIDs: make(map[string]models.ChatMessage),
		votes:   make(map[string][]models.Vote),
		voteIDs: make(map[string]bool),
		feed:    realtime.NewTopics[models.Change](feedBuffer),
		now:     time.Now,
	}
}

// InsertRoom stores a new room
func (s *Memory) InsertRoom(_ context.Context, room models.Room) (models.Room, error) {
	if len(room.Code) != 4 || room.HostID == "" {
		return models.Room{}, fmt.Errorf("%w: room needs a 4 character code and a host", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.codes[room.Code]; taken {
		return models.Room{}, fmt.Errorf("%w: code %s in use", ErrConflict, room.Code)
	}

	now := s.now()
	r := room.Clone()
	r.ID = uuid.NewString()
	if r.Status == "" {
		r.Status = models.RoomWaiting
	}
	if r.Players == nil {
		r.Players = []models.Player{}
	}
	r.CreatedAt, r.UpdatedAt = now, now

	s.rooms[r.ID] = r
	s.codes[r.Code] = r.ID
	return *r.Clone(), nil
}

// RoomByCode retrieves a room by its join code
func (s *Memory) RoomByCode(_ context.Context, code string) (models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.codes[code]
	if !ok {
		return models.Room{}, fmt.Errorf("room code %s: %w", code, ErrNotFound)
	}
	return *s.rooms[id].Clone(), nil
}

// RoomByID retrieves a room
func (s *Memory) RoomByID(_ context.Context, id string) (models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok {
		return models.Room{}, fmt.Errorf("room %s: %w", id, ErrNotFound)
	}
	return *r.Clone(), nil
}

// UpdateRoom applies a partial update and publishes the new record
func (s *Memory) UpdateRoom(_ context.Context, id string, u models.RoomUpdate) (models.Room, error) {
	if u.Status != nil && !u.Status.Valid() {
		return models.Room{}, fmt.Errorf("%w: unknown status %q", ErrValidation, *u.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return models.Room{}, fmt.Errorf("room %s: %w", id, ErrNotFound)
	}
	u.Apply(r, s.now())
	out := *r.Clone()
	s.publish(models.TableRooms, models.EventUpdate, id, out)
	return out, nil
}

// DeleteRoom removes the room with everything attached to it
func (s *Memory) DeleteRoom(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return fmt.Errorf("room %s: %w", id, ErrNotFound)
	}
	delete(s.codes, r.Code)
	delete(s.rooms, id)
	delete(s.players, id)
	for _, m := range s.chats[id] {
		delete(s.chatIDs, m.ID)
	}
	delete(s.chats, id)
	for _, v := range s.votes[id] {
		delete(s.voteIDs, v.ID)
	}
	delete(s.votes, id)
	s.publish(models.TableRooms, models.EventDelete, id, nil)
	return nil
}

// CodeExists checks if a room code is in use
func (s *Memory) CodeExists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.codes[code]
	return exists, nil
}

// InsertPlayer adds or replaces a player sub-record
func (s *Memory) InsertPlayer(_ context.Context, p models.RoomPlayer) error {
	if p.PlayerID == "" {
		return fmt.Errorf("%w: player id required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[p.RoomID]; !ok {
		return fmt.Errorf("room %s: %w", p.RoomID, ErrNotFound)
	}
	if p.JoinedAt.IsZero() {
		p.JoinedAt = s.now()
	}
	list := slices.DeleteFunc(s.players[p.RoomID], func(x models.RoomPlayer) bool { return x.PlayerID == p.PlayerID })
	s.players[p.RoomID] = append(list, p)
	return nil
}

// DeletePlayer removes a player sub-record
func (s *Memory) DeletePlayer(_ context.Context, roomID, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, ok := s.players[roomID]
	if !ok {
		return fmt.Errorf("players of room %s: %w", roomID, ErrNotFound)
	}
	s.players[roomID] = slices.DeleteFunc(list, func(x models.RoomPlayer) bool { return x.PlayerID == playerID })
	return nil
}

// ListPlayers returns the player sub-records in join order
func (s *Memory) ListPlayers(_ context.Context, roomID string) ([]models.RoomPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.players[roomID]), nil
}

// InsertChat appends a chat message and publishes it
func (s *Memory) InsertChat(_ context.Context, m models.ChatMessage) (models.ChatMessage, error) {
	if m.ID == "" || m.Text == "" {
		return models.ChatMessage{}, fmt.Errorf("%w: chat needs an id and text", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, dup := s.chatIDs[m.ID]; dup {
		return prev, nil
	}
	if _, ok := s.rooms[m.RoomID]; !ok {
		return models.ChatMessage{}, fmt.Errorf("room %s: %w", m.RoomID, ErrNotFound)
	}
	s.seq++
	m.Seq = s.seq
	s.chats[m.RoomID] = append(s.chats[m.RoomID], m)
	s.chatIDs[m.ID] = m
	s.publish(models.TableChats, models.EventInsert, m.RoomID, m)
	return m, nil
}

// ListChats returns a room's chat in insert order
func (s *Memory) ListChats(_ context.Context, roomID string) ([]models.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.chats[roomID]), nil
}

// InsertVote records a vote
func (s *Memory) InsertVote(_ context.Context, v models.Vote) error {
	if v.ID == "" || v.VoterID == "" || v.VotedPlayerID == "" {
		return fmt.Errorf("%w: vote needs id, voter and target", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.voteIDs[v.ID] {
		return nil
	}
	if _, ok := s.rooms[v.RoomID]; !ok {
		return fmt.Errorf("room %s: %w", v.RoomID, ErrNotFound)
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = s.now()
	}
	s.votes[v.RoomID] = append(s.votes[v.RoomID], v)
	s.voteIDs[v.ID] = true
	return nil
}

// ListVotes returns a room's votes in insert order
func (s *Memory) ListVotes(_ context.Context, roomID string) ([]models.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.votes[roomID]), nil
}

// ClearVotes deletes every vote of a room
func (s *Memory) ClearVotes(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.votes[roomID] {
		delete(s.voteIDs, v.ID)
	}
	delete(s.votes, roomID)
	return nil
}

// Subscribe streams the room's changes until ctx ends
func (s *Memory) Subscribe(ctx context.Context, roomID string) (<-chan models.Change, error) {
	ch := s.feed.Subscribe(roomID)
	go func() {
		<-ctx.Done()
		s.feed.Unsubscribe(roomID, ch)
	}()
	return ch, nil
}

// Ping always succeeds
func (s *Memory) Ping(context.Context) error {
	return nil
}

// publish must be called with s.mu held so subscribers see changes in write order
func (s *Memory) publish(table, event, roomID string, row any) {
	c := models.Change{Table: table, Event: event, RoomID: roomID}
	if row != nil {
		b, err := json.Marshal(row)
		if err != nil {
			return
		}
		c.New = b
	}
	s.feed.Publish(roomID, c)
}
