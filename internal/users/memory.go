package users

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/aaronzipp/imposter/internal/models"
)

// MemoryStore keeps users in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*Record
	byEmail map[string]string
	order   []string
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*Record),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryStore) Create(_ context.Context, username, email, passwordHash string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[email]; exists {
		return models.User{}, ErrDuplicateEmail
	}
	rec := &Record{
		User:         models.User{ID: uuid.NewString(), Username: username, Email: email, Friends: []models.Friend{}},
		PasswordHash: passwordHash,
	}
	s.byID[rec.ID] = rec
	s.byEmail[email] = rec.ID
	s.order = append(s.order, rec.ID)
	return s.user(rec), nil
}

func (s *MemoryStore) ByEmail(_ context.Context, email string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return Record{}, ErrUserNotFound
	}
	rec := s.byID[id]
	return Record{User: s.user(rec), PasswordHash: rec.PasswordHash}, nil
}

func (s *MemoryStore) ByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return s.user(rec), nil
}

func (s *MemoryStore) AddStats(_ context.Context, id string, wins, losses int) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	rec.Wins += wins
	rec.Losses += losses
	return s.user(rec), nil
}

func (s *MemoryStore) AddFriend(_ context.Context, id, friendID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	friend, ok := s.byID[friendID]
	if !ok {
		return ErrUserNotFound
	}
	if !rec.HasFriend(friendID) {
		rec.Friends = append(rec.Friends, models.Friend{ID: friend.ID, Username: friend.Username})
	}
	return nil
}

func (s *MemoryStore) Search(_ context.Context, query string, limit int) ([]models.Friend, error) {
	q := strings.ToLower(query)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Friend
	for _, id := range s.order {
		rec := s.byID[id]
		if rec.ID == query || strings.Contains(strings.ToLower(rec.Username), q) {
			out = append(out, models.Friend{ID: rec.ID, Username: rec.Username})
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// user copies rec so callers never share the friend slice; s.mu must be held
func (s *MemoryStore) user(rec *Record) models.User {
	u := rec.User
	u.Friends = slices.Clone(rec.Friends)
	if u.Friends == nil {
		u.Friends = []models.Friend{}
	}
	return u
}
