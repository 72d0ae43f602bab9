package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aaronzipp/imposter/internal/models"
)

// searchLimit caps friend search results
const searchLimit = 10

// Service is the account side of the game: signup, login, stats and friends
type Service struct {
	store  Store
	hasher PasswordHasher
	tokens TokenIssuer
	now    func() time.Time
}

func NewService(store Store, hasher PasswordHasher, tokens TokenIssuer) *Service {
	return &Service{store: store, hasher: hasher, tokens: tokens, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) session(u models.User) (models.Session, error) {
	token, err := s.tokens.Generate(u.ID, s.now())
	if err != nil {
		return models.Session{}, fmt.Errorf("issue token: %w", err)
	}
	return models.Session{User: u, Token: token}, nil
}

// Signup registers a new account and signs it in
func (s *Service) Signup(ctx context.Context, username, email, password string) (models.Session, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	if username == "" || email == "" || password == "" {
		return models.Session{}, ErrMissingFields
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.Session{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.store.Create(ctx, username, email, hash)
	if err != nil {
		return models.Session{}, err
	}
	return s.session(u)
}

// Login checks email and password
func (s *Service) Login(ctx context.Context, email, password string) (models.Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return models.Session{}, ErrMissingFields
	}

	rec, err := s.store.ByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return models.Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.Session{}, err
	}

	match, err := s.hasher.Compare(rec.PasswordHash, password)
	if err != nil || !match {
		return models.Session{}, ErrInvalidCredentials
	}
	return s.session(rec.User)
}

// VerifyToken returns the user id if the token is valid, else, it returns an error
func (s *Service) VerifyToken(token string) (string, error) {
	return s.tokens.Verify(token)
}

// Profile reads the user's current record
func (s *Service) Profile(ctx context.Context, userID string) (models.User, error) {
	return s.store.ByID(ctx, userID)
}

// RecordResult adds one win or one loss to the user's stats
func (s *Service) RecordResult(ctx context.Context, userID string, won bool) (models.User, error) {
	if won {
		return s.store.AddStats(ctx, userID, 1, 0)
	}
	return s.store.AddStats(ctx, userID, 0, 1)
}

// Search finds users to befriend, leaving out the user and existing friends
func (s *Service) Search(ctx context.Context, userID, query string) ([]models.Friend, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Friend{}, nil
	}
	me, err := s.store.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	// ask for a few extra so filtering still fills the page
	found, err := s.store.Search(ctx, query, searchLimit+len(me.Friends)+1)
	if err != nil {
		return nil, err
	}
	out := make([]models.Friend, 0, len(found))
	for _, f := range found {
		if f.ID == me.ID || me.HasFriend(f.ID) {
			continue
		}
		out = append(out, f)
		if len(out) == searchLimit {
			break
		}
	}
	return out, nil
}

// AddFriend adds friendID to the user's friend list and returns the updated user
func (s *Service) AddFriend(ctx context.Context, userID, friendID string) (models.User, error) {
	if userID == friendID {
		return models.User{}, ErrSelfFriend
	}
	if err := s.store.AddFriend(ctx, userID, friendID); err != nil {
		return models.User{}, err
	}
	return s.store.ByID(ctx, userID)
}
