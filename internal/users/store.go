package users

import (
	"context"

	"github.com/aaronzipp/imposter/internal/models"
)

// Record is a stored user with its credential material
type Record struct {
	models.User
	PasswordHash string
}

// Store is the user-record store, keyed by email.
// Lookups return ErrUserNotFound on a miss; Create returns ErrDuplicateEmail.
type Store interface {
	Create(ctx context.Context, username, email, passwordHash string) (models.User, error)
	ByEmail(ctx context.Context, email string) (Record, error)
	ByID(ctx context.Context, id string) (models.User, error)
	AddStats(ctx context.Context, id string, wins, losses int) (models.User, error)
	AddFriend(ctx context.Context, id, friendID string) error
	// Search matches a case-insensitive username substring or an exact id
	Search(ctx context.Context, query string, limit int) ([]models.Friend, error)
}
