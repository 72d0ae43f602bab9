package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aaronzipp/imposter/internal/models"
)

// ErrUnexpectedDatabase wraps driver failures that have no better meaning
var ErrUnexpectedDatabase = errors.New("unexpected database error")

// PostgresStore keeps users in the users and friends tables
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore uses an existing pool
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func dbErr(err error, notFound error) error {
	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return notFound
	case errors.As(err, &pgErr) && pgErr.Code == "22P02":
		// malformed uuid
		return notFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrUnexpectedDatabase, err)
	}
}

func (s *PostgresStore) Create(ctx context.Context, username, email, passwordHash string) (models.User, error) {
	u := models.User{Username: username, Email: email, Friends: []models.Friend{}}
	err := s.pool.QueryRow(ctx,
		"INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3) RETURNING id::text",
		username, email, passwordHash).Scan(&u.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		// "23505" is the PostgreSQL error code for unique_violation
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, dbErr(err, ErrUserNotFound)
	}
	return u, nil
}

func (s *PostgresStore) ByEmail(ctx context.Context, email string) (Record, error) {
	var rec Record
	err := s.pool.QueryRow(ctx,
		"SELECT id::text, username, email, wins, losses, password_hash FROM users WHERE email = $1", email).
		Scan(&rec.ID, &rec.Username, &rec.Email, &rec.Wins, &rec.Losses, &rec.PasswordHash)
	if err != nil {
		return Record{}, dbErr(err, ErrUserNotFound)
	}
	if rec.Friends, err = s.friends(ctx, rec.ID); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *PostgresStore) ByID(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		"SELECT id::text, username, email, wins, losses FROM users WHERE id = $1", id).
		Scan(&u.ID, &u.Username, &u.Email, &u.Wins, &u.Losses)
	if err != nil {
		return models.User{}, dbErr(err, ErrUserNotFound)
	}
	if u.Friends, err = s.friends(ctx, u.ID); err != nil {
		return models.User{}, err
	}
	return u, nil
}

func (s *PostgresStore) friends(ctx context.Context, id string) ([]models.Friend, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT u.id::text, u.username FROM friends f
		JOIN users u ON u.id = f.friend_id
		WHERE f.user_id = $1 ORDER BY f.added_at`, id)
	if err != nil {
		return nil, dbErr(err, ErrUserNotFound)
	}
	list, err := pgx.CollectRows(rows, pgx.RowToStructByPos[models.Friend])
	if err != nil {
		return nil, dbErr(err, ErrUserNotFound)
	}
	return list, nil
}

func (s *PostgresStore) AddStats(ctx context.Context, id string, wins, losses int) (models.User, error) {
	tag, err := s.pool.Exec(ctx,
		"UPDATE users SET wins = wins + $2, losses = losses + $3 WHERE id = $1", id, wins, losses)
	if err != nil {
		return models.User{}, dbErr(err, ErrUserNotFound)
	}
	if tag.RowsAffected() == 0 {
		return models.User{}, ErrUserNotFound
	}
	return s.ByID(ctx, id)
}

func (s *PostgresStore) AddFriend(ctx context.Context, id, friendID string) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO friends (user_id, friend_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", id, friendID)
	var pgErr *pgconn.PgError
	// "23503" is foreign_key_violation: one of the users does not exist
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return ErrUserNotFound
	}
	return dbErr(err, ErrUserNotFound)
}

func (s *PostgresStore) Search(ctx context.Context, query string, limit int) ([]models.Friend, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, username FROM users
		WHERE username ILIKE '%' || $1 || '%' OR id::text = $1
		ORDER BY username LIMIT $2`, query, limit)
	if err != nil {
		return nil, dbErr(err, ErrUserNotFound)
	}
	list, err := pgx.CollectRows(rows, pgx.RowToStructByPos[models.Friend])
	if err != nil {
		return nil, dbErr(err, ErrUserNotFound)
	}
	return list, nil
}
