package users

import (
	"context"

	"github.com/aaronzipp/imposter/internal/models"
)

// Local serves a signed-in session in process. Every call checks the session
// token, the same way the HTTP API does for remote clients.
type Local struct {
	*Service
}

func (l Local) userID(sess models.Session) (string, error) {
	id, err := l.VerifyToken(sess.Token)
	if err != nil {
		return "", err
	}
	if sess.User.ID != "" && sess.User.ID != id {
		return "", ErrInvalidToken
	}
	return id, nil
}

func (l Local) Profile(ctx context.Context, sess models.Session) (models.User, error) {
	id, err := l.userID(sess)
	if err != nil {
		return models.User{}, err
	}
	return l.Service.Profile(ctx, id)
}

func (l Local) RecordResult(ctx context.Context, sess models.Session, won bool) (models.User, error) {
	id, err := l.userID(sess)
	if err != nil {
		return models.User{}, err
	}
	return l.Service.RecordResult(ctx, id, won)
}

func (l Local) Search(ctx context.Context, sess models.Session, query string) ([]models.Friend, error) {
	id, err := l.userID(sess)
	if err != nil {
		return nil, err
	}
	return l.Service.Search(ctx, id, query)
}

func (l Local) AddFriend(ctx context.Context, sess models.Session, friendID string) (models.User, error) {
	id, err := l.userID(sess)
	if err != nil {
		return models.User{}, err
	}
	return l.Service.AddFriend(ctx, id, friendID)
}
