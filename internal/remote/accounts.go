package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/aaronzipp/imposter/internal/engine"
	"github.com/aaronzipp/imposter/internal/handlers"
	"github.com/aaronzipp/imposter/internal/models"
)

var _ engine.Accounts = (*Client)(nil)

func (c *Client) Signup(ctx context.Context, username, email, password string) (models.Session, error) {
	var out models.Session
	err := c.do(ctx, http.MethodPost, "/auth/signup", "", handlers.SignupRequest{Username: username, Email: email, Password: password}, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (models.Session, error) {
	var out models.Session
	err := c.do(ctx, http.MethodPost, "/auth/login", "", handlers.LoginRequest{Email: email, Password: password}, &out)
	return out, err
}

func (c *Client) Profile(ctx context.Context, sess models.Session) (models.User, error) {
	var out models.User
	err := c.do(ctx, http.MethodGet, "/me", sess.Token, nil, &out)
	return out, err
}

func (c *Client) RecordResult(ctx context.Context, sess models.Session, won bool) (models.User, error) {
	var out models.User
	err := c.do(ctx, http.MethodPost, "/me/results", sess.Token, handlers.ResultRequest{Won: won}, &out)
	return out, err
}

func (c *Client) Search(ctx context.Context, sess models.Session, query string) ([]models.Friend, error) {
	var out []models.Friend
	err := c.do(ctx, http.MethodGet, "/users?q="+url.QueryEscape(query), sess.Token, nil, &out)
	return out, err
}

func (c *Client) AddFriend(ctx context.Context, sess models.Session, friendID string) (models.User, error) {
	var out models.User
	err := c.do(ctx, http.MethodPost, "/me/friends", sess.Token, handlers.FriendRequest{ID: friendID}, &out)
	return out, err
}
