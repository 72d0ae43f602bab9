package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/aaronzipp/imposter/internal/models"
	"github.com/aaronzipp/imposter/internal/session"
)

// Restore resumes a saved session straight into the lobby, or stays in Auth
func (m *Machine) Restore() bool {
	if m.sessions == nil {
		return false
	}
	sess, err := m.sessions.Load()
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			m.log.Warn("could not restore session", "error", err)
		}
		return false
	}
	m.signIn(sess)
	return true
}

func (m *Machine) signIn(sess models.Session) {
	u := sess.User
	m.state.User = &u
	m.state.Token = sess.Token
	m.state.Status = models.StatusLobby
}

func (m *Machine) session() models.Session {
	if m.state.User == nil {
		return models.Session{}
	}
	return models.Session{User: *m.state.User, Token: m.state.Token}
}

// saveUser replaces the signed-in user and persists the session
func (m *Machine) saveUser(u models.User) {
	m.state.User = &u
	if m.sessions == nil {
		return
	}
	if err := m.sessions.Save(m.session()); err != nil {
		m.log.Warn("could not save session", "error", err)
	}
}

// Signup creates an account and signs in
func (m *Machine) Signup(ctx context.Context, username, email, password string) error {
	if err := m.require(models.StatusAuth); err != nil {
		return err
	}
	if strings.TrimSpace(username) == "" || strings.TrimSpace(email) == "" || password == "" {
		return ErrMissingFields
	}
	sess, err := m.accounts.Signup(ctx, username, email, password)
	if err != nil {
		return err
	}
	m.signIn(sess)
	m.saveUser(sess.User)
	return nil
}

// Login signs in with email and password
func (m *Machine) Login(ctx context.Context, email, password string) error {
	if err := m.require(models.StatusAuth); err != nil {
		return err
	}
	if strings.TrimSpace(email) == "" || password == "" {
		return ErrMissingFields
	}
	sess, err := m.accounts.Login(ctx, email, password)
	if err != nil {
		return err
	}
	m.signIn(sess)
	m.saveUser(sess.User)
	return nil
}

// ContinueAsGuest enters the lobby without an account
func (m *Machine) ContinueAsGuest() error {
	if err := m.transition(models.StatusLobby); err != nil {
		return err
	}
	m.state.User = nil
	m.state.Token = ""
	return nil
}

// Logout forgets the session and returns to Auth
func (m *Machine) Logout() error {
	if err := m.require(models.StatusLobby, models.StatusProfile); err != nil {
		return err
	}
	if m.sessions != nil {
		if err := m.sessions.Clear(); err != nil {
			m.log.Warn("could not clear session", "error", err)
		}
	}
	m.state = State{Status: models.StatusAuth, Muted: true, MyPlayerID: m.state.MyPlayerID}
	return nil
}

// OpenProfile shows the signed-in user's profile, refreshing their stats first
func (m *Machine) OpenProfile(ctx context.Context) error {
	if m.state.User == nil {
		return ErrNotLoggedIn
	}
	if err := m.transition(models.StatusProfile); err != nil {
		return err
	}
	if u, err := m.accounts.Profile(ctx, m.session()); err != nil {
		m.log.Warn("could not refresh profile", "error", err)
	} else {
		m.saveUser(u)
	}
	return nil
}

// CloseProfile returns to the lobby
func (m *Machine) CloseProfile() error {
	if err := m.require(models.StatusProfile); err != nil {
		return err
	}
	return m.transition(models.StatusLobby)
}

// SearchUsers finds users to befriend
func (m *Machine) SearchUsers(ctx context.Context, query string) ([]models.Friend, error) {
	if m.state.User == nil {
		return nil, ErrNotLoggedIn
	}
	return m.accounts.Search(ctx, m.session(), query)
}

// AddFriend adds a user to the signed-in user's friends
func (m *Machine) AddFriend(ctx context.Context, friendID string) error {
	if m.state.User == nil {
		return ErrNotLoggedIn
	}
	u, err := m.accounts.AddFriend(ctx, m.session(), friendID)
	if err != nil {
		return err
	}
	m.saveUser(u)
	return nil
}
