package remote

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronzipp/imposter/internal/engine"
	"github.com/aaronzipp/imposter/internal/handlers"
	"github.com/aaronzipp/imposter/internal/logging"
	"github.com/aaronzipp/imposter/internal/models"
	"github.com/aaronzipp/imposter/internal/realtime"
	"github.com/aaronzipp/imposter/internal/session"
	"github.com/aaronzipp/imposter/internal/store"
	"github.com/aaronzipp/imposter/internal/users"
	"github.com/aaronzipp/imposter/internal/voice"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := users.NewService(users.NewMemoryStore(), users.NewArgon2idHasher(1, 8*1024, 16, 8, 1), users.NewTokenManager("test-key", time.Hour))
	h := handlers.NewContext(store.NewMemory(), svc, logging.Discard(), "http://localhost/", []string{"*"})
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func newClient(srv *httptest.Server) *Client {
	return New(srv.URL, logging.Discard(), 2*time.Second)
}

func TestClient_ErrorKinds(t *testing.T) {
	srv := newServer(t)
	c := newClient(srv)
	ctx := context.Background()

	_, err := c.RoomByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	room, err := c.InsertRoom(ctx, models.Room{Code: "1234", HostID: "h"})
	require.NoError(t, err)
	_, err = c.InsertRoom(ctx, models.Room{Code: "1234", HostID: "h"})
	require.ErrorIs(t, err, store.ErrConflict)
	_, err = c.InsertRoom(ctx, models.Room{Code: "5678", HostID: "h", Status: "bogus"})
	require.ErrorIs(t, err, store.ErrValidation)
	padded, err := c.InsertRoom(ctx, models.Room{Code: "7", HostID: "h"})
	require.NoError(t, err)
	assert.Equal(t, "0007", padded.Code)

	exists, err := c.CodeExists(ctx, "1234")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = c.Subscribe(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, c.DeleteRoom(ctx, room.ID))
	require.ErrorIs(t, c.DeleteRoom(ctx, room.ID), store.ErrNotFound)
	require.NoError(t, c.Ping(ctx))
}

func TestClient_UnreachableIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := New(url, logging.Discard(), time.Second).Ping(context.Background())
	require.ErrorIs(t, err, store.ErrTransient)
	assert.True(t, store.Retryable(err))
}

func TestClient_Accounts(t *testing.T) {
	srv := newServer(t)
	c := newClient(srv)
	ctx := context.Background()

	ana, err := c.Signup(ctx, "ana", "ana@example.com", "secret")
	require.NoError(t, err)
	_, err = c.Signup(ctx, "ana", "ana@example.com", "secret")
	require.ErrorIs(t, err, users.ErrDuplicateEmail)
	_, err = c.Login(ctx, "ana@example.com", "nope")
	require.ErrorIs(t, err, users.ErrInvalidCredentials)

	bo, err := c.Signup(ctx, "bo", "bo@example.com", "pw")
	require.NoError(t, err)

	u, err := c.RecordResult(ctx, ana, false)
	require.NoError(t, err)
	assert.Equal(t, 1, u.Losses)

	found, err := c.Search(ctx, ana, "bo")
	require.NoError(t, err)
	require.Len(t, found, 1)
	u, err = c.AddFriend(ctx, ana, found[0].ID)
	require.NoError(t, err)
	assert.True(t, u.HasFriend(bo.User.ID))

	_, err = c.Profile(ctx, models.Session{Token: "forged"})
	require.ErrorIs(t, err, users.ErrInvalidToken)
}

func TestClient_Subscribe(t *testing.T) {
	srv := newServer(t)
	c := newClient(srv)
	ctx, cancel := context.WithCancel(context.Background())

	room, err := c.InsertRoom(ctx, models.Room{Code: "7777", HostID: "h"})
	require.NoError(t, err)
	changes, err := c.Subscribe(ctx, room.ID)
	require.NoError(t, err)

	_, err = c.InsertChat(ctx, models.ChatMessage{ID: "m1", RoomID: room.ID, PlayerID: "h", Text: "HI"})
	require.NoError(t, err)

	select {
	case ch := <-changes:
		assert.Equal(t, models.TableChats, ch.Table)
		assert.Equal(t, room.ID, ch.RoomID)
	case <-time.After(2 * time.Second):
		t.Fatal("no change received")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-changes:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

type fixedPair models.WordPair

func (p fixedPair) Pair(context.Context, string) models.WordPair { return models.WordPair(p) }

func player(t *testing.T, srv *httptest.Server, seed int64) *engine.Machine {
	t.Helper()
	rooms := store.NewClient(newClient(srv), logging.Discard(), 2*time.Second)
	bridge := realtime.NewBridge(rooms, logging.Discard(), 64)
	t.Cleanup(bridge.Stop)
	m := engine.New(engine.Deps{
		Rooms:    rooms,
		Bridge:   bridge,
		Accounts: newClient(srv),
		Words:    fixedPair{Target: "Sun", Decoy: "Moon"},
		Voice:    voice.Silent{},
		Sessions: &session.Memory{},
		Log:      logging.Discard(),
		Rand:     rand.New(rand.NewSource(seed)),
	})
	require.NoError(t, m.ContinueAsGuest())
	return m
}

func waitFor(t *testing.T, m *engine.Machine, cond func(engine.State) bool) {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for !cond(m.State()) {
		select {
		case ev := <-m.Events():
			require.NoError(t, m.HandleEvent(context.Background(), ev))
		case <-timeout:
			t.Fatalf("timed out in %s", m.Status())
		}
	}
}

func TestOnlineRoundOverHTTP(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	host, bo, cy := player(t, srv, 1), player(t, srv, 2), player(t, srv, 3)

	require.NoError(t, host.StartSetup(ctx, models.GameSettings{Mode: models.ModeOnline, IsHost: true, ImposterCount: 1, PlayerNames: []string{"hana"}}))
	code := host.State().RoomCode
	for _, m := range []*engine.Machine{bo, cy} {
		require.NoError(t, m.StartSetup(ctx, models.GameSettings{Mode: models.ModeOnline, ImposterCount: 1, RoomCode: code}))
	}

	waitFor(t, host, func(s engine.State) bool { return len(s.Players) == 3 })
	require.NoError(t, host.SelectCategory(ctx, "food"))
	require.NoError(t, host.ConfirmReveal(ctx))

	for _, m := range []*engine.Machine{bo, cy} {
		waitFor(t, m, func(s engine.State) bool { return s.Status == models.StatusPlaying })
	}

	require.NoError(t, host.SendChat(ctx, "warm"))
	waitFor(t, bo, func(s engine.State) bool { return s.MyTurn() })
	require.NoError(t, bo.SendChat(ctx, "crunchy"))
	waitFor(t, cy, func(s engine.State) bool { return len(s.ChatHistory) == 2 })
	assert.Equal(t, "CRUNCHY", cy.State().ChatHistory[1].Text)

	require.NoError(t, host.EndRound(ctx))
	waitFor(t, cy, func(s engine.State) bool { return s.Status == models.StatusVoting })

	accused := cy.State().Players[1]
	require.NoError(t, host.Vote(ctx, accused.ID))
	waitFor(t, cy, func(s engine.State) bool { return s.Status == models.StatusResults })
	assert.Equal(t, accused.ID, cy.State().VotedPlayer.ID)

	require.NoError(t, host.Reset(ctx))
	waitFor(t, bo, func(s engine.State) bool { return s.Status == models.StatusLobby })
	assert.NotEmpty(t, bo.State().Notice)
}
