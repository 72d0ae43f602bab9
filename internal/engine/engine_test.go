package engine

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronzipp/imposter/internal/game"
	"github.com/aaronzipp/imposter/internal/logging"
	"github.com/aaronzipp/imposter/internal/models"
	"github.com/aaronzipp/imposter/internal/realtime"
	"github.com/aaronzipp/imposter/internal/session"
	"github.com/aaronzipp/imposter/internal/store"
	"github.com/aaronzipp/imposter/internal/users"
	"github.com/aaronzipp/imposter/internal/voice"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixedPair models.WordPair

func (p fixedPair) Pair(context.Context, string) models.WordPair { return models.WordPair(p) }

// world is one shared backend that several clients play through
type world struct {
	backend  *store.Memory
	rooms    *store.Client
	accounts users.Local
	clock    *clock
	seed     int64
}

func newWorld() *world {
	backend := store.NewMemory()
	svc := users.NewService(users.NewMemoryStore(), users.NewArgon2idHasher(1, 8*1024, 16, 8, 1), users.NewTokenManager("test-key", time.Hour))
	return &world{
		backend:  backend,
		rooms:    store.NewClient(backend, logging.Discard(), time.Second),
		accounts: users.Local{Service: svc},
		clock:    &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
	}
}

func (w *world) client(t *testing.T) *Machine {
	t.Helper()
	w.seed++
	bridge := realtime.NewBridge(w.rooms, logging.Discard(), 64)
	m := New(Deps{
		Rooms:    w.rooms,
		Bridge:   bridge,
		Accounts: w.accounts,
		Words:    fixedPair{Target: "Sun", Decoy: "Moon"},
		Voice:    voice.Silent{},
		Sessions: &session.Memory{},
		Log:      logging.Discard(),
		Rand:     rand.New(rand.NewSource(w.seed)),
		Now:      w.clock.Now,
	})
	t.Cleanup(bridge.Stop)
	return m
}

func guest(t *testing.T, m *Machine) {
	t.Helper()
	require.NoError(t, m.ContinueAsGuest())
}

// pumpUntil applies incoming events until cond holds
func pumpUntil(t *testing.T, m *Machine, cond func(State) bool) {
	t.Helper()
	ctx := context.Background()
	timeout := time.After(2 * time.Second)
	for !cond(m.State()) {
		select {
		case ev := <-m.Events():
			require.NoError(t, m.HandleEvent(ctx, ev))
		case <-timeout:
			t.Fatalf("timed out waiting, status %s with %d players", m.Status(), len(m.State().Players))
		}
	}
}

func inStatus(s models.GameStatus) func(State) bool {
	return func(st State) bool { return st.Status == s }
}

func imposterOf(players []models.Player) models.Player {
	for _, p := range players {
		if p.IsImposter {
			return p
		}
	}
	return models.Player{}
}

func civilianOf(players []models.Player) models.Player {
	for _, p := range players {
		if !p.IsImposter {
			return p
		}
	}
	return models.Player{}
}

func TestMachine_LocalRound(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	m := w.client(t)
	guest(t, m)

	require.NoError(t, m.StartSetup(ctx, models.GameSettings{Mode: models.ModeLocal, PlayerCount: 4, ImposterCount: 1}))
	assert.Equal(t, models.StatusCategorySelect, m.Status())
	require.Len(t, m.State().Players, 4)
	assert.Equal(t, "AGENT 1", m.State().Players[0].Name)

	require.ErrorIs(t, m.SelectCategory(ctx, "nope"), ErrUnknownCategory)
	require.NoError(t, m.SelectCategory(ctx, "food"))
	assert.Equal(t, models.StatusRevealing, m.Status())

	st := m.State()
	assert.Equal(t, 1, game.CountImposters(st.Players))
	for _, p := range st.Players {
		if p.IsImposter {
			assert.Equal(t, game.ImposterWord, p.Word)
		} else {
			assert.Equal(t, st.WordPair.Target, p.Word)
		}
	}

	for i := range 4 {
		p, err := m.RevealCurrent()
		require.NoError(t, err)
		assert.Equal(t, st.Players[i].ID, p.ID)
		require.NoError(t, m.ConfirmReveal(ctx))
	}
	assert.Equal(t, models.StatusPlaying, m.Status())
	assert.True(t, m.State().Countdown.Running())

	require.ErrorIs(t, m.SendChat(ctx, "   "), ErrEmptyMessage)
	require.NoError(t, m.SendChat(ctx, "something hot"))
	require.NoError(t, m.SendChat(ctx, "bright"))
	st = m.State()
	require.Len(t, st.ChatHistory, 2)
	assert.Equal(t, "SOMETHING HOT", st.ChatHistory[0].Text)
	assert.Equal(t, st.Players[0].ID, st.ChatHistory[0].PlayerID)
	assert.Equal(t, st.Players[1].ID, st.ChatHistory[1].PlayerID)
	assert.Equal(t, 2, st.TurnIndex)

	require.NoError(t, m.EndRound(ctx))
	require.NoError(t, m.EndRound(ctx), "ending twice is a no-op")
	assert.Equal(t, models.StatusVoting, m.Status())

	require.ErrorIs(t, m.Vote(ctx, "ghost"), ErrUnknownPlayer)
	imp := imposterOf(st.Players)
	require.NoError(t, m.Vote(ctx, imp.ID))
	st = m.State()
	assert.Equal(t, models.StatusResults, st.Status)
	require.NotNil(t, st.Outcome)
	assert.True(t, st.Outcome.ImposterCaught)
	assert.Equal(t, game.SideCivilians, st.Outcome.Winner)
	assert.Equal(t, imp.ID, st.VotedPlayer.ID)
}

func TestMachine_LocalSettingsValidation(t *testing.T) {
	ctx := context.Background()
	m := newWorld().client(t)
	guest(t, m)

	testCases := []struct {
		description string
		players     int
		imposters   int
	}{
		{"too few players", 2, 1},
		{"too many players", 13, 1},
		{"no imposters", 5, 0},
		{"everyone an imposter", 4, 4},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			err := m.StartSetup(ctx, models.GameSettings{Mode: models.ModeLocal, PlayerCount: tc.players, ImposterCount: tc.imposters})
			require.ErrorIs(t, err, ErrInvalidSettings)
			assert.Equal(t, models.StatusLobby, m.Status())
		})
	}
}

func TestMachine_RecordsStatsForSignedInPlayer(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	m := w.client(t)
	require.NoError(t, m.Signup(ctx, "ana", "ana@example.com", "secret"))
	assert.Equal(t, models.StatusLobby, m.Status())

	require.NoError(t, m.StartSetup(ctx, models.GameSettings{
		Mode: models.ModeLocal, PlayerCount: 3, ImposterCount: 1, PlayerNames: []string{"ana", "bo", "cy"},
	}))
	require.NoError(t, m.SelectCategory(ctx, "places"))
	for range 3 {
		require.NoError(t, m.ConfirmReveal(ctx))
	}
	require.NoError(t, m.EndRound(ctx))

	st := m.State()
	me := st.Players[0]
	require.Equal(t, "ana", me.Name)
	require.NoError(t, m.Vote(ctx, civilianOf(st.Players).ID))

	st = m.State()
	// a civilian was accused, so the imposters won
	if me.IsImposter {
		assert.Equal(t, 1, st.User.Wins)
		assert.Equal(t, 0, st.User.Losses)
	} else {
		assert.Equal(t, 0, st.User.Wins)
		assert.Equal(t, 1, st.User.Losses)
	}

	saved, err := m.sessions.Load()
	require.NoError(t, err)
	assert.Equal(t, st.User.Wins, saved.User.Wins)
}

func TestMachine_ResetClearsGame(t *testing.T) {
	ctx := context.Background()
	m := newWorld().client(t)
	guest(t, m)
	settings := models.GameSettings{Mode: models.ModeLocal, PlayerCount: 3, ImposterCount: 1, RoundTime: 3}
	require.NoError(t, m.StartSetup(ctx, settings))
	require.NoError(t, m.SelectCategory(ctx, "animals"))
	for range 3 {
		require.NoError(t, m.ConfirmReveal(ctx))
	}
	require.NoError(t, m.SendChat(ctx, "stripes"))

	require.NoError(t, m.Reset(ctx))

	want := State{Status: models.StatusLobby, Settings: settings, Muted: true}
	if diff := cmp.Diff(want, m.State()); diff != "" {
		t.Errorf("state after reset (-want +got):\n%s", diff)
	}
}

func TestMachine_OnlineGame(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	host, bo, cy := w.client(t), w.client(t), w.client(t)
	for _, m := range []*Machine{host, bo, cy} {
		guest(t, m)
	}

	require.NoError(t, host.StartSetup(ctx, models.GameSettings{Mode: models.ModeOnline, IsHost: true, ImposterCount: 1, RoundTime: 2, PlayerNames: []string{"hana"}}))
	hs := host.State()
	assert.Equal(t, models.StatusCategorySelect, hs.Status)
	assert.True(t, hs.IsHost)
	require.Len(t, hs.RoomCode, game.RoomCodeLength)
	assert.True(t, hs.Muted, "voice starts muted")

	require.ErrorIs(t, host.SelectCategory(ctx, "food"), ErrNotEnoughPlayers)

	require.NoError(t, bo.StartSetup(ctx, models.GameSettings{Mode: models.ModeOnline, ImposterCount: 1, RoomCode: hs.RoomCode, PlayerNames: []string{"bo"}}))
	require.NoError(t, cy.StartSetup(ctx, models.GameSettings{Mode: models.ModeOnline, ImposterCount: 1, RoomCode: " " + hs.RoomCode + " "}))
	assert.Equal(t, models.StatusWaitingForHost, bo.Status())
	assert.Equal(t, 2, bo.State().Settings.RoundTime, "joiners take the room's settings")
	assert.Equal(t, game.GuestName, cy.State().Players[2].Name)

	pumpUntil(t, host, func(s State) bool { return len(s.Players) == 3 })
	require.NoError(t, host.SelectCategory(ctx, "jobs"))
	assert.Equal(t, models.StatusRevealing, host.Status())

	for _, m := range []*Machine{bo, cy} {
		pumpUntil(t, m, inStatus(models.StatusRevealing))
		me, err := m.RevealCurrent()
		require.NoError(t, err)
		assert.Equal(t, m.State().MyPlayerID, me.ID)
		assert.NotEmpty(t, me.Word)
	}
	assert.Equal(t, 1, game.CountImposters(host.State().Players))

	require.NoError(t, host.ConfirmReveal(ctx))
	assert.Equal(t, models.StatusPlaying, host.Status())
	pumpUntil(t, bo, inStatus(models.StatusPlaying))
	pumpUntil(t, cy, inStatus(models.StatusPlaying))

	// turn order follows the room's roster: hana, bo, cy
	require.ErrorIs(t, bo.SendChat(ctx, "too early"), ErrNotYourTurn)
	require.NoError(t, host.SendChat(ctx, "hired"))
	pumpUntil(t, bo, func(s State) bool { return len(s.ChatHistory) == 1 })
	require.NoError(t, bo.SendChat(ctx, "office"))
	pumpUntil(t, cy, func(s State) bool { return len(s.ChatHistory) == 2 })
	assert.True(t, cy.State().MyTurn())
	pumpUntil(t, host, func(s State) bool { return len(s.ChatHistory) == 2 })
	assert.Equal(t, []string{"HIRED", "OFFICE"}, []string{host.State().ChatHistory[0].Text, host.State().ChatHistory[1].Text})

	// the countdown runs out on a joiner first; the host's update must not move it twice
	w.clock.Advance(3 * time.Minute)
	require.NoError(t, bo.Tick(ctx))
	assert.Equal(t, models.StatusVoting, bo.Status())
	require.NoError(t, host.Tick(ctx))
	require.NoError(t, host.EndRound(ctx))
	assert.Equal(t, models.StatusVoting, host.Status())
	pumpUntil(t, cy, inStatus(models.StatusVoting))
	_, err := bo.Pump(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StatusVoting, bo.Status())

	imp := imposterOf(host.State().Players)
	require.NoError(t, bo.Vote(ctx, imp.ID))
	require.NoError(t, host.Vote(ctx, imp.ID))

	pumpUntil(t, cy, inStatus(models.StatusResults))
	out := cy.State().Outcome
	require.NotNil(t, out)
	assert.Equal(t, imp.ID, out.Accused.ID)
	assert.Equal(t, game.SideCivilians, out.Winner)

	votes, err := w.rooms.GetVotes(ctx, hs.RoomID)
	require.NoError(t, err)
	assert.Len(t, votes, 2)
}

func TestMachine_JoinErrors(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	host, late := w.client(t), w.client(t)
	guest(t, host)
	guest(t, late)

	require.ErrorIs(t, late.StartSetup(ctx, models.GameSettings{Mode: models.ModeOnline, ImposterCount: 1}), ErrMissingRoomCode)
	require.ErrorIs(t, late.StartSetup(ctx, models.GameSettings{Mode: models.ModeOnline, ImposterCount: 1, RoomCode: "0000"}), ErrRoomNotFound)

	require.NoError(t, host.StartSetup(ctx, models.GameSettings{Mode: models.ModeOnline, IsHost: true, ImposterCount: 1}))
	roomID := host.State().RoomID
	playing := models.RoomPlaying
	_, err := w.rooms.UpdateRoom(ctx, roomID, models.RoomUpdate{Status: &playing})
	require.NoError(t, err)

	err = late.StartSetup(ctx, models.GameSettings{Mode: models.ModeOnline, ImposterCount: 1, RoomCode: host.State().RoomCode})
	require.ErrorIs(t, err, ErrGameInProgress)
	assert.Equal(t, models.StatusLobby, late.Status())
	assert.Empty(t, late.State().RoomID)

	room, err := w.rooms.GetRoomByID(ctx, roomID)
	require.NoError(t, err)
	assert.Len(t, room.Players, 1)
}

func TestMachine_HostLeavingClosesRoom(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	host, bo := w.client(t), w.client(t)
	guest(t, host)
	guest(t, bo)

	require.NoError(t, host.StartSetup(ctx, models.GameSettings{Mode: models.ModeOnline, IsHost: true, ImposterCount: 1}))
	require.NoError(t, bo.StartSetup(ctx, models.GameSettings{Mode: models.ModeOnline, ImposterCount: 1, RoomCode: host.State().RoomCode}))
	roomID := host.State().RoomID

	require.NoError(t, host.Reset(ctx))
	assert.Equal(t, models.StatusLobby, host.Status())

	pumpUntil(t, bo, inStatus(models.StatusLobby))
	assert.Equal(t, hostLeftNotice, bo.State().Notice)
	assert.Empty(t, bo.State().RoomID)

	_, err := w.rooms.GetRoomByID(ctx, roomID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestMachine_IgnoresStaleEvents(t *testing.T) {
	ctx := context.Background()
	m := newWorld().client(t)
	guest(t, m)
	m.state.RoomID = "current"
	m.state.Status = models.StatusWaitingForHost

	require.NoError(t, m.HandleEvent(ctx, realtime.RoomChanged{RoomID: "old", Record: models.Room{Status: models.RoomPlaying}}))
	assert.Equal(t, models.StatusWaitingForHost, m.Status())

	require.NoError(t, m.HandleEvent(ctx, realtime.RoomChanged{RoomID: "current", Record: models.Room{Status: models.RoomWaiting}}))
	assert.Equal(t, models.StatusWaitingForHost, m.Status())
}

func TestMachine_ChatDedupe(t *testing.T) {
	ctx := context.Background()
	m := newWorld().client(t)
	guest(t, m)
	m.state.RoomID = "r1"
	m.state.Status = models.StatusPlaying
	m.state.Settings.Mode = models.ModeOnline
	m.state.Players = []models.Player{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	msg := models.ChatMessage{ID: "m1", PlayerID: "b", Text: "HI"}
	for range 2 {
		require.NoError(t, m.HandleEvent(ctx, realtime.ChatAppended{RoomID: "r1", Message: msg}))
	}
	assert.Len(t, m.State().ChatHistory, 1)
	assert.Equal(t, 2, m.State().TurnIndex)
}

func TestMachine_WrongState(t *testing.T) {
	ctx := context.Background()
	m := newWorld().client(t)

	require.ErrorIs(t, m.StartSetup(ctx, models.GameSettings{PlayerCount: 3, ImposterCount: 1}), ErrWrongState)
	require.ErrorIs(t, m.Reset(ctx), ErrWrongState)
	require.ErrorIs(t, m.OpenProfile(ctx), ErrNotLoggedIn)

	guest(t, m)
	require.ErrorIs(t, m.Vote(ctx, "x"), ErrWrongState)
	require.ErrorIs(t, m.SendChat(ctx, "x"), ErrWrongState)
	require.ErrorIs(t, m.ConfirmReveal(ctx), ErrWrongState)
}

func TestMachine_RestoreAndLogout(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	m := w.client(t)
	require.NoError(t, m.Signup(ctx, "ana", "ana@example.com", "secret"))
	sessions := m.sessions

	again := New(Deps{Accounts: w.accounts, Sessions: sessions, Log: logging.Discard()})
	require.True(t, again.Restore())
	assert.Equal(t, models.StatusLobby, again.Status())
	assert.Equal(t, "ana", again.State().User.Username)

	require.NoError(t, again.OpenProfile(ctx))
	require.NoError(t, again.CloseProfile())
	require.NoError(t, again.Logout())
	assert.Equal(t, models.StatusAuth, again.Status())
	assert.Nil(t, again.State().User)

	assert.False(t, New(Deps{Sessions: sessions, Log: logging.Discard()}).Restore())
}

// playingRoom runs three clients through hosting, joining and reveal
func playingRoom(t *testing.T, w *world) (host, bo, cy *Machine) {
	t.Helper()
	ctx := context.Background()
	host, bo, cy = w.client(t), w.client(t), w.client(t)
	for _, m := range []*Machine{host, bo, cy} {
		guest(t, m)
	}
	require.NoError(t, host.StartSetup(ctx, models.GameSettings{Mode: models.ModeOnline, IsHost: true, ImposterCount: 1, PlayerNames: []string{"hana"}}))
	code := host.State().RoomCode
	require.NoError(t, bo.StartSetup(ctx, models.GameSettings{Mode: models.ModeOnline, ImposterCount: 1, RoomCode: code, PlayerNames: []string{"bo"}}))
	require.NoError(t, cy.StartSetup(ctx, models.GameSettings{Mode: models.ModeOnline, ImposterCount: 1, RoomCode: code, PlayerNames: []string{"cy"}}))
	pumpUntil(t, host, func(s State) bool { return len(s.Players) == 3 })
	require.NoError(t, host.SelectCategory(ctx, "food"))
	require.NoError(t, host.ConfirmReveal(ctx))
	pumpUntil(t, bo, inStatus(models.StatusPlaying))
	pumpUntil(t, cy, inStatus(models.StatusPlaying))
	return host, bo, cy
}

func TestMachine_OnlineChatWaitsForStoredMessage(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	host, bo, _ := playingRoom(t, w)
	require.Equal(t, host.State().MyPlayerID, host.State().Players[0].ID)

	require.NoError(t, host.SendChat(ctx, "spicy"))
	st := host.State()
	assert.Equal(t, 0, st.TurnIndex, "the turn moves only when the message comes back")
	assert.Empty(t, st.ChatHistory)
	require.ErrorIs(t, bo.SendChat(ctx, "me next"), ErrNotYourTurn)

	pumpUntil(t, host, func(s State) bool { return len(s.ChatHistory) == 1 })
	pumpUntil(t, bo, func(s State) bool { return len(s.ChatHistory) == 1 })
	for _, m := range []*Machine{host, bo} {
		st := m.State()
		assert.Equal(t, 1, st.TurnIndex)
		assert.Equal(t, "SPICY", st.ChatHistory[0].Text)
	}
	assert.True(t, bo.State().MyTurn())
}

func TestMachine_AICategoryWithoutGenerator(t *testing.T) {
	ctx := context.Background()
	m := New(Deps{Sessions: &session.Memory{}, Log: logging.Discard(), Rand: rand.New(rand.NewSource(1))})
	guest(t, m)

	require.NoError(t, m.StartSetup(ctx, models.GameSettings{Mode: models.ModeLocal, PlayerCount: 3, ImposterCount: 1}))
	require.NoError(t, m.SelectCategory(ctx, game.AICategoryID))
	require.NotNil(t, m.State().WordPair)
	assert.Equal(t, "Sun", m.State().WordPair.Target)
}

func TestMachine_LaggingClientCatchesUp(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	host, _, cy := playingRoom(t, w)
	hana := host.State().Players[0]

	// more chat than the bridge and the room feed can buffer while cy is idle
	const sent = 200
	for range sent {
		_, err := w.rooms.SendChatMessage(ctx, host.State().RoomID, hana.ID, hana.Name, "LINE")
		require.NoError(t, err)
	}

	pumpUntil(t, cy, func(s State) bool { return len(s.ChatHistory) == sent })
	st := cy.State()
	assert.Equal(t, models.StatusPlaying, st.Status)
	assert.Equal(t, 1, st.TurnIndex)
	seen := make(map[string]bool)
	for _, msg := range st.ChatHistory {
		assert.False(t, seen[msg.ID], "duplicate message %s", msg.ID)
		seen[msg.ID] = true
	}
}
