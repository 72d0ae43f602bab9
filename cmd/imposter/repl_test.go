package main

import (
	"bytes"
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronzipp/imposter/internal/engine"
	"github.com/aaronzipp/imposter/internal/logging"
	"github.com/aaronzipp/imposter/internal/models"
	"github.com/aaronzipp/imposter/internal/session"
	"github.com/aaronzipp/imposter/internal/wordgen"
)

func localApp() (*app, *bytes.Buffer) {
	var out bytes.Buffer
	m := engine.New(engine.Deps{
		Words:    wordgen.WithFallback{Log: logging.Discard()},
		Sessions: &session.Memory{},
		Log:      logging.Discard(),
		Rand:     rand.New(rand.NewSource(7)),
	})
	return &app{m: m, out: &out, now: time.Now, publicURL: "http://localhost/"}, &out
}

func TestSettingsParsing(t *testing.T) {
	s, err := localSettings([]string{"4", "1", "min=3", "ana", "bo"})
	require.NoError(t, err)
	assert.Equal(t, models.GameSettings{Mode: models.ModeLocal, PlayerCount: 4, ImposterCount: 1, RoundTime: 3, PlayerNames: []string{"ana", "bo"}}, s)

	_, err = localSettings([]string{"4"})
	require.ErrorIs(t, err, errUsage)
	_, err = localSettings([]string{"4", "1", "min=0"})
	require.ErrorIs(t, err, errUsage)

	s, err = hostSettings([]string{"2", "code=12", "name=hana"})
	require.NoError(t, err)
	assert.True(t, s.IsHost)
	assert.Equal(t, "12", s.RoomCode)
	assert.Equal(t, []string{"hana"}, s.PlayerNames)

	s, err = joinSettings([]string{"https://imposter.example/?room=0042", "name=bo"})
	require.NoError(t, err)
	assert.Equal(t, "0042", s.RoomCode)
	assert.Equal(t, []string{"bo"}, s.PlayerNames)

	s, err = joinSettings(nil)
	require.NoError(t, err)
	assert.Empty(t, s.RoomCode)
}

func TestExec_LocalGame(t *testing.T) {
	a, out := localApp()
	ctx := context.Background()

	script := []string{
		"guest",
		"local 3 1 ana bo cy",
		"pick ai",
		"show", "next",
		"show", "next",
		"show", "next",
		"say it is hot",
		"end",
		"vote 2",
	}
	for _, line := range script {
		quit, err := a.exec(ctx, line)
		require.NoError(t, err, line)
		require.False(t, quit)
	}

	st := a.m.State()
	assert.Equal(t, models.StatusResults, st.Status)
	assert.Equal(t, "Sun", st.WordPair.Target)
	assert.Equal(t, "bo", st.VotedPlayer.Name)
	assert.Contains(t, out.String(), "Secret word: Sun")
	assert.Contains(t, out.String(), "YOU ARE THE IMPOSTER")

	_, err := a.exec(ctx, "again")
	require.NoError(t, err)
	assert.Equal(t, models.StatusLobby, a.m.Status())
}

func TestExec_Errors(t *testing.T) {
	a, _ := localApp()
	ctx := context.Background()

	_, err := a.exec(ctx, "dance")
	require.Error(t, err)
	_, err = a.exec(ctx, "login onlyemail")
	require.ErrorIs(t, err, errUsage)

	_, err = a.exec(ctx, "guest")
	require.NoError(t, err)
	_, err = a.exec(ctx, "local 2 1")
	require.ErrorIs(t, err, engine.ErrInvalidSettings)

	quit, err := a.exec(ctx, "quit")
	require.NoError(t, err)
	assert.True(t, quit)
}

func TestLoop_QuitsOnInputEnd(t *testing.T) {
	a, out := localApp()
	lines := make(chan string, 3)
	lines <- "guest"
	lines <- "local 3 1"
	close(lines)

	require.NoError(t, a.loop(context.Background(), lines, nil))
	assert.Equal(t, models.StatusLobby, a.m.Status(), "leaving resets an unfinished game")
	assert.True(t, strings.Contains(out.String(), "== LOCAL GAME =="))
}
