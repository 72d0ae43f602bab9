//go:build integration

package store_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aaronzipp/imposter/internal/models"
	"github.com/aaronzipp/imposter/internal/store"
	"github.com/aaronzipp/imposter/internal/store/migrations"
)

var repo *store.Postgres

func TestMain(m *testing.M) {
	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testusername"),
		postgres.WithPassword("testpassword"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		panic(err)
	}

	connString, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		panic(err)
	}
	if err := migrations.Migrate(connString); err != nil {
		panic(err)
	}

	repo, err = store.NewPostgres(ctx, connString, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		panic(err)
	}

	code := m.Run()

	// Cleanup
	repo.Close()
	postgresContainer.Terminate(ctx)
	os.Exit(code)
}

func TestPostgres(t *testing.T) {
	ctx := context.Background()
	var room models.Room

	t.Run("InsertRoom", func(t *testing.T) {
		var err error
		room, err = repo.InsertRoom(ctx, models.Room{Code: "0042", HostID: "h", HostName: "HOST", Settings: models.RoomSettings{ImposterCount: 1, RoundTime: 5}})
		require.NoError(t, err)
		assert.NotEmpty(t, room.ID)
		assert.Equal(t, models.RoomWaiting, room.Status)
		assert.Empty(t, room.Players)
		assert.Equal(t, 5, room.Settings.RoundTime)
	})

	t.Run("InsertRoom_DuplicateCode", func(t *testing.T) {
		_, err := repo.InsertRoom(ctx, models.Room{Code: "0042", HostID: "x", HostName: "X"})
		assert.ErrorIs(t, err, store.ErrConflict)
	})

	t.Run("RoomByCode_NotFound", func(t *testing.T) {
		_, err := repo.RoomByCode(ctx, "9999")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("RoomByID_MalformedID", func(t *testing.T) {
		_, err := repo.RoomByID(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("UpdateRoom_Notifies", func(t *testing.T) {
		subCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		feed, err := repo.Subscribe(subCtx, room.ID)
		require.NoError(t, err)
		// LISTEN is established asynchronously on startup
		time.Sleep(200 * time.Millisecond)

		status := models.RoomRevealing
		players := []models.Player{{ID: "h", Name: "HOST", IsImposter: true, Word: "YOU ARE THE IMPOSTER"}}
		cat := models.Category{ID: "food", Name: "Food & Drinks"}
		updated, err := repo.UpdateRoom(ctx, room.ID, models.RoomUpdate{Status: &status, Players: &players, Category: &cat})
		require.NoError(t, err)
		assert.Equal(t, models.RoomRevealing, updated.Status)
		require.NotNil(t, updated.Category)
		assert.Equal(t, "food", updated.Category.ID)

		select {
		case c := <-feed:
			assert.Equal(t, models.TableRooms, c.Table)
			assert.Equal(t, models.EventUpdate, c.Event)
			var r models.Room
			require.NoError(t, json.Unmarshal(c.New, &r))
			assert.Equal(t, players, r.Players)
		case <-time.After(5 * time.Second):
			t.Fatal("no notification")
		}
	})

	t.Run("Chat", func(t *testing.T) {
		m := models.ChatMessage{ID: "c1", RoomID: room.ID, PlayerID: "h", PlayerName: "HOST", Text: "RED", Timestamp: 1}
		first, err := repo.InsertChat(ctx, m)
		require.NoError(t, err)
		again, err := repo.InsertChat(ctx, m)
		require.NoError(t, err)
		assert.Equal(t, first.Seq, again.Seq)

		list, err := repo.ListChats(ctx, room.ID)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("PlayersAndVotes", func(t *testing.T) {
		require.NoError(t, repo.InsertPlayer(ctx, models.RoomPlayer{RoomID: room.ID, PlayerID: "h", PlayerName: "HOST", IsHost: true}))
		list, err := repo.ListPlayers(ctx, room.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.True(t, list[0].IsHost)

		require.NoError(t, repo.InsertVote(ctx, models.Vote{ID: "v1", RoomID: room.ID, VoterID: "h", VotedPlayerID: "p"}))
		require.NoError(t, repo.InsertVote(ctx, models.Vote{ID: "v1", RoomID: room.ID, VoterID: "h", VotedPlayerID: "p"}))
		votes, err := repo.ListVotes(ctx, room.ID)
		require.NoError(t, err)
		assert.Len(t, votes, 1)
		require.NoError(t, repo.ClearVotes(ctx, room.ID))
	})

	t.Run("DeleteRoom", func(t *testing.T) {
		require.NoError(t, repo.DeleteRoom(ctx, room.ID))
		assert.ErrorIs(t, repo.DeleteRoom(ctx, room.ID), store.ErrNotFound)
		exists, err := repo.CodeExists(ctx, "0042")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}
