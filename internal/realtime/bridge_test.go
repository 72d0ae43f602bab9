package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronzipp/imposter/internal/models"
)

// fakeFeed hands out one channel per Subscribe and tracks which are still open.
type fakeFeed struct {
	mu    sync.Mutex
	feeds map[string]chan models.Change
	open  int
	err   error
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{feeds: map[string]chan models.Change{}}
}

func (f *fakeFeed) Subscribe(ctx context.Context, roomID string) (<-chan models.Change, error) {
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan models.Change, 8)
	f.mu.Lock()
	f.feeds[roomID] = ch
	f.open++
	f.mu.Unlock()
	go func() {
		<-ctx.Done()
		f.mu.Lock()
		f.open--
		f.mu.Unlock()
	}()
	return ch, nil
}

func (f *fakeFeed) send(roomID string, c models.Change) {
	f.mu.Lock()
	ch := f.feeds[roomID]
	f.mu.Unlock()
	ch <- c
}

func (f *fakeFeed) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func next(t *testing.T, b *Bridge) Event {
	t.Helper()
	select {
	case ev := <-b.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestBridge_TranslatesChanges(t *testing.T) {
	feed := newFakeFeed()
	b := NewBridge(feed, quietLogger(), 8)
	require.NoError(t, b.Start(context.Background(), "r1"))
	defer b.Stop()

	room := models.Room{ID: "r1", Status: models.RoomRevealing, Players: []models.Player{{ID: "p1"}}}
	feed.send("r1", models.Change{Table: models.TableRooms, Event: models.EventUpdate, RoomID: "r1", New: raw(t, room)})
	feed.send("r1", models.Change{Table: models.TableChats, Event: models.EventInsert, RoomID: "r1", New: raw(t, models.ChatMessage{ID: "c1", Text: "HI"})})
	feed.send("r1", models.Change{Table: models.TableRooms, Event: models.EventDelete, RoomID: "r1"})

	changed, ok := next(t, b).(RoomChanged)
	require.True(t, ok)
	assert.Equal(t, models.RoomRevealing, changed.Record.Status)
	assert.Len(t, changed.Record.Players, 1)

	chat, ok := next(t, b).(ChatAppended)
	require.True(t, ok)
	assert.Equal(t, "HI", chat.Message.Text)

	assert.Equal(t, RoomClosed{RoomID: "r1"}, next(t, b))
}

func TestBridge_SkipsForeignAndUndecodableChanges(t *testing.T) {
	feed := newFakeFeed()
	b := NewBridge(feed, quietLogger(), 8)
	require.NoError(t, b.Start(context.Background(), "r1"))
	defer b.Stop()

	feed.send("r1", models.Change{Table: models.TableRooms, Event: models.EventUpdate, RoomID: "other", New: raw(t, models.Room{})})
	feed.send("r1", models.Change{Table: models.TableRooms, Event: models.EventUpdate, RoomID: "r1", New: json.RawMessage(`{"players":`)})
	feed.send("r1", models.Change{Table: models.TableChats, Event: models.EventDelete, RoomID: "r1"})
	feed.send("r1", models.Change{Table: models.TableRooms, Event: models.EventDelete, RoomID: "r1"})

	assert.Equal(t, RoomClosed{RoomID: "r1"}, next(t, b))
}

func TestBridge_StartReplacesPriorSubscription(t *testing.T) {
	feed := newFakeFeed()
	b := NewBridge(feed, quietLogger(), 8)

	require.NoError(t, b.Start(context.Background(), "r1"))
	require.NoError(t, b.Start(context.Background(), "r2"))
	assert.Equal(t, "r2", b.Active())

	require.Eventually(t, func() bool { return feed.openCount() == 1 }, time.Second, 5*time.Millisecond)

	b.Stop()
	assert.Empty(t, b.Active())
	require.Eventually(t, func() bool { return feed.openCount() == 0 }, time.Second, 5*time.Millisecond)

	// stopping twice is harmless
	b.Stop()
}

func TestBridge_ReportsLostStream(t *testing.T) {
	feed := newFakeFeed()
	b := NewBridge(feed, quietLogger(), 8)
	require.NoError(t, b.Start(context.Background(), "r1"))
	defer b.Stop()

	feed.mu.Lock()
	close(feed.feeds["r1"])
	feed.mu.Unlock()

	assert.Equal(t, SubscriptionLost{RoomID: "r1"}, next(t, b))
}

func TestBridge_StartError(t *testing.T) {
	feed := newFakeFeed()
	feed.err = errors.New("offline")
	b := NewBridge(feed, quietLogger(), 8)

	assert.EqualError(t, b.Start(context.Background(), "r1"), "offline")
	assert.Empty(t, b.Active())
}
