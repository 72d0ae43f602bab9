package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aaronzipp/imposter/internal/models"
)

// Subscriber opens a raw change stream for one room. The stream closes when ctx ends.
type Subscriber interface {
	Subscribe(ctx context.Context, roomID string) (<-chan models.Change, error)
}

// Bridge turns a room's change stream into typed events.
// At most one subscription is active; starting another stops the previous one first.
type Bridge struct {
	src    Subscriber
	log    *slog.Logger
	events chan Event

	mu     sync.Mutex
	roomID string
	cancel context.CancelFunc
	done   chan struct{}
}

// NewBridge creates a bridge whose event queue holds buffer events.
func NewBridge(src Subscriber, log *slog.Logger, buffer int) *Bridge {
	return &Bridge{
		src:    src,
		log:    log,
		events: make(chan Event, buffer),
	}
}

// Events is the queue the game drains on its control goroutine.
func (b *Bridge) Events() <-chan Event {
	return b.events
}

// Active returns the room currently subscribed to, or "".
func (b *Bridge) Active() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.roomID
}

// Start subscribes to roomID, tearing down any prior subscription first.
func (b *Bridge) Start(ctx context.Context, roomID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()

	subCtx, cancel := context.WithCancel(ctx)
	changes, err := b.src.Subscribe(subCtx, roomID)
	if err != nil {
		cancel()
		return err
	}

	done := make(chan struct{})
	b.roomID, b.cancel, b.done = roomID, cancel, done
	go b.forward(subCtx, roomID, changes, done)
	b.log.Debug("realtime subscription started", "room_id", roomID)
	return nil
}

// Stop tears down the active subscription and waits for its forwarder to exit.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
}

func (b *Bridge) stopLocked() {
	if b.cancel == nil {
		return
	}
	b.cancel()
	<-b.done
	b.log.Debug("realtime subscription stopped", "room_id", b.roomID)
	b.roomID, b.cancel, b.done = "", nil, nil
}

func (b *Bridge) forward(ctx context.Context, roomID string, changes <-chan models.Change, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				if ctx.Err() == nil {
					b.emit(ctx, SubscriptionLost{RoomID: roomID})
				}
				return
			}
			if c.RoomID != roomID {
				continue
			}
			ev, err := Decode(c)
			if err != nil {
				b.log.Warn("dropping undecodable change", "room_id", roomID, "table", c.Table, "error", err)
				continue
			}
			if ev != nil {
				b.emit(ctx, ev)
			}
		}
	}
}

func (b *Bridge) emit(ctx context.Context, ev Event) {
	select {
	case b.events <- ev:
	case <-ctx.Done():
	}
}
