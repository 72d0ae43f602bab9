package engine

import (
	"context"
	"slices"

	"github.com/aaronzipp/imposter/internal/models"
	"github.com/aaronzipp/imposter/internal/realtime"
)

const hostLeftNotice = "the host closed the room"

// HandleEvent applies one realtime event to the state. Events for any room
// other than the current one are stale and ignored.
func (m *Machine) HandleEvent(ctx context.Context, ev realtime.Event) error {
	if ev == nil || m.state.RoomID == "" || ev.Room() != m.state.RoomID {
		return nil
	}
	switch e := ev.(type) {
	case realtime.RoomChanged:
		return m.applyRoom(e.Record)
	case realtime.ChatAppended:
		// a client still reading its card can already see the first lines
		if m.state.Status == models.StatusRevealing || m.state.Status == models.StatusPlaying {
			m.appendChat(e.Message)
		}
	case realtime.RoomClosed:
		if m.state.IsHost {
			return nil
		}
		m.log.Info("room closed by host", "room_id", e.RoomID)
		m.state.Notice = hostLeftNotice
		return m.reset(ctx, false)
	case realtime.SubscriptionLost:
		return m.resubscribe(ctx)
	}
	return nil
}

// Pump applies every queued event without blocking and reports how many ran
func (m *Machine) Pump(ctx context.Context) (int, error) {
	events := m.Events()
	if events == nil {
		return 0, nil
	}
	n := 0
	for {
		select {
		case ev := <-events:
			n++
			if err := m.HandleEvent(ctx, ev); err != nil {
				return n, err
			}
		default:
			return n, nil
		}
	}
}

// applyRoom follows the room record. The roster and deal are copied over and
// the status only ever moves forward.
func (m *Machine) applyRoom(r models.Room) error {
	if r.Players != nil {
		m.state.Players = slices.Clone(r.Players)
		if n := len(m.state.Players); n > 0 && m.state.TurnIndex >= n {
			m.state.TurnIndex = m.state.TurnIndex % n
		}
	}
	if r.Category != nil {
		c := *r.Category
		m.state.Category = &c
	}
	if r.WordPair != nil {
		w := *r.WordPair
		m.state.WordPair = &w
	}

	next, ok := r.Status.GameStatus()
	if !ok || next == m.state.Status || !m.state.Status.CanTransitionTo(next) {
		return nil
	}
	switch next {
	case models.StatusPlaying:
		return m.enterPlaying()
	case models.StatusVoting:
		m.state.Countdown.Stop()
	case models.StatusResults:
		m.state.Countdown.Stop()
		if i := models.IndexOfPlayer(m.state.Players, r.AccusedID); i >= 0 && m.state.Outcome == nil {
			m.showResults(m.state.Players[i])
		}
	}
	return m.transition(next)
}

// resubscribe restores a dropped change stream and catches up on what was
// missed while it was down
func (m *Machine) resubscribe(ctx context.Context) error {
	roomID := m.state.RoomID
	m.log.Warn("realtime subscription lost, reconnecting", "room_id", roomID)
	if err := m.bridge.Start(ctx, roomID); err != nil {
		return connErr(err)
	}
	room, err := m.rooms.GetRoomByID(ctx, roomID)
	if err != nil {
		return connErr(err)
	}
	if err := m.applyRoom(room); err != nil {
		return err
	}
	if m.state.Status != models.StatusRevealing && m.state.Status != models.StatusPlaying {
		return nil
	}
	history, err := m.rooms.GetChatHistory(ctx, roomID)
	if err != nil {
		return connErr(err)
	}
	for _, msg := range history {
		m.appendChat(msg)
	}
	return nil
}
