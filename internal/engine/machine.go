package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/aaronzipp/imposter/internal/game"
	"github.com/aaronzipp/imposter/internal/models"
	"github.com/aaronzipp/imposter/internal/realtime"
	"github.com/aaronzipp/imposter/internal/store"
	"github.com/aaronzipp/imposter/internal/voice"
	"github.com/aaronzipp/imposter/internal/wordgen"
)

// Rooms is the room store the machine persists online games through
type Rooms interface {
	CreateRoom(ctx context.Context, code, hostID, hostName string, settings models.RoomSettings) (string, error)
	GetRoomByCode(ctx context.Context, code string) (models.Room, error)
	GetRoomByID(ctx context.Context, roomID string) (models.Room, error)
	UpdateRoom(ctx context.Context, roomID string, u models.RoomUpdate) (models.Room, error)
	DeleteRoom(ctx context.Context, roomID string) error
	AddPlayerToRoom(ctx context.Context, roomID string, p models.Player, isHost bool) error
	RemovePlayerFromRoom(ctx context.Context, roomID, playerID string) error
	SendChatMessage(ctx context.Context, roomID, playerID, playerName, text string) (models.ChatMessage, error)
	GetChatHistory(ctx context.Context, roomID string) ([]models.ChatMessage, error)
	SubmitVote(ctx context.Context, roomID, voterID, votedPlayerID string) error
	GenerateUniqueRoomCode(ctx context.Context) (string, error)
}

// Bridge delivers typed room events; at most one room is subscribed at a time
type Bridge interface {
	Start(ctx context.Context, roomID string) error
	Stop()
	Events() <-chan realtime.Event
}

// Accounts is the user-record service acting for a signed-in session
type Accounts interface {
	Signup(ctx context.Context, username, email, password string) (models.Session, error)
	Login(ctx context.Context, email, password string) (models.Session, error)
	Profile(ctx context.Context, sess models.Session) (models.User, error)
	RecordResult(ctx context.Context, sess models.Session, won bool) (models.User, error)
	Search(ctx context.Context, sess models.Session, query string) ([]models.Friend, error)
	AddFriend(ctx context.Context, sess models.Session, friendID string) (models.User, error)
}

// Sessions persists the signed-in session between launches
type Sessions interface {
	Load() (models.Session, error)
	Save(sess models.Session) error
	Clear() error
}

// Deps are the collaborators of a Machine. Rooms and Bridge may be nil for
// local-only play. A nil Words always deals the fallback pair for the AI
// category.
type Deps struct {
	Rooms    Rooms
	Bridge   Bridge
	Accounts Accounts
	Words    game.PairSource
	Voice    voice.Source
	Sessions Sessions
	Log      *slog.Logger
	Rand     *rand.Rand
	Now      func() time.Time
	NewID    func() string
}

// Machine is the game state machine. It is not safe for concurrent use: one
// control goroutine calls its methods and drains Events into HandleEvent.
type Machine struct {
	rooms    Rooms
	bridge   Bridge
	accounts Accounts
	words    game.PairSource
	voice    voice.Source
	sessions Sessions
	log      *slog.Logger
	rng      *rand.Rand
	now      func() time.Time
	newID    func() string

	state     State
	stream    voice.Stream
	seenChats map[string]bool
}

// New creates a machine in the Auth state
func New(d Deps) *Machine {
	m := &Machine{
		rooms:    d.Rooms,
		bridge:   d.Bridge,
		accounts: d.Accounts,
		words:    d.Words,
		voice:    d.Voice,
		sessions: d.Sessions,
		log:      d.Log,
		rng:      d.Rand,
		now:      d.Now,
		newID:    d.NewID,
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	if m.words == nil {
		m.words = wordgen.WithFallback{Log: m.log}
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}
	m.state = State{Status: models.StatusAuth, Muted: true}
	m.seenChats = make(map[string]bool)
	return m
}

// State returns a copy of the current state
func (m *Machine) State() State {
	return m.state.clone()
}

// Status returns the current game status
func (m *Machine) Status() models.GameStatus {
	return m.state.Status
}

// Events is the bridge's queue, or nil when the machine has no bridge
func (m *Machine) Events() <-chan realtime.Event {
	if m.bridge == nil {
		return nil
	}
	return m.bridge.Events()
}

// transition moves to next if the table allows it
func (m *Machine) transition(next models.GameStatus) error {
	if !m.state.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrWrongState, m.state.Status, next)
	}
	m.log.Debug("status change", "from", m.state.Status, "to", next, "room_id", m.state.RoomID)
	m.state.Status = next
	return nil
}

func (m *Machine) require(statuses ...models.GameStatus) error {
	for _, s := range statuses {
		if m.state.Status == s {
			return nil
		}
	}
	return fmt.Errorf("%w: in %s", ErrWrongState, m.state.Status)
}

func (m *Machine) online() bool {
	return m.state.Online() && m.rooms != nil
}

// connErr wraps a store failure for the player; a room lookup miss becomes ErrRoomNotFound
func connErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrRoomNotFound, err)
	}
	return fmt.Errorf("%w: %w", ErrConnection, err)
}

// startVoice opens the media stream muted; failure never blocks the game
func (m *Machine) startVoice(ctx context.Context) {
	if m.voice == nil || m.stream != nil {
		return
	}
	s, err := m.voice.Open(ctx)
	if err != nil {
		m.log.Warn("voice unavailable", "error", err)
		return
	}
	s.SetMuted(true)
	m.stream = s
	m.state.Muted = true
}

// ToggleMute flips the microphone and returns the new mute state.
// Without an open stream it does nothing.
func (m *Machine) ToggleMute() bool {
	if m.stream == nil {
		return m.state.Muted
	}
	m.state.Muted = !m.state.Muted
	m.stream.SetMuted(m.state.Muted)
	return m.state.Muted
}

// Reset tears the current game down and returns to the lobby. Every cleanup
// step is attempted even when an earlier one fails; their errors are joined.
func (m *Machine) Reset(ctx context.Context) error {
	if m.state.Status == models.StatusAuth {
		return fmt.Errorf("%w: in %s", ErrWrongState, m.state.Status)
	}
	return m.reset(ctx, true)
}

// Cancel leaves a room while waiting for the host
func (m *Machine) Cancel(ctx context.Context) error {
	if err := m.require(models.StatusWaitingForHost, models.StatusCategorySelect); err != nil {
		return err
	}
	return m.reset(ctx, true)
}

func (m *Machine) reset(ctx context.Context, remote bool) error {
	var errs []error

	if m.bridge != nil {
		m.bridge.Stop()
	}

	if remote && m.rooms != nil && m.state.RoomID != "" && m.state.MyPlayerID != "" {
		if err := m.rooms.RemovePlayerFromRoom(ctx, m.state.RoomID, m.state.MyPlayerID); err != nil {
			errs = append(errs, fmt.Errorf("leave room: %w", err))
		}
		if m.state.IsHost {
			if err := m.rooms.DeleteRoom(ctx, m.state.RoomID); err != nil {
				errs = append(errs, fmt.Errorf("delete room: %w", err))
			}
		}
	}

	if m.stream != nil {
		if err := m.stream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("stop voice: %w", err))
		}
		m.stream = nil
	}

	prev := m.state
	m.state = State{
		Status:     models.StatusLobby,
		User:       prev.User,
		Token:      prev.Token,
		Settings:   prev.Settings,
		MyPlayerID: prev.MyPlayerID,
		Muted:      true,
		Notice:     prev.Notice,
	}
	clear(m.seenChats)

	err := errors.Join(errs...)
	if err != nil {
		m.log.Warn("reset finished with errors", "room_id", prev.RoomID, "error", err)
	}
	return err
}
