package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/aaronzipp/imposter/internal/game"
	"github.com/aaronzipp/imposter/internal/models"
)

// DefaultTimeout bounds a single backend attempt
const DefaultTimeout = 5 * time.Second

// readAttempts is how many times an idempotent call is tried
const readAttempts = 3

// Client is the game's only path to the room backend. It normalizes codes,
// bounds every call with a timeout, retries idempotent calls, classifies and
// logs every failure.
type Client struct {
	backend Backend
	log     *slog.Logger
	timeout time.Duration
	now     func() time.Time

	// GenerateCode draws candidate room codes; tests replace it
	GenerateCode func() string
	// NewID creates idempotency keys and player ids; tests replace it
	NewID func() string
}

// NewClient wraps backend
func NewClient(backend Backend, log *slog.Logger, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		backend:      backend,
		log:          log,
		timeout:      timeout,
		now:          time.Now,
		GenerateCode: game.GenerateRoomCode,
		NewID:        uuid.NewString,
	}
}

// once runs fn a single time under the per-attempt timeout
func once[T any](ctx context.Context, c *Client, fn func(context.Context) (T, error)) (T, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	v, err := fn(attemptCtx)
	return v, Classify(err)
}

// retried runs fn up to readAttempts times with exponential backoff; only
// transient failures are retried
func retried[T any](ctx context.Context, c *Client, op string, fn func(context.Context) (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(b, readAttempts-1), ctx)

	return backoff.RetryNotifyWithData(func() (T, error) {
		v, err := once(ctx, c, fn)
		if err != nil && !Retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, policy, func(err error, wait time.Duration) {
		c.log.Debug("retrying room store call", "op", op, "error", err, "wait", wait)
	})
}

// logFailure records a failure at the client boundary
func (c *Client) logFailure(op, roomID string, err error) {
	if errors.Is(err, ErrNotFound) {
		c.log.Debug("room store miss", "op", op, "room_id", roomID, "error", err)
		return
	}
	c.log.Error("room store call failed", "op", op, "room_id", roomID, "error", err)
}

// CreateRoom creates a waiting room with no players and returns its id.
// A code held by another room yields ErrConflict.
func (c *Client) CreateRoom(ctx context.Context, code, hostID, hostName string, settings models.RoomSettings) (string, error) {
	room := models.Room{
		Code:     game.NormalizeRoomCode(code),
		HostID:   hostID,
		HostName: hostName,
		Status:   models.RoomWaiting,
		Players:  []models.Player{},
		Settings: settings,
	}
	created, err := once(ctx, c, func(ctx context.Context) (models.Room, error) {
		return c.backend.InsertRoom(ctx, room)
	})
	if err != nil {
		c.logFailure("createRoom", room.Code, err)
		return "", err
	}
	c.log.Info("room created", "room_id", created.ID, "code", created.Code, "host", hostName)
	return created.ID, nil
}

// GetRoomByCode looks a room up by its normalized code
func (c *Client) GetRoomByCode(ctx context.Context, code string) (models.Room, error) {
	code = game.NormalizeRoomCode(code)
	r, err := retried(ctx, c, "getRoomByCode", func(ctx context.Context) (models.Room, error) {
		return c.backend.RoomByCode(ctx, code)
	})
	if err != nil {
		c.logFailure("getRoomByCode", code, err)
	}
	return r, err
}

// GetRoomByID reads the current room record
func (c *Client) GetRoomByID(ctx context.Context, roomID string) (models.Room, error) {
	r, err := retried(ctx, c, "getRoomById", func(ctx context.Context) (models.Room, error) {
		return c.backend.RoomByID(ctx, roomID)
	})
	if err != nil {
		c.logFailure("getRoomById", roomID, err)
	}
	return r, err
}

// UpdateRoom writes the set fields of u; the backend stamps UpdatedAt
func (c *Client) UpdateRoom(ctx context.Context, roomID string, u models.RoomUpdate) (models.Room, error) {
	r, err := once(ctx, c, func(ctx context.Context) (models.Room, error) {
		return c.backend.UpdateRoom(ctx, roomID, u)
	})
	if err != nil {
		c.logFailure("updateRoom", roomID, err)
	}
	return r, err
}

// DeleteRoom removes the room and everything attached to it
func (c *Client) DeleteRoom(ctx context.Context, roomID string) error {
	_, err := once(ctx, c, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.backend.DeleteRoom(ctx, roomID)
	})
	if err != nil {
		c.logFailure("deleteRoom", roomID, err)
	}
	return err
}

// AddPlayerToRoom inserts the player sub-record and appends the player to the
// room's players array. If the array write fails the sub-record is deleted
// again so the two do not drift.
func (c *Client) AddPlayerToRoom(ctx context.Context, roomID string, p models.Player, isHost bool) error {
	rp := models.RoomPlayer{RoomID: roomID, PlayerID: p.ID, PlayerName: p.Name, IsHost: isHost, UserID: p.UserID}
	if _, err := once(ctx, c, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.backend.InsertPlayer(ctx, rp)
	}); err != nil {
		c.logFailure("addPlayerToRoom", roomID, err)
		return err
	}

	err := c.appendPlayer(ctx, roomID, p)
	if err == nil {
		return nil
	}
	c.logFailure("addPlayerToRoom", roomID, err)

	if _, undoErr := once(ctx, c, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.backend.DeletePlayer(ctx, roomID, p.ID)
	}); undoErr != nil {
		c.log.Error("could not undo player insert", "room_id", roomID, "player_id", p.ID, "error", undoErr)
	}
	return err
}

func (c *Client) appendPlayer(ctx context.Context, roomID string, p models.Player) error {
	room, err := c.GetRoomByID(ctx, roomID)
	if err != nil {
		return err
	}
	players := slices.DeleteFunc(room.Players, func(x models.Player) bool { return x.ID == p.ID })
	players = append(players, p)
	_, err = c.UpdateRoom(ctx, roomID, models.RoomUpdate{Players: &players})
	return err
}

// RemovePlayerFromRoom deletes the sub-record and drops the player from the
// room's current players array
func (c *Client) RemovePlayerFromRoom(ctx context.Context, roomID, playerID string) error {
	var errs []error
	if _, err := once(ctx, c, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.backend.DeletePlayer(ctx, roomID, playerID)
	}); err != nil {
		errs = append(errs, err)
	}

	room, err := c.GetRoomByID(ctx, roomID)
	if err == nil {
		if i := models.IndexOfPlayer(room.Players, playerID); i >= 0 {
			players := slices.Delete(room.Players, i, i+1)
			_, err = c.UpdateRoom(ctx, roomID, models.RoomUpdate{Players: &players})
		}
	}
	if err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		c.logFailure("removePlayerFromRoom", roomID, err)
		return err
	}
	return nil
}

// GetPlayersInRoom lists the player sub-records in join order
func (c *Client) GetPlayersInRoom(ctx context.Context, roomID string) ([]models.RoomPlayer, error) {
	list, err := retried(ctx, c, "getPlayersInRoom", func(ctx context.Context) ([]models.RoomPlayer, error) {
		return c.backend.ListPlayers(ctx, roomID)
	})
	if err != nil {
		c.logFailure("getPlayersInRoom", roomID, err)
	}
	return list, err
}

// SendChatMessage appends one chat line stamped with the sender's clock.
// The message carries a fresh id so retries never duplicate it.
func (c *Client) SendChatMessage(ctx context.Context, roomID, playerID, playerName, text string) (models.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return models.ChatMessage{}, fmt.Errorf("%w: empty chat message", ErrValidation)
	}
	msg := models.ChatMessage{
		ID:         c.NewID(),
		RoomID:     roomID,
		PlayerID:   playerID,
		PlayerName: playerName,
		Text:       text,
		Timestamp:  c.now().UnixMilli(),
	}
	sent, err := retried(ctx, c, "sendChatMessage", func(ctx context.Context) (models.ChatMessage, error) {
		return c.backend.InsertChat(ctx, msg)
	})
	if err != nil {
		c.logFailure("sendChatMessage", roomID, err)
	}
	return sent, err
}

// GetChatHistory returns the room's chat in backend insert order
func (c *Client) GetChatHistory(ctx context.Context, roomID string) ([]models.ChatMessage, error) {
	list, err := retried(ctx, c, "getChatHistory", func(ctx context.Context) ([]models.ChatMessage, error) {
		return c.backend.ListChats(ctx, roomID)
	})
	if err != nil {
		c.logFailure("getChatHistory", roomID, err)
		return nil, err
	}
	slices.SortStableFunc(list, func(a, b models.ChatMessage) int {
		if a.Seq != b.Seq {
			return cmp.Compare(a.Seq, b.Seq)
		}
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})
	return list, nil
}

// SubmitVote records one accusation under a fresh idempotency key
func (c *Client) SubmitVote(ctx context.Context, roomID, voterID, votedPlayerID string) error {
	v := models.Vote{ID: c.NewID(), RoomID: roomID, VoterID: voterID, VotedPlayerID: votedPlayerID}
	_, err := retried(ctx, c, "submitVote", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.backend.InsertVote(ctx, v)
	})
	if err != nil {
		c.logFailure("submitVote", roomID, err)
	}
	return err
}

// GetVotes lists the room's votes
func (c *Client) GetVotes(ctx context.Context, roomID string) ([]models.Vote, error) {
	list, err := retried(ctx, c, "getVotes", func(ctx context.Context) ([]models.Vote, error) {
		return c.backend.ListVotes(ctx, roomID)
	})
	if err != nil {
		c.logFailure("getVotes", roomID, err)
	}
	return list, err
}

// ClearVotes deletes the room's votes
func (c *Client) ClearVotes(ctx context.Context, roomID string) error {
	_, err := retried(ctx, c, "clearVotes", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.backend.ClearVotes(ctx, roomID)
	})
	if err != nil {
		c.logFailure("clearVotes", roomID, err)
	}
	return err
}

// GenerateUniqueRoomCode draws codes until one is free. After
// game.RoomCodeAttempts collisions it returns the last code with an error
// wrapping ErrConflict; a lookup failure counts as a collision.
func (c *Client) GenerateUniqueRoomCode(ctx context.Context) (string, error) {
	var lookupErr error
	code, err := game.GetUniqueRoomCode(c.GenerateCode, func(code string) bool {
		exists, err := retried(ctx, c, "codeExists", func(ctx context.Context) (bool, error) {
			return c.backend.CodeExists(ctx, code)
		})
		if err != nil {
			lookupErr = err
			return true
		}
		return exists
	})
	if err == nil {
		return code, nil
	}
	if lookupErr != nil {
		err = fmt.Errorf("%w: %w", err, lookupErr)
	} else {
		err = fmt.Errorf("%w: %w", ErrConflict, err)
	}
	c.logFailure("generateUniqueRoomCode", code, err)
	return code, err
}

// Subscribe opens the room's change stream
func (c *Client) Subscribe(ctx context.Context, roomID string) (<-chan models.Change, error) {
	ch, err := c.backend.Subscribe(ctx, roomID)
	if err != nil {
		err = Classify(err)
		c.logFailure("subscribe", roomID, err)
	}
	return ch, err
}

// Ping checks that the backend answers
func (c *Client) Ping(ctx context.Context) error {
	_, err := once(ctx, c, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.backend.Ping(ctx)
	})
	if err != nil {
		c.logFailure("ping", "", err)
	}
	return err
}
