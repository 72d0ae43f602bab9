package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aaronzipp/imposter/internal/models"
	"github.com/aaronzipp/imposter/internal/realtime"
)

// notifyChannel is the LISTEN channel fed by the room triggers
const notifyChannel = "room_changes"

// Postgres is a Backend on PostgreSQL. Row changes reach subscribers through
// LISTEN/NOTIFY on a single dedicated connection.
type Postgres struct {
	pool *pgxpool.Pool
	log  *slog.Logger
	feed *realtime.Topics[models.Change]

	stop context.CancelFunc
	done chan struct{}
}

// NewPostgres connects to connString and starts the change listener
func NewPostgres(ctx context.Context, connString string, log *slog.Logger) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	listenCtx, stop := context.WithCancel(context.Background())
	p := &Postgres{
		pool: pool,
		log:  log,
		feed: realtime.NewTopics[models.Change](feedBuffer),
		stop: stop,
		done: make(chan struct{}),
	}
	go p.listen(listenCtx)
	return p, nil
}

// Close stops the listener and closes the pool
func (p *Postgres) Close() {
	p.stop()
	<-p.done
	p.pool.Close()
}

// Pool exposes the connection pool to stores sharing the database
func (p *Postgres) Pool() *pgxpool.Pool {
	return p.pool
}

const roomColumns = `id::text, code, host_id, host_name, status, category, word_pair, players, settings, accused_id, created_at, updated_at`

func scanRoom(row pgx.Row) (models.Room, error) {
	var (
		r                                     models.Room
		status                                string
		category, wordPair, players, settings []byte
	)
	err := row.Scan(&r.ID, &r.Code, &r.HostID, &r.HostName, &status, &category, &wordPair, &players, &settings, &r.AccusedID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return models.Room{}, err
	}
	r.Status = models.RoomStatus(status)
	if category != nil {
		r.Category = new(models.Category)
		if err := json.Unmarshal(category, r.Category); err != nil {
			return models.Room{}, fmt.Errorf("decode category: %w", err)
		}
	}
	if wordPair != nil {
		r.WordPair = new(models.WordPair)
		if err := json.Unmarshal(wordPair, r.WordPair); err != nil {
			return models.Room{}, fmt.Errorf("decode word pair: %w", err)
		}
	}
	if err := json.Unmarshal(players, &r.Players); err != nil {
		return models.Room{}, fmt.Errorf("decode players: %w", err)
	}
	if err := json.Unmarshal(settings, &r.Settings); err != nil {
		return models.Room{}, fmt.Errorf("decode settings: %w", err)
	}
	return r, nil
}

// mapErr translates driver errors into store error kinds
func mapErr(err error, what string) error {
	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.As(err, &pgErr):
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w", what, ErrConflict)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: %w", what, ErrNotFound)
		case "22P02": // invalid_text_representation, e.g. a malformed uuid
			return fmt.Errorf("%s: %w", what, ErrNotFound)
		case "23514", "23502": // check_violation, not_null_violation
			return fmt.Errorf("%s: %w: %s", what, ErrValidation, pgErr.Message)
		}
	}
	return fmt.Errorf("%s: %w: %w", what, ErrTransient, err)
}

func jsonParam(v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

// InsertRoom stores a new room
func (p *Postgres) InsertRoom(ctx context.Context, room models.Room) (models.Room, error) {
	if room.Players == nil {
		room.Players = []models.Player{}
	}
	if room.Status == "" {
		room.Status = models.RoomWaiting
	}
	players, err := json.Marshal(room.Players)
	if err != nil {
		return models.Room{}, err
	}
	settings, err := json.Marshal(room.Settings)
	if err != nil {
		return models.Room{}, err
	}

	row := p.pool.QueryRow(ctx, `
		INSERT INTO rooms (code, host_id, host_name, status, players, settings)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb)
		RETURNING `+roomColumns,
		room.Code, room.HostID, room.HostName, string(room.Status), string(players), string(settings))
	r, err := scanRoom(row)
	return r, mapErr(err, "insert room "+room.Code)
}

// RoomByCode retrieves a room by its join code
func (p *Postgres) RoomByCode(ctx context.Context, code string) (models.Room, error) {
	r, err := scanRoom(p.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE code = $1`, code))
	return r, mapErr(err, "room code "+code)
}

// RoomByID retrieves a room
func (p *Postgres) RoomByID(ctx context.Context, id string) (models.Room, error) {
	r, err := scanRoom(p.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id))
	return r, mapErr(err, "room "+id)
}

// UpdateRoom applies the set fields of u and stamps updated_at
func (p *Postgres) UpdateRoom(ctx context.Context, id string, u models.RoomUpdate) (models.Room, error) {
	if u.Status != nil && !u.Status.Valid() {
		return models.Room{}, fmt.Errorf("%w: unknown status %q", ErrValidation, *u.Status)
	}
	var (
		status   *string
		category *string
		wordPair *string
		players  *string
		err      error
	)
	if u.Status != nil {
		s := string(*u.Status)
		status = &s
	}
	if u.Category != nil {
		if category, err = jsonParam(u.Category); err != nil {
			return models.Room{}, err
		}
	}
	if u.WordPair != nil {
		if wordPair, err = jsonParam(u.WordPair); err != nil {
			return models.Room{}, err
		}
	}
	if u.Players != nil {
		if players, err = jsonParam(*u.Players); err != nil {
			return models.Room{}, err
		}
	}

	row := p.pool.QueryRow(ctx, `
		UPDATE rooms SET
			status     = COALESCE($2, status),
			category   = COALESCE($3::jsonb, category),
			word_pair  = COALESCE($4::jsonb, word_pair),
			players    = COALESCE($5::jsonb, players),
			accused_id = COALESCE($6, accused_id),
			updated_at = now()
		WHERE id = $1
		RETURNING `+roomColumns,
		id, status, category, wordPair, players, u.AccusedID)
	r, err := scanRoom(row)
	return r, mapErr(err, "update room "+id)
}

// DeleteRoom removes the room; player, chat and vote rows cascade
func (p *Postgres) DeleteRoom(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return mapErr(err, "delete room "+id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("room %s: %w", id, ErrNotFound)
	}
	return nil
}

// CodeExists checks if a room code is in use
func (p *Postgres) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rooms WHERE code = $1)`, code).Scan(&exists)
	return exists, mapErr(err, "room code "+code)
}

// InsertPlayer adds or replaces a player sub-record
func (p *Postgres) InsertPlayer(ctx context.Context, rp models.RoomPlayer) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO room_players (room_id, player_id, player_name, is_host, user_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (room_id, player_id) DO UPDATE
		SET player_name = EXCLUDED.player_name, is_host = EXCLUDED.is_host, user_id = EXCLUDED.user_id`,
		rp.RoomID, rp.PlayerID, rp.PlayerName, rp.IsHost, rp.UserID)
	return mapErr(err, "insert player "+rp.PlayerID)
}

// DeletePlayer removes a player sub-record
func (p *Postgres) DeletePlayer(ctx context.Context, roomID, playerID string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM room_players WHERE room_id = $1 AND player_id = $2`, roomID, playerID)
	return mapErr(err, "delete player "+playerID)
}

// ListPlayers returns the player sub-records in join order
func (p *Postgres) ListPlayers(ctx context.Context, roomID string) ([]models.RoomPlayer, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT room_id::text, player_id, player_name, is_host, user_id, joined_at
		FROM room_players WHERE room_id = $1 ORDER BY joined_at, player_id`, roomID)
	if err != nil {
		return nil, mapErr(err, "players of room "+roomID)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.RoomPlayer, error) {
		var rp models.RoomPlayer
		err := row.Scan(&rp.RoomID, &rp.PlayerID, &rp.PlayerName, &rp.IsHost, &rp.UserID, &rp.JoinedAt)
		return rp, err
	})
	return list, mapErr(err, "players of room "+roomID)
}

// InsertChat appends a chat message; a repeated id returns the stored row
func (p *Postgres) InsertChat(ctx context.Context, m models.ChatMessage) (models.ChatMessage, error) {
	if m.ID == "" || m.Text == "" {
		return models.ChatMessage{}, fmt.Errorf("%w: chat needs an id and text", ErrValidation)
	}
	err := p.pool.QueryRow(ctx, `
		INSERT INTO room_chats (id, room_id, player_id, player_name, text, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
		RETURNING seq`,
		m.ID, m.RoomID, m.PlayerID, m.PlayerName, m.Text, m.Timestamp).Scan(&m.Seq)
	if errors.Is(err, pgx.ErrNoRows) {
		return p.chatByID(ctx, m.ID)
	}
	return m, mapErr(err, "insert chat "+m.ID)
}

func (p *Postgres) chatByID(ctx context.Context, id string) (models.ChatMessage, error) {
	var m models.ChatMessage
	err := p.pool.QueryRow(ctx, `
		SELECT id, seq, room_id::text, player_id, player_name, text, timestamp
		FROM room_chats WHERE id = $1`, id).
		Scan(&m.ID, &m.Seq, &m.RoomID, &m.PlayerID, &m.PlayerName, &m.Text, &m.Timestamp)
	return m, mapErr(err, "chat "+id)
}

// ListChats returns a room's chat in insert order
func (p *Postgres) ListChats(ctx context.Context, roomID string) ([]models.ChatMessage, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, seq, room_id::text, player_id, player_name, text, timestamp
		FROM room_chats WHERE room_id = $1 ORDER BY seq`, roomID)
	if err != nil {
		return nil, mapErr(err, "chats of room "+roomID)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ChatMessage, error) {
		var m models.ChatMessage
		err := row.Scan(&m.ID, &m.Seq, &m.RoomID, &m.PlayerID, &m.PlayerName, &m.Text, &m.Timestamp)
		return m, err
	})
	return list, mapErr(err, "chats of room "+roomID)
}

// InsertVote records a vote; a repeated id is ignored
func (p *Postgres) InsertVote(ctx context.Context, v models.Vote) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO votes (id, room_id, voter_id, voted_player_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`,
		v.ID, v.RoomID, v.VoterID, v.VotedPlayerID)
	return mapErr(err, "insert vote "+v.ID)
}

// ListVotes returns a room's votes in insert order
func (p *Postgres) ListVotes(ctx context.Context, roomID string) ([]models.Vote, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, room_id::text, voter_id, voted_player_id, created_at
		FROM votes WHERE room_id = $1 ORDER BY created_at, id`, roomID)
	if err != nil {
		return nil, mapErr(err, "votes of room "+roomID)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Vote, error) {
		var v models.Vote
		err := row.Scan(&v.ID, &v.RoomID, &v.VoterID, &v.VotedPlayerID, &v.CreatedAt)
		return v, err
	})
	return list, mapErr(err, "votes of room "+roomID)
}

// ClearVotes deletes every vote of a room
func (p *Postgres) ClearVotes(ctx context.Context, roomID string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM votes WHERE room_id = $1`, roomID)
	return mapErr(err, "clear votes of room "+roomID)
}

// Subscribe streams the room's changes until ctx ends
func (p *Postgres) Subscribe(ctx context.Context, roomID string) (<-chan models.Change, error) {
	ch := p.feed.Subscribe(roomID)
	go func() {
		<-ctx.Done()
		p.feed.Unsubscribe(roomID, ch)
	}()
	return ch, nil
}

// Ping checks the database connection
func (p *Postgres) Ping(ctx context.Context) error {
	return mapErr(p.pool.Ping(ctx), "ping")
}

// listen holds one connection in LISTEN and reconnects with backoff until ctx ends
func (p *Postgres) listen(ctx context.Context) {
	defer close(p.done)
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0
	b.MaxInterval = 30 * time.Second

	for ctx.Err() == nil {
		err := p.listenOnce(ctx, b)
		if ctx.Err() != nil {
			return
		}
		wait := b.NextBackOff()
		p.log.Warn("room change listener disconnected", "error", err, "retry_in", wait)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (p *Postgres) listenOnce(ctx context.Context, b backoff.BackOff) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return err
	}
	b.Reset()
	p.log.Debug("listening for room changes", "channel", notifyChannel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		var c models.Change
		if err := json.Unmarshal([]byte(n.Payload), &c); err != nil {
			p.log.Warn("dropping malformed room change", "error", err)
			continue
		}
		if dropped := p.feed.Publish(c.RoomID, c); dropped > 0 {
			p.log.Warn("room change dropped for lagging subscribers", "room_id", c.RoomID, "dropped", dropped)
		}
	}
}
