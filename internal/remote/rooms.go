package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/aaronzipp/imposter/internal/models"
	"github.com/aaronzipp/imposter/internal/store"
)

var _ store.Backend = (*Client)(nil)

// changeBuffer is how many changes a subscription holds before the reader waits
const changeBuffer = 64

func (c *Client) InsertRoom(ctx context.Context, room models.Room) (models.Room, error) {
	var out models.Room
	err := c.do(ctx, http.MethodPost, "/rooms", "", room, &out)
	return out, err
}

func (c *Client) RoomByCode(ctx context.Context, code string) (models.Room, error) {
	var out models.Room
	err := c.do(ctx, http.MethodGet, "/rooms?code="+url.QueryEscape(code), "", nil, &out)
	return out, err
}

func (c *Client) RoomByID(ctx context.Context, id string) (models.Room, error) {
	var out models.Room
	err := c.do(ctx, http.MethodGet, "/rooms/"+seg(id), "", nil, &out)
	return out, err
}

func (c *Client) UpdateRoom(ctx context.Context, id string, u models.RoomUpdate) (models.Room, error) {
	var out models.Room
	err := c.do(ctx, http.MethodPatch, "/rooms/"+seg(id), "", u, &out)
	return out, err
}

func (c *Client) DeleteRoom(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/rooms/"+seg(id), "", nil, nil)
}

func (c *Client) CodeExists(ctx context.Context, code string) (bool, error) {
	var out struct {
		Exists bool `json:"exists"`
	}
	err := c.do(ctx, http.MethodGet, "/codes/"+seg(code), "", nil, &out)
	return out.Exists, err
}

func (c *Client) InsertPlayer(ctx context.Context, p models.RoomPlayer) error {
	return c.do(ctx, http.MethodPost, "/rooms/"+seg(p.RoomID)+"/players", "", p, nil)
}

func (c *Client) DeletePlayer(ctx context.Context, roomID, playerID string) error {
	return c.do(ctx, http.MethodDelete, "/rooms/"+seg(roomID)+"/players/"+seg(playerID), "", nil, nil)
}

func (c *Client) ListPlayers(ctx context.Context, roomID string) ([]models.RoomPlayer, error) {
	var out []models.RoomPlayer
	err := c.do(ctx, http.MethodGet, "/rooms/"+seg(roomID)+"/players", "", nil, &out)
	return out, err
}

func (c *Client) InsertChat(ctx context.Context, m models.ChatMessage) (models.ChatMessage, error) {
	var out models.ChatMessage
	err := c.do(ctx, http.MethodPost, "/rooms/"+seg(m.RoomID)+"/chats", "", m, &out)
	return out, err
}

func (c *Client) ListChats(ctx context.Context, roomID string) ([]models.ChatMessage, error) {
	var out []models.ChatMessage
	err := c.do(ctx, http.MethodGet, "/rooms/"+seg(roomID)+"/chats", "", nil, &out)
	return out, err
}

func (c *Client) InsertVote(ctx context.Context, v models.Vote) error {
	return c.do(ctx, http.MethodPost, "/rooms/"+seg(v.RoomID)+"/votes", "", v, nil)
}

func (c *Client) ListVotes(ctx context.Context, roomID string) ([]models.Vote, error) {
	var out []models.Vote
	err := c.do(ctx, http.MethodGet, "/rooms/"+seg(roomID)+"/votes", "", nil, &out)
	return out, err
}

func (c *Client) ClearVotes(ctx context.Context, roomID string) error {
	return c.do(ctx, http.MethodDelete, "/rooms/"+seg(roomID)+"/votes", "", nil, nil)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", "", nil, nil)
}

// Subscribe opens the room's websocket change stream. The channel closes when
// ctx ends or the connection drops.
func (c *Client) Subscribe(ctx context.Context, roomID string) (<-chan models.Change, error) {
	wsURL, err := c.wsURL("/rooms/" + seg(roomID) + "/ws")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrValidation, err)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil && resp.StatusCode >= 300 {
			defer resp.Body.Close()
			return nil, statusError(http.MethodGet, resp)
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: dial %s: %w", store.ErrTransient, roomID, err)
	}

	out := make(chan models.Change, changeBuffer)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go func() {
		defer close(out)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					c.log.Warn("room stream dropped", "room_id", roomID, "error", err)
				}
				return
			}
			var ch models.Change
			if err := json.Unmarshal(data, &ch); err != nil {
				c.log.Warn("bad change on room stream", "room_id", roomID, "error", err)
				continue
			}
			select {
			case out <- ch:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Client) wsURL(path string) (string, error) {
	u, err := url.Parse(c.base + path)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String(), nil
}
