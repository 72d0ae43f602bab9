package handlers

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/aaronzipp/imposter/internal/models"
	"github.com/aaronzipp/imposter/internal/sse"
)

const (
	wsWriteWait = 10 * time.Second
	wsPingEvery = 30 * time.Second
)

// HandleEvents streams the room's changes as server-sent events
func (ctx *Context) HandleEvents(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	if _, err := ctx.Rooms.RoomByID(r.Context(), roomID); err != nil {
		ctx.writeError(w, r, err)
		return
	}
	changes, err := ctx.Rooms.Subscribe(r.Context(), roomID)
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}
	stream, err := sse.Open(w)
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}
	ctx.Log.Debug("event stream opened", "room_id", roomID)
	defer ctx.Log.Debug("event stream closed", "room_id", roomID)

	if err := stream.Send(sse.EventReady, roomID); err != nil {
		return
	}
	keepAlive := time.NewTicker(sse.KeepAlive)
	defer keepAlive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case c, ok := <-changes:
			if !ok {
				_ = stream.Send(sse.EventClosed, roomID)
				return
			}
			if err := stream.SendJSON(sse.EventChange, c); err != nil {
				return
			}
		case <-keepAlive.C:
			if err := stream.Ping(); err != nil {
				return
			}
		}
	}
}

// HandleWS streams the room's changes over a websocket, one JSON change per
// text message. The client only listens; anything it sends is discarded.
func (ctx *Context) HandleWS(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	if _, err := ctx.Rooms.RoomByID(r.Context(), roomID); err != nil {
		ctx.writeError(w, r, err)
		return
	}

	// subscribe before the upgrade so nothing published after the handshake is missed
	subCtx, cancel := context.WithCancel(r.Context())
	defer cancel()
	changes, err := ctx.Rooms.Subscribe(subCtx, roomID)
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: ctx.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ctx.Log.Warn("websocket upgrade failed", "room_id", roomID, "error", err)
		return
	}
	defer conn.Close()
	ctx.Log.Debug("websocket opened", "room_id", roomID)
	defer ctx.Log.Debug("websocket closed", "room_id", roomID)

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingEvery)
	defer ping.Stop()
	for {
		select {
		case <-subCtx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				closeWS(conn, websocket.CloseNormalClosure, "stream ended")
				return
			}
			if err := writeChange(conn, c); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func writeChange(conn *websocket.Conn, c models.Change) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(c)
}

func closeWS(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(wsWriteWait))
}

// checkOrigin allows non-browser clients and the configured origins
func (ctx *Context) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(ctx.Origins, "*") {
		return true
	}
	return slices.Contains(ctx.Origins, origin)
}
