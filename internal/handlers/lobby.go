package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aaronzipp/imposter/internal/game"
	"github.com/aaronzipp/imposter/internal/models"
)

const (
	defaultQRSize = 256
	maxQRSize     = 1024
)

// HandleAddPlayer inserts a player sub-record
func (ctx *Context) HandleAddPlayer(w http.ResponseWriter, r *http.Request) {
	var p models.RoomPlayer
	if err := readJSON(w, r, &p); err != nil {
		ctx.writeError(w, r, err)
		return
	}
	p.RoomID = chi.URLParam(r, "roomID")
	if err := ctx.Rooms.InsertPlayer(r.Context(), p); err != nil {
		ctx.writeError(w, r, err)
		return
	}
	ctx.Log.Info("player joined", "room_id", p.RoomID, "player_id", p.PlayerID, "name", p.PlayerName, "host", p.IsHost)
	w.WriteHeader(http.StatusCreated)
}

// HandleRemovePlayer deletes a player sub-record
func (ctx *Context) HandleRemovePlayer(w http.ResponseWriter, r *http.Request) {
	roomID, playerID := chi.URLParam(r, "roomID"), chi.URLParam(r, "playerID")
	if err := ctx.Rooms.DeletePlayer(r.Context(), roomID, playerID); err != nil {
		ctx.writeError(w, r, err)
		return
	}
	ctx.chatLimits.drop(roomID, playerID)
	ctx.Log.Info("player left", "room_id", roomID, "player_id", playerID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleListPlayers returns the room's player sub-records
func (ctx *Context) HandleListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := ctx.Rooms.ListPlayers(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

// HandleJoinQR renders the room's join link as a PNG. ?size= sets the edge in pixels.
func (ctx *Context) HandleJoinQR(w http.ResponseWriter, r *http.Request) {
	code := game.NormalizeRoomCode(chi.URLParam(r, "code"))
	size := defaultQRSize
	if s := r.URL.Query().Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > maxQRSize {
			writeCode(w, http.StatusBadRequest, CodeBadRequest, "size must be 1-1024")
			return
		}
		size = n
	}

	link, err := game.JoinLink(ctx.PublicURL, code)
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}
	png, err := game.JoinQR(link, size)
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(png)
}
