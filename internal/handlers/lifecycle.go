package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aaronzipp/imposter/internal/game"
	"github.com/aaronzipp/imposter/internal/models"
	"github.com/aaronzipp/imposter/internal/store"
)

// HandleCreateRoom stores a new room. The code must be free.
func (ctx *Context) HandleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var room models.Room
	if err := readJSON(w, r, &room); err != nil {
		ctx.writeError(w, r, err)
		return
	}
	room.Code = game.NormalizeRoomCode(room.Code)
	if room.Status != "" && !room.Status.Valid() {
		ctx.writeError(w, r, fmt.Errorf("%w: unknown status %q", store.ErrValidation, room.Status))
		return
	}

	created, err := ctx.Rooms.InsertRoom(r.Context(), room)
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}
	ctx.Log.Info("room created", "room_id", created.ID, "code", created.Code, "host", created.HostName)
	writeJSON(w, http.StatusCreated, created)
}

// HandleFindRoom looks a room up by ?code=
func (ctx *Context) HandleFindRoom(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		writeCode(w, http.StatusBadRequest, CodeBadRequest, "code is required")
		return
	}
	room, err := ctx.Rooms.RoomByCode(r.Context(), game.NormalizeRoomCode(code))
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// HandleGetRoom returns the current room record
func (ctx *Context) HandleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := ctx.Rooms.RoomByID(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// HandleUpdateRoom applies a partial update and returns the new record
func (ctx *Context) HandleUpdateRoom(w http.ResponseWriter, r *http.Request) {
	var u models.RoomUpdate
	if err := readJSON(w, r, &u); err != nil {
		ctx.writeError(w, r, err)
		return
	}
	room, err := ctx.Rooms.UpdateRoom(r.Context(), chi.URLParam(r, "roomID"), u)
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}
	if u.Status != nil {
		ctx.Log.Debug("room status", "room_id", room.ID, "status", room.Status)
	}
	writeJSON(w, http.StatusOK, room)
}

// HandleDeleteRoom removes the room; subscribers get a delete change
func (ctx *Context) HandleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	if err := ctx.Rooms.DeleteRoom(r.Context(), roomID); err != nil {
		ctx.writeError(w, r, err)
		return
	}
	ctx.chatLimits.dropRoom(roomID)
	ctx.Log.Info("room deleted", "room_id", roomID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleCodeExists reports whether a room code is taken
func (ctx *Context) HandleCodeExists(w http.ResponseWriter, r *http.Request) {
	exists, err := ctx.Rooms.CodeExists(r.Context(), game.NormalizeRoomCode(chi.URLParam(r, "code")))
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}
