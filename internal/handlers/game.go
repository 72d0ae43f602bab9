package handlers

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/aaronzipp/imposter/internal/models"
)

// Chat is turn based, so a player needs very little throughput; the burst
// absorbs client retries of one message.
const (
	chatRate  = rate.Limit(1)
	chatBurst = 5
)

// limiters hands out one token bucket per room and player
type limiters struct {
	mu    sync.Mutex
	every rate.Limit
	burst int
	rooms map[string]map[string]*rate.Limiter
}

func newLimiters(every rate.Limit, burst int) *limiters {
	return &limiters{every: every, burst: burst, rooms: make(map[string]map[string]*rate.Limiter)}
}

func (l *limiters) allow(roomID, playerID string) bool {
	l.mu.Lock()
	players, ok := l.rooms[roomID]
	if !ok {
		players = make(map[string]*rate.Limiter)
		l.rooms[roomID] = players
	}
	lim, ok := players[playerID]
	if !ok {
		lim = rate.NewLimiter(l.every, l.burst)
		players[playerID] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

func (l *limiters) drop(roomID, playerID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.rooms[roomID], playerID)
}

func (l *limiters) dropRoom(roomID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.rooms, roomID)
}

// HandleSendChat appends a chat message. Resending an ID returns the stored
// message unchanged.
func (ctx *Context) HandleSendChat(w http.ResponseWriter, r *http.Request) {
	var m models.ChatMessage
	if err := readJSON(w, r, &m); err != nil {
		ctx.writeError(w, r, err)
		return
	}
	m.RoomID = chi.URLParam(r, "roomID")
	if _, err := ctx.Rooms.RoomByID(r.Context(), m.RoomID); err != nil {
		ctx.writeError(w, r, err)
		return
	}
	if !ctx.chatLimits.allow(m.RoomID, m.PlayerID) {
		ctx.Log.Warn("chat rate limited", "room_id", m.RoomID, "player_id", m.PlayerID)
		writeCode(w, http.StatusTooManyRequests, CodeRateLimited, "slow down")
		return
	}

	stored, err := ctx.Rooms.InsertChat(r.Context(), m)
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

// HandleListChats returns the room's chat history
func (ctx *Context) HandleListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := ctx.Rooms.ListChats(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

// HandleSubmitVote records a vote; resending an ID is a no-op
func (ctx *Context) HandleSubmitVote(w http.ResponseWriter, r *http.Request) {
	var v models.Vote
	if err := readJSON(w, r, &v); err != nil {
		ctx.writeError(w, r, err)
		return
	}
	v.RoomID = chi.URLParam(r, "roomID")
	if err := ctx.Rooms.InsertVote(r.Context(), v); err != nil {
		ctx.writeError(w, r, err)
		return
	}
	ctx.Log.Info("vote cast", "room_id", v.RoomID, "voter_id", v.VoterID, "voted_player_id", v.VotedPlayerID)
	w.WriteHeader(http.StatusCreated)
}

// HandleListVotes returns the votes cast in the room
func (ctx *Context) HandleListVotes(w http.ResponseWriter, r *http.Request) {
	votes, err := ctx.Rooms.ListVotes(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, votes)
}

// HandleClearVotes deletes every vote in the room
func (ctx *Context) HandleClearVotes(w http.ResponseWriter, r *http.Request) {
	if err := ctx.Rooms.ClearVotes(r.Context(), chi.URLParam(r, "roomID")); err != nil {
		ctx.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
