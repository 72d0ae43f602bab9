package handlers

import (
	"net/http"
)

// ResultRequest is the body of POST /me/results
type ResultRequest struct {
	Won bool `json:"won"`
}

// FriendRequest is the body of POST /me/friends
type FriendRequest struct {
	ID string `json:"id"`
}

// HandleProfile returns the signed-in user
func (ctx *Context) HandleProfile(w http.ResponseWriter, r *http.Request) {
	u, err := ctx.Users.Profile(r.Context(), UserID(r))
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// HandleRecordResult adds a win or a loss to the signed-in user's stats
func (ctx *Context) HandleRecordResult(w http.ResponseWriter, r *http.Request) {
	var req ResultRequest
	if err := readJSON(w, r, &req); err != nil {
		ctx.writeError(w, r, err)
		return
	}
	u, err := ctx.Users.RecordResult(r.Context(), UserID(r), req.Won)
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}
	ctx.Log.Info("result recorded", "user_id", u.ID, "won", req.Won, "wins", u.Wins, "losses", u.Losses)
	writeJSON(w, http.StatusOK, u)
}

// HandleAddFriend befriends another user
func (ctx *Context) HandleAddFriend(w http.ResponseWriter, r *http.Request) {
	var req FriendRequest
	if err := readJSON(w, r, &req); err != nil {
		ctx.writeError(w, r, err)
		return
	}
	u, err := ctx.Users.AddFriend(r.Context(), UserID(r), req.ID)
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// HandleSearchUsers finds users by ?q=, leaving out the caller and their friends
func (ctx *Context) HandleSearchUsers(w http.ResponseWriter, r *http.Request) {
	found, err := ctx.Users.Search(r.Context(), UserID(r), r.URL.Query().Get("q"))
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}
