package handlers

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey struct{}

// UserID returns the id RequireAuth stored on the request
func UserID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

// RequireAuth checks the bearer token and stores the user id on the request
func (ctx *Context) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeCode(w, http.StatusUnauthorized, CodeMissingToken, "")
			return
		}
		userID, err := ctx.Users.VerifyToken(strings.TrimSpace(token))
		if err != nil {
			ctx.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, userID)))
	})
}

// SignupRequest is the body of POST /auth/signup
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleSignup creates an account and returns its session
func (ctx *Context) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := readJSON(w, r, &req); err != nil {
		ctx.writeError(w, r, err)
		return
	}
	sess, err := ctx.Users.Signup(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}
	ctx.Log.Info("user signed up", "user_id", sess.User.ID)
	writeJSON(w, http.StatusCreated, sess)
}

// HandleLogin checks credentials and returns a fresh session
func (ctx *Context) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := readJSON(w, r, &req); err != nil {
		ctx.writeError(w, r, err)
		return
	}
	sess, err := ctx.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		ctx.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}
