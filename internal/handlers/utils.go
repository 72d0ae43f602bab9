package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aaronzipp/imposter/internal/store"
	"github.com/aaronzipp/imposter/internal/users"
)

// maxBody caps request bodies
const maxBody = 64 << 10

// Error codes sent in the "error" field of a failed response
const (
	CodeBadRequest         = "bad-request"
	CodeNotFound           = "not-found"
	CodeConflict           = "conflict"
	CodeRateLimited        = "rate-limited"
	CodeUnavailable        = "unavailable"
	CodeMissingToken       = "missing-token"
	CodeInvalidToken       = "invalid-token"
	CodeInvalidCredentials = "invalid-credentials"
	CodeMissingFields      = "missing-fields"
	CodeDuplicateEmail     = "duplicate-email"
	CodeUserNotFound       = "user-not-found"
	CodeSelfFriend         = "self-friend"
)

// ErrorBody is the JSON body of every failed response
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", store.ErrValidation, err)
	}
	return nil
}

func writeCode(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorBody{Error: code, Message: msg})
}

// writeError maps a domain error to a status and code. Anything unrecognized is
// logged and reported as unavailable so clients treat it as transient.
func (ctx *Context) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusServiceUnavailable, CodeUnavailable
	switch {
	case errors.Is(err, store.ErrNotFound):
		status, code = http.StatusNotFound, CodeNotFound
	case errors.Is(err, store.ErrConflict):
		status, code = http.StatusConflict, CodeConflict
	case errors.Is(err, store.ErrValidation):
		status, code = http.StatusBadRequest, CodeBadRequest
	case errors.Is(err, users.ErrMissingFields):
		status, code = http.StatusBadRequest, CodeMissingFields
	case errors.Is(err, users.ErrDuplicateEmail):
		status, code = http.StatusConflict, CodeDuplicateEmail
	case errors.Is(err, users.ErrInvalidCredentials):
		status, code = http.StatusUnauthorized, CodeInvalidCredentials
	case errors.Is(err, users.ErrInvalidToken):
		status, code = http.StatusUnauthorized, CodeInvalidToken
	case errors.Is(err, users.ErrUserNotFound):
		status, code = http.StatusNotFound, CodeUserNotFound
	case errors.Is(err, users.ErrSelfFriend):
		status, code = http.StatusBadRequest, CodeSelfFriend
	default:
		ctx.Log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeCode(w, status, code, "")
		return
	}
	writeCode(w, status, code, err.Error())
}
