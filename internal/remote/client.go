// Package remote talks to the room backend service over HTTP. Client
// implements store.Backend, so store.Client layers its timeouts and retries on
// top, and the account calls the game needs for signed-in players.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aaronzipp/imposter/internal/handlers"
	"github.com/aaronzipp/imposter/internal/store"
	"github.com/aaronzipp/imposter/internal/users"
)

// Client is an HTTP client for one room backend
type Client struct {
	base string
	http *http.Client
	log  *slog.Logger
}

// New creates a client for the service at baseURL. timeout bounds each
// request; streams are not affected.
func New(baseURL string, log *slog.Logger, timeout time.Duration) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

var codeErrors = map[string]error{
	handlers.CodeNotFound:           store.ErrNotFound,
	handlers.CodeConflict:           store.ErrConflict,
	handlers.CodeBadRequest:         store.ErrValidation,
	handlers.CodeRateLimited:        store.ErrTransient,
	handlers.CodeUnavailable:        store.ErrTransient,
	handlers.CodeMissingToken:       users.ErrInvalidToken,
	handlers.CodeInvalidToken:       users.ErrInvalidToken,
	handlers.CodeInvalidCredentials: users.ErrInvalidCredentials,
	handlers.CodeMissingFields:      users.ErrMissingFields,
	handlers.CodeDuplicateEmail:     users.ErrDuplicateEmail,
	handlers.CodeUserNotFound:       users.ErrUserNotFound,
	handlers.CodeSelfFriend:         users.ErrSelfFriend,
}

// statusError maps a failed response back to the error the server started from
func statusError(method string, resp *http.Response) error {
	var body handlers.ErrorBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4<<10)).Decode(&body)

	kind, ok := codeErrors[body.Error]
	if !ok {
		switch resp.StatusCode {
		case http.StatusNotFound:
			kind = store.ErrNotFound
		case http.StatusConflict:
			kind = store.ErrConflict
		case http.StatusBadRequest:
			kind = store.ErrValidation
		case http.StatusUnauthorized:
			kind = users.ErrInvalidToken
		default:
			kind = store.ErrTransient
		}
	}
	if body.Message != "" {
		return fmt.Errorf("%w: %s", kind, body.Message)
	}
	return fmt.Errorf("%w: %s %s", kind, method, resp.Status)
}

// do sends one request. in is encoded as the JSON body when non-nil; out is
// decoded from a successful response when non-nil.
func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: encode request: %v", store.ErrValidation, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrValidation, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", store.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		err := statusError(method, resp)
		c.log.Debug("request failed", "method", method, "path", path, "status", resp.StatusCode, "error", err)
		return err
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %w", store.ErrTransient, method, path, err)
	}
	return nil
}

func seg(s string) string {
	return url.PathEscape(s)
}
