package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/aaronzipp/imposter/internal/store"
	"github.com/aaronzipp/imposter/internal/users"
)

// requestTimeout bounds every non-streaming request
const requestTimeout = 15 * time.Second

// Context holds shared application dependencies
type Context struct {
	Rooms     store.Backend
	Users     *users.Service
	Log       *slog.Logger
	PublicURL string
	Origins   []string

	chatLimits *limiters
}

// NewContext wires the handlers to a room backend and the account service
func NewContext(rooms store.Backend, accounts *users.Service, log *slog.Logger, publicURL string, origins []string) *Context {
	if log == nil {
		log = slog.Default()
	}
	return &Context{
		Rooms:      rooms,
		Users:      accounts,
		Log:        log,
		PublicURL:  publicURL,
		Origins:    origins,
		chatLimits: newLimiters(chatRate, chatBurst),
	}
}

// Routes builds the HTTP API of the room backend
func (ctx *Context) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(ctx.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: ctx.Origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// streams stay open for as long as the client listens
	r.Get("/rooms/{roomID}/events", ctx.HandleEvents)
	r.Get("/rooms/{roomID}/ws", ctx.HandleWS)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Get("/", ctx.HandleIndex)
		r.Get("/healthz", ctx.HandleHealth)
		r.Get("/join/{code}/qr.png", ctx.HandleJoinQR)
		r.Get("/codes/{code}", ctx.HandleCodeExists)

		r.Post("/rooms", ctx.HandleCreateRoom)
		r.Get("/rooms", ctx.HandleFindRoom)
		r.Get("/rooms/{roomID}", ctx.HandleGetRoom)
		r.Patch("/rooms/{roomID}", ctx.HandleUpdateRoom)
		r.Delete("/rooms/{roomID}", ctx.HandleDeleteRoom)

		r.Get("/rooms/{roomID}/players", ctx.HandleListPlayers)
		r.Post("/rooms/{roomID}/players", ctx.HandleAddPlayer)
		r.Delete("/rooms/{roomID}/players/{playerID}", ctx.HandleRemovePlayer)

		r.Get("/rooms/{roomID}/chats", ctx.HandleListChats)
		r.Post("/rooms/{roomID}/chats", ctx.HandleSendChat)

		r.Get("/rooms/{roomID}/votes", ctx.HandleListVotes)
		r.Post("/rooms/{roomID}/votes", ctx.HandleSubmitVote)
		r.Delete("/rooms/{roomID}/votes", ctx.HandleClearVotes)

		r.Post("/auth/signup", ctx.HandleSignup)
		r.Post("/auth/login", ctx.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(ctx.RequireAuth)
			r.Get("/me", ctx.HandleProfile)
			r.Post("/me/results", ctx.HandleRecordResult)
			r.Post("/me/friends", ctx.HandleAddFriend)
			r.Get("/users", ctx.HandleSearchUsers)
		})
	})
	return r
}

// HandleIndex describes the service
func (ctx *Context) HandleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"service": "imposter", "rooms": "/rooms"})
}

// HandleHealth checks that the backend is reachable
func (ctx *Context) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := ctx.Rooms.Ping(r.Context()); err != nil {
		ctx.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (ctx *Context) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		ctx.Log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
