// Package api exposes the game over REST: maps, join, state, actions,
// debug ticks and the leaderboard. Responses are JSON and never cached.
package api

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vkozyrev/dogwalk/game/app"
	"github.com/vkozyrev/dogwalk/game/session"
)

// Options configure a server.
type Options struct {
	// AllowTick enables POST /api/v1/game/tick. It is set only when
	// the server runs without a periodic ticker (debug-step mode).
	AllowTick bool
	// WWWRoot is the static files directory served outside /api.
	WWWRoot string
}

// Server is the REST API server.
type Server struct {
	app    *app.App
	log    *zap.Logger
	opts   Options
	router *mux.Router
}

// NewServer creates an API server over the game app.
func NewServer(gameApp *app.App, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		app:  gameApp,
		log:  logger,
		opts: opts,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/v1/maps", s.handleListMaps)
	api.HandleFunc("/v1/maps/{id}", s.handleGetMap)
	api.HandleFunc("/v1/game/join", s.handleJoin)
	api.HandleFunc("/v1/game/players", s.withAuth(s.handlePlayers))
	api.HandleFunc("/v1/game/state", s.withAuth(s.handleState))
	api.HandleFunc("/v1/game/player/action", s.withAuth(s.handleAction))
	api.HandleFunc("/v1/game/tick", s.handleTick)
	api.HandleFunc("/v1/game/records", s.handleRecords)

	// Anything else under /api is an unknown endpoint.
	api.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusBadRequest, codeBadRequest, "Unknown API endpoint")
	})

	if s.opts.WWWRoot != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.opts.WWWRoot)))
	}

	s.router = r
}

// ServeHTTP implements http.Handler with request logging.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	lw := &loggingResponseWriter{ResponseWriter: w, status: http.StatusOK}
	s.router.ServeHTTP(lw, r)
	s.log.Info("request",
		zap.String("ip", clientIP(r)),
		zap.String("method", r.Method),
		zap.String("uri", r.RequestURI),
		zap.Int("status", lw.status),
		zap.Duration("duration", time.Since(start)))
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *loggingResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	return host
}

// Error codes surfaced to clients.
const (
	codeBadRequest      = "badRequest"
	codeInvalidArgument = "invalidArgument"
	codeInvalidMethod   = "invalidMethod"
	codeInvalidToken    = "invalidToken"
	codeUnknownToken    = "unknownToken"
	codeMapNotFound     = "mapNotFound"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}

// requireMethod answers wrong verbs with 405 and an Allow header.
func requireMethod(w http.ResponseWriter, r *http.Request, allowed ...string) bool {
	for _, m := range allowed {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	respondError(w, http.StatusMethodNotAllowed, codeInvalidMethod,
		"Method "+r.Method+" is not allowed")
	return false
}

// requireJSON rejects requests whose Content-Type is not JSON.
func requireJSON(w http.ResponseWriter, r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || ct != "application/json" {
		respondError(w, http.StatusBadRequest, codeInvalidArgument, "Expected application/json")
		return false
	}
	return true
}

// withAuth extracts and validates the bearer token, then passes it to
// the handler. Malformed credentials never reach the game.
func (s *Server) withAuth(h func(http.ResponseWriter, *http.Request, session.Token)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			respondError(w, http.StatusUnauthorized, codeInvalidToken, "Authorization header is missing")
			return
		}
		token := header[len(prefix):]
		if !session.IsValidToken(token) {
			respondError(w, http.StatusUnauthorized, codeInvalidToken, "Invalid token")
			return
		}
		h(w, r, session.Token(token))
	}
}

// respondAppError maps game errors to wire errors.
func respondAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrUnknownToken):
		respondError(w, http.StatusUnauthorized, codeUnknownToken, "Player token has not been found")
	case errors.Is(err, app.ErrMapNotFound):
		respondError(w, http.StatusNotFound, codeMapNotFound, "Map not found")
	case errors.Is(err, app.ErrInvalidName):
		respondError(w, http.StatusBadRequest, codeInvalidArgument, "Invalid name")
	default:
		respondError(w, http.StatusInternalServerError, codeBadRequest, "Internal error")
	}
}
