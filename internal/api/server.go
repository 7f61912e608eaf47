// Package api provides the REST/JSON HTTP surface of the issue tracker.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/codetrail/tracker/internal/auth"
	"github.com/codetrail/tracker/internal/storage"
)

// ServerVersion is the version of this API server.
// It's set as a var so it can be initialized from main.
var ServerVersion = "1.0.0"

// Server is the HTTP API server
type Server struct {
	store      storage.Storage
	tokens     *auth.Tokens
	logger     *slog.Logger
	corsOrigin string
	startTime  time.Time
	httpServer *http.Server
}

// NewServer creates a new API server
func NewServer(store storage.Storage, tokens *auth.Tokens, logger *slog.Logger, corsOrigin string) *Server {
	return &Server{
		store:      store,
		tokens:     tokens,
		logger:     logger,
		corsOrigin: corsOrigin,
		startTime:  time.Now(),
	}
}

// Handler builds the route table. Exposed separately from Start so tests can
// drive the full middleware stack through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Unauthenticated endpoints
	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	// Issues
	mux.HandleFunc("GET /issues", s.requireAuth(s.handleListIssues))
	mux.HandleFunc("POST /issues", s.requireAuth(s.handleCreateIssue))
	mux.HandleFunc("GET /issues/{id}", s.requireAuth(s.handleGetIssue))
	mux.HandleFunc("PUT /issues/{id}", s.requireAuth(s.handleUpdateIssue))
	mux.HandleFunc("DELETE /issues/{id}", s.requireAuth(s.handleDeleteIssue))

	// Comments
	mux.HandleFunc("GET /issues/{id}/comments", s.requireAuth(s.handleListComments))
	mux.HandleFunc("POST /issues/{id}/comments", s.requireAuth(s.handleCreateComment))
	mux.HandleFunc("DELETE /comments/{id}", s.requireAuth(s.handleDeleteComment))

	// Labels
	mux.HandleFunc("GET /labels", s.requireAuth(s.handleListLabels))
	mux.HandleFunc("POST /labels", s.requireAuth(s.handleCreateLabel))
	mux.HandleFunc("DELETE /labels/{id}", s.requireAuth(s.handleDeleteLabel))

	// Users
	mux.HandleFunc("GET /users", s.requireAuth(s.handleListUsers))

	return s.withCORS(s.withClientVersionCheck(s.withRequestLog(mux)))
}

// Start begins listening on the given address. Blocks until the context is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutCtx)
	}()

	s.logger.Info("api server starting", "addr", addr, "version", ServerVersion)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// GET /healthz
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  ServerVersion,
		"uptime_s": time.Since(s.startTime).Seconds(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"message": msg})
}

// storeError maps storage sentinel errors onto HTTP responses. Anything
// unrecognized is logged with full detail and surfaced as the generic message
// only; store error text never reaches the client.
func (s *Server) storeError(w http.ResponseWriter, err error, notFoundMsg, genericMsg string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, notFoundMsg)
	case errors.Is(err, storage.ErrConflict):
		writeError(w, http.StatusConflict, genericMsg)
	case errors.Is(err, storage.ErrInvalidReference):
		writeError(w, http.StatusBadRequest, "Referenced entity does not exist")
	default:
		s.logger.Error("store operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, genericMsg)
	}
}

// decodeJSON reads a request body into v, rejecting unparseable payloads
func decodeJSON(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(v)
}
