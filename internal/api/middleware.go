package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

type contextKey string

const (
	userIDKey contextKey = "userID"
	emailKey  contextKey = "userEmail"
)

// userIDFromContext returns the authenticated user's id, set by requireAuth.
func userIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// requireAuth enforces a valid bearer token and stores the caller's identity
// on the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		claims, err := s.tokens.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		ctx = context.WithValue(ctx, emailKey, claims.Email)
		next(w, r.WithContext(ctx))
	}
}

// withCORS handles cross-origin requests and preflight
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Client-Version")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withClientVersionCheck rejects clients whose major version is incompatible
// with this server. Clients that don't send the header, or send something
// that isn't valid semver, are allowed through.
func (s *Server) withClientVersionCheck(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := checkClientVersion(r.Header.Get("X-Client-Version")); err != nil {
			writeError(w, http.StatusUpgradeRequired, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func checkClientVersion(clientVersion string) error {
	if clientVersion == "" {
		return nil
	}

	cv := clientVersion
	if !strings.HasPrefix(cv, "v") {
		cv = "v" + cv
	}
	sv := ServerVersion
	if !strings.HasPrefix(sv, "v") {
		sv = "v" + sv
	}

	if !semver.IsValid(cv) || !semver.IsValid(sv) {
		return nil
	}

	if semver.Major(cv) != semver.Major(sv) {
		return fmt.Errorf("version mismatch: client %s is incompatible with server %s",
			clientVersion, ServerVersion)
	}

	if semver.Compare(sv, cv) < 0 {
		return fmt.Errorf("server version %s is older than client %s, please upgrade the server",
			ServerVersion, clientVersion)
	}

	return nil
}

// withRequestLog logs each request with its status and duration
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
