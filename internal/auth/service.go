// Package auth provides the ambient request-logging middleware for the HTTP
// layer. User authentication (login, sessions, API keys) is explicitly out
// of scope — see spec's Non-goals — so this package carries no credential
// store, no password hashing, and no session state.
package auth

import (
	"log/slog"
	"net/http"
	"time"
)

// Service wires the request-logging middleware into the router. It holds no
// state; NewService/Close exist only so the daemon's lifecycle wiring (which
// mirrors the teacher's auth service lifecycle) doesn't need special-casing.
type Service struct{}

// NewService creates a no-op auth service. configDir is accepted for
// call-site compatibility with the daemon's startup sequence but unused.
func NewService(configDir string) (*Service, error) {
	return &Service{}, nil
}

// Close is a no-op, kept for symmetry with the daemon's shutdown sequence.
func (s *Service) Close() {}

// Middleware logs each request's method, path, remote address, and duration
// at debug level. It never rejects a request.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"duration", time.Since(start),
		)
	})
}
