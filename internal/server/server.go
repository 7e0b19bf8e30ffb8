// Package server exposes the settings service over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/runelite/api.runelite.net/internal/auth"
	"github.com/runelite/api.runelite.net/internal/settings"
)

// ConfigServer serves the v2 and v3 configuration routes.
type ConfigServer struct {
	settings      *settings.Service
	authenticator auth.Authenticator
	logger        *slog.Logger
	storeTimeout  time.Duration
}

// NewConfigServer returns a server for svc. Requests are authenticated
// with a; storeTimeout bounds each request's store work and is disabled
// when zero.
func NewConfigServer(svc *settings.Service, a auth.Authenticator, logger *slog.Logger, storeTimeout time.Duration) *ConfigServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfigServer{
		settings:      svc,
		authenticator: a,
		logger:        logger.With("component", "http"),
		storeTimeout:  storeTimeout,
	}
}

// storeContext derives the context handlers pass to the service.
func (s *ConfigServer) storeContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.storeTimeout)
}

// writeServiceError maps a service error onto a response.
func (s *ConfigServer) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, settings.ErrInvalidProfileID):
		writeError(w, http.StatusBadRequest, "invalid profile id")
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.Error(op+" timed out", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusServiceUnavailable, "store timeout")
	default:
		s.logger.Error(op+" failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to "+op)
	}
}
