// Package settings implements the profile-aware configuration service:
// profile listing with on-demand migration of legacy documents, atomic
// revisioned patches, and the flat v2 view kept for pre-profile clients.
//
// The service holds no state between calls. Every mutation is a single
// store.Apply whose revision increment is evaluated by the store, so
// concurrent callers for the same user need no coordination here.
package settings

import (
	"context"
	"log/slog"

	"github.com/runelite/api.runelite.net/internal/events"
	"github.com/runelite/api.runelite.net/internal/model"
	"github.com/runelite/api.runelite.net/internal/store"
)

// Service implements the configuration operations on top of a store.Store.
type Service struct {
	store  store.Store
	events events.Publisher
	logger *slog.Logger
}

// New creates a Service. A nil publisher disables change events and a nil
// logger falls back to slog.Default.
func New(st store.Store, pub events.Publisher, logger *slog.Logger) *Service {
	if pub == nil {
		pub = &events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  st,
		events: pub,
		logger: logger.With("component", "settings"),
	}
}

// publish emits an event. Failures are logged and never fail the caller.
func (s *Service) publish(ctx context.Context, topic string, event any) {
	if err := s.events.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("failed to publish event", "topic", topic, "error", err)
	}
}

// keysOf lists the public keys touched by ws.
func keysOf(ws model.WriteSet) []string {
	keys := make([]string, 0, ws.Len())
	for _, op := range ws.Ops() {
		keys = append(keys, op.Key.String())
	}
	return keys
}
