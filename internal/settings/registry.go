package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/runelite/api.runelite.net/internal/model"
	"github.com/runelite/api.runelite.net/internal/store"
)

// ListProfiles returns the profiles of a user. A user still in the legacy
// layout is migrated first, so the result then holds the default and
// rsprofile profiles.
func (s *Service) ListProfiles(ctx context.Context, userID model.UserID) ([]model.Profile, error) {
	listed, err := s.store.ListProfiles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	if model.StateOf(listed) == model.StateMigrated {
		return collect(listed), nil
	}

	_, err = s.Migrate(ctx, userID)
	switch {
	case err == nil, errors.Is(err, ErrNoLegacyDocument):
	case errors.Is(err, store.ErrConflict):
		// A default profile was created next to the legacy document, so the
		// legacy document cannot take its place. List what exists.
		s.logger.Warn("legacy document conflicts with default profile", "user_id", userID, "error", err)
	default:
		return nil, err
	}

	// Re-read rather than trust the first snapshot: a concurrent migrator
	// may have been between its two steps.
	listed, err = s.store.ListProfiles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	if state := model.StateOf(listed); state != model.StateMigrated {
		s.logger.Warn("profiles still not migrated", "user_id", userID, "state", state)
	}
	return collect(listed), nil
}

// collect drops the entries of documents without metadata.
func collect(listed []*model.Profile) []model.Profile {
	out := make([]model.Profile, 0, len(listed))
	for _, p := range listed {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}
