package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/runelite/api.runelite.net/internal/events"
	"github.com/runelite/api.runelite.net/internal/model"
	"github.com/runelite/api.runelite.net/internal/store"
)

// MigrationReport summarises one migration.
type MigrationReport struct {
	// DefaultKeys is the number of entries left in the default profile.
	DefaultKeys int
	// RsProfileKeys is the number of entries moved to the rsprofile profile.
	RsProfileKeys int
}

// Migrate moves a legacy document into the profile layout in two
// idempotent upserts: the rsprofile entries are copied into the rsprofile
// profile, then the legacy document is stamped as the default profile and
// the copied entries are removed from it. Revisions are not incremented,
// an rsprofile profile that already exists keeps its revision, and no
// document is deleted.
func (s *Service) Migrate(ctx context.Context, userID model.UserID) (MigrationReport, error) {
	var report MigrationReport

	legacy, err := s.store.FindDocument(ctx, store.LegacyTarget(userID))
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("unable to find legacy document to migrate", "user_id", userID)
		return report, ErrNoLegacyDocument
	}
	if err != nil {
		return report, fmt.Errorf("find legacy document: %w", err)
	}

	var copied, removed model.WriteSet
	legacy.Groups.Each(func(k model.StorageKey, v model.Value) {
		if model.IsReservedGroup(k.Group) {
			return
		}
		if !model.IsRsProfileStorageKey(k.Key) {
			report.DefaultKeys++
			return
		}
		copied.Set(k, v)
		removed.Unset(k)
		report.RsProfileKeys++
	})

	s.logger.Info("migrating legacy config", "user_id", userID, "keys", report.RsProfileKeys)

	rs := model.RsProfile
	_, err = s.store.Apply(ctx, store.ProfileTarget(userID, model.ProfileRsProfile),
		store.Update{Writes: copied, Stamp: &rs},
		store.ApplyOptions{Upsert: true})
	if err != nil {
		return report, fmt.Errorf("write rsprofile profile: %w", err)
	}

	def := model.DefaultProfile
	_, err = s.store.Apply(ctx, store.LegacyTarget(userID),
		store.Update{Writes: removed, Stamp: &def},
		store.ApplyOptions{Upsert: true})
	if err != nil {
		return report, fmt.Errorf("stamp default profile: %w", err)
	}

	s.publish(ctx, events.TopicProfileMigrated, events.ProfileMigrated{
		UserID:        userID,
		DefaultKeys:   report.DefaultKeys,
		RsProfileKeys: report.RsProfileKeys,
	})
	return report, nil
}
