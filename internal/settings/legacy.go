package settings

import (
	"context"
	"fmt"
	"sort"

	"github.com/runelite/api.runelite.net/internal/events"
	"github.com/runelite/api.runelite.net/internal/model"
	"github.com/runelite/api.runelite.net/internal/store"
)

// precedence orders the documents of the aggregate view; later documents
// override earlier ones.
func precedence(d *model.Document) int {
	switch {
	case d.IsLegacy():
		return 0
	case d.Profile.ID == model.ProfileDefault:
		return 1
	default:
		return 2
	}
}

// GetV2 returns the flat view across the legacy document, the default
// profile and the rsprofile profile, in that order of precedence.
func (s *Service) GetV2(ctx context.Context, userID model.UserID) (map[string]string, error) {
	docs, err := s.store.FindAggregate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get aggregate config: %w", err)
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return precedence(docs[i]) < precedence(docs[j])
	})

	merged := model.Groups{}
	for _, d := range docs {
		merged.MergeFrom(d.Groups)
	}
	return merged.Flatten(), nil
}

// PatchV2 applies a patch from a pre-profile client. Before migration
// every write goes to the legacy document without a revision. After
// migration writes are routed to the default or rsprofile profile by key,
// and each profile that receives writes gets one update with a revision
// increment.
func (s *Service) PatchV2(ctx context.Context, userID model.UserID, patch *model.Patch) ([]string, error) {
	ws, failures := patch.Validate()

	migrated, err := s.store.HasProfiles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check profiles: %w", err)
	}

	if !migrated {
		if ws.Len() == 0 {
			return failures, nil
		}
		_, err := s.store.Apply(ctx, store.LegacyTarget(userID),
			store.Update{Writes: ws}, store.ApplyOptions{Upsert: true})
		if err != nil {
			return nil, fmt.Errorf("patch legacy document: %w", err)
		}
		s.publish(ctx, events.TopicLegacyPatched, events.LegacyPatched{UserID: userID, Keys: keysOf(ws)})
		return failures, nil
	}

	rs, def := ws.Partition(func(k model.StorageKey) bool {
		return model.IsRsProfileStorageKey(k.Key)
	})
	for _, batch := range []struct {
		id     model.ProfileID
		writes model.WriteSet
	}{
		{model.ProfileDefault, def},
		{model.ProfileRsProfile, rs},
	} {
		if batch.writes.Len() == 0 {
			continue
		}
		res, err := s.store.Apply(ctx, store.ProfileTarget(userID, batch.id),
			store.Update{Writes: batch.writes, IncrementRev: true},
			store.ApplyOptions{Upsert: true, ReturnRev: true})
		if err != nil {
			return nil, fmt.Errorf("patch profile %s: %w", batch.id, err)
		}
		s.publish(ctx, events.TopicProfilePatched, events.ProfilePatched{
			UserID:    userID,
			ProfileID: batch.id,
			Rev:       res.Rev,
			Keys:      keysOf(batch.writes),
		})
	}
	return failures, nil
}
