package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/runelite/api.runelite.net/internal/events"
	"github.com/runelite/api.runelite.net/internal/model"
	"github.com/runelite/api.runelite.net/internal/store"
)

// GetV3 returns the flat view of one profile. A profile without a stored
// document is empty and has no revision.
func (s *Service) GetV3(ctx context.Context, userID model.UserID, profileID model.ProfileID) (model.Configuration, error) {
	if !profileID.Valid() {
		return model.Configuration{}, ErrInvalidProfileID
	}
	doc, err := s.store.FindDocument(ctx, store.ProfileTarget(userID, profileID))
	if errors.Is(err, store.ErrNotFound) {
		return model.ConfigurationOf(nil), nil
	}
	if err != nil {
		return model.Configuration{}, fmt.Errorf("get profile %s: %w", profileID, err)
	}
	return model.ConfigurationOf(doc), nil
}

// PatchV3 validates patch and applies the accepted writes, the optional
// rename and a revision increment to the profile in one upsert. The
// profile is written even when nothing validated, so a new empty profile
// is created with revision 1.
func (s *Service) PatchV3(ctx context.Context, userID model.UserID, profileID model.ProfileID, patch *model.Patch) (model.PatchResult, error) {
	if !profileID.Valid() {
		return model.PatchResult{}, ErrInvalidProfileID
	}
	ws, failures := patch.Validate()

	res, err := s.store.Apply(ctx, store.ProfileTarget(userID, profileID),
		store.Update{Writes: ws, Name: patch.ProfileName, IncrementRev: true},
		store.ApplyOptions{Upsert: true, ReturnRev: true})
	if err != nil {
		return model.PatchResult{}, fmt.Errorf("patch profile %s: %w", profileID, err)
	}

	s.publish(ctx, events.TopicProfilePatched, events.ProfilePatched{
		UserID:    userID,
		ProfileID: profileID,
		Rev:       res.Rev,
		Keys:      keysOf(ws),
	})
	return model.PatchResult{Rev: res.Rev, Failures: failures}, nil
}

// RenameProfile sets the name of an existing profile and reports whether
// the stored name changed. A missing profile and a profile that already
// carries name both report false.
func (s *Service) RenameProfile(ctx context.Context, userID model.UserID, profileID model.ProfileID, name string) (bool, error) {
	if !profileID.Valid() {
		return false, ErrInvalidProfileID
	}
	res, err := s.store.Apply(ctx, store.ProfileTarget(userID, profileID),
		store.Update{Name: &name}, store.ApplyOptions{})
	if err != nil {
		return false, fmt.Errorf("rename profile %s: %w", profileID, err)
	}
	if res.Modified == 0 {
		return false, nil
	}
	s.publish(ctx, events.TopicProfileRenamed, events.ProfileRenamed{
		UserID:    userID,
		ProfileID: profileID,
		Name:      name,
	})
	return true, nil
}

// DeleteProfile removes a profile and reports whether it existed.
func (s *Service) DeleteProfile(ctx context.Context, userID model.UserID, profileID model.ProfileID) (bool, error) {
	if !profileID.Valid() {
		return false, ErrInvalidProfileID
	}
	deleted, err := s.store.Delete(ctx, store.ProfileTarget(userID, profileID))
	if err != nil {
		return false, fmt.Errorf("delete profile %s: %w", profileID, err)
	}
	if deleted {
		s.publish(ctx, events.TopicProfileDeleted, events.ProfileDeleted{UserID: userID, ProfileID: profileID})
	}
	return deleted, nil
}
