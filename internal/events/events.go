package events

import (
	"context"

	"github.com/runelite/api.runelite.net/internal/model"
)

// Event topic constants
const (
	TopicProfilePatched  = "rlconfig.profile.patched"
	TopicProfileRenamed  = "rlconfig.profile.renamed"
	TopicProfileDeleted  = "rlconfig.profile.deleted"
	TopicProfileMigrated = "rlconfig.profile.migrated"

	// TopicLegacyPatched is emitted for v2 patches applied before the user
	// has been migrated.
	TopicLegacyPatched = "rlconfig.legacy.patched"

	// TopicAll matches every topic above.
	TopicAll = "rlconfig.>"
)

// Event types

type ProfilePatched struct {
	UserID    model.UserID    `json:"user_id"`
	ProfileID model.ProfileID `json:"profile_id"`
	Rev       *uint64         `json:"rev,omitempty"`
	Keys      []string        `json:"keys"` // public keys written or removed
}

type ProfileRenamed struct {
	UserID    model.UserID    `json:"user_id"`
	ProfileID model.ProfileID `json:"profile_id"`
	Name      string          `json:"name"`
}

type ProfileDeleted struct {
	UserID    model.UserID    `json:"user_id"`
	ProfileID model.ProfileID `json:"profile_id"`
}

type ProfileMigrated struct {
	UserID        model.UserID `json:"user_id"`
	DefaultKeys   int          `json:"default_keys"`
	RsProfileKeys int          `json:"rsprofile_keys"`
}

type LegacyPatched struct {
	UserID model.UserID `json:"user_id"`
	Keys   []string     `json:"keys"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
