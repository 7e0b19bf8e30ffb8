// Package client provides a Go client for the configuration HTTP API, used
// by the rlconfig CLI.
package client

import (
	"context"

	"github.com/runelite/api.runelite.net/internal/model"
)

// ConfigClient is the interface the CLI commands use to talk to the
// configuration service. It is implemented by HTTPClient.
type ConfigClient interface {
	// Profiles (v3)
	ListProfiles(ctx context.Context) ([]model.Profile, error)
	GetProfile(ctx context.Context, id model.ProfileID) (*model.Configuration, error)
	PatchProfile(ctx context.Context, id model.ProfileID, patch *model.Patch) (*model.PatchResult, error)
	RenameProfile(ctx context.Context, id model.ProfileID, name string) error
	DeleteProfile(ctx context.Context, id model.ProfileID) error

	// Aggregate view (v2)
	GetV2(ctx context.Context) (map[string]string, error)
	PatchV2(ctx context.Context, patch *model.Patch) ([]string, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}
