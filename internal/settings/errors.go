package settings

import "errors"

var (
	// ErrNoLegacyDocument is returned by Migrate when the user has no
	// document without profile metadata, typically because a concurrent
	// caller migrated it first.
	ErrNoLegacyDocument = errors.New("settings: no legacy document to migrate")

	// ErrInvalidProfileID is returned for ids that are neither reserved nor
	// positive.
	ErrInvalidProfileID = errors.New("settings: invalid profile id")
)
