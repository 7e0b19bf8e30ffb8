package store

import (
	"context"
	"errors"

	"github.com/runelite/api.runelite.net/internal/model"
)

var (
	// ErrNotFound is returned by FindDocument when no document matches.
	ErrNotFound = errors.New("store: document not found")

	// ErrConflict is returned when an update would give an existing
	// document the (user, profile id) of another document.
	ErrConflict = errors.New("store: profile already exists")
)

// Target selects exactly one document of a user: a profile document, or
// the legacy document that carries no profile metadata.
type Target struct {
	UserID  model.UserID
	Profile *model.ProfileID
}

// ProfileTarget selects the document of profile id.
func ProfileTarget(userID model.UserID, id model.ProfileID) Target {
	return Target{UserID: userID, Profile: &id}
}

// LegacyTarget selects the document without profile metadata.
func LegacyTarget(userID model.UserID) Target {
	return Target{UserID: userID}
}

// IsLegacy reports whether t selects the legacy document.
func (t Target) IsLegacy() bool {
	return t.Profile == nil
}

// Update is a set of field-level writes applied to one document in a
// single atomic store operation.
type Update struct {
	// Writes are leaf sets and unsets.
	Writes model.WriteSet
	// Stamp gives the document the profile id and name of the stamp. The
	// stamp's rev seeds the revision only when the document has none yet;
	// an existing revision is kept so it never moves backwards.
	Stamp *model.Profile
	// Name renames the profile.
	Name *string
	// IncrementRev adds one to the stored revision, evaluated by the store.
	IncrementRev bool
}

// ApplyOptions controls Apply.
type ApplyOptions struct {
	// Upsert creates the document when no document matches the target.
	Upsert bool
	// ReturnRev asks the store to read back the post-write revision.
	ReturnRev bool
}

// ApplyResult reports the outcome of Apply.
type ApplyResult struct {
	Matched int64
	// Modified counts matched documents whose stored state changed. An
	// update that rewrites a field to its current value matches without
	// modifying.
	Modified int64
	Upserted bool
	// Rev is the post-write revision when ReturnRev was requested and the
	// store could confirm it.
	Rev *uint64
}

// Store is the document store holding configuration documents. One
// document exists per (user, profile id); at most one legacy document
// exists per user.
type Store interface {
	// ListProfiles returns the profile metadata of every document of the
	// user. Documents without metadata appear as nil entries.
	ListProfiles(ctx context.Context, userID model.UserID) ([]*model.Profile, error)

	// FindDocument returns the document selected by t, or ErrNotFound.
	FindDocument(ctx context.Context, t Target) (*model.Document, error)

	// FindAggregate returns the default, rsprofile and legacy documents of
	// the user, whichever exist.
	FindAggregate(ctx context.Context, userID model.UserID) ([]*model.Document, error)

	// HasProfiles reports whether any document of the user carries
	// profile metadata.
	HasProfiles(ctx context.Context, userID model.UserID) (bool, error)

	// Apply atomically applies u to the document selected by t. An upsert
	// whose insert loses to a conflicting document degrades to a plain
	// update of t; stamping an existing document onto an id that is
	// already taken fails with ErrConflict.
	Apply(ctx context.Context, t Target, u Update, opts ApplyOptions) (ApplyResult, error)

	// Delete removes the document selected by t and reports whether one
	// was removed.
	Delete(ctx context.Context, t Target) (bool, error)

	// EnsureIndexes (re)establishes the (user, profile id) uniqueness
	// constraint and drops any user-only uniqueness constraint left by the
	// single-profile schema.
	EnsureIndexes(ctx context.Context) error

	// Export streams every stored document to fn.
	Export(ctx context.Context, fn func(*model.Document) error) error

	// Close releases the store's resources.
	Close() error
}
