package model

import (
	"fmt"
	"strconv"
)

// UserID identifies the tenant that owns a set of profiles.
type UserID int32

// ProfileID identifies a profile within a user. Two ids are reserved: the
// default profile and the rsprofile profile. Every other valid id is
// positive and names a user-created profile.
type ProfileID int64

const (
	ProfileDefault   ProfileID = 0
	ProfileRsProfile ProfileID = -1
)

// ProfileKind is the closed set of profile id classes.
type ProfileKind int

const (
	KindInvalid ProfileKind = iota
	KindDefault
	KindRsProfile
	KindNamed
)

func (k ProfileKind) String() string {
	switch k {
	case KindDefault:
		return "default"
	case KindRsProfile:
		return "rsprofile"
	case KindNamed:
		return "named"
	default:
		return "invalid"
	}
}

// NamedProfile returns the id of a user-created profile. It panics when id
// collides with a reserved id.
func NamedProfile(id int64) ProfileID {
	if id <= 0 {
		panic(fmt.Sprintf("model: named profile id must be positive, got %d", id))
	}
	return ProfileID(id)
}

// Kind classifies the id.
func (id ProfileID) Kind() ProfileKind {
	switch {
	case id == ProfileDefault:
		return KindDefault
	case id == ProfileRsProfile:
		return KindRsProfile
	case id > 0:
		return KindNamed
	default:
		return KindInvalid
	}
}

// Valid reports whether id is reserved or names a user-created profile.
func (id ProfileID) Valid() bool {
	return id.Kind() != KindInvalid
}

func (id ProfileID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseProfileID parses the decimal form used in request paths.
func ParseProfileID(s string) (ProfileID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse profile id %q: %w", s, err)
	}
	switch id := ProfileID(n); id.Kind() {
	case KindDefault, KindRsProfile:
		return id, nil
	case KindNamed:
		return NamedProfile(n), nil
	default:
		return 0, fmt.Errorf("profile id %d is not a valid profile", n)
	}
}

// Profile is the metadata stored with each profile document.
type Profile struct {
	ID   ProfileID `json:"id"`
	Name string    `json:"name"`
	Rev  uint64    `json:"rev"`
}

// DefaultProfile and RsProfile are the metadata stamped onto documents by
// the legacy migration.
var (
	DefaultProfile = Profile{ID: ProfileDefault, Name: "default", Rev: 0}
	RsProfile      = Profile{ID: ProfileRsProfile, Name: "$rsprofile", Rev: 0}
)

// MigrationState describes where a user is in the move from the legacy
// single-document layout to per-profile documents.
type MigrationState int

const (
	// StateLegacy: at least one document without profile metadata exists.
	StateLegacy MigrationState = iota
	// StateMigrating: the rsprofile document has been written but the
	// legacy document has not been stamped yet.
	StateMigrating
	// StateMigrated: every document carries profile metadata.
	StateMigrated
)

func (s MigrationState) String() string {
	switch s {
	case StateLegacy:
		return "legacy"
	case StateMigrating:
		return "migrating"
	case StateMigrated:
		return "migrated"
	default:
		return "unknown"
	}
}

// StateOf derives the migration state from a profile listing in which a
// nil entry stands for a document without metadata.
func StateOf(profiles []*Profile) MigrationState {
	legacy, rs := false, false
	for _, p := range profiles {
		switch {
		case p == nil:
			legacy = true
		case p.ID == ProfileRsProfile:
			rs = true
		}
	}
	switch {
	case legacy && rs:
		return StateMigrating
	case legacy:
		return StateLegacy
	default:
		return StateMigrated
	}
}
