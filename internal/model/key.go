package model

import "strings"

// MaxValueLength is the exclusive upper bound on a stored value, in bytes.
const MaxValueLength = 262144

// rsProfileSegment is the key segment that routes a setting to the
// rsprofile profile.
const rsProfileSegment = "rsprofile"

// StorageKey addresses one leaf inside a document: the top-level group and
// the escaped subkey within it.
type StorageKey struct {
	Group string
	Key   string
}

// Path returns the dotted document path of the leaf ("group.sub:key").
func (k StorageKey) Path() string {
	return k.Group + "." + k.Key
}

// String returns the public form of the key.
func (k StorageKey) String() string {
	return DecodeKey(k.Group, k.Key)
}

// EncodeKey splits a public dotted key ("group.sub.key") on its first dot
// and escapes the remaining dots as ':' so the subkey can be stored as a
// single field of the group.
func EncodeKey(key string) (StorageKey, bool) {
	group, rest, ok := strings.Cut(key, ".")
	if !ok || group == "" || rest == "" {
		return StorageKey{}, false
	}
	return StorageKey{Group: group, Key: strings.ReplaceAll(rest, ".", ":")}, true
}

// DecodeKey is the inverse of EncodeKey.
func DecodeKey(group, storageKey string) string {
	return group + "." + strings.ReplaceAll(storageKey, ":", ".")
}

// IsReservedGroup reports whether s names document metadata rather than
// user data.
func IsReservedGroup(s string) bool {
	return strings.HasPrefix(s, "_") || strings.HasPrefix(s, "$")
}

// IsRsProfileKey reports whether a public key belongs to the rsprofile
// namespace: the part after the group starts with "rsprofile.". A key
// whose only subkey is "rsprofile" stays in the default profile.
func IsRsProfileKey(key string) bool {
	_, rest, ok := strings.Cut(key, ".")
	return ok && strings.HasPrefix(rest, rsProfileSegment+".")
}

// IsRsProfileStorageKey is IsRsProfileKey for an escaped subkey.
func IsRsProfileStorageKey(storageKey string) bool {
	return strings.HasPrefix(storageKey, rsProfileSegment+":")
}
