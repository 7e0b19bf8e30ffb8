package model

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Value is a stored leaf in its JSON encoding. Clients only ever write
// strings, but documents written by older clients may hold structured
// JSON values.
type Value json.RawMessage

// StringValue wraps s as a JSON string value.
func StringValue(s string) Value {
	b, _ := json.Marshal(s)
	return Value(b)
}

// IsNull reports whether v is absent or JSON null.
func (v Value) IsNull() bool {
	trimmed := bytes.TrimSpace(v)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// String renders v for the flat key/value view: strings unquoted, anything
// else as compact JSON.
func (v Value) String() string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err != nil {
		return string(v)
	}
	return buf.String()
}

// MarshalJSON emits v verbatim.
func (v Value) MarshalJSON() ([]byte, error) {
	if len(v) == 0 {
		return []byte("null"), nil
	}
	return v, nil
}

// UnmarshalJSON stores a copy of data.
func (v *Value) UnmarshalJSON(data []byte) error {
	*v = append((*v)[:0], data...)
	return nil
}

// Groups maps a group name to its leaves, keyed by escaped subkey.
// Iteration helpers visit groups and subkeys in sorted order.
type Groups map[string]map[string]Value

// Set stores value under k, creating the group if needed.
func (g Groups) Set(k StorageKey, value Value) {
	grp, ok := g[k.Group]
	if !ok {
		grp = make(map[string]Value)
		g[k.Group] = grp
	}
	grp[k.Key] = value
}

// Get returns the leaf at k.
func (g Groups) Get(k StorageKey) (Value, bool) {
	v, ok := g[k.Group][k.Key]
	return v, ok
}

// Unset removes the leaf at k. Empty groups are kept, matching the store.
func (g Groups) Unset(k StorageKey) {
	if grp, ok := g[k.Group]; ok {
		delete(grp, k.Key)
	}
}

// Names returns the group names in sorted order.
func (g Groups) Names() []string {
	names := make([]string, 0, len(g))
	for name := range g {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Each calls fn for every leaf, ordered by group then subkey.
func (g Groups) Each(fn func(k StorageKey, v Value)) {
	for _, name := range g.Names() {
		grp := g[name]
		keys := make([]string, 0, len(grp))
		for k := range grp {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fn(StorageKey{Group: name, Key: k}, grp[k])
		}
	}
}

// Len returns the number of leaves.
func (g Groups) Len() int {
	n := 0
	for _, grp := range g {
		n += len(grp)
	}
	return n
}

// Clone returns a deep copy.
func (g Groups) Clone() Groups {
	out := make(Groups, len(g))
	for name, grp := range g {
		cp := make(map[string]Value, len(grp))
		for k, v := range grp {
			cp[k] = append(Value(nil), v...)
		}
		out[name] = cp
	}
	return out
}

// MergeFrom copies every leaf of src into g, overwriting existing leaves.
func (g Groups) MergeFrom(src Groups) {
	src.Each(func(k StorageKey, v Value) {
		g.Set(k, append(Value(nil), v...))
	})
}

// Flatten renders the groups as the public dotted-key view. Reserved
// groups and null leaves are skipped.
func (g Groups) Flatten() map[string]string {
	out := make(map[string]string, g.Len())
	g.Each(func(k StorageKey, v Value) {
		if IsReservedGroup(k.Group) || v.IsNull() {
			return
		}
		out[k.String()] = v.String()
	})
	return out
}

// Document is one stored configuration record. A nil Profile marks a
// legacy document written before profiles existed.
type Document struct {
	UserID  UserID   `json:"userId"`
	Profile *Profile `json:"profile,omitempty"`
	Groups  Groups   `json:"groups"`
}

// IsLegacy reports whether d predates profile metadata.
func (d *Document) IsLegacy() bool {
	return d.Profile == nil
}

// Configuration is the v3 read view of one profile.
type Configuration struct {
	Config map[string]string `json:"config"`
	Rev    *uint64           `json:"rev,omitempty"`
}

// ConfigurationOf unpacks a document into its flat view. A nil document
// yields an empty configuration with no revision.
func ConfigurationOf(d *Document) Configuration {
	if d == nil {
		return Configuration{Config: map[string]string{}}
	}
	c := Configuration{Config: d.Groups.Flatten()}
	if d.Profile != nil {
		rev := d.Profile.Rev
		c.Rev = &rev
	}
	return c
}
