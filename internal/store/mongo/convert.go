package mongo

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/runelite/api.runelite.net/internal/model"
	"github.com/runelite/api.runelite.net/internal/store"
)

// Field names of the document metadata.
const (
	fieldID      = "_id"
	fieldUserID  = "_userId"
	fieldProfile = "_profile"

	fieldProfileID   = "_profile.id"
	fieldProfileName = "_profile.name"
	fieldProfileRev  = "_profile.rev"
)

// profileDoc is the BSON shape of model.Profile.
type profileDoc struct {
	ID   int64  `bson:"id"`
	Name string `bson:"name,omitempty"`
	Rev  int64  `bson:"rev"`
}

func (p *profileDoc) model() *model.Profile {
	if p == nil {
		return nil
	}
	return &model.Profile{ID: model.ProfileID(p.ID), Name: p.Name, Rev: uint64(p.Rev)}
}

// targetFilter selects the document of t. A null _profile matches both a
// missing and an explicitly null field.
func targetFilter(t store.Target) bson.D {
	if t.IsLegacy() {
		return bson.D{{Key: fieldUserID, Value: int32(t.UserID)}, {Key: fieldProfile, Value: nil}}
	}
	return bson.D{{Key: fieldUserID, Value: int32(t.UserID)}, {Key: fieldProfileID, Value: int64(*t.Profile)}}
}

// buildUpdate renders u as an update document. Stamping the legacy target
// sets the whole _profile subdocument, since a legacy document may hold
// _profile: null and fields cannot be set inside a null. Stamping a
// profile target seeds the revision only on insert.
func buildUpdate(t store.Target, u store.Update) (bson.D, error) {
	var set, unset, inc, onInsert bson.D
	for _, op := range u.Writes.Ops() {
		if op.Unset {
			unset = append(unset, bson.E{Key: op.Key.Path(), Value: ""})
			continue
		}
		v, err := bsonValue(op.Value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", op.Key, err)
		}
		set = append(set, bson.E{Key: op.Key.Path(), Value: v})
	}

	switch {
	case u.Stamp != nil:
		rev := int64(u.Stamp.Rev)
		if u.IncrementRev {
			rev++
		}
		if t.IsLegacy() {
			set = append(set, bson.E{Key: fieldProfile, Value: profileDoc{ID: int64(u.Stamp.ID), Name: u.Stamp.Name, Rev: rev}})
		} else {
			set = append(set, bson.E{Key: fieldProfileName, Value: u.Stamp.Name})
			if u.IncrementRev {
				inc = append(inc, bson.E{Key: fieldProfileRev, Value: int64(1)})
			} else {
				onInsert = append(onInsert, bson.E{Key: fieldProfileRev, Value: rev})
			}
		}
	case !t.IsLegacy():
		if u.Name != nil {
			set = append(set, bson.E{Key: fieldProfileName, Value: *u.Name})
		}
		if u.IncrementRev {
			inc = append(inc, bson.E{Key: fieldProfileRev, Value: int64(1)})
		}
	}

	var update bson.D
	if len(set) > 0 {
		update = append(update, bson.E{Key: "$set", Value: set})
	}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}
	if len(inc) > 0 {
		update = append(update, bson.E{Key: "$inc", Value: inc})
	}
	if len(onInsert) > 0 {
		update = append(update, bson.E{Key: "$setOnInsert", Value: onInsert})
	}
	if len(update) == 0 {
		update = bson.D{{Key: "$set", Value: bson.D{{Key: fieldUserID, Value: int32(t.UserID)}}}}
	}
	return update, nil
}

// bsonValue converts a stored leaf to its BSON form. Strings are stored as
// BSON strings; anything else goes through relaxed extended JSON.
func bsonValue(v model.Value) (any, error) {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, nil
	}
	var wrapper bson.D
	if err := bson.UnmarshalExtJSON([]byte(`{"v":`+string(v)+`}`), false, &wrapper); err != nil {
		return nil, err
	}
	if len(wrapper) != 1 {
		return nil, fmt.Errorf("unexpected value %s", v)
	}
	return wrapper[0].Value, nil
}

// leafValue is the inverse of bsonValue.
func leafValue(rv bson.RawValue) (model.Value, error) {
	switch rv.Type {
	case bson.TypeString:
		return model.StringValue(rv.StringValue()), nil
	case bson.TypeNull, bson.TypeUndefined:
		return model.Value("null"), nil
	}
	b, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: rv}}, false, false)
	if err != nil {
		return nil, err
	}
	var wrapper struct {
		V json.RawMessage `json:"v"`
	}
	if err := json.Unmarshal(b, &wrapper); err != nil {
		return nil, err
	}
	return model.Value(wrapper.V), nil
}

func userIDOf(rv bson.RawValue) (model.UserID, bool) {
	if n, ok := rv.Int32OK(); ok {
		return model.UserID(n), true
	}
	if n, ok := rv.Int64OK(); ok {
		return model.UserID(n), true
	}
	return 0, false
}

// documentOf converts a raw config document. Reserved top-level fields
// other than the metadata, and members that are not subdocuments, are not
// settings groups and are skipped.
func documentOf(raw bson.Raw) (*model.Document, error) {
	elems, err := raw.Elements()
	if err != nil {
		return nil, err
	}
	d := &model.Document{Groups: model.Groups{}}
	for _, el := range elems {
		key, rv := el.Key(), el.Value()
		switch {
		case key == fieldUserID:
			uid, ok := userIDOf(rv)
			if !ok {
				return nil, fmt.Errorf("%s has type %s", fieldUserID, rv.Type)
			}
			d.UserID = uid
		case key == fieldProfile:
			if rv.Type != bson.TypeEmbeddedDocument {
				continue
			}
			var p profileDoc
			if err := rv.Unmarshal(&p); err != nil {
				return nil, fmt.Errorf("decode %s: %w", fieldProfile, err)
			}
			d.Profile = p.model()
		case model.IsReservedGroup(key):
		case rv.Type == bson.TypeEmbeddedDocument:
			leaves, err := rv.Document().Elements()
			if err != nil {
				return nil, err
			}
			grp := make(map[string]model.Value, len(leaves))
			for _, leaf := range leaves {
				v, err := leafValue(leaf.Value())
				if err != nil {
					return nil, fmt.Errorf("decode %s.%s: %w", key, leaf.Key(), err)
				}
				grp[leaf.Key()] = v
			}
			d.Groups[key] = grp
		}
	}
	return d, nil
}
