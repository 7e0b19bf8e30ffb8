package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/runelite/api.runelite.net/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanProfile scans profile_id, profile_name, profile_rev. A NULL
// profile_id yields a nil profile.
func scanProfile(row scannable) (*model.Profile, error) {
	var (
		id   sql.NullInt64
		name sql.NullString
		rev  sql.NullInt64
	)
	if err := row.Scan(&id, &name, &rev); err != nil {
		return nil, err
	}
	return profileOf(id, name, rev), nil
}

func profileOf(id sql.NullInt64, name sql.NullString, rev sql.NullInt64) *model.Profile {
	if !id.Valid {
		return nil
	}
	return &model.Profile{
		ID:   model.ProfileID(id.Int64),
		Name: name.String,
		Rev:  uint64(rev.Int64),
	}
}

// scanDocument scans a single row into a model.Document.
// The row must contain columns in the order defined by docColumns.
func scanDocument(row scannable) (*model.Document, error) {
	var (
		d    model.Document
		uid  int32
		id   sql.NullInt64
		name sql.NullString
		rev  sql.NullInt64
		data []byte
	)
	if err := row.Scan(&uid, &id, &name, &rev, &data); err != nil {
		return nil, err
	}
	groups, err := decodeGroups(data)
	if err != nil {
		return nil, fmt.Errorf("decode config of user %d: %w", uid, err)
	}
	d.UserID = model.UserID(uid)
	d.Profile = profileOf(id, name, rev)
	d.Groups = groups
	return &d, nil
}

// scanDocuments scans multiple rows into a slice of model.Document pointers.
func scanDocuments(rows *sql.Rows) ([]*model.Document, error) {
	var docs []*model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// decodeGroups unpacks the data column. Top-level members that are not
// objects are not settings groups and are skipped.
func decodeGroups(data []byte) (model.Groups, error) {
	groups := model.Groups{}
	if len(data) == 0 {
		return groups, nil
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, err
	}
	for name, raw := range top {
		var grp map[string]model.Value
		if err := json.Unmarshal(raw, &grp); err != nil || grp == nil {
			continue
		}
		groups[name] = grp
	}
	return groups, nil
}
