package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/runelite/api.runelite.net/internal/model"
	"github.com/runelite/api.runelite.net/internal/store"
)

// docColumns is the column list used for SELECT statements on the config table.
const docColumns = `user_id, profile_id, profile_name, profile_rev, data`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// argList accumulates positional query arguments.
type argList []any

func (a *argList) add(v any) string {
	*a = append(*a, v)
	return fmt.Sprintf("$%d", len(*a))
}

// targetWhere renders the predicate selecting t's row.
func targetWhere(args *argList, t store.Target) string {
	where := "user_id = " + args.add(int32(t.UserID))
	if t.IsLegacy() {
		return where + " AND profile_id IS NULL"
	}
	return where + " AND profile_id = " + args.add(int64(*t.Profile))
}

func queryListProfiles(ctx context.Context, db executor, userID model.UserID) ([]*model.Profile, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT profile_id, profile_name, profile_rev
		FROM config WHERE user_id = $1 ORDER BY id`, int32(userID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func queryFindDocument(ctx context.Context, db executor, t store.Target) (*model.Document, error) {
	var args argList
	where := targetWhere(&args, t)
	row := db.QueryRowContext(ctx, `SELECT `+docColumns+` FROM config WHERE `+where, args...)
	return scanDocument(row)
}

func queryFindAggregate(ctx context.Context, db executor, userID model.UserID) ([]*model.Document, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+docColumns+` FROM config
		WHERE user_id = $1 AND (profile_id IS NULL OR profile_id IN (0, -1))
		ORDER BY id`, int32(userID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func queryHasProfiles(ctx context.Context, db executor, userID model.UserID) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM config WHERE user_id = $1 AND profile_id IS NOT NULL)`,
		int32(userID),
	).Scan(&exists)
	return exists, err
}

func queryDelete(ctx context.Context, db executor, t store.Target) (bool, error) {
	var args argList
	where := targetWhere(&args, t)
	res, err := db.ExecContext(ctx, `DELETE FROM config WHERE `+where, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func queryExport(ctx context.Context, db executor, fn func(*model.Document) error) error {
	rows, err := db.QueryContext(ctx, `SELECT `+docColumns+` FROM config ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return err
		}
		if err := fn(d); err != nil {
			return err
		}
	}
	return rows.Err()
}

// splitWrites renders the set operations of ws as a two-level JSON patch
// for config_merge and collects the paths to remove.
func splitWrites(ws model.WriteSet) (patch string, unsets [][]string, err error) {
	sets := make(map[string]map[string]json.RawMessage)
	for _, op := range ws.Ops() {
		if op.Unset {
			unsets = append(unsets, []string{op.Key.Group, op.Key.Key})
			continue
		}
		grp, ok := sets[op.Key.Group]
		if !ok {
			grp = make(map[string]json.RawMessage)
			sets[op.Key.Group] = grp
		}
		grp[op.Key.Key] = json.RawMessage(op.Value)
	}
	if len(sets) == 0 {
		return "", unsets, nil
	}
	b, err := json.Marshal(sets)
	if err != nil {
		return "", nil, fmt.Errorf("encode patch: %w", err)
	}
	return string(b), unsets, nil
}

// setClauses renders the SET list of an update. It returns the placeholder
// of the JSON patch, or "" when u sets no leaves. Name and IncrementRev
// only apply to rows that carry profile metadata.
func setClauses(args *argList, u store.Update, legacy bool) ([]string, string, error) {
	patch, unsets, err := splitWrites(u.Writes)
	if err != nil {
		return nil, "", err
	}

	var patchArg string
	data := "c.data"
	if patch != "" {
		patchArg = args.add(patch)
		data = "config_merge(c.data, " + patchArg + "::jsonb)"
	}
	for _, path := range unsets {
		data += " #- " + args.add(pq.Array(path)) + "::text[]"
	}
	sets := []string{"data = " + data}

	switch {
	case u.Stamp != nil:
		_, name, rev := insertMeta(nil, u)
		if legacy {
			sets = append(sets, "profile_id = "+args.add(int64(u.Stamp.ID)))
		}
		cur := "c.profile_rev"
		if u.IncrementRev {
			cur += " + 1"
		}
		sets = append(sets,
			"profile_name = "+args.add(name),
			"profile_rev = COALESCE("+cur+", "+args.add(rev)+")",
		)
	case !legacy:
		if u.Name != nil {
			sets = append(sets, "profile_name = "+args.add(*u.Name))
		}
		if u.IncrementRev {
			sets = append(sets, "profile_rev = COALESCE(c.profile_rev, 0) + 1")
		}
	}
	return sets, patchArg, nil
}

// insertMeta computes the metadata columns of a freshly inserted row.
func insertMeta(id *model.ProfileID, u store.Update) (pid, name, rev any) {
	var inc int64
	if u.IncrementRev {
		inc = 1
	}
	switch {
	case u.Stamp != nil:
		return int64(u.Stamp.ID), u.Stamp.Name, int64(u.Stamp.Rev) + inc
	case id != nil:
		if u.Name != nil {
			name = *u.Name
		}
		return int64(*id), name, inc
	default:
		return nil, nil, nil
	}
}

func insertData(patchArg string) string {
	if patchArg == "" {
		return "'{}'::jsonb"
	}
	return patchArg + "::jsonb"
}

func applyResult(matched, modified, inserted bool, rev sql.NullInt64, opts store.ApplyOptions) store.ApplyResult {
	var res store.ApplyResult
	switch {
	case inserted:
		res.Upserted = true
	case matched:
		res.Matched = 1
		if modified {
			res.Modified = 1
		}
	default:
		return res
	}
	if opts.ReturnRev && rev.Valid {
		r := uint64(rev.Int64)
		res.Rev = &r
	}
	return res
}

// queryApplyProfile applies u to a profile row in one statement: an
// INSERT ... ON CONFLICT upsert, or a plain UPDATE.
func queryApplyProfile(ctx context.Context, db executor, userID model.UserID, id model.ProfileID, u store.Update, opts store.ApplyOptions) (store.ApplyResult, error) {
	var args argList
	uid := args.add(int32(userID))
	pid := args.add(int64(id))

	if !opts.Upsert {
		sets, _, err := setClauses(&args, u, false)
		if err != nil {
			return store.ApplyResult{}, err
		}
		var (
			rev      sql.NullInt64
			modified bool
		)
		err = db.QueryRowContext(ctx,
			updateReturning(sets, `c.user_id = `+uid+` AND c.profile_id = `+pid), args...,
		).Scan(&rev, &modified)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ApplyResult{}, nil
		}
		if err != nil {
			return store.ApplyResult{}, err
		}
		return applyResult(true, modified, false, rev, opts), nil
	}

	_, name, insRev := insertMeta(&id, u)
	nameArg := args.add(name)
	revArg := args.add(insRev)
	sets, patchArg, err := setClauses(&args, u, false)
	if err != nil {
		return store.ApplyResult{}, err
	}

	var (
		rev      sql.NullInt64
		inserted bool
	)
	err = db.QueryRowContext(ctx, `
		INSERT INTO config AS c (user_id, profile_id, profile_name, profile_rev, data)
		VALUES (`+uid+`, `+pid+`, `+nameArg+`, `+revArg+`, `+insertData(patchArg)+`)
		ON CONFLICT (user_id, profile_id) DO UPDATE SET `+strings.Join(sets, ", ")+`
		RETURNING c.profile_rev, (xmax = 0) AS inserted`, args...,
	).Scan(&rev, &inserted)
	if err != nil {
		return store.ApplyResult{}, err
	}
	// The conflict branch always rewrites the revision or the data, so a
	// matched upsert is reported as modified.
	return applyResult(!inserted, !inserted, inserted, rev, opts), nil
}

// queryApplyLegacy applies u to the row without profile metadata. With
// Upsert, a missing row is inserted; when that insert loses to a
// concurrent writer the update is retried against whatever now exists.
func queryApplyLegacy(ctx context.Context, db executor, userID model.UserID, u store.Update, opts store.ApplyOptions) (store.ApplyResult, error) {
	update := func() (matched, modified bool, rev sql.NullInt64, err error) {
		var args argList
		uid := args.add(int32(userID))
		sets, _, err := setClauses(&args, u, true)
		if err != nil {
			return false, false, rev, err
		}
		err = db.QueryRowContext(ctx,
			updateReturning(sets, `c.user_id = `+uid+` AND c.profile_id IS NULL`), args...,
		).Scan(&rev, &modified)
		if errors.Is(err, sql.ErrNoRows) {
			return false, false, rev, nil
		}
		return err == nil, modified, rev, err
	}

	matched, modified, rev, err := update()
	if err != nil || matched || !opts.Upsert {
		return applyResult(matched, modified, false, rev, opts), err
	}

	patch, _, err := splitWrites(u.Writes)
	if err != nil {
		return store.ApplyResult{}, err
	}
	var args argList
	uid := args.add(int32(userID))
	pid, name, insRev := insertMeta(nil, u)
	pidArg, nameArg, revArg := args.add(pid), args.add(name), args.add(insRev)
	dataArg := ""
	if patch != "" {
		dataArg = args.add(patch)
	}
	err = db.QueryRowContext(ctx, `
		INSERT INTO config (user_id, profile_id, profile_name, profile_rev, data)
		VALUES (`+uid+`, `+pidArg+`, `+nameArg+`, `+revArg+`, `+insertData(dataArg)+`)
		ON CONFLICT DO NOTHING
		RETURNING profile_rev`, args...,
	).Scan(&rev)
	switch {
	case err == nil:
		return applyResult(false, false, true, rev, opts), nil
	case !errors.Is(err, sql.ErrNoRows):
		return store.ApplyResult{}, err
	}

	matched, modified, rev, err = update()
	return applyResult(matched, modified, false, rev, opts), err
}

// updateReturning renders an UPDATE of the row selected by where. The row
// is read and locked first so RETURNING can compare the stored state
// before and after the write.
func updateReturning(sets []string, where string) string {
	return `
		UPDATE config AS c SET ` + strings.Join(sets, ", ") + `
		FROM (
			SELECT c.data, c.profile_id, c.profile_name, c.profile_rev
			FROM config AS c WHERE ` + where + ` FOR UPDATE
		) AS prev
		WHERE ` + where + `
		RETURNING c.profile_rev,
			(c.data, c.profile_id, c.profile_name, c.profile_rev)
				IS DISTINCT FROM (prev.data, prev.profile_id, prev.profile_name, prev.profile_rev)`
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
