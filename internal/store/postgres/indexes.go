package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// staleUniqueIndexes lists the single-column unique indexes on
// config.user_id left behind by the single-profile schema, together with
// the constraint that owns each of them, if any.
const staleUniqueIndexes = `
	SELECT i.relname, con.conname
	FROM pg_index x
	JOIN pg_class i ON i.oid = x.indexrelid
	JOIN pg_class t ON t.oid = x.indrelid
	JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = x.indkey[0]
	LEFT JOIN pg_constraint con ON con.conindid = x.indexrelid
	WHERE t.relname = 'config'
	  AND x.indisunique
	  AND x.indnatts = 1
	  AND a.attname = 'user_id'`

// ensureIndexes drops every user-only uniqueness constraint and makes sure
// the (user_id, profile_id) unique index exists.
func ensureIndexes(ctx context.Context, db executor) error {
	rows, err := db.QueryContext(ctx, staleUniqueIndexes)
	if err != nil {
		return fmt.Errorf("list indexes: %w", err)
	}
	var drops []string
	for rows.Next() {
		var (
			index      string
			constraint sql.NullString
		)
		if err := rows.Scan(&index, &constraint); err != nil {
			rows.Close()
			return fmt.Errorf("scan index: %w", err)
		}
		if constraint.Valid {
			drops = append(drops, "ALTER TABLE config DROP CONSTRAINT IF EXISTS "+pq.QuoteIdentifier(constraint.String))
		} else {
			drops = append(drops, "DROP INDEX IF EXISTS "+pq.QuoteIdentifier(index))
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, stmt := range drops {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("drop stale index: %w", err)
		}
	}

	_, err = db.ExecContext(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS config_user_profile_idx
		ON config (user_id, profile_id) NULLS NOT DISTINCT`)
	if err != nil {
		return fmt.Errorf("create profile index: %w", err)
	}
	return nil
}
