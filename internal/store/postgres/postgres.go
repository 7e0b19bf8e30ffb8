// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/runelite/api.runelite.net/internal/model"
	"github.com/runelite/api.runelite.net/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
// Each document is one row of the config table; the groups live in a
// JSONB column and the profile metadata in dedicated columns.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) ListProfiles(ctx context.Context, userID model.UserID) ([]*model.Profile, error) {
	return queryListProfiles(ctx, s.db, userID)
}

func (s *PostgresStore) FindDocument(ctx context.Context, t store.Target) (*model.Document, error) {
	d, err := queryFindDocument(ctx, s.db, t)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return d, err
}

func (s *PostgresStore) FindAggregate(ctx context.Context, userID model.UserID) ([]*model.Document, error) {
	return queryFindAggregate(ctx, s.db, userID)
}

func (s *PostgresStore) HasProfiles(ctx context.Context, userID model.UserID) (bool, error) {
	return queryHasProfiles(ctx, s.db, userID)
}

// Apply writes u in a single statement for profile targets. The legacy
// document has no conflict target an INSERT can update through, so its
// update and upsert run as a short UPDATE / INSERT / UPDATE transaction.
func (s *PostgresStore) Apply(ctx context.Context, t store.Target, u store.Update, opts store.ApplyOptions) (store.ApplyResult, error) {
	var (
		res store.ApplyResult
		err error
	)
	if t.IsLegacy() {
		err = s.runInTransaction(ctx, func(tx executor) error {
			res, err = queryApplyLegacy(ctx, tx, t.UserID, u, opts)
			return err
		})
	} else {
		res, err = queryApplyProfile(ctx, s.db, t.UserID, *t.Profile, u, opts)
	}
	if isUniqueViolation(err) {
		return store.ApplyResult{}, store.ErrConflict
	}
	return res, err
}

func (s *PostgresStore) Delete(ctx context.Context, t store.Target) (bool, error) {
	return queryDelete(ctx, s.db, t)
}

func (s *PostgresStore) EnsureIndexes(ctx context.Context) error {
	return ensureIndexes(ctx, s.db)
}

func (s *PostgresStore) Export(ctx context.Context, fn func(*model.Document) error) error {
	return queryExport(ctx, s.db, fn)
}

// runInTransaction begins a database transaction, calls fn, and commits on
// success or rolls back on error.
func (s *PostgresStore) runInTransaction(ctx context.Context, fn func(tx executor) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
