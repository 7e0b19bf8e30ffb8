package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/runelite/api.runelite.net/internal/model"
	"github.com/runelite/api.runelite.net/internal/store"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

// docRowColumns is the column list for scanDocument results.
var docRowColumns = []string{"user_id", "profile_id", "profile_name", "profile_rev", "data"}

func validated(t *testing.T, p model.Patch) model.WriteSet {
	t.Helper()
	ws, failures := p.Validate()
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %v", failures)
	}
	return ws
}

func TestListProfiles(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	mock.ExpectQuery(`SELECT profile_id, profile_name, profile_rev\s+FROM config WHERE user_id = \$1`).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"profile_id", "profile_name", "profile_rev"}).
			AddRow(nil, nil, nil).
			AddRow(0, "default", 3).
			AddRow(-1, "$rsprofile", 0))

	profiles, err := s.ListProfiles(context.Background(), 42)
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	if len(profiles) != 3 {
		t.Fatalf("got %d profiles, want 3", len(profiles))
	}
	if profiles[0] != nil {
		t.Errorf("legacy row should be nil, got %+v", profiles[0])
	}
	if *profiles[1] != (model.Profile{ID: 0, Name: "default", Rev: 3}) {
		t.Errorf("profiles[1] = %+v", profiles[1])
	}
	if profiles[2].ID != model.ProfileRsProfile {
		t.Errorf("profiles[2] = %+v", profiles[2])
	}
}

func TestFindDocumentNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	mock.ExpectQuery(`FROM config WHERE user_id = \$1 AND profile_id IS NULL`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(docRowColumns))

	_, err := s.FindDocument(context.Background(), store.LegacyTarget(7))
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindDocumentDecodesGroups(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	mock.ExpectQuery(`FROM config WHERE user_id = \$1 AND profile_id = \$2`).
		WithArgs(42, 5).
		WillReturnRows(sqlmock.NewRows(docRowColumns).
			AddRow(42, 5, "pvm", 9, []byte(`{"combat":{"style":"def","obj":{"a":1}},"stray":5}`)))

	d, err := s.FindDocument(context.Background(), store.ProfileTarget(42, 5))
	if err != nil {
		t.Fatalf("FindDocument: %v", err)
	}
	if d.Profile == nil || d.Profile.Name != "pvm" || d.Profile.Rev != 9 {
		t.Fatalf("Profile = %+v", d.Profile)
	}
	flat := d.Groups.Flatten()
	if flat["combat.style"] != "def" || flat["combat.obj"] != `{"a":1}` {
		t.Fatalf("Flatten = %v", flat)
	}
	if _, ok := d.Groups["stray"]; ok {
		t.Fatal("non-object member should be skipped")
	}
}

func TestApplyProfileUpsert(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	ws := validated(t, model.Patch{
		Edit:  model.Edits{{Key: "combat.style", Value: "def"}},
		Unset: []string{"bank.tab"},
	})

	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (user_id, profile_id) DO UPDATE SET `+
		`data = config_merge(c.data, $5::jsonb) #- $6::text[], `+
		`profile_rev = COALESCE(c.profile_rev, 0) + 1`)).
		WithArgs(42, 5, nil, 1, `{"combat":{"style":"def"}}`, pq.Array([]string{"bank", "tab"})).
		WillReturnRows(sqlmock.NewRows([]string{"profile_rev", "inserted"}).AddRow(1, true))

	res, err := s.Apply(context.Background(), store.ProfileTarget(42, 5),
		store.Update{Writes: ws, IncrementRev: true},
		store.ApplyOptions{Upsert: true, ReturnRev: true})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !res.Upserted || res.Matched != 0 {
		t.Fatalf("result = %+v", res)
	}
	if res.Rev == nil || *res.Rev != 1 {
		t.Fatalf("Rev = %v", res.Rev)
	}
}

func TestApplyProfileRenameWithoutUpsert(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	name := "skilling"
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE config AS c SET data = c.data, profile_name = $3`)).
		WithArgs(42, 5, name).
		WillReturnRows(sqlmock.NewRows([]string{"profile_rev", "modified"}))

	res, err := s.Apply(context.Background(), store.ProfileTarget(42, 5),
		store.Update{Name: &name}, store.ApplyOptions{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Matched != 0 || res.Modified != 0 {
		t.Fatalf("expected no match, got %+v", res)
	}
}

func TestApplyRenameToCurrentNameMatchesWithoutModifying(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	name := "skilling"
	mock.ExpectQuery(regexp.QuoteMeta(`IS DISTINCT FROM (prev.data, prev.profile_id, prev.profile_name, prev.profile_rev)`)).
		WithArgs(42, 5, name).
		WillReturnRows(sqlmock.NewRows([]string{"profile_rev", "modified"}).AddRow(3, false))

	res, err := s.Apply(context.Background(), store.ProfileTarget(42, 5),
		store.Update{Name: &name}, store.ApplyOptions{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Matched != 1 || res.Modified != 0 {
		t.Fatalf("result = %+v", res)
	}
}

func TestApplyStampKeepsStoredRev(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (user_id, profile_id) DO UPDATE SET `+
		`data = c.data, profile_name = $5, profile_rev = COALESCE(c.profile_rev, $6)`)).
		WithArgs(7, -1, "$rsprofile", 0, "$rsprofile", 0).
		WillReturnRows(sqlmock.NewRows([]string{"profile_rev", "inserted"}).AddRow(2, false))

	stamp := model.RsProfile
	res, err := s.Apply(context.Background(), store.ProfileTarget(7, model.ProfileRsProfile),
		store.Update{Stamp: &stamp}, store.ApplyOptions{Upsert: true, ReturnRev: true})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Rev == nil || *res.Rev != 2 {
		t.Fatalf("Rev = %v", res.Rev)
	}
}

func TestApplyLegacyStampConflict(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE config AS c SET data = c.data, profile_id = $2, profile_name = $3, profile_rev = COALESCE(c.profile_rev, $4)`)).
		WithArgs(7, 0, "default", 0).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	stamp := model.DefaultProfile
	_, err := s.Apply(context.Background(), store.LegacyTarget(7),
		store.Update{Stamp: &stamp}, store.ApplyOptions{Upsert: true})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestApplyLegacyUpsertInserts(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	ws := validated(t, model.Patch{Edit: model.Edits{{Key: "combat.style", Value: "def"}}})

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE config AS c SET .+ profile_id IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"profile_rev", "modified"}))
	mock.ExpectQuery(`INSERT INTO config .+ ON CONFLICT DO NOTHING`).
		WithArgs(7, nil, nil, nil, `{"combat":{"style":"def"}}`).
		WillReturnRows(sqlmock.NewRows([]string{"profile_rev"}).AddRow(nil))
	mock.ExpectCommit()

	res, err := s.Apply(context.Background(), store.LegacyTarget(7),
		store.Update{Writes: ws}, store.ApplyOptions{Upsert: true})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !res.Upserted || res.Rev != nil {
		t.Fatalf("result = %+v", res)
	}
}

func TestApplyLegacyUpsertLosesRace(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE config AS c SET .+ profile_id IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"profile_rev", "modified"}))
	mock.ExpectQuery(`INSERT INTO config .+ ON CONFLICT DO NOTHING`).
		WithArgs(7, 0, "default", 0).
		WillReturnRows(sqlmock.NewRows([]string{"profile_rev"}))
	mock.ExpectQuery(`UPDATE config AS c SET .+ profile_id IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"profile_rev", "modified"}))
	mock.ExpectCommit()

	stamp := model.DefaultProfile
	res, err := s.Apply(context.Background(), store.LegacyTarget(7),
		store.Update{Stamp: &stamp}, store.ApplyOptions{Upsert: true})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Matched != 0 || res.Upserted {
		t.Fatalf("result = %+v", res)
	}
}

func TestDelete(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	mock.ExpectExec(`DELETE FROM config WHERE user_id = \$1 AND profile_id = \$2`).
		WithArgs(7, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM config WHERE user_id = \$1 AND profile_id = \$2`).
		WithArgs(7, 3).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := s.Delete(context.Background(), store.ProfileTarget(7, 3))
	if err != nil || !ok {
		t.Fatalf("Delete = %v, %v", ok, err)
	}
	ok, err = s.Delete(context.Background(), store.ProfileTarget(7, 3))
	if err != nil || ok {
		t.Fatalf("second Delete = %v, %v", ok, err)
	}
}

func TestEnsureIndexesDropsUserOnlyIndexes(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	mock.ExpectQuery(`FROM pg_index`).
		WillReturnRows(sqlmock.NewRows([]string{"relname", "conname"}).
			AddRow("config_user_id_key", "config_user_id_key").
			AddRow("config_user_idx", nil))
	mock.ExpectExec(regexp.QuoteMeta(`ALTER TABLE config DROP CONSTRAINT IF EXISTS "config_user_id_key"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DROP INDEX IF EXISTS "config_user_idx"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE UNIQUE INDEX IF NOT EXISTS config_user_profile_idx`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.EnsureIndexes(context.Background()); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}
}

func TestExport(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	mock.ExpectQuery(`SELECT .+ FROM config ORDER BY id`).
		WillReturnRows(sqlmock.NewRows(docRowColumns).
			AddRow(1, nil, nil, nil, []byte(`{}`)).
			AddRow(2, 0, "default", 4, []byte(`{"a":{"b":"c"}}`)))

	var users []model.UserID
	err := s.Export(context.Background(), func(d *model.Document) error {
		users = append(users, d.UserID)
		return nil
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(users) != 2 || users[0] != 1 || users[1] != 2 {
		t.Fatalf("users = %v", users)
	}
}

func TestSplitWrites(t *testing.T) {
	ws := validated(t, model.Patch{
		Edit:  model.Edits{{Key: "b.x", Value: "1"}, {Key: "a.y.z", Value: "2"}, {Key: "a.gone", Value: ""}},
		Unset: []string{"c.w"},
	})
	patch, unsets, err := splitWrites(ws)
	if err != nil {
		t.Fatalf("splitWrites: %v", err)
	}
	if patch != `{"a":{"y:z":"2"},"b":{"x":"1"}}` {
		t.Errorf("patch = %s", patch)
	}
	if len(unsets) != 2 || unsets[0][0] != "a" || unsets[0][1] != "gone" || unsets[1][0] != "c" {
		t.Errorf("unsets = %v", unsets)
	}
}

func TestDecodeGroupsEmpty(t *testing.T) {
	for _, in := range []string{"", "{}", `{"g":null}`} {
		g, err := decodeGroups([]byte(in))
		if err != nil {
			t.Fatalf("decodeGroups(%q): %v", in, err)
		}
		if g == nil || g.Len() != 0 {
			t.Errorf("decodeGroups(%q) = %v", in, g)
		}
	}
}
