// Package memory implements store.Store in process memory. It backs tests
// and the single-node "memory" deployment.
package memory

import (
	"context"
	"reflect"
	"sync"

	"github.com/runelite/api.runelite.net/internal/model"
	"github.com/runelite/api.runelite.net/internal/store"
)

// Store keeps every document in a slice guarded by a RWMutex. Documents are
// copied on the way in and out so callers never share storage with it.
type Store struct {
	mu   sync.RWMutex
	docs []*model.Document
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{}
}

func matches(d *model.Document, t store.Target) bool {
	if d.UserID != t.UserID {
		return false
	}
	if t.IsLegacy() {
		return d.IsLegacy()
	}
	return d.Profile != nil && d.Profile.ID == *t.Profile
}

// find returns the index of the document selected by t, or -1.
func (s *Store) find(t store.Target) int {
	for i, d := range s.docs {
		if matches(d, t) {
			return i
		}
	}
	return -1
}

// collides reports whether d would share its (user, profile id) with a
// document other than the one at index skip.
func (s *Store) collides(d *model.Document, skip int) bool {
	t := store.Target{UserID: d.UserID}
	if d.Profile != nil {
		id := d.Profile.ID
		t.Profile = &id
	}
	for i, other := range s.docs {
		if i != skip && matches(other, t) {
			return true
		}
	}
	return false
}

func cloneDoc(d *model.Document) *model.Document {
	out := &model.Document{UserID: d.UserID, Groups: d.Groups.Clone()}
	if d.Profile != nil {
		p := *d.Profile
		out.Profile = &p
	}
	return out
}

func (s *Store) ListProfiles(_ context.Context, userID model.UserID) ([]*model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Profile
	for _, d := range s.docs {
		if d.UserID != userID {
			continue
		}
		if d.Profile == nil {
			out = append(out, nil)
			continue
		}
		p := *d.Profile
		out = append(out, &p)
	}
	return out, nil
}

func (s *Store) FindDocument(_ context.Context, t store.Target) (*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.find(t)
	if i < 0 {
		return nil, store.ErrNotFound
	}
	return cloneDoc(s.docs[i]), nil
}

func (s *Store) FindAggregate(_ context.Context, userID model.UserID) ([]*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Document
	for _, d := range s.docs {
		if d.UserID != userID {
			continue
		}
		if d.IsLegacy() || d.Profile.ID == model.ProfileDefault || d.Profile.ID == model.ProfileRsProfile {
			out = append(out, cloneDoc(d))
		}
	}
	return out, nil
}

func (s *Store) HasProfiles(_ context.Context, userID model.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.docs {
		if d.UserID == userID && d.Profile != nil {
			return true, nil
		}
	}
	return false, nil
}

// applyUpdate mutates d in the order the database backends evaluate an
// update: metadata stamp, leaf writes, rename, then revision increment. A
// stamp keeps the revision d already has.
func applyUpdate(d *model.Document, u store.Update) {
	if u.Stamp != nil {
		p := *u.Stamp
		if !d.IsLegacy() {
			p.Rev = d.Profile.Rev
		}
		d.Profile = &p
	}
	for _, op := range u.Writes.Ops() {
		if op.Unset {
			d.Groups.Unset(op.Key)
			continue
		}
		d.Groups.Set(op.Key, append(model.Value(nil), op.Value...))
	}
	if d.Profile == nil {
		return
	}
	if u.Name != nil {
		d.Profile.Name = *u.Name
	}
	if u.IncrementRev {
		d.Profile.Rev++
	}
}

func (s *Store) Apply(_ context.Context, t store.Target, u store.Update, opts store.ApplyOptions) (store.ApplyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		res store.ApplyResult
		doc *model.Document
	)
	if i := s.find(t); i >= 0 {
		doc = cloneDoc(s.docs[i])
		applyUpdate(doc, u)
		if s.collides(doc, i) {
			return res, store.ErrConflict
		}
		res.Matched = 1
		if !reflect.DeepEqual(s.docs[i], doc) {
			res.Modified = 1
		}
		s.docs[i] = doc
	} else {
		if !opts.Upsert {
			return res, nil
		}
		doc = &model.Document{UserID: t.UserID, Groups: model.Groups{}}
		if !t.IsLegacy() && u.Stamp == nil {
			doc.Profile = &model.Profile{ID: *t.Profile}
		}
		applyUpdate(doc, u)
		if s.collides(doc, -1) {
			// Lost to a conflicting document; the retried update of t
			// matches nothing.
			return res, nil
		}
		s.docs = append(s.docs, doc)
		res.Upserted = true
	}

	if opts.ReturnRev && doc.Profile != nil {
		rev := doc.Profile.Rev
		res.Rev = &rev
	}
	return res, nil
}

func (s *Store) Delete(_ context.Context, t store.Target) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(t)
	if i < 0 {
		return false, nil
	}
	s.docs = append(s.docs[:i], s.docs[i+1:]...)
	return true, nil
}

// EnsureIndexes is a no-op; Apply enforces (user, profile id) uniqueness.
func (s *Store) EnsureIndexes(context.Context) error {
	return nil
}

func (s *Store) Export(ctx context.Context, fn func(*model.Document) error) error {
	s.mu.RLock()
	snapshot := make([]*model.Document, len(s.docs))
	for i, d := range s.docs {
		snapshot[i] = cloneDoc(d)
	}
	s.mu.RUnlock()

	for _, d := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

// Seed inserts d verbatim, bypassing Apply. It is used to load documents
// written by the single-profile schema.
func (s *Store) Seed(d *model.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneDoc(d)
	if cp.Groups == nil {
		cp.Groups = model.Groups{}
	}
	s.docs = append(s.docs, cp)
}

func (s *Store) Close() error {
	return nil
}
