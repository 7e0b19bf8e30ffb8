// Package mongo implements the store.Store interface backed by MongoDB.
// Documents keep the layout of the hosted config collection: the owner in
// _userId, profile metadata in _profile, and one subdocument per group.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/runelite/api.runelite.net/internal/model"
	"github.com/runelite/api.runelite.net/internal/store"
)

// CollectionName is the collection holding configuration documents.
const CollectionName = "config"

// profileIndexName names the (user, profile id) unique index.
const profileIndexName = "userId_profileId"

// MongoStore implements store.Store using MongoDB.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Compile-time check that MongoStore implements store.Store.
var _ store.Store = (*MongoStore)(nil)

// New connects to the deployment at uri and uses the config collection of
// database.
func New(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(CollectionName),
	}, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *MongoStore) ListProfiles(ctx context.Context, userID model.UserID) ([]*model.Profile, error) {
	opts := options.Find().SetProjection(bson.D{{Key: fieldID, Value: 0}, {Key: fieldProfile, Value: 1}})
	cursor, err := s.coll.Find(ctx, bson.D{{Key: fieldUserID, Value: int32(userID)}}, opts)
	if err != nil {
		return nil, err
	}
	var docs []struct {
		Profile *profileDoc `bson:"_profile"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*model.Profile, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Profile.model())
	}
	return out, nil
}

func (s *MongoStore) FindDocument(ctx context.Context, t store.Target) (*model.Document, error) {
	raw, err := s.coll.FindOne(ctx, targetFilter(t)).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return documentOf(raw)
}

func (s *MongoStore) FindAggregate(ctx context.Context, userID model.UserID) ([]*model.Document, error) {
	filter := bson.D{
		{Key: fieldUserID, Value: int32(userID)},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: fieldProfile, Value: nil}},
			bson.D{{Key: fieldProfileID, Value: bson.D{{Key: "$in", Value: bson.A{
				int64(model.ProfileDefault), int64(model.ProfileRsProfile),
			}}}}},
		}},
	}
	cursor, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*model.Document
	for cursor.Next(ctx) {
		d, err := documentOf(cursor.Current)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, cursor.Err()
}

func (s *MongoStore) HasProfiles(ctx context.Context, userID model.UserID) (bool, error) {
	n, err := s.coll.CountDocuments(ctx,
		bson.D{{Key: fieldUserID, Value: int32(userID)}, {Key: fieldProfile, Value: bson.D{{Key: "$ne", Value: nil}}}},
		options.Count().SetLimit(1))
	return n > 0, err
}

// Apply runs u as a single update. With ReturnRev it uses findOneAndUpdate
// projected onto the revision, which reports a match as a modification and
// cannot tell an upsert from an update.
func (s *MongoStore) Apply(ctx context.Context, t store.Target, u store.Update, opts store.ApplyOptions) (store.ApplyResult, error) {
	update, err := buildUpdate(t, u)
	if err != nil {
		return store.ApplyResult{}, err
	}
	res, err := s.apply(ctx, t, update, opts)
	if mongo.IsDuplicateKeyError(err) && opts.Upsert {
		opts.Upsert = false
		res, err = s.apply(ctx, t, update, opts)
	}
	if mongo.IsDuplicateKeyError(err) {
		return store.ApplyResult{}, store.ErrConflict
	}
	return res, err
}

func (s *MongoStore) apply(ctx context.Context, t store.Target, update bson.D, opts store.ApplyOptions) (store.ApplyResult, error) {
	filter := targetFilter(t)
	if !opts.ReturnRev {
		r, err := s.coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(opts.Upsert))
		if err != nil {
			return store.ApplyResult{}, err
		}
		return store.ApplyResult{
			Matched:  r.MatchedCount,
			Modified: r.ModifiedCount,
			Upserted: r.UpsertedCount > 0,
		}, nil
	}

	fopts := options.FindOneAndUpdate().
		SetUpsert(opts.Upsert).
		SetReturnDocument(options.After).
		SetProjection(bson.D{{Key: fieldProfileRev, Value: 1}})
	var doc struct {
		Profile *profileDoc `bson:"_profile"`
	}
	err := s.coll.FindOneAndUpdate(ctx, filter, update, fopts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ApplyResult{}, nil
	}
	if err != nil {
		return store.ApplyResult{}, err
	}
	res := store.ApplyResult{Matched: 1, Modified: 1}
	if doc.Profile != nil {
		rev := uint64(doc.Profile.Rev)
		res.Rev = &rev
	}
	return res, nil
}

func (s *MongoStore) Delete(ctx context.Context, t store.Target) (bool, error) {
	r, err := s.coll.DeleteOne(ctx, targetFilter(t))
	if err != nil {
		return false, err
	}
	return r.DeletedCount > 0, nil
}

// indexSpec is the subset of listIndexes output EnsureIndexes inspects.
type indexSpec struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique bool   `bson:"unique"`
}

// userOnly reports whether spec is a unique index on _userId alone.
func (spec indexSpec) userOnly() bool {
	return spec.Unique && len(spec.Key) == 1 && spec.Key[0].Key == fieldUserID
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	cursor, err := s.coll.Indexes().List(ctx)
	if err != nil {
		return fmt.Errorf("list indexes: %w", err)
	}
	var specs []indexSpec
	if err := cursor.All(ctx, &specs); err != nil {
		return fmt.Errorf("decode indexes: %w", err)
	}
	for _, spec := range specs {
		if !spec.userOnly() {
			continue
		}
		if err := s.coll.Indexes().DropOne(ctx, spec.Name); err != nil {
			return fmt.Errorf("drop index %s: %w", spec.Name, err)
		}
	}

	_, err = s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: fieldUserID, Value: 1}, {Key: fieldProfileID, Value: 1}},
		Options: options.Index().SetUnique(true).SetName(profileIndexName),
	})
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

func (s *MongoStore) Export(ctx context.Context, fn func(*model.Document) error) error {
	cursor, err := s.coll.Find(ctx, bson.D{})
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	for cursor.Next(ctx) {
		d, err := documentOf(cursor.Current)
		if err != nil {
			return err
		}
		if err := fn(d); err != nil {
			return err
		}
	}
	return cursor.Err()
}
