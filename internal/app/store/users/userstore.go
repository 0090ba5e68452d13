// Package userstore reads the users collection. The collection is owned by
// the course platform; nothing in this package writes to it.
package userstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dalemusser/learnerdash/internal/app/system/livefeed"
	"github.com/dalemusser/learnerdash/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned by GetByID when no document has the id.
var ErrNotFound = errors.New("user not found")

// errStreamClosed is reported when the server ends a change stream, for
// example after the collection is dropped.
var errStreamClosed = errors.New("change stream closed by server")

type Store struct {
	db         *mongo.Database
	collection string
}

// New returns a Store over db. collection is the collection GetByID reads.
func New(db *mongo.Database, collection string) *Store {
	return &Store{db: db, collection: collection}
}

// idFilter matches ids stored either as strings or as ObjectIDs.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{id, oid}}}
	}
	return bson.M{"_id": id}
}

// GetByID loads one document. It returns ErrNotFound when it does not exist.
func (s *Store) GetByID(ctx context.Context, id string) (models.UserDoc, error) {
	var raw bson.M
	err := s.db.Collection(s.collection).FindOne(ctx, idFilter(id)).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.UserDoc{}, ErrNotFound
	}
	if err != nil {
		return models.UserDoc{}, fmt.Errorf("get user %q: %w", id, err)
	}
	return models.NewUserDoc(raw), nil
}

// Find implements livefeed.Source. The version is a hash of the raw
// documents as returned by the server.
func (s *Store) Find(ctx context.Context, q livefeed.Query) ([]models.UserDoc, string, error) {
	filter := bson.M{}
	if q.ID != "" {
		filter = idFilter(q.ID)
	}
	return s.find(ctx, q.Collection, filter)
}

func (s *Store) find(ctx context.Context, coll string, filter bson.M) ([]models.UserDoc, string, error) {
	cur, err := s.db.Collection(coll).Find(ctx, filter)
	if err != nil {
		return nil, "", fmt.Errorf("find %s: %w", coll, err)
	}
	defer cur.Close(ctx)

	h := sha256.New()
	docs := make([]models.UserDoc, 0, cur.RemainingBatchLength())
	for cur.Next(ctx) {
		h.Write(cur.Current)
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, "", fmt.Errorf("decode %s: %w", coll, err)
		}
		docs = append(docs, models.NewUserDoc(raw))
	}
	if err := cur.Err(); err != nil {
		return nil, "", fmt.Errorf("iterate %s: %w", coll, err)
	}
	return docs, hex.EncodeToString(h.Sum(nil)), nil
}

// watchedOps are the change events that trigger a reload. invalidate always
// passes through and ends the stream.
var watchedOps = bson.A{"insert", "update", "replace", "delete", "drop", "rename"}

// Watch implements livefeed.Source with a MongoDB change stream. It requires
// a replica set or sharded cluster.
func (s *Store) Watch(ctx context.Context, q livefeed.Query) (livefeed.Notifier, error) {
	match := bson.D{{Key: "operationType", Value: bson.M{"$in": watchedOps}}}
	if q.ID != "" {
		ids := bson.A{q.ID}
		if oid, err := primitive.ObjectIDFromHex(q.ID); err == nil {
			ids = append(ids, oid)
		}
		match = append(match, bson.E{Key: "documentKey._id", Value: bson.M{"$in": ids}})
	}
	pipeline := mongo.Pipeline{{{Key: "$match", Value: match}}}

	cs, err := s.db.Collection(q.Collection).Watch(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", q.Collection, err)
	}
	return &streamNotifier{cs: cs}, nil
}

type streamNotifier struct {
	cs *mongo.ChangeStream
}

func (n *streamNotifier) Wait(ctx context.Context) error {
	if n.cs.Next(ctx) {
		return nil
	}
	if err := n.cs.Err(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return errStreamClosed
}

func (n *streamNotifier) Close(ctx context.Context) error {
	return n.cs.Close(ctx)
}
