package testutil

import (
	"context"
	"net/http"
	"testing"

	"github.com/dalemusser/learnerdash/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures inserts learner documents into a test database. The dashboard
// itself never writes to users; only tests do.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// InsertUser stores fields in the users collection. An ObjectID is
// generated when fields has no _id.
func (f *Fixtures) InsertUser(ctx context.Context, fields bson.M) models.UserDoc {
	f.t.Helper()
	if _, ok := fields["_id"]; !ok {
		fields["_id"] = primitive.NewObjectID()
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, fields); err != nil {
		f.t.Fatalf("failed to insert test user: %v", err)
	}
	return models.NewUserDoc(fields)
}

// CreateAdmin inserts an admin document with the given id.
func (f *Fixtures) CreateAdmin(ctx context.Context, id, name string) models.UserDoc {
	f.t.Helper()
	return f.InsertUser(ctx, raw(AdminDoc(id, name)))
}

// CreateLearner inserts a learner document.
func (f *Fixtures) CreateLearner(ctx context.Context, name, email, profession string) models.UserDoc {
	f.t.Helper()
	return f.InsertUser(ctx, raw(LearnerDoc("", name, email, profession)))
}

// LearnerDoc builds a learner document without touching the database.
// An empty id is left out of the fields.
func LearnerDoc(id, name, email, profession string) models.UserDoc {
	m := bson.M{
		"name":    name,
		"email":   email,
		"profile": bson.M{"profession": profession, "role": "student"},
	}
	if id != "" {
		m["_id"] = id
	}
	return models.NewUserDoc(m)
}

// AdminDoc builds an admin document.
func AdminDoc(id, name string) models.UserDoc {
	return models.NewUserDoc(bson.M{
		"_id":     id,
		"name":    name,
		"profile": bson.M{"role": models.RoleAdmin},
	})
}

// With returns a copy of d with extra top-level fields set.
func With(d models.UserDoc, fields bson.M) models.UserDoc {
	m := raw(d)
	for k, v := range fields {
		m[k] = v
	}
	return models.NewUserDoc(m)
}

// raw turns d back into a storable document, _id included when set.
func raw(d models.UserDoc) bson.M {
	m := bson.M{}
	for k, v := range d.Fields {
		m[k] = v
	}
	if d.ID != "" {
		m["_id"] = d.ID
	}
	return m
}
