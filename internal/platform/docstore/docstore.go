// Package docstore connects to the MongoDB document store used when
// STORE_DRIVER=mongo.
package docstore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection names.
const (
	PatientCollection    = "patients"
	AssessmentCollection = "assessments"
	UserCollection       = "users"
)

// Store wraps a connected client and the application database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri and verifies the connection. Nested documents decode as
// bson.M so free-form clinical records render as plain JSON objects.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

// Collection returns the named collection.
func (s *Store) Collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// indexModels lists the unique and lookup indexes per collection.
func indexModels() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		PatientCollection: {
			{Keys: bson.D{{Key: "hospitalId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "fullName", Value: 1}}},
		},
		AssessmentCollection: {
			{Keys: bson.D{{Key: "patient_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "updatedAt", Value: -1}}},
		},
		UserCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
}

// EnsureIndexes creates the indexes the repositories rely on. It is
// idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	for coll, models := range indexModels() {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// IDFilter matches a document by its hex ObjectID. Malformed ids match
// nothing rather than erroring, so lookups report not-found.
func IDFilter(id string) bson.M {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.M{"_id": bson.M{"$exists": false}}
	}
	return bson.M{"_id": oid}
}
