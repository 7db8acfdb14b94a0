package assessment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/frat/frat/internal/domain/patient"
	"github.com/frat/frat/internal/platform/docstore"
)

// recordDoc is the stored shape in the assessments collection.
type recordDoc struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	PatientID   string        `bson:"patient_id"`
	PatientInfo patient.Info  `bson:"patient_info"`
	Assessments []Entry       `bson:"assessments"`
	CreatedAt   time.Time     `bson:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt"`
}

func (d *recordDoc) toRecord() *Record {
	entries := d.Assessments
	if entries == nil {
		entries = []Entry{}
	}
	return &Record{
		ID:          d.ID.Hex(),
		PatientID:   d.PatientID,
		PatientInfo: d.PatientInfo,
		Assessments: entries,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type repoMongo struct{ coll *mongo.Collection }

func NewRepoMongo(store *docstore.Store) Repository {
	return &repoMongo{coll: store.Collection(docstore.AssessmentCollection)}
}

// Append is a single upsert, so the snapshot and the pushed entry are
// written together. Two concurrent first submissions race on the unique
// patientId index; the loser retries as a plain update.
func (r *repoMongo) Append(ctx context.Context, info patient.Info, entry Entry) error {
	now := time.Now().UTC()
	update := bson.M{
		"$set":         bson.M{"patient_info": info, "updatedAt": now},
		"$push":        bson.M{"assessments": entry},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	filter := bson.M{"patient_id": info.ID}
	opts := options.UpdateOne().SetUpsert(true)

	_, err := r.coll.UpdateOne(ctx, filter, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		_, err = r.coll.UpdateOne(ctx, filter, update, opts)
	}
	if err != nil {
		return fmt.Errorf("append assessment: %w", err)
	}
	return nil
}

func (r *repoMongo) GetByPatient(ctx context.Context, patientID string) (*Record, error) {
	var d recordDoc
	err := r.coll.FindOne(ctx, bson.M{"patient_id": patientID}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return d.toRecord(), nil
}

func (r *repoMongo) ListAll(ctx context.Context) ([]*Record, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list assessment records: %w", err)
	}
	defer cur.Close(ctx)

	var docs []recordDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode assessment records: %w", err)
	}
	out := make([]*Record, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toRecord())
	}
	return out, nil
}

func (r *repoMongo) Put(ctx context.Context, rec *Record) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}
	if rec.Assessments == nil {
		rec.Assessments = []Entry{}
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"patient_id": rec.PatientID}, bson.M{
		"$set": bson.M{
			"patient_info": rec.PatientInfo,
			"assessments":  rec.Assessments,
			"updatedAt":    rec.UpdatedAt,
		},
		"$setOnInsert": bson.M{"createdAt": rec.CreatedAt},
	}, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put assessment record: %w", err)
	}
	return nil
}
