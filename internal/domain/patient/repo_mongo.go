package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/frat/frat/internal/platform/docstore"
)

// patientDoc is the stored shape in the patients collection; field names
// match documents written by earlier deployments.
type patientDoc struct {
	ID            bson.ObjectID `bson:"_id,omitempty"`
	HospitalID    string        `bson:"hospitalId"`
	FirstName     string        `bson:"firstName,omitempty"`
	MiddleName    string        `bson:"middleName,omitempty"`
	LastName      string        `bson:"lastName,omitempty"`
	FullName      string        `bson:"fullName"`
	Gender        string        `bson:"gender,omitempty"`
	BirthDate     string        `bson:"birthDate,omitempty"`
	Age           *int          `bson:"age,omitempty"`
	Conditions    []Record      `bson:"conditions"`
	Medications   []Record      `bson:"medications"`
	Observations  []Record      `bson:"observations"`
	Immunizations []Record      `bson:"immunizations"`
	CreatedAt     time.Time     `bson:"createdAt"`
	UpdatedAt     time.Time     `bson:"updatedAt"`
}

func toDoc(p *Patient) patientDoc {
	return patientDoc{
		HospitalID:    p.HospitalID,
		FirstName:     p.FirstName,
		MiddleName:    p.MiddleName,
		LastName:      p.LastName,
		FullName:      p.FullName,
		Gender:        p.Gender,
		BirthDate:     p.BirthDate,
		Age:           p.Age,
		Conditions:    p.Conditions,
		Medications:   p.Medications,
		Observations:  p.Observations,
		Immunizations: p.Immunizations,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func (d *patientDoc) toPatient() *Patient {
	p := &Patient{
		ID:            d.ID.Hex(),
		HospitalID:    d.HospitalID,
		FirstName:     d.FirstName,
		MiddleName:    d.MiddleName,
		LastName:      d.LastName,
		FullName:      d.FullName,
		Gender:        d.Gender,
		BirthDate:     d.BirthDate,
		Age:           d.Age,
		Conditions:    d.Conditions,
		Medications:   d.Medications,
		Observations:  d.Observations,
		Immunizations: d.Immunizations,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	return p
}

type repoMongo struct{ coll *mongo.Collection }

func NewRepoMongo(store *docstore.Store) Repository {
	return &repoMongo{coll: store.Collection(docstore.PatientCollection)}
}

func (r *repoMongo) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "fullName", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	defer cur.Close(ctx)

	var docs []patientDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode patients: %w", err)
	}
	items := make([]*Patient, 0, len(docs))
	for i := range docs {
		items = append(items, docs[i].toPatient())
	}
	return items, int(total), nil
}

func (r *repoMongo) findOne(ctx context.Context, filter bson.M) (*Patient, error) {
	var d patientDoc
	err := r.coll.FindOne(ctx, filter).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, err
	}
	return d.toPatient(), nil
}

func (r *repoMongo) GetByID(ctx context.Context, id string) (*Patient, error) {
	return r.findOne(ctx, docstore.IDFilter(id))
}

func (r *repoMongo) GetByHospitalID(ctx context.Context, hospitalID string) (*Patient, error) {
	return r.findOne(ctx, bson.M{"hospitalId": hospitalID})
}

func (r *repoMongo) Create(ctx context.Context, p *Patient) error {
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	d := toDoc(p)
	d.ID = bson.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateHospitalID
		}
		return err
	}
	p.ID = d.ID.Hex()
	return nil
}

func (r *repoMongo) Update(ctx context.Context, p *Patient) error {
	p.UpdatedAt = time.Now().UTC()
	d := toDoc(p)
	res, err := r.coll.UpdateOne(ctx, docstore.IDFilter(p.ID), bson.M{"$set": bson.M{
		"hospitalId":    d.HospitalID,
		"firstName":     d.FirstName,
		"middleName":    d.MiddleName,
		"lastName":      d.LastName,
		"fullName":      d.FullName,
		"gender":        d.Gender,
		"birthDate":     d.BirthDate,
		"age":           d.Age,
		"conditions":    d.Conditions,
		"medications":   d.Medications,
		"observations":  d.Observations,
		"immunizations": d.Immunizations,
		"updatedAt":     d.UpdatedAt,
	}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateHospitalID
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrPatientNotFound
	}
	return nil
}
