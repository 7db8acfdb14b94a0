package account

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

type userDoc struct {
	ID           string     `bson:"_id"`
	Username     string     `bson:"username"`
	Email        string     `bson:"email"`
	PasswordHash string     `bson:"password"`
	FirstName    string     `bson:"firstName"`
	LastName     string     `bson:"lastName"`
	Role         string     `bson:"role"`
	IsActive     bool       `bson:"isActive"`
	LastLogin    *time.Time `bson:"lastLogin,omitempty"`
	CreatedAt    time.Time  `bson:"createdAt"`
}

func (d *userDoc) toUser() *User {
	u := User(*d)
	return &u
}

type repoMongo struct{ coll *mongo.Collection }

func NewRepoMongo(store *docstore.Store) Repository {
	return &repoMongo{coll: store.Collection(docstore.UserCollection)}
}

func (r *repoMongo) FindByLogin(ctx context.Context, identifier string) (*User, error) {
	var d userDoc
	err := r.coll.FindOne(ctx, bson.M{"$or": bson.A{
		bson.M{"username": identifier},
		bson.M{"email": normalizeEmail(identifier)},
	}}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return d.toUser(), nil
}

func (r *repoMongo) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = bson.NewObjectID().Hex()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if _, err := r.coll.InsertOne(ctx, userDoc(*u)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *repoMongo) List(ctx context.Context) ([]*User, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "username", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	out := make([]*User, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toUser())
	}
	return out, nil
}

func (r *repoMongo) Count(ctx context.Context) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return int(n), nil
}

func (r *repoMongo) TouchLogin(ctx context.Context, id string, at time.Time) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"lastLogin": at}})
	if err != nil {
		return fmt.Errorf("update lastLogin: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}
