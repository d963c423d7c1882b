package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vatsl808/appointix/internal/platform/apperr"
	"github.com/vatsl808/appointix/internal/platform/mongostore"
)

type userRepoMongo struct{ coll *mongo.Collection }

func NewRepoMongo(db *mongo.Database) Repository {
	return &userRepoMongo{coll: db.Collection(mongostore.UsersCollection)}
}

func (r *userRepoMongo) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var u User
	err := r.coll.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("user")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepoMongo) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = UserID(mongostore.NewID())
	}
	u.CreatedAt = time.Now().UTC()
	_, err := r.coll.InsertOne(ctx, u)
	if mongostore.IsDuplicateKey(err, mongostore.UsersEmailIndex) {
		return fmt.Errorf("email %s: %w", u.Email, apperr.ErrConflict)
	}
	return err
}

func (r *userRepoMongo) GetByID(ctx context.Context, id UserID) (*User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *userRepoMongo) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}
