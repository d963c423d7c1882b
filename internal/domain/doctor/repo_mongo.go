package doctor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vatsl808/appointix/internal/domain/identity"
	"github.com/vatsl808/appointix/internal/platform/apperr"
	"github.com/vatsl808/appointix/internal/platform/mongostore"
)

type repoMongo struct{ coll *mongo.Collection }

func NewRepoMongo(db *mongo.Database) Repository {
	return &repoMongo{coll: db.Collection(mongostore.DoctorsCollection)}
}

func (r *repoMongo) findOne(ctx context.Context, filter bson.M) (*Doctor, error) {
	var d Doctor
	err := r.coll.FindOne(ctx, filter).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("doctor")
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repoMongo) Create(ctx context.Context, d *Doctor) error {
	if d.ID == "" {
		d.ID = ID(mongostore.NewID())
	}
	if d.Availability == nil {
		d.Availability = DefaultAvailability()
	}
	now := time.Now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now
	_, err := r.coll.InsertOne(ctx, d)
	if mongostore.IsDuplicateKey(err, mongostore.DoctorsUserIndex) {
		return fmt.Errorf("doctor profile for user %s: %w", d.UserID, apperr.ErrConflict)
	}
	return err
}

func (r *repoMongo) GetByID(ctx context.Context, id ID) (*Doctor, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *repoMongo) GetByUserID(ctx context.Context, userID identity.UserID) (*Doctor, error) {
	return r.findOne(ctx, bson.M{"user_id": userID})
}

func (r *repoMongo) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	var items []*Doctor
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, int(total), nil
}

func (r *repoMongo) set(ctx context.Context, id ID, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("doctor")
	}
	return nil
}

func (r *repoMongo) UpdateAvailability(ctx context.Context, id ID, a AvailabilitySchedule) error {
	return r.set(ctx, id, bson.M{"availability": a})
}

func (r *repoMongo) UpdateContact(ctx context.Context, id ID, c Contact) error {
	return r.set(ctx, id, bson.M{"phone": c.Phone, "bio": c.Bio})
}

func (r *repoMongo) SetProfilePicture(ctx context.Context, id ID, url string) error {
	return r.set(ctx, id, bson.M{"profile_picture_url": url})
}

func (r *repoMongo) ListPictureURLs(ctx context.Context) ([]string, error) {
	vals, err := r.coll.Distinct(ctx, "profile_picture_url", bson.M{"profile_picture_url": bson.M{"$nin": bson.A{nil, ""}}})
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(vals))
	for _, v := range vals {
		if s, ok := v.(string); ok && s != "" {
			urls = append(urls, s)
		}
	}
	return urls, nil
}
