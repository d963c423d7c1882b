package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vatsl808/appointix/internal/domain/doctor"
	"github.com/vatsl808/appointix/internal/domain/identity"
	"github.com/vatsl808/appointix/internal/platform/apperr"
	"github.com/vatsl808/appointix/internal/platform/mongostore"
)

type repoMongo struct{ coll *mongo.Collection }

func NewRepoMongo(db *mongo.Database) Repository {
	return &repoMongo{coll: db.Collection(mongostore.AppointmentsCollection)}
}

func (r *repoMongo) find(ctx context.Context, filter bson.M) ([]*Appointment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var items []*Appointment
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	for _, a := range items {
		a.StartTime = a.StartTime.UTC()
	}
	return items, nil
}

func (r *repoMongo) Insert(ctx context.Context, a *Appointment) error {
	if a.ID == "" {
		a.ID = ID(mongostore.NewID())
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	_, err := r.coll.InsertOne(ctx, a)
	if mongostore.IsDuplicateKey(err, mongostore.AppointmentsSlotIndex) {
		return fmt.Errorf("doctor %s at %s: %w", a.DoctorID, a.StartTime.Format(time.RFC3339), apperr.ErrConflict)
	}
	return err
}

func (r *repoMongo) GetByID(ctx context.Context, id ID) (*Appointment, error) {
	var a Appointment
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("appointment")
	}
	if err != nil {
		return nil, err
	}
	a.StartTime = a.StartTime.UTC()
	return &a, nil
}

func (r *repoMongo) ListByPatient(ctx context.Context, patientID identity.UserID) ([]*Appointment, error) {
	return r.find(ctx, bson.M{"patient_id": patientID})
}

func (r *repoMongo) ListByDoctor(ctx context.Context, doctorID doctor.ID) ([]*Appointment, error) {
	return r.find(ctx, bson.M{"doctor_id": doctorID})
}

func (r *repoMongo) ListUpcomingByDoctor(ctx context.Context, doctorID doctor.ID) ([]*Appointment, error) {
	return r.find(ctx, bson.M{"doctor_id": doctorID, "status": StatusUpcoming})
}

func (r *repoMongo) UpdateStatus(ctx context.Context, id ID, from, to Status) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("appointment %s is no longer %s: %w", id, from, apperr.ErrInvalidTransition)
	}
	return nil
}

func (r *repoMongo) UpdateStartTime(ctx context.Context, id ID, start time.Time) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": StatusUpcoming},
		bson.M{"$set": bson.M{"start_time": start, "updated_at": time.Now().UTC()}})
	if mongostore.IsDuplicateKey(err, mongostore.AppointmentsSlotIndex) {
		return fmt.Errorf("reschedule %s to %s: %w", id, start.Format(time.RFC3339), apperr.ErrConflict)
	}
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("appointment %s is no longer upcoming: %w", id, apperr.ErrInvalidTransition)
	}
	return nil
}
