// Package mongostore connects to MongoDB and prepares the collections used
// when STORE_DRIVER=mongo.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	UsersCollection        = "users"
	DoctorsCollection      = "doctors"
	AppointmentsCollection = "appointments"
)

// Index names mirror the Postgres constraint names so callers can match
// duplicate-key errors the same way on both stores.
const (
	UsersEmailIndex          = "users_email_key"
	DoctorsUserIndex         = "doctors_user_id_key"
	AppointmentsSlotIndex    = "appointments_doctor_slot_upcoming"
	appointmentsPatientIndex = "appointments_patient_start"
	appointmentsDoctorIndex  = "appointments_doctor_start"
)

// Connect dials uri and verifies the primary is reachable.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetAppName("appointix"))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// Pinger adapts a database handle for health checks.
type Pinger struct {
	DB *mongo.Database
}

func (p Pinger) Ping(ctx context.Context) error {
	return p.DB.Client().Ping(ctx, readpref.Primary())
}

// IndexModels returns the indexes EnsureIndexes creates, keyed by collection.
func IndexModels() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName(UsersEmailIndex)},
		},
		DoctorsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName(DoctorsUserIndex)},
		},
		AppointmentsCollection: {
			{
				Keys: bson.D{{Key: "doctor_id", Value: 1}, {Key: "start_time", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetName(AppointmentsSlotIndex).
					SetPartialFilterExpression(bson.M{"status": "upcoming"}),
			},
			{Keys: bson.D{{Key: "patient_id", Value: 1}, {Key: "start_time", Value: -1}}, Options: options.Index().SetName(appointmentsPatientIndex)},
			{Keys: bson.D{{Key: "doctor_id", Value: 1}, {Key: "start_time", Value: -1}}, Options: options.Index().SetName(appointmentsDoctorIndex)},
		},
	}
}

// EnsureIndexes creates every index from IndexModels. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for coll, models := range IndexModels() {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// Transactor runs fn directly. Standalone MongoDB has no multi-document
// transactions; the unique indexes keep registrations consistent instead.
type Transactor struct{}

func (Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// NewID returns a fresh ObjectID in hex form.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// IsDuplicateKey reports whether err is a duplicate key error, optionally
// restricted to the named index.
func IsDuplicateKey(err error, index string) bool {
	if !mongo.IsDuplicateKeyError(err) {
		return false
	}
	if index == "" {
		return true
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if containsIndex(e.Message, index) {
				return true
			}
		}
		return false
	}
	return containsIndex(err.Error(), index)
}

// Duplicate key messages read "... index: <name> dup key: ...".
func containsIndex(msg, index string) bool {
	return strings.Contains(msg, "index: "+index+" ")
}
