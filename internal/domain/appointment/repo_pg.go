package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vatsl808/appointix/internal/domain/doctor"
	"github.com/vatsl808/appointix/internal/domain/identity"
	"github.com/vatsl808/appointix/internal/platform/apperr"
	"github.com/vatsl808/appointix/internal/platform/db"
)

// slotConstraint is the partial unique index guarding (doctor_id, start_time)
// among upcoming appointments.
const slotConstraint = "appointments_doctor_slot_upcoming"

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const apptCols = `id, doctor_id, patient_id, doctor_name, patient_name, start_time,
	reason, status, created_at, updated_at`

func (r *repoPG) scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.DoctorName, &a.PatientName, &a.StartTime,
		&a.Reason, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("appointment")
	}
	if err != nil {
		return nil, err
	}
	a.StartTime = a.StartTime.UTC()
	return &a, nil
}

func (r *repoPG) list(ctx context.Context, where string, arg interface{}) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+apptCols+` FROM appointments WHERE `+where+` ORDER BY start_time DESC, id`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *repoPG) Insert(ctx context.Context, a *Appointment) error {
	if a.ID == "" {
		a.ID = ID(uuid.NewString())
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, doctor_name, patient_name, start_time, reason, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		a.ID, a.DoctorID, a.PatientID, a.DoctorName, a.PatientName, a.StartTime, a.Reason, a.Status,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if db.IsUniqueViolation(err, slotConstraint) {
		return fmt.Errorf("doctor %s at %s: %w", a.DoctorID, a.StartTime.Format(time.RFC3339), apperr.ErrConflict)
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id ID) (*Appointment, error) {
	return r.scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID identity.UserID) ([]*Appointment, error) {
	return r.list(ctx, `patient_id = $1`, patientID)
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID doctor.ID) ([]*Appointment, error) {
	return r.list(ctx, `doctor_id = $1`, doctorID)
}

func (r *repoPG) ListUpcomingByDoctor(ctx context.Context, doctorID doctor.ID) ([]*Appointment, error) {
	return r.list(ctx, `doctor_id = $1 AND status = 'upcoming'`, doctorID)
}

func (r *repoPG) UpdateStatus(ctx context.Context, id ID, from, to Status) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE appointments SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`,
		id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("appointment %s is no longer %s: %w", id, from, apperr.ErrInvalidTransition)
	}
	return nil
}

func (r *repoPG) UpdateStartTime(ctx context.Context, id ID, start time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE appointments SET start_time = $2, updated_at = NOW() WHERE id = $1 AND status = 'upcoming'`,
		id, start)
	if db.IsUniqueViolation(err, slotConstraint) {
		return fmt.Errorf("reschedule %s to %s: %w", id, start.Format(time.RFC3339), apperr.ErrConflict)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("appointment %s is no longer upcoming: %w", id, apperr.ErrInvalidTransition)
	}
	return nil
}
