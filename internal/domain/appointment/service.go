package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vatsl808/appointix/internal/domain/doctor"
	"github.com/vatsl808/appointix/internal/domain/identity"
	"github.com/vatsl808/appointix/internal/platform/apperr"
	"github.com/vatsl808/appointix/internal/platform/metrics"
	"github.com/vatsl808/appointix/internal/platform/validate"
)

// Doctors resolves doctor profiles, including their weekly schedule.
type Doctors interface {
	Get(ctx context.Context, id doctor.ID) (*doctor.Doctor, error)
}

// Patients resolves patient accounts.
type Patients interface {
	GetUser(ctx context.Context, id identity.UserID) (*identity.User, error)
}

// Service is the appointment ledger. Every slot mutation consults Resolve
// against the stored upcoming appointments before writing; the store's
// slot guard rejects a concurrent writer that slipped past the check.
type Service struct {
	repo     Repository
	doctors  Doctors
	patients Patients
	validate *validate.Validator
	logger   zerolog.Logger
}

func NewService(repo Repository, doctors Doctors, patients Patients, v *validate.Validator, logger zerolog.Logger) *Service {
	return &Service{repo: repo, doctors: doctors, patients: patients, validate: v, logger: logger}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrValidation):
		return "validation"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrForbidden):
		return "forbidden"
	case errors.Is(err, apperr.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, apperr.ErrSlotUnavailable):
		return "slot_unavailable"
	case errors.Is(err, apperr.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}

func (s *Service) record(op string, err error) {
	metrics.IncLedgerOp(op, outcome(err))
}

func (s *Service) loadDoctor(ctx context.Context, id doctor.ID) (*doctor.Doctor, error) {
	d, err := s.doctors.Get(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("%w: Doctor not found.", apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	return d, nil
}

func displayName(d *doctor.Doctor) string {
	if strings.HasPrefix(d.Name, "Dr.") {
		return d.Name
	}
	return "Dr. " + d.Name
}

// admit runs the resolver for d at start against the doctor's upcoming
// appointments, leaving out the one being moved.
func (s *Service) admit(ctx context.Context, d *doctor.Doctor, start time.Time, moving ID) (Rejection, error) {
	existing, err := s.repo.ListUpcomingByDoctor(ctx, d.ID)
	if err != nil {
		return "", fmt.Errorf("load upcoming appointments: %w", err)
	}
	if moving != "" {
		existing = without(existing, moving)
	}
	reason := Resolve(d.Availability, existing, d.ID, start)
	if reason != Accepted {
		metrics.IncSlotRejection(string(reason))
		s.logger.Info().
			Str("doctor_id", d.ID.String()).
			Time("start", start).
			Str("reason", string(reason)).
			Msg("slot rejected")
	}
	return reason, nil
}

// Book creates an upcoming appointment for patientID.
func (s *Service) Book(ctx context.Context, patientID identity.UserID, in BookInput) (a *Appointment, err error) {
	defer func() { s.record("book", err) }()

	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	start, err := ParseSlot(in.Date, in.Time)
	if err != nil {
		return nil, err
	}
	d, err := s.loadDoctor(ctx, doctor.ID(in.DoctorID))
	if err != nil {
		return nil, err
	}

	reason, err := s.admit(ctx, d, start, "")
	if err != nil {
		return nil, err
	}
	if reason != Accepted {
		return nil, fmt.Errorf("%w: %s is not available at the selected time or the slot is booked.",
			apperr.ErrSlotUnavailable, displayName(d))
	}

	patient, err := s.patients.GetUser(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}

	a = &Appointment{
		DoctorID:    d.ID,
		PatientID:   patient.ID,
		DoctorName:  d.Name,
		PatientName: patient.Name,
		StartTime:   start,
		Reason:      strings.TrimSpace(in.Reason),
		Status:      StatusUpcoming,
	}
	if err := s.repo.Insert(ctx, a); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			s.logger.Warn().Str("doctor_id", d.ID.String()).Time("start", start).Msg("concurrent booking lost the slot")
			return nil, fmt.Errorf("%w: the slot was just booked by someone else", apperr.ErrConflict)
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	s.logger.Info().Str("appointment_id", a.ID.String()).Str("doctor_id", d.ID.String()).Msg("appointment booked")
	return a, nil
}

// ListByPatient returns every appointment of patientID, newest first.
func (s *Service) ListByPatient(ctx context.Context, patientID identity.UserID) ([]*Appointment, error) {
	list, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list patient appointments: %w", err)
	}
	return list, nil
}

// ListByDoctor returns every appointment of doctorID, newest first.
func (s *Service) ListByDoctor(ctx context.Context, doctorID doctor.ID) ([]*Appointment, error) {
	list, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list doctor appointments: %w", err)
	}
	return list, nil
}

func (s *Service) load(ctx context.Context, id ID) (*Appointment, error) {
	if !validate.IsID(id.String()) {
		return nil, apperr.Validation("Invalid ID format for appointment.")
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("%w: Appointment not found.", apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	return a, nil
}

// loadOwned loads id for a mutation by patientID while it is upcoming.
func (s *Service) loadOwned(ctx context.Context, id ID, patientID identity.UserID, verb string) (*Appointment, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.PatientID != patientID {
		s.logger.Warn().Str("appointment_id", id.String()).Str("patient_id", patientID.String()).Msgf("forbidden %s attempt", verb)
		return nil, apperr.Forbidden(fmt.Sprintf("You can only %s your own appointments.", verb))
	}
	if a.Status != StatusUpcoming {
		return nil, fmt.Errorf("%w: Cannot %s appointment with status '%s'.", apperr.ErrInvalidTransition, verb, a.Status)
	}
	return a, nil
}

// Cancel moves an upcoming appointment owned by patientID to cancelled.
func (s *Service) Cancel(ctx context.Context, id ID, patientID identity.UserID) (err error) {
	defer func() { s.record("cancel", err) }()

	a, err := s.loadOwned(ctx, id, patientID, "cancel")
	if err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, a.ID, StatusUpcoming, StatusCancelled); err != nil {
		return err
	}
	s.logger.Info().Str("appointment_id", a.ID.String()).Msg("appointment cancelled")
	return nil
}

// Reschedule moves an upcoming appointment owned by patientID to a new
// start. The appointment itself does not count against its new slot. The
// returned bool is false when the start did not change.
func (s *Service) Reschedule(ctx context.Context, id ID, patientID identity.UserID, in RescheduleInput) (a *Appointment, changed bool, err error) {
	defer func() { s.record("reschedule", err) }()

	if err := s.validate.Struct(in); err != nil {
		return nil, false, err
	}
	start, err := ParseSlot(in.Date, in.Time)
	if err != nil {
		return nil, false, err
	}
	a, err = s.loadOwned(ctx, id, patientID, "reschedule")
	if err != nil {
		return nil, false, err
	}
	d, err := s.loadDoctor(ctx, a.DoctorID)
	if err != nil {
		return nil, false, err
	}

	reason, err := s.admit(ctx, d, start, a.ID)
	if err != nil {
		return nil, false, err
	}
	if reason != Accepted {
		return nil, false, fmt.Errorf("%w: %s is not available at the selected new time or the slot is booked.",
			apperr.ErrSlotUnavailable, displayName(d))
	}
	if a.StartTime.Equal(start) {
		return a, false, nil
	}

	if err := s.repo.UpdateStartTime(ctx, a.ID, start); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, false, fmt.Errorf("%w: the slot was just booked by someone else", apperr.ErrConflict)
		}
		return nil, false, err
	}
	a.StartTime = start
	s.logger.Info().Str("appointment_id", a.ID.String()).Time("start", start).Msg("appointment rescheduled")
	return a, true, nil
}

// Complete moves an upcoming appointment of doctorID to completed.
func (s *Service) Complete(ctx context.Context, id ID, doctorID doctor.ID) (err error) {
	defer func() { s.record("complete", err) }()

	a, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if a.DoctorID != doctorID {
		s.logger.Warn().Str("appointment_id", id.String()).Str("doctor_id", doctorID.String()).Msg("forbidden complete attempt")
		return apperr.Forbidden("You can only complete your own appointments.")
	}
	if a.Status != StatusUpcoming {
		return fmt.Errorf("%w: Cannot complete appointment with status '%s'.", apperr.ErrInvalidTransition, a.Status)
	}
	if err := s.repo.UpdateStatus(ctx, a.ID, StatusUpcoming, StatusCompleted); err != nil {
		return err
	}
	s.logger.Info().Str("appointment_id", a.ID.String()).Msg("appointment completed")
	return nil
}

// CheckSlot answers whether doctorID could take a booking at date and
// clock right now. Any failure reads as unavailable.
func (s *Service) CheckSlot(ctx context.Context, doctorID doctor.ID, date, clock string) bool {
	if !validate.IsID(doctorID.String()) {
		return false
	}
	start, err := ParseSlot(date, clock)
	if err != nil {
		return false
	}
	d, err := s.doctors.Get(ctx, doctorID)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			s.logger.Error().Err(err).Str("doctor_id", doctorID.String()).Msg("availability check failed")
		}
		return false
	}
	reason, err := s.admit(ctx, d, start, "")
	if err != nil {
		s.logger.Error().Err(err).Str("doctor_id", doctorID.String()).Msg("availability check failed")
		return false
	}
	return reason == Accepted
}
