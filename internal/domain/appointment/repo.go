package appointment

import (
	"context"
	"time"

	"github.com/vatsl808/appointix/internal/domain/doctor"
	"github.com/vatsl808/appointix/internal/domain/identity"
)

// Repository is the ledger's storage. Implementations guarantee:
//
//   - GetByID of a missing record wraps apperr.ErrNotFound.
//   - Lists are ordered by start time, newest first.
//   - Insert and UpdateStartTime wrap apperr.ErrConflict when another
//     upcoming appointment of the same doctor already starts at that minute.
//   - UpdateStatus and UpdateStartTime only touch a record whose status is
//     still the expected one and wrap apperr.ErrInvalidTransition otherwise.
type Repository interface {
	Insert(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id ID) (*Appointment, error)
	ListByPatient(ctx context.Context, patientID identity.UserID) ([]*Appointment, error)
	ListByDoctor(ctx context.Context, doctorID doctor.ID) ([]*Appointment, error)
	ListUpcomingByDoctor(ctx context.Context, doctorID doctor.ID) ([]*Appointment, error)
	UpdateStatus(ctx context.Context, id ID, from, to Status) error
	UpdateStartTime(ctx context.Context, id ID, start time.Time) error
}
