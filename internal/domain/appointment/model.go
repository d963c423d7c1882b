package appointment

import (
	"time"

	"github.com/vatsl808/appointix/internal/domain/doctor"
	"github.com/vatsl808/appointix/internal/domain/identity"
	"github.com/vatsl808/appointix/internal/platform/apperr"
	"github.com/vatsl808/appointix/internal/platform/validate"
)

type ID string

func (id ID) String() string { return string(id) }

// Status is the lifecycle state of an appointment. Upcoming is the only
// state that can change; cancelled and completed are terminal.
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// SlotDuration is the fixed length of every appointment.
const SlotDuration = time.Hour

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type Appointment struct {
	ID          ID              `bson:"_id"`
	DoctorID    doctor.ID       `bson:"doctor_id"`
	PatientID   identity.UserID `bson:"patient_id"`
	DoctorName  string          `bson:"doctor_name"`
	PatientName string          `bson:"patient_name"`
	StartTime   time.Time       `bson:"start_time"`
	Reason      string          `bson:"reason"`
	Status      Status          `bson:"status"`
	CreatedAt   time.Time       `bson:"created_at"`
	UpdatedAt   time.Time       `bson:"updated_at"`
}

// End is the exclusive end of the appointment's slot.
func (a *Appointment) End() time.Time {
	return a.StartTime.Add(SlotDuration)
}

// View is the JSON shape returned to clients.
type View struct {
	ID          ID        `json:"id"`
	DoctorID    doctor.ID `json:"doctorId,omitempty"`
	DoctorName  string    `json:"doctorName"`
	PatientID   string    `json:"patientId,omitempty"`
	PatientName string    `json:"patientName"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Reason      string    `json:"reason"`
	Status      Status    `json:"status"`
}

func (a *Appointment) View() View {
	start := a.StartTime.UTC()
	return View{
		ID:          a.ID,
		DoctorID:    a.DoctorID,
		DoctorName:  a.DoctorName,
		PatientID:   a.PatientID.String(),
		PatientName: a.PatientName,
		Date:        start.Format(DateLayout),
		Time:        start.Format(TimeLayout),
		Reason:      a.Reason,
		Status:      a.Status,
	}
}

// PatientViews renders a patient's own list, which omits the patient id.
func PatientViews(list []*Appointment) []View {
	out := make([]View, 0, len(list))
	for _, a := range list {
		v := a.View()
		v.PatientID = ""
		out = append(out, v)
	}
	return out
}

// DoctorViews renders a doctor's own list, which omits the doctor id.
func DoctorViews(list []*Appointment) []View {
	out := make([]View, 0, len(list))
	for _, a := range list {
		v := a.View()
		v.DoctorID = ""
		out = append(out, v)
	}
	return out
}

// ParseSlot combines a "YYYY-MM-DD" date and an "HH:MM" time into a UTC
// instant. Only the canonical zero-padded forms are accepted.
func ParseSlot(date, clock string) (time.Time, error) {
	if !validate.IsDate(date) || !validate.IsClock(clock) {
		return time.Time{}, apperr.Validation("Invalid date or time format provided.")
	}
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+clock, time.UTC)
	if err != nil {
		return time.Time{}, apperr.Validation("Invalid date or time format provided.")
	}
	return t, nil
}

type BookInput struct {
	DoctorID string `json:"doctorId" validate:"required,opaqueid"`
	Date     string `json:"date" validate:"required,ymd"`
	Time     string `json:"time" validate:"required,hhmm"`
	Reason   string `json:"reason" validate:"max=1000"`
}

type RescheduleInput struct {
	Date string `json:"date" validate:"required,ymd"`
	Time string `json:"time" validate:"required,hhmm"`
}
