package appointment

import (
	"time"

	"github.com/vatsl808/appointix/internal/domain/doctor"
	"github.com/vatsl808/appointix/internal/platform/validate"
)

// Rejection names why a slot was refused. The empty Rejection means the
// slot is available.
type Rejection string

const (
	Accepted         Rejection = ""
	RejectBadInput   Rejection = "bad_input"
	RejectNoSchedule Rejection = "no_schedule"
	RejectDayClosed  Rejection = "day_closed"
	RejectOffHours   Rejection = "outside_hours"
	RejectConflict   Rejection = "conflict"
)

// Resolve decides whether doctorID can take a one-hour appointment starting
// at candidate.
//
// The day must be open and the start time must fall in [startTime, endTime).
// Only the start is checked against working hours, so a slot may run past
// endTime. An existing upcoming appointment of the same doctor blocks the
// slot when it starts within [candidate, candidate+1h). An appointment that
// started earlier and is still running at candidate does not block it.
//
// Malformed input is rejected, never reported as an error.
func Resolve(schedule doctor.AvailabilitySchedule, existing []*Appointment, doctorID doctor.ID, candidate time.Time) Rejection {
	if doctorID == "" || candidate.IsZero() {
		return RejectBadInput
	}
	if len(schedule) == 0 {
		return RejectNoSchedule
	}

	candidate = candidate.UTC()
	day, ok := schedule[candidate.Weekday().String()]
	if !ok || !day.IsAvailable {
		return RejectDayClosed
	}
	if !validate.IsClock(day.StartTime) || !validate.IsClock(day.EndTime) {
		return RejectNoSchedule
	}

	clock := candidate.Format(TimeLayout)
	if clock < day.StartTime || clock >= day.EndTime {
		return RejectOffHours
	}

	end := candidate.Add(SlotDuration)
	for _, a := range existing {
		if a == nil || a.DoctorID != doctorID || a.Status != StatusUpcoming {
			continue
		}
		start := a.StartTime.UTC()
		if !start.Before(candidate) && start.Before(end) {
			return RejectConflict
		}
	}
	return Accepted
}

// IsSlotAvailable reports whether Resolve accepts the slot.
func IsSlotAvailable(schedule doctor.AvailabilitySchedule, existing []*Appointment, doctorID doctor.ID, candidate time.Time) bool {
	return Resolve(schedule, existing, doctorID, candidate) == Accepted
}

// without returns list minus the appointment with the given id.
func without(list []*Appointment, id ID) []*Appointment {
	out := make([]*Appointment, 0, len(list))
	for _, a := range list {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}
