package appointment

import (
	"testing"
	"time"

	"github.com/vatsl808/appointix/internal/domain/doctor"
)

const docD doctor.ID = "doc-d"

func mondayNineToFive() doctor.AvailabilitySchedule {
	s := doctor.DefaultAvailability()
	s["Monday"] = doctor.DaySchedule{IsAvailable: true, StartTime: "09:00", EndTime: "17:00"}
	return s
}

// 2024-01-01 is a Monday.
func at(clock string) time.Time {
	t, err := ParseSlot("2024-01-01", clock)
	if err != nil {
		panic(err)
	}
	return t
}

func upcoming(id string, doctorID doctor.ID, start time.Time) *Appointment {
	return &Appointment{ID: ID(id), DoctorID: doctorID, StartTime: start, Status: StatusUpcoming}
}

func TestResolve_ClosedDayRejectsEveryTime(t *testing.T) {
	s := mondayNineToFive()
	s["Monday"] = doctor.DaySchedule{IsAvailable: false, StartTime: "00:00", EndTime: "23:59"}
	for h := 0; h < 24; h++ {
		for _, m := range []int{0, 30} {
			cand := time.Date(2024, 1, 1, h, m, 0, 0, time.UTC)
			if got := Resolve(s, nil, docD, cand); got != RejectDayClosed {
				t.Fatalf("%s: got %q, want %q", cand.Format(TimeLayout), got, RejectDayClosed)
			}
		}
	}
}

func TestResolve_MissingDayRejects(t *testing.T) {
	s := mondayNineToFive()
	delete(s, "Monday")
	if IsSlotAvailable(s, nil, docD, at("10:00")) {
		t.Error("a weekday missing from the schedule must reject")
	}
}

func TestResolve_WorkingHoursAreHalfOpen(t *testing.T) {
	tests := []struct {
		clock string
		want  Rejection
	}{
		{"08:59", RejectOffHours},
		{"09:00", Accepted},
		{"12:34", Accepted},
		{"16:00", Accepted},
		// Only the start is checked, so a 16:30 slot running to 17:30 is accepted.
		{"16:30", Accepted},
		{"16:59", Accepted},
		{"17:00", RejectOffHours},
		{"23:00", RejectOffHours},
	}
	for _, tt := range tests {
		t.Run(tt.clock, func(t *testing.T) {
			if got := Resolve(mondayNineToFive(), nil, docD, at(tt.clock)); got != tt.want {
				t.Errorf("Resolve(%s) = %q, want %q", tt.clock, got, tt.want)
			}
		})
	}
}

func TestResolve_OtherWeekdayUsesItsOwnSchedule(t *testing.T) {
	// 2024-01-02 is a Tuesday, closed by default.
	tue := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	if IsSlotAvailable(mondayNineToFive(), nil, docD, tue) {
		t.Error("Tuesday is closed")
	}
}

func TestResolve_LiteralOverlapRule(t *testing.T) {
	existing := []*Appointment{upcoming("a1", docD, at("10:00"))}
	tests := []struct {
		clock string
		want  Rejection
	}{
		{"10:00", RejectConflict},
		// 10:00 starts inside [09:30, 10:30).
		{"09:30", RejectConflict},
		{"09:01", RejectConflict},
		// 10:00 is before the candidate; the existing slot still running is not flagged.
		{"10:30", Accepted},
		{"10:59", Accepted},
		{"09:00", Accepted},
		{"11:00", Accepted},
	}
	for _, tt := range tests {
		t.Run(tt.clock, func(t *testing.T) {
			if got := Resolve(mondayNineToFive(), existing, docD, at(tt.clock)); got != tt.want {
				t.Errorf("Resolve(%s) = %q, want %q", tt.clock, got, tt.want)
			}
		})
	}
}

func TestResolve_IgnoresOtherDoctorsAndClosedRecords(t *testing.T) {
	existing := []*Appointment{
		upcoming("a1", "doc-other", at("10:00")),
		{ID: "a2", DoctorID: docD, StartTime: at("10:00"), Status: StatusCancelled},
		{ID: "a3", DoctorID: docD, StartTime: at("10:00"), Status: StatusCompleted},
		nil,
	}
	if got := Resolve(mondayNineToFive(), existing, docD, at("10:00")); got != Accepted {
		t.Errorf("got %q, want accepted", got)
	}
}

func TestResolve_FailsClosed(t *testing.T) {
	broken := mondayNineToFive()
	broken["Monday"] = doctor.DaySchedule{IsAvailable: true, StartTime: "nine", EndTime: "17:00"}

	tests := []struct {
		name     string
		schedule doctor.AvailabilitySchedule
		doctorID doctor.ID
		cand     time.Time
	}{
		{"nil schedule", nil, docD, at("10:00")},
		{"empty schedule", doctor.AvailabilitySchedule{}, docD, at("10:00")},
		{"malformed hours", broken, docD, at("10:00")},
		{"missing doctor", mondayNineToFive(), "", at("10:00")},
		{"zero time", mondayNineToFive(), docD, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if IsSlotAvailable(tt.schedule, nil, tt.doctorID, tt.cand) {
				t.Error("expected rejection")
			}
		})
	}
}

func TestResolve_NormalizesToUTC(t *testing.T) {
	// 10:00 UTC expressed in UTC+5.
	loc := time.FixedZone("UTC+5", 5*3600)
	cand := time.Date(2024, 1, 1, 15, 0, 0, 0, loc)
	if got := Resolve(mondayNineToFive(), nil, docD, cand); got != Accepted {
		t.Errorf("got %q, want accepted", got)
	}
}

func TestParseSlot(t *testing.T) {
	got, err := ParseSlot("2024-01-01", "10:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected time %v", got)
	}
	for _, in := range [][2]string{{"2024-1-1", "10:00"}, {"2024-01-01", "9:00"}, {"2024-02-30", "10:00"}, {"", ""}} {
		if _, err := ParseSlot(in[0], in[1]); err == nil {
			t.Errorf("ParseSlot(%q, %q) should fail", in[0], in[1])
		}
	}
}

func TestWithout(t *testing.T) {
	list := []*Appointment{upcoming("a", docD, at("10:00")), upcoming("b", docD, at("11:00"))}
	got := without(list, "a")
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("unexpected %v", got)
	}
	if len(list) != 2 {
		t.Error("input must not be modified")
	}
}
