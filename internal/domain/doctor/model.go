package doctor

import (
	"sort"
	"strings"
	"time"

	"github.com/vatsl808/appointix/internal/domain/identity"
	"github.com/vatsl808/appointix/internal/platform/apperr"
	"github.com/vatsl808/appointix/internal/platform/validate"
)

// ID identifies a doctor profile. It is not interchangeable with the
// identity.UserID of the account that owns the profile.
type ID string

func (id ID) String() string { return string(id) }

// Weekdays lists the schedule keys in calendar order.
var Weekdays = []string{
	time.Monday.String(),
	time.Tuesday.String(),
	time.Wednesday.String(),
	time.Thursday.String(),
	time.Friday.String(),
	time.Saturday.String(),
	time.Sunday.String(),
}

// DaySchedule is a doctor's working window for one weekday. StartTime and
// EndTime are zero-padded "HH:MM" strings and are ignored when IsAvailable
// is false.
type DaySchedule struct {
	IsAvailable bool   `json:"isAvailable" bson:"isAvailable"`
	StartTime   string `json:"startTime" bson:"startTime"`
	EndTime     string `json:"endTime" bson:"endTime"`
}

// AvailabilitySchedule maps weekday names to their DaySchedule.
type AvailabilitySchedule map[string]DaySchedule

// DefaultAvailability is the schedule given to newly registered doctors:
// every day closed.
func DefaultAvailability() AvailabilitySchedule {
	a := make(AvailabilitySchedule, len(Weekdays))
	for _, day := range Weekdays {
		a[day] = DaySchedule{}
	}
	return a
}

// Validate checks the schedule has exactly the seven weekday keys and that
// every available day has a well-formed start before its end.
func (a AvailabilitySchedule) Validate() error {
	var unknown []string
	for day := range a {
		if !isWeekday(day) {
			unknown = append(unknown, day)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return apperr.Validation("unknown weekdays: %s", strings.Join(unknown, ", "))
	}
	var missing []string
	for _, day := range Weekdays {
		if _, ok := a[day]; !ok {
			missing = append(missing, day)
		}
	}
	if len(missing) > 0 {
		return apperr.Validation("missing weekdays: %s", strings.Join(missing, ", "))
	}

	for _, day := range Weekdays {
		ds := a[day]
		if !ds.IsAvailable {
			continue
		}
		if !validate.IsClock(ds.StartTime) || !validate.IsClock(ds.EndTime) {
			return apperr.Validation("%s: startTime and endTime must be HH:MM", day)
		}
		if ds.StartTime >= ds.EndTime {
			return apperr.Validation("%s: startTime must be before endTime", day)
		}
	}
	return nil
}

// Equal reports whether a and b describe the same schedule.
func (a AvailabilitySchedule) Equal(b AvailabilitySchedule) bool {
	if len(a) != len(b) {
		return false
	}
	for day, ds := range a {
		other, ok := b[day]
		if !ok || other != ds {
			return false
		}
	}
	return true
}

func isWeekday(day string) bool {
	for _, d := range Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// Doctor is a doctor profile as stored.
type Doctor struct {
	ID                ID                   `json:"id" bson:"_id"`
	UserID            identity.UserID      `json:"user_id" bson:"user_id"`
	Name              string               `json:"name" bson:"name"`
	Specialization    string               `json:"specialization" bson:"specialization"`
	Email             string               `json:"email" bson:"email"`
	Phone             *string              `json:"phone" bson:"phone,omitempty"`
	Bio               *string              `json:"bio" bson:"bio,omitempty"`
	ProfilePictureURL *string              `json:"profilePictureUrl" bson:"profile_picture_url,omitempty"`
	Availability      AvailabilitySchedule `json:"availability" bson:"availability"`
	CreatedAt         time.Time            `json:"-" bson:"created_at"`
	UpdatedAt         time.Time            `json:"-" bson:"updated_at"`
}

// Summary is the public directory view of a doctor.
type Summary struct {
	ID                ID                   `json:"id"`
	Name              string               `json:"name"`
	Specialization    string               `json:"specialization"`
	ProfilePictureURL *string              `json:"profilePictureUrl"`
	Availability      AvailabilitySchedule `json:"availability"`
}

func (d *Doctor) Summary() Summary {
	return Summary{
		ID:                d.ID,
		Name:              d.Name,
		Specialization:    d.Specialization,
		ProfilePictureURL: d.ProfilePictureURL,
		Availability:      d.Availability,
	}
}

// Contact is the editable part of a profile.
type Contact struct {
	Phone *string `json:"phone"`
	Bio   *string `json:"bio"`
}

// ProfileUpdate carries the fields present in an update request. A nil
// field is left unchanged.
type ProfileUpdate struct {
	Phone *string `json:"phone"`
	Bio   *string `json:"bio"`
}

func (u ProfileUpdate) Empty() bool {
	return u.Phone == nil && u.Bio == nil
}

// PicturePath is the URL prefix under which profile pictures are served.
const PicturePath = "/uploads/profile_pics/"

// PictureURL returns the public URL for a stored picture file.
func PictureURL(name string) string {
	return PicturePath + name
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
