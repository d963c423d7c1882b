// Package sandbox generates reproducible demo accounts for development and
// UI demos: doctors with weekly schedules and patients.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vatsl808/appointix/internal/platform/apperr"
)

// SeedConfig controls how many accounts are generated.
type SeedConfig struct {
	DoctorCount  int    `json:"doctorCount"`
	PatientCount int    `json:"patientCount"`
	Password     string `json:"-"`
	Seed         int64  `json:"seed"`
}

func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		DoctorCount:  5,
		PatientCount: 10,
		Password:     "appointix-demo",
		Seed:         42,
	}
}

// DayHours is one weekday of a generated schedule.
type DayHours struct {
	Open  bool
	Start string
	End   string
}

type SyntheticDoctor struct {
	Name           string
	Email          string
	Specialization string
	Phone          string
	Bio            string
	// Schedule is keyed by English weekday name.
	Schedule map[string]DayHours
}

type SyntheticPatient struct {
	Name  string
	Email string
}

var (
	firstNames = []string{
		"James", "Maria", "Robert", "Aisha", "Wei", "Olivia", "Arjun",
		"Sofia", "Daniel", "Fatima", "Lucas", "Priya", "Noah", "Elena",
	}
	lastNames = []string{
		"Smith", "Garcia", "Chen", "Patel", "Okafor", "Kim", "Novak",
		"Rossi", "Haddad", "Silva", "Müller", "Nguyen", "Cohen", "Khan",
	}
	specializations = []string{
		"Cardiology", "Dermatology", "General Practice", "Neurology",
		"Orthopedics", "Pediatrics", "Psychiatry", "Ophthalmology",
	}
	openings = []string{"08:00", "09:00", "10:00"}
	closings = []string{"16:00", "17:00", "18:00"}

	weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
)

// DataGenerator produces deterministic demo accounts.
type DataGenerator struct {
	rng     *rand.Rand
	counter int
}

// NewDataGenerator returns a generator seeded for reproducibility. If seed is
// 0 a time-based seed is chosen.
func NewDataGenerator(seed int64) *DataGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DataGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *DataGenerator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

func (g *DataGenerator) randomPhone() string {
	return fmt.Sprintf("(%03d) %03d-%04d", 200+g.rng.Intn(800), 200+g.rng.Intn(800), g.rng.Intn(10000))
}

func (g *DataGenerator) person(kind string) (string, string) {
	g.counter++
	first, last := g.pick(firstNames), g.pick(lastNames)
	email := fmt.Sprintf("%s.%s.%s%d@appointix.test", strings.ToLower(first), asciiLower(last), kind, g.counter)
	return first + " " + last, email
}

// asciiLower keeps only ASCII letters so generated emails stay plain.
func asciiLower(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Schedule opens Monday to Friday with varied hours and opens Saturday
// mornings for some doctors. Sunday stays closed.
func (g *DataGenerator) Schedule() map[string]DayHours {
	out := make(map[string]DayHours, len(weekdays))
	start, end := g.pick(openings), g.pick(closings)
	for _, day := range weekdays[:5] {
		out[day] = DayHours{Open: true, Start: start, End: end}
	}
	if g.rng.Intn(3) == 0 {
		out["Saturday"] = DayHours{Open: true, Start: "09:00", End: "13:00"}
	} else {
		out["Saturday"] = DayHours{}
	}
	out["Sunday"] = DayHours{}
	return out
}

func (g *DataGenerator) GenerateDoctor() SyntheticDoctor {
	name, email := g.person("dr")
	spec := g.pick(specializations)
	return SyntheticDoctor{
		Name:           name,
		Email:          email,
		Specialization: spec,
		Phone:          g.randomPhone(),
		Bio:            fmt.Sprintf("%s specialist with %d years of practice.", spec, 3+g.rng.Intn(25)),
		Schedule:       g.Schedule(),
	}
}

func (g *DataGenerator) GeneratePatient() SyntheticPatient {
	name, email := g.person("pt")
	return SyntheticPatient{Name: name, Email: email}
}

// Sink stores generated accounts. An account that already exists is
// reported with an error wrapping apperr.ErrConflict.
type Sink interface {
	CreateDoctor(ctx context.Context, d SyntheticDoctor, password string) error
	CreatePatient(ctx context.Context, p SyntheticPatient, password string) error
}

type SeedResult struct {
	Doctors  int           `json:"doctors"`
	Patients int           `json:"patients"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// Seeder writes a generated data set into a Sink. Running it twice with
// the same seed skips the accounts the first run created.
type Seeder struct {
	generator *DataGenerator
	config    SeedConfig
	sink      Sink
	logger    zerolog.Logger
}

func NewSeeder(config SeedConfig, sink Sink, logger zerolog.Logger) *Seeder {
	return &Seeder{
		generator: NewDataGenerator(config.Seed),
		config:    config,
		sink:      sink,
		logger:    logger,
	}
}

func (s *Seeder) Run(ctx context.Context) (*SeedResult, error) {
	start := time.Now()
	result := &SeedResult{}

	for i := 0; i < s.config.DoctorCount; i++ {
		d := s.generator.GenerateDoctor()
		created, err := s.store(s.sink.CreateDoctor(ctx, d, s.config.Password), d.Email, result)
		if err != nil {
			return result, fmt.Errorf("seed doctor %s: %w", d.Email, err)
		}
		if created {
			result.Doctors++
		}
	}
	for i := 0; i < s.config.PatientCount; i++ {
		p := s.generator.GeneratePatient()
		created, err := s.store(s.sink.CreatePatient(ctx, p, s.config.Password), p.Email, result)
		if err != nil {
			return result, fmt.Errorf("seed patient %s: %w", p.Email, err)
		}
		if created {
			result.Patients++
		}
	}

	result.Duration = time.Since(start)
	s.logger.Info().
		Int("doctors", result.Doctors).
		Int("patients", result.Patients).
		Int("skipped", result.Skipped).
		Dur("elapsed", result.Duration).
		Msg("demo data seeded")
	return result, nil
}

func (s *Seeder) store(err error, email string, result *SeedResult) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperr.ErrConflict):
		s.logger.Debug().Str("email", email).Msg("account exists, skipping")
		result.Skipped++
		return false, nil
	default:
		return false, err
	}
}
