package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vatsl808/appointix/internal/domain/doctor"
	"github.com/vatsl808/appointix/internal/domain/identity"
	"github.com/vatsl808/appointix/internal/platform/auth"
	"github.com/vatsl808/appointix/internal/platform/blobstore"
	"github.com/vatsl808/appointix/internal/platform/sandbox"
)

// accountSink registers generated accounts through the identity service so
// passwords are hashed and doctor profiles are created like a real signup.
type accountSink struct {
	users   *identity.Service
	doctors *doctor.Service
}

func (s accountSink) CreateDoctor(ctx context.Context, d sandbox.SyntheticDoctor, password string) error {
	u, err := s.users.Register(ctx, identity.RegisterInput{
		Email:          d.Email,
		Password:       password,
		UserType:       auth.RoleDoctor,
		Name:           d.Name,
		Specialization: d.Specialization,
		Phone:          &d.Phone,
		Bio:            &d.Bio,
	})
	if err != nil {
		return err
	}
	id, err := s.doctors.IDForUser(ctx, u.ID)
	if err != nil {
		return err
	}
	schedule := make(doctor.AvailabilitySchedule, len(d.Schedule))
	for day, h := range d.Schedule {
		schedule[day] = doctor.DaySchedule{IsAvailable: h.Open, StartTime: h.Start, EndTime: h.End}
	}
	_, err = s.doctors.UpdateAvailability(ctx, doctor.ID(id), schedule)
	return err
}

func (s accountSink) CreatePatient(ctx context.Context, p sandbox.SyntheticPatient, password string) error {
	_, err := s.users.Register(ctx, identity.RegisterInput{
		Email:    p.Email,
		Password: password,
		UserType: auth.RolePatient,
		Name:     p.Name,
	})
	return err
}

func seedCmd() *cobra.Command {
	defaults := sandbox.DefaultSeedConfig()
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create demo doctors and patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.IsProduction() {
				return fmt.Errorf("refusing to seed demo accounts with ENV=production")
			}
			logger := newLogger(cfg)

			seedCfg := defaults
			seedCfg.DoctorCount, _ = cmd.Flags().GetInt("doctors")
			seedCfg.PatientCount, _ = cmd.Flags().GetInt("patients")
			seedCfg.Seed, _ = cmd.Flags().GetInt64("seed")
			seedCfg.Password, _ = cmd.Flags().GetString("password")

			st, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer st.close()

			issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
			svc := newServices(st, blobstore.NewInMemoryStore(cfg.MaxUploadBytes), nil, issuer, logger)

			res, err := sandbox.NewSeeder(seedCfg, accountSink{users: svc.identity, doctors: svc.doctors}, logger).Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Created %d doctor(s) and %d patient(s); %d already existed.\n", res.Doctors, res.Patients, res.Skipped)
			fmt.Printf("Demo password: %s\n", seedCfg.Password)
			return nil
		},
	}
	cmd.Flags().Int("doctors", defaults.DoctorCount, "Number of doctors to create")
	cmd.Flags().Int("patients", defaults.PatientCount, "Number of patients to create")
	cmd.Flags().Int64("seed", defaults.Seed, "Random seed; the same seed yields the same accounts")
	cmd.Flags().String("password", defaults.Password, "Password for every demo account")
	return cmd
}
