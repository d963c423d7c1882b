package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/vatsl808/appointix/internal/platform/apperr"
	"github.com/vatsl808/appointix/internal/platform/auth"
	"github.com/vatsl808/appointix/internal/platform/metrics"
	"github.com/vatsl808/appointix/internal/platform/validate"
)

// ErrInvalidCredentials is returned for every failed login so callers cannot
// tell which part of the combination was wrong.
var ErrInvalidCredentials = fmt.Errorf("%w: Invalid email, password, or user type combination", apperr.ErrUnauthorized)

type Service struct {
	users    Repository
	doctors  DoctorProfiles
	tx       Transactor
	issuer   *auth.Issuer
	validate *validate.Validator
	logger   zerolog.Logger
	hashCost int
}

func NewService(users Repository, doctors DoctorProfiles, tx Transactor, issuer *auth.Issuer, v *validate.Validator, logger zerolog.Logger) *Service {
	return &Service{
		users:    users,
		doctors:  doctors,
		tx:       tx,
		issuer:   issuer,
		validate: v,
		logger:   logger,
		hashCost: bcrypt.DefaultCost,
	}
}

// Register creates an account. Doctors get a profile with an all-closed
// schedule in the same transaction.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	email := in.Email

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: Email address already registered.", apperr.ErrConflict)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	if !ValidUserType(in.UserType) {
		return nil, apperr.Validation("Invalid userType specified. Must be 'patient' or 'doctor'.")
	}
	if in.UserType == auth.RoleDoctor && strings.TrimSpace(in.Specialization) == "" {
		return nil, apperr.Validation("Specialization is required for doctors.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		Email:        email,
		PasswordHash: string(hash),
		UserType:     in.UserType,
		Name:         strings.TrimSpace(in.Name),
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, u); err != nil {
			return err
		}
		if !u.IsDoctor() {
			return nil
		}
		_, err := s.doctors.CreateForUser(ctx, u, DoctorDetails{
			Specialization: strings.TrimSpace(in.Specialization),
			Phone:          in.Phone,
			Bio:            in.Bio,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, fmt.Errorf("%w: Email address already registered.", apperr.ErrConflict)
		}
		return nil, fmt.Errorf("register %s: %w", u.UserType, err)
	}

	metrics.IncRegistration(u.UserType)
	s.logger.Info().Str("user_id", u.ID.String()).Str("user_type", u.UserType).Msg("user registered")
	return u, nil
}

// Login checks the email, password and user type together and issues an
// access token.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return nil, apperr.Validation("Missing email, password, or userType")
	}

	u, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u.UserType != in.UserType {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	p := auth.Principal{UserID: u.ID.String(), Role: u.UserType}
	if u.IsDoctor() {
		doctorID, err := s.doctors.IDForUser(ctx, u.ID)
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", u.ID.String()).Msg("doctor account without profile")
			return nil, fmt.Errorf("resolve doctor profile: %w", err)
		}
		p.DoctorID = doctorID
	}

	token, err := s.issuer.Issue(p)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, UserType: u.UserType, DoctorID: p.DoctorID}, nil
}

func (s *Service) GetUser(ctx context.Context, id UserID) (*User, error) {
	return s.users.GetByID(ctx, id)
}
