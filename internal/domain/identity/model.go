package identity

import (
	"strings"
	"time"

	"github.com/vatsl808/appointix/internal/platform/auth"
)

// UserID identifies an account. A doctor's account id is distinct from the
// id of the doctor profile it owns.
type UserID string

func (id UserID) String() string { return string(id) }

type User struct {
	ID           UserID    `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	UserType     string    `json:"userType" bson:"user_type"`
	Name         string    `json:"name" bson:"name"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}

func (u *User) IsDoctor() bool { return u.UserType == auth.RoleDoctor }

// ValidUserType reports whether t is a known account type.
func ValidUserType(t string) bool {
	return t == auth.RolePatient || t == auth.RoleDoctor
}

// NormalizeEmail lower-cases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterInput is the registration payload. Specialization is required
// for doctors only.
type RegisterInput struct {
	Email          string  `json:"email" validate:"required,email"`
	Password       string  `json:"password" validate:"required,max=72"`
	UserType       string  `json:"userType" validate:"required"`
	Name           string  `json:"name" validate:"required"`
	Specialization string  `json:"specialization"`
	Phone          *string `json:"phone"`
	Bio            *string `json:"bio"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	UserType string `json:"userType" validate:"required"`
}

// LoginResult is returned on successful authentication. DoctorID is set
// for doctors only.
type LoginResult struct {
	Token    string `json:"token"`
	UserType string `json:"userType"`
	DoctorID string `json:"doctorId,omitempty"`
}

// DoctorDetails carries the profile fields collected at registration.
type DoctorDetails struct {
	Specialization string
	Phone          *string
	Bio            *string
}
