package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
)

// Claims is the payload of an Appointix access token. Subject carries the
// user id; DoctorID is the doctor profile id and is only set for doctors.
type Claims struct {
	jwt.RegisteredClaims
	UserType string `json:"user_type"`
	DoctorID string `json:"doctor_id,omitempty"`
}

// Issuer signs and verifies HS256 access tokens.
type Issuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{key: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for the given identity.
func (i *Issuer) Issue(p Principal) (string, error) {
	if p.UserID == "" {
		return "", errors.New("issue token: user id is required")
	}
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		UserType: p.Role,
		DoctorID: p.DoctorID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies tokenStr and returns the principal it carries.
func (i *Issuer) Parse(tokenStr string) (Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return i.key, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil {
		return Principal{}, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return Principal{}, errors.New("parse token: invalid claims")
	}
	return Principal{UserID: claims.Subject, Role: claims.UserType, DoctorID: claims.DoctorID}, nil
}
