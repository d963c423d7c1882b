// Package validate wraps go-playground/validator with the field rules used by
// Appointix request structs.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vatsl808/appointix/internal/platform/apperr"
)

var (
	clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
	datePattern  = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}$`)
	idPattern    = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

// Validator validates request structs and reports failures as
// apperr.ErrValidation.
type Validator struct {
	v *validator.Validate
}

// New builds a Validator with the custom tags:
//
//	hhmm    zero-padded 24h clock time, e.g. "09:30"
//	ymd     calendar date "YYYY-MM-DD"
//	opaqueid record identifier
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return IsClock(fl.Field().String())
	})
	_ = v.RegisterValidation("ymd", func(fl validator.FieldLevel) bool {
		return IsDate(fl.Field().String())
	})
	_ = v.RegisterValidation("opaqueid", func(fl validator.FieldLevel) bool {
		return IsID(fl.Field().String())
	})
	return &Validator{v: v}
}

// Struct validates s. Missing required fields are listed together so a
// caller sees every problem in one response.
func (val *Validator) Struct(s interface{}) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("%v", err)
	}

	var missing, invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
			continue
		}
		invalid = append(invalid, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	switch {
	case len(missing) > 0 && len(invalid) > 0:
		return apperr.Validation("missing required fields (%s); invalid fields: %s",
			strings.Join(missing, ", "), strings.Join(invalid, ", "))
	case len(missing) > 0:
		return apperr.Validation("missing required fields (%s)", strings.Join(missing, ", "))
	default:
		return apperr.Validation("invalid fields: %s", strings.Join(invalid, ", "))
	}
}

// Validate satisfies echo.Validator so handlers can call c.Validate.
func (val *Validator) Validate(i interface{}) error {
	return val.Struct(i)
}

// IsClock reports whether s is a zero-padded "HH:MM" time.
func IsClock(s string) bool {
	return clockPattern.MatchString(s)
}

// IsDate reports whether s is a real calendar date in "YYYY-MM-DD" form.
func IsDate(s string) bool {
	if !datePattern.MatchString(s) {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// IsID reports whether s looks like a record identifier. Identifiers are
// opaque: uuids from Postgres and ObjectID hex strings from Mongo both pass.
func IsID(s string) bool {
	return idPattern.MatchString(s)
}
