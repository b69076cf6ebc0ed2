// Package checkout validates booking input and turns a valid selection into
// a payment request for the gateway.
package checkout

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vpoguide/backend/internal/domain"
	"github.com/vpoguide/backend/internal/selection"
)

// DateLayout is the wire format of the activation date.
const DateLayout = "2006-01-02"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// FieldErrors maps a customer form field (JSON name) to its message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for f, msg := range fe {
		parts = append(parts, f+": "+msg)
	}
	return strings.Join(parts, "; ")
}

// Validator checks a checkout attempt before anything is sent to the gateway.
type Validator struct {
	validate *validator.Validate
	loc      *time.Location
	now      func() time.Time
}

// NewValidator builds a validator that judges dates in loc.
func NewValidator(loc *time.Location) *Validator {
	if loc == nil {
		loc = time.UTC
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("simpleemail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return &Validator{validate: v, loc: loc, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	cp := *v
	cp.now = now
	return &cp
}

// Validate runs the booking checks in order and stops at the first failure:
// plan, then activation date, then passengers.
func (v *Validator) Validate(s selection.State, date string) error {
	if s.Phase() == selection.NoPlanSelected {
		return domain.ErrMissingPlan
	}
	if err := v.ValidateDate(date); err != nil {
		return err
	}
	if s.Passengers() < 1 {
		return domain.ErrMissingPassengers
	}
	return nil
}

// ValidateDate accepts dates from tomorrow onwards in the configured location.
func (v *Validator) ValidateDate(date string) error {
	date = strings.TrimSpace(date)
	if date == "" {
		return domain.ErrInvalidDate
	}
	d, err := time.ParseInLocation(DateLayout, date, v.loc)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidDate, date)
	}
	now := v.now().In(v.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, v.loc)
	if !d.After(today) {
		return fmt.Errorf("%w: %s is not after today", domain.ErrInvalidDate, date)
	}
	return nil
}

// ValidateCustomer reports every missing or malformed customer field. It
// returns nil when the form is complete.
func (v *Validator) ValidateCustomer(c domain.Customer) FieldErrors {
	c = trimCustomer(c)
	err := v.validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"customer": err.Error()}
	}
	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			out[fe.Field()] = "this field is required"
		case "simpleemail":
			out[fe.Field()] = "please enter a valid email address"
		case "max":
			out[fe.Field()] = "must be at most " + fe.Param() + " characters"
		default:
			out[fe.Field()] = "invalid value"
		}
	}
	return out
}

func trimCustomer(c domain.Customer) domain.Customer {
	c.FullName = strings.TrimSpace(c.FullName)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address = strings.TrimSpace(c.Address)
	c.City = strings.TrimSpace(c.City)
	c.Country = strings.TrimSpace(c.Country)
	return c
}
