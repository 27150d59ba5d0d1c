package appointments

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		return clockPattern.MatchString(fl.Field().String())
	})
	return v
}

// IsClock reports whether s is a 24-hour "HH:MM" string.
func IsClock(s string) bool {
	return clockPattern.MatchString(s)
}

// Validate checks required fields and enum values.
func (a Appointment) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAppointment, err)
	}
	return nil
}

// Validate checks the patch id and the format of any provided field.
func (p Patch) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAppointment, err)
	}
	return nil
}

// Validate checks a doctor record.
func (d Doctor) Validate() error {
	if d.ID.IsZero() {
		return fmt.Errorf("%w: id is required", ErrInvalidDoctor)
	}
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDoctor, err)
	}
	return nil
}
