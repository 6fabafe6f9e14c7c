package utils

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/flight-booking/internal/model"
)

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Validator adapts go-playground/validator to echo.Validator and registers
// the booking-specific rules:
//
//	gate     GATEnn
//	isodate  YYYY-MM-DD or an RFC 3339 timestamp
//	clock    HH:MM on a 24h clock
type Validator struct {
	v *validator.Validate
}

// NewValidator returns a Validator with the custom rules registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names rather than Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// gate and isodate defer to the model so binding and storage agree
	mustRegister(v, "gate", func(fl validator.FieldLevel) bool {
		return model.ValidGate(fl.Field().String())
	})
	mustRegister(v, "isodate", func(fl validator.FieldLevel) bool {
		_, err := model.NormalizeDate(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "clock", func(fl validator.FieldLevel) bool {
		return clockPattern.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// Validate implements echo.Validator.
func (cv *Validator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}

// ValidationMessage renders a validator error as a single human readable
// line such as "email: must be a valid email; age: must be >= 0".  Other
// errors are returned verbatim.
func ValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+": "+describe(fe))
	}
	return strings.Join(parts, "; ")
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "gate":
		return "must look like GATE01"
	case "isodate":
		return "must be a date (YYYY-MM-DD)"
	case "clock":
		return "must be a time of day (HH:MM)"
	case "min", "gte":
		return "must be >= " + fe.Param()
	case "max", "lte":
		return "must be <= " + fe.Param()
	case "ltefield":
		return "must not exceed " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}
