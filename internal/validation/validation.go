// Package validation checks request structs against their `validate` tags.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names so errors match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})

	if err := v.RegisterValidation("password", strongPassword); err != nil {
		panic(err)
	}
	return v
}

// strongPassword requires a lowercase letter, an uppercase letter and a digit.
func strongPassword(fl validator.FieldLevel) bool {
	var lower, upper, digit bool
	for _, r := range fl.Field().String() {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return lower && upper && digit
}

// FieldError is the first rule a value broke.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Message }

// Struct validates s and returns the first failing field, or nil.
func Struct(s any) *FieldError {
	return first(validate.Struct(s), "")
}

// Var validates a single value as if it were the field named field.
func Var(field string, value any, tag string) *FieldError {
	return first(validate.Var(value, tag), field)
}

func first(err error, field string) *FieldError {
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return &FieldError{Field: field, Message: err.Error()}
	}
	fe := errs[0]
	if field == "" {
		field = fe.Field()
	}
	return &FieldError{Field: field, Message: message(fe)}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Param() == "1" {
			return "must not be empty"
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	case "http_url":
		return "must be an absolute http or https URL"
	case "hexcolor":
		return "must be a #RRGGBB hex color"
	case "oneof":
		return "must be one of " + fe.Param()
	case "password":
		return "must mix lowercase letters, uppercase letters and digits"
	default:
		return "failed the " + fe.Tag() + " rule"
	}
}
