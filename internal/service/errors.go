package service

import (
	"errors"
	"fmt"

	"smartlink/internal/storage"
	"smartlink/internal/validation"
)

var (
	// ErrNotFound is returned when the requested record does not belong to the user or does not exist.
	ErrNotFound = storage.ErrNotFound
	// ErrDuplicateURL is returned when the user already saved the URL.
	ErrDuplicateURL = errors.New("url already saved")
	// ErrTagExists is returned when the user already has a tag with that name.
	ErrTagExists = errors.New("tag already exists")
	// ErrSystemCategory is returned when deleting a system category.
	ErrSystemCategory = errors.New("system categories cannot be deleted")
)

// ValidationError reports a single invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// check validates a request struct against its validate tags.
func check(s any) error {
	return fromField(validation.Struct(s))
}

func checkVar(field string, value any, tag string) error {
	return fromField(validation.Var(field, value, tag))
}

func fromField(fe *validation.FieldError) error {
	if fe == nil {
		return nil
	}
	return &ValidationError{Field: fe.Field, Message: fe.Message}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
