package services

import (
	"errors"
	"fmt"
)

// ErrStreakConflict is returned when the streak row changed between read and write.
var ErrStreakConflict = errors.New("streak record was modified concurrently")

// ErrUserNotFound is returned when the account behind a request no longer exists.
var ErrUserNotFound = errors.New("user not found")

// ValidationError reports malformed input. It is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
