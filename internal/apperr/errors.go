package apperr

import "errors"

var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidRole       = errors.New("invalid recipient role")
	ErrNoRecipientsFound = errors.New("no recipients found matching the criteria")
	ErrNotFound          = errors.New("notification not found")
	ErrPersistence       = errors.New("persistence failure")
)

// ValidationError represents a field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Code returns the stable kind string for err, as exposed to API callers.
func Code(err error) string {
	var validationErr *ValidationError
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidRole):
		return "invalid_role"
	case errors.Is(err, ErrNoRecipientsFound):
		return "no_recipients_found"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.As(err, &validationErr):
		return "validation_error"
	case errors.Is(err, ErrPersistence):
		return "persistence_failure"
	default:
		return "internal_error"
	}
}
