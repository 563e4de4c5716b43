package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated is returned when a request carries no usable bearer token.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrTokenInvalid is the parent of every token verification failure.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrForbidden indicates the caller lacks the role for the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict indicates a uniqueness violation on an identity field.
	ErrConflict = errors.New("already exists")
	// ErrValidation indicates malformed or out of range input.
	ErrValidation = errors.New("validation failed")
	// ErrStaleRecord is returned when an optimistic update lost a race.
	ErrStaleRecord = errors.New("record was modified concurrently")
	// ErrInvalidTransition indicates a forbidden workflow state change.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// FieldErrors carries per-field validation messages alongside ErrValidation.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	return ErrValidation.Error()
}

// Unwrap lets errors.Is(err, ErrValidation) match FieldErrors values.
func (f FieldErrors) Unwrap() error {
	return ErrValidation
}
