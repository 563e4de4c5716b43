package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-campus/internal/shared"
)

// Generic messages returned for authentication failures so callers cannot
// tell which part of the credential check failed.
const (
	MessageInvalidCredentials = "Invalid credentials"
	MessageUnauthenticated    = "Authentication required"
	MessageForbidden          = "Access denied"
	MessageInternal           = "Something went wrong, please try again later"
)

// RespondError maps domain errors to HTTP responses.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var fields shared.FieldErrors
	switch {
	case errors.As(err, &fields):
		Fail(w, http.StatusBadRequest, shared.ErrValidation.Error(), fields)
	case errors.Is(err, ErrMalformedBody):
		Fail(w, http.StatusBadRequest, ErrMalformedBody.Error(), nil)
	case errors.Is(err, shared.ErrInvalidCredentials), errors.Is(err, shared.ErrTokenInvalid):
		Fail(w, http.StatusUnauthorized, MessageInvalidCredentials, nil)
	case errors.Is(err, shared.ErrUnauthenticated):
		Fail(w, http.StatusUnauthorized, MessageUnauthenticated, nil)
	case errors.Is(err, shared.ErrForbidden):
		Fail(w, http.StatusForbidden, MessageForbidden, nil)
	case errors.Is(err, shared.ErrNotFound):
		Fail(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, shared.ErrValidation):
		Fail(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, shared.ErrConflict),
		errors.Is(err, shared.ErrStaleRecord),
		errors.Is(err, shared.ErrInvalidTransition),
		errors.Is(err, shared.ErrIdempotencyConflict):
		Fail(w, http.StatusConflict, err.Error(), nil)
	default:
		if logger != nil {
			logger.Error("unhandled error", slog.Any("error", err))
		}
		Fail(w, http.StatusInternalServerError, MessageInternal, nil)
	}
}

// ValidationFields converts validator errors into a field to message map.
// It returns nil when err is not a validator.ValidationErrors.
func ValidationFields(err error) shared.FieldErrors {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(shared.FieldErrors, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return fields
}

// Validate runs v against payload and returns shared.FieldErrors on failure.
func Validate(v *validator.Validate, payload any) error {
	if err := v.Struct(payload); err != nil {
		if fields := ValidationFields(err); fields != nil {
			return fields
		}
		return err
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "phone":
		return "must be 10 to 15 digits with an optional leading +"
	default:
		return "is invalid"
	}
}
