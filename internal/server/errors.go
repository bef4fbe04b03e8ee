package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/interview-dispatch/internal/mailer"
	"github.com/jonathan/interview-dispatch/internal/records"
	"github.com/jonathan/interview-dispatch/internal/schemas"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validationErr *ErrValidation
		schemaErr     *schemas.ValidationError
		recordErr     *records.ValidationError
		apiErr        *mailer.APIError
		transportErr  *mailer.TransportError
	)
	switch {
	case err == nil:
		return http.StatusInternalServerError
	case errors.As(err, &validationErr), errors.As(err, &schemaErr), errors.As(err, &recordErr):
		return http.StatusBadRequest
	case errors.Is(err, records.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, records.ErrAlreadySent):
		return http.StatusConflict
	case errors.Is(err, records.ErrBatchTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	case errors.As(err, &transportErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
