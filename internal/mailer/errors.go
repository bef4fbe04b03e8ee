package mailer

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a response from MailerSend with a status other than 200 or 202.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("MailerSend API failed with status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed if sent again.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// TransportError is a failure before a response status was received.
type TransportError struct {
	Op    string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("mailersend %s: %v", e.Op, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether err came from a send that was not accepted and may be retried.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}
