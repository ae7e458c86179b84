package exchange

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError carries the broker's status and error code so callers can
// distinguish rejections from transport failures.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("broker API error %d (status %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("broker API error (status %d): %s", e.StatusCode, e.Message)
}

// NewAPIError builds an APIError for a non-2xx broker response.
func NewAPIError(statusCode, code int, message string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Message: message}
}

// IsRetryable reports whether an error is worth retrying: transient
// server-side or rate-limit failures, not rejections.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsRejection reports whether the broker explicitly refused the order.
func IsRejection(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 &&
		apiErr.StatusCode != http.StatusTooManyRequests
}
