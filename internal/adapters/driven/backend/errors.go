package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// DefaultErrorMessage is shown when the backend gives no reason.
const DefaultErrorMessage = "An unexpected error occurred."

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// APIError is a non-success response from the backend.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

// Error returns the backend's reason, suitable for showing to the user.
func (e *APIError) Error() string {
	if e.Message == "" {
		return DefaultErrorMessage
	}
	return e.Message
}

// Unwrap maps well-known status codes to domain errors.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrUnauthorized
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case http.StatusUnsupportedMediaType:
		return domain.ErrUnsupportedType
	case http.StatusBadRequest:
		return domain.ErrInvalidInput
	default:
		return nil
	}
}

// ErrorMessage returns the user-facing text for err: the backend's reason
// for API errors and DefaultErrorMessage for everything else.
func ErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return DefaultErrorMessage
}

// readAPIError builds an APIError from a non-success response.
// The body is either {"error": "..."} or plain text.
func readAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if resp.Request != nil && resp.Request.URL != nil {
		apiErr.URL = resp.Request.URL.String()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		apiErr.Message = payload.Error
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}

// wrapTransport labels a transport failure with the operation.
// Errors raised inside the middleware chain keep their identity.
func wrapTransport(op string, err error) error {
	return fmt.Errorf("%s: %w", op, unwrapURLError(err))
}
