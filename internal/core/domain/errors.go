package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates a file type the backend cannot process.
	ErrUnsupportedType = errors.New("unsupported file type")

	// Authentication Errors.

	// ErrAuthRequired indicates no token is configured.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthExpired indicates the configured token has expired.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrAuthInvalid indicates the configured token cannot be parsed.
	ErrAuthInvalid = errors.New("authentication invalid")

	// ErrUnauthorized indicates the backend rejected the credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// Transport Errors.

	// ErrRateLimited indicates the backend rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrNoResponseBody indicates a streaming response arrived without a body.
	ErrNoResponseBody = errors.New("no response body")

	// ErrStreamClosed indicates a frame stream was read after being closed.
	ErrStreamClosed = errors.New("stream closed")

	// Controller Errors.

	// ErrConversationClosed indicates a send on a torn-down conversation.
	ErrConversationClosed = errors.New("conversation closed")

	// ErrPollTimeout indicates a document stayed in processing beyond the configured limit.
	ErrPollTimeout = errors.New("processing timed out")
)
