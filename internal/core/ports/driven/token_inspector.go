package driven

import "github.com/custodia-labs/docchat/internal/core/domain"

// TokenInspector reads the identity claims carried by a bearer token.
// It does not verify signatures; the backend does that.
type TokenInspector interface {
	// Inspect returns the identity described by token.
	// Returns domain.ErrAuthInvalid when the token cannot be parsed.
	Inspect(token string) (*domain.Identity, error)
}
