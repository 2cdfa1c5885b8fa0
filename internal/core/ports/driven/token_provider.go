package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// TokenProvider provides bearer tokens for authenticated API calls.
// Tokens are issued by an external identity provider; implementations
// only read them from where they are stored.
type TokenProvider interface {
	// GetToken returns the current bearer token.
	// Returns domain.ErrAuthRequired when none is configured and
	// domain.ErrAuthExpired when the token's claims say it has expired.
	GetToken(ctx context.Context) (string, error)

	// Kind returns where the token is read from.
	Kind() domain.TokenSourceKind

	// IsAuthenticated returns true if a token is available.
	IsAuthenticated() bool
}
