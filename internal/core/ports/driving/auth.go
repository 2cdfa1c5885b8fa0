package driving

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// AuthService manages the bearer token used to reach the backend.
type AuthService interface {
	// Login stores a token issued by the identity provider.
	Login(token string) (*domain.Identity, error)

	// Logout forgets the stored token.
	Logout() error

	// Status describes the current token.
	Status(ctx context.Context) (*domain.Identity, error)
}
