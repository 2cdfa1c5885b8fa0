package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// Ensure AuthService implements the interface.
var _ driving.AuthService = (*AuthService)(nil)

// AuthService stores and describes the bearer token issued by the identity provider.
type AuthService struct {
	configStore driven.ConfigStore
	inspector   driven.TokenInspector
	provider    driven.TokenProvider
}

// NewAuthService creates a new auth service.
// provider is the token source the running process authenticates with.
func NewAuthService(
	configStore driven.ConfigStore,
	inspector driven.TokenInspector,
	provider driven.TokenProvider,
) *AuthService {
	return &AuthService{
		configStore: configStore,
		inspector:   inspector,
		provider:    provider,
	}
}

// Login checks the token's claims and stores it in the config.
func (s *AuthService) Login(token string) (*domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: token is empty", domain.ErrInvalidInput)
	}

	identity, err := s.inspector.Inspect(token)
	if err != nil {
		return nil, err
	}
	if identity.IsExpired() {
		return nil, domain.ErrAuthExpired
	}

	if err := s.configStore.Set(keyAuthToken, token); err != nil {
		return nil, fmt.Errorf("save token: %w", err)
	}
	return identity, nil
}

// Logout forgets the stored token.
func (s *AuthService) Logout() error {
	if err := s.configStore.Set(keyAuthToken, ""); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// Status describes the token the process currently authenticates with.
func (s *AuthService) Status(ctx context.Context) (*domain.Identity, error) {
	if s.provider == nil {
		return nil, domain.ErrAuthRequired
	}
	token, err := s.provider.GetToken(ctx)
	if err != nil {
		return nil, err
	}
	return s.inspector.Inspect(token)
}
