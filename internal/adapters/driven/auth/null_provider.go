package auth

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure NullTokenProvider implements the TokenProvider interface.
var _ driven.TokenProvider = (*NullTokenProvider)(nil)

// NullTokenProvider is used when no token is configured.
// Every authenticated call fails before reaching the network.
type NullTokenProvider struct{}

// NewNullTokenProvider creates a token provider with no token.
func NewNullTokenProvider() *NullTokenProvider {
	return &NullTokenProvider{}
}

// GetToken returns domain.ErrAuthRequired.
func (p *NullTokenProvider) GetToken(_ context.Context) (string, error) {
	return "", domain.ErrAuthRequired
}

// Kind returns TokenSourceNone.
func (p *NullTokenProvider) Kind() domain.TokenSourceKind {
	return domain.TokenSourceNone
}

// IsAuthenticated always returns false.
func (p *NullTokenProvider) IsAuthenticated() bool {
	return false
}
