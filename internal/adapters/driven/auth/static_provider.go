package auth

import (
	"context"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure StaticTokenProvider implements the TokenProvider interface.
var _ driven.TokenProvider = (*StaticTokenProvider)(nil)

// StaticTokenProvider serves a token given in settings or the environment.
type StaticTokenProvider struct {
	token     string
	inspector driven.TokenInspector
}

// NewStaticTokenProvider creates a provider for a literal token.
// inspector may be nil to skip expiry checks.
func NewStaticTokenProvider(token string, inspector driven.TokenInspector) *StaticTokenProvider {
	return &StaticTokenProvider{
		token:     strings.TrimSpace(token),
		inspector: inspector,
	}
}

// GetToken returns the token, failing early when its claims say it has expired.
func (p *StaticTokenProvider) GetToken(_ context.Context) (string, error) {
	if p.token == "" {
		return "", domain.ErrAuthRequired
	}
	if err := checkExpiry(p.inspector, p.token); err != nil {
		return "", err
	}
	return p.token, nil
}

// Kind returns TokenSourceStatic.
func (p *StaticTokenProvider) Kind() domain.TokenSourceKind {
	return domain.TokenSourceStatic
}

// IsAuthenticated returns true if a token is set.
func (p *StaticTokenProvider) IsAuthenticated() bool {
	return p.token != ""
}
