package auth

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// TokenSourceAdapter adapts a TokenProvider to oauth2.TokenSource so the
// backend client can authenticate through oauth2.Transport.
type TokenSourceAdapter struct {
	provider driven.TokenProvider
	ctx      context.Context
}

// NewTokenSource creates an oauth2.TokenSource from a TokenProvider.
// The provider is asked on every request, so file reloads take effect at once.
func NewTokenSource(ctx context.Context, provider driven.TokenProvider) oauth2.TokenSource {
	return &TokenSourceAdapter{
		provider: provider,
		ctx:      ctx,
	}
}

// Token implements oauth2.TokenSource.
func (t *TokenSourceAdapter) Token() (*oauth2.Token, error) {
	accessToken, err := t.provider.GetToken(t.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}, nil
}
