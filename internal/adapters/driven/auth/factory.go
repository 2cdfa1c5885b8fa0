package auth

import (
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// NewTokenProvider creates the provider the settings select.
// A token file takes precedence over a literal token.
func NewTokenProvider(settings domain.AuthSettings, inspector driven.TokenInspector) (driven.TokenProvider, error) {
	switch settings.Kind() {
	case domain.TokenSourceFile:
		p, err := NewFileTokenProvider(settings.TokenFile, inspector)
		if err != nil {
			return nil, err
		}
		return p, nil
	case domain.TokenSourceStatic:
		return NewStaticTokenProvider(settings.Token, inspector), nil
	default:
		return NewNullTokenProvider(), nil
	}
}
