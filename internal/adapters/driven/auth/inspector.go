package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure JWTInspector implements the interface.
var _ driven.TokenInspector = (*JWTInspector)(nil)

// tokenClaims are the claims read from an identity provider token.
type tokenClaims struct {
	Email  string `json:"email"`
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// JWTInspector reads identity claims from JWT bearer tokens.
type JWTInspector struct {
	parser *jwt.Parser
}

// NewJWTInspector creates a new inspector.
func NewJWTInspector() *JWTInspector {
	return &JWTInspector{parser: jwt.NewParser()}
}

// Inspect decodes the token's claims without verifying its signature.
func (i *JWTInspector) Inspect(token string) (*domain.Identity, error) {
	var claims tokenClaims
	if _, _, err := i.parser.ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthInvalid, err)
	}

	identity := &domain.Identity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Issuer:  claims.Issuer,
	}
	if identity.Subject == "" {
		identity.Subject = claims.UserID
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}

// checkExpiry fails with domain.ErrAuthExpired when the token's claims say
// it has expired. Tokens that are not JWTs pass unchecked.
func checkExpiry(inspector driven.TokenInspector, token string) error {
	if inspector == nil {
		return nil
	}
	identity, err := inspector.Inspect(token)
	if err != nil {
		return nil
	}
	if identity.IsExpired() {
		return domain.ErrAuthExpired
	}
	return nil
}
