package domain

import "time"

// Identity describes the holder of a bearer token as reported by its claims.
// Claims are read without signature verification; the backend remains the verifier.
type Identity struct {
	// Subject is the user ID ("sub" or "user_id").
	Subject string

	// Email is the user's email, when present.
	Email string

	// Issuer is the identity provider.
	Issuer string

	// ExpiresAt is the token expiry; zero when the token has none.
	ExpiresAt time.Time
}

// IsExpired returns true if the token has expired.
func (i Identity) IsExpired() bool {
	if i.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(i.ExpiresAt)
}

// TokenSourceKind says where the bearer token comes from.
type TokenSourceKind string

// Token source kinds.
const (
	TokenSourceNone   TokenSourceKind = "none"
	TokenSourceStatic TokenSourceKind = "static"
	TokenSourceFile   TokenSourceKind = "file"
)
