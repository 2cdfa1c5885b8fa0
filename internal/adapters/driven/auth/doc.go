// Package auth provides the bearer token used to call the backend.
//
// Tokens are issued by an external identity provider. This package only
// reads them: from settings, from a file kept current by another process,
// or nowhere at all. Claims are decoded without verification to describe
// the token and to fail fast on expiry.
package auth
