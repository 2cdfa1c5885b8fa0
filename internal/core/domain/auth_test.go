package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIdentity_IsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{name: "no expiry", expiresAt: time.Time{}, want: false},
		{name: "future", expiresAt: time.Now().Add(time.Hour), want: false},
		{name: "past", expiresAt: time.Now().Add(-time.Minute), want: true},
		{name: "far past", expiresAt: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := Identity{Subject: "user-1", ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, id.IsExpired())
		})
	}
}

func TestTokenSourceKind_Values(t *testing.T) {
	assert.Equal(t, TokenSourceKind("none"), TokenSourceNone)
	assert.Equal(t, TokenSourceKind("static"), TokenSourceStatic)
	assert.Equal(t, TokenSourceKind("file"), TokenSourceFile)
}
