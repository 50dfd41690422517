// Package identity checks bearer tokens issued by the hosted auth provider.
package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrMissingToken    = errors.New("token not provided")
	ErrMalformedScheme = errors.New("authorization header must be 'Bearer <token>'")
	ErrInvalidToken    = errors.New("invalid token")

	// ErrProviderUnavailable means the provider could not answer; the token
	// itself may be fine.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

// Identity is the authenticated caller.
type Identity struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// ParseAuthorization extracts the token from an "Authorization: Bearer <token>"
// header value. The scheme is matched case-insensitively.
func ParseAuthorization(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", ErrMalformedScheme
	}
	return parts[1], nil
}
