package jwtx

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ParseUnverified decodes the claims of a JWT without checking its
// signature. Only use the result for client-side scheduling decisions (when
// to refresh), never for authorization.
func ParseUnverified(token string) (Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return claims, nil
}

// ExpiresAt returns the exp claim of token. ok is false for opaque
// (non-JWT) tokens and for JWTs without an exp claim.
func ExpiresAt(token string) (exp time.Time, ok bool) {
	claims, err := ParseUnverified(token)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
