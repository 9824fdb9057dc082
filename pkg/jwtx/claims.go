package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTokenTTL is how long a token minted after OTP verification
// stays valid. Local sessions keep the token until logout, so this is long.
const DefaultSessionTokenTTL = 24 * time.Hour

// Claims are the session-token claims shared by the OTP service (issuer) and
// the client SDK (reader).
type Claims struct {
	jwt.RegisteredClaims

	// Role of the user, e.g. "Farmer"
	Role string `json:"role,omitempty"`

	// Phone in canonical +<cc><digits> form. Mirrors sub for OTP sessions
	// but is kept separate so other issuers can use an opaque subject.
	Phone string `json:"phone,omitempty"`

	// Authentication Methods Reference, "otp" for phone verification
	AMR []string `json:"amr,omitempty"`
}

// NewSessionClaims builds minimally-correct claims for a verified phone.
func NewSessionClaims(phone, role, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   phone,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Role:  role,
		Phone: phone,
		AMR:   []string{"otp"},
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateExpiry ensures the token hasn’t expired (exp) and isn’t before nbf.
func (c *Claims) ValidateExpiry() error {
	return c.ValidateExpiryWithLeeway(0)
}

// ValidateExpiryWithLeeway adds a small grace period for clock skew.
func (c *Claims) ValidateExpiryWithLeeway(leeway time.Duration) error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}

	return nil
}
