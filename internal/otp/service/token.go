package service

import (
	"time"

	"github.com/aussiebroadwan/agrowcrop/pkg/agrosdk"
	"github.com/aussiebroadwan/agrowcrop/pkg/jwtx"
)

// TokenService mints session tokens for verified phones.
type TokenService struct {
	Signer jwtx.Signer
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

// SessionToken is what a successful verification hands back to the client.
type SessionToken struct {
	Token     string
	Role      string
	ExpiresAt time.Time
}

// Issue signs a token for phone. Every phone-verified user is a Farmer.
func (s *TokenService) Issue(phone string) (SessionToken, error) {
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = jwtx.DefaultSessionTokenTTL
	}

	claims := jwtx.NewSessionClaims(phone, agrosdk.RoleFarmer, s.Issuer, ttl, now)
	token, err := s.Signer.Sign(claims)
	if err != nil {
		return SessionToken{}, err
	}

	return SessionToken{
		Token:     token,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
