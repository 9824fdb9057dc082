package service

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/agrowcrop/pkg/agrosdk"
	"github.com/aussiebroadwan/agrowcrop/pkg/cryptox"
	"github.com/aussiebroadwan/agrowcrop/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestTokenServiceIssue(t *testing.T) {
	t.Parallel()

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	signer, err := jwtx.NewSignerEdDSA("test-kid", pemKey)
	require.NoError(t, err)

	keys := jwtx.NewKeySet()
	keys.AddSigner(signer)

	svc := &TokenService{Signer: signer, Issuer: "agrowcrop-otp"}
	tok, err := svc.Issue(testPhone)
	require.NoError(t, err)
	require.Equal(t, agrosdk.RoleFarmer, tok.Role)
	require.WithinDuration(t, time.Now().Add(jwtx.DefaultSessionTokenTTL), tok.ExpiresAt, time.Minute)

	claims, err := jwtx.NewVerifierEdDSA(keys, "agrowcrop-otp").Verify(tok.Token)
	require.NoError(t, err)
	require.Equal(t, testPhone, claims.Subject)
	require.Equal(t, testPhone, claims.Phone)
	require.Equal(t, agrosdk.RoleFarmer, claims.Role)
}

func TestTokenServiceCustomTTL(t *testing.T) {
	t.Parallel()

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	signer, err := jwtx.NewSignerEdDSA("test-kid", pemKey)
	require.NoError(t, err)

	issuedAt := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	svc := &TokenService{
		Signer: signer,
		Issuer: "agrowcrop-otp",
		TTL:    time.Hour,
		Now:    func() time.Time { return issuedAt },
	}
	tok, err := svc.Issue(testPhone)
	require.NoError(t, err)
	require.True(t, issuedAt.Add(time.Hour).Equal(tok.ExpiresAt))

	exp, ok := jwtx.ExpiresAt(tok.Token)
	require.True(t, ok)
	require.True(t, exp.Equal(tok.ExpiresAt))
}
