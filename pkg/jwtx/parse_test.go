package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/agrowcrop/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestParseUnverified(t *testing.T) {
	signer := newTestSigner(t, "k1")
	issued := time.Unix(1700000000, 0).UTC()

	token, err := signer.Sign(jwtx.NewSessionClaims("+919876543210", "Farmer", exampleIssuer, time.Hour, issued))
	require.NoError(t, err)

	// Expired long ago, but unverified parsing does not care
	claims, err := jwtx.ParseUnverified(token)
	require.NoError(t, err)
	require.Equal(t, "Farmer", claims.Role)

	exp, ok := jwtx.ExpiresAt(token)
	require.True(t, ok)
	require.Equal(t, issued.Add(time.Hour), exp.UTC())
}

func TestExpiresAtOpaqueToken(t *testing.T) {
	_, ok := jwtx.ExpiresAt("dev-01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV")
	require.False(t, ok)

	_, err := jwtx.ParseUnverified("opaque")
	require.ErrorIs(t, err, jwtx.ErrMalformed)
}
