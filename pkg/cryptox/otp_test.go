package cryptox_test

import (
	"regexp"
	"testing"

	"github.com/aussiebroadwan/agrowcrop/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

var sixDigits = regexp.MustCompile(`^\d{6}$`)

func TestGenerateOTPCode(t *testing.T) {
	t.Parallel()

	for range 20 {
		code, err := cryptox.GenerateOTPCode()
		require.NoError(t, err)
		require.Regexp(t, sixDigits, code)
	}
}

func TestOTPCodeRoundTrip(t *testing.T) {
	t.Parallel()

	secret, err := cryptox.NewOTPSecret("agrowcrop", "+919876543210")
	require.NoError(t, err)

	counter, err := cryptox.RandomCounter()
	require.NoError(t, err)

	code, err := cryptox.OTPCode(secret, counter)
	require.NoError(t, err)
	require.Regexp(t, sixDigits, code)

	// Same inputs, same code (this is what makes re-sending possible)
	again, err := cryptox.OTPCode(secret, counter)
	require.NoError(t, err)
	require.Equal(t, code, again)

	require.True(t, cryptox.ValidateOTPCode(code, secret, counter))
	require.False(t, cryptox.ValidateOTPCode("abcdef", secret, counter))
	next := mustCode(t, secret, counter+1)
	require.True(t, cryptox.ValidateOTPCode(next, secret, counter+1))
}

func TestEqualCode(t *testing.T) {
	t.Parallel()

	require.True(t, cryptox.EqualCode("123456", "123456"))
	require.False(t, cryptox.EqualCode("123456", "654321"))
	require.False(t, cryptox.EqualCode("123456", "12345"))
	require.False(t, cryptox.EqualCode("", "123456"))
}

func mustCode(t *testing.T, secret string, counter uint64) string {
	t.Helper()
	code, err := cryptox.OTPCode(secret, counter)
	require.NoError(t, err)
	return code
}
