package agrosdk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare national number", "9876543210", "+919876543210"},
		{"already canonical", "+919876543210", "+919876543210"},
		{"separators", "98765 43210", "+919876543210"},
		{"dashes and parens", "(987) 654-3210", "+919876543210"},
		{"country digits without plus", "919876543210", "+919876543210"},
		{"other country kept", "+14155550100", "+14155550100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := NormalizePhone(tt.in, "")
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePhoneIdempotent(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"9876543210", "6000000000", "7999999999", "98-7654-3210"} {
		once, err := NormalizePhone(in, DefaultCountryCode)
		require.NoError(t, err)

		twice, err := NormalizePhone(once, DefaultCountryCode)
		require.NoError(t, err)
		require.Equal(t, once, twice)
		require.Equal(t, 1, countPrefix(twice, "+91"), "exactly one country prefix in %q", twice)
	}
}

func TestNormalizePhoneInvalid(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "12345", "98765abcde", "+", "+91-98765-4321x", "00919876543210123"} {
		_, err := NormalizePhone(in, DefaultCountryCode)
		require.ErrorIs(t, err, ErrInvalidPhone, "input %q", in)
	}
}

func TestNormalizePhoneCustomCountry(t *testing.T) {
	t.Parallel()

	got, err := NormalizePhone("4155550100", "+1")
	require.NoError(t, err)
	require.Equal(t, "+14155550100", got)
}

func countPrefix(s, prefix string) int {
	n := 0
	for len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		n++
		s = s[len(prefix):]
	}
	return n
}
