package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"fmt"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

// OTPDigits is the length of every one-time code we hand out.
const OTPDigits = otp.DigitsSix

var hotpOpts = hotp.ValidateOpts{
	Digits:    OTPDigits,
	Algorithm: otp.AlgorithmSHA1,
}

// NewOTPSecret returns a fresh base32 HOTP secret bound to issuer/account.
func NewOTPSecret(issuer, account string) (string, error) {
	key, err := hotp.Generate(hotp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Digits:      OTPDigits,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate HOTP secret: %w", err)
	}
	return key.Secret(), nil
}

// RandomCounter returns an unpredictable HOTP moving factor.
func RandomCounter() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("failed to generate counter: %w", err)
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// OTPCode derives the six digit code for secret at counter.
func OTPCode(secret string, counter uint64) (string, error) {
	code, err := hotp.GenerateCodeCustom(secret, counter, hotpOpts)
	if err != nil {
		return "", fmt.Errorf("failed to derive OTP code: %w", err)
	}
	return code, nil
}

// ValidateOTPCode reports whether code is the value for secret at counter.
func ValidateOTPCode(code, secret string, counter uint64) bool {
	ok, err := hotp.ValidateCustom(code, counter, secret, hotpOpts)
	return err == nil && ok
}

// GenerateOTPCode mints a standalone six digit code from a throwaway secret.
// Used where nothing needs to re-derive the code later.
func GenerateOTPCode() (string, error) {
	secret, err := NewOTPSecret("agrowcrop", "local")
	if err != nil {
		return "", err
	}
	counter, err := RandomCounter()
	if err != nil {
		return "", err
	}
	return OTPCode(secret, counter)
}

// EqualCode compares two codes in constant time.
func EqualCode(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
