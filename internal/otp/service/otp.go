package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/aussiebroadwan/agrowcrop/internal/otp/domain"
	"github.com/aussiebroadwan/agrowcrop/internal/otp/sms"
	"github.com/aussiebroadwan/agrowcrop/internal/otp/store"
	"github.com/aussiebroadwan/agrowcrop/pkg/cryptox"
	"github.com/aussiebroadwan/agrowcrop/pkg/idx"
)

const (
	// DefaultChallengeTTL is how long a sent code stays valid.
	DefaultChallengeTTL = 5 * time.Minute

	// MaxAttempts is how many wrong codes a challenge absorbs before it is burned.
	MaxAttempts = 5
)

var (
	ErrInvalidPhone       = errors.New("invalid_phone")
	ErrPhoneMissingPrefix = errors.New("phone_missing_prefix")
	ErrInvalidOTP         = errors.New("invalid_otp")
)

var (
	indianMobile = regexp.MustCompile(`^\+91[6-9]\d{9}$`)
	bareMobile   = regexp.MustCompile(`^[6-9]\d{9}$`)
)

// ValidatePhone accepts only +91 mobile numbers. A bare ten digit mobile
// number gets its own error so callers can tell the user to add the prefix.
func ValidatePhone(phone string) error {
	if indianMobile.MatchString(phone) {
		return nil
	}
	if bareMobile.MatchString(phone) {
		return ErrPhoneMissingPrefix
	}
	return ErrInvalidPhone
}

// OTPService issues and checks one-time codes, one live challenge per phone.
type OTPService struct {
	Store  store.Store
	Sender sms.Sender
	Logger *slog.Logger

	// Issuer labels the per-challenge HOTP secret.
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

func (s *OTPService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *OTPService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultChallengeTTL
}

// SendOrResend delivers a code to phone. An unexpired challenge is re-sent
// with the same code; otherwise a fresh challenge replaces whatever was there.
func (s *OTPService) SendOrResend(ctx context.Context, phone string) error {
	if err := ValidatePhone(phone); err != nil {
		return err
	}

	now := s.now()
	var code string

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		existing, err := tx.Challenges().GetChallengeByPhone(ctx, phone)
		switch {
		case err == nil && !existing.Expired(now):
			code, err = challengeCode(existing)
			return err
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return err
		}

		c, fresh, err := s.newChallenge(phone, now)
		if err != nil {
			return err
		}
		if err := tx.Challenges().DeleteChallengesByPhone(ctx, phone); err != nil {
			return err
		}
		if err := tx.Challenges().CreateChallenge(ctx, c); err != nil {
			return err
		}
		code = fresh
		return nil
	})
	if err != nil {
		return fmt.Errorf("prepare challenge: %w", err)
	}

	if err := s.Sender.Send(ctx, phone, code); err != nil {
		return fmt.Errorf("send code: %w", err)
	}
	return nil
}

// Verify consumes the challenge for phone when code matches. Expired and
// exhausted challenges are deleted, a wrong code counts as an attempt.
func (s *OTPService) Verify(ctx context.Context, phone, code string) error {
	if err := ValidatePhone(phone); err != nil {
		return err
	}

	now := s.now()
	verified := false

	// Deletions and attempt bumps must commit even when the code is wrong, so
	// the outcome travels in verified rather than as an error.
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		c, err := tx.Challenges().GetChallengeByPhone(ctx, phone)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if c.Expired(now) {
			return tx.Challenges().DeleteChallenge(ctx, c.ID)
		}

		if c.Attempts >= MaxAttempts {
			s.Logger.Warn("otp attempts exceeded", "phone", phone, "attempts", c.Attempts)
			return tx.Challenges().DeleteChallenge(ctx, c.ID)
		}

		secret, err := challengeSecret(c)
		if err != nil {
			return err
		}
		if cryptox.ValidateOTPCode(code, secret, c.Counter) {
			verified = true
			return tx.Challenges().DeleteChallenge(ctx, c.ID)
		}

		_, err = tx.Challenges().IncrementChallengeAttempts(ctx, c.ID)
		return err
	})
	if err != nil {
		return fmt.Errorf("verify challenge: %w", err)
	}
	if !verified {
		return ErrInvalidOTP
	}
	return nil
}

// PurgeExpired removes every challenge that has expired.
func (s *OTPService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.Store.Challenges().DeleteExpiredChallenges(ctx, s.now())
}

func (s *OTPService) newChallenge(phone string, now time.Time) (domain.Challenge, string, error) {
	secret, err := cryptox.NewOTPSecret(s.Issuer, phone)
	if err != nil {
		return domain.Challenge{}, "", err
	}
	counter, err := cryptox.RandomCounter()
	if err != nil {
		return domain.Challenge{}, "", err
	}
	code, err := cryptox.OTPCode(secret, counter)
	if err != nil {
		return domain.Challenge{}, "", err
	}
	sealed, err := cryptox.SealSecret([]byte(secret))
	if err != nil {
		return domain.Challenge{}, "", err
	}

	return domain.Challenge{
		ID:           idx.NewAt(now).String(),
		Phone:        phone,
		SealedSecret: sealed,
		Counter:      counter,
		ExpiresAt:    now.Add(s.ttl()),
		CreatedAt:    now,
	}, code, nil
}

func challengeSecret(c domain.Challenge) (string, error) {
	secret, err := cryptox.OpenSecret(c.SealedSecret)
	if err != nil {
		return "", fmt.Errorf("open challenge secret: %w", err)
	}
	return string(secret), nil
}

// challengeCode re-derives the code a challenge was created with.
func challengeCode(c domain.Challenge) (string, error) {
	secret, err := challengeSecret(c)
	if err != nil {
		return "", err
	}
	return cryptox.OTPCode(secret, c.Counter)
}
