package agrosdk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/agrowcrop/pkg/cryptox"
	"github.com/aussiebroadwan/agrowcrop/pkg/idx"
)

// DefaultCodeTTL matches the OTP service's challenge lifetime.
const DefaultCodeTTL = 5 * time.Minute

type OTPState int

const (
	StateIdle OTPState = iota
	StateCodeRequested
	StateVerified
)

func (s OTPState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCodeRequested:
		return "code_requested"
	case StateVerified:
		return "verified"
	default:
		return fmt.Sprintf("OTPState(%d)", int(s))
	}
}

// LoginCommitter receives the outcome of a successful verification.
// *Session implements it.
type LoginCommitter interface {
	Login(ctx context.Context, token string, user *UserProfile) error
}

type OTPFlowConfig struct {
	// Production disables the local dev-code fallback.
	Production bool

	// CountryCode is prepended to bare national numbers. Defaults to +91.
	CountryCode string

	// CodeTTL bounds how long a locally generated dev code is accepted.
	CodeTTL time.Duration

	// OnDevCode is told about every locally generated code, so a CLI can
	// show it to the operator.
	OnDevCode func(phone, code string)

	Now func() time.Time
}

type challenge struct {
	phone     string // as entered
	canonical string
	devCode   string // non-empty only for a locally generated code
	issuedAt  time.Time
}

// OTPFlow drives the phone + code challenge for local mode.
//
//	Idle -> CodeRequested -> Verified
//	           |   ^
//	           +---+ resend / failed verify
//
// A failed send in production returns to Idle, unless a code is already out
// for the same number.
type OTPFlow struct {
	client    *SDKClient
	committer LoginCommitter
	cfg       OTPFlowConfig
	logger    *slog.Logger

	mu        sync.Mutex
	state     OTPState
	seq       uint64 // latest-started RequestCode wins
	lastPhone string
	challenge *challenge
}

func NewOTPFlow(client *SDKClient, committer LoginCommitter, cfg OTPFlowConfig, logger *slog.Logger) *OTPFlow {
	if cfg.CountryCode == "" {
		cfg.CountryCode = DefaultCountryCode
	}
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = DefaultCodeTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &OTPFlow{
		client:    client,
		committer: committer,
		cfg:       cfg,
		logger:    logger,
	}
}

func (f *OTPFlow) State() OTPState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Phone returns the canonical number of the open challenge, if any.
func (f *OTPFlow) Phone() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.challenge == nil {
		return ""
	}
	return f.challenge.canonical
}

// DevFallback reports whether the open challenge is verified locally.
func (f *OTPFlow) DevFallback() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.challenge != nil && f.challenge.devCode != ""
}

// RequestCode asks the service to send a code to phone. Outside production
// a failed send falls back to a locally generated code.
func (f *OTPFlow) RequestCode(ctx context.Context, phone string) error {
	phone = strings.TrimSpace(phone)
	canonical, err := NormalizePhone(phone, f.cfg.CountryCode)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.seq++
	seq := f.seq
	f.lastPhone = phone
	f.mu.Unlock()

	_, sendErr := f.client.SendOTP(ctx, canonical)

	f.mu.Lock()
	defer f.mu.Unlock()

	if seq != f.seq {
		// A later request owns the challenge now.
		return sendErr
	}

	ch := &challenge{phone: phone, canonical: canonical, issuedAt: f.cfg.Now()}

	if sendErr == nil {
		f.state = StateCodeRequested
		f.challenge = ch
		f.logger.Info("otp sent", "phone", canonical)
		return nil
	}

	if f.cfg.Production {
		f.logger.Error("otp send failed", "phone", canonical, "err", sendErr)
		// The code already delivered for this number stays valid on the
		// service, so a failed resend keeps the challenge open.
		if !f.resendable(canonical) {
			f.state = StateIdle
			f.challenge = nil
		}
		return fmt.Errorf("failed to send OTP, please try again: %w", sendErr)
	}

	code, err := cryptox.GenerateOTPCode()
	if err != nil {
		f.state = StateIdle
		f.challenge = nil
		return fmt.Errorf("generate dev code: %w", errors.Join(sendErr, err))
	}
	ch.devCode = code
	f.state = StateCodeRequested
	f.challenge = ch

	f.logger.Warn("otp service unavailable, using local dev code",
		"phone", canonical,
		"code", code,
		"err", sendErr,
	)
	if f.cfg.OnDevCode != nil {
		f.cfg.OnDevCode(canonical, code)
	}
	return nil
}

// resendable reports whether a service-issued challenge for canonical is
// still open. Callers hold f.mu.
func (f *OTPFlow) resendable(canonical string) bool {
	return f.state == StateCodeRequested &&
		f.challenge != nil &&
		f.challenge.devCode == "" &&
		f.challenge.canonical == canonical
}

// Resend repeats RequestCode with the last phone number.
func (f *OTPFlow) Resend(ctx context.Context) error {
	f.mu.Lock()
	phone := f.lastPhone
	f.mu.Unlock()

	if phone == "" {
		return ErrNoChallenge
	}
	return f.RequestCode(ctx, phone)
}

// VerifyCode checks code for the open challenge and, on success, commits
// the session. An empty phone means the challenge's own number. Any failure
// leaves the flow in CodeRequested.
func (f *OTPFlow) VerifyCode(ctx context.Context, phone, code string) error {
	f.mu.Lock()
	if f.state != StateCodeRequested || f.challenge == nil {
		f.mu.Unlock()
		return ErrNoChallenge
	}
	ch := *f.challenge
	f.mu.Unlock()

	if phone = strings.TrimSpace(phone); phone != "" {
		canonical, err := NormalizePhone(phone, f.cfg.CountryCode)
		if err != nil {
			return err
		}
		if canonical != ch.canonical {
			return fmt.Errorf("%w for %s", ErrNoChallenge, canonical)
		}
	}
	code = strings.TrimSpace(code)

	var (
		token string
		user  *UserProfile
	)

	if ch.devCode != "" {
		if f.cfg.Now().After(ch.issuedAt.Add(f.cfg.CodeTTL)) {
			return ErrCodeExpired
		}
		if !cryptox.EqualCode(code, ch.devCode) {
			return ErrInvalidCode
		}
		token = idx.Prefixed("dev")
		user = &UserProfile{ID: ch.phone, Phone: ch.phone, Role: RoleFarmer}
	} else {
		resp, err := f.client.VerifyOTP(ctx, ch.canonical, code)
		if err != nil {
			return fmt.Errorf("verify otp: %w", err)
		}
		if resp.Token == "" {
			return fmt.Errorf("verify otp: %w", ErrInvalidCode)
		}
		user = &UserProfile{ID: ch.phone, Phone: ch.phone, Role: resp.Role}
		token = resp.Token
	}

	if err := f.committer.Login(ctx, token, user); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}

	f.mu.Lock()
	f.state = StateVerified
	f.challenge = nil
	f.mu.Unlock()

	f.logger.Info("otp verified", "phone", ch.canonical, "dev", ch.devCode != "")
	return nil
}
