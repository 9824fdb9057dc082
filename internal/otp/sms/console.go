package sms

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

const banner = "------------------------------------------------"

// ConsoleSender prints codes instead of sending them. Used outside production.
type ConsoleSender struct {
	Logger *slog.Logger
	Out    io.Writer
}

func NewConsoleSender(logger *slog.Logger) *ConsoleSender {
	return &ConsoleSender{Logger: logger, Out: os.Stdout}
}

func (s *ConsoleSender) Send(ctx context.Context, phone, code string) error {
	s.Logger.Info(banner)
	s.Logger.Info("simulated sms", "phone", phone, "otp", code)
	s.Logger.Info(banner)

	if s.Out != nil {
		_, _ = fmt.Fprintf(s.Out, "\n(LOCAL MODE) OTP FOR %s: %s\n\n", phone, code)
	}
	return nil
}
