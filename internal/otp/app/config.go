package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Issuer is the iss claim on session tokens.
	Issuer string `env:"OTP_ISSUER" envDefault:"agrowcrop-otp"`

	// SigningKeyFile holds an Ed25519 PEM, created if missing. Unset means an
	// ephemeral key. MasterKeyPath seals HOTP secrets at rest.
	SigningKeyFile string        `env:"OTP_SIGNING_KEY_FILE"`
	MasterKeyPath  string        `env:"OTP_MASTER_KEY_PATH"`
	DatabaseFile   string        `env:"DATABASE_FILE" envDefault:"otp.db"`
	ChallengeTTL   time.Duration `env:"OTP_CHALLENGE_TTL" envDefault:"5m"`
	TokenTTL       time.Duration `env:"OTP_TOKEN_TTL" envDefault:"24h"`

	Env       string `env:"ENV" envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	Port      int    `env:"PORT" envDefault:"8080"`

	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"10m"`

	Twilio TwilioConfig `envPrefix:"TWILIO_"`
}

type TwilioConfig struct {
	AccountSID string `env:"ACCOUNT_SID"`
	AuthToken  string `env:"AUTH_TOKEN"`
	FromNumber string `env:"PHONE_NUMBER"`
}

// LoadConfig reads the service configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Production reports whether real SMS delivery should be used.
func (c Config) Production() bool {
	return c.Env == "prod" || c.Env == "production"
}
