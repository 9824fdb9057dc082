// Package cli implements the agrowcrop command line client.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Credential store backends.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

type Config struct {
	APIBaseURL     string `env:"AGRO_API_BASE_URL" envDefault:"http://localhost:8080"`
	PublishableKey string `env:"AGRO_PUBLISHABLE_KEY"`
	TokenTemplate  string `env:"AGRO_TOKEN_TEMPLATE" envDefault:"agrowcrop-api"`

	// CredentialStore is one of file, sqlite or memory. CredentialPath
	// defaults to a file under the user config directory.
	CredentialStore string `env:"AGRO_CREDENTIAL_STORE" envDefault:"file"`
	CredentialPath  string `env:"AGRO_CREDENTIAL_PATH"`

	Env       string `env:"ENV" envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"warn"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// LoadConfig reads the client configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	switch cfg.CredentialStore {
	case StoreFile, StoreSQLite, StoreMemory:
	default:
		return Config{}, fmt.Errorf("unknown AGRO_CREDENTIAL_STORE %q", cfg.CredentialStore)
	}

	if cfg.CredentialPath == "" && cfg.CredentialStore != StoreMemory {
		path, err := defaultCredentialPath(cfg.CredentialStore)
		if err != nil {
			return Config{}, err
		}
		cfg.CredentialPath = path
	}
	return cfg, nil
}

// Production disables the local dev-code fallback.
func (c Config) Production() bool {
	return c.Env == "prod" || c.Env == "production"
}

func defaultCredentialPath(kind string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}

	name := "credentials.json"
	if kind == StoreSQLite {
		name = "credentials.db"
	}
	return filepath.Join(dir, "agrowcrop", name), nil
}
