package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aussiebroadwan/agrowcrop/pkg/credstore"
	"github.com/aussiebroadwan/agrowcrop/pkg/credstore/sqlite"
)

// OpenCredentialStore opens the backend named by cfg.CredentialStore.
func OpenCredentialStore(cfg Config) (credstore.Store, error) {
	switch cfg.CredentialStore {
	case StoreMemory:
		return credstore.NewMemory(), nil
	case StoreSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.CredentialPath), 0o700); err != nil {
			return nil, fmt.Errorf("create credential dir: %w", err)
		}
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", cfg.CredentialPath)
		return sqlite.NewStore(dsn)
	default:
		return credstore.NewFile(cfg.CredentialPath)
	}
}
