package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/agrowcrop/pkg/cryptox"
	"github.com/aussiebroadwan/agrowcrop/pkg/jwtx"
)

// Keys bundles the single signing key with the verification side.
type Keys struct {
	Signer   *jwtx.EdDSASigner
	KeySet   *jwtx.KeySet
	Verifier jwtx.Verifier
}

// InitKeys loads the Ed25519 signing key.
//
// With OTP_SIGNING_KEY_FILE set the key is read from disk, or generated and
// written there on first start, so issued tokens survive restarts. Without it
// a fresh key is generated and every token dies with the process.
func InitKeys(cfg Config, logger *slog.Logger) (*Keys, error) {
	if cfg.MasterKeyPath != "" {
		cryptox.SetMasterKeyPath(cfg.MasterKeyPath)
		logger.Info("master key path configured", "path", cfg.MasterKeyPath)
	}

	var (
		pemKey []byte
		err    error
	)

	if cfg.SigningKeyFile != "" {
		var created bool
		pemKey, created, err = cryptox.LoadOrCreateEd25519Key(cfg.SigningKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load signing key: %w", err)
		}
		logger.Info("persistent signing key loaded", "path", cfg.SigningKeyFile, "created", created)
	} else {
		pemKey, err = cryptox.GenerateEd25519Key()
		if err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
		logger.Warn("ephemeral signing key in use, tokens will not survive a restart")
	}

	kid := cryptox.ShortFingerprint(string(pemKey))
	signer, err := jwtx.NewSignerEdDSA(kid, pemKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}

	keys := jwtx.NewKeySet()
	keys.AddSigner(signer)

	return &Keys{
		Signer:   signer,
		KeySet:   keys,
		Verifier: jwtx.NewVerifierEdDSA(keys, cfg.Issuer),
	}, nil
}
