package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

var (
	masterKeyOnce sync.Once
	masterKey     *[32]byte
	masterKeyErr  error
	masterKeyPath string
)

// ErrSealedTooShort is returned when a sealed value cannot even hold a nonce.
var ErrSealedTooShort = errors.New("cryptox: sealed value too short")

// SetMasterKeyPath configures where to load the master key from. It must be
// called before the first Seal/Open. When unset the key comes from the
// OTP_MASTER_KEY environment variable.
func SetMasterKeyPath(path string) {
	masterKeyPath = path
}

// loadMasterKey derives a 32-byte secretbox key from, in order:
//  1. the file at masterKeyPath
//  2. the OTP_MASTER_KEY environment variable
//  3. random bytes (development only, sealed values die with the process)
func loadMasterKey() (*[32]byte, error) {
	var material []byte

	switch {
	case masterKeyPath != "":
		data, err := os.ReadFile(masterKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read master key file: %w", err)
		}
		material = data
	case os.Getenv("OTP_MASTER_KEY") != "":
		material = []byte(os.Getenv("OTP_MASTER_KEY"))
	default:
		material = make([]byte, 32)
		if _, err := rand.Read(material); err != nil {
			return nil, fmt.Errorf("failed to generate ephemeral master key: %w", err)
		}
	}

	sum := sha256.Sum256(material)
	return &sum, nil
}

func getMasterKey() (*[32]byte, error) {
	masterKeyOnce.Do(func() {
		masterKey, masterKeyErr = loadMasterKey()
	})
	return masterKey, masterKeyErr
}

// SealSecret encrypts and authenticates a small secret (e.g. an HOTP seed)
// with the master key. Output layout: [24-byte nonce][secretbox ciphertext].
func SealSecret(plaintext []byte) ([]byte, error) {
	key, err := getMasterKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get master key: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return secretbox.Seal(nonce[:], plaintext, &nonce, key), nil
}

// OpenSecret reverses SealSecret.
func OpenSecret(sealed []byte) ([]byte, error) {
	key, err := getMasterKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get master key: %w", err)
	}

	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, ErrSealedTooShort
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])

	plaintext, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, key)
	if !ok {
		return nil, errors.New("cryptox: secret authentication failed")
	}
	return plaintext, nil
}

// ResetMasterKeyForTesting resets the master key singleton. Tests only.
func ResetMasterKeyForTesting() {
	masterKeyOnce = sync.Once{}
	masterKey = nil
	masterKeyErr = nil
}
