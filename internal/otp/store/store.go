package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/agrowcrop/internal/otp/domain"
)

var ErrNotFound = errors.New("store: not found")

// Store is the root data access interface for the OTP service. Sub-repos are
// exposed as methods so transactional code goes through WithTx rather than
// nesting transactions by accident.
type Store interface {
	Challenges() Challenges

	ApplyMigrations() error

	// Tx starts a read/write transaction. The caller MUST call Commit() or
	// Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn inside a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Challenges interface {
	// GetChallengeByPhone returns the single live challenge for phone.
	GetChallengeByPhone(ctx context.Context, phone string) (domain.Challenge, error)

	// CreateChallenge inserts c. Phone is unique, so delete first when replacing.
	CreateChallenge(ctx context.Context, c domain.Challenge) error

	// IncrementChallengeAttempts bumps the failure counter and returns the new value.
	IncrementChallengeAttempts(ctx context.Context, id string) (int, error)

	DeleteChallenge(ctx context.Context, id string) error
	DeleteChallengesByPhone(ctx context.Context, phone string) error

	// DeleteExpiredChallenges removes every challenge expired at now and
	// returns how many rows went.
	DeleteExpiredChallenges(ctx context.Context, now time.Time) (int64, error)
}
