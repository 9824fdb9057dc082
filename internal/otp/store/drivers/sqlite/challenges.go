package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/agrowcrop/internal/otp/domain"
)

// Timestamps are stored as unix milliseconds so range deletes compare numbers.
type challengesRepo struct {
	db dbtx
}

func (r *challengesRepo) GetChallengeByPhone(ctx context.Context, phone string) (domain.Challenge, error) {
	var (
		c         domain.Challenge
		counter   int64
		expiresAt int64
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, phone, sealed_secret, counter, attempts, expires_at, created_at
		FROM otp_challenges WHERE phone = ?`, phone,
	).Scan(&c.ID, &c.Phone, &c.SealedSecret, &counter, &c.Attempts, &expiresAt, &createdAt)
	if err != nil {
		return domain.Challenge{}, mapNotFound(err)
	}

	c.Counter = uint64(counter)
	c.ExpiresAt = time.UnixMilli(expiresAt).UTC()
	c.CreatedAt = time.UnixMilli(createdAt).UTC()
	return c, nil
}

func (r *challengesRepo) CreateChallenge(ctx context.Context, c domain.Challenge) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO otp_challenges (id, phone, sealed_secret, counter, attempts, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Phone, c.SealedSecret, int64(c.Counter), c.Attempts,
		c.ExpiresAt.UnixMilli(), c.CreatedAt.UnixMilli(),
	)
	return err
}

func (r *challengesRepo) IncrementChallengeAttempts(ctx context.Context, id string) (int, error) {
	var attempts int
	err := r.db.QueryRowContext(ctx, `
		UPDATE otp_challenges SET attempts = attempts + 1
		WHERE id = ? RETURNING attempts`, id,
	).Scan(&attempts)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return attempts, nil
}

func (r *challengesRepo) DeleteChallenge(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM otp_challenges WHERE id = ?`, id)
	return err
}

func (r *challengesRepo) DeleteChallengesByPhone(ctx context.Context, phone string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM otp_challenges WHERE phone = ?`, phone)
	return err
}

func (r *challengesRepo) DeleteExpiredChallenges(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM otp_challenges WHERE expires_at <= ?`, now.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
