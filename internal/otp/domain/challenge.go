package domain

import "time"

// Challenge is a pending one-time code for a phone number. The code itself is
// never stored: it is re-derived from the sealed HOTP secret and counter, so
// an unexpired challenge can be re-sent with the same value.
type Challenge struct {
	ID           string    // ULID
	Phone        string    // +91XXXXXXXXXX
	SealedSecret []byte    // secretbox(HOTP base32 secret)
	Counter      uint64    // HOTP moving factor
	Attempts     int       // failed verifications so far
	ExpiresAt    time.Time // UTC
	CreatedAt    time.Time // UTC
}

// Expired reports whether the challenge can no longer be verified at now.
func (c Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
