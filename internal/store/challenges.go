package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Roylkrishna/srg-sub001/internal/db"
)

// ConsumeChallenge records a challenge ID as used. It returns true only for
// the first call with a given ID, so a replayed challenge cookie is detected.
func ConsumeChallenge(ctx context.Context, d *db.DB, jti string, expiresAt time.Time) (bool, error) {
	result, err := d.ExecContext(ctx, d.Rebind(
		`INSERT INTO used_challenges (jti, expires_at) VALUES (?, ?) ON CONFLICT DO NOTHING`),
		jti, expiresAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("consuming challenge: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consuming challenge: %w", err)
	}

	// Opportunistically clean up expired entries.
	_, _ = d.ExecContext(ctx, d.Rebind(
		`DELETE FROM used_challenges WHERE expires_at < ?`), time.Now().UTC(),
	)

	return n == 1, nil
}

// ChallengeLedger adapts ConsumeChallenge to the captcha package.
type ChallengeLedger struct {
	DB *db.DB
}

// Consume implements captcha.Ledger.
func (l ChallengeLedger) Consume(ctx context.Context, id string, expiresAt time.Time) (bool, error) {
	return ConsumeChallenge(ctx, l.DB, id, expiresAt)
}
