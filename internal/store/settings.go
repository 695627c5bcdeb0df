package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/Roylkrishna/srg-sub001/internal/db"
)

// Setting keys for persisted secrets.
const (
	SettingTokenSecret   = "token_secret"
	SettingCaptchaSecret = "captcha_secret"
)

// GetSecret retrieves a named secret from the settings table.
// If no secret exists, it generates one, stores it, and returns it.
// Uses insert-or-ignore + re-SELECT to avoid a TOCTOU race on concurrent startup.
func GetSecret(ctx context.Context, d *db.DB, key string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating %s: %w", key, err)
	}
	candidate := hex.EncodeToString(buf)

	_, err := d.ExecContext(ctx, d.Rebind(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT DO NOTHING`),
		key, candidate,
	)
	if err != nil {
		return "", fmt.Errorf("storing %s: %w", key, err)
	}

	// Always read back (either our insert or the existing value).
	var secret string
	err = d.QueryRowContext(ctx, d.Rebind(
		`SELECT value FROM settings WHERE key = ?`), key,
	).Scan(&secret)
	if err != nil {
		return "", fmt.Errorf("querying %s: %w", key, err)
	}

	return secret, nil
}
