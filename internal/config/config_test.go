package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Roylkrishna/srg-sub001/internal/db"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trgovina.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil, env(nil))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, db.DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "trgovina.sqlite3", cfg.DB)
	assert.Equal(t, LogFormatText, cfg.LogFormat)
	assert.Equal(t, bcrypt.DefaultCost, cfg.BcryptCost)
	assert.Positive(t, cfg.HashConcurrency)
	assert.False(t, cfg.Production)
	assert.Empty(t, cfg.TokenSecret)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, `
addr: ":9000"
db_driver: postgres
db: postgres://file
log_format: json
token_secret: from-file
bcrypt_cost: 12
`)

	vars := map[string]string{
		"TRGOVINA_DB":             "postgres://env",
		"TRGOVINA_PRODUCTION":     "true",
		"TRGOVINA_BCRYPT_COST":    "11",
		"TRGOVINA_OWNER_EMAIL":    "boss@shop.test",
		"TRGOVINA_CAPTCHA_SECRET": "from-env",
	}

	cfg, err := Load([]string{"-c", path, "-bcrypt-cost", "5", "-u", "boss"}, env(vars))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr, "file overrides default")
	assert.Equal(t, db.DriverPostgres, cfg.DBDriver)
	assert.Equal(t, LogFormatJSON, cfg.LogFormat)
	assert.Equal(t, "from-file", cfg.TokenSecret)
	assert.Equal(t, "postgres://env", cfg.DB, "env overrides file")
	assert.True(t, cfg.Production)
	assert.Equal(t, "from-env", cfg.CaptchaSecret)
	assert.Equal(t, "boss@shop.test", cfg.OwnerEmail)
	assert.Equal(t, 5, cfg.BcryptCost, "flag overrides env")
	assert.Equal(t, "boss", cfg.OwnerUsername)
}

func TestLoadLongAndShortFlags(t *testing.T) {
	cfg, err := Load([]string{"-addr", ":1", "-d", "x.db", "-log-format", "json", "-production"}, env(nil))
	require.NoError(t, err)

	assert.Equal(t, ":1", cfg.Addr)
	assert.Equal(t, "x.db", cfg.DB)
	assert.Equal(t, LogFormatJSON, cfg.LogFormat)
	assert.True(t, cfg.Production)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{"bad env number", nil, map[string]string{"TRGOVINA_HASH_CONCURRENCY": "many"}},
		{"bad env bool", nil, map[string]string{"TRGOVINA_PRODUCTION": "sometimes"}},
		{"unknown driver", []string{"-driver", "mysql"}, nil},
		{"positional argument", []string{"serve"}, nil},
		{"missing config file", []string{"-config", "/does/not/exist.yaml"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.args, env(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestLoadHelp(t *testing.T) {
	_, err := Load([]string{"-h"}, env(nil))
	assert.True(t, errors.Is(err, flag.ErrHelp), "got %v", err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		valid  bool
	}{
		{"defaults", func(*Config) {}, true},
		{"postgres", func(c *Config) { c.DBDriver = db.DriverPostgres }, true},
		{"empty addr", func(c *Config) { c.Addr = "" }, false},
		{"unknown driver", func(c *Config) { c.DBDriver = "oracle" }, false},
		{"empty db", func(c *Config) { c.DB = "" }, false},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }, false},
		{"cost too low", func(c *Config) { c.BcryptCost = 1 }, false},
		{"cost too high", func(c *Config) { c.BcryptCost = 40 }, false},
		{"zero concurrency", func(c *Config) { c.HashConcurrency = 0 }, false},
		{"no owner", func(c *Config) { c.OwnerUsername = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
