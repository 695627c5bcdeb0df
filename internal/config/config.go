// Package config loads server settings. Later sources override earlier ones:
// built-in defaults, an optional YAML file, TRGOVINA_* environment variables,
// then command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/Roylkrishna/srg-sub001/internal/db"
)

// Config holds runtime settings for the server.
type Config struct {
	Addr       string `yaml:"addr"`
	DBDriver   string `yaml:"db_driver"`
	DB         string `yaml:"db"` // SQLite path or PostgreSQL DSN
	LogPath    string `yaml:"log"`
	LogFormat  string `yaml:"log_format"`
	Production bool   `yaml:"production"`

	// Secrets are generated and stored in the database when left empty.
	TokenSecret   string `yaml:"token_secret"`
	CaptchaSecret string `yaml:"captcha_secret"`

	BcryptCost      int `yaml:"bcrypt_cost"`
	HashConcurrency int `yaml:"hash_concurrency"`

	SeedFile      string `yaml:"seed_file"`
	OwnerUsername string `yaml:"owner_username"`
	OwnerEmail    string `yaml:"owner_email"`
}

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

const envPrefix = "TRGOVINA_"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Addr:            ":8080",
		DBDriver:        db.DriverSQLite,
		DB:              "trgovina.sqlite3",
		LogFormat:       LogFormatText,
		BcryptCost:      bcrypt.DefaultCost,
		HashConcurrency: runtime.GOMAXPROCS(0),
		OwnerUsername:   "owner",
		OwnerEmail:      "owner@localhost",
	}
}

const usage = `Usage: trgovina [flags]

Flags:
  -c, -config <path>        YAML configuration file
  -a, -addr <host:port>     listen address (default: :8080)
  -driver <name>            database driver: sqlite or postgres (default: sqlite)
  -d, -db <path|dsn>        SQLite path or PostgreSQL DSN (default: trgovina.sqlite3)
  -l, -log <path>           log file path (default: no file, stdout/stderr only)
  -log-format <fmt>         text or json (default: text)
  -production               secure cookies (Secure, SameSite=None)
  -s, -seed <path>          YAML file of accounts to create at startup
  -u, -user <name>          owner username on first run (default: owner)
  -bcrypt-cost <n>          bcrypt work factor (default: 10)
  -hash-concurrency <n>     concurrent password hashes (default: GOMAXPROCS)
  -h, -help                 show this help and exit

Every setting can also be given as TRGOVINA_<NAME>, e.g. TRGOVINA_DB_DRIVER.
Secrets are only read from the file or the environment.
`

// bindFlags registers every flag on fs, writing into cfg and configPath.
func bindFlags(fs *flag.FlagSet, cfg *Config, configPath *string) {
	fs.StringVar(configPath, "config", "", "")
	fs.StringVar(configPath, "c", "", "")

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "")
	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "")

	fs.StringVar(&cfg.DBDriver, "driver", cfg.DBDriver, "")

	fs.StringVar(&cfg.DB, "db", cfg.DB, "")
	fs.StringVar(&cfg.DB, "d", cfg.DB, "")

	fs.StringVar(&cfg.LogPath, "log", cfg.LogPath, "")
	fs.StringVar(&cfg.LogPath, "l", cfg.LogPath, "")

	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "")
	fs.BoolVar(&cfg.Production, "production", cfg.Production, "")

	fs.StringVar(&cfg.SeedFile, "seed", cfg.SeedFile, "")
	fs.StringVar(&cfg.SeedFile, "s", cfg.SeedFile, "")

	fs.StringVar(&cfg.OwnerUsername, "user", cfg.OwnerUsername, "")
	fs.StringVar(&cfg.OwnerUsername, "u", cfg.OwnerUsername, "")

	fs.IntVar(&cfg.BcryptCost, "bcrypt-cost", cfg.BcryptCost, "")
	fs.IntVar(&cfg.HashConcurrency, "hash-concurrency", cfg.HashConcurrency, "")
}

// Load builds the configuration from args (without the program name) and
// getenv. It returns flag.ErrHelp when help was requested.
func Load(args []string, getenv func(string) string) (*Config, error) {
	// First pass only finds the config file; values are discarded.
	var configPath string
	probe := flag.NewFlagSet("trgovina", flag.ContinueOnError)
	probe.Usage = func() { fmt.Fprint(os.Stdout, usage) }
	bindFlags(probe, Default(), &configPath)
	if err := probe.Parse(args); err != nil {
		return nil, err
	}
	if probe.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", probe.Arg(0))
	}

	cfg := Default()
	if configPath != "" {
		if err := loadFile(configPath, cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(getenv, cfg); err != nil {
		return nil, err
	}

	// Second pass: only flags present on the command line overwrite cfg.
	fs := flag.NewFlagSet("trgovina", flag.ContinueOnError)
	fs.Usage = func() {}
	bindFlags(fs, cfg, &configPath)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(getenv func(string) string, cfg *Config) error {
	str := func(name string, dst *string) {
		if v := getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v := getenv(envPrefix + name)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = n
		return nil
	}

	str("ADDR", &cfg.Addr)
	str("DB_DRIVER", &cfg.DBDriver)
	str("DB", &cfg.DB)
	str("LOG", &cfg.LogPath)
	str("LOG_FORMAT", &cfg.LogFormat)
	str("TOKEN_SECRET", &cfg.TokenSecret)
	str("CAPTCHA_SECRET", &cfg.CaptchaSecret)
	str("SEED_FILE", &cfg.SeedFile)
	str("OWNER_USERNAME", &cfg.OwnerUsername)
	str("OWNER_EMAIL", &cfg.OwnerEmail)

	if v := getenv(envPrefix + "PRODUCTION"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sPRODUCTION: %w", envPrefix, err)
		}
		cfg.Production = b
	}

	return errors.Join(
		num("BCRYPT_COST", &cfg.BcryptCost),
		num("HASH_CONCURRENCY", &cfg.HashConcurrency),
	)
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	switch c.DBDriver {
	case db.DriverSQLite, db.DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown db driver %q (want %s or %s)", c.DBDriver, db.DriverSQLite, db.DriverPostgres))
	}
	if c.DB == "" {
		errs = append(errs, errors.New("db is required"))
	}
	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.HashConcurrency <= 0 {
		errs = append(errs, errors.New("hash concurrency must be positive"))
	}
	if c.OwnerUsername == "" {
		errs = append(errs, errors.New("owner username is required"))
	}

	return errors.Join(errs...)
}
