package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Roylkrishna/srg-sub001/internal/account"
	"github.com/Roylkrishna/srg-sub001/internal/api"
	"github.com/Roylkrishna/srg-sub001/internal/auth"
	"github.com/Roylkrishna/srg-sub001/internal/captcha"
	"github.com/Roylkrishna/srg-sub001/internal/config"
	"github.com/Roylkrishna/srg-sub001/internal/db"
	"github.com/Roylkrishna/srg-sub001/internal/store"
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. If logPath is non-empty, all
// levels are also written to that file. Returns a cleanup function that
// closes the log file (if opened).
func setupLogger(logPath, format string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	newHandler := func(w io.Writer) slog.Handler {
		if format == config.LogFormatJSON {
			return slog.NewJSONHandler(w, opts)
		}
		return slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(&levelRouter{
		stdout: newHandler(stdoutW),
		stderr: newHandler(stderrW),
	}))
	return cleanup, nil
}

func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// INFO/WARN → stdout, ERROR → stderr, optionally also a log file.
	closeLog, err := setupLogger(cfg.LogPath, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	if err := run(cfg); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	database, err := db.Open(ctx, cfg.DBDriver, cfg.DB)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	// Ensure schema exists (idempotent).
	if err := db.EnsureSchema(ctx, database); err != nil {
		return fmt.Errorf("ensuring database schema: %w", err)
	}
	slog.Info("database ready", "driver", cfg.DBDriver)

	tokenSecret, err := secret(ctx, database, cfg.TokenSecret, store.SettingTokenSecret)
	if err != nil {
		return err
	}
	captchaSecret, err := secret(ctx, database, cfg.CaptchaSecret, store.SettingCaptchaSecret)
	if err != nil {
		return err
	}

	tokens := auth.NewTokens(tokenSecret)
	challenges := captcha.New(captchaSecret, store.ChallengeLedger{DB: database})
	accounts := account.NewService(
		store.NewAccounts(database),
		auth.NewHasher(cfg.BcryptCost, cfg.HashConcurrency),
		tokens,
		challenges,
	)

	if cfg.SeedFile != "" {
		n, err := accounts.SeedFromFile(ctx, cfg.SeedFile)
		if err != nil {
			return fmt.Errorf("seeding accounts: %w", err)
		}
		slog.Info("seed file applied", "path", cfg.SeedFile, "created", n)
	}

	password, err := accounts.EnsureOwner(ctx, cfg.OwnerUsername, cfg.OwnerEmail)
	if err != nil {
		return err
	}
	if password != "" {
		printOwner(cfg.OwnerUsername, password)
	}

	apiRouter := api.NewRouter(api.Config{
		DB:         database,
		Accounts:   accounts,
		Tokens:     tokens,
		Captcha:    challenges,
		Production: cfg.Production,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.LoggingMiddleware(apiRouter),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr, "production", cfg.Production)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}

// secret returns configured when set, otherwise the value stored under key
// (generated on first start).
func secret(ctx context.Context, d *db.DB, configured, key string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	s, err := store.GetSecret(ctx, d, key)
	if err != nil {
		return "", fmt.Errorf("loading %s: %w", key, err)
	}
	return s, nil
}

// printOwner prints the first-run owner credentials to stdout.
func printOwner(username, password string) {
	fmt.Println("Owner account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("Change it after logging in (PUT /api/auth/password).")
	fmt.Println()
}
