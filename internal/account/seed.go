package account

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Roylkrishna/srg-sub001/internal/model"
)

// SeedAccount is one entry of a seed file.
type SeedAccount struct {
	Username  string `yaml:"username"`
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	Role      string `yaml:"role"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
}

type seedFile struct {
	Accounts []SeedAccount `yaml:"accounts"`
}

// SeedFromFile creates the accounts listed in a YAML file that do not exist
// yet. It returns how many were created.
func (s *Service) SeedFromFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading seed file: %w", err)
	}
	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return 0, fmt.Errorf("parsing seed file: %w", err)
	}
	return s.Seed(ctx, sf.Accounts)
}

// Seed creates each account whose username and email are both unused.
// Accounts that already exist are left untouched.
func (s *Service) Seed(ctx context.Context, accounts []SeedAccount) (int, error) {
	created := 0
	for _, sa := range accounts {
		username := normalizeUsername(sa.Username)
		email := normalizeEmail(sa.Email)
		role := sa.Role
		if role == "" {
			role = model.RoleUser
		}

		if err := validateUsername(username); err != nil {
			return created, fmt.Errorf("seed account %q: %w", sa.Username, err)
		}
		if err := model.ValidateEmail(email); err != nil {
			return created, fmt.Errorf("seed account %q: %w", sa.Username, err)
		}
		if err := model.ValidatePassword(sa.Password); err != nil {
			return created, fmt.Errorf("seed account %q: %w", sa.Username, err)
		}
		if !model.ValidRole(role) {
			return created, fmt.Errorf("seed account %q: unknown role %q", sa.Username, role)
		}

		existing, err := s.store.FindByUsernameOrEmail(ctx, username, email)
		if err != nil {
			return created, err
		}
		if existing != nil {
			continue
		}

		digest, err := s.hasher.Hash(ctx, sa.Password)
		if err != nil {
			return created, err
		}
		a, err := s.store.Create(ctx, &model.Account{
			FirstName:    sa.FirstName,
			LastName:     sa.LastName,
			Username:     username,
			Email:        email,
			PasswordHash: digest,
			Role:         role,
			IsActive:     true,
		})
		if err != nil {
			return created, fmt.Errorf("seed account %q: %w", sa.Username, err)
		}

		slog.Info("seeded account", "user", a.Username, "role", a.Role)
		created++
	}
	return created, nil
}

// EnsureOwner creates an owner account with a random password when the store
// holds no accounts at all. The password is returned only when an account was
// created; it cannot be recovered later.
func (s *Service) EnsureOwner(ctx context.Context, username, email string) (string, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return "", err
	}
	if n > 0 {
		return "", nil
	}

	password, err := generatePassword(16)
	if err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}

	if _, err := s.Seed(ctx, []SeedAccount{{
		Username: username,
		Email:    email,
		Password: password,
		Role:     model.RoleOwner,
	}}); err != nil {
		return "", fmt.Errorf("creating owner account: %w", err)
	}
	return password, nil
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
