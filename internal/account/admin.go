package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Roylkrishna/srg-sub001/internal/model"
	"github.com/Roylkrishna/srg-sub001/internal/store"
)

// The HTTP layer gates these operations by role; the checks here cover
// rules that depend on the target account.

// ListAccounts returns every account.
func (s *Service) ListAccounts(ctx context.Context) ([]model.Account, error) {
	accounts, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []model.Account{}
	}
	return accounts, nil
}

// GetAccount returns one account.
func (s *Service) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrNotFound
	}
	return a, nil
}

// SetRole changes an account's role. Tokens already issued keep the old role
// until they expire.
func (s *Service) SetRole(ctx context.Context, actor Actor, id int64, role string) (*model.Account, error) {
	if !model.ValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	if id == actor.ID && role != actor.Role {
		return nil, fmt.Errorf("%w: cannot change your own role", ErrForbidden)
	}

	a, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Role == role {
		return a, nil
	}

	old := a.Role
	a.Role = role
	if err := s.save(ctx, a); err != nil {
		return nil, err
	}

	slog.Info("role changed", "user", a.Username, "from", old, "to", role, "by", actor.ID)
	return a, nil
}

// SetActive enables or disables an account. Only an owner may change another
// owner, and nobody may disable themself.
func (s *Service) SetActive(ctx context.Context, actor Actor, id int64, active bool) (*model.Account, error) {
	if id == actor.ID && !active {
		return nil, fmt.Errorf("%w: cannot disable your own account", ErrForbidden)
	}

	a, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Role == model.RoleOwner && actor.Role != model.RoleOwner {
		return nil, fmt.Errorf("%w: only an owner can change an owner account", ErrForbidden)
	}
	if a.IsActive == active {
		return a, nil
	}

	a.IsActive = active
	if err := s.save(ctx, a); err != nil {
		return nil, err
	}

	slog.Info("account active flag changed", "user", a.Username, "active", active, "by", actor.ID)
	return a, nil
}

// DeleteAccount removes an account other than the actor's own.
func (s *Service) DeleteAccount(ctx context.Context, actor Actor, id int64) error {
	if id == actor.ID {
		return fmt.Errorf("%w: cannot delete your own account", ErrForbidden)
	}

	err := s.store.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	slog.Info("account deleted", "id", id, "by", actor.ID)
	return nil
}

// ChangePassword replaces the password of accountID after checking current.
func (s *Service) ChangePassword(ctx context.Context, accountID int64, current, next string) error {
	if current == "" {
		return fmt.Errorf("%w: current password is required", ErrValidation)
	}
	if err := validatePassword(next); err != nil {
		return err
	}

	a, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(ctx, current, a.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}

	digest, err := s.hasher.Hash(ctx, next)
	if err != nil {
		return err
	}
	a.PasswordHash = digest
	if err := s.save(ctx, a); err != nil {
		return err
	}

	slog.Info("user changed own password", "user", a.Username)
	return nil
}

func (s *Service) save(ctx context.Context, a *model.Account) error {
	err := s.store.Save(ctx, a)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
