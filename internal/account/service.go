// Package account implements signup, login and account administration on top
// of an account store, a password hasher, a token issuer and a captcha
// verifier.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
	"unicode/utf8"

	"github.com/Roylkrishna/srg-sub001/internal/captcha"
	"github.com/Roylkrishna/srg-sub001/internal/model"
	"github.com/Roylkrishna/srg-sub001/internal/store"
)

// Store persists accounts. Finders return nil, nil when nothing matches.
// Create and Save return store.ErrDuplicateKey on a unique index violation;
// Save and Delete return store.ErrNotFound for a missing row.
type Store interface {
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.Account, error)
	FindByID(ctx context.Context, id int64) (*model.Account, error)
	Create(ctx context.Context, a *model.Account) (*model.Account, error)
	Save(ctx context.Context, a *model.Account) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]model.Account, error)
	Count(ctx context.Context) (int, error)
}

// Hasher hashes and checks passwords.
type Hasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, digest string) (bool, error)
}

// Tokens issues identity tokens.
type Tokens interface {
	Issue(accountID int64, role string) (string, time.Time, error)
}

// Captcha verifies a challenge answer against its cookie value. It returns
// captcha.ErrFailed when the answer is not accepted.
type Captcha interface {
	Verify(ctx context.Context, answer, cookie string) error
}

// Session is the result of a successful signup or login.
type Session struct {
	Account   *model.Account
	Token     string
	ExpiresAt time.Time
}

// Actor identifies the caller of an administrative operation.
type Actor struct {
	ID   int64
	Role string
}

// Service orchestrates account flows.
type Service struct {
	store   Store
	hasher  Hasher
	tokens  Tokens
	captcha Captcha

	// intn returns a number in [0, n). Replaced in tests.
	intn func(n int) int
}

// NewService returns a Service.
func NewService(s Store, h Hasher, t Tokens, c Captcha) *Service {
	return &Service{
		store:   s,
		hasher:  h,
		tokens:  t,
		captcha: c,
		intn:    rand.IntN,
	}
}

// SignupInput is the payload for Signup.
type SignupInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Signup creates an account with role user and issues a token for it.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	in.Username = normalizeUsername(in.Username)
	in.Email = normalizeEmail(in.Email)

	if err := validateUsername(in.Username); err != nil {
		return nil, err
	}
	if in.Email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if err := model.ValidateEmail(in.Email); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	existing, err := s.store.FindByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return nil, fmt.Errorf("checking identifiers: %w", err)
	}
	if existing != nil {
		return nil, s.conflict(ctx, existing, in.Username)
	}

	digest, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	created, err := s.store.Create(ctx, &model.Account{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: digest,
		Role:         model.RoleUser,
		IsActive:     true,
	})
	if errors.Is(err, store.ErrDuplicateKey) {
		// Lost a race with a concurrent signup; find out which field.
		existing, lerr := s.store.FindByUsernameOrEmail(ctx, in.Username, in.Email)
		if lerr != nil {
			return nil, fmt.Errorf("checking identifiers: %w", lerr)
		}
		if existing == nil {
			return nil, &ConflictError{Field: FieldUsername}
		}
		return nil, s.conflict(ctx, existing, in.Username)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("account created", "user", created.Username, "id", created.ID)
	return s.issue(created)
}

func (s *Service) conflict(ctx context.Context, existing *model.Account, username string) error {
	if existing.Username != username {
		return &ConflictError{Field: FieldEmail}
	}
	suggestions, err := s.suggest(ctx, username)
	if err != nil {
		return err
	}
	return &ConflictError{Field: FieldUsername, Suggestions: suggestions}
}

// Suggestion generation limits.
const (
	MaxSuggestions        = 3
	randomSuggestionTries = 10
)

// withSuffix appends suffix to base, dropping trailing runes of base so the
// result stays within MaxUsernameLength.
func withSuffix(base, suffix string) string {
	runes := []rune(base)
	if room := MaxUsernameLength - utf8.RuneCountInString(suffix); len(runes) > room {
		runes = runes[:max(room, 0)]
	}
	return string(runes) + suffix
}

// suggest returns up to MaxSuggestions usernames derived from username that
// are free at the time of the call.
func (s *Service) suggest(ctx context.Context, username string) ([]string, error) {
	var out []string
	tried := make(map[string]bool)

	try := func(candidate string) error {
		if tried[candidate] {
			return nil
		}
		tried[candidate] = true
		if validateUsername(candidate) != nil {
			return nil
		}

		taken, err := s.store.FindByUsernameOrEmail(ctx, candidate, "")
		if err != nil {
			return fmt.Errorf("checking suggestion: %w", err)
		}
		if taken == nil {
			out = append(out, candidate)
		}
		return nil
	}

	for _, suffix := range []string{"123", "_gift"} {
		if err := try(withSuffix(username, suffix)); err != nil {
			return nil, err
		}
	}
	for i := 0; i < randomSuggestionTries && len(out) < MaxSuggestions; i++ {
		if err := try(withSuffix(username, fmt.Sprintf("_%d", s.intn(1000)))); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// LoginInput is the payload for Login. CaptchaCookie is the value of the
// challenge cookie, not part of the JSON body.
type LoginInput struct {
	Identifier    string `json:"identifier"`
	Password      string `json:"password"`
	CaptchaAnswer string `json:"captchaAnswer"`
	CaptchaCookie string `json:"-"`
}

// Login checks the captcha and credentials and issues a token. The caller
// must clear the challenge cookie whatever the outcome.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if in.CaptchaAnswer == "" {
		return nil, fmt.Errorf("%w: captcha answer is required", ErrValidation)
	}
	if err := s.captcha.Verify(ctx, in.CaptchaAnswer, in.CaptchaCookie); err != nil {
		if errors.Is(err, captcha.ErrFailed) {
			return nil, ErrCaptchaFailed
		}
		return nil, fmt.Errorf("verifying captcha: %w", err)
	}

	ident := normalizeUsername(in.Identifier)
	if ident == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: identifier and password are required", ErrValidation)
	}

	a, err := s.store.FindByUsernameOrEmail(ctx, ident, normalizeEmail(ident))
	if err != nil {
		return nil, fmt.Errorf("looking up account: %w", err)
	}
	if a == nil {
		return nil, ErrNotFound
	}
	if !a.IsActive {
		slog.Warn("login to disabled account", "user", a.Username)
		return nil, ErrAccountDisabled
	}

	ok, err := s.hasher.Verify(ctx, in.Password, a.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		slog.Warn("login failed", "user", a.Username)
		return nil, ErrUnauthorized
	}

	slog.Info("user logged in", "user", a.Username, "role", a.Role)
	return s.issue(a)
}

func (s *Service) issue(a *model.Account) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(a.ID, a.Role)
	if err != nil {
		return nil, err
	}
	return &Session{Account: a, Token: token, ExpiresAt: expiresAt}, nil
}

// CheckSession returns the account behind a verified identity, or nil if the
// account no longer exists or has been disabled.
func (s *Service) CheckSession(ctx context.Context, accountID int64) (*model.Account, error) {
	a, err := s.store.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("loading account: %w", err)
	}
	if a == nil || !a.IsActive {
		return nil, nil
	}
	return a, nil
}
