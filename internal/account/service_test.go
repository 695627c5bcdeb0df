package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Roylkrishna/srg-sub001/internal/auth"
	"github.com/Roylkrishna/srg-sub001/internal/captcha"
	"github.com/Roylkrishna/srg-sub001/internal/db"
	"github.com/Roylkrishna/srg-sub001/internal/model"
	"github.com/Roylkrishna/srg-sub001/internal/store"
)

// stubCaptcha accepts answer whenever a cookie is present.
type stubCaptcha struct {
	answer string
	err    error
}

func (c stubCaptcha) Verify(_ context.Context, answer, cookie string) error {
	if c.err != nil {
		return c.err
	}
	if cookie == "" || answer != c.answer {
		return captcha.ErrFailed
	}
	return nil
}

type fixture struct {
	svc    *Service
	store  *store.Accounts
	tokens *auth.Tokens
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	accounts := store.NewAccounts(db.NewTestDB(t))
	tokens := auth.NewTokens("test-secret")
	svc := NewService(accounts, auth.NewHasher(bcrypt.MinCost, 2), tokens, stubCaptcha{answer: "XY34ab"})
	return &fixture{svc: svc, store: accounts, tokens: tokens}
}

// sequence returns an intn replacement that yields values in order, repeating
// the last one.
func sequence(values ...int) func(int) int {
	i := 0
	return func(int) int {
		v := values[min(i, len(values)-1)]
		i++
		return v
	}
}

func (f *fixture) signup(t *testing.T, username, email, password string) *Session {
	t.Helper()
	sess, err := f.svc.Signup(context.Background(), SignupInput{
		Username: username,
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	return sess
}

func TestSignup(t *testing.T) {
	f := newFixture(t)

	sess := f.signup(t, "ravi", "r@x.com", "p1")

	assert.Equal(t, "ravi", sess.Account.Username)
	assert.Equal(t, model.RoleUser, sess.Account.Role)
	assert.True(t, sess.Account.IsActive)
	assert.NotEqual(t, "p1", sess.Account.PasswordHash)
	require.NotEmpty(t, sess.Token)

	id, err := f.tokens.Verify(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.Account.ID, id.AccountID)
	assert.Equal(t, model.RoleUser, id.Role)
}

func TestSignupNormalizesIdentifiers(t *testing.T) {
	f := newFixture(t)

	// Fullwidth letters fold to ASCII under NFKC.
	sess := f.signup(t, "ｒａｖｉ", "  Ravi@X.com ", "p1")
	assert.Equal(t, "ravi", sess.Account.Username)
	assert.Equal(t, "ravi@x.com", sess.Account.Email)

	_, err := f.svc.Signup(context.Background(), SignupInput{Username: "ravi", Email: "other@x.com", Password: "p1"})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, FieldUsername, conflict.Field)
}

func TestSignupValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		in   SignupInput
	}{
		{"missing username", SignupInput{Email: "a@x.com", Password: "p1"}},
		{"username with space", SignupInput{Username: "a b", Email: "a@x.com", Password: "p1"}},
		{"username with at", SignupInput{Username: "a@b", Email: "a@x.com", Password: "p1"}},
		{"missing email", SignupInput{Username: "a", Password: "p1"}},
		{"bad email", SignupInput{Username: "a", Email: "nope", Password: "p1"}},
		{"missing password", SignupInput{Username: "a", Email: "a@x.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Signup(context.Background(), tt.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestSignupUsernameConflictSuggestions(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "ravi", "r@x.com", "p1")
	f.signup(t, "ravi123", "r123@x.com", "p1")
	f.signup(t, "ravi_482", "r482@x.com", "p1")

	// The first random pick is taken, the second is a repeat of it.
	f.svc.intn = sequence(482, 482, 7)

	_, err := f.svc.Signup(context.Background(), SignupInput{Username: "ravi", Email: "new@x.com", Password: "p1"})

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, FieldUsername, conflict.Field)
	assert.Equal(t, []string{"ravi_gift", "ravi_7"}, conflict.Suggestions[:2])
	assert.LessOrEqual(t, len(conflict.Suggestions), MaxSuggestions)

	seen := map[string]bool{}
	for _, s := range conflict.Suggestions {
		assert.False(t, seen[s], "duplicate suggestion %q", s)
		seen[s] = true

		taken, err := f.store.FindByUsernameOrEmail(context.Background(), s, "")
		require.NoError(t, err)
		assert.Nil(t, taken, "suggestion %q is taken", s)
	}
}

func TestSignupSuggestionsStopAtThree(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "ravi", "r@x.com", "p1")
	f.svc.intn = sequence(482, 10, 11, 12)

	_, err := f.svc.Signup(context.Background(), SignupInput{Username: "ravi", Email: "new@x.com", Password: "p1"})

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"ravi123", "ravi_gift", "ravi_482"}, conflict.Suggestions)
}

func TestSignupSuggestionsExhausted(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "ravi", "r@x.com", "p1")
	f.signup(t, "ravi123", "r1@x.com", "p1")
	f.signup(t, "ravi_gift", "r2@x.com", "p1")
	f.signup(t, "ravi_5", "r3@x.com", "p1")
	f.svc.intn = sequence(5)

	_, err := f.svc.Signup(context.Background(), SignupInput{Username: "ravi", Email: "new@x.com", Password: "p1"})

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Empty(t, conflict.Suggestions)
}

func TestSignupSuggestionsFitMaxLength(t *testing.T) {
	f := newFixture(t)
	long := strings.Repeat("a", MaxUsernameLength)
	f.signup(t, long, "r@x.com", "p1")
	f.svc.intn = sequence(482)

	_, err := f.svc.Signup(context.Background(), SignupInput{Username: long, Email: "new@x.com", Password: "p1"})

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Len(t, conflict.Suggestions, MaxSuggestions)
	assert.Equal(t, strings.Repeat("a", MaxUsernameLength-3)+"123", conflict.Suggestions[0])
	assert.Equal(t, strings.Repeat("a", MaxUsernameLength-5)+"_gift", conflict.Suggestions[1])
	assert.Equal(t, strings.Repeat("a", MaxUsernameLength-4)+"_482", conflict.Suggestions[2])

	for i, suggestion := range conflict.Suggestions {
		assert.LessOrEqual(t, utf8.RuneCountInString(suggestion), MaxUsernameLength)
		f.signup(t, suggestion, fmt.Sprintf("s%d@x.com", i), "p1")
	}
}

func TestSignupEmailConflict(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "ravi", "r@x.com", "p1")

	_, err := f.svc.Signup(context.Background(), SignupInput{Username: "someone", Email: "R@X.com", Password: "p1"})

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, FieldEmail, conflict.Field)
	assert.Empty(t, conflict.Suggestions)
}

// racyStore hides existing accounts from the first lookup, as if a concurrent
// signup committed between the pre-check and the insert.
type racyStore struct {
	*store.Accounts
	lookups int
}

func (s *racyStore) FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.Account, error) {
	s.lookups++
	if s.lookups == 1 {
		return nil, nil
	}
	return s.Accounts.FindByUsernameOrEmail(ctx, username, email)
}

func TestSignupLateDuplicateIsConflict(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "ravi", "r@x.com", "p1")

	racy := &racyStore{Accounts: f.store}
	svc := NewService(racy, auth.NewHasher(bcrypt.MinCost, 1), f.tokens, stubCaptcha{})

	_, err := svc.Signup(context.Background(), SignupInput{Username: "other", Email: "r@x.com", Password: "p1"})

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, FieldEmail, conflict.Field)

	racy.lookups = 0
	_, err = svc.Signup(context.Background(), SignupInput{Username: "ravi", Email: "new@x.com", Password: "p1"})
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, FieldUsername, conflict.Field)
	assert.NotEmpty(t, conflict.Suggestions)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.signup(t, "ravi", "r@x.com", "p1")

	disabled := f.signup(t, "gone", "g@x.com", "p1")
	_, err := f.svc.SetActive(ctx, Actor{ID: 999, Role: model.RoleOwner}, disabled.Account.ID, false)
	require.NoError(t, err)

	tests := []struct {
		name    string
		in      LoginInput
		wantErr error
	}{
		{"missing captcha answer", LoginInput{Identifier: "ravi", Password: "p1", CaptchaCookie: "c"}, ErrValidation},
		{"missing captcha cookie", LoginInput{Identifier: "ravi", Password: "p1", CaptchaAnswer: "XY34ab"}, ErrCaptchaFailed},
		{"wrong captcha", LoginInput{Identifier: "ravi", Password: "p1", CaptchaAnswer: "xy34ab", CaptchaCookie: "c"}, ErrCaptchaFailed},
		{"unknown account", LoginInput{Identifier: "nobody", Password: "p1", CaptchaAnswer: "XY34ab", CaptchaCookie: "c"}, ErrNotFound},
		{"disabled account", LoginInput{Identifier: "gone", Password: "p1", CaptchaAnswer: "XY34ab", CaptchaCookie: "c"}, ErrAccountDisabled},
		{"wrong password", LoginInput{Identifier: "ravi", Password: "wrong", CaptchaAnswer: "XY34ab", CaptchaCookie: "c"}, ErrUnauthorized},
		{"missing password", LoginInput{Identifier: "ravi", CaptchaAnswer: "XY34ab", CaptchaCookie: "c"}, ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Login(ctx, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	for _, ident := range []string{"ravi", "r@x.com", "R@X.COM"} {
		sess, err := f.svc.Login(ctx, LoginInput{Identifier: ident, Password: "p1", CaptchaAnswer: "XY34ab", CaptchaCookie: "c"})
		require.NoError(t, err, "identifier %q", ident)
		assert.Equal(t, created.Account.ID, sess.Account.ID)
		assert.NotEmpty(t, sess.Token)
	}
}

func TestLoginCaptchaLedgerError(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "ravi", "r@x.com", "p1")
	f.svc.captcha = stubCaptcha{err: errors.New("ledger unavailable")}

	_, err := f.svc.Login(context.Background(), LoginInput{Identifier: "ravi", Password: "p1", CaptchaAnswer: "a", CaptchaCookie: "c"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCaptchaFailed)
}

func TestCheckSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.signup(t, "ravi", "r@x.com", "p1")

	a, err := f.svc.CheckSession(ctx, sess.Account.ID)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "ravi", a.Username)

	a, err = f.svc.CheckSession(ctx, 12345)
	require.NoError(t, err)
	assert.Nil(t, a)

	sess.Account.IsActive = false
	require.NoError(t, f.store.Save(ctx, sess.Account))
	a, err = f.svc.CheckSession(ctx, sess.Account.ID)
	require.NoError(t, err)
	assert.Nil(t, a)
}
