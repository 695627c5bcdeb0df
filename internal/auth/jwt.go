package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenTTL is the lifetime of an identity token. Every verified request
// reissues the token, so a session lapses TokenTTL after its last request.
const TokenTTL = 10 * time.Minute

// ErrInvalidToken is returned for any token that fails verification. Missing,
// malformed, forged and expired tokens are deliberately indistinguishable.
var ErrInvalidToken = errors.New("invalid token")

// Claims represents the JWT claims. Subject holds the account ID.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the verified content of a token. Role is a snapshot taken at
// issuance and is not refreshed from the store.
type Identity struct {
	AccountID int64
	Role      string
	ExpiresAt time.Time
}

// Tokens issues and verifies identity tokens signed with HS256.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption configures Tokens.
type TokenOption func(*Tokens)

// WithClock replaces the time source used for issuing and verifying.
func WithClock(now func() time.Time) TokenOption {
	return func(t *Tokens) { t.now = now }
}

// NewTokens returns a token service signing with secret.
func NewTokens(secret string, opts ...TokenOption) *Tokens {
	t := &Tokens{
		secret: []byte(secret),
		ttl:    TokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Issue creates a new token for the account with a unique JTI.
func (t *Tokens) Issue(accountID int64, role string) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)

	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(accountID, 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a token. Any failure yields ErrInvalidToken.
func (t *Tokens) Verify(tokenStr string) (*Identity, error) {
	if tokenStr == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		slog.Debug("token rejected", "reason", err)
		return nil, ErrInvalidToken
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 || claims.Role == "" {
		slog.Debug("token rejected", "reason", "bad subject or role")
		return nil, ErrInvalidToken
	}

	return &Identity{
		AccountID: id,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
