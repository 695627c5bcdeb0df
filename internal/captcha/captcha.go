// Package captcha issues image challenges bound to the client by a signed,
// short-lived cookie value. The server keeps no state besides a ledger of
// challenge IDs that have already been checked.
package captcha

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// AnswerLength is the number of characters in a challenge.
	AnswerLength = 6
	// TTL is how long a challenge cookie stays valid.
	TTL = 10 * time.Minute
)

// alphabet omits glyphs that are easy to confuse (0/O, 1/l/I, 5/S, 2/Z).
const alphabet = "ABCDEFGHJKLMNPQRTUVWXYabcdefghjkmnpqrtuvwxy346789"

// ErrFailed is returned for every failed verification. The cause is logged
// at debug level and never reported to the caller.
var ErrFailed = errors.New("captcha verification failed")

// Ledger records challenge IDs that have been used. Consume reports true only
// the first time it sees id.
type Ledger interface {
	Consume(ctx context.Context, id string, expiresAt time.Time) (bool, error)
}

// Challenge is a freshly generated puzzle. Answer must never be sent to the
// client.
type Challenge struct {
	Answer string
	Image  []byte // PNG
}

type claims struct {
	Digest string `json:"dig"`
	jwt.RegisteredClaims
}

// Generator creates and verifies challenges.
type Generator struct {
	secret []byte
	ledger Ledger
	now    func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New returns a Generator that signs cookies with secret and records used
// challenges in ledger.
func New(secret string, ledger Ledger, opts ...Option) *Generator {
	g := &Generator{
		secret: []byte(secret),
		ledger: ledger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Create generates a new challenge and the cookie value that binds it to the
// client.
func (g *Generator) Create() (*Challenge, string, error) {
	answer, err := randomAnswer(AnswerLength)
	if err != nil {
		return nil, "", fmt.Errorf("generating answer: %w", err)
	}

	cookie, err := g.issue(answer)
	if err != nil {
		return nil, "", err
	}

	img, err := Render(answer)
	if err != nil {
		return nil, "", err
	}

	return &Challenge{Answer: answer, Image: img}, cookie, nil
}

func (g *Generator) issue(answer string) (string, error) {
	now := g.now()
	id := uuid.NewString()

	c := claims{
		Digest: g.digest(id, answer),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("signing challenge: %w", err)
	}
	return signed, nil
}

// Verify checks answer against the challenge bound in cookie. Any cookie that
// parses is consumed, whether or not the answer matches. Errors other than
// ErrFailed come from the ledger.
func (g *Generator) Verify(ctx context.Context, answer, cookie string) error {
	if answer == "" || cookie == "" {
		slog.Debug("captcha rejected", "reason", "missing answer or cookie")
		return ErrFailed
	}

	c := &claims{}
	_, err := jwt.ParseWithClaims(cookie, c, func(*jwt.Token) (any, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil || c.ID == "" {
		slog.Debug("captcha rejected", "reason", err)
		return ErrFailed
	}

	first, err := g.ledger.Consume(ctx, c.ID, c.ExpiresAt.Time)
	if err != nil {
		return fmt.Errorf("recording challenge: %w", err)
	}
	if !first {
		slog.Debug("captcha rejected", "reason", "replayed", "id", c.ID)
		return ErrFailed
	}

	want, err := hex.DecodeString(c.Digest)
	if err != nil {
		return ErrFailed
	}
	got, _ := hex.DecodeString(g.digest(c.ID, answer))
	if !hmac.Equal(got, want) {
		slog.Debug("captcha rejected", "reason", "wrong answer", "id", c.ID)
		return ErrFailed
	}
	return nil
}

// digest binds answer to the challenge id so a digest cannot be moved
// between cookies.
func (g *Generator) digest(id, answer string) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(id))
	mac.Write([]byte{0})
	mac.Write([]byte(answer))
	return hex.EncodeToString(mac.Sum(nil))
}

func randomAnswer(length int) (string, error) {
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", err
		}
		result[i] = alphabet[n.Int64()]
	}
	return string(result), nil
}
