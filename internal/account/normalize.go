package account

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/Roylkrishna/srg-sub001/internal/model"
)

// MaxUsernameLength is measured in runes after normalization.
const MaxUsernameLength = 64

// normalizeUsername folds compatibility characters so look-alike usernames
// collide in the unique index.
func normalizeUsername(s string) string {
	return norm.NFKC.String(strings.TrimSpace(s))
}

func normalizeEmail(s string) string {
	return strings.ToLower(norm.NFKC.String(strings.TrimSpace(s)))
}

// validateUsername rejects usernames that could be mistaken for an email at
// login.
func validateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("%w: username is required", ErrValidation)
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return fmt.Errorf("%w: username must be at most %d characters", ErrValidation, MaxUsernameLength)
	}
	for _, r := range username {
		if r == '@' || unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%w: username must not contain spaces or '@'", ErrValidation)
		}
	}
	return nil
}

func validatePassword(password string) error {
	if err := model.ValidatePassword(password); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
