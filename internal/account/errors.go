package account

import (
	"errors"
	"strings"
)

// Outcomes of account operations. Callers match them with errors.Is; the
// HTTP layer maps each to a status code.
var (
	ErrValidation      = errors.New("invalid request")
	ErrCaptchaFailed   = errors.New("captcha verification failed")
	ErrNotFound        = errors.New("account not found")
	ErrAccountDisabled = errors.New("account is disabled")
	ErrUnauthorized    = errors.New("invalid credentials")
	ErrForbidden       = errors.New("forbidden")
)

// Conflicting identifier fields.
const (
	FieldUsername = "username"
	FieldEmail    = "email"
)

// ConflictError reports that a username or email is already taken.
// Suggestions is only set for username conflicts.
type ConflictError struct {
	Field       string
	Suggestions []string
}

func (e *ConflictError) Error() string {
	var b strings.Builder
	b.WriteString(e.Field)
	b.WriteString(" already taken")
	if len(e.Suggestions) > 0 {
		b.WriteString(", try ")
		b.WriteString(strings.Join(e.Suggestions, ", "))
	}
	return b.String()
}
