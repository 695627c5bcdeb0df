package model

import (
	"errors"
	"strings"
	"time"
)

// Account represents a user account. PasswordHash is never serialized.
type Account struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// MaxPasswordLength is the bcrypt input limit in bytes.
const MaxPasswordLength = 72

// Password policy errors.
var (
	ErrPasswordEmpty   = errors.New("password required")
	ErrPasswordTooLong = errors.New("password must be at most 72 bytes")
)

// ValidatePassword checks the password policy.
func ValidatePassword(password string) error {
	if password == "" {
		return ErrPasswordEmpty
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// ErrInvalidEmail is returned by ValidateEmail.
var ErrInvalidEmail = errors.New("invalid email address")

// ValidateEmail does a shallow shape check; deliverability is not our problem.
func ValidateEmail(email string) error {
	at := strings.LastIndexByte(email, '@')
	if at < 1 || at == len(email)-1 || strings.ContainsAny(email, " \t\r\n") {
		return ErrInvalidEmail
	}
	return nil
}
