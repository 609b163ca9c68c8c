package services

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"nexusmc-api/internal/config"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultMinPasswordLength = 8
	// MaxPasswordLength is in bytes; bcrypt rejects longer input.
	MaxPasswordLength = 72
)

const passwordSymbols = "!@#$%^&*()_+-=[]{}|;:,.<>?"

var (
	ErrPasswordEmpty       = errors.New("password cannot be empty")
	ErrPasswordTooShort    = errors.New("password is too short")
	ErrPasswordTooLong     = fmt.Errorf("password must not exceed %d characters", MaxPasswordLength)
	ErrPasswordNoUppercase = errors.New("password must contain at least one uppercase letter")
	ErrPasswordNoLowercase = errors.New("password must contain at least one lowercase letter")
	ErrPasswordNoNumber    = errors.New("password must contain at least one number")
	ErrPasswordNoSpecial   = errors.New("password must contain at least one special character")
)

type characterRule struct {
	enabled bool
	accepts func(rune) bool
	err     error
}

// PasswordService enforces the password policy and wraps bcrypt.
type PasswordService struct {
	cost      int
	minLength int
	rules     []characterRule
}

func NewPasswordService(security config.SecurityConfig) PasswordServiceInterface {
	cost := security.BCryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	minLength := security.PasswordMinLength
	if minLength <= 0 {
		minLength = DefaultMinPasswordLength
	}

	return &PasswordService{
		cost:      cost,
		minLength: minLength,
		rules: []characterRule{
			{security.RequireUppercase, unicode.IsUpper, ErrPasswordNoUppercase},
			{security.RequireLowercase, unicode.IsLower, ErrPasswordNoLowercase},
			{security.RequireNumbers, unicode.IsDigit, ErrPasswordNoNumber},
			{security.RequireSpecialChars, isPasswordSymbol, ErrPasswordNoSpecial},
		},
	}
}

func isPasswordSymbol(r rune) bool {
	return strings.ContainsRune(passwordSymbols, r)
}

// ValidatePassword returns the first policy violation, or nil.
func (ps *PasswordService) ValidatePassword(password string) error {
	switch {
	case password == "":
		return ErrPasswordEmpty
	case len(password) < ps.minLength:
		return fmt.Errorf("%w: must be at least %d characters", ErrPasswordTooShort, ps.minLength)
	case len(password) > MaxPasswordLength:
		return ErrPasswordTooLong
	}

	for _, rule := range ps.rules {
		if rule.enabled && strings.IndexFunc(password, rule.accepts) < 0 {
			return rule.err
		}
	}
	return nil
}

// HashPassword validates before hashing, so callers cannot store a password the policy rejects.
func (ps *PasswordService) HashPassword(password string) (string, error) {
	if err := ps.ValidatePassword(password); err != nil {
		return "", fmt.Errorf("password validation failed: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), ps.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// ComparePassword is false for a mismatch and for a hash bcrypt cannot read.
func (ps *PasswordService) ComparePassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
