package models

import (
	"errors"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	MaxUserAge           = 130
	MaxPrimaryGoalLength = 255
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

var (
	ErrEmailRequired = errors.New("email is required")
	ErrInvalidEmail  = errors.New("invalid email format")
)

// User is an account holder together with their financial profile and bank link.
// The Plaid access token is stored encrypted and never serialized.
type User struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	Email               string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash        string         `gorm:"type:varchar(255);not null" json:"-"`
	Role                string         `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	Age                 *int           `json:"age,omitempty"`
	PrimaryGoal         *string        `gorm:"type:varchar(255)" json:"primary_goal,omitempty"`
	ESGInterest         bool           `gorm:"not null;default:false" json:"esg_interest"`
	PlaidAccessToken    *string        `gorm:"column:plaid_access_token_encrypted;type:text" json:"-"`
	PlaidItemID         *string        `gorm:"type:varchar(255)" json:"-"`
	FailedLoginAttempts int            `gorm:"default:0" json:"-"`
	LockedAt            *time.Time     `gorm:"index" json:"locked_at,omitempty"`
	LastLoginAt         *time.Time     `gorm:"index" json:"last_login_at,omitempty"`
	CreatedAt           time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	RefreshTokens     []RefreshToken     `gorm:"foreignKey:UserID" json:"-"`
	BlacklistedTokens []BlacklistedToken `gorm:"foreignKey:UserID" json:"-"`
	AuditLogs         []AuditLog         `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(*gorm.DB) error {
	stamp(&u.ID, &u.CreatedAt)
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return u.Validate()
}

// BeforeUpdate validates full-struct saves. Map updates carry only the changed columns and are checked by the caller.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	if tx != nil && tx.Statement != nil {
		if _, partial := tx.Statement.Dest.(map[string]interface{}); partial {
			return nil
		}
	}
	return u.Validate()
}

func (u *User) Validate() error {
	switch {
	case u.Email == "":
		return ErrEmailRequired
	case !emailPattern.MatchString(u.Email):
		return ErrInvalidEmail
	case u.Role != RoleUser && u.Role != RoleAdmin:
		return fmt.Errorf("invalid role: %q", u.Role)
	case u.Age != nil && (*u.Age < 1 || *u.Age > MaxUserAge):
		return fmt.Errorf("age must be between 1 and %d", MaxUserAge)
	case u.PrimaryGoal != nil && utf8.RuneCountInString(*u.PrimaryGoal) > MaxPrimaryGoalLength:
		return fmt.Errorf("primary goal must be at most %d characters", MaxPrimaryGoalLength)
	}
	return nil
}

func (u *User) IsLocked() bool { return u.LockedAt != nil }

// IncrementFailedAttempts records a wrong password and locks the account once maxAttempts is reached.
// It reports whether this attempt caused the lock. A non-positive maxAttempts never locks.
func (u *User) IncrementFailedAttempts(maxAttempts int) bool {
	u.FailedLoginAttempts++
	if maxAttempts <= 0 || u.FailedLoginAttempts < maxAttempts || u.IsLocked() {
		return false
	}
	at := time.Now()
	u.LockedAt = &at
	return true
}

// HasLinkedBank reports whether an encrypted Plaid access token is stored.
func (u *User) HasLinkedBank() bool {
	return u.PlaidAccessToken != nil && *u.PlaidAccessToken != ""
}

// AgeOrZero returns the stored age, or 0 when the user has not set one.
func (u *User) AgeOrZero() int {
	if u.Age == nil {
		return 0
	}
	return *u.Age
}
