package repositories

import (
	"errors"
	"fmt"
	"strings"

	"nexusmc-api/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

// Columns a profile update may touch.
var profileColumns = map[string]bool{
	"age":          true,
	"primary_goal": true,
	"esg_interest": true,
}

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepositoryInterface {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *models.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	err := r.db.Create(user).Error
	switch {
	case isDuplicateKeyError(err):
		return ErrUserAlreadyExists
	case err != nil:
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(id uuid.UUID) (*models.User, error) {
	return r.findOne("id = ?", id)
}

// GetByEmail matches case-insensitively.
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	return r.findOne("LOWER(email) = ?", strings.ToLower(email))
}

func (r *UserRepository) findOne(query string, arg interface{}) (*models.User, error) {
	user := new(models.User)
	err := r.db.Where(query, arg).Take(user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrUserNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// UpdateFields applies a partial profile update. Any column outside the profile is rejected
// before anything is written.
func (r *UserRepository) UpdateFields(userID uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	for column := range fields {
		if !profileColumns[column] {
			return fmt.Errorf("column %q is not part of the profile", column)
		}
	}
	return r.updateColumns(userID, fields, "profile")
}

// UpdateFailedLoginAttempts persists the counter and lock set by models.User.IncrementFailedAttempts.
func (r *UserRepository) UpdateFailedLoginAttempts(user *models.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	return r.updateColumns(user.ID, map[string]interface{}{
		"failed_login_attempts": user.FailedLoginAttempts,
		"locked_at":             user.LockedAt,
	}, "login attempts")
}

// ResetFailedLoginAttempts clears the counter after a good password and stamps the login time.
func (r *UserRepository) ResetFailedLoginAttempts(userID uuid.UUID) error {
	return r.updateColumns(userID, map[string]interface{}{
		"failed_login_attempts": 0,
		"last_login_at":         gorm.Expr("CURRENT_TIMESTAMP"),
	}, "login attempts")
}

// UpdateBankLink stores the encrypted Plaid access token and item ID.
func (r *UserRepository) UpdateBankLink(userID uuid.UUID, encryptedAccessToken, itemID string) error {
	if encryptedAccessToken == "" {
		return errors.New("encrypted access token cannot be empty")
	}
	return r.updateColumns(userID, map[string]interface{}{
		"plaid_access_token_encrypted": encryptedAccessToken,
		"plaid_item_id":                itemID,
	}, "bank link")
}

// updateColumns writes a partial update and maps a missing row to ErrUserNotFound.
func (r *UserRepository) updateColumns(userID uuid.UUID, columns map[string]interface{}, what string) error {
	result := r.db.Model(&models.User{}).Where("id = ?", userID).Updates(columns)
	if result.Error != nil {
		return fmt.Errorf("failed to update %s for user %s: %w", what, userID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// isDuplicateKeyError recognises unique violations from both Postgres (23505) and SQLite.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	for _, marker := range []string{"duplicate key", "UNIQUE constraint", "23505"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
