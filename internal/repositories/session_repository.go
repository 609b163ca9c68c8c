package repositories

import (
	"errors"
	"fmt"
	"time"

	"nexusmc-api/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrTokenNotFound        = errors.New("token not found")
)

// Refresh tokens and the access token blacklist together make up a user's session state.

type refreshTokenRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepositoryInterface {
	return &refreshTokenRepository{db: db, now: time.Now}
}

func (r *refreshTokenRepository) Create(token *models.RefreshToken) error {
	if token == nil {
		return errors.New("refresh token cannot be nil")
	}
	if err := r.db.Create(token).Error; err != nil {
		return fmt.Errorf("failed to store refresh token for user %s: %w", token.UserID, err)
	}
	return nil
}

func (r *refreshTokenRepository) GetByTokenHash(tokenHash string) (*models.RefreshToken, error) {
	token := new(models.RefreshToken)
	err := r.db.Where("token_hash = ?", tokenHash).Take(token).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrRefreshTokenNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}
	return token, nil
}

// Update persists revocation state. Only the rotation columns are written.
func (r *refreshTokenRepository) Update(token *models.RefreshToken) error {
	if token == nil {
		return errors.New("refresh token cannot be nil")
	}
	err := r.db.Model(token).
		Select("revoked_at", "replaced_by_id").
		Updates(map[string]interface{}{
			"revoked_at":     token.RevokedAt,
			"replaced_by_id": token.ReplacedByID,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update refresh token %s: %w", token.ID, err)
	}
	return nil
}

func (r *refreshTokenRepository) RevokeAllForUser(userID uuid.UUID) error {
	err := r.db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", r.now()).Error
	if err != nil {
		return fmt.Errorf("failed to revoke refresh tokens for user %s: %w", userID, err)
	}
	return nil
}

func (r *refreshTokenRepository) DeleteExpired() (int64, error) {
	return deleteExpired(r.db, &models.RefreshToken{}, r.now())
}

type blacklistedTokenRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewBlacklistedTokenRepository(db *gorm.DB) BlacklistedTokenRepositoryInterface {
	return &blacklistedTokenRepository{db: db, now: time.Now}
}

// Create blacklists a JTI. Blacklisting the same JTI twice is not an error.
func (r *blacklistedTokenRepository) Create(token *models.BlacklistedToken) error {
	if token == nil {
		return errors.New("blacklisted token cannot be nil")
	}
	err := r.db.Create(token).Error
	if err != nil && !isDuplicateKeyError(err) {
		return fmt.Errorf("failed to blacklist token %s: %w", token.JTI, err)
	}
	return nil
}

func (r *blacklistedTokenRepository) GetByJTI(jti string) (*models.BlacklistedToken, error) {
	token := new(models.BlacklistedToken)
	err := r.db.Where("jti = ?", jti).Take(token).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrTokenNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to look up blacklisted token: %w", err)
	}
	return token, nil
}

func (r *blacklistedTokenRepository) DeleteExpired() (int64, error) {
	return deleteExpired(r.db, &models.BlacklistedToken{}, r.now())
}

func deleteExpired(db *gorm.DB, model interface{}, now time.Time) (int64, error) {
	result := db.Where("expires_at < ?", now).Delete(model)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge expired %T rows: %w", model, result.Error)
	}
	return result.RowsAffected, nil
}
