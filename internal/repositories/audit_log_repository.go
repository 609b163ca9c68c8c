package repositories

import (
	"errors"
	"fmt"
	"time"

	"nexusmc-api/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditLogRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAuditLogRepository(db *gorm.DB) AuditLogRepositoryInterface {
	return &AuditLogRepository{db: db, now: time.Now}
}

func (r *AuditLogRepository) Create(entry *models.AuditLog) error {
	if entry == nil {
		return errors.New("audit log cannot be nil")
	}
	if err := r.db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create audit log for action %s: %w", entry.Action, err)
	}
	return nil
}

// GetByUserID returns one page of a user's trail, newest first, plus the unpaged total.
func (r *AuditLogRepository) GetByUserID(userID uuid.UUID, offset, limit int) ([]*models.AuditLog, int64, error) {
	forUser := func(db *gorm.DB) *gorm.DB {
		return db.Model(&models.AuditLog{}).Where("user_id = ?", userID)
	}

	var total int64
	if err := r.db.Scopes(forUser).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}
	if total == 0 {
		return []*models.AuditLog{}, 0, nil
	}

	logs := make([]*models.AuditLog, 0, limit)
	err := r.db.Scopes(forUser).
		Order("created_at DESC").
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get audit logs for user: %w", err)
	}

	return logs, total, nil
}

// DeleteOlderThan enforces the retention window.
func (r *AuditLogRepository) DeleteOlderThan(retention time.Duration) (int64, error) {
	result := r.db.Where("created_at < ?", r.now().Add(-retention)).Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old audit logs: %w", result.Error)
	}
	return result.RowsAffected, nil
}
