package services

import (
	"errors"
	"fmt"
	"slices"

	"nexusmc-api/internal/models"
	"nexusmc-api/internal/repositories"

	"github.com/google/uuid"
)

// MaxActivityPageSize caps GET /users/me/activity.
const MaxActivityPageSize = 100

var (
	ErrInvalidUserID   = errors.New("invalid user ID")
	ErrInvalidAuditLog = errors.New("invalid audit log")
)

var auditActions = []string{
	models.AuditActionRegister,
	models.AuditActionLogin,
	models.AuditActionLogout,
	models.AuditActionFailedLogin,
	models.AuditActionAccountLocked,
	models.AuditActionTokenRefresh,
	models.AuditActionProfileUpdated,
	models.AuditActionBankLinked,
	models.AuditActionLinkToken,
}

func ValidateActivityType(action string) error {
	if !slices.Contains(auditActions, action) {
		return fmt.Errorf("invalid activity type: %q", action)
	}
	return nil
}

// AuditService writes the user-visible trail for profile and bank link changes
// and reads it back for the activity endpoint. Authentication events are
// recorded by AuthService.
type AuditService struct {
	repo repositories.AuditLogRepositoryInterface
}

func NewAuditService(repo repositories.AuditLogRepositoryInterface) AuditServiceInterface {
	return &AuditService{repo: repo}
}

func (s *AuditService) CreateAuditLog(entry *models.AuditLog) error {
	if entry == nil {
		return ErrInvalidAuditLog
	}
	if err := ValidateActivityType(entry.Action); err != nil {
		return err
	}
	if err := s.repo.Create(entry); err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// GetUserActivity pages through a user's trail, newest first. Out of range
// paging is clamped rather than rejected.
func (s *AuditService) GetUserActivity(userID uuid.UUID, offset, limit int) ([]*models.AuditLog, int64, error) {
	if userID == uuid.Nil {
		return nil, 0, ErrInvalidUserID
	}
	if limit <= 0 || limit > MaxActivityPageSize {
		limit = MaxActivityPageSize
	}
	return s.repo.GetByUserID(userID, max(offset, 0), limit)
}

func (s *AuditService) LogProfileUpdate(userID uuid.UUID, ipAddress, userAgent string, changes map[string]interface{}) error {
	entry := s.entry(userID, models.AuditActionProfileUpdated, models.AuditResourceUser, userID.String(), ipAddress, userAgent)
	for field, value := range changes {
		entry.Annotate(field, value)
	}
	return s.CreateAuditLog(entry)
}

func (s *AuditService) LogLinkTokenCreated(userID uuid.UUID, ipAddress, userAgent string) error {
	return s.CreateAuditLog(s.entry(userID, models.AuditActionLinkToken, models.AuditResourceBank, userID.String(), ipAddress, userAgent))
}

// LogBankLinked references the Plaid item only; the access token never enters the trail.
func (s *AuditService) LogBankLinked(userID uuid.UUID, itemID, ipAddress, userAgent string) error {
	return s.CreateAuditLog(s.entry(userID, models.AuditActionBankLinked, models.AuditResourceBank, itemID, ipAddress, userAgent))
}

func (s *AuditService) entry(userID uuid.UUID, action, resource, resourceID, ipAddress, userAgent string) *models.AuditLog {
	return &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
	}
}
