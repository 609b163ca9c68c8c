package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"nexusmc-api/internal/dto"
	"nexusmc-api/internal/models"
	"nexusmc-api/internal/repositories"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidProfileUpdate = errors.New("invalid profile update")
)

type ProfileService struct {
	userRepo     repositories.UserRepositoryInterface
	auditService AuditServiceInterface
	metrics      MetricsRecorderInterface
	logger       *slog.Logger
}

func NewProfileService(
	userRepo repositories.UserRepositoryInterface,
	auditService AuditServiceInterface,
	metrics MetricsRecorderInterface,
	logger *slog.Logger,
) ProfileServiceInterface {
	return &ProfileService{
		userRepo:     userRepo,
		auditService: auditService,
		metrics:      metrics,
		logger:       logger,
	}
}

func (s *ProfileService) GetProfile(userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateProfile changes only the fields present in req. An empty request returns
// the stored profile unchanged.
func (s *ProfileService) UpdateProfile(userID uuid.UUID, req *dto.UpdateProfileRequest, ipAddress, userAgent string) (*models.User, error) {
	if req == nil || req.IsEmpty() {
		return s.GetProfile(userID)
	}

	fields, err := profileFields(req)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateFields(userID, fields); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	for field := range fields {
		s.metrics.IncrementCounter(MetricProfileUpdated, map[string]string{"field": field})
	}

	if err := s.auditService.LogProfileUpdate(userID, ipAddress, userAgent, fields); err != nil {
		s.logger.Warn("failed to audit profile update", "user_id", userID, "error", err)
	}

	return s.GetProfile(userID)
}

func profileFields(req *dto.UpdateProfileRequest) (map[string]interface{}, error) {
	fields := make(map[string]interface{}, 3)

	if req.Age != nil {
		if *req.Age <= 0 || *req.Age > models.MaxUserAge {
			return nil, fmt.Errorf("%w: age must be between 1 and %d", ErrInvalidProfileUpdate, models.MaxUserAge)
		}
		fields["age"] = *req.Age
	}

	if req.PrimaryGoal != nil {
		goal := strings.TrimSpace(*req.PrimaryGoal)
		if goal == "" {
			return nil, fmt.Errorf("%w: primary goal cannot be blank", ErrInvalidProfileUpdate)
		}
		if len(goal) > models.MaxPrimaryGoalLength {
			return nil, fmt.Errorf("%w: primary goal must be at most %d characters", ErrInvalidProfileUpdate, models.MaxPrimaryGoalLength)
		}
		fields["primary_goal"] = goal
	}

	if req.ESGInterest != nil {
		fields["esg_interest"] = *req.ESGInterest
	}

	return fields, nil
}
