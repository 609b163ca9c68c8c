package services

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"nexusmc-api/internal/dto"
	"nexusmc-api/internal/models"
	"nexusmc-api/internal/repositories"
	"nexusmc-api/internal/repositories/repository_mocks"
	"nexusmc-api/internal/services/service_mocks"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type ProfileServiceTestSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	userRepo     *repository_mocks.MockUserRepositoryInterface
	auditService *service_mocks.MockAuditServiceInterface
	metrics      *service_mocks.MockMetricsRecorderInterface
	service      ProfileServiceInterface
	user         *models.User
}

func TestProfileServiceSuite(t *testing.T) {
	suite.Run(t, new(ProfileServiceTestSuite))
}

func (s *ProfileServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.userRepo = repository_mocks.NewMockUserRepositoryInterface(s.ctrl)
	s.auditService = service_mocks.NewMockAuditServiceInterface(s.ctrl)
	s.metrics = service_mocks.NewMockMetricsRecorderInterface(s.ctrl)
	s.service = NewProfileService(s.userRepo, s.auditService, s.metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.user = &models.User{ID: uuid.New(), Email: "ana@example.com", Role: models.RoleUser}
}

func (s *ProfileServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func ptr[T any](v T) *T {
	return &v
}

func (s *ProfileServiceTestSuite) TestGetProfile() {
	s.userRepo.EXPECT().GetByID(s.user.ID).Return(s.user, nil)

	user, err := s.service.GetProfile(s.user.ID)

	s.NoError(err)
	s.Equal(s.user, user)
}

func (s *ProfileServiceTestSuite) TestGetProfile_NotFound() {
	s.userRepo.EXPECT().GetByID(s.user.ID).Return(nil, repositories.ErrUserNotFound)

	_, err := s.service.GetProfile(s.user.ID)

	s.ErrorIs(err, ErrUserNotFound)
}

func (s *ProfileServiceTestSuite) TestUpdateProfile_OnlyProvidedFields() {
	updated := *s.user
	updated.Age = ptr(29)
	updated.ESGInterest = true

	expected := map[string]interface{}{"age": 29, "esg_interest": true}
	s.userRepo.EXPECT().UpdateFields(s.user.ID, expected).Return(nil)
	s.metrics.EXPECT().IncrementCounter(MetricProfileUpdated, map[string]string{"field": "age"})
	s.metrics.EXPECT().IncrementCounter(MetricProfileUpdated, map[string]string{"field": "esg_interest"})
	s.auditService.EXPECT().LogProfileUpdate(s.user.ID, "127.0.0.1", "test-agent", expected).Return(nil)
	s.userRepo.EXPECT().GetByID(s.user.ID).Return(&updated, nil)

	user, err := s.service.UpdateProfile(s.user.ID, &dto.UpdateProfileRequest{
		Age:         ptr(29),
		ESGInterest: ptr(true),
	}, "127.0.0.1", "test-agent")

	s.Require().NoError(err)
	s.Equal(29, *user.Age)
	s.True(user.ESGInterest)
}

func (s *ProfileServiceTestSuite) TestUpdateProfile_TrimsPrimaryGoal() {
	s.userRepo.EXPECT().UpdateFields(s.user.ID, map[string]interface{}{"primary_goal": "Comprar casa"}).Return(nil)
	s.metrics.EXPECT().IncrementCounter(MetricProfileUpdated, gomock.Any())
	s.auditService.EXPECT().LogProfileUpdate(s.user.ID, gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	s.userRepo.EXPECT().GetByID(s.user.ID).Return(s.user, nil)

	_, err := s.service.UpdateProfile(s.user.ID, &dto.UpdateProfileRequest{PrimaryGoal: ptr("  Comprar casa ")}, "", "")

	s.NoError(err)
}

func (s *ProfileServiceTestSuite) TestUpdateProfile_EmptyRequestReturnsCurrent() {
	s.userRepo.EXPECT().GetByID(s.user.ID).Return(s.user, nil)

	user, err := s.service.UpdateProfile(s.user.ID, &dto.UpdateProfileRequest{}, "", "")

	s.NoError(err)
	s.Equal(s.user, user)
}

func (s *ProfileServiceTestSuite) TestUpdateProfile_Invalid() {
	testCases := []struct {
		name string
		req  *dto.UpdateProfileRequest
	}{
		{"zero age", &dto.UpdateProfileRequest{Age: ptr(0)}},
		{"negative age", &dto.UpdateProfileRequest{Age: ptr(-3)}},
		{"age too high", &dto.UpdateProfileRequest{Age: ptr(131)}},
		{"blank goal", &dto.UpdateProfileRequest{PrimaryGoal: ptr("   ")}},
		{"goal too long", &dto.UpdateProfileRequest{PrimaryGoal: ptr(strings.Repeat("x", 256))}},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			_, err := s.service.UpdateProfile(s.user.ID, tc.req, "", "")
			s.ErrorIs(err, ErrInvalidProfileUpdate)
		})
	}
}

func (s *ProfileServiceTestSuite) TestUpdateProfile_UserMissing() {
	s.userRepo.EXPECT().UpdateFields(s.user.ID, gomock.Any()).Return(repositories.ErrUserNotFound)

	_, err := s.service.UpdateProfile(s.user.ID, &dto.UpdateProfileRequest{ESGInterest: ptr(false)}, "", "")

	s.ErrorIs(err, ErrUserNotFound)
}

func (s *ProfileServiceTestSuite) TestUpdateProfile_AuditFailureIsNotFatal() {
	s.userRepo.EXPECT().UpdateFields(s.user.ID, gomock.Any()).Return(nil)
	s.metrics.EXPECT().IncrementCounter(MetricProfileUpdated, gomock.Any())
	s.auditService.EXPECT().LogProfileUpdate(s.user.ID, gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("db down"))
	s.userRepo.EXPECT().GetByID(s.user.ID).Return(s.user, nil)

	_, err := s.service.UpdateProfile(s.user.ID, &dto.UpdateProfileRequest{ESGInterest: ptr(true)}, "", "")

	s.NoError(err)
}
