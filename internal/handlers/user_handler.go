package handlers

import (
	stderrors "errors"
	"net/http"

	"nexusmc-api/internal/dto"
	"nexusmc-api/internal/errors"
	"nexusmc-api/internal/services"

	"github.com/labstack/echo/v4"
)

const defaultActivityPageSize = 20

// UserHandler serves the authenticated user's own profile and audit trail
type UserHandler struct {
	profileService services.ProfileServiceInterface
	auditService   services.AuditServiceInterface
}

func NewUserHandler(profileService services.ProfileServiceInterface, auditService services.AuditServiceInterface) *UserHandler {
	return &UserHandler{profileService: profileService, auditService: auditService}
}

// GetMe returns the current user's profile
// @Summary Get current user profile
// @Tags Users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.UserProfileResponse
// @Failure 401 {object} errors.ErrorResponse "AUTH_002 or AUTH_004"
// @Router /users/me [get]
func (h *UserHandler) GetMe(c echo.Context) error {
	user, err := getUserFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthInvalidTokenFormat)
	}

	return c.JSON(http.StatusOK, dto.NewUserProfileResponse(user))
}

// UpdateMe applies a partial profile update
// @Summary Update current user profile
// @Tags Users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.UpdateProfileRequest true "Fields to change"
// @Success 200 {object} dto.UserProfileResponse
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_001"
// @Failure 404 {object} errors.ErrorResponse "USER_001"
// @Router /users/me [put]
func (h *UserHandler) UpdateMe(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthInvalidTokenFormat)
	}

	var req dto.UpdateProfileRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}

	user, err := h.profileService.UpdateProfile(userID, &req, getClientIP(c), c.Request().UserAgent())
	if err != nil {
		switch {
		case stderrors.Is(err, services.ErrInvalidProfileUpdate):
			return SendError(c, errors.ValidationOutOfRange, errors.WithDetails(err.Error()))
		case stderrors.Is(err, services.ErrUserNotFound):
			return SendError(c, errors.UserNotFound)
		}
		return SendSystemError(c, err)
	}

	return c.JSON(http.StatusOK, dto.NewUserProfileResponse(user))
}

// GetActivity pages through the current user's audit trail, newest first.
func (h *UserHandler) GetActivity(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthInvalidTokenFormat)
	}

	offset := getQueryInt(c, "offset", 0)
	limit := min(max(getQueryInt(c, "limit", defaultActivityPageSize), 1), services.MaxActivityPageSize)

	logs, total, err := h.auditService.GetUserActivity(userID, offset, limit)
	if err != nil {
		return SendSystemError(c, err)
	}

	return c.JSON(http.StatusOK, dto.NewActivityResponse(logs, total, offset, limit))
}
