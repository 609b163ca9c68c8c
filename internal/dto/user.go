package dto

import (
	"time"

	"nexusmc-api/internal/models"
)

// UpdateProfileRequest is a partial profile update; nil fields are left untouched.
type UpdateProfileRequest struct {
	Age         *int    `json:"age" validate:"omitempty,gt=0,lte=130"`
	PrimaryGoal *string `json:"primary_goal" validate:"omitempty,not_blank,max=255"`
	ESGInterest *bool   `json:"esg_interest"`
}

// IsEmpty reports whether the request carries no field to update.
func (r *UpdateProfileRequest) IsEmpty() bool {
	return r.Age == nil && r.PrimaryGoal == nil && r.ESGInterest == nil
}

// UserProfileResponse represents the authenticated user's profile
type UserProfileResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Age         *int      `json:"age"`
	PrimaryGoal *string   `json:"primary_goal"`
	ESGInterest bool      `json:"esg_interest"`
	BankLinked  bool      `json:"bank_linked"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewUserProfileResponse(user *models.User) UserProfileResponse {
	return UserProfileResponse{
		ID:          user.ID.String(),
		Email:       user.Email,
		Age:         user.Age,
		PrimaryGoal: user.PrimaryGoal,
		ESGInterest: user.ESGInterest,
		BankLinked:  user.HasLinkedBank(),
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

// ActivityItem is one entry of the user's audit trail
type ActivityItem struct {
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	IPAddress string    `json:"ip_address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ActivityResponse struct {
	Items  []ActivityItem `json:"items"`
	Total  int64          `json:"total"`
	Offset int            `json:"offset"`
	Limit  int            `json:"limit"`
}

func NewActivityResponse(logs []*models.AuditLog, total int64, offset, limit int) ActivityResponse {
	items := make([]ActivityItem, 0, len(logs))
	for _, log := range logs {
		items = append(items, ActivityItem{
			Action:    log.Action,
			Resource:  log.Resource,
			IPAddress: log.IPAddress,
			CreatedAt: log.CreatedAt,
		})
	}
	return ActivityResponse{Items: items, Total: total, Offset: offset, Limit: limit}
}
