package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RefreshToken stores the SHA-256 of an issued refresh token, never the token itself.
// Rotation revokes the presented token and points it at its successor so a replay can be detected.
type RefreshToken struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	TokenHash    string     `gorm:"type:varchar(255);not null;uniqueIndex" json:"-"`
	ExpiresAt    time.Time  `gorm:"not null;index" json:"expires_at"`
	RevokedAt    *time.Time `gorm:"index" json:"revoked_at,omitempty"`
	ReplacedByID *uuid.UUID `gorm:"type:uuid" json:"replaced_by_id,omitempty"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }

func (rt *RefreshToken) IsExpired() bool  { return !time.Now().Before(rt.ExpiresAt) }
func (rt *RefreshToken) IsRevoked() bool  { return rt.RevokedAt != nil }
func (rt *RefreshToken) IsValid() bool    { return !rt.IsRevoked() && !rt.IsExpired() }
func (rt *RefreshToken) WasRotated() bool { return rt.IsRevoked() && rt.ReplacedByID != nil }

func (rt *RefreshToken) Revoke() {
	if rt.RevokedAt != nil {
		return
	}
	at := time.Now()
	rt.RevokedAt = &at
}

// RevokeFor revokes the token and records the token that replaced it.
func (rt *RefreshToken) RevokeFor(successor uuid.UUID) {
	rt.Revoke()
	rt.ReplacedByID = &successor
}

func (rt *RefreshToken) BeforeCreate(*gorm.DB) error {
	stamp(&rt.ID, &rt.CreatedAt)
	return nil
}

// BlacklistedToken marks an access token, by JWT ID, as unusable until it would have expired anyway.
// UserID is nil when the token was too broken to attribute.
type BlacklistedToken struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	JTI           string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"jti"`
	UserID        *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	ExpiresAt     time.Time  `gorm:"not null;index" json:"expires_at"`
	BlacklistedAt time.Time  `gorm:"not null" json:"blacklisted_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (BlacklistedToken) TableName() string { return "blacklisted_tokens" }

// IsExpired reports whether the row can be purged.
func (bt *BlacklistedToken) IsExpired() bool { return !time.Now().Before(bt.ExpiresAt) }

func (bt *BlacklistedToken) BeforeCreate(*gorm.DB) error {
	stamp(&bt.ID, &bt.BlacklistedAt)
	return nil
}

// stamp fills a missing primary key and creation time.
func stamp(id *uuid.UUID, created *time.Time) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	if created.IsZero() {
		*created = time.Now()
	}
}
