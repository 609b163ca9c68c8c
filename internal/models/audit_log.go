package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AuditActionRegister       = "register"
	AuditActionLogin          = "login"
	AuditActionLogout         = "logout"
	AuditActionFailedLogin    = "failed_login"
	AuditActionAccountLocked  = "account_locked"
	AuditActionTokenRefresh   = "token_refresh"
	AuditActionProfileUpdated = "profile_updated"
	AuditActionBankLinked     = "bank_linked"
	AuditActionLinkToken      = "link_token_created"
)

const (
	AuditResourceAuth = "auth"
	AuditResourceUser = "user"
	AuditResourceBank = "bank_link"
)

// AuditLog is one entry of the security and account trail.
// UserID is nil for events that could not be attributed, such as a login for an unknown email.
type AuditLog struct {
	ID         uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	UserID     *uuid.UUID    `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Action     string        `gorm:"type:varchar(100);not null;index" json:"action"`
	Resource   string        `gorm:"type:varchar(100);not null" json:"resource"`
	ResourceID string        `gorm:"type:varchar(255)" json:"resource_id,omitempty"`
	IPAddress  string        `gorm:"type:varchar(45)" json:"ip_address,omitempty"`
	UserAgent  string        `gorm:"type:text" json:"user_agent,omitempty"`
	Metadata   AuditMetadata `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt  time.Time     `gorm:"not null;index" json:"created_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"-"`
}

func (AuditLog) TableName() string { return "audit_logs" }

func (al *AuditLog) BeforeCreate(*gorm.DB) error {
	stamp(&al.ID, &al.CreatedAt)
	return nil
}

// Annotate attaches one metadata value.
func (al *AuditLog) Annotate(key string, value interface{}) {
	if al.Metadata == nil {
		al.Metadata = AuditMetadata{}
	}
	al.Metadata[key] = value
}

// Lookup returns a metadata value. Numbers read back from storage are float64.
func (al *AuditLog) Lookup(key string) (interface{}, bool) {
	value, ok := al.Metadata[key]
	return value, ok
}

func (al *AuditLog) String() string {
	actor := "anonymous"
	if al.UserID != nil {
		actor = al.UserID.String()
	}
	return fmt.Sprintf("audit[%s %s %s/%s from %s at %s]",
		actor, al.Action, al.Resource, al.ResourceID, al.IPAddress, al.CreatedAt.Format(time.RFC3339))
}

// AuditMetadata is stored as JSON text so the same column works on Postgres and SQLite.
type AuditMetadata map[string]interface{}

func (m AuditMetadata) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	encoded, err := json.Marshal(map[string]interface{}(m))
	if err != nil {
		return nil, fmt.Errorf("encode audit metadata: %w", err)
	}
	return string(encoded), nil
}

func (m *AuditMetadata) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into AuditMetadata", src)
	}

	if len(raw) == 0 {
		*m = nil
		return nil
	}
	decoded := map[string]interface{}{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("decode audit metadata: %w", err)
	}
	*m = decoded
	return nil
}
