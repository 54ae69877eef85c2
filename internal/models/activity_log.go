package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Category classifies the subsystem an activity log entry originates from.
type Category string

// Known activity categories. Unrecognized wire values parse to CategoryUnknown
// so rendering stays total for entries recorded by newer kiosk builds.
const (
	CategoryAdmin    Category = "admin"
	CategoryPayment  Category = "payment"
	CategoryContent  Category = "content"
	CategorySystem   Category = "system"
	CategorySecurity Category = "security"
	CategoryHardware Category = "hardware"
	CategoryUser     Category = "user"
	CategoryUnknown  Category = "unknown"
)

// ParseCategory normalizes a raw category string into a known Category.
func ParseCategory(raw string) Category {
	switch Category(strings.ToLower(strings.TrimSpace(raw))) {
	case CategoryAdmin:
		return CategoryAdmin
	case CategoryPayment:
		return CategoryPayment
	case CategoryContent:
		return CategoryContent
	case CategorySystem:
		return CategorySystem
	case CategorySecurity:
		return CategorySecurity
	case CategoryHardware:
		return CategoryHardware
	case CategoryUser:
		return CategoryUser
	default:
		return CategoryUnknown
	}
}

// Level grades the severity of an activity log entry.
type Level string

// Known severity levels.
const (
	LevelCritical Level = "critical"
	LevelError    Level = "error"
	LevelWarn     Level = "warn"
	LevelInfo     Level = "info"
	LevelDebug    Level = "debug"
	LevelUnknown  Level = "unknown"
)

// ParseLevel normalizes a raw level string into a known Level.
func ParseLevel(raw string) Level {
	switch Level(strings.ToLower(strings.TrimSpace(raw))) {
	case LevelCritical:
		return LevelCritical
	case LevelError:
		return LevelError
	case LevelWarn:
		return LevelWarn
	case LevelInfo:
		return LevelInfo
	case LevelDebug:
		return LevelDebug
	default:
		return LevelUnknown
	}
}

// Alerting reports whether the level demands the alert visual treatment.
func (l Level) Alerting() bool {
	return l == LevelCritical || l == LevelError
}

// Status captures the outcome of the recorded operation.
type Status string

// Known operation statuses.
const (
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusPending   Status = "pending"
	StatusCancelled Status = "cancelled"
	StatusUnknown   Status = "unknown"
)

// ParseStatus normalizes a raw status string into a known Status.
func ParseStatus(raw string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusSuccess:
		return StatusSuccess
	case StatusFailed:
		return StatusFailed
	case StatusPending:
		return StatusPending
	case StatusCancelled:
		return StatusCancelled
	default:
		return StatusUnknown
	}
}

// ActivityLog is one recorded system, user, or admin event. Only ID, Category,
// Action, Level, and Status are guaranteed; every other field may be absent.
type ActivityLog struct {
	ID          string   `gorm:"primaryKey;size:64" json:"id"`
	Category    Category `gorm:"size:32;not null;index" json:"category"`
	Action      string   `gorm:"size:128;not null;index" json:"action"`
	SubCategory string   `gorm:"size:64" json:"sub_category,omitempty"`
	Level       Level    `gorm:"size:16;not null;index" json:"level"`
	Status      Status   `gorm:"size:16;not null;index" json:"status"`
	Description string   `json:"description,omitempty"`

	OccurredAt time.Time `gorm:"not null;index" json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`

	UserID    *string `gorm:"size:64;index" json:"user_id,omitempty"`
	AdminID   *string `gorm:"size:64;index" json:"admin_id,omitempty"`
	SessionID *string `gorm:"size:64" json:"session_id,omitempty"`

	KioskID     *string `gorm:"size:64;index" json:"kiosk_id,omitempty"`
	ContentPCID *string `gorm:"size:64" json:"content_pc_id,omitempty"`
	IPAddress   *string `gorm:"size:64" json:"ip_address,omitempty"`
	UserAgent   *string `gorm:"size:256" json:"user_agent,omitempty"`
	DeviceID    *string `gorm:"size:64" json:"device_id,omitempty"`
	DeviceType  *string `gorm:"size:32" json:"device_type,omitempty"`
	Location    *string `gorm:"size:128" json:"location,omitempty"`

	ResourceType     *string           `gorm:"size:64" json:"resource_type,omitempty"`
	ResourceID       *string           `gorm:"size:64" json:"resource_id,omitempty"`
	ResourceMetadata datatypes.JSONMap `gorm:"type:json" json:"resource_metadata,omitempty"`

	BeforeState datatypes.JSONMap `gorm:"type:json" json:"before_state,omitempty"`
	AfterState  datatypes.JSONMap `gorm:"type:json" json:"after_state,omitempty"`

	DurationMS   *int64 `json:"duration_ms,omitempty"`
	RequestSize  *int64 `json:"request_size,omitempty"`
	ResponseSize *int64 `json:"response_size,omitempty"`

	ErrorCode    *string           `gorm:"size:64" json:"error_code,omitempty"`
	ErrorMessage *string           `json:"error_message,omitempty"`
	ErrorStack   *string           `json:"error_stack,omitempty"`
	ErrorContext datatypes.JSONMap `gorm:"type:json" json:"error_context,omitempty"`

	Metadata datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`

	Archived   bool       `gorm:"not null;default:false;index" json:"archived"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
}
