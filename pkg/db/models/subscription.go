package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/dariovega/vidora-backend/pkg/enums"
)

// Subscription persists Creem subscription state per user. A user may
// accumulate several rows over time; only the most recent is authoritative
// for the denormalized user columns. Rows are never hard-deleted.
type Subscription struct {
	ID                  uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID              uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	CreemSubscriptionID string                   `gorm:"column:creem_subscription_id;not null;unique"`
	Status              enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null;default:'active'"`
	PlanType            *string                  `gorm:"column:plan_type"`
	CurrentPeriodStart  *time.Time               `gorm:"column:current_period_start"`
	CurrentPeriodEnd    *time.Time               `gorm:"column:current_period_end"`
	Metadata            json.RawMessage          `gorm:"column:metadata;type:jsonb"`
	CreatedAt           time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
