package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/dariovega/vidora-backend/pkg/enums"
)

// UnmatchedEmailLog parks webhook events whose customer email resolved to no
// user. The raw payload is retained verbatim for manual reconciliation.
type UnmatchedEmailLog struct {
	ID             uuid.UUID                  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email          string                     `gorm:"column:email;not null;index"`
	EventType      string                     `gorm:"column:event_type;not null"`
	WebhookPayload json.RawMessage            `gorm:"column:webhook_payload;type:jsonb"`
	Status         enums.UnmatchedEmailStatus `gorm:"column:status;not null;default:'pending';index"`
	ResolvedUserID *uuid.UUID                 `gorm:"column:resolved_user_id;type:uuid"`
	CreatedAt      time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}
