package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dariovega/vidora-backend/pkg/enums"
)

// User represents the canonical identity entity. The subscription_* columns
// are denormalized from the latest subscription row for dashboard reads; the
// credits_* columns are maintained only through ledger transactions.
type User struct {
	ID                  uuid.UUID                 `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email               string                    `gorm:"type:text;not null;uniqueIndex"`
	SubscriptionPlan    *string                   `gorm:"column:subscription_plan"`
	SubscriptionStatus  *enums.SubscriptionStatus `gorm:"column:subscription_status"`
	SubscriptionEndDate *time.Time                `gorm:"column:subscription_end_date"`
	CreditsBalance      int64                     `gorm:"column:credits_balance;not null;default:0"`
	CreditsFlex         int64                     `gorm:"column:credits_flex;not null;default:0"`
	CreditsTotal        int64                     `gorm:"column:credits_total;not null;default:0"`
	CreditsSpent        int64                     `gorm:"column:credits_spent;not null;default:0"`
	CreatedAt           time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}
