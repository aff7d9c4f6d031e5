package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/dariovega/vidora-backend/pkg/enums"
)

// PaymentRecord stores one row per external Creem payment id, upserted on
// that key so redeliveries collapse into status transitions.
type PaymentRecord struct {
	ID                uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID            uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	SubscriptionID    *uuid.UUID          `gorm:"column:subscription_id;type:uuid"`
	CreemPaymentID    string              `gorm:"column:creem_payment_id;not null;unique"`
	AmountCents       int64               `gorm:"column:amount_cents;not null"`
	Currency          string              `gorm:"column:currency;not null;default:'usd'"`
	Status            enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'succeeded'"`
	PaymentMethod     *string             `gorm:"column:payment_method"`
	RefundAmountCents *int64              `gorm:"column:refund_amount_cents"`
	Metadata          json.RawMessage     `gorm:"column:metadata;type:jsonb"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
