package models

import (
	"time"

	"github.com/google/uuid"
)

// Dispute is an append-only record of processor disputes, kept for manual
// review. No automated resolution happens on this side.
type Dispute struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CreemDisputeID string    `gorm:"column:creem_dispute_id;not null;unique"`
	CreemPaymentID string    `gorm:"column:creem_payment_id;not null;index"`
	AmountCents    int64     `gorm:"column:amount_cents;not null"`
	Reason         *string   `gorm:"column:reason"`
	Status         string    `gorm:"column:status;not null;default:'open'"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
