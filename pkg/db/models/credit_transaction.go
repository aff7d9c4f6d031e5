package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/dariovega/vidora-backend/pkg/enums"
)

// CreditTransaction is the append-only audit log of balance mutations and the
// sole source of truth for "has this economic event already been applied".
// DedupKey carries the natural idempotency key (payment id, subscription id)
// for grant entries; the composite unique index makes a duplicate grant a
// constraint violation rather than a race.
type CreditTransaction struct {
	ID        uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index;uniqueIndex:uq_credit_tx_dedup"`
	Amount    int64              `gorm:"column:amount;not null"`
	Reason    enums.CreditReason `gorm:"column:reason;not null;uniqueIndex:uq_credit_tx_dedup"`
	Bucket    enums.CreditBucket `gorm:"column:bucket;not null;default:'subscription'"`
	DedupKey  *string            `gorm:"column:dedup_key;uniqueIndex:uq_credit_tx_dedup"`
	Metadata  json.RawMessage    `gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
}
