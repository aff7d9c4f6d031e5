package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailAlias maps a secondary email seen in processor payloads to its primary
// user. Rows are written by the reconciliation flow, not by webhook handlers.
type EmailAlias struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AliasEmail string    `gorm:"column:alias_email;not null;uniqueIndex"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Note       *string   `gorm:"column:note"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
