package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dariovega/vidora-backend/pkg/db/models"
	"github.com/dariovega/vidora-backend/pkg/enums"
	"github.com/dariovega/vidora-backend/pkg/pagination"
)

// Repository manages persistence for credit transactions and the users
// table's denormalized balance columns.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserForUpdate(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateCredits(ctx context.Context, id uuid.UUID, balance, flex, total, spent int64) error
	DebitGuarded(ctx context.Context, id uuid.UUID, amount, flexConsumed int64) (bool, error)
	CreateTransaction(ctx context.Context, entry *models.CreditTransaction) error
	HasGrant(ctx context.Context, userID uuid.UUID, reason enums.CreditReason, dedupKey string, since *time.Time) (bool, error)
	ListByUser(ctx context.Context, params ListQuery) ([]models.CreditTransaction, *pagination.Cursor, error)
}

// ListQuery configures credit-transaction list queries.
type ListQuery struct {
	UserID uuid.UUID
	Limit  int
	Cursor *pagination.Cursor
	Reason *enums.CreditReason
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetUserForUpdate takes a row lock so concurrent balance mutations for the
// same user serialize. sqlite (tests) has no FOR UPDATE syntax and a
// single-writer model anyway, so the clause is only applied on postgres.
func (r *repository) GetUserForUpdate(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var user models.User
	if err := query.First(&user, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) UpdateCredits(ctx context.Context, id uuid.UUID, balance, flex, total, spent int64) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"credits_balance": balance,
			"credits_flex":    flex,
			"credits_total":   total,
			"credits_spent":   spent,
		}).Error
}

// DebitGuarded decrements the balance only if it still covers the amount,
// reporting whether a row was updated. The guard makes the debit safe even if
// a concurrent writer got between the locked read and this write.
func (r *repository) DebitGuarded(ctx context.Context, id uuid.UUID, amount, flexConsumed int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND credits_balance >= ?", id, amount).
		Updates(map[string]any{
			"credits_balance": gorm.Expr("credits_balance - ?", amount),
			"credits_flex":    gorm.Expr("credits_flex - ?", flexConsumed),
			"credits_spent":   gorm.Expr("credits_spent + ?", amount),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) CreateTransaction(ctx context.Context, entry *models.CreditTransaction) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// HasGrant is the duplicate-detector query: has a ledger entry with this
// (user, reason, dedup key) already been written, optionally within a recent
// window. The unique index on the same columns is the race-free backstop.
func (r *repository) HasGrant(ctx context.Context, userID uuid.UUID, reason enums.CreditReason, dedupKey string, since *time.Time) (bool, error) {
	if dedupKey == "" {
		return false, nil
	}
	query := r.db.WithContext(ctx).
		Model(&models.CreditTransaction{}).
		Where("user_id = ? AND reason = ? AND dedup_key = ?", userID, reason, dedupKey)
	if since != nil {
		query = query.Where("created_at >= ?", *since)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListByUser(ctx context.Context, params ListQuery) ([]models.CreditTransaction, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Model(&models.CreditTransaction{}).
		Where("user_id = ?", params.UserID)
	if params.Reason != nil {
		query = query.Where("reason = ?", *params.Reason)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var entries []models.CreditTransaction
	if err := query.Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&entries).Error; err != nil {
		return nil, nil, err
	}

	if len(entries) > limit {
		next := entries[limit]
		entries = entries[:limit]
		return entries, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return entries, nil, nil
}
