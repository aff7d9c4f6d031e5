package identity

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dariovega/vidora-backend/pkg/db/models"
	"github.com/dariovega/vidora-backend/pkg/enums"
	"github.com/dariovega/vidora-backend/pkg/pagination"
)

// Repository persists email aliases and the unmatched-email queue.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindAlias(ctx context.Context, email string) (*models.EmailAlias, error)
	CreateAlias(ctx context.Context, alias *models.EmailAlias) error
	CreateUnmatched(ctx context.Context, entry *models.UnmatchedEmailLog) error
	FindUnmatchedByID(ctx context.Context, id uuid.UUID) (*models.UnmatchedEmailLog, error)
	UpdateUnmatched(ctx context.Context, entry *models.UnmatchedEmailLog) error
	ListUnmatched(ctx context.Context, params ListUnmatchedQuery) ([]models.UnmatchedEmailLog, *pagination.Cursor, error)
}

// ListUnmatchedQuery configures unmatched-email list queries.
type ListUnmatchedQuery struct {
	Status *enums.UnmatchedEmailStatus
	Limit  int
	Cursor *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an identity repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindAlias matches the alias email case-insensitively; aliases are stored
// lowercased but processor payloads are not trusted to be.
func (r *repository) FindAlias(ctx context.Context, email string) (*models.EmailAlias, error) {
	if email == "" {
		return nil, nil
	}
	var alias models.EmailAlias
	if err := r.db.WithContext(ctx).
		Where("LOWER(alias_email) = LOWER(?)", email).
		First(&alias).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &alias, nil
}

func (r *repository) CreateAlias(ctx context.Context, alias *models.EmailAlias) error {
	return r.db.WithContext(ctx).Create(alias).Error
}

func (r *repository) CreateUnmatched(ctx context.Context, entry *models.UnmatchedEmailLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindUnmatchedByID(ctx context.Context, id uuid.UUID) (*models.UnmatchedEmailLog, error) {
	var entry models.UnmatchedEmailLog
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repository) UpdateUnmatched(ctx context.Context, entry *models.UnmatchedEmailLog) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

func (r *repository) ListUnmatched(ctx context.Context, params ListUnmatchedQuery) ([]models.UnmatchedEmailLog, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.UnmatchedEmailLog{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var entries []models.UnmatchedEmailLog
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
