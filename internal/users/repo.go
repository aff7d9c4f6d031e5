package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dariovega/vidora-backend/pkg/db/models"
	"github.com/dariovega/vidora-backend/pkg/enums"
)

// Repository exposes user-related persistence operations. Finders return
// (nil, nil) when no row matches so callers can distinguish a miss from a
// store failure.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByEmailFold(ctx context.Context, email string) (*models.User, error)
	UpdateSubscriptionState(ctx context.Context, id uuid.UUID, state SubscriptionState) error
}

// SubscriptionState carries the denormalized subscription columns shown on
// the user's dashboard. Plan and Status are always written (nil means NULL);
// EndDate is written only when SetEndDate is true, so pause/update events do
// not clobber an end date set by a cancellation.
type SubscriptionState struct {
	Plan       *string
	Status     *enums.SubscriptionStatus
	EndDate    *time.Time
	SetEndDate bool
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, nil
	}
	var user models.User
	if err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// FindByEmailFold matches the email case-insensitively.
func (r *repository) FindByEmailFold(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, nil
	}
	var user models.User
	if err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", email).
		First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) UpdateSubscriptionState(ctx context.Context, id uuid.UUID, state SubscriptionState) error {
	updates := map[string]any{
		"subscription_plan":   state.Plan,
		"subscription_status": state.Status,
	}
	if state.SetEndDate {
		updates["subscription_end_date"] = state.EndDate
	}
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(updates).Error
}
