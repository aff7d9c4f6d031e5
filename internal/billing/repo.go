package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dariovega/vidora-backend/internal/schema"
	"github.com/dariovega/vidora-backend/pkg/db/models"
	"github.com/dariovega/vidora-backend/pkg/enums"
	pkgerrors "github.com/dariovega/vidora-backend/pkg/errors"
)

// Repository handles billing persistence: subscriptions, payment records and
// disputes. Finders return (nil, nil) on a miss.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateSubscription(ctx context.Context, subscription *models.Subscription) error
	UpdateSubscription(ctx context.Context, subscription *models.Subscription) error
	FindSubscriptionByExternalID(ctx context.Context, externalID string) (*models.Subscription, error)
	FindLatestSubscriptionForUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	UpsertPayment(ctx context.Context, payment *models.PaymentRecord) error
	FindPaymentByExternalID(ctx context.Context, externalID string) (*models.PaymentRecord, error)
	UpdatePaymentRefund(ctx context.Context, externalID string, status enums.PaymentStatus, refundCents *int64) (bool, error)
	CreateDispute(ctx context.Context, dispute *models.Dispute) error
}

type repository struct {
	db    *gorm.DB
	probe *schema.ColumnProbe
}

// NewRepository returns a billing repository. The probe resolves which column
// name the subscriptions table currently carries for the external id, so
// lookups keep working while a rename migration is mid-rollout.
func NewRepository(db *gorm.DB, probe *schema.ColumnProbe) (Repository, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "db connection required")
	}
	if probe == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "schema probe required")
	}
	return &repository{db: db, probe: probe}, nil
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx, probe: r.probe}
}

// modelSubscriptionIDColumn is the column the gorm model maps the external id
// to. Writes may only go through the struct when the live schema carries it.
const modelSubscriptionIDColumn = "creem_subscription_id"

// CreateSubscription inserts through the probe-resolved external-id column,
// so subscription-creating events keep landing while a rename migration is
// mid-rollout.
func (r *repository) CreateSubscription(ctx context.Context, subscription *models.Subscription) error {
	column, err := r.probe.Resolve(ctx)
	if err != nil {
		return err
	}
	if column == modelSubscriptionIDColumn {
		return r.db.WithContext(ctx).Create(subscription).Error
	}
	now := time.Now().UTC()
	if subscription.CreatedAt.IsZero() {
		subscription.CreatedAt = now
	}
	subscription.UpdatedAt = now
	values := subscriptionValues(subscription)
	values["id"] = subscription.ID
	values["user_id"] = subscription.UserID
	values["created_at"] = subscription.CreatedAt
	values[column] = subscription.CreemSubscriptionID
	return r.db.WithContext(ctx).Model(&models.Subscription{}).Create(values).Error
}

func (r *repository) UpdateSubscription(ctx context.Context, subscription *models.Subscription) error {
	column, err := r.probe.Resolve(ctx)
	if err != nil {
		return err
	}
	if column == modelSubscriptionIDColumn {
		return r.db.WithContext(ctx).Save(subscription).Error
	}
	subscription.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", subscription.ID).
		Updates(subscriptionValues(subscription)).Error
}

// subscriptionValues lists the columns every schema shape shares; the caller
// adds the external id under its resolved name when inserting.
func subscriptionValues(subscription *models.Subscription) map[string]any {
	return map[string]any{
		"status":               subscription.Status,
		"plan_type":            subscription.PlanType,
		"current_period_start": subscription.CurrentPeriodStart,
		"current_period_end":   subscription.CurrentPeriodEnd,
		"metadata":             subscription.Metadata,
		"updated_at":           subscription.UpdatedAt,
	}
}

func (r *repository) FindSubscriptionByExternalID(ctx context.Context, externalID string) (*models.Subscription, error) {
	if externalID == "" {
		return nil, nil
	}
	column, err := r.probe.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Where(fmt.Sprintf("%s = ?", column), externalID).
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	// Under the legacy column name the struct field does not scan; restore it
	// so callers see a coherent record.
	if sub.CreemSubscriptionID == "" {
		sub.CreemSubscriptionID = externalID
	}
	return &sub, nil
}

func (r *repository) FindLatestSubscriptionForUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

// UpsertPayment writes at most one row per external payment id; a redelivery
// collapses into an update of the mutable columns.
func (r *repository) UpsertPayment(ctx context.Context, payment *models.PaymentRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "creem_payment_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "amount_cents", "currency", "payment_method",
				"subscription_id", "metadata", "updated_at",
			}),
		}).
		Create(payment).Error
}

func (r *repository) FindPaymentByExternalID(ctx context.Context, externalID string) (*models.PaymentRecord, error) {
	if externalID == "" {
		return nil, nil
	}
	var payment models.PaymentRecord
	if err := r.db.WithContext(ctx).
		Where("creem_payment_id = ?", externalID).
		First(&payment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// UpdatePaymentRefund transitions an existing payment record's refund state,
// reporting whether a row matched. Never inserts.
func (r *repository) UpdatePaymentRefund(ctx context.Context, externalID string, status enums.PaymentStatus, refundCents *int64) (bool, error) {
	if externalID == "" {
		return false, nil
	}
	updates := map[string]any{"status": status}
	if refundCents != nil {
		updates["refund_amount_cents"] = *refundCents
	}
	result := r.db.WithContext(ctx).
		Model(&models.PaymentRecord{}).
		Where("creem_payment_id = ?", externalID).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CreateDispute appends a dispute row; a redelivered dispute id is ignored.
func (r *repository) CreateDispute(ctx context.Context, dispute *models.Dispute) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "creem_dispute_id"}},
			DoNothing: true,
		}).
		Create(dispute).Error
}
