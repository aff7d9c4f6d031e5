package billing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dariovega/vidora-backend/internal/schema"
	"github.com/dariovega/vidora-backend/pkg/db/models"
	"github.com/dariovega/vidora-backend/pkg/enums"
)

const paymentsSchema = `
CREATE TABLE payment_records (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  subscription_id TEXT,
  creem_payment_id TEXT NOT NULL UNIQUE,
  amount_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'usd',
  status TEXT NOT NULL DEFAULT 'succeeded',
  payment_method TEXT,
  refund_amount_cents INTEGER,
  metadata TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`

const disputesSchema = `
CREATE TABLE disputes (
  id TEXT PRIMARY KEY,
  creem_dispute_id TEXT NOT NULL UNIQUE,
  creem_payment_id TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  reason TEXT,
  status TEXT NOT NULL DEFAULT 'open',
  created_at DATETIME
);`

func subscriptionsSchema(externalIDColumn string) string {
	return `
CREATE TABLE subscriptions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  ` + externalIDColumn + ` TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL DEFAULT 'active',
  plan_type TEXT,
  current_period_start DATETIME,
  current_period_end DATETIME,
  metadata TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
}

func newTestDB(t *testing.T, stmts ...string) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	for _, stmt := range stmts {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return conn
}

func newRepo(t *testing.T, conn *gorm.DB) Repository {
	t.Helper()
	probe, err := schema.NewSubscriptionIDProbe(conn, nil, "")
	if err != nil {
		t.Fatalf("new probe: %v", err)
	}
	repo, err := NewRepository(conn, probe)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	return repo
}

func TestUpsertPayment_AtMostOneRowPerExternalID(t *testing.T) {
	conn := newTestDB(t, subscriptionsSchema("creem_subscription_id"), paymentsSchema)
	repo := newRepo(t, conn)
	ctx := context.Background()
	userID := uuid.New()

	first := &models.PaymentRecord{
		ID:             uuid.New(),
		UserID:         userID,
		CreemPaymentID: "pay_1",
		AmountCents:    1999,
		Status:         enums.PaymentStatusSucceeded,
	}
	if err := repo.UpsertPayment(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	redelivery := &models.PaymentRecord{
		ID:             uuid.New(),
		UserID:         userID,
		CreemPaymentID: "pay_1",
		AmountCents:    1999,
		Status:         enums.PaymentStatusSucceeded,
	}
	if err := repo.UpsertPayment(ctx, redelivery); err != nil {
		t.Fatalf("redelivered upsert: %v", err)
	}

	var count int64
	if err := conn.Model(&models.PaymentRecord{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one payment record, got %d", count)
	}
}

func TestUpdatePaymentRefund_TransitionsExistingRow(t *testing.T) {
	conn := newTestDB(t, subscriptionsSchema("creem_subscription_id"), paymentsSchema)
	repo := newRepo(t, conn)
	ctx := context.Background()

	if err := repo.UpsertPayment(ctx, &models.PaymentRecord{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		CreemPaymentID: "pay_2",
		AmountCents:    5000,
		Status:         enums.PaymentStatusSucceeded,
	}); err != nil {
		t.Fatalf("seed payment: %v", err)
	}

	refund := int64(2000)
	matched, err := repo.UpdatePaymentRefund(ctx, "pay_2", enums.PaymentStatusPartiallyRefunded, &refund)
	if err != nil {
		t.Fatalf("update refund: %v", err)
	}
	if !matched {
		t.Fatalf("expected existing row to match")
	}

	payment, err := repo.FindPaymentByExternalID(ctx, "pay_2")
	if err != nil {
		t.Fatalf("find payment: %v", err)
	}
	if payment.Status != enums.PaymentStatusPartiallyRefunded {
		t.Fatalf("expected partially_refunded, got %s", payment.Status)
	}
	if payment.RefundAmountCents == nil || *payment.RefundAmountCents != 2000 {
		t.Fatalf("expected refund amount 2000, got %v", payment.RefundAmountCents)
	}

	var count int64
	conn.Model(&models.PaymentRecord{}).Count(&count)
	if count != 1 {
		t.Fatalf("refund must not create rows, got %d", count)
	}
}

func TestUpdatePaymentRefund_MissingRowIsNoMatch(t *testing.T) {
	conn := newTestDB(t, subscriptionsSchema("creem_subscription_id"), paymentsSchema)
	repo := newRepo(t, conn)

	matched, err := repo.UpdatePaymentRefund(context.Background(), "pay_missing", enums.PaymentStatusRefunded, nil)
	if err != nil {
		t.Fatalf("update refund: %v", err)
	}
	if matched {
		t.Fatalf("expected no match for unknown payment id")
	}
}

func TestFindSubscriptionByExternalID_LegacyColumnName(t *testing.T) {
	conn := newTestDB(t, subscriptionsSchema("provider_subscription_id"), paymentsSchema)
	repo := newRepo(t, conn)
	ctx := context.Background()
	userID := uuid.New()

	if err := conn.Exec(
		"INSERT INTO subscriptions (id, user_id, provider_subscription_id, status) VALUES (?, ?, ?, ?)",
		uuid.NewString(), userID.String(), "sub_legacy", "active",
	).Error; err != nil {
		t.Fatalf("seed subscription: %v", err)
	}

	sub, err := repo.FindSubscriptionByExternalID(ctx, "sub_legacy")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if sub == nil {
		t.Fatalf("expected subscription under legacy column name")
	}
	if sub.CreemSubscriptionID != "sub_legacy" {
		t.Fatalf("expected external id restored, got %q", sub.CreemSubscriptionID)
	}
}

func TestSubscriptionWrites_LegacyColumnName(t *testing.T) {
	conn := newTestDB(t, subscriptionsSchema("provider_subscription_id"), paymentsSchema)
	repo := newRepo(t, conn)
	ctx := context.Background()
	userID := uuid.New()

	sub := &models.Subscription{
		ID:                  uuid.New(),
		UserID:              userID,
		CreemSubscriptionID: "sub_legacy_write",
		Status:              enums.SubscriptionStatusActive,
	}
	if err := repo.CreateSubscription(ctx, sub); err != nil {
		t.Fatalf("create under legacy column: %v", err)
	}

	stored, err := repo.FindSubscriptionByExternalID(ctx, "sub_legacy_write")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored == nil {
		t.Fatalf("expected created subscription readable back")
	}
	if stored.UserID != userID {
		t.Fatalf("subscription bound to wrong user: %s", stored.UserID)
	}

	stored.Status = enums.SubscriptionStatusCanceled
	if err := repo.UpdateSubscription(ctx, stored); err != nil {
		t.Fatalf("update under legacy column: %v", err)
	}

	updated, err := repo.FindSubscriptionByExternalID(ctx, "sub_legacy_write")
	if err != nil {
		t.Fatalf("refind: %v", err)
	}
	if updated.Status != enums.SubscriptionStatusCanceled {
		t.Fatalf("expected canceled after update, got %s", updated.Status)
	}

	var count int64
	conn.Table("subscriptions").Count(&count)
	if count != 1 {
		t.Fatalf("expected one subscription row, got %d", count)
	}
}

func TestFindSubscriptionByExternalID_MissReturnsNil(t *testing.T) {
	conn := newTestDB(t, subscriptionsSchema("creem_subscription_id"), paymentsSchema)
	repo := newRepo(t, conn)

	sub, err := repo.FindSubscriptionByExternalID(context.Background(), "sub_unknown")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if sub != nil {
		t.Fatalf("expected nil on miss, got %+v", sub)
	}
}

func TestCreateDispute_DuplicateIgnored(t *testing.T) {
	conn := newTestDB(t, subscriptionsSchema("creem_subscription_id"), disputesSchema)
	repo := newRepo(t, conn)
	ctx := context.Background()

	dispute := &models.Dispute{
		ID:             uuid.New(),
		CreemDisputeID: "disp_1",
		CreemPaymentID: "pay_1",
		AmountCents:    1999,
		Status:         "open",
	}
	if err := repo.CreateDispute(ctx, dispute); err != nil {
		t.Fatalf("create: %v", err)
	}
	redelivery := &models.Dispute{
		ID:             uuid.New(),
		CreemDisputeID: "disp_1",
		CreemPaymentID: "pay_1",
		AmountCents:    1999,
		Status:         "open",
	}
	if err := repo.CreateDispute(ctx, redelivery); err != nil {
		t.Fatalf("redelivered create: %v", err)
	}

	var count int64
	conn.Model(&models.Dispute{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected one dispute row, got %d", count)
	}
}
