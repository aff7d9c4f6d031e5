package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dariovega/vidora-backend/pkg/db"
	"github.com/dariovega/vidora-backend/pkg/db/models"
	"github.com/dariovega/vidora-backend/pkg/enums"
	pkgerrors "github.com/dariovega/vidora-backend/pkg/errors"
	"github.com/dariovega/vidora-backend/pkg/logger"
	"github.com/dariovega/vidora-backend/pkg/pagination"
)

// dedupConstraint is the unique index on (user_id, reason, dedup_key).
const dedupConstraint = "uq_credit_tx_dedup"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Snapshot is the post-operation balance state returned by every ledger
// operation, so callers never need a second read.
type Snapshot struct {
	Balance int64 `json:"balance"`
	Total   int64 `json:"total"`
	Spent   int64 `json:"spent"`
	Flex    int64 `json:"flex"`
}

// GrantResult reports whether the grant was applied or recognized as a
// duplicate; the snapshot is current either way.
type GrantResult struct {
	Snapshot Snapshot
	Applied  bool
}

// GrantInput describes a credit grant. When DedupKey is set the grant is
// idempotent on (user, reason, key): a repeat delivery is detected either by
// the pre-check or, under a race, by the ledger's unique index, and reported
// as Applied=false. PeriodReset replaces the subscription portion of the
// balance with Amount instead of incrementing, preserving flex credits.
type GrantInput struct {
	UserID      uuid.UUID
	Amount      int64
	Reason      enums.CreditReason
	Bucket      enums.CreditBucket
	DedupKey    string
	DedupWindow time.Duration
	PeriodReset bool
	Metadata    map[string]any
}

// SpendInput describes a debit against the user's balance.
type SpendInput struct {
	UserID   uuid.UUID
	Amount   int64
	Reason   enums.CreditReason
	Metadata map[string]any
}

// RefundInput reverses a prior debit: balance comes back, lifetime total does
// not grow.
type RefundInput struct {
	UserID   uuid.UUID
	Amount   int64
	Bucket   enums.CreditBucket
	Metadata map[string]any
}

// Service exposes the atomic credit-ledger operations. Every mutation runs in
// a single database transaction: the balance columns and the audit entry
// commit together or not at all.
type Service struct {
	repo     Repository
	txRunner txRunner
	logg     *logger.Logger
}

// NewService wires a ledger service.
func NewService(repo Repository, runner txRunner, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger repository required")
	}
	if runner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &Service{repo: repo, txRunner: runner, logg: logg}, nil
}

// Grant credits the user. Returns the post-grant snapshot and whether the
// grant was newly applied.
func (s *Service) Grant(ctx context.Context, input GrantInput) (*GrantResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "grant amount must be positive")
	}
	if !input.Reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid credit reason")
	}
	if input.Bucket == "" {
		input.Bucket = enums.CreditBucketSubscription
	}
	if !input.Bucket.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid credit bucket")
	}

	var result *GrantResult
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)

		if input.DedupKey != "" {
			var since *time.Time
			if input.DedupWindow > 0 {
				cutoff := time.Now().UTC().Add(-input.DedupWindow)
				since = &cutoff
			}
			exists, err := r.HasGrant(ctx, input.UserID, input.Reason, input.DedupKey, since)
			if err != nil {
				return err
			}
			if exists {
				user, err := r.GetUser(ctx, input.UserID)
				if err != nil {
					return err
				}
				if user == nil {
					return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
				}
				result = &GrantResult{Snapshot: snapshotOf(user), Applied: false}
				return nil
			}
		}

		user, err := r.GetUserForUpdate(ctx, input.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}

		newBalance := user.CreditsBalance + input.Amount
		newFlex := user.CreditsFlex
		if input.PeriodReset {
			// Replace the subscription portion wholesale; flex credits
			// bought outright survive the reset.
			newBalance = input.Amount + user.CreditsFlex
		} else if input.Bucket == enums.CreditBucketFlex {
			newFlex += input.Amount
		}
		newTotal := user.CreditsTotal + input.Amount

		entry := &models.CreditTransaction{
			ID:     uuid.New(),
			UserID: input.UserID,
			// The entry amount is the actual balance delta so the audit log
			// still sums to the balance even across period resets.
			Amount:   newBalance - user.CreditsBalance,
			Reason:   input.Reason,
			Bucket:   input.Bucket,
			Metadata: marshalMetadata(input.Metadata, map[string]any{"granted": input.Amount, "period_reset": input.PeriodReset}),
		}
		if input.DedupKey != "" {
			key := input.DedupKey
			entry.DedupKey = &key
		}
		if err := r.CreateTransaction(ctx, entry); err != nil {
			return err
		}
		if err := r.UpdateCredits(ctx, input.UserID, newBalance, newFlex, newTotal, user.CreditsSpent); err != nil {
			return err
		}
		result = &GrantResult{
			Snapshot: Snapshot{Balance: newBalance, Total: newTotal, Spent: user.CreditsSpent, Flex: newFlex},
			Applied:  true,
		}
		return nil
	})
	if err != nil {
		// A racing redelivery that slipped past the pre-check hits the
		// unique index instead; the grant already happened.
		if db.IsUniqueViolation(err, dedupConstraint) {
			user, readErr := s.repo.GetUser(ctx, input.UserID)
			if readErr != nil {
				return nil, readErr
			}
			if user == nil {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			if s.logg != nil {
				s.logg.Info(s.logg.WithUserID(ctx, input.UserID.String()), "duplicate credit grant collapsed by ledger constraint")
			}
			return &GrantResult{Snapshot: snapshotOf(user), Applied: false}, nil
		}
		return nil, err
	}
	if result != nil && !result.Applied && s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, input.UserID.String()), "duplicate credit grant detected, skipping")
	}
	return result, nil
}

// Spend debits the user, consuming subscription credits before flex credits.
// Fails with an insufficient-balance error when the balance cannot cover the
// amount.
func (s *Service) Spend(ctx context.Context, input SpendInput) (*Snapshot, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "debit amount must be positive")
	}
	if input.Reason == "" {
		input.Reason = enums.CreditReasonVideoGeneration
	}
	if !input.Reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid credit reason")
	}

	var snapshot *Snapshot
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)
		user, err := r.GetUserForUpdate(ctx, input.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		if user.CreditsBalance < input.Amount {
			return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "credit balance too low").
				WithDetails(map[string]any{"balance": user.CreditsBalance, "requested": input.Amount})
		}

		subscriptionAvail := user.CreditsBalance - user.CreditsFlex
		flexConsumed := int64(0)
		if input.Amount > subscriptionAvail {
			flexConsumed = input.Amount - subscriptionAvail
		}

		ok, err := r.DebitGuarded(ctx, input.UserID, input.Amount, flexConsumed)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "credit balance too low")
		}

		entry := &models.CreditTransaction{
			ID:       uuid.New(),
			UserID:   input.UserID,
			Amount:   -input.Amount,
			Reason:   input.Reason,
			Bucket:   enums.CreditBucketSubscription,
			Metadata: marshalMetadata(input.Metadata, map[string]any{"flex_consumed": flexConsumed}),
		}
		if err := r.CreateTransaction(ctx, entry); err != nil {
			return err
		}
		snapshot = &Snapshot{
			Balance: user.CreditsBalance - input.Amount,
			Total:   user.CreditsTotal,
			Spent:   user.CreditsSpent + input.Amount,
			Flex:    user.CreditsFlex - flexConsumed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Refund returns previously spent credits to the user. Unlike Grant it does
// not grow the lifetime total; it unwinds spent instead.
func (s *Service) Refund(ctx context.Context, input RefundInput) (*Snapshot, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	if input.Bucket == "" {
		input.Bucket = enums.CreditBucketSubscription
	}
	if !input.Bucket.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid credit bucket")
	}

	var snapshot *Snapshot
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)
		user, err := r.GetUserForUpdate(ctx, input.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}

		newBalance := user.CreditsBalance + input.Amount
		newFlex := user.CreditsFlex
		if input.Bucket == enums.CreditBucketFlex {
			newFlex += input.Amount
		}
		newSpent := user.CreditsSpent - input.Amount
		if newSpent < 0 {
			newSpent = 0
		}

		entry := &models.CreditTransaction{
			ID:       uuid.New(),
			UserID:   input.UserID,
			Amount:   input.Amount,
			Reason:   enums.CreditReasonRefund,
			Bucket:   input.Bucket,
			Metadata: marshalMetadata(input.Metadata, nil),
		}
		if err := r.CreateTransaction(ctx, entry); err != nil {
			return err
		}
		if err := r.UpdateCredits(ctx, input.UserID, newBalance, newFlex, user.CreditsTotal, newSpent); err != nil {
			return err
		}
		snapshot = &Snapshot{Balance: newBalance, Total: user.CreditsTotal, Spent: newSpent, Flex: newFlex}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// AlreadyApplied exposes the duplicate-detector check for callers that need
// to decide before composing a grant with other side effects.
func (s *Service) AlreadyApplied(ctx context.Context, userID uuid.UUID, reason enums.CreditReason, dedupKey string, window time.Duration) (bool, error) {
	if userID == uuid.Nil || dedupKey == "" {
		return false, nil
	}
	var since *time.Time
	if window > 0 {
		cutoff := time.Now().UTC().Add(-window)
		since = &cutoff
	}
	return s.repo.HasGrant(ctx, userID, reason, dedupKey, since)
}

// ListTransactions pages a user's audit log, newest first.
func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.CreditTransaction, *pagination.Cursor, error) {
	if userID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return s.repo.ListByUser(ctx, ListQuery{UserID: userID, Limit: params.Limit, Cursor: cursor})
}

func snapshotOf(user *models.User) Snapshot {
	return Snapshot{
		Balance: user.CreditsBalance,
		Total:   user.CreditsTotal,
		Spent:   user.CreditsSpent,
		Flex:    user.CreditsFlex,
	}
}

func marshalMetadata(fields map[string]any, extra map[string]any) json.RawMessage {
	if len(fields) == 0 && len(extra) == 0 {
		return nil
	}
	merged := make(map[string]any, len(fields)+len(extra))
	for k, v := range fields {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	raw, err := json.Marshal(merged)
	if err != nil {
		return nil
	}
	return raw
}
