package creemwebhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/dariovega/vidora-backend/internal/billing"
	"github.com/dariovega/vidora-backend/internal/identity"
	"github.com/dariovega/vidora-backend/internal/ledger"
	"github.com/dariovega/vidora-backend/internal/plans"
	"github.com/dariovega/vidora-backend/internal/users"
	"github.com/dariovega/vidora-backend/pkg/db/models"
	"github.com/dariovega/vidora-backend/pkg/enums"
	pkgerrors "github.com/dariovega/vidora-backend/pkg/errors"
	"github.com/dariovega/vidora-backend/pkg/logger"
	"github.com/dariovega/vidora-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the webhook event handlers.
type ServiceParams struct {
	UsersRepo         users.Repository
	BillingRepo       billing.Repository
	Resolver          *identity.Resolver
	Ledger            *ledger.Service
	Catalog           *plans.Catalog
	TransactionRunner txRunner
	Logger            *logger.Logger
	Metrics           *metrics.WebhookMetrics
	FlexDedupWindow   time.Duration
}

// Service dispatches canonical Creem events to their handlers. Handlers
// contain their own non-critical failures: a secondary write going wrong is
// logged, never allowed to abort the primary side effect or trigger a
// processor retry that would not help.
type Service struct {
	users      users.Repository
	billing    billing.Repository
	resolver   *identity.Resolver
	ledger     *ledger.Service
	catalog    *plans.Catalog
	txRunner   txRunner
	logg       *logger.Logger
	metrics    *metrics.WebhookMetrics
	flexWindow time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.UsersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repo required")
	}
	if params.BillingRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "billing repo required")
	}
	if params.Resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "identity resolver required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger service required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "plan catalog required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &Service{
		users:      params.UsersRepo,
		billing:    params.BillingRepo,
		resolver:   params.Resolver,
		ledger:     params.Ledger,
		catalog:    params.Catalog,
		txRunner:   params.TransactionRunner,
		logg:       params.Logger,
		metrics:    params.Metrics,
		flexWindow: params.FlexDedupWindow,
	}, nil
}

// HandleEvent routes one canonical event. Unknown types are acknowledged
// without side effects so the processor never retries them.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook event required")
	}
	if s.logg != nil {
		ctx = s.logg.WithEventType(ctx, event.Type)
		if event.ID != "" {
			ctx = s.logg.WithEventID(ctx, event.ID)
		}
	}
	if s.metrics != nil {
		s.metrics.IncReceived(event.Type)
	}

	var err error
	switch event.Type {
	case EventSubscriptionActive:
		err = s.handleSubscriptionSync(ctx, event)
	case EventSubscriptionPaid:
		err = s.handleSubscriptionPaid(ctx, event)
	case EventSubscriptionTrialing:
		err = s.handleSubscriptionTrialing(ctx, event)
	case EventSubscriptionUpdate:
		err = s.handleSubscriptionUpdate(ctx, event)
	case EventSubscriptionPaused:
		err = s.handleSubscriptionStatus(ctx, event, enums.SubscriptionStatusPaused, false)
	case EventSubscriptionCanceled, EventSubscriptionCancelled:
		err = s.handleSubscriptionStatus(ctx, event, enums.SubscriptionStatusCanceled, true)
	case EventSubscriptionExpired:
		err = s.handleSubscriptionStatus(ctx, event, enums.SubscriptionStatusExpired, true)
	case EventCheckoutCompleted:
		err = s.handleCheckoutCompleted(ctx, event)
	case EventPaymentSucceeded:
		err = s.handlePaymentSucceeded(ctx, event)
	case EventPaymentFailed:
		err = s.handlePaymentFailed(ctx, event)
	case EventRefundCreated:
		err = s.handleRefundCreated(ctx, event)
	case EventDisputeCreated:
		err = s.handleDisputeCreated(ctx, event)
	default:
		if s.logg != nil {
			s.logg.Info(ctx, "ignoring unhandled webhook event type")
		}
		if s.metrics != nil {
			s.metrics.IncIgnored(event.Type)
		}
		return nil
	}

	if s.metrics != nil {
		if err != nil {
			s.metrics.IncFailed(event.Type)
		} else {
			s.metrics.IncProcessed(event.Type)
		}
	}
	return err
}

// handleSubscriptionSync mirrors subscription state without touching
// credits: per the processor's guidance, "active" is not the activation
// signal — "paid" is.
func (s *Service) handleSubscriptionSync(ctx context.Context, event *Event) error {
	user, err := s.resolveSubscriptionUser(ctx, event)
	if err != nil || user == nil {
		return err
	}
	status := enums.SubscriptionStatusActive
	if parsed, perr := enums.ParseSubscriptionStatus(event.Object.Status); perr == nil {
		status = parsed
	}
	_, err = s.syncSubscription(ctx, user, event, status)
	return err
}

func (s *Service) handleSubscriptionPaid(ctx context.Context, event *Event) error {
	user, err := s.resolveSubscriptionUser(ctx, event)
	if err != nil || user == nil {
		return err
	}
	return s.activateAndGrant(ctx, user, event, externalSubscriptionID(event))
}

// activateAndGrant is the shared paid/recurring-checkout path: activate the
// subscription, grant the period's credits, record the payment.
func (s *Service) activateAndGrant(ctx context.Context, user *models.User, event *Event, subscriptionID string) error {
	sub, err := s.syncSubscription(ctx, user, event, enums.SubscriptionStatusActive)
	if err != nil {
		return err
	}

	plan, hasPlan := s.catalog.Find(event.Object.ProductID)
	if hasPlan && plan.Credits > 0 {
		result, grantErr := s.ledger.Grant(ctx, ledger.GrantInput{
			UserID:      user.ID,
			Amount:      plan.Credits,
			Reason:      enums.CreditReasonSubscriptionCreated,
			Bucket:      enums.CreditBucketSubscription,
			DedupKey:    periodDedupKey(subscriptionID, event),
			PeriodReset: true,
			Metadata: map[string]any{
				"subscription_id": subscriptionID,
				"product_id":      event.Object.ProductID,
				"event_type":      event.Type,
			},
		})
		if grantErr != nil {
			return grantErr
		}
		s.noteGrant(ctx, event, result)
	} else if s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "product_id", event.Object.ProductID),
			"no plan credits configured, activating without grant")
	}

	var side error
	if err := s.recordPayment(ctx, user, sub, event, enums.PaymentStatusSucceeded); err != nil {
		side = multierr.Append(side, err)
	}
	s.noteSideEffects(ctx, side)
	return nil
}

func (s *Service) handleSubscriptionTrialing(ctx context.Context, event *Event) error {
	user, err := s.resolveSubscriptionUser(ctx, event)
	if err != nil || user == nil {
		return err
	}
	subscriptionID := externalSubscriptionID(event)
	if _, err := s.syncSubscription(ctx, user, event, enums.SubscriptionStatusTrialing); err != nil {
		return err
	}

	amount, ok := event.Object.MetadataInt("trial_credits")
	if !ok {
		if plan, hasPlan := s.catalog.Find(event.Object.ProductID); hasPlan {
			amount = plan.Credits
		}
	}
	if amount <= 0 {
		if s.logg != nil {
			s.logg.Warn(ctx, "no trial credit amount available, skipping grant")
		}
		return nil
	}

	result, err := s.ledger.Grant(ctx, ledger.GrantInput{
		UserID:   user.ID,
		Amount:   amount,
		Reason:   enums.CreditReasonTrialCredits,
		Bucket:   enums.CreditBucketSubscription,
		DedupKey: "trial:" + subscriptionID,
		Metadata: map[string]any{
			"subscription_id": subscriptionID,
			"event_type":      event.Type,
		},
	})
	if err != nil {
		return err
	}
	s.noteGrant(ctx, event, result)
	return nil
}

// handleSubscriptionUpdate touches status and period fields only; it never
// grants credits.
func (s *Service) handleSubscriptionUpdate(ctx context.Context, event *Event) error {
	externalID := externalSubscriptionID(event)
	if externalID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription id missing")
	}
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.billing.WithTx(tx)
		stored, err := repo.FindSubscriptionByExternalID(ctx, externalID)
		if err != nil {
			return err
		}
		if stored == nil {
			s.noteMissingSubscription(ctx, externalID)
			return nil
		}

		if parsed, perr := enums.ParseSubscriptionStatus(event.Object.Status); perr == nil {
			if billing.CanTransition(stored.Status, parsed) {
				stored.Status = parsed
			} else if s.logg != nil {
				s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
					"from": stored.Status.String(),
					"to":   parsed.String(),
				}), "disallowed subscription transition, keeping current status")
			}
		}
		applyPeriod(stored, event)
		if event.Object.ProductID != "" {
			productID := event.Object.ProductID
			stored.PlanType = &productID
		}
		if err := repo.UpdateSubscription(ctx, stored); err != nil {
			return err
		}
		return s.users.WithTx(tx).UpdateSubscriptionState(ctx, stored.UserID, users.SubscriptionState{
			Plan:   stored.PlanType,
			Status: &stored.Status,
		})
	})
}

// handleSubscriptionStatus applies pause/cancel/expire. A missing row means
// this instance never saw the subscription created; that is a logged no-op.
func (s *Service) handleSubscriptionStatus(ctx context.Context, event *Event, toStatus enums.SubscriptionStatus, setEndDate bool) error {
	externalID := externalSubscriptionID(event)
	if externalID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription id missing")
	}
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.billing.WithTx(tx)
		stored, err := repo.FindSubscriptionByExternalID(ctx, externalID)
		if err != nil {
			return err
		}
		if stored == nil {
			s.noteMissingSubscription(ctx, externalID)
			return nil
		}
		if !billing.CanTransition(stored.Status, toStatus) {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
					"from": stored.Status.String(),
					"to":   toStatus.String(),
				}), "disallowed subscription transition, ignoring event")
			}
			return nil
		}

		stored.Status = toStatus
		applyPeriod(stored, event)
		if err := repo.UpdateSubscription(ctx, stored); err != nil {
			return err
		}

		state := users.SubscriptionState{Plan: stored.PlanType, Status: &toStatus}
		if setEndDate {
			end := time.Now().UTC()
			if stored.CurrentPeriodEnd != nil {
				end = *stored.CurrentPeriodEnd
			}
			state.EndDate = &end
			state.SetEndDate = true
		}
		return s.users.WithTx(tx).UpdateSubscriptionState(ctx, stored.UserID, state)
	})
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, event *Event) error {
	plan, hasPlan := s.catalog.Find(event.Object.ProductID)
	if hasPlan && plan.IsRecurring() {
		user, err := s.resolveSubscriptionUser(ctx, event)
		if err != nil || user == nil {
			return err
		}
		return s.activateAndGrant(ctx, user, event, externalSubscriptionID(event))
	}

	user, _ := s.resolver.ResolveOrPark(ctx, event.Object.CustomerEmail, event.Type, event.Raw)
	if user == nil {
		return nil
	}

	amount := int64(0)
	if hasPlan {
		amount = plan.Credits
	}
	if amount <= 0 {
		if declared, ok := event.Object.MetadataInt("credits"); ok {
			amount = declared
		}
	}

	paymentKey := paymentExternalID(event)
	if amount > 0 {
		result, err := s.ledger.Grant(ctx, ledger.GrantInput{
			UserID:      user.ID,
			Amount:      amount,
			Reason:      enums.CreditReasonFlexPurchase,
			Bucket:      enums.CreditBucketFlex,
			DedupKey:    paymentKey,
			DedupWindow: s.flexWindow,
			Metadata: map[string]any{
				"payment_id": paymentKey,
				"product_id": event.Object.ProductID,
				"event_type": event.Type,
			},
		})
		if err != nil {
			return err
		}
		s.noteGrant(ctx, event, result)
	} else if s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "product_id", event.Object.ProductID),
			"checkout carries no credit amount, recording payment only")
	}

	var side error
	if err := s.recordPayment(ctx, user, nil, event, enums.PaymentStatusSucceeded); err != nil {
		side = multierr.Append(side, err)
	}
	s.noteSideEffects(ctx, side)
	return nil
}

// handlePaymentSucceeded is the legacy grant path. A payment tied to a
// subscription and a known plan resets the subscription bucket for the new
// period; anything else is an incremental flex purchase.
func (s *Service) handlePaymentSucceeded(ctx context.Context, event *Event) error {
	user, sub, err := s.resolvePaymentUser(ctx, event)
	if err != nil || user == nil {
		return err
	}

	credits, hasCredits := s.planCredits(event, sub)
	paymentKey := paymentExternalID(event)

	if event.Object.SubscriptionID != "" && hasCredits {
		result, grantErr := s.ledger.Grant(ctx, ledger.GrantInput{
			UserID:      user.ID,
			Amount:      credits,
			Reason:      enums.CreditReasonSubscriptionRenewal,
			Bucket:      enums.CreditBucketSubscription,
			DedupKey:    periodDedupKey(event.Object.SubscriptionID, event),
			PeriodReset: true,
			Metadata: map[string]any{
				"payment_id":      paymentKey,
				"subscription_id": event.Object.SubscriptionID,
				"event_type":      event.Type,
			},
		})
		if grantErr != nil {
			return grantErr
		}
		s.noteGrant(ctx, event, result)
	} else {
		amount := credits
		if declared, ok := event.Object.MetadataInt("credits"); ok {
			amount = declared
		}
		if amount > 0 {
			result, grantErr := s.ledger.Grant(ctx, ledger.GrantInput{
				UserID:      user.ID,
				Amount:      amount,
				Reason:      enums.CreditReasonFlexPurchase,
				Bucket:      enums.CreditBucketFlex,
				DedupKey:    paymentKey,
				DedupWindow: s.flexWindow,
				Metadata: map[string]any{
					"payment_id": paymentKey,
					"event_type": event.Type,
				},
			})
			if grantErr != nil {
				return grantErr
			}
			s.noteGrant(ctx, event, result)
		} else if s.logg != nil {
			s.logg.Warn(ctx, "payment carries no credit amount, recording payment only")
		}
	}

	var side error
	if err := s.recordPayment(ctx, user, sub, event, enums.PaymentStatusSucceeded); err != nil {
		side = multierr.Append(side, err)
	}
	s.noteSideEffects(ctx, side)
	return nil
}

func (s *Service) handlePaymentFailed(ctx context.Context, event *Event) error {
	user, sub, err := s.resolvePaymentUser(ctx, event)
	if err != nil || user == nil {
		return err
	}
	return s.recordPayment(ctx, user, sub, event, enums.PaymentStatusFailed)
}

func (s *Service) handleRefundCreated(ctx context.Context, event *Event) error {
	paymentID := event.Object.PaymentID
	if paymentID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "refund payment id missing")
	}

	status := enums.PaymentStatusRefunded
	if event.Object.Status == "partial" {
		status = enums.PaymentStatusPartiallyRefunded
	}

	matched, err := s.billing.UpdatePaymentRefund(ctx, paymentID, status, event.Object.RefundAmountCents)
	if err != nil {
		return err
	}
	if !matched && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "payment_id", paymentID),
			"refund for unknown payment record, ignoring")
	}
	return nil
}

func (s *Service) handleDisputeCreated(ctx context.Context, event *Event) error {
	if event.Object.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "dispute id missing")
	}
	dispute := &models.Dispute{
		ID:             uuid.New(),
		CreemDisputeID: event.Object.ID,
		CreemPaymentID: event.Object.PaymentID,
		AmountCents:    event.Object.AmountCents,
		Status:         "open",
	}
	if event.Object.Reason != "" {
		reason := event.Object.Reason
		dispute.Reason = &reason
	}
	return s.billing.CreateDispute(ctx, dispute)
}

// resolveSubscriptionUser finds the user for a subscription.* event: the
// stored subscription's owner when the external id is known, otherwise the
// customer email through the fallback chain. A total miss parks the event.
func (s *Service) resolveSubscriptionUser(ctx context.Context, event *Event) (*models.User, error) {
	if externalID := externalSubscriptionID(event); externalID != "" {
		sub, err := s.billing.FindSubscriptionByExternalID(ctx, externalID)
		if err != nil {
			return nil, err
		}
		if sub != nil {
			user, err := s.users.FindByID(ctx, sub.UserID)
			if err != nil {
				return nil, err
			}
			if user != nil {
				return user, nil
			}
		}
	}
	user, _ := s.resolver.ResolveOrPark(ctx, event.Object.CustomerEmail, event.Type, event.Raw)
	return user, nil
}

// resolvePaymentUser implements the legacy payment event chain: subscription
// owner, then a metadata-declared user id, then the email fallback chain.
func (s *Service) resolvePaymentUser(ctx context.Context, event *Event) (*models.User, *models.Subscription, error) {
	var sub *models.Subscription
	if event.Object.SubscriptionID != "" {
		found, err := s.billing.FindSubscriptionByExternalID(ctx, event.Object.SubscriptionID)
		if err != nil {
			return nil, nil, err
		}
		sub = found
		if sub != nil {
			user, err := s.users.FindByID(ctx, sub.UserID)
			if err != nil {
				return nil, nil, err
			}
			if user != nil {
				return user, sub, nil
			}
		}
	}

	if rawID := event.Object.MetadataString("user_id"); rawID != "" {
		if id, err := uuid.Parse(rawID); err == nil {
			user, err := s.users.FindByID(ctx, id)
			if err != nil {
				return nil, nil, err
			}
			if user != nil {
				return user, sub, nil
			}
		}
	}

	user, _ := s.resolver.ResolveOrPark(ctx, event.Object.CustomerEmail, event.Type, event.Raw)
	return user, sub, nil
}

// syncSubscription upserts the subscription row and the user's denormalized
// subscription columns in one transaction. Returns the stored row.
func (s *Service) syncSubscription(ctx context.Context, user *models.User, event *Event, toStatus enums.SubscriptionStatus) (*models.Subscription, error) {
	externalID := externalSubscriptionID(event)
	if externalID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription id missing")
	}

	var result *models.Subscription
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.billing.WithTx(tx)
		stored, err := repo.FindSubscriptionByExternalID(ctx, externalID)
		if err != nil {
			return err
		}

		if stored == nil {
			stored = &models.Subscription{
				ID:                  uuid.New(),
				UserID:              user.ID,
				CreemSubscriptionID: externalID,
				Status:              toStatus,
			}
			applyPeriod(stored, event)
			if event.Object.ProductID != "" {
				productID := event.Object.ProductID
				stored.PlanType = &productID
			}
			if len(event.Object.Metadata) > 0 {
				if raw, merr := json.Marshal(event.Object.Metadata); merr == nil {
					stored.Metadata = raw
				}
			}
			if err := repo.CreateSubscription(ctx, stored); err != nil {
				return err
			}
		} else {
			if billing.CanTransition(stored.Status, toStatus) {
				stored.Status = toStatus
			} else if s.logg != nil {
				s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
					"from": stored.Status.String(),
					"to":   toStatus.String(),
				}), "disallowed subscription transition, keeping current status")
			}
			applyPeriod(stored, event)
			if event.Object.ProductID != "" {
				productID := event.Object.ProductID
				stored.PlanType = &productID
			}
			if err := repo.UpdateSubscription(ctx, stored); err != nil {
				return err
			}
		}

		result = stored
		return s.users.WithTx(tx).UpdateSubscriptionState(ctx, user.ID, users.SubscriptionState{
			Plan:   stored.PlanType,
			Status: &stored.Status,
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// recordPayment upserts the payment record keyed by the external payment id.
func (s *Service) recordPayment(ctx context.Context, user *models.User, sub *models.Subscription, event *Event, status enums.PaymentStatus) error {
	externalID := paymentExternalID(event)
	if externalID == "" {
		if s.logg != nil {
			s.logg.Warn(ctx, "no external payment id on event, skipping payment record")
		}
		return nil
	}

	payment := &models.PaymentRecord{
		ID:             uuid.New(),
		UserID:         user.ID,
		CreemPaymentID: externalID,
		AmountCents:    event.Object.AmountCents,
		Status:         status,
	}
	if event.Object.Currency != "" {
		payment.Currency = event.Object.Currency
	} else {
		payment.Currency = "usd"
	}
	if sub != nil {
		subID := sub.ID
		payment.SubscriptionID = &subID
	}
	if len(event.Object.Metadata) > 0 {
		if raw, err := json.Marshal(event.Object.Metadata); err == nil {
			payment.Metadata = raw
		}
	}
	return s.billing.UpsertPayment(ctx, payment)
}

func (s *Service) planCredits(event *Event, sub *models.Subscription) (int64, bool) {
	if plan, ok := s.catalog.Find(event.Object.ProductID); ok && plan.Credits > 0 {
		return plan.Credits, true
	}
	if sub != nil && sub.PlanType != nil {
		if plan, ok := s.catalog.Find(*sub.PlanType); ok && plan.Credits > 0 {
			return plan.Credits, true
		}
	}
	return 0, false
}

func (s *Service) noteGrant(ctx context.Context, event *Event, result *ledger.GrantResult) {
	if result == nil {
		return
	}
	if !result.Applied {
		if s.metrics != nil {
			s.metrics.IncDuplicate(event.Type)
		}
		if s.logg != nil {
			s.logg.Info(ctx, "duplicate credit grant detected, skipping")
		}
		return
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "balance", result.Snapshot.Balance), "credits granted")
	}
}

func (s *Service) noteSideEffects(ctx context.Context, err error) {
	if err == nil || s.logg == nil {
		return
	}
	s.logg.Error(ctx, "non-critical webhook side effects failed", err)
}

func (s *Service) noteMissingSubscription(ctx context.Context, externalID string) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "subscription_id", externalID),
		"subscription not found for lifecycle event, ignoring")
}

func applyPeriod(sub *models.Subscription, event *Event) {
	if event.Object.PeriodStart != nil {
		sub.CurrentPeriodStart = event.Object.PeriodStart
	}
	if event.Object.PeriodEnd != nil {
		sub.CurrentPeriodEnd = event.Object.PeriodEnd
	}
}

// periodDedupKey keys period grants by subscription rather than by payment:
// the processor regenerates transaction ids on replay, so a payment-id key
// would double-grant. Same period collapses, a new period grants again.
func periodDedupKey(subscriptionID string, event *Event) string {
	if event.Object.PeriodStart != nil {
		return subscriptionID + ":" + event.Object.PeriodStart.UTC().Format("2006-01-02")
	}
	return subscriptionID
}

func externalSubscriptionID(event *Event) string {
	if event.Object.SubscriptionID != "" {
		return event.Object.SubscriptionID
	}
	return event.Object.ID
}

// paymentExternalID picks the upsert key for payment records. Subscription
// payment events do not always carry a transaction id; the object id keeps
// redeliveries collapsing onto the same row.
func paymentExternalID(event *Event) string {
	if event.Object.PaymentID != "" {
		return event.Object.PaymentID
	}
	if event.Object.OrderID != "" {
		return event.Object.OrderID
	}
	return event.Object.ID
}
