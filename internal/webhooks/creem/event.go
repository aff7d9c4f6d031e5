package creemwebhook

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/dariovega/vidora-backend/pkg/errors"
)

// Canonical event types dispatched by the service. Creem has sent both the
// American and British spelling of "canceled" over time.
const (
	EventSubscriptionActive    = "subscription.active"
	EventSubscriptionPaid      = "subscription.paid"
	EventSubscriptionUpdate    = "subscription.update"
	EventSubscriptionCanceled  = "subscription.canceled"
	EventSubscriptionCancelled = "subscription.cancelled"
	EventSubscriptionExpired   = "subscription.expired"
	EventSubscriptionTrialing  = "subscription.trialing"
	EventSubscriptionPaused    = "subscription.paused"
	EventCheckoutCompleted     = "checkout.completed"
	EventPaymentSucceeded      = "payment.succeeded"
	EventPaymentFailed         = "payment.failed"
	EventRefundCreated         = "refund.created"
	EventDisputeCreated        = "dispute.created"
)

// Event is the canonical form of a webhook delivery. Envelope and field-name
// variants are resolved once at parse time; handlers never re-guess names.
type Event struct {
	ID        string
	Type      string
	CreatedAt *time.Time
	Object    Object
	Raw       json.RawMessage
}

// Object carries the normalized payload fields the handlers consume. Only the
// fields relevant to a given event type are populated.
type Object struct {
	ID                string
	CustomerID        string
	CustomerEmail     string
	ProductID         string
	Status            string
	SubscriptionID    string
	PaymentID         string
	OrderID           string
	AmountCents       int64
	Currency          string
	RefundAmountCents *int64
	Reason            string
	PeriodStart       *time.Time
	PeriodEnd         *time.Time
	Metadata          map[string]any
}

type envelope struct {
	ID           string          `json:"id"`
	EventType    string          `json:"eventType"`
	Type         string          `json:"type"`
	EventTypeAlt string          `json:"event_type"`
	CreatedAt    json.RawMessage `json:"created_at"`
	Object       json.RawMessage `json:"object"`
	Data         json.RawMessage `json:"data"`
}

type rawRef struct {
	ID string `json:"id"`
}

type rawCustomer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type rawObject struct {
	ID                 string          `json:"id"`
	Customer           json.RawMessage `json:"customer"`
	Email              string          `json:"email"`
	CustomerEmail      string          `json:"customer_email"`
	Product            json.RawMessage `json:"product"`
	ProductID          string          `json:"product_id"`
	PlanID             string          `json:"plan_id"`
	Status             string          `json:"status"`
	Amount             json.RawMessage `json:"amount"`
	AmountCents        *int64          `json:"amount_cents"`
	Currency           string          `json:"currency"`
	Subscription       json.RawMessage `json:"subscription"`
	SubscriptionID     string          `json:"subscription_id"`
	SubscriptionIDAlt  string          `json:"subscriptionId"`
	PaymentID          string          `json:"payment_id"`
	TransactionID      string          `json:"transaction_id"`
	Order              json.RawMessage `json:"order"`
	OrderID            string          `json:"order_id"`
	RefundAmount       json.RawMessage `json:"refund_amount"`
	Reason             string          `json:"reason"`
	CurrentPeriodStart json.RawMessage `json:"current_period_start_date"`
	PeriodStartAlt     json.RawMessage `json:"current_period_start"`
	CurrentPeriodEnd   json.RawMessage `json:"current_period_end_date"`
	PeriodEndAlt       json.RawMessage `json:"current_period_end"`
	Metadata           map[string]any  `json:"metadata"`
}

// Parse normalizes a raw webhook body. It accepts the modern envelope
// ({eventType, object, id, created_at}) and the legacy one
// ({type|event_type, data}).
func Parse(body []byte) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode webhook envelope")
	}

	eventType := firstNonEmpty(env.EventType, env.Type, env.EventTypeAlt)
	if eventType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook event type missing")
	}

	payload := env.Object
	if len(payload) == 0 {
		payload = env.Data
	}
	if len(payload) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook event payload missing")
	}

	var raw rawObject
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode webhook payload")
	}

	obj := Object{
		ID:       strings.TrimSpace(raw.ID),
		Status:   strings.TrimSpace(raw.Status),
		Currency: strings.TrimSpace(raw.Currency),
		Reason:   strings.TrimSpace(raw.Reason),
		Metadata: raw.Metadata,
	}

	var customer rawCustomer
	if len(raw.Customer) > 0 {
		// customer can be an expanded object or a bare id string.
		if err := json.Unmarshal(raw.Customer, &customer); err != nil {
			var id string
			if json.Unmarshal(raw.Customer, &id) == nil {
				customer.ID = id
			}
		}
	}
	obj.CustomerID = customer.ID
	obj.CustomerEmail = firstNonEmpty(customer.Email, raw.Email, raw.CustomerEmail)

	obj.ProductID = firstNonEmpty(raw.ProductID, raw.PlanID, refID(raw.Product))
	obj.SubscriptionID = firstNonEmpty(raw.SubscriptionID, raw.SubscriptionIDAlt, refID(raw.Subscription))
	obj.OrderID = firstNonEmpty(raw.OrderID, refID(raw.Order))
	obj.PaymentID = firstNonEmpty(raw.TransactionID, raw.PaymentID)

	if raw.AmountCents != nil {
		obj.AmountCents = *raw.AmountCents
	} else if cents, ok := parseAmountCents(raw.Amount); ok {
		obj.AmountCents = cents
	}
	if cents, ok := parseAmountCents(raw.RefundAmount); ok {
		obj.RefundAmountCents = &cents
	}

	obj.PeriodStart = parseFlexTime(raw.CurrentPeriodStart)
	if obj.PeriodStart == nil {
		obj.PeriodStart = parseFlexTime(raw.PeriodStartAlt)
	}
	obj.PeriodEnd = parseFlexTime(raw.CurrentPeriodEnd)
	if obj.PeriodEnd == nil {
		obj.PeriodEnd = parseFlexTime(raw.PeriodEndAlt)
	}

	return &Event{
		ID:        strings.TrimSpace(env.ID),
		Type:      strings.ToLower(strings.TrimSpace(eventType)),
		CreatedAt: parseFlexTime(env.CreatedAt),
		Object:    obj,
		Raw:       json.RawMessage(body),
	}, nil
}

// MetadataString returns a string-typed metadata value.
func (o Object) MetadataString(key string) string {
	if o.Metadata == nil {
		return ""
	}
	if value, ok := o.Metadata[key].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

// MetadataInt returns an integer metadata value, tolerating JSON numbers and
// numeric strings.
func (o Object) MetadataInt(key string) (int64, bool) {
	if o.Metadata == nil {
		return 0, false
	}
	switch value := o.Metadata[key].(type) {
	case float64:
		return int64(value), true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func refID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var ref rawRef
	if err := json.Unmarshal(raw, &ref); err == nil && ref.ID != "" {
		return ref.ID
	}
	var id string
	if json.Unmarshal(raw, &id) == nil {
		return id
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// parseAmountCents normalizes processor amounts to integer cents. A value
// with a fractional part is in major units ("19.99" -> 1999); a whole number
// is already cents.
func parseAmountCents(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if text == "" || text == "null" {
		return 0, false
	}
	value, err := decimal.NewFromString(text)
	if err != nil {
		return 0, false
	}
	if value.IsInteger() {
		return value.IntPart(), true
	}
	return value.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), true
}

// parseFlexTime accepts RFC3339 strings and unix-second numbers.
func parseFlexTime(raw json.RawMessage) *time.Time {
	if len(raw) == 0 {
		return nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if text == "" {
			return nil
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
			if parsed, err := time.Parse(layout, text); err == nil {
				return &parsed
			}
		}
		return nil
	}
	var seconds int64
	if err := json.Unmarshal(raw, &seconds); err == nil && seconds > 0 {
		parsed := time.Unix(seconds, 0).UTC()
		return &parsed
	}
	return nil
}
