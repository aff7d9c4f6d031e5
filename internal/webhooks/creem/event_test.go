package creemwebhook

import (
	"testing"
	"time"
)

func TestParse_ModernEnvelope(t *testing.T) {
	event, err := Parse([]byte(`{
	  "id": "evt_1",
	  "eventType": "Subscription.Paid",
	  "created_at": "2026-08-01T12:00:00Z",
	  "object": {
	    "id": "sub_1",
	    "customer": {"id": "cust_1", "email": "a@x.com"},
	    "product": {"id": "plan_basic"},
	    "status": "active",
	    "amount": 1999,
	    "currency": "usd",
	    "current_period_start_date": "2026-08-01T00:00:00Z",
	    "current_period_end_date": "2026-09-01T00:00:00Z"
	  }
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.ID != "evt_1" {
		t.Fatalf("expected event id evt_1, got %q", event.ID)
	}
	if event.Type != EventSubscriptionPaid {
		t.Fatalf("expected lowercased type, got %q", event.Type)
	}
	if event.Object.CustomerEmail != "a@x.com" {
		t.Fatalf("expected expanded customer email, got %q", event.Object.CustomerEmail)
	}
	if event.Object.ProductID != "plan_basic" {
		t.Fatalf("expected product id from object form, got %q", event.Object.ProductID)
	}
	if event.Object.AmountCents != 1999 {
		t.Fatalf("expected 1999 cents, got %d", event.Object.AmountCents)
	}
	if event.Object.PeriodStart == nil || !event.Object.PeriodStart.Equal(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected period start parsed, got %v", event.Object.PeriodStart)
	}
}

func TestParse_LegacyEnvelopeAndFieldNames(t *testing.T) {
	event, err := Parse([]byte(`{
	  "type": "payment.succeeded",
	  "data": {
	    "id": "pay_1",
	    "customer_email": "b@x.com",
	    "plan_id": "plan_pro",
	    "subscriptionId": "sub_9",
	    "transaction_id": "txn_1",
	    "amount_cents": 4999,
	    "current_period_start": 1754006400
	  }
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.Type != EventPaymentSucceeded {
		t.Fatalf("expected payment.succeeded, got %q", event.Type)
	}
	if event.Object.CustomerEmail != "b@x.com" {
		t.Fatalf("expected flat customer_email, got %q", event.Object.CustomerEmail)
	}
	if event.Object.ProductID != "plan_pro" {
		t.Fatalf("expected plan_id alias, got %q", event.Object.ProductID)
	}
	if event.Object.SubscriptionID != "sub_9" {
		t.Fatalf("expected camelCase subscription id, got %q", event.Object.SubscriptionID)
	}
	if event.Object.PaymentID != "txn_1" {
		t.Fatalf("expected transaction_id as payment id, got %q", event.Object.PaymentID)
	}
	if event.Object.AmountCents != 4999 {
		t.Fatalf("expected explicit cents, got %d", event.Object.AmountCents)
	}
	if event.Object.PeriodStart == nil || event.Object.PeriodStart.Unix() != 1754006400 {
		t.Fatalf("expected unix period start, got %v", event.Object.PeriodStart)
	}
}

func TestParse_FractionalAmountIsMajorUnits(t *testing.T) {
	event, err := Parse([]byte(`{
	  "eventType": "refund.created",
	  "object": {
	    "id": "ref_1",
	    "payment_id": "pay_1",
	    "refund_amount": 19.99
	  }
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.Object.RefundAmountCents == nil || *event.Object.RefundAmountCents != 1999 {
		t.Fatalf("expected 19.99 -> 1999 cents, got %v", event.Object.RefundAmountCents)
	}
}

func TestParse_CustomerAsBareID(t *testing.T) {
	event, err := Parse([]byte(`{
	  "eventType": "checkout.completed",
	  "object": {
	    "id": "chk_1",
	    "customer": "cust_7",
	    "email": "c@x.com",
	    "product_id": "pack_small"
	  }
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.Object.CustomerID != "cust_7" {
		t.Fatalf("expected bare customer id, got %q", event.Object.CustomerID)
	}
	if event.Object.CustomerEmail != "c@x.com" {
		t.Fatalf("expected fallback email field, got %q", event.Object.CustomerEmail)
	}
}

func TestParse_MissingTypeRejected(t *testing.T) {
	if _, err := Parse([]byte(`{"object": {"id": "x"}}`)); err == nil {
		t.Fatalf("expected error for missing event type")
	}
}

func TestParse_MissingPayloadRejected(t *testing.T) {
	if _, err := Parse([]byte(`{"eventType": "payment.succeeded"}`)); err == nil {
		t.Fatalf("expected error for missing payload")
	}
}

func TestParse_MalformedJSONRejected(t *testing.T) {
	if _, err := Parse([]byte(`{not json`)); err == nil {
		t.Fatalf("expected error for malformed body")
	}
}

func TestMetadataAccessors(t *testing.T) {
	event, err := Parse([]byte(`{
	  "eventType": "payment.succeeded",
	  "object": {
	    "id": "pay_1",
	    "metadata": {"user_id": "abc", "credits": 42, "batch": "7"}
	  }
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := event.Object.MetadataString("user_id"); got != "abc" {
		t.Fatalf("expected string value, got %q", got)
	}
	if got, ok := event.Object.MetadataInt("credits"); !ok || got != 42 {
		t.Fatalf("expected numeric 42, got %d ok=%v", got, ok)
	}
	if got, ok := event.Object.MetadataInt("batch"); !ok || got != 7 {
		t.Fatalf("expected numeric string 7, got %d ok=%v", got, ok)
	}
	if _, ok := event.Object.MetadataInt("missing"); ok {
		t.Fatalf("expected miss for absent key")
	}
}
