package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	creemwebhook "github.com/dariovega/vidora-backend/internal/webhooks/creem"
)

const testSecret = "whsec_creem_test"

type fakeCreemService struct {
	calls int
	fail  int
}

func (f *fakeCreemService) HandleEvent(_ context.Context, _ *creemwebhook.Event) error {
	f.calls++
	if f.fail > 0 {
		f.fail--
		return errors.New("transient handler failure")
	}
	return nil
}

type inMemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{data: map[string]string{}}
}

func (s *inMemoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = "1"
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return "test:" + scope + ":" + id
}

func (s *inMemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newGuard(t *testing.T) *creemwebhook.IdempotencyGuard {
	t.Helper()
	guard, err := creemwebhook.NewIdempotencyGuard(newInMemoryStore(), time.Minute, "creem")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	return guard
}

func deliver(handler http.HandlerFunc, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/creem", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("creem-signature", signature)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCreemWebhook_AcknowledgesValidDelivery(t *testing.T) {
	service := &fakeCreemService{}
	handler := CreemWebhook(service, testSecret, newGuard(t), nil)

	body := []byte(`{"id": "evt_1", "eventType": "payment.succeeded", "object": {"id": "pay_1"}}`)
	rec := deliver(handler, body, signBody(body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var ack map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if !ack["received"] {
		t.Fatalf("expected {\"received\": true}, got %s", rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected one handler call, got %d", service.calls)
	}
}

func TestCreemWebhook_RejectsBadSignature(t *testing.T) {
	service := &fakeCreemService{}
	handler := CreemWebhook(service, testSecret, newGuard(t), nil)

	body := []byte(`{"id": "evt_1", "eventType": "payment.succeeded", "object": {"id": "pay_1"}}`)
	rec := deliver(handler, body, "deadbeef")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if payload["error"] != "Invalid webhook signature" {
		t.Fatalf("expected fixed error message, got %q", payload["error"])
	}
	if service.calls != 0 {
		t.Fatalf("handler must not run on bad signature")
	}
}

func TestCreemWebhook_RejectsMissingSignature(t *testing.T) {
	service := &fakeCreemService{}
	handler := CreemWebhook(service, testSecret, newGuard(t), nil)

	body := []byte(`{"id": "evt_1", "eventType": "payment.succeeded", "object": {"id": "pay_1"}}`)
	rec := deliver(handler, body, "")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without signature, got %d", rec.Code)
	}
}

func TestCreemWebhook_DuplicateDeliverySkipsHandler(t *testing.T) {
	service := &fakeCreemService{}
	handler := CreemWebhook(service, testSecret, newGuard(t), nil)

	body := []byte(`{"id": "evt_dup", "eventType": "payment.succeeded", "object": {"id": "pay_1"}}`)
	sig := signBody(body)

	if rec := deliver(handler, body, sig); rec.Code != http.StatusOK {
		t.Fatalf("first delivery: expected 200, got %d", rec.Code)
	}
	if rec := deliver(handler, body, sig); rec.Code != http.StatusOK {
		t.Fatalf("duplicate delivery: expected 200, got %d", rec.Code)
	}
	if service.calls != 1 {
		t.Fatalf("duplicate must not reach the handler, got %d calls", service.calls)
	}
}

func TestCreemWebhook_FailureUnmarksSoRetrySucceeds(t *testing.T) {
	service := &fakeCreemService{fail: 1}
	handler := CreemWebhook(service, testSecret, newGuard(t), nil)

	body := []byte(`{"id": "evt_retry", "eventType": "payment.succeeded", "object": {"id": "pay_1"}}`)
	sig := signBody(body)

	if rec := deliver(handler, body, sig); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on handler failure, got %d", rec.Code)
	}
	if rec := deliver(handler, body, sig); rec.Code != http.StatusOK {
		t.Fatalf("retry must succeed after unmark, got %d", rec.Code)
	}
	if service.calls != 2 {
		t.Fatalf("expected retry to reach the handler, got %d calls", service.calls)
	}
}

func TestCreemWebhook_EventWithoutIDBypassesGuard(t *testing.T) {
	service := &fakeCreemService{}
	handler := CreemWebhook(service, testSecret, newGuard(t), nil)

	body := []byte(`{"eventType": "payment.succeeded", "object": {"id": "pay_1"}}`)
	sig := signBody(body)

	deliver(handler, body, sig)
	deliver(handler, body, sig)

	if service.calls != 2 {
		t.Fatalf("deliveries without an event id rely on downstream dedup, got %d calls", service.calls)
	}
}

func TestCreemWebhook_MalformedPayloadIsServerError(t *testing.T) {
	service := &fakeCreemService{}
	handler := CreemWebhook(service, testSecret, newGuard(t), nil)

	body := []byte(`{"eventType": ""}`)
	rec := deliver(handler, body, signBody(body))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for undecodable payload, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("handler must not run for undecodable payload")
	}
}
