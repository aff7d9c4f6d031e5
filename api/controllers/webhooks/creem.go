package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/dariovega/vidora-backend/api/responses"
	creemwebhook "github.com/dariovega/vidora-backend/internal/webhooks/creem"
	"github.com/dariovega/vidora-backend/pkg/logger"
)

const creemSignatureHeader = "creem-signature"

type CreemWebhookService interface {
	HandleEvent(ctx context.Context, event *creemwebhook.Event) error
}

type creemWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// CreemWebhook receives payment processor deliveries. The response contract
// is fixed by the processor: 200 {"received": true} acknowledges, 401 rejects
// a bad signature, and any 5xx triggers a redelivery.
func CreemWebhook(svc CreemWebhookService, secret string, guard creemWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil || secret == "" {
			writeProcessingError(w, "webhook endpoint misconfigured")
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			if logg != nil {
				logg.Error(ctx, "failed to read webhook body", err)
			}
			writeProcessingError(w, "failed to read request body")
			return
		}

		signature := strings.TrimSpace(r.Header.Get(creemSignatureHeader))
		if !validateCreemSignature(payload, secret, signature) {
			if logg != nil {
				logg.Warn(ctx, "webhook signature rejected")
			}
			responses.WriteRaw(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid webhook signature",
			})
			return
		}

		event, err := creemwebhook.Parse(payload)
		if err != nil {
			if logg != nil {
				logg.Error(ctx, "failed to decode webhook payload", err)
			}
			writeProcessingError(w, "failed to decode webhook payload")
			return
		}

		// The guard is a fast path only; deliveries without an event id fall
		// through to the ledger's natural-key dedup.
		if guard != nil && event.ID != "" {
			alreadyProcessed, err := guard.CheckAndMark(ctx, event.ID)
			if err != nil {
				if logg != nil {
					logg.Error(ctx, "idempotency guard unavailable, continuing", err)
				}
			} else if alreadyProcessed {
				if logg != nil {
					logg.Info(logg.WithEventID(ctx, event.ID), "duplicate delivery acknowledged")
				}
				writeReceived(w)
				return
			}
		}

		if err := svc.HandleEvent(ctx, event); err != nil {
			if guard != nil && event.ID != "" {
				// Unmark so the processor's retry is not swallowed.
				_ = guard.Delete(ctx, event.ID)
			}
			if logg != nil {
				logg.Error(ctx, "webhook event handling failed", err)
			}
			writeProcessingError(w, "failed to process webhook")
			return
		}

		writeReceived(w)
	}
}

func writeReceived(w http.ResponseWriter) {
	responses.WriteRaw(w, http.StatusOK, map[string]bool{"received": true})
}

func writeProcessingError(w http.ResponseWriter, message string) {
	responses.WriteRaw(w, http.StatusInternalServerError, map[string]string{"error": message})
}

func validateCreemSignature(payload []byte, secret, header string) bool {
	if header == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}
