package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records ingestion outcomes per processor event type.
type WebhookMetrics struct {
	received   *prometheus.CounterVec
	processed  *prometheus.CounterVec
	ignored    *prometheus.CounterVec
	failed     *prometheus.CounterVec
	duplicates *prometheus.CounterVec
	unmatched  prometheus.Counter
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_received",
		Help: "Webhook events accepted past signature verification.",
	}, []string{"event_type"})
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_processed",
		Help: "Webhook events handled with side effects applied.",
	}, []string{"event_type"})
	ignored := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_ignored",
		Help: "Webhook events acknowledged without side effects.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_failed",
		Help: "Webhook events that escalated to an HTTP error.",
	}, []string{"event_type"})
	duplicates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_duplicates_detected",
		Help: "Credit grants short-circuited by duplicate detection.",
	}, []string{"event_type"})
	unmatched := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhook_unmatched_emails",
		Help: "Events parked because no user matched the customer email.",
	})
	reg.MustRegister(received, processed, ignored, failed, duplicates, unmatched)
	return &WebhookMetrics{
		received:   received,
		processed:  processed,
		ignored:    ignored,
		failed:     failed,
		duplicates: duplicates,
		unmatched:  unmatched,
	}
}

// IncReceived counts an event that passed signature verification.
func (m *WebhookMetrics) IncReceived(eventType string) {
	if m == nil || m.received == nil {
		return
	}
	m.received.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncProcessed counts an event whose handler applied its side effects.
func (m *WebhookMetrics) IncProcessed(eventType string) {
	if m == nil || m.processed == nil {
		return
	}
	m.processed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncIgnored counts an event acknowledged without side effects.
func (m *WebhookMetrics) IncIgnored(eventType string) {
	if m == nil || m.ignored == nil {
		return
	}
	m.ignored.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncFailed counts an event that produced an HTTP error response.
func (m *WebhookMetrics) IncFailed(eventType string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncDuplicate counts a grant short-circuited by duplicate detection.
func (m *WebhookMetrics) IncDuplicate(eventType string) {
	if m == nil || m.duplicates == nil {
		return
	}
	m.duplicates.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncUnmatched counts an event parked in the unmatched email log.
func (m *WebhookMetrics) IncUnmatched() {
	if m == nil || m.unmatched == nil {
		return
	}
	m.unmatched.Inc()
}

func normalizeLabel(eventType string) string {
	if eventType == "" {
		return "unknown"
	}
	return eventType
}
