package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records webhook ingestion outcomes per provider.
type WebhookMetrics struct {
	received   *prometheus.CounterVec
	duplicates *prometheus.CounterVec
	failed     *prometheus.CounterVec
	confirmed  prometheus.Counter
}

// NewWebhookMetrics registers the settlement metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_received",
		Help: "Webhook deliveries accepted for processing.",
	}, []string{"provider"})
	duplicates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_duplicate",
		Help: "Webhook deliveries rejected as duplicates.",
	}, []string{"provider"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_failed",
		Help: "Webhook deliveries that failed after acceptance.",
	}, []string{"provider"})
	confirmed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "goal_confirmations_total",
		Help: "Teams confirmed for a tournament by the goal tracker.",
	})
	reg.MustRegister(received, duplicates, failed, confirmed)
	return &WebhookMetrics{
		received:   received,
		duplicates: duplicates,
		failed:     failed,
		confirmed:  confirmed,
	}
}

// IncReceived increments the received counter for the provider.
func (m *WebhookMetrics) IncReceived(provider string) {
	if m == nil || m.received == nil {
		return
	}
	m.received.WithLabelValues(normalizeLabel(provider)).Inc()
}

// IncDuplicate increments the duplicate counter for the provider.
func (m *WebhookMetrics) IncDuplicate(provider string) {
	if m == nil || m.duplicates == nil {
		return
	}
	m.duplicates.WithLabelValues(normalizeLabel(provider)).Inc()
}

// IncFailed increments the failure counter for the provider.
func (m *WebhookMetrics) IncFailed(provider string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(provider)).Inc()
}

// IncGoalConfirmed increments the goal confirmation counter.
func (m *WebhookMetrics) IncGoalConfirmed() {
	if m == nil || m.confirmed == nil {
		return
	}
	m.confirmed.Inc()
}

func normalizeLabel(provider string) string {
	if provider == "" {
		return "unknown"
	}
	return provider
}
