package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestWebhookMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewWebhookMetrics(reg)

	metrics.IncReceived("pix")
	metrics.IncReceived("pix")
	metrics.IncDuplicate("pix")
	metrics.IncFailed("stripe")
	metrics.IncGoalConfirmed()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "webhook_events_received", "provider", "pix"); err != nil {
		t.Fatalf("fetch received: %v", err)
	} else if got != 2 {
		t.Fatalf("expected received=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "webhook_events_duplicate", "provider", "pix"); err != nil {
		t.Fatalf("fetch duplicate: %v", err)
	} else if got != 1 {
		t.Fatalf("expected duplicate=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "webhook_events_failed", "provider", "stripe"); err != nil {
		t.Fatalf("fetch failed: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failed=1, got %f", got)
	}
}

func TestWebhookMetricsNilRegistererIsNoop(t *testing.T) {
	metrics := NewWebhookMetrics(nil)
	metrics.IncReceived("pix")
	metrics.IncDuplicate("pix")
	metrics.IncFailed("pix")
	metrics.IncGoalConfirmed()
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
