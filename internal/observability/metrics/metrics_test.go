package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gather(t *testing.T, reg *prometheus.Registry, name string) []*dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()
		}
	}
	return nil
}

func TestStoreMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStoreMetrics(reg)
	m.ObserveMutation("add", "ok")
	m.ObservePersist("file", "appointments", nil)
	m.ObservePersist("file", "appointments", errors.New("read-only"))
	m.SetDegraded(true)

	persist := gather(t, reg, "medipulse_store_persist_total")
	if len(persist) != 2 {
		t.Fatalf("expected ok and error series, got %d", len(persist))
	}
	degraded := gather(t, reg, "medipulse_store_degraded")
	if len(degraded) != 1 || degraded[0].GetGauge().GetValue() != 1 {
		t.Fatalf("expected degraded gauge set, got %+v", degraded)
	}
}

func TestSyncMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSyncMetrics(reg)
	m.ObservePass("ok", 0.2)
	m.ObservePass("skipped", 0)
	m.AddNotifications(3)
	m.AddNotifications(0)
	m.SetOutboxDepth(2)
	m.ObserveRetry("update", "ok")

	notes := gather(t, reg, "medipulse_sync_new_booking_notifications_total")
	if len(notes) != 1 || notes[0].GetCounter().GetValue() != 3 {
		t.Fatalf("expected 3 notifications, got %+v", notes)
	}
	latency := gather(t, reg, "medipulse_sync_pass_latency_seconds")
	if len(latency) != 1 || latency[0].GetHistogram().GetSampleCount() != 1 {
		t.Fatalf("expected one latency sample, got %+v", latency)
	}
}

func TestChatMetricsCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatMetrics(reg)
	m.ObserveRequest("gemini", "ok")
	if got := gather(t, reg, "medipulse_chat_requests_total"); len(got) != 1 {
		t.Fatalf("expected one series, got %d", len(got))
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var s *StoreMetrics
	s.ObserveMutation("add", "ok")
	s.ObservePersist("memory", "doctors", nil)
	s.SetDegraded(false)

	var c *SyncMetrics
	c.ObservePass("ok", 1)
	c.AddNotifications(1)
	c.SetOutboxDepth(1)
	c.ObserveRetry("add", "dropped")

	var ch *ChatMetrics
	ch.ObserveRequest("bedrock", "error")
}
