package metrics

import "github.com/prometheus/client_golang/prometheus"

// StoreMetrics exposes counters for the server-side appointment store.
type StoreMetrics struct {
	mutationsTotal *prometheus.CounterVec
	persistTotal   *prometheus.CounterVec
	degraded       prometheus.Gauge
}

func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		mutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medipulse",
			Subsystem: "store",
			Name:      "mutations_total",
			Help:      "Appointment and doctor mutations handled by the store",
		}, []string{"action", "result"}),
		persistTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medipulse",
			Subsystem: "store",
			Name:      "persist_total",
			Help:      "Writes of a collection to the durable backend",
		}, []string{"backend", "collection", "status"}),
		degraded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "medipulse",
			Subsystem: "store",
			Name:      "degraded",
			Help:      "1 while the store is serving from memory after a backend failure",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.mutationsTotal, m.persistTotal, m.degraded)
	return m
}

func (m *StoreMetrics) ObserveMutation(action, result string) {
	if m == nil {
		return
	}
	m.mutationsTotal.WithLabelValues(action, result).Inc()
}

func (m *StoreMetrics) ObservePersist(backend, collection string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.persistTotal.WithLabelValues(backend, collection, status).Inc()
}

func (m *StoreMetrics) SetDegraded(degraded bool) {
	if m == nil {
		return
	}
	if degraded {
		m.degraded.Set(1)
		return
	}
	m.degraded.Set(0)
}

// SyncMetrics covers the client side: reconciliation passes, new-booking
// notifications and the retry outbox.
type SyncMetrics struct {
	passesTotal   *prometheus.CounterVec
	passLatency   prometheus.Histogram
	notifications prometheus.Counter
	outboxDepth   prometheus.Gauge
	retriesTotal  *prometheus.CounterVec
}

func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	m := &SyncMetrics{
		passesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medipulse",
			Subsystem: "sync",
			Name:      "passes_total",
			Help:      "Reconciliation passes by outcome",
		}, []string{"outcome"}),
		passLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "medipulse",
			Subsystem: "sync",
			Name:      "pass_latency_seconds",
			Help:      "Duration of completed reconciliation passes",
			Buckets:   prometheus.DefBuckets,
		}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medipulse",
			Subsystem: "sync",
			Name:      "new_booking_notifications_total",
			Help:      "New-booking notifications raised for admins",
		}),
		outboxDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "medipulse",
			Subsystem: "sync",
			Name:      "outbox_depth",
			Help:      "Failed writes waiting for retry",
		}),
		retriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medipulse",
			Subsystem: "sync",
			Name:      "outbox_retries_total",
			Help:      "Outbox retry attempts by operation and result",
		}, []string{"op", "result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.passesTotal, m.passLatency, m.notifications, m.outboxDepth, m.retriesTotal)
	return m
}

func (m *SyncMetrics) ObservePass(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.passesTotal.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		m.passLatency.Observe(seconds)
	}
}

func (m *SyncMetrics) AddNotifications(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.notifications.Add(float64(n))
}

func (m *SyncMetrics) SetOutboxDepth(n int) {
	if m == nil {
		return
	}
	m.outboxDepth.Set(float64(n))
}

func (m *SyncMetrics) ObserveRetry(op, result string) {
	if m == nil {
		return
	}
	m.retriesTotal.WithLabelValues(op, result).Inc()
}

// ChatMetrics counts assistant chat requests per provider.
type ChatMetrics struct {
	requestsTotal *prometheus.CounterVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medipulse",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Assistant chat requests",
		}, []string{"provider", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal)
	return m
}

func (m *ChatMetrics) ObserveRequest(provider, status string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(provider, status).Inc()
}
