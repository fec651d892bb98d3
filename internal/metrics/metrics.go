// Package metrics holds the Prometheus collectors of the sync service.
//
// Labels stay low-cardinality: transport names, fixed result strings and
// HTTP route patterns only. Every method is safe on a nil *Metrics so that
// components can be built in tests without a registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "playersync"

// Result labels
const (
	ResultAccepted  = "accepted"
	ResultDuplicate = "duplicate"
	ResultUnknown   = "unknown_type"
	ResultMalformed = "malformed"
	ResultSuccess   = "success"
	ResultFailure   = "failure"
	ResultCancelled = "cancelled"
)

type Metrics struct {
	messagesReceived *prometheus.CounterVec
	messagesSent     *prometheus.CounterVec
	transportErrors  *prometheus.CounterVec
	syncRuns         *prometheus.CounterVec
	syncDuration     prometheus.Histogram
	loadedUsers      prometheus.Gauge
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Incoming messenger messages by consume result.",
		}, []string{"result"}),
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Outgoing messenger messages by transport and type.",
		}, []string{"transport", "type"}),
		transportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_errors_total",
			Help:      "Failed transport operations (publish, poll, housekeeping).",
		}, []string{"transport", "op"}),
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Full sync passes by result.",
		}, []string{"result"}),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of completed sync passes.",
			Buckets:   prometheus.DefBuckets,
		}),
		loadedUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "loaded_users",
			Help:      "Users currently held in memory.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Admin API requests by route and status.",
		}, []string{"method", "path", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Admin API latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.messagesReceived,
			m.messagesSent,
			m.transportErrors,
			m.syncRuns,
			m.syncDuration,
			m.loadedUsers,
			m.httpRequests,
			m.httpLatency,
		)
	}
	return m
}

func (m *Metrics) MessageReceived(result string) {
	if m == nil {
		return
	}
	m.messagesReceived.WithLabelValues(result).Inc()
}

func (m *Metrics) MessageSent(transport, typ string) {
	if m == nil {
		return
	}
	m.messagesSent.WithLabelValues(transport, typ).Inc()
}

func (m *Metrics) TransportError(transport, op string) {
	if m == nil {
		return
	}
	m.transportErrors.WithLabelValues(transport, op).Inc()
}

func (m *Metrics) SyncRun(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(result).Inc()
	if result == ResultSuccess {
		m.syncDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) SetLoadedUsers(n int) {
	if m == nil {
		return
	}
	m.loadedUsers.Set(float64(n))
}

func (m *Metrics) HTTPRequest(method, path, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, status).Inc()
	m.httpLatency.WithLabelValues(method, path).Observe(d.Seconds())
}
