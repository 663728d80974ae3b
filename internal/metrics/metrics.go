package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the realtime layer and the
// HTTP API. A nil *Metrics is valid and records nothing.
type Metrics struct {
	ActiveConnections prometheus.Gauge
	PresenceEntries   prometheus.Gauge
	RoomJoins         prometheus.Counter
	BroadcastsTotal   *prometheus.CounterVec
	DeliveryFailures  *prometheus.CounterVec
	ReconcileEvicted  prometheus.Counter
	ReconcileErrors   prometheus.Counter
	RequestsTotal     *prometheus.CounterVec
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "teamflow_ws_active_connections",
			Help: "Current live websocket connections",
		}),
		PresenceEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "teamflow_presence_entries",
			Help: "Connections currently joined to a workspace",
		}),
		RoomJoins: factory.NewCounter(prometheus.CounterOpts{
			Name: "teamflow_room_joins_total",
			Help: "Accepted joinWorkspace requests",
		}),
		BroadcastsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "teamflow_broadcasts_total",
			Help: "Events broadcast to workspace rooms",
		}, []string{"event"}),
		DeliveryFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "teamflow_delivery_failures_total",
			Help: "Per-member delivery failures swallowed during broadcast",
		}, []string{"reason"}),
		ReconcileEvicted: factory.NewCounter(prometheus.CounterOpts{
			Name: "teamflow_reconcile_evicted_total",
			Help: "Presence entries removed by the reconciler",
		}),
		ReconcileErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "teamflow_reconcile_errors_total",
			Help: "Liveness checks that failed during reconciliation",
		}),
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "teamflow_http_requests_total",
			Help: "HTTP requests by method and status class",
		}, []string{"method", "status"}),
	}
}

func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.ActiveConnections.Inc()
	}
}

func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.ActiveConnections.Dec()
	}
}

func (m *Metrics) SetPresenceEntries(n int) {
	if m != nil {
		m.PresenceEntries.Set(float64(n))
	}
}

func (m *Metrics) Joined() {
	if m != nil {
		m.RoomJoins.Inc()
	}
}

func (m *Metrics) Broadcast(event string) {
	if m != nil {
		m.BroadcastsTotal.WithLabelValues(event).Inc()
	}
}

func (m *Metrics) DeliveryFailed(reason string) {
	if m != nil {
		m.DeliveryFailures.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) Evicted(n int) {
	if m != nil {
		m.ReconcileEvicted.Add(float64(n))
	}
}

func (m *Metrics) ReconcileError() {
	if m != nil {
		m.ReconcileErrors.Inc()
	}
}

func (m *Metrics) Request(method, status string) {
	if m != nil {
		m.RequestsTotal.WithLabelValues(method, status).Inc()
	}
}
