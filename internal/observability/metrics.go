package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the realtime gateway collectors.
//
// All recording methods are safe on a nil *Metrics so components can be built without metrics in tests.
//
// Usage:
//
//	reg := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(reg)
//	metrics.MessageRecorded(observability.ResultDelivered)
type Metrics struct {
	// Connections is the number of open websocket connections on this instance.
	Connections prometheus.Gauge

	// Authenticated is the number of connections bound to a user.
	Authenticated prometheus.Gauge

	// Messages counts send intents by outcome.
	// Labels: result (delivered|offline|rejected|failed)
	Messages *prometheus.CounterVec

	// PresenceChanges counts published presence transitions.
	// Labels: state (online|offline)
	PresenceChanges *prometheus.CounterVec
}

const (
	ResultDelivered = "delivered"
	ResultOffline   = "offline"
	ResultRejected  = "rejected"
	ResultFailed    = "failed"
)

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Connections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chat_ws_connections",
			Help: "Open websocket connections",
		}),
		Authenticated: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chat_ws_authenticated",
			Help: "Websocket connections bound to a user",
		}),
		Messages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Send intents processed by result",
		}, []string{"result"}),
		PresenceChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_presence_changes_total",
			Help: "Presence changes broadcast by state",
		}, []string{"state"}),
	}
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.Connections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.Connections.Dec()
}

func (m *Metrics) SessionBound() {
	if m == nil {
		return
	}
	m.Authenticated.Inc()
}

func (m *Metrics) SessionReleased() {
	if m == nil {
		return
	}
	m.Authenticated.Dec()
}

func (m *Metrics) MessageRecorded(result string) {
	if m == nil {
		return
	}
	m.Messages.WithLabelValues(result).Inc()
}

func (m *Metrics) PresenceChanged(online bool) {
	if m == nil {
		return
	}
	state := "offline"
	if online {
		state = "online"
	}
	m.PresenceChanges.WithLabelValues(state).Inc()
}
