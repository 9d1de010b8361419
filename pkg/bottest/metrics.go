package bottest

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Delivery outcomes recorded by Metrics.
const (
	OutcomeHandled = "handled"
	OutcomeFailed  = "failed"
)

// Metrics counts harness activity of one client.
type Metrics struct {
	// Registry is the private registry, nil when a registerer was supplied.
	Registry *prometheus.Registry

	OutboundCalls    *prometheus.CounterVec
	Deliveries       *prometheus.CounterVec
	DeliveryDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on registerer, or on a
// fresh private registry when registerer is nil.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	metrics := &Metrics{
		OutboundCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "botharness_outbound_calls_total",
			Help: "Total outbound Bot API calls intercepted by the transport",
		}, []string{"kind"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "botharness_deliveries_total",
			Help: "Total updates delivered to the dispatcher",
		}, []string{"outcome"}),
		DeliveryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "botharness_delivery_duration_seconds",
			Help:    "Update delivery duration seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if registerer == nil {
		metrics.Registry = prometheus.NewRegistry()
		registerer = metrics.Registry
	}

	for _, collector := range []prometheus.Collector{
		metrics.OutboundCalls,
		metrics.Deliveries,
		metrics.DeliveryDuration,
	} {
		if err := registerer.Register(collector); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	return metrics, nil
}

// observeCall counts one intercepted call. Nil metrics are ignored.
func (m *Metrics) observeCall(kind CallKind) {
	if m == nil {
		return
	}
	m.OutboundCalls.WithLabelValues(string(kind)).Inc()
}

// observeDelivery records one delivery and its duration.
func (m *Metrics) observeDelivery(start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeHandled
	if err != nil {
		outcome = OutcomeFailed
	}
	m.Deliveries.WithLabelValues(outcome).Inc()
	m.DeliveryDuration.Observe(time.Since(start).Seconds())
}
