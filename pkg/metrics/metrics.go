// Package metrics exposes prometheus collectors for inbound, dispatch and outbound traffic.
package metrics

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"assistbot/pkg/bus"
)

const namespace = "assistbot"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	inboundTotal     *prometheus.CounterVec
	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	outboundTotal    *prometheus.CounterVec
	providerTotal    *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_total",
			Help:      "Inbound events accepted from channels",
		}, []string{"channel", "kind"}),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Dispatched events by route and outcome",
		}, []string{"route", "status"}),
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent handling one inbound event",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_total",
			Help:      "Outbound rich messages by kind and delivery status",
		}, []string{"kind", "status"}),
		providerTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_results_total",
			Help:      "Content provider results by provider and outcome",
		}, []string{"provider", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.dispatchTotal, m.dispatchDuration, m.outboundTotal, m.providerTotal)
	return m
}

func (m *Metrics) ObserveInbound(channel string, kind string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(channel, kind).Inc()
}

func (m *Metrics) ObserveDispatch(route string, status string, seconds float64) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(route, status).Inc()
	if seconds >= 0 {
		m.dispatchDuration.WithLabelValues(route).Observe(seconds)
	}
}

func (m *Metrics) ObserveOutbound(kind string, status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) ObserveProvider(provider string, ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "failed"
	}
	m.providerTotal.WithLabelValues(provider, status).Inc()
}

// Consume records dispatch events until the channel closes or ctx ends.
func (m *Metrics) Consume(ctx context.Context, events <-chan bus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			m.Record(event)
		}
	}
}

// Record maps one bus event onto the collectors.
func (m *Metrics) Record(event bus.Event) {
	if m == nil {
		return
	}

	route := event.Payload[bus.PayloadRoute]
	if route == "" {
		route = "unknown"
	}

	switch event.Type {
	case bus.EventDispatchReceived:
		m.ObserveInbound(event.Channel, event.Payload[bus.PayloadKind])
	case bus.EventDispatchCompleted:
		m.ObserveDispatch(route, "completed", durationSeconds(event))
	case bus.EventDispatchFailed:
		m.ObserveDispatch(route, "failed", durationSeconds(event))
	}
}

func durationSeconds(event bus.Event) float64 {
	raw, ok := event.Payload[bus.PayloadDuration]
	if !ok {
		return -1
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return -1
	}

	return float64(ms) / 1000
}
