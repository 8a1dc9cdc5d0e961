// Package metrics exposes countdown instrumentation for Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"clocktimer/internal/core/timer"
)

const namespace = "clocktimer"

// Metrics groups the timer instruments. A nil *Metrics is a valid no-op.
type Metrics struct {
	Ticks           prometheus.Counter
	StateChanges    *prometheus.CounterVec
	DisplayUpdates  prometheus.Counter
	DisplayFailures prometheus.Counter
	Completions     prometheus.Counter
	Commands        *prometheus.CounterVec
	Sessions        prometheus.Gauge
	Remaining       prometheus.Gauge
}

// New registers the instruments with registerer.
func New(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Ticks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Ticks delivered by the timer engine.",
		}),
		StateChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_changes_total",
			Help:      "Timer state transitions by target state.",
		}, []string{"state"}),
		DisplayUpdates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "display_updates_total",
			Help:      "Throttled display refreshes performed.",
		}),
		DisplayFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "display_failures_total",
			Help:      "Display refreshes that failed.",
		}),
		Completions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Countdowns that reached zero.",
		}),
		Commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands submitted by action.",
		}, []string{"action"}),
		Sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Lifecycle sessions currently running.",
		}),
		Remaining: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "remaining_milliseconds",
			Help:      "Remaining time at the last tick.",
		}),
	}
}

// OnTick records a timer event.
func (metrics *Metrics) OnTick(event timer.Event) {
	if metrics == nil {
		return
	}
	payload := event.Payload()
	switch event.Type {
	case timer.EventTick:
		metrics.Ticks.Inc()
		metrics.Remaining.Set(float64(payload.TimeInMillis))
	case timer.EventStateChange:
		metrics.StateChanges.WithLabelValues(string(payload.Status)).Inc()
		metrics.Remaining.Set(float64(payload.TimeInMillis))
	}
}

// DisplayUpdated records a display refresh outcome.
func (metrics *Metrics) DisplayUpdated(err error) {
	if metrics == nil {
		return
	}
	if err != nil {
		metrics.DisplayFailures.Inc()
		return
	}
	metrics.DisplayUpdates.Inc()
}

// Completed records a countdown reaching zero.
func (metrics *Metrics) Completed() {
	if metrics == nil {
		return
	}
	metrics.Completions.Inc()
}

// CommandSubmitted records an inbound command.
func (metrics *Metrics) CommandSubmitted(action string) {
	if metrics == nil {
		return
	}
	if action == "" {
		action = "configure"
	}
	metrics.Commands.WithLabelValues(action).Inc()
}

// SessionStarted increments the active session gauge.
func (metrics *Metrics) SessionStarted() {
	if metrics == nil {
		return
	}
	metrics.Sessions.Inc()
}

// SessionEnded decrements the active session gauge.
func (metrics *Metrics) SessionEnded() {
	if metrics == nil {
		return
	}
	metrics.Sessions.Dec()
}
