package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Onboarding
	InboundMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "goalreminder_inbound_messages_total",
		Help: "Inbound SMS handled, by derived onboarding step and outcome",
	}, []string{"step", "outcome"})

	OnboardingCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "goalreminder_onboarding_completed_total",
		Help: "Users that resolved a timezone and started a trial",
	})

	// Scheduler
	RemindersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "goalreminder_reminders_total",
		Help: "Scheduled messages by kind and outcome (sent, failed, duplicate)",
	}, []string{"kind", "outcome"})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "goalreminder_sweep_duration_seconds",
		Help:    "Wall time of one reminder sweep",
		Buckets: prometheus.DefBuckets,
	})

	SweepEligibleUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "goalreminder_sweep_eligible_users",
		Help: "Eligible users seen by the last sweep",
	})

	// Billing
	BillingEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "goalreminder_billing_events_total",
		Help: "Billing webhook events by type and outcome",
	}, []string{"type", "outcome"})

	CheckoutSessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "goalreminder_checkout_sessions_total",
		Help: "Checkout sessions requested, by purpose",
	}, []string{"purpose"})

	// Infra
	ExternalCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "goalreminder_external_call_latency_seconds",
		Help:    "Latency of calls to external systems",
		Buckets: prometheus.DefBuckets,
	}, []string{"system", "operation"})
)

// ObserveExternalCall records the latency of one outbound call started at start.
func ObserveExternalCall(system, operation string, start time.Time) {
	ExternalCallLatency.WithLabelValues(system, operation).Observe(time.Since(start).Seconds())
}
