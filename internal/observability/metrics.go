// Package observability provides Prometheus collectors and OpenTelemetry
// tracing for the moderation backend.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActionsTotal counts dispatched moderation actions by verb and outcome.
	ActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_moderation_actions_total",
		Help: "Total number of moderation actions by verb and outcome",
	}, []string{"action", "outcome"})

	// EscalationsTotal counts automatic account escalations.
	EscalationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warden_escalations_total",
		Help: "Total number of automatic ban escalations to account deletion",
	})

	// CascadeSyncedTotal counts duplicate content items synchronized by the
	// cascade resolver.
	CascadeSyncedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_cascade_synced_total",
		Help: "Total number of duplicate content items synchronized by cascade",
	}, []string{"target_type"})

	// EffectFailuresTotal counts best-effort side effects that failed.
	EffectFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_effect_failures_total",
		Help: "Total number of failed best-effort side effects",
	}, []string{"effect"})

	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_redis_error_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DecisionCodeFallbacks counts decision codes issued via the timestamp
	// fallback after exhausting collision-check attempts.
	DecisionCodeFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warden_decision_code_fallbacks_total",
		Help: "Total number of decision codes issued via the timestamp fallback",
	})
)
