// Package metrics defines and registers all custom Prometheus metrics for the
// application tracker API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry at package init
// via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tracker"

// ── Authorizer metrics ────────────────────────────────────────────────────────

// AuthorizerDecisionsTotal counts access decisions.
// Labels:
//   - effect: "Allow" or "Deny"
//   - reason: deny reason (e.g. "missing_token", "verification_failed"), empty on Allow
var AuthorizerDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authorizer_decisions_total",
		Help:      "Total number of authorizer decisions, by effect and deny reason.",
	},
	[]string{"effect", "reason"},
)

// AuthorizerDuration measures how long a single decision takes, including
// key fetches and revocation lookups.
var AuthorizerDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "authorizer_duration_seconds",
		Help:      "Duration of authorizer decisions.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"effect"},
)

// GatewayCacheTotal counts decision cache lookups.
// Label:
//   - result: "hit" or "miss"
var GatewayCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_decision_cache_total",
		Help:      "Total number of decision cache lookups, labelled by result (hit/miss).",
	},
	[]string{"result"},
)

// SessionsRevokedTotal counts revoke-all-sessions requests that succeeded.
var SessionsRevokedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_revoked_total",
		Help:      "Total number of successful session revocations.",
	},
)

// ── Application metrics ───────────────────────────────────────────────────────

// ApplicationsSavedTotal counts successful saves.
// Label:
//   - operation: "create", "update", or "replay" (idempotent repeat of a create)
var ApplicationsSavedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "applications_saved_total",
		Help:      "Total number of applications saved, by operation.",
	},
	[]string{"operation"},
)

// ApplicationsDeletedTotal counts deleted applications.
var ApplicationsDeletedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "applications_deleted_total",
		Help:      "Total number of applications deleted.",
	},
)

// IdempotencyTotal counts Idempotency-Key lookups on create.
// Label:
//   - result: "hit" (replayed) or "miss" (new create)
var IdempotencyTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "idempotency_total",
		Help:      "Total number of idempotency key checks, labelled by result (hit/miss).",
	},
	[]string{"result"},
)
