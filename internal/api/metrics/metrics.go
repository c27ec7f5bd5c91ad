// Package metrics defines and registers the custom Prometheus metrics of the
// back-office API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default registry at package init via
// promauto; HTTP request metrics come from echoprometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "backoffice"

// ── Authentication ───────────────────────────────────────────────────────────

// AuthAttemptsTotal counts login and registration attempts.
// Labels:
//   - operation: "login" or "register"
//   - outcome: "success", "invalid_credentials", "conflict", "invalid_input", "error"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of login and registration attempts by outcome.",
	},
	[]string{"operation", "outcome"},
)

// TokenRejectionsTotal counts requests the auth guard turned away.
// Label:
//   - reason: "missing", "malformed", "invalid_signature", "expired", "unknown_subject"
var TokenRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_rejections_total",
		Help:      "Total number of requests rejected during token verification, by reason.",
	},
	[]string{"reason"},
)

// AuthorizationDenialsTotal counts authenticated requests whose role was not
// in the operation's allow-set.
// Label:
//   - role: the caller's role
var AuthorizationDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authorization_denials_total",
		Help:      "Total number of requests rejected by role-based access control.",
	},
	[]string{"role"},
)

// RateLimitedTotal counts requests refused by the auth rate limiter.
var RateLimitedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_rate_limited_total",
		Help:      "Total number of auth requests refused by the rate limiter.",
	},
)

// ── Audit trail ──────────────────────────────────────────────────────────────

// AuditEventsDroppedTotal counts audit events discarded because a worker
// queue was full.
var AuditEventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_dropped_total",
		Help:      "Total number of audit events dropped on a full dispatcher queue.",
	},
)

// AuditQueueDepth tracks the number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
