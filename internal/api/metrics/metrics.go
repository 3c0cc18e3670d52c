// Package metrics defines and registers all custom Prometheus metrics for the
// auth core. It is the single source of truth for metric names, labels, and
// help strings.
//
// All metrics are registered with the default Prometheus registry on package
// initialisation and exposed by the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "authcore"

// ── Login metrics ─────────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials", "throttled" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// ── Signup metrics ────────────────────────────────────────────────────────────

// SignupsTotal counts created identities.
// Label:
//   - role: "user" or "contributor"
var SignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of identities created, by role.",
	},
	[]string{"role"},
)

// ── Reset metrics ─────────────────────────────────────────────────────────────

// ResetsTotal counts reset handshake steps.
// Labels:
//   - stage: "requested" or "confirmed"
//   - result: "ok", "unknown_email", "rejected" or "error"
var ResetsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_resets_total",
		Help:      "Total number of password reset requests and confirmations.",
	},
	[]string{"stage", "result"},
)

// ResetNoncesPurgedTotal counts expired nonces removed by the reaper.
var ResetNoncesPurgedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reset_nonces_purged_total",
		Help:      "Total number of expired reset nonces deleted.",
	},
)

// ── Token metrics ─────────────────────────────────────────────────────────────

// TokenRejectionsTotal counts tokens that failed verification.
// Label:
//   - reason: "invalid", "expired", "not_yet_valid" or "wrong_kind"
var TokenRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_rejections_total",
		Help:      "Total number of rejected tokens, by reason.",
	},
	[]string{"reason"},
)

// ── Hashing metrics ───────────────────────────────────────────────────────────

// HashDuration measures one hash or verify job on the worker pool.
// Label:
//   - op: "hash" or "verify"
var HashDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "password_hash_duration_seconds",
		Help:      "Duration of bcrypt hash and verify jobs.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
	},
	[]string{"op"},
)

// HashQueueDepth tracks jobs waiting for a hashing worker.
var HashQueueDepth = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "password_hash_queue_depth",
		Help:      "Current number of hash jobs waiting for a worker.",
	},
)
