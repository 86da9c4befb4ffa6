// Package metrics defines and registers all custom Prometheus metrics for the
// identity service. It is the single source of truth for metric names,
// labels, and help strings.
//
// Collectors register with the default Prometheus registry on package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "identity"

// ── User metrics ──────────────────────────────────────────────────────────────

// UsersCreatedTotal counts newly created accounts.
// Label:
//   - role: the role assigned at creation, or "none" when it did not resolve
var UsersCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "users_created_total",
		Help:      "Total number of user accounts created, by assigned role.",
	},
	[]string{"role"},
)

// UsersDeletedTotal counts permanently removed accounts.
var UsersDeletedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "users_deleted_total",
		Help:      "Total number of user accounts deleted.",
	},
)

// ── Authorization metrics ─────────────────────────────────────────────────────

// AuthorizationDenialsTotal counts rejected operations.
// Label:
//   - policy: "admin_only", "self_only" or "route"
var AuthorizationDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authorization_denials_total",
		Help:      "Total number of operations denied by the authorization policy.",
	},
	[]string{"policy"},
)

// ── Cache metrics ─────────────────────────────────────────────────────────────

// CacheLookupsTotal counts user projection lookups.
// Label:
//   - result: "hit", "miss" or "error"
var CacheLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Total number of user cache lookups, labelled by result.",
	},
	[]string{"result"},
)

// ProjectionQueueDepth tracks pending cache projections per worker.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var ProjectionQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "projection_queue_depth",
		Help:      "Current number of cache projections pending in each projector worker channel.",
	},
	[]string{"worker_id"},
)
