package gate

import (
	"github.com/MatSV27/neo-portal-proveedores/internal/metrics"
	"github.com/MatSV27/neo-portal-proveedores/session"
)

// Decision is the outcome of a gate check.
type Decision uint8

const (
	// DecisionAllow admits the session to the route.
	DecisionAllow Decision = iota
	// DecisionDeny rejects the session; Reason says how to route the denial.
	DecisionDeny
	// DecisionPending means session restoration is still in progress and the
	// caller should hold rendering rather than redirect.
	DecisionPending
)

func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionDeny:
		return "deny"
	case DecisionPending:
		return "pending"
	default:
		return "unknown"
	}
}

// Reason qualifies a DecisionDeny.
type Reason uint8

const (
	ReasonNone Reason = iota
	// ReasonNotAuthenticated: no usable session; route to login.
	ReasonNotAuthenticated
	// ReasonInsufficientRole: authenticated but the role does not cover the
	// route; route to the role's baseline page, keep the session.
	ReasonInsufficientRole
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNotAuthenticated:
		return "not_authenticated"
	case ReasonInsufficientRole:
		return "insufficient_role"
	default:
		return "unknown"
	}
}

// Result carries the decision plus the session snapshot it was made against,
// so callers can route on the role without a second store read.
type Result struct {
	Decision Decision
	Reason   Reason
	Snapshot session.Snapshot
}

// Allowed is shorthand for Decision == DecisionAllow.
func (r Result) Allowed() bool { return r.Decision == DecisionAllow }

// Gate evaluates route access against the session store.
type Gate struct {
	store   *session.Store
	metrics *metrics.Metrics
}

// New creates a Gate. metrics may be nil.
func New(store *session.Store, met *metrics.Metrics) *Gate {
	return &Gate{store: store, metrics: met}
}

// Check evaluates access for a route requiring one of the given roles. An
// empty required list means any authenticated session is admitted.
//
// While the session is restoring (authenticating), Check returns
// DecisionPending: redirecting during that window would bounce a user whose
// persisted session is about to resolve.
func (g *Gate) Check(required ...string) Result {
	snap := g.store.Get()

	switch snap.Status {
	case session.StatusAuthenticating:
		g.metrics.Inc(metrics.MetricGatePending)
		return Result{Decision: DecisionPending, Snapshot: snap}
	case session.StatusAuthenticated:
	default:
		g.metrics.Inc(metrics.MetricGateDeny)
		return Result{Decision: DecisionDeny, Reason: ReasonNotAuthenticated, Snapshot: snap}
	}

	if len(required) > 0 && !roleCovered(snap.Role, required) {
		g.metrics.Inc(metrics.MetricGateDeny)
		return Result{Decision: DecisionDeny, Reason: ReasonInsufficientRole, Snapshot: snap}
	}

	g.metrics.Inc(metrics.MetricGateAllow)
	return Result{Decision: DecisionAllow, Snapshot: snap}
}

func roleCovered(role string, required []string) bool {
	for _, r := range required {
		if role == r {
			return true
		}
	}
	return false
}
