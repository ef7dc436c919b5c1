package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/MatSV27/neo-portal-proveedores/gate"
)

type gateResultContextKey struct{}

// GateResultFromContext returns the gate result injected by Guard.
func GateResultFromContext(ctx context.Context) (gate.Result, bool) {
	res, ok := ctx.Value(gateResultContextKey{}).(gate.Result)
	return res, ok
}

// Routes configures where denied requests are sent.
type Routes struct {
	// Login receives sessions with no usable credential. Defaults to "/login".
	Login string
	// Baseline returns the landing route for a role, used on insufficient-role
	// denials. Defaults to "/" for every role.
	Baseline func(role string) string
	// PendingRetryAfter is the Retry-After value (in seconds) sent while
	// session restoration is in progress. Defaults to 1.
	PendingRetryAfter int
}

func (r Routes) login() string {
	if r.Login == "" {
		return "/login"
	}
	return r.Login
}

func (r Routes) baseline(role string) string {
	if r.Baseline == nil {
		return "/"
	}
	return r.Baseline(role)
}

// Guard wraps a handler with a role requirement. An empty required list
// admits any authenticated session.
func Guard(g *gate.Gate, routes Routes, required ...string) func(http.Handler) http.Handler {
	retryAfter := "1"
	if routes.PendingRetryAfter > 0 {
		retryAfter = strconv.Itoa(routes.PendingRetryAfter)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if g == nil {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}

			res := g.Check(required...)
			switch res.Decision {
			case gate.DecisionAllow:
				ctx := context.WithValue(r.Context(), gateResultContextKey{}, res)
				next.ServeHTTP(w, r.WithContext(ctx))
			case gate.DecisionPending:
				w.Header().Set("Retry-After", retryAfter)
				http.Error(w, "session restoration in progress", http.StatusServiceUnavailable)
			default:
				if res.Reason == gate.ReasonInsufficientRole {
					http.Redirect(w, r, routes.baseline(res.Snapshot.Role), http.StatusSeeOther)
					return
				}
				http.Redirect(w, r, routes.login(), http.StatusSeeOther)
			}
		})
	}
}
