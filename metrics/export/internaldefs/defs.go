package internaldefs

import (
	portalauth "github.com/MatSV27/neo-portal-proveedores"
)

// CounterDef binds a metric ID to its exported name and help text.
type CounterDef struct {
	ID   portalauth.MetricID
	Name string
	Help string
}

// HistogramDef binds a histogram metric ID to its exported name and help text.
type HistogramDef struct {
	ID   portalauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: portalauth.MetricLoginSuccess, Name: "portal_login_success_total", Help: "Successful login attempts."},
	{ID: portalauth.MetricLoginFailure, Name: "portal_login_failure_total", Help: "Failed login attempts."},
	{ID: portalauth.MetricRegisterSuccess, Name: "portal_register_success_total", Help: "Successful registrations."},
	{ID: portalauth.MetricRegisterFailure, Name: "portal_register_failure_total", Help: "Failed registrations."},
	{ID: portalauth.MetricLogout, Name: "portal_logout_total", Help: "Logout operations."},
	{ID: portalauth.MetricRefreshSuccess, Name: "portal_refresh_success_total", Help: "Successful token refreshes."},
	{ID: portalauth.MetricRefreshFailure, Name: "portal_refresh_failure_total", Help: "Failed token refreshes."},
	{ID: portalauth.MetricRefreshDedupAttach, Name: "portal_refresh_dedup_attach_total", Help: "Refresh callers attached to an in-flight refresh."},
	{ID: portalauth.MetricRefreshStaleDropped, Name: "portal_refresh_stale_dropped_total", Help: "Refresh completions dropped as superseded."},
	{ID: portalauth.MetricSessionExpired, Name: "portal_session_expired_total", Help: "Sessions expired by a backend rejection."},
	{ID: portalauth.MetricRequestSuccess, Name: "portal_request_success_total", Help: "Authorized backend requests that succeeded."},
	{ID: portalauth.MetricRequestRejected, Name: "portal_request_rejected_total", Help: "Backend requests rejected with 401."},
	{ID: portalauth.MetricRequestFailed, Name: "portal_request_failed_total", Help: "Backend requests failed with a non-401 error status."},
	{ID: portalauth.MetricRequestNetworkError, Name: "portal_request_network_error_total", Help: "Backend requests that failed at the transport level."},
	{ID: portalauth.MetricRequestBlockedNoToken, Name: "portal_request_blocked_no_token_total", Help: "Requests blocked locally for lack of a session."},
	{ID: portalauth.MetricGateAllow, Name: "portal_gate_allow_total", Help: "Gate checks that admitted the session."},
	{ID: portalauth.MetricGateDeny, Name: "portal_gate_deny_total", Help: "Gate checks that denied the session."},
	{ID: portalauth.MetricGatePending, Name: "portal_gate_pending_total", Help: "Gate checks held during session restoration."},
}

// HistogramDefs lists every exported histogram in a stable order.
var HistogramDefs = []HistogramDef{
	{ID: portalauth.MetricRequestLatency, Name: "portal_request_latency_seconds", Help: "Backend request latency histogram."},
}

// HistogramBounds are the bucket upper bounds as Prometheus le labels.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix are the bucket bounds as OTel-safe name suffixes.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed width.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form both
// exposition formats expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
