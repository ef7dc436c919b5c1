package portalauth

import (
	internalmetrics "github.com/MatSV27/neo-portal-proveedores/internal/metrics"
)

// MetricID identifies a counter or histogram slot.
type MetricID = internalmetrics.MetricID

const (
	MetricLoginSuccess          = internalmetrics.MetricLoginSuccess
	MetricLoginFailure          = internalmetrics.MetricLoginFailure
	MetricRegisterSuccess       = internalmetrics.MetricRegisterSuccess
	MetricRegisterFailure       = internalmetrics.MetricRegisterFailure
	MetricLogout                = internalmetrics.MetricLogout
	MetricRefreshSuccess        = internalmetrics.MetricRefreshSuccess
	MetricRefreshFailure        = internalmetrics.MetricRefreshFailure
	MetricRefreshDedupAttach    = internalmetrics.MetricRefreshDedupAttach
	MetricRefreshStaleDropped   = internalmetrics.MetricRefreshStaleDropped
	MetricSessionExpired        = internalmetrics.MetricSessionExpired
	MetricRequestSuccess        = internalmetrics.MetricRequestSuccess
	MetricRequestRejected       = internalmetrics.MetricRequestRejected
	MetricRequestFailed         = internalmetrics.MetricRequestFailed
	MetricRequestNetworkError   = internalmetrics.MetricRequestNetworkError
	MetricRequestBlockedNoToken = internalmetrics.MetricRequestBlockedNoToken
	MetricGateAllow             = internalmetrics.MetricGateAllow
	MetricGateDeny              = internalmetrics.MetricGateDeny
	MetricGatePending           = internalmetrics.MetricGatePending
	MetricRequestLatency        = internalmetrics.MetricRequestLatency
)

// MetricsSnapshot is a point-in-time deep copy of all non-zero metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// HistogramBoundsSeconds are the latency histogram bucket upper bounds; the
// final bucket is +Inf.
var HistogramBoundsSeconds = internalmetrics.HistogramBoundsSeconds
