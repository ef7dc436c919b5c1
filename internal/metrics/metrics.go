package metrics

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a counter or histogram slot.
type MetricID uint8

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricRegisterSuccess
	MetricRegisterFailure
	MetricLogout
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricRefreshDedupAttach
	MetricRefreshStaleDropped
	MetricSessionExpired
	MetricRequestSuccess
	MetricRequestRejected
	MetricRequestFailed
	MetricRequestNetworkError
	MetricRequestBlockedNoToken
	MetricGateAllow
	MetricGateDeny
	MetricGatePending

	MetricRequestLatency

	// MetricIDCount is the number of defined metric IDs.
	MetricIDCount
)

const histogramBuckets = 8

// HistogramBoundsSeconds are the upper bounds of the first seven buckets; the
// eighth is +Inf.
var HistogramBoundsSeconds = [histogramBuckets - 1]float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5,
}

// paddedCounter occupies a full cache line so adjacent counters never share
// one under concurrent writes.
type paddedCounter struct {
	value uint64
	_     [7]uint64
}

// Config controls metric collection.
type Config struct {
	Enabled       bool
	EnableLatency bool
}

// Metrics holds atomic counters and optional latency histograms. A nil or
// disabled Metrics is a valid no-op receiver on every method.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [MetricIDCount]paddedCounter
	histograms    [MetricIDCount][histogramBuckets]paddedCounter
}

// New creates a Metrics instance. When cfg.Enabled is false, all operations
// are no-ops.
func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatency,
	}
}

// Inc adds one to the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= MetricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a duration sample into the histogram for id.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id >= MetricIDCount {
		return
	}
	seconds := d.Seconds()
	bucket := histogramBuckets - 1
	for i, bound := range HistogramBoundsSeconds {
		if seconds <= bound {
			bucket = i
			break
		}
	}
	atomic.AddUint64(&m.histograms[id][bucket].value, 1)
}

// Snapshot is a point-in-time deep copy of all non-zero metrics.
type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// Snapshot copies the current values. Safe to call concurrently with writes;
// individual slots are read atomically.
func (m *Metrics) Snapshot() Snapshot {
	out := Snapshot{
		Counters:   make(map[MetricID]uint64),
		Histograms: make(map[MetricID][]uint64),
	}
	if m == nil || !m.enabled {
		return out
	}

	for id := MetricID(0); id < MetricIDCount; id++ {
		if v := atomic.LoadUint64(&m.counters[id].value); v != 0 {
			out.Counters[id] = v
		}
	}
	if m.enableLatency {
		for id := MetricID(0); id < MetricIDCount; id++ {
			var buckets [histogramBuckets]uint64
			nonZero := false
			for i := 0; i < histogramBuckets; i++ {
				buckets[i] = atomic.LoadUint64(&m.histograms[id][i].value)
				if buckets[i] != 0 {
					nonZero = true
				}
			}
			if nonZero {
				out.Histograms[id] = buckets[:]
			}
		}
	}
	return out
}
