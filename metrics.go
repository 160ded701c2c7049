package carnet

import (
	"sort"
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginRateLimited
	MetricAccountLocked
	MetricAccountUnlocked
	MetricRefreshSuccess
	MetricRefreshFailure
	// MetricRefreshReplayRejected counts validly signed refresh tokens with no live record.
	MetricRefreshReplayRejected
	MetricRefreshRateLimited
	MetricValidateSuccess
	MetricValidateFailure
	MetricLogout
	// MetricDownstreamFailure counts user-service, catalog and Redis faults.
	MetricDownstreamFailure
	MetricValidateLatency
	metricIDCount
)

// latencyBounds are the inclusive upper bounds of the validate latency buckets.
// Anything slower lands in the final overflow bucket.
var latencyBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const latencyBucketCount = len(latencyBounds) + 1

// counter sits on its own cache line; login and validate counters are bumped
// from every request goroutine.
type counter struct {
	atomic.Uint64
	_ [56]byte
}

// Metrics is a fixed set of lock-free counters plus the validate latency histogram.
type Metrics struct {
	enabled bool
	latency bool
	counts  [metricIDCount]counter
	buckets [latencyBucketCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of [Metrics].
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns counters configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
		latency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount || id == MetricValidateLatency {
		return
	}
	m.counts[id].Add(1)
}

// Observe records d in the histogram of id. Only [MetricValidateLatency] has one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.latency || id != MetricValidateLatency {
		return
	}
	i := sort.Search(len(latencyBounds), func(i int) bool { return d <= latencyBounds[i] })
	m.buckets[i].Add(1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counts[id].Load()
}

// Snapshot copies all counters and, when enabled, the latency buckets.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if id != MetricValidateLatency {
			s.Counters[id] = m.counts[id].Load()
		}
	}
	if m.latency {
		b := make([]uint64, latencyBucketCount)
		for i := range b {
			b[i] = m.buckets[i].Load()
		}
		s.Histograms[MetricValidateLatency] = b
	}
	return s
}
