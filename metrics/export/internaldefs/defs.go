package internaldefs

import (
	"github.com/carnet-digital/carnet"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   carnet.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   carnet.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exported for bitácora events lost to backpressure.
const AuditDroppedName = "carnet_audit_dropped_total"

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: carnet.MetricLoginSuccess, Name: "carnet_login_success_total", Help: "Successful logins."},
	{ID: carnet.MetricLoginFailure, Name: "carnet_login_failure_total", Help: "Logins rejected as unauthorized."},
	{ID: carnet.MetricLoginRateLimited, Name: "carnet_login_rate_limited_total", Help: "Logins rejected by the per-IP throttle."},
	{ID: carnet.MetricAccountLocked, Name: "carnet_account_locked_total", Help: "Accounts moved to the blocked state after repeated failures."},
	{ID: carnet.MetricAccountUnlocked, Name: "carnet_account_unlocked_total", Help: "Manual account unblocks."},
	{ID: carnet.MetricRefreshSuccess, Name: "carnet_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: carnet.MetricRefreshFailure, Name: "carnet_refresh_failure_total", Help: "Rejected refresh attempts."},
	{ID: carnet.MetricRefreshReplayRejected, Name: "carnet_refresh_replay_rejected_total", Help: "Signed refresh tokens presented after redemption or revocation."},
	{ID: carnet.MetricRefreshRateLimited, Name: "carnet_refresh_rate_limited_total", Help: "Refresh attempts rejected by the throttle."},
	{ID: carnet.MetricValidateSuccess, Name: "carnet_validate_success_total", Help: "Access tokens accepted by validate."},
	{ID: carnet.MetricValidateFailure, Name: "carnet_validate_failure_total", Help: "Access tokens rejected by validate."},
	{ID: carnet.MetricLogout, Name: "carnet_logout_total", Help: "Access tokens blacklisted by logout."},
	{ID: carnet.MetricDownstreamFailure, Name: "carnet_downstream_failure_total", Help: "User service, catalog and Redis failures."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: carnet.MetricValidateLatency, Name: "carnet_validate_latency_seconds", Help: "Validate latency histogram."},
}

// HistogramBounds are the Prometheus "le" labels of the engine buckets.
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

// HistogramBoundSuffix are the same bounds usable inside instrument names.
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

// NormalizeBuckets copies raw into a fixed array, padding or truncating.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
