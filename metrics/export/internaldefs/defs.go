package internaldefs

import (
	"github.com/MrEthical07/contentauth"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   contentauth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram for export.
type HistogramDef struct {
	ID   contentauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: contentauth.MetricLoginSuccess, Name: "contentauth_login_success_total", Help: "Successful logins."},
	{ID: contentauth.MetricLoginFailure, Name: "contentauth_login_failure_total", Help: "Failed logins, including unknown users."},
	{ID: contentauth.MetricSessionCreated, Name: "contentauth_session_created_total", Help: "Session records written at login."},
	{ID: contentauth.MetricLogout, Name: "contentauth_logout_total", Help: "Logout calls."},
	{ID: contentauth.MetricPasswordChangeSuccess, Name: "contentauth_password_change_success_total", Help: "Successful password changes."},
	{ID: contentauth.MetricPasswordChangeInvalidOld, Name: "contentauth_password_change_invalid_old_total", Help: "Password changes rejected for a wrong old password."},
	{ID: contentauth.MetricPasswordChangeFailure, Name: "contentauth_password_change_failure_total", Help: "Password changes that failed for other reasons."},
	{ID: contentauth.MetricPasswordRehashed, Name: "contentauth_password_rehashed_total", Help: "Hashes upgraded to current parameters at login."},
	{ID: contentauth.MetricAuthenticateSuccess, Name: "contentauth_authenticate_success_total", Help: "Accepted tokens."},
	{ID: contentauth.MetricAuthenticateFailure, Name: "contentauth_authenticate_failure_total", Help: "Rejected tokens."},
	{ID: contentauth.MetricSessionStoreUnavailable, Name: "contentauth_session_store_unavailable_total", Help: "Session store calls that failed or timed out."},
	{ID: contentauth.MetricSessionRevoked, Name: "contentauth_session_revoked_total", Help: "Sessions removed by explicit revocation."},
}

// HistogramDefs lists exported latency histograms.
var HistogramDefs = []HistogramDef{
	{ID: contentauth.MetricAuthenticateLatency, Name: "contentauth_authenticate_latency_seconds", Help: "Authenticate latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The engine
// keeps one more bucket for +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for backends
// without native histogram labels.
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

// BucketCount is the number of engine buckets, +Inf included.
const BucketCount = 8

// NormalizeBuckets pads or truncates raw to BucketCount entries.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
