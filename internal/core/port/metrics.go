package port

import "github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/domain"

// MetricsSink receives permission evaluation observations. Injected
// explicitly; callers that do not care pass NopMetricsSink.
type MetricsSink interface {
	ObservePermissionCheck(workspaceType domain.WorkspaceType, role string, allowed bool, source string)
	ObserveCacheLookup(hit bool)
}

// SecurityMetricsProvider receives denied-access signals for security
// monitoring.
type SecurityMetricsProvider interface {
	RecordAccessDenied(workspaceID, userID, permission string)
}

// NopMetricsSink discards all observations.
type NopMetricsSink struct{}

func (NopMetricsSink) ObservePermissionCheck(domain.WorkspaceType, string, bool, string) {}
func (NopMetricsSink) ObserveCacheLookup(bool)                                           {}

// NopSecurityMetrics discards all denied-access signals.
type NopSecurityMetrics struct{}

func (NopSecurityMetrics) RecordAccessDenied(string, string, string) {}

var (
	_ MetricsSink             = NopMetricsSink{}
	_ SecurityMetricsProvider = NopSecurityMetrics{}
)
