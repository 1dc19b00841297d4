package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/domain"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/port"
)

// PermissionMetrics implements port.MetricsSink and
// port.SecurityMetricsProvider with Prometheus collectors.
type PermissionMetrics struct {
	checks       *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	denials      *prometheus.CounterVec
}

// NewPermissionMetrics constructs and registers the permission collectors.
func NewPermissionMetrics(reg prometheus.Registerer) (*PermissionMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	checks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workspace",
		Subsystem: "permissions",
		Name:      "checks_total",
		Help:      "Permission decisions partitioned by workspace type, outcome, and decision source.",
	}, []string{"workspace_type", "allowed", "source"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workspace",
		Subsystem: "permissions",
		Name:      "cache_lookups_total",
		Help:      "Permission cache lookups partitioned by hit/miss.",
	}, []string{"result"})

	denials := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workspace",
		Subsystem: "permissions",
		Name:      "denials_total",
		Help:      "Denied permission checks partitioned by requested permission.",
	}, []string{"permission"})

	for _, c := range []prometheus.Collector{checks, cacheLookups, denials} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}

	return &PermissionMetrics{
		checks:       checks,
		cacheLookups: cacheLookups,
		denials:      denials,
	}, nil
}

func (m *PermissionMetrics) ObservePermissionCheck(workspaceType domain.WorkspaceType, _ string, allowed bool, source string) {
	outcome := "false"
	if allowed {
		outcome = "true"
	}
	m.checks.WithLabelValues(string(workspaceType), outcome, source).Inc()
}

func (m *PermissionMetrics) ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *PermissionMetrics) RecordAccessDenied(_, _, permission string) {
	m.denials.WithLabelValues(permission).Inc()
}

var (
	_ port.MetricsSink             = (*PermissionMetrics)(nil)
	_ port.SecurityMetricsProvider = (*PermissionMetrics)(nil)
)
