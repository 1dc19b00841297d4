package usecase

import (
	"sync"

	"go.uber.org/zap"

	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/domain"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/port"
)

// PermissionService hands out PermissionManager instances. Managers are
// cached per (workspace, principal) so repeated requests share one role
// cache and one permission cache; cache lifetime is therefore bound to this
// service, matching the one-instance-one-cache contract.
type PermissionService struct {
	table        domain.RoleTable
	memberships  port.MembershipRepository
	capabilities port.CapabilityChecker
	metrics      port.MetricsSink
	security     port.SecurityMetricsProvider
	logger       *zap.Logger

	mu       sync.Mutex
	managers map[string]*PermissionManager
}

// NewPermissionService constructs the manager registry.
func NewPermissionService(
	table domain.RoleTable,
	memberships port.MembershipRepository,
	capabilities port.CapabilityChecker,
	logger *zap.Logger,
) *PermissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PermissionService{
		table:        table,
		memberships:  memberships,
		capabilities: capabilities,
		metrics:      port.NopMetricsSink{},
		security:     port.NopSecurityMetrics{},
		logger:       logger,
		managers:     make(map[string]*PermissionManager),
	}
}

// WithMetrics attaches a metrics sink propagated to every manager.
func (s *PermissionService) WithMetrics(sink port.MetricsSink) *PermissionService {
	if sink != nil {
		s.metrics = sink
	}
	return s
}

// WithSecurityMetrics attaches a security metrics provider propagated to
// every manager.
func (s *PermissionService) WithSecurityMetrics(p port.SecurityMetricsProvider) *PermissionService {
	if p != nil {
		s.security = p
	}
	return s
}

// ManagerFor returns the shared manager for one (workspace, principal) pair,
// constructing it on first use.
func (s *PermissionService) ManagerFor(workspace domain.WorkspaceRef, userID string) (*PermissionManager, error) {
	key := string(workspace.Type) + "|" + workspace.ID + "|" + userID

	s.mu.Lock()
	defer s.mu.Unlock()

	if manager, ok := s.managers[key]; ok {
		return manager, nil
	}

	manager, err := NewPermissionManager(workspace, userID, s.table, s.memberships, s.capabilities, s.logger)
	if err != nil {
		return nil, err
	}
	manager.WithMetrics(s.metrics).WithSecurityMetrics(s.security)

	s.managers[key] = manager
	return manager, nil
}

// Invalidate drops the cached manager for one (workspace, principal) pair,
// forcing the next request to recompute role and permissions.
func (s *PermissionService) Invalidate(workspace domain.WorkspaceRef, userID string) {
	key := string(workspace.Type) + "|" + workspace.ID + "|" + userID

	s.mu.Lock()
	defer s.mu.Unlock()
	if manager, ok := s.managers[key]; ok {
		manager.ClearCache()
		delete(s.managers, key)
	}
}
