package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/domain"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/port"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/repository"
)

// permissionCacheTTL bounds how long a computed permission boolean is
// honored before recomputation.
const permissionCacheTTL = 5 * time.Minute

// AccessLevel is the coarse workspace access vocabulary exposed to the UI.
type AccessLevel string

const (
	AccessView  AccessLevel = "view"
	AccessEdit  AccessLevel = "edit"
	AccessAdmin AccessLevel = "admin"
)

type cacheEntry struct {
	allowed   bool
	expiresAt time.Time
}

// PermissionManager evaluates whether one principal may perform actions
// within one workspace. Role resolution is cached for the manager's
// lifetime; permission booleans are cached with a fixed TTL. Every external
// failure degrades to a deny, never to an error surfaced to the caller.
type PermissionManager struct {
	workspace    domain.WorkspaceRef
	userID       string
	table        domain.RoleTable
	memberships  port.MembershipRepository
	capabilities port.CapabilityChecker
	metrics      port.MetricsSink
	security     port.SecurityMetricsProvider
	logger       *zap.Logger
	now          func() time.Time

	mu         sync.Mutex
	role       string
	roleLoaded bool
	cache      map[string]cacheEntry
}

// NewPermissionManager constructs a manager for one (workspace, principal)
// pair. The role table is injected so tests can substitute alternate
// vocabularies.
func NewPermissionManager(
	workspace domain.WorkspaceRef,
	userID string,
	table domain.RoleTable,
	memberships port.MembershipRepository,
	capabilities port.CapabilityChecker,
	logger *zap.Logger,
) (*PermissionManager, error) {
	if !workspace.Type.Valid() {
		return nil, fmt.Errorf("unknown workspace type %q", workspace.Type)
	}
	if workspace.ID == "" {
		return nil, errors.New("workspace id is required")
	}
	if userID == "" {
		return nil, errors.New("user id is required")
	}
	if memberships == nil {
		return nil, errors.New("membership repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PermissionManager{
		workspace:    workspace,
		userID:       userID,
		table:        table,
		memberships:  memberships,
		capabilities: capabilities,
		metrics:      port.NopMetricsSink{},
		security:     port.NopSecurityMetrics{},
		logger:       logger,
		now:          time.Now,
		cache:        make(map[string]cacheEntry),
	}, nil
}

// WithMetrics attaches a metrics sink.
func (m *PermissionManager) WithMetrics(sink port.MetricsSink) *PermissionManager {
	if sink != nil {
		m.metrics = sink
	}
	return m
}

// WithSecurityMetrics attaches a security metrics provider.
func (m *PermissionManager) WithSecurityMetrics(p port.SecurityMetricsProvider) *PermissionManager {
	if p != nil {
		m.security = p
	}
	return m
}

// WithClock overrides the time source.
func (m *PermissionManager) WithClock(now func() time.Time) *PermissionManager {
	if now != nil {
		m.now = now
	}
	return m
}

// UserRole resolves the principal's role in the workspace. The first lookup
// hits the membership store; the outcome, including "no role", is cached for
// the manager's lifetime. Lookup failures are logged and reported as no
// role.
func (m *PermissionManager) UserRole(ctx context.Context) (string, bool) {
	m.mu.Lock()
	if m.roleLoaded {
		role := m.role
		m.mu.Unlock()
		return role, role != ""
	}
	m.mu.Unlock()

	role := m.fetchRole(ctx)

	m.mu.Lock()
	m.role = role
	m.roleLoaded = true
	m.mu.Unlock()

	return role, role != ""
}

func (m *PermissionManager) fetchRole(ctx context.Context) string {
	membership, err := m.memberships.GetActive(ctx, m.workspace.ID, m.userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			m.logger.Warn("membership lookup failed",
				zap.String("workspace_id", m.workspace.ID),
				zap.String("user_id", m.userID),
				zap.Error(err),
			)
		}
		return ""
	}
	if membership == nil || !membership.Active() {
		return ""
	}
	return membership.Role
}

// HasPermission answers a single capability question, consulting the TTL
// cache first.
func (m *PermissionManager) HasPermission(ctx context.Context, check domain.PermissionCheck) bool {
	key := cacheKey(check)

	m.mu.Lock()
	entry, ok := m.cache[key]
	if ok && m.now().Before(entry.expiresAt) {
		m.mu.Unlock()
		m.metrics.ObserveCacheLookup(true)
		return entry.allowed
	}
	m.mu.Unlock()
	m.metrics.ObserveCacheLookup(false)

	allowed := m.checkPermission(ctx, check)

	m.mu.Lock()
	m.cache[key] = cacheEntry{allowed: allowed, expiresAt: m.now().Add(permissionCacheTTL)}
	m.mu.Unlock()

	return allowed
}

// checkPermission computes the decision without touching the cache.
// Restrictions are evaluated before permissions; a wildcard permission never
// overrides a matching restriction. Checks the static table cannot resolve
// fall through to the capability RPC, whose failures deny.
func (m *PermissionManager) checkPermission(ctx context.Context, check domain.PermissionCheck) bool {
	role, ok := m.UserRole(ctx)
	if !ok {
		m.metrics.ObservePermissionCheck(m.workspace.Type, "", false, "none")
		return false
	}

	policy, ok := m.table.Policy(m.workspace.Type, role)
	if !ok {
		m.metrics.ObservePermissionCheck(m.workspace.Type, role, false, "none")
		return false
	}

	candidate := check.Candidate()

	if domain.MatchAny(policy.Restrictions, candidate) {
		m.metrics.ObservePermissionCheck(m.workspace.Type, role, false, "static")
		m.security.RecordAccessDenied(m.workspace.ID, m.userID, candidate)
		return false
	}

	if domain.MatchAny(policy.Permissions, candidate) {
		m.metrics.ObservePermissionCheck(m.workspace.Type, role, true, "static")
		return true
	}

	allowed := m.fallbackCheck(ctx, candidate)
	m.metrics.ObservePermissionCheck(m.workspace.Type, role, allowed, "fallback")
	if !allowed {
		m.security.RecordAccessDenied(m.workspace.ID, m.userID, candidate)
	}
	return allowed
}

func (m *PermissionManager) fallbackCheck(ctx context.Context, permission string) bool {
	if m.capabilities == nil {
		return false
	}

	allowed, err := m.capabilities.HasCapability(ctx, m.workspace.ID, m.userID, permission)
	if err != nil {
		m.logger.Warn("capability fallback failed",
			zap.String("workspace_id", m.workspace.ID),
			zap.String("user_id", m.userID),
			zap.String("permission", permission),
			zap.Error(err),
		)
		return false
	}
	return allowed
}

// HasPermissions evaluates a batch of checks concurrently. Entries succeed
// or fail independently; completion order is undefined.
func (m *PermissionManager) HasPermissions(ctx context.Context, checks []domain.PermissionCheck) map[string]bool {
	results := make(map[string]bool, len(checks))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for _, check := range checks {
		wg.Add(1)
		go func(check domain.PermissionCheck) {
			defer wg.Done()
			allowed := m.HasPermission(ctx, check)
			mu.Lock()
			results[cacheKey(check)] = allowed
			mu.Unlock()
		}(check)
	}

	wg.Wait()
	return results
}

// AllPermissions returns the static permission patterns for the resolved
// role, or an empty slice when the principal has no role.
func (m *PermissionManager) AllPermissions(ctx context.Context) []string {
	role, ok := m.UserRole(ctx)
	if !ok {
		return []string{}
	}

	policy, ok := m.table.Policy(m.workspace.Type, role)
	if !ok {
		return []string{}
	}

	patterns := make([]string, len(policy.Permissions))
	copy(patterns, policy.Permissions)
	return patterns
}

// CanPerformActions answers many actions against one resource.
func (m *PermissionManager) CanPerformActions(ctx context.Context, resource string, actions []string) map[string]bool {
	checks := make([]domain.PermissionCheck, 0, len(actions))
	for _, action := range actions {
		checks = append(checks, domain.PermissionCheck{Resource: resource, Action: action})
	}

	batch := m.HasPermissions(ctx, checks)

	results := make(map[string]bool, len(actions))
	for _, action := range actions {
		results[action] = batch[cacheKey(domain.PermissionCheck{Resource: resource, Action: action})]
	}
	return results
}

// HasWorkspaceAccess maps a coarse access level onto the pseudo-resource
// "workspace": view reads, edit writes, admin administers.
func (m *PermissionManager) HasWorkspaceAccess(ctx context.Context, level AccessLevel) bool {
	action := "read"
	switch level {
	case AccessEdit:
		action = "write"
	case AccessAdmin:
		action = "admin"
	}
	return m.HasPermission(ctx, domain.PermissionCheck{Resource: "workspace", Action: action})
}

// ClearCache drops every cached permission boolean and the cached role. The
// next call recomputes from scratch.
func (m *PermissionManager) ClearCache() {
	m.mu.Lock()
	m.cache = make(map[string]cacheEntry)
	m.role = ""
	m.roleLoaded = false
	m.mu.Unlock()
}

func cacheKey(check domain.PermissionCheck) string {
	if len(check.Context) == 0 {
		return check.Resource + "|" + check.Action
	}

	keys := make([]string, 0, len(check.Context))
	for k := range check.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(check.Resource)
	b.WriteByte('|')
	b.WriteString(check.Action)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(check.Context[k])
	}
	return b.String()
}
