package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/domain"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/core/port"
	"github.com/momah-innovation/saudi-innovate-flow-sub014/internal/repository"
)

type membershipRepoMock struct {
	mu         sync.Mutex
	membership *domain.Membership
	err        error
	calls      int
}

func (m *membershipRepoMock) GetActive(_ context.Context, _, _ string) (*domain.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.membership == nil {
		return nil, repository.ErrNotFound
	}
	return m.membership, nil
}

func (m *membershipRepoMock) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type capabilityMock struct {
	mu      sync.Mutex
	allowed bool
	err     error
	calls   int
}

func (c *capabilityMock) HasCapability(_ context.Context, _, _, _ string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return false, c.err
	}
	return c.allowed, nil
}

func (c *capabilityMock) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func activeMembership(role string) *domain.Membership {
	return &domain.Membership{
		WorkspaceID: "ws-1",
		UserID:      "user-1",
		Role:        role,
		Status:      domain.MembershipActive,
		JoinedAt:    time.Now(),
	}
}

func newTestManager(t *testing.T, table domain.RoleTable, memberships *membershipRepoMock, capabilities *capabilityMock) *PermissionManager {
	t.Helper()
	var checker port.CapabilityChecker
	if capabilities != nil {
		checker = capabilities
	}
	workspace := domain.WorkspaceRef{Type: domain.WorkspaceOrganization, ID: "ws-1"}
	manager, err := NewPermissionManager(workspace, "user-1", table, memberships, checker, nil)
	if err != nil {
		t.Fatalf("NewPermissionManager: %v", err)
	}
	return manager
}

func TestNewPermissionManagerValidation(t *testing.T) {
	memberships := &membershipRepoMock{}

	if _, err := NewPermissionManager(domain.WorkspaceRef{Type: "bogus", ID: "ws-1"}, "user-1", domain.DefaultRoleTable(), memberships, nil, nil); err == nil {
		t.Error("expected error for unknown workspace type")
	}
	if _, err := NewPermissionManager(domain.WorkspaceRef{Type: domain.WorkspaceTeam}, "user-1", domain.DefaultRoleTable(), memberships, nil, nil); err == nil {
		t.Error("expected error for empty workspace id")
	}
	if _, err := NewPermissionManager(domain.WorkspaceRef{Type: domain.WorkspaceTeam, ID: "ws-1"}, "", domain.DefaultRoleTable(), memberships, nil, nil); err == nil {
		t.Error("expected error for empty user id")
	}
	if _, err := NewPermissionManager(domain.WorkspaceRef{Type: domain.WorkspaceTeam, ID: "ws-1"}, "user-1", domain.DefaultRoleTable(), nil, nil, nil); err == nil {
		t.Error("expected error for missing membership repository")
	}
}

func TestRestrictionOverridesWildcardPermission(t *testing.T) {
	table := domain.RoleTable{
		domain.WorkspaceOrganization: {
			"superuser": domain.RolePolicy{
				Permissions:  []string{"*"},
				Restrictions: []string{"delete:*"},
			},
		},
	}
	memberships := &membershipRepoMock{membership: activeMembership("superuser")}
	manager := newTestManager(t, table, memberships, nil)

	ctx := context.Background()
	if manager.HasPermission(ctx, domain.PermissionCheck{Resource: "records", Action: "delete"}) {
		t.Error("restriction must win over the wildcard permission")
	}
	if !manager.HasPermission(ctx, domain.PermissionCheck{Resource: "records", Action: "write"}) {
		t.Error("unrestricted action should be allowed by the wildcard")
	}
}

func TestCoordinatorScenario(t *testing.T) {
	memberships := &membershipRepoMock{membership: activeMembership("coordinator")}
	capabilities := &capabilityMock{}
	manager := newTestManager(t, domain.DefaultRoleTable(), memberships, capabilities)

	ctx := context.Background()
	if !manager.HasPermission(ctx, domain.PermissionCheck{Resource: "events", Action: "write"}) {
		t.Error("coordinator should be able to write events")
	}
	if manager.HasPermission(ctx, domain.PermissionCheck{Resource: "policies", Action: "write"}) {
		t.Error("coordinator must not write policies")
	}
	if capabilities.callCount() != 0 {
		t.Errorf("static decisions must not hit the capability fallback, got %d calls", capabilities.callCount())
	}
}

func TestTeamLeadHasAdminAccess(t *testing.T) {
	workspace := domain.WorkspaceRef{Type: domain.WorkspaceTeam, ID: "team-1"}
	memberships := &membershipRepoMock{membership: activeMembership("lead")}
	manager, err := NewPermissionManager(workspace, "user-1", domain.DefaultRoleTable(), memberships, nil, nil)
	if err != nil {
		t.Fatalf("NewPermissionManager: %v", err)
	}

	if !manager.HasWorkspaceAccess(context.Background(), AccessAdmin) {
		t.Error("team lead should have admin workspace access")
	}
}

func TestNoRoleDeniesWithoutFallback(t *testing.T) {
	memberships := &membershipRepoMock{}
	capabilities := &capabilityMock{allowed: true}
	manager := newTestManager(t, domain.DefaultRoleTable(), memberships, capabilities)

	ctx := context.Background()
	if manager.HasPermission(ctx, domain.PermissionCheck{Resource: "events", Action: "read"}) {
		t.Error("principal without a role must be denied")
	}
	if capabilities.callCount() != 0 {
		t.Error("fallback must not run when the principal has no role")
	}

	if role, ok := manager.UserRole(ctx); ok || role != "" {
		t.Errorf("UserRole = (%q, %v), want empty", role, ok)
	}
}

func TestMembershipLookupFailureDenies(t *testing.T) {
	memberships := &membershipRepoMock{err: errors.New("connection refused")}
	manager := newTestManager(t, domain.DefaultRoleTable(), memberships, nil)

	if manager.HasPermission(context.Background(), domain.PermissionCheck{Resource: "events", Action: "read"}) {
		t.Error("membership lookup failure must deny")
	}
}

func TestFallbackErrorDenies(t *testing.T) {
	memberships := &membershipRepoMock{membership: activeMembership("coordinator")}
	capabilities := &capabilityMock{allowed: true, err: errors.New("rpc unavailable")}
	manager := newTestManager(t, domain.DefaultRoleTable(), memberships, capabilities)

	// write:reports is outside the coordinator's static lists and falls
	// through to the capability check.
	if manager.HasPermission(context.Background(), domain.PermissionCheck{Resource: "reports", Action: "write"}) {
		t.Error("capability failure must deny")
	}
	if capabilities.callCount() != 1 {
		t.Errorf("expected one fallback call, got %d", capabilities.callCount())
	}
}

func TestPermissionCacheTTL(t *testing.T) {
	memberships := &membershipRepoMock{membership: activeMembership("coordinator")}
	capabilities := &capabilityMock{allowed: true}
	manager := newTestManager(t, domain.DefaultRoleTable(), memberships, capabilities)

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	manager.WithClock(func() time.Time { return current })

	ctx := context.Background()
	check := domain.PermissionCheck{Resource: "reports", Action: "write"}

	if !manager.HasPermission(ctx, check) {
		t.Fatal("expected fallback allow")
	}
	if capabilities.callCount() != 1 {
		t.Fatalf("expected one fallback call, got %d", capabilities.callCount())
	}

	// Within the TTL the cached decision is honored.
	current = current.Add(4 * time.Minute)
	manager.HasPermission(ctx, check)
	if capabilities.callCount() != 1 {
		t.Errorf("expected cached decision within TTL, got %d fallback calls", capabilities.callCount())
	}

	// Past the TTL the decision is recomputed.
	current = current.Add(2 * time.Minute)
	manager.HasPermission(ctx, check)
	if capabilities.callCount() != 2 {
		t.Errorf("expected recomputation after TTL, got %d fallback calls", capabilities.callCount())
	}
}

func TestRoleCachedForManagerLifetime(t *testing.T) {
	memberships := &membershipRepoMock{membership: activeMembership("coordinator")}
	manager := newTestManager(t, domain.DefaultRoleTable(), memberships, nil)

	ctx := context.Background()
	manager.UserRole(ctx)
	manager.UserRole(ctx)
	manager.HasPermission(ctx, domain.PermissionCheck{Resource: "events", Action: "read"})

	if memberships.callCount() != 1 {
		t.Errorf("expected a single membership lookup, got %d", memberships.callCount())
	}

	manager.ClearCache()
	manager.UserRole(ctx)
	if memberships.callCount() != 2 {
		t.Errorf("expected refetch after ClearCache, got %d lookups", memberships.callCount())
	}
}

func TestHasPermissionsBatch(t *testing.T) {
	memberships := &membershipRepoMock{membership: activeMembership("coordinator")}
	capabilities := &capabilityMock{}
	manager := newTestManager(t, domain.DefaultRoleTable(), memberships, capabilities)

	results := manager.HasPermissions(context.Background(), []domain.PermissionCheck{
		{Resource: "events", Action: "write"},
		{Resource: "policies", Action: "write"},
		{Resource: "campaigns", Action: "read"},
	})

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results["events|write"] {
		t.Error("expected write:events to be allowed")
	}
	if results["policies|write"] {
		t.Error("expected write:policies to be denied")
	}
	if !results["campaigns|read"] {
		t.Error("expected read:campaigns to be allowed")
	}
}

func TestCanPerformActions(t *testing.T) {
	memberships := &membershipRepoMock{membership: activeMembership("coordinator")}
	manager := newTestManager(t, domain.DefaultRoleTable(), memberships, nil)

	results := manager.CanPerformActions(context.Background(), "events", []string{"read", "write", "delete"})

	if !results["read"] || !results["write"] {
		t.Errorf("expected read and write on events, got %v", results)
	}
	if results["delete"] {
		t.Error("expected delete on events to be denied")
	}
}

func TestAllPermissions(t *testing.T) {
	memberships := &membershipRepoMock{membership: activeMembership("coordinator")}
	manager := newTestManager(t, domain.DefaultRoleTable(), memberships, nil)

	patterns := manager.AllPermissions(context.Background())
	if len(patterns) == 0 {
		t.Fatal("expected coordinator to have permission patterns")
	}

	noRole := newTestManager(t, domain.DefaultRoleTable(), &membershipRepoMock{}, nil)
	if patterns := noRole.AllPermissions(context.Background()); len(patterns) != 0 {
		t.Errorf("expected no patterns without a role, got %v", patterns)
	}
}

func TestPermissionServiceReusesManagers(t *testing.T) {
	memberships := &membershipRepoMock{membership: activeMembership("coordinator")}
	service := NewPermissionService(domain.DefaultRoleTable(), memberships, nil, nil)

	workspace := domain.WorkspaceRef{Type: domain.WorkspaceOrganization, ID: "ws-1"}

	first, err := service.ManagerFor(workspace, "user-1")
	if err != nil {
		t.Fatalf("ManagerFor: %v", err)
	}
	second, err := service.ManagerFor(workspace, "user-1")
	if err != nil {
		t.Fatalf("ManagerFor: %v", err)
	}
	if first != second {
		t.Error("expected the same manager for one (workspace, principal) pair")
	}

	service.Invalidate(workspace, "user-1")
	third, err := service.ManagerFor(workspace, "user-1")
	if err != nil {
		t.Fatalf("ManagerFor: %v", err)
	}
	if third == first {
		t.Error("expected a fresh manager after Invalidate")
	}
}
