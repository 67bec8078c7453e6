package aclkit

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore errors on every read.
type failingStore struct{}

func (failingStore) FindRules(context.Context, RuleFilter) ([]Rule, error) {
	return nil, NewError(ErrStore, "find rules failed")
}

func (failingStore) FindScope(context.Context, string) (*Scope, error) {
	return nil, NewError(ErrStore, "find scope failed")
}

// countingStore wraps a MemoryStore and counts rule reads.
type countingStore struct {
	*MemoryStore
	findCalls int
}

func (c *countingStore) FindRules(ctx context.Context, filter RuleFilter) ([]Rule, error) {
	c.findCalls++
	return c.MemoryStore.FindRules(ctx, filter)
}

// readOnlyStore exposes only the read side of a MemoryStore.
type readOnlyStore struct {
	backing *MemoryStore
}

func (r readOnlyStore) FindRules(ctx context.Context, filter RuleFilter) ([]Rule, error) {
	return r.backing.FindRules(ctx, filter)
}

func (r readOnlyStore) FindScope(ctx context.Context, name string) (*Scope, error) {
	return r.backing.FindScope(ctx, name)
}

// TestNewService tests service construction and dependency wiring
func TestNewService(t *testing.T) {
	registry := NewRegistry()
	store := NewMemoryStore()

	service := NewService(registry, store)
	require.NotNil(t, service)
	assert.Same(t, registry, service.Registry())
	assert.NotNil(t, service.Roles())

	got, ok := service.Store().(*MemoryStore)
	require.True(t, ok)
	assert.Same(t, store, got)

	// A store with membership support backs stored roles automatically.
	ctx := context.Background()
	require.NoError(t, store.Grant(ctx, "editor", UserPrincipal("u-1")))
	assert.True(t, service.IsInRole(ctx, "editor", UserPrincipal("u-1")))

	// A store with decision logging is picked up automatically.
	assert.NotNil(t, service.decisions)
}

// TestServiceOptions tests the With* configuration methods
func TestServiceOptions(t *testing.T) {
	service := NewService(NewRegistry(), NewMemoryStore())

	// A nil logger keeps the current one.
	service.WithLogger(nil)
	assert.NotNil(t, service.logger)

	logger := slog.Default()
	service.WithLogger(logger)
	assert.Same(t, logger, service.logger)

	roles := NewRoles()
	service.WithRoles(roles)
	assert.Same(t, roles, service.Roles())

	metrics := NewMetrics()
	service.WithMetrics(metrics)
	assert.Same(t, metrics, service.metrics)

	other := NewMemoryStore()
	service.WithDecisionLog(other)
	dl, ok := service.decisions.(*MemoryStore)
	require.True(t, ok)
	assert.Same(t, other, dl)
}

// TestServiceCheckPermissionValidation tests malformed check rejection
func TestServiceCheckPermissionValidation(t *testing.T) {
	service := NewService(NewRegistry(), NewMemoryStore())
	ctx := context.Background()

	_, err := service.CheckPermission(ctx, UserPrincipal("u-1"), NewAccessRequest("", All, AccessRead))
	require.Error(t, err)
	assert.True(t, IsInvalidRequest(err))
	assert.Contains(t, err.Error(), "resource is required")

	_, err = service.CheckPermission(ctx, Principal{}, NewAccessRequest("Album", All, AccessRead))
	require.Error(t, err)
	assert.True(t, IsInvalidRequest(err))
	assert.Contains(t, err.Error(), "principal is required")
}

// TestServiceCheckPermissionStaticDeny tests that a static DENY rejects
// without reading the store
func TestServiceCheckPermissionStaticDeny(t *testing.T) {
	registry := NewRegistry()
	registry.DefineResource("Album").Deny(UserPrincipal("u-1"), All, AccessWrite)

	store := &countingStore{MemoryStore: NewMemoryStore()}
	ctx := context.Background()

	// A stored rule that could overturn the outcome must not even be read.
	allow := NewRule("Album", All, AccessWrite, PermissionAllow, UserPrincipal("u-1"))
	require.NoError(t, store.SaveRule(ctx, &allow))
	store.findCalls = 0

	service := NewService(registry, store)

	resolved, err := service.CheckPermission(ctx, UserPrincipal("u-1"), NewAccessRequest("Album", "title", AccessWrite))
	require.NoError(t, err)
	assert.Equal(t, PermissionDeny, resolved.Permission)
	assert.False(t, resolved.Allowed())
	assert.Zero(t, store.findCalls)
}

// TestServiceCheckPermissionStoredOverride tests stored rules refining a
// static outcome
func TestServiceCheckPermissionStoredOverride(t *testing.T) {
	registry := NewRegistry()
	registry.DefineResource("Album").Allow(UserPrincipal("u-1"), All, AccessWrite)

	store := &countingStore{MemoryStore: NewMemoryStore()}
	ctx := context.Background()

	deny := NewRule("Album", "locked", AccessWrite, PermissionDeny, UserPrincipal("u-1"))
	require.NoError(t, store.SaveRule(ctx, &deny))
	store.findCalls = 0

	service := NewService(registry, store)

	// The more specific stored DENY wins over the static property wildcard.
	resolved, err := service.CheckPermission(ctx, UserPrincipal("u-1"), NewAccessRequest("Album", "locked", AccessWrite))
	require.NoError(t, err)
	assert.Equal(t, PermissionDeny, resolved.Permission)
	assert.Equal(t, 1, store.findCalls)

	// Other properties still resolve through the static ALLOW.
	resolved, err = service.CheckPermission(ctx, UserPrincipal("u-1"), NewAccessRequest("Album", "title", AccessWrite))
	require.NoError(t, err)
	assert.Equal(t, PermissionAllow, resolved.Permission)
}

// TestServiceCheckPermissionPrincipalScoping tests that stored rules of
// other principals never apply
func TestServiceCheckPermissionPrincipalScoping(t *testing.T) {
	registry := NewRegistry().SetDefaultPermission(PermissionDeny)
	registry.DefineResource("Album")

	store := NewMemoryStore()
	ctx := context.Background()

	allow := NewRule("Album", All, AccessRead, PermissionAllow, UserPrincipal("u-2"))
	require.NoError(t, store.SaveRule(ctx, &allow))

	service := NewService(registry, store)

	resolved, err := service.CheckPermission(ctx, UserPrincipal("u-1"), NewAccessRequest("Album", "title", AccessRead))
	require.NoError(t, err)
	assert.Equal(t, PermissionDeny, resolved.Permission)

	resolved, err = service.CheckPermission(ctx, UserPrincipal("u-2"), NewAccessRequest("Album", "title", AccessRead))
	require.NoError(t, err)
	assert.Equal(t, PermissionAllow, resolved.Permission)
}

// TestServiceCheckPermissionDefaultSubstitution tests the DEFAULT fallback
// chain
func TestServiceCheckPermissionDefaultSubstitution(t *testing.T) {
	registry := NewRegistry()
	registry.DefineResource("Album")
	registry.DefineResource("Payroll").DefaultPermission(PermissionDeny)

	service := NewService(registry, NewMemoryStore())
	ctx := context.Background()

	// Nothing configured resolves to ALLOW.
	resolved, err := service.CheckPermission(ctx, UserPrincipal("u-1"), NewAccessRequest("Album", "title", AccessRead))
	require.NoError(t, err)
	assert.Equal(t, PermissionAllow, resolved.Permission)

	// A resource override applies.
	resolved, err = service.CheckPermission(ctx, UserPrincipal("u-1"), NewAccessRequest("Payroll", "salary", AccessRead))
	require.NoError(t, err)
	assert.Equal(t, PermissionDeny, resolved.Permission)

	// The registry default covers the rest.
	registry.SetDefaultPermission(PermissionDeny)
	resolved, err = service.CheckPermission(ctx, UserPrincipal("u-1"), NewAccessRequest("Album", "title", AccessRead))
	require.NoError(t, err)
	assert.Equal(t, PermissionDeny, resolved.Permission)
}

// TestServiceCheckPermissionStoreError tests store failure propagation
func TestServiceCheckPermissionStoreError(t *testing.T) {
	service := NewService(NewRegistry(), failingStore{})

	_, err := service.CheckPermission(context.Background(), UserPrincipal("u-1"), NewAccessRequest("Album", All, AccessRead))
	require.Error(t, err)
	assert.True(t, IsStoreError(err))

	stats := service.DecisionStats()
	assert.Equal(t, int64(1), stats.TotalChecks)
	assert.Equal(t, int64(1), stats.Errors)
	assert.Zero(t, stats.Allowed)
	assert.Zero(t, stats.Denied)
}

// TestServiceCheckPermissionAuditLogging tests that AUDIT and ALARM
// outcomes land in the decision log
func TestServiceCheckPermissionAuditLogging(t *testing.T) {
	registry := NewRegistry()
	registry.DefineResource("Album").
		Audit(UserPrincipal("u-1"), "total", AccessWrite).
		Alarm(UserPrincipal("u-1"), "salary", AccessRead).
		Allow(UserPrincipal("u-1"), "title", AccessRead)

	store := NewMemoryStore()
	service := NewService(registry, store)
	ctx := WithRequestInfo(context.Background(), RequestInfo{IPAddress: "10.0.0.1", RequestID: "req-1"})

	resolved, err := service.CheckPermission(ctx, UserPrincipal("u-1"), NewAccessRequest("Album", "total", AccessWrite))
	require.NoError(t, err)
	assert.Equal(t, PermissionAudit, resolved.Permission)
	assert.True(t, resolved.Allowed())

	resolved, err = service.CheckPermission(ctx, UserPrincipal("u-1"), NewAccessRequest("Album", "salary", AccessRead))
	require.NoError(t, err)
	assert.Equal(t, PermissionAlarm, resolved.Permission)

	// Plain ALLOW outcomes are not logged.
	_, err = service.CheckPermission(ctx, UserPrincipal("u-1"), NewAccessRequest("Album", "title", AccessRead))
	require.NoError(t, err)

	records, err := store.GetDecisionLog(ctx, NewDecisionLogFilter())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "ALARM", records[0].Permission)
	assert.Equal(t, "salary", records[0].Property)
	assert.Equal(t, "AUDIT", records[1].Permission)
	assert.Equal(t, "total", records[1].Property)
	assert.Equal(t, "u-1", records[1].PrincipalID)
	assert.Equal(t, "10.0.0.1", records[1].IPAddress)
	assert.Equal(t, "req-1", records[1].RequestID)
}

// TestServiceCheckScopePermission tests delegation checks through named
// scopes
func TestServiceCheckScopePermission(t *testing.T) {
	registry := NewRegistry().SetDefaultPermission(PermissionDeny)
	registry.DefineResource("Album")

	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.SaveScope(ctx, &Scope{Name: "read-only"}))
	rule := NewRule("Album", All, AccessRead, PermissionAllow, ScopePrincipal("read-only"))
	require.NoError(t, store.SaveRule(ctx, &rule))

	service := NewService(registry, store)

	resolved, err := service.CheckScopePermission(ctx, []string{"read-only"}, NewAccessRequest("Album", All, AccessRead))
	require.NoError(t, err)
	assert.Equal(t, PermissionAllow, resolved.Permission)

	// The scope grants reads only.
	resolved, err = service.CheckScopePermission(ctx, []string{"read-only"}, NewAccessRequest("Album", All, AccessWrite))
	require.NoError(t, err)
	assert.Equal(t, PermissionDeny, resolved.Permission)

	// Every named scope must exist.
	_, err = service.CheckScopePermission(ctx, []string{"read-only", "admin"}, NewAccessRequest("Album", All, AccessRead))
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	// No scopes means no scope rules apply.
	resolved, err = service.CheckScopePermission(ctx, nil, NewAccessRequest("Album", All, AccessRead))
	require.NoError(t, err)
	assert.Equal(t, PermissionDeny, resolved.Permission)
}

// TestServiceDecisionStats tests in-process decision statistics
func TestServiceDecisionStats(t *testing.T) {
	registry := NewRegistry().SetDefaultPermission(PermissionDeny)
	registry.DefineResource("Album").Allow(UserPrincipal("u-1"), All, AccessRead)

	service := NewService(registry, NewMemoryStore())
	ctx := context.Background()

	_, err := service.CheckPermission(ctx, UserPrincipal("u-1"), NewAccessRequest("Album", All, AccessRead))
	require.NoError(t, err)
	_, err = service.CheckPermission(ctx, UserPrincipal("u-2"), NewAccessRequest("Album", All, AccessRead))
	require.NoError(t, err)

	stats := service.DecisionStats()
	assert.Equal(t, int64(2), stats.TotalChecks)
	assert.Equal(t, int64(1), stats.Allowed)
	assert.Equal(t, int64(1), stats.Denied)
	assert.Zero(t, stats.Errors)

	service.ResetDecisionStats()
	stats = service.DecisionStats()
	assert.Zero(t, stats.TotalChecks)
	assert.Zero(t, stats.Allowed)
	assert.Zero(t, stats.Denied)
}
