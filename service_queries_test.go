package aclkit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestServiceRulesFor tests retrieving the stored rules targeting a
// principal
func TestServiceRulesFor(t *testing.T) {
	store := NewMemoryStore()
	service := NewService(NewRegistry(), store)
	ctx := context.Background()

	rules := []Rule{
		NewRule("Album", All, AccessRead, PermissionAllow, UserPrincipal("u-1")),
		NewRule("Photo", All, AccessWrite, PermissionDeny, UserPrincipal("u-1")),
		NewRule("Album", All, AccessRead, PermissionAllow, UserPrincipal("u-2")),
	}
	require.NoError(t, store.SaveRules(ctx, rules))

	mine, err := service.RulesFor(ctx, UserPrincipal("u-1"))
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "Album", mine[0].Resource)
	assert.Equal(t, "Photo", mine[1].Resource)

	none, err := service.RulesFor(ctx, UserPrincipal("stranger"))
	require.NoError(t, err)
	assert.Empty(t, none)
}

// TestServiceRulesForResource tests retrieving the stored rules affecting a
// resource, wildcard rules included
func TestServiceRulesForResource(t *testing.T) {
	store := NewMemoryStore()
	service := NewService(NewRegistry(), store)
	ctx := context.Background()

	rules := []Rule{
		NewRule("Album", All, AccessRead, PermissionAllow, Everyone()),
		NewRule("Photo", All, AccessRead, PermissionAllow, Everyone()),
		NewRule(All, All, AccessAll, PermissionDeny, RolePrincipal("banned")),
	}
	require.NoError(t, store.SaveRules(ctx, rules))

	albumRules, err := service.RulesForResource(ctx, "Album")
	require.NoError(t, err)
	require.Len(t, albumRules, 2)
	assert.Equal(t, "Album", albumRules[0].Resource)
	assert.Equal(t, All, albumRules[1].Resource)
}

// TestServiceRolesOf tests listing the stored roles a principal holds
func TestServiceRolesOf(t *testing.T) {
	store := NewMemoryStore()
	service := NewService(NewRegistry(), store)
	ctx := context.Background()

	require.NoError(t, store.Grant(ctx, "editor", UserPrincipal("u-1")))
	require.NoError(t, store.Grant(ctx, "admin", UserPrincipal("u-1")))
	require.NoError(t, store.Grant(ctx, "editor", UserPrincipal("u-2")))

	roles, err := service.RolesOf(ctx, UserPrincipal("u-1"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"editor", "admin"}, roles)

	roles, err = service.RolesOf(ctx, UserPrincipal("stranger"))
	require.NoError(t, err)
	assert.Empty(t, roles)
}

// TestServicePrincipalsWithRole tests listing every holder of a stored role
func TestServicePrincipalsWithRole(t *testing.T) {
	store := NewMemoryStore()
	service := NewService(NewRegistry(), store)
	ctx := context.Background()

	require.NoError(t, store.Grant(ctx, "editor", UserPrincipal("alice")))
	require.NoError(t, store.Grant(ctx, "editor", AppPrincipal("cms")))
	require.NoError(t, store.Grant(ctx, "admin", UserPrincipal("bob")))

	principals, err := service.PrincipalsWithRole(ctx, "editor")
	require.NoError(t, err)
	assert.ElementsMatch(t, []Principal{UserPrincipal("alice"), AppPrincipal("cms")}, principals)

	principals, err = service.PrincipalsWithRole(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, principals)
}

// TestServiceMembershipQueriesUnsupportedStore tests membership queries on
// a store without a membership side
func TestServiceMembershipQueriesUnsupportedStore(t *testing.T) {
	service := NewService(NewRegistry(), readOnlyStore{backing: NewMemoryStore()})
	ctx := context.Background()

	_, err := service.RolesOf(ctx, UserPrincipal("u-1"))
	require.Error(t, err)
	assert.True(t, IsStoreError(err))

	_, err = service.PrincipalsWithRole(ctx, "editor")
	require.Error(t, err)
	assert.True(t, IsStoreError(err))
}

// TestServiceDecisionLogQuery tests retrieving recorded decisions through
// the service
func TestServiceDecisionLogQuery(t *testing.T) {
	registry := NewRegistry()
	registry.DefineResource("Payroll").
		Audit(Everyone(), "salary", AccessRead)

	store := NewMemoryStore()
	service := NewService(registry, store)
	ctx := context.Background()

	_, err := service.CheckPermission(ctx, UserPrincipal("u-1"),
		NewAccessRequest("Payroll", "salary", AccessRead))
	require.NoError(t, err)

	records, err := service.DecisionLog(ctx, NewDecisionLogFilter().WithResource("Payroll"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "AUDIT", records[0].Permission)
	assert.Equal(t, "u-1", records[0].PrincipalID)

	records, err = service.DecisionLog(ctx, NewDecisionLogFilter().WithResource("Album"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

// TestServiceDecisionLogUnsupportedStore tests decision log queries on a
// store without a log
func TestServiceDecisionLogUnsupportedStore(t *testing.T) {
	service := NewService(NewRegistry(), readOnlyStore{backing: NewMemoryStore()})

	_, err := service.DecisionLog(context.Background(), NewDecisionLogFilter())
	require.Error(t, err)
	assert.True(t, IsStoreError(err))
	assert.Contains(t, err.Error(), "store does not support decision log queries")
}

// TestServiceCan tests the boolean convenience check
func TestServiceCan(t *testing.T) {
	registry := NewRegistry()
	registry.DefineResource("Album").
		DefaultPermission(PermissionDeny).
		Allow(UserPrincipal("u-1"), All, AccessRead)

	service := NewService(registry, NewMemoryStore())
	ctx := context.Background()

	assert.True(t, service.Can(ctx, UserPrincipal("u-1"), "Album", AccessRead))
	assert.False(t, service.Can(ctx, UserPrincipal("u-1"), "Album", AccessWrite))
	assert.False(t, service.Can(ctx, UserPrincipal("u-2"), "Album", AccessRead))

	// Errors read as "no".
	assert.False(t, service.Can(ctx, UserPrincipal("u-1"), "", AccessRead))
}

// TestServiceIsInRoleConvenience tests the boolean role check
func TestServiceIsInRoleConvenience(t *testing.T) {
	store := NewMemoryStore()
	roles := NewRoles().WithMembershipStore(store)
	roles.Register("flaky", func(context.Context, *AccessContext) (bool, error) {
		return false, errors.New("resolver offline")
	})

	service := NewService(NewRegistry(), store).WithRoles(roles)
	ctx := context.Background()

	require.NoError(t, store.Grant(ctx, "editor", UserPrincipal("u-1")))

	assert.True(t, service.IsInRole(ctx, RoleEveryone))
	assert.True(t, service.IsInRole(ctx, "editor", UserPrincipal("u-1")))
	assert.False(t, service.IsInRole(ctx, "editor", UserPrincipal("u-2")))

	// Errors read as "no".
	assert.False(t, service.IsInRole(ctx, "flaky", UserPrincipal("u-1")))
}
