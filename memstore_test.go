package aclkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMemoryStoreSaveRule tests inserting and updating rules
func TestMemoryStoreSaveRule(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	rule := NewRule("Album", "title", AccessRead, PermissionAllow, UserPrincipal("u-1"))
	require.NoError(t, store.SaveRule(ctx, &rule))

	assert.NotEmpty(t, rule.ID)
	assert.False(t, rule.CreatedAt.IsZero())
	assert.False(t, rule.UpdatedAt.IsZero())

	count, err := store.CountRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Saving with the same ID updates in place and keeps CreatedAt.
	created := rule.CreatedAt
	rule.Permission = PermissionDeny
	require.NoError(t, store.SaveRule(ctx, &rule))

	count, err = store.CountRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	found, err := store.FindRules(ctx, NewRuleFilter())
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, PermissionDeny, found[0].Permission)
	assert.Equal(t, created, found[0].CreatedAt)
}

// TestMemoryStoreSaveRuleNormalizes tests wildcard normalization on save
func TestMemoryStoreSaveRuleNormalizes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	rule := Rule{Resource: "Album", Permission: PermissionAllow, PrincipalType: PrincipalUser, PrincipalID: "u-1"}
	require.NoError(t, store.SaveRule(ctx, &rule))

	assert.Equal(t, All, rule.Property)
	assert.Equal(t, AccessAll, rule.AccessKind)
}

// TestMemoryStoreSaveRules tests batch saves
func TestMemoryStoreSaveRules(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	rules := []Rule{
		NewRule("Album", All, AccessRead, PermissionAllow, Everyone()),
		NewRule("Photo", All, AccessRead, PermissionAllow, Everyone()),
	}
	require.NoError(t, store.SaveRules(ctx, rules))

	assert.NotEmpty(t, rules[0].ID)
	assert.NotEmpty(t, rules[1].ID)

	count, err := store.CountRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

// TestMemoryStoreFindRules tests filter semantics and creation order
func TestMemoryStoreFindRules(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	rules := []Rule{
		NewRule("Album", "title", AccessRead, PermissionAllow, UserPrincipal("u-1")),
		NewRule("Album", All, AccessWrite, PermissionDeny, Everyone()),
		NewRule(All, All, AccessAll, PermissionAudit, RolePrincipal("auditor")),
		NewRule("Photo", "size", AccessRead, PermissionAllow, UserPrincipal("u-2")),
	}
	require.NoError(t, store.SaveRules(ctx, rules))

	tests := []struct {
		name     string
		filter   RuleFilter
		expected int
	}{
		{
			name:     "Empty filter matches everything",
			filter:   NewRuleFilter(),
			expected: 4,
		},
		{
			name:     "Concrete resource keeps wildcard rules",
			filter:   NewRuleFilter().WithResource("Album"),
			expected: 3,
		},
		{
			name:     "Wildcard resource matches everything",
			filter:   NewRuleFilter().WithResource(All),
			expected: 4,
		},
		{
			name:     "Concrete property keeps wildcard rules",
			filter:   NewRuleFilter().WithResource("Album").WithProperty("title"),
			expected: 3,
		},
		{
			name:     "Other property drops concrete mismatches",
			filter:   NewRuleFilter().WithResource("Album").WithProperty("artist"),
			expected: 2,
		},
		{
			name:     "Access kind filter keeps wildcard rules",
			filter:   NewRuleFilter().WithResource("Album").WithAccessKind(AccessRead),
			expected: 2,
		},
		{
			name:     "Principal filter is exact",
			filter:   NewRuleFilter().WithPrincipal(UserPrincipal("u-1")),
			expected: 1,
		},
		{
			name:     "Several principals union",
			filter:   NewRuleFilter().WithPrincipal(UserPrincipal("u-1")).WithPrincipal(Everyone()),
			expected: 2,
		},
		{
			name:     "Unknown principal matches nothing",
			filter:   NewRuleFilter().WithPrincipal(UserPrincipal("nobody")),
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := store.FindRules(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, found, tt.expected)
		})
	}

	// Creation order is preserved.
	found, err := store.FindRules(ctx, NewRuleFilter())
	require.NoError(t, err)
	require.Len(t, found, 4)
	assert.Equal(t, "title", found[0].Property)
	assert.Equal(t, PermissionDeny, found[1].Permission)
	assert.Equal(t, All, found[2].Resource)
	assert.Equal(t, "Photo", found[3].Resource)
}

// TestMemoryStoreFindRulesPagination tests limit and offset handling
func TestMemoryStoreFindRulesPagination(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	rules := []Rule{
		NewRule("Album", "a", AccessRead, PermissionAllow, Everyone()),
		NewRule("Album", "b", AccessRead, PermissionAllow, Everyone()),
		NewRule("Album", "c", AccessRead, PermissionAllow, Everyone()),
	}
	require.NoError(t, store.SaveRules(ctx, rules))

	found, err := store.FindRules(ctx, NewRuleFilter().WithPagination(2, 0))
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "a", found[0].Property)

	found, err = store.FindRules(ctx, NewRuleFilter().WithPagination(2, 2))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "c", found[0].Property)

	found, err = store.FindRules(ctx, NewRuleFilter().WithPagination(2, 5))
	require.NoError(t, err)
	assert.Empty(t, found)
}

// TestMemoryStoreDeleteRule tests removing rules by ID
func TestMemoryStoreDeleteRule(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	rule := NewRule("Album", All, AccessRead, PermissionAllow, Everyone())
	require.NoError(t, store.SaveRule(ctx, &rule))

	require.NoError(t, store.DeleteRule(ctx, rule.ID))

	count, err := store.CountRules(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	err = store.DeleteRule(ctx, rule.ID)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

// TestMemoryStoreDeleteRulesFor tests removing every rule of a resource
func TestMemoryStoreDeleteRulesFor(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	rules := []Rule{
		NewRule("Album", "a", AccessRead, PermissionAllow, Everyone()),
		NewRule("Album", "b", AccessWrite, PermissionDeny, Everyone()),
		NewRule("Photo", All, AccessRead, PermissionAllow, Everyone()),
	}
	require.NoError(t, store.SaveRules(ctx, rules))

	removed, err := store.DeleteRulesFor(ctx, "Album")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	count, err := store.CountRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	removed, err = store.DeleteRulesFor(ctx, "Album")
	require.NoError(t, err)
	assert.Zero(t, removed)
}

// TestMemoryStoreScopes tests scope CRUD and upsert-by-name
func TestMemoryStoreScopes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.FindScope(ctx, "read-only")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	scope := Scope{Name: "read-only", Description: "read everything"}
	require.NoError(t, store.SaveScope(ctx, &scope))
	assert.NotEmpty(t, scope.ID)

	found, err := store.FindScope(ctx, "read-only")
	require.NoError(t, err)
	assert.Equal(t, "read everything", found.Description)

	// Saving the same name updates in place and keeps the ID.
	update := Scope{Name: "read-only", Description: "reads"}
	require.NoError(t, store.SaveScope(ctx, &update))
	assert.Equal(t, scope.ID, update.ID)

	found, err = store.FindScope(ctx, "read-only")
	require.NoError(t, err)
	assert.Equal(t, "reads", found.Description)

	require.NoError(t, store.DeleteScope(ctx, "read-only"))
	err = store.DeleteScope(ctx, "read-only")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

// TestMemoryStoreMemberships tests granting, querying and revoking roles
func TestMemoryStoreMemberships(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	alice := UserPrincipal("alice")
	bob := UserPrincipal("bob")

	member, err := store.IsMember(ctx, "editor", alice)
	require.NoError(t, err)
	assert.False(t, member)

	require.NoError(t, store.Grant(ctx, "editor", alice))
	require.NoError(t, store.Grant(ctx, "editor", bob))
	require.NoError(t, store.Grant(ctx, "admin", alice))

	// Granting twice is a no-op.
	require.NoError(t, store.Grant(ctx, "editor", alice))

	member, err = store.IsMember(ctx, "editor", alice)
	require.NoError(t, err)
	assert.True(t, member)

	memberships, err := store.FindMemberships(ctx, alice)
	require.NoError(t, err)
	roles := make([]string, 0, len(memberships))
	for _, m := range memberships {
		roles = append(roles, m.Role)
		assert.Equal(t, alice, m.Principal())
	}
	assert.ElementsMatch(t, []string{"editor", "admin"}, roles)

	members, err := store.MembersOf(ctx, "editor")
	require.NoError(t, err)
	ids := make([]string, 0, len(members))
	for _, m := range members {
		assert.Equal(t, "editor", m.Role)
		ids = append(ids, m.PrincipalID)
	}
	assert.ElementsMatch(t, []string{"alice", "bob"}, ids)

	require.NoError(t, store.Revoke(ctx, "editor", alice))
	member, err = store.IsMember(ctx, "editor", alice)
	require.NoError(t, err)
	assert.False(t, member)

	err = store.Revoke(ctx, "editor", alice)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "principal does not hold this role")
}

// TestMemoryStoreDecisionLog tests appending and querying logged decisions
func TestMemoryStoreDecisionLog(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	entries := []*DecisionEntry{
		{Principal: UserPrincipal("u-1"), Resource: "Album", Property: "total", AccessKind: AccessWrite, Permission: PermissionAudit},
		{Principal: UserPrincipal("u-2"), Resource: "Album", Property: "salary", AccessKind: AccessRead, Permission: PermissionAlarm},
		{Principal: UserPrincipal("u-1"), Resource: "Photo", Property: All, AccessKind: AccessRead, Permission: PermissionAudit},
	}
	for _, entry := range entries {
		require.NoError(t, store.LogDecision(ctx, entry))
	}

	// Newest first.
	records, err := store.GetDecisionLog(ctx, NewDecisionLogFilter())
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Photo", records[0].Resource)
	assert.Equal(t, "salary", records[1].Property)
	assert.Equal(t, "total", records[2].Property)
	assert.NotEmpty(t, records[0].ID)

	// Principal filter.
	records, err = store.GetDecisionLog(ctx, NewDecisionLogFilter().WithPrincipal(UserPrincipal("u-1")))
	require.NoError(t, err)
	assert.Len(t, records, 2)

	// Resource filter.
	records, err = store.GetDecisionLog(ctx, NewDecisionLogFilter().WithResource("Album"))
	require.NoError(t, err)
	assert.Len(t, records, 2)

	// Outcome filter.
	records, err = store.GetDecisionLog(ctx, NewDecisionLogFilter().WithPermission(PermissionAlarm))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ALARM", records[0].Permission)

	// Limit and offset walk from the newest entry backwards.
	records, err = store.GetDecisionLog(ctx, NewDecisionLogFilter().WithLimit(1))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Photo", records[0].Resource)

	records, err = store.GetDecisionLog(ctx, NewDecisionLogFilter().WithLimit(1).WithOffset(1))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "salary", records[0].Property)

	records, err = store.GetDecisionLog(ctx, NewDecisionLogFilter().WithOffset(10))
	require.NoError(t, err)
	assert.Empty(t, records)
}
