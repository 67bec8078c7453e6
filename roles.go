package aclkit

import (
	"context"
	"fmt"
	"sync"
)

// Built-in dynamic role names. These roles are resolved from the access
// context itself, never from stored memberships.
const (
	// RoleEveryone matches every request.
	RoleEveryone = "$everyone"

	// RoleAuthenticated matches requests carrying a user or application.
	RoleAuthenticated = "$authenticated"

	// RoleUnauthenticated matches requests carrying neither.
	RoleUnauthenticated = "$unauthenticated"

	// RoleOwner matches the user owning the resource instance under check.
	RoleOwner = "$owner"
)

// Principal constructors for the common cases.

// UserPrincipal returns a USER principal.
func UserPrincipal(id string) Principal {
	return Principal{Type: PrincipalUser, ID: id}
}

// AppPrincipal returns an APP principal.
func AppPrincipal(id string) Principal {
	return Principal{Type: PrincipalApp, ID: id}
}

// RolePrincipal returns a ROLE principal.
func RolePrincipal(name string) Principal {
	return Principal{Type: PrincipalRole, ID: name}
}

// ScopePrincipal returns a SCOPE principal.
func ScopePrincipal(name string) Principal {
	return Principal{Type: PrincipalScope, ID: name}
}

// Everyone returns the ROLE principal rules use to target every request.
func Everyone() Principal {
	return RolePrincipal(RoleEveryone)
}

// Authenticated returns the ROLE principal for authenticated requests.
func Authenticated() Principal {
	return RolePrincipal(RoleAuthenticated)
}

// Unauthenticated returns the ROLE principal for anonymous requests.
func Unauthenticated() Principal {
	return RolePrincipal(RoleUnauthenticated)
}

// Owner returns the ROLE principal for the owning user.
func Owner() Principal {
	return RolePrincipal(RoleOwner)
}

// RoleMatcher decides whether the subject of an access check belongs to a
// dynamic role.
type RoleMatcher func(ctx context.Context, acc *AccessContext) (bool, error)

// OwnershipFn reports whether a user owns a resource instance. It backs the
// $owner role.
type OwnershipFn func(ctx context.Context, userID, resource, resourceID string) (bool, error)

// Roles resolves role membership. Dynamic matchers (the built-in roles plus
// any registered with Register) are consulted first; roles without a matcher
// fall back to the membership store when one is attached.
type Roles struct {
	mu        sync.RWMutex
	matchers  map[string]RoleMatcher
	store     MembershipStore
	ownership OwnershipFn
}

// NewRoles creates a role resolver with the built-in dynamic roles
// registered.
func NewRoles() *Roles {
	r := &Roles{
		matchers: make(map[string]RoleMatcher),
	}

	r.Register(RoleEveryone, func(_ context.Context, _ *AccessContext) (bool, error) {
		return true, nil
	})
	r.Register(RoleAuthenticated, func(_ context.Context, acc *AccessContext) (bool, error) {
		return isAuthenticated(acc), nil
	})
	r.Register(RoleUnauthenticated, func(_ context.Context, acc *AccessContext) (bool, error) {
		return !isAuthenticated(acc), nil
	})
	r.Register(RoleOwner, r.matchOwner)

	return r
}

// WithMembershipStore attaches a store consulted for roles that have no
// dynamic matcher.
func (r *Roles) WithMembershipStore(store MembershipStore) *Roles {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store = store
	return r
}

// WithOwnership installs the ownership lookup backing the $owner role.
// Without one, $owner never matches.
func (r *Roles) WithOwnership(fn OwnershipFn) *Roles {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ownership = fn
	return r
}

// Register adds a dynamic role matcher, replacing any existing matcher for
// the role.
//
// Example:
//
//	roles.Register("$weekend", func(ctx context.Context, acc *AccessContext) (bool, error) {
//	    day := time.Now().Weekday()
//	    return day == time.Saturday || day == time.Sunday, nil
//	})
func (r *Roles) Register(role string, matcher RoleMatcher) *Roles {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matchers[role] = matcher
	return r
}

// IsInRole reports whether the subject of the access check belongs to the
// role. Matcher and store failures surface as role resolver errors.
func (r *Roles) IsInRole(ctx context.Context, role string, acc *AccessContext) (bool, error) {
	r.mu.RLock()
	matcher, hasMatcher := r.matchers[role]
	store := r.store
	r.mu.RUnlock()

	if hasMatcher {
		in, err := matcher(ctx, acc)
		if err != nil {
			return false, NewError(ErrResolver, err.Error()).WithRole(role)
		}
		return in, nil
	}

	if store == nil {
		return false, nil
	}

	for _, p := range acc.Principals {
		if p.Type != PrincipalUser && p.Type != PrincipalApp {
			continue
		}
		member, err := store.IsMember(ctx, role, p)
		if err != nil {
			return false, NewError(ErrResolver, err.Error()).WithRole(role).WithPrincipal(p)
		}
		if member {
			return true, nil
		}
	}
	return false, nil
}

func (r *Roles) matchOwner(ctx context.Context, acc *AccessContext) (bool, error) {
	r.mu.RLock()
	ownership := r.ownership
	r.mu.RUnlock()

	userID := acc.UserID()
	if ownership == nil || userID == "" || acc.ResourceID == "" {
		return false, nil
	}

	owns, err := ownership(ctx, userID, acc.Resource, acc.ResourceID)
	if err != nil {
		return false, fmt.Errorf("ownership lookup for %s/%s: %w", acc.Resource, acc.ResourceID, err)
	}
	return owns, nil
}

func isAuthenticated(acc *AccessContext) bool {
	for _, p := range acc.Principals {
		if (p.Type == PrincipalUser || p.Type == PrincipalApp) && p.ID != "" {
			return true
		}
	}
	return false
}
