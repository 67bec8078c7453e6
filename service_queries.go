package aclkit

import (
	"context"
)

// ============================================================================
// DATA RETRIEVAL
// ============================================================================

// RulesFor retrieves all stored rules targeting a principal.
func (s *Service) RulesFor(ctx context.Context, p Principal) ([]Rule, error) {
	return s.store.FindRules(ctx, RuleFilter{Principals: []Principal{p}})
}

// RulesForResource retrieves all stored rules affecting a resource,
// including wildcard rules that apply to every resource.
func (s *Service) RulesForResource(ctx context.Context, resource string) ([]Rule, error) {
	return s.store.FindRules(ctx, RuleFilter{Resource: resource})
}

// RolesOf retrieves the stored roles a principal holds. Dynamic roles are
// not included; they exist only per request.
func (s *Service) RolesOf(ctx context.Context, p Principal) ([]string, error) {
	members, err := s.members()
	if err != nil {
		return nil, err
	}

	memberships, err := members.FindMemberships(ctx, p)
	if err != nil {
		return nil, err
	}

	roles := make([]string, 0, len(memberships))
	for _, m := range memberships {
		roles = append(roles, m.Role)
	}
	return roles, nil
}

// PrincipalsWithRole retrieves every principal holding a stored role.
func (s *Service) PrincipalsWithRole(ctx context.Context, role string) ([]Principal, error) {
	members, err := s.members()
	if err != nil {
		return nil, err
	}

	memberships, err := members.MembersOf(ctx, role)
	if err != nil {
		return nil, err
	}

	principals := make([]Principal, 0, len(memberships))
	for _, m := range memberships {
		principals = append(principals, NewPrincipal(m.PrincipalType, m.PrincipalID))
	}
	return principals, nil
}

// DecisionLog retrieves recorded decisions matching the filter.
//
// Example:
//
//	filter := aclkit.NewDecisionLogFilter().
//	    WithResource("Album").
//	    WithPermission(aclkit.PermissionAlarm)
//	records, err := service.DecisionLog(ctx, filter)
func (s *Service) DecisionLog(ctx context.Context, filter DecisionLogFilter) ([]DecisionRecord, error) {
	reader, ok := s.store.(DecisionLogReader)
	if !ok {
		return nil, NewError(ErrStore, "store does not support decision log queries")
	}
	return reader.GetDecisionLog(ctx, filter)
}

// ============================================================================
// CONVENIENCE CHECKS
// ============================================================================

// Can reports whether a principal may perform an access kind on a resource.
// Errors read as "no".
//
// Example:
//
//	if service.Can(ctx, aclkit.UserPrincipal("u-1"), "Album", aclkit.AccessRead) {
//	    // Show albums
//	}
func (s *Service) Can(ctx context.Context, p Principal, resource string, kind AccessKind) bool {
	resolved, err := s.CheckPermission(ctx, p, NewAccessRequest(resource, All, kind))
	if err != nil {
		return false
	}
	return resolved.Allowed()
}

// IsInRole reports whether the given principals satisfy a role. Errors read
// as "no".
func (s *Service) IsInRole(ctx context.Context, role string, principals ...Principal) bool {
	member, err := s.roles.IsInRole(ctx, role, &AccessContext{Principals: principals})
	if err != nil {
		return false
	}
	return member
}
