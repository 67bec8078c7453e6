package aclkit

import (
	"context"
	"strings"
	"time"
)

// ============================================================================
// PERMISSION CHECKING
// ============================================================================

// CheckPermission decides what a single principal may do. Static rules from
// the registry resolve first and a static DENY rejects without touching the
// store; otherwise stored rules for the principal join the candidate set and
// the combined set resolves. A DEFAULT outcome is substituted with the
// resource's default permission.
//
// Example:
//
//	resolved, err := service.CheckPermission(ctx, aclkit.UserPrincipal("u-1"),
//	    aclkit.NewAccessRequest("Album", "title", aclkit.AccessRead))
//	if err == nil && resolved.Allowed() {
//	    // proceed
//	}
func (s *Service) CheckPermission(ctx context.Context, principal Principal, req AccessRequest) (AccessRequest, error) {
	start := time.Now()
	defer s.observeCheck("check_permission", start)

	req, err := normalizeRequest(req)
	if err != nil {
		s.checkFailed(err)
		return req, err
	}
	if principal.Type == "" {
		err := NewError(ErrInvalidRequest, "principal is required").WithResource(req.Resource, req.Property)
		s.checkFailed(err)
		return req, err
	}

	static := s.staticRulesFor(req, principal)
	resolved := ResolvePermission(static, req)
	if resolved.Permission == PermissionDeny {
		// Static DENY rejects without a store round trip
		s.finishDecision(ctx, principal, "", resolved)
		return resolved, nil
	}

	stored, err := s.store.FindRules(ctx, ForRequest(req, principal))
	if err != nil {
		s.checkFailed(err)
		return req, err
	}

	resolved = ResolvePermission(append(static, stored...), req)
	if resolved.Permission == PermissionDefault {
		resolved.Permission = s.registry.DefaultPermission(req.Resource)
	}

	s.finishDecision(ctx, principal, "", resolved)
	return resolved, nil
}

// CheckScopePermission decides what a set of named scopes may do. Every
// named scope must exist: a missing scope fails the check instead of
// silently weakening it.
//
// Example:
//
//	resolved, err := service.CheckScopePermission(ctx, token.Scopes,
//	    aclkit.NewAccessRequest("Album", "*", aclkit.AccessRead))
func (s *Service) CheckScopePermission(ctx context.Context, scopes []string, req AccessRequest) (AccessRequest, error) {
	start := time.Now()
	defer s.observeCheck("check_scope_permission", start)

	req, err := normalizeRequest(req)
	if err != nil {
		s.checkFailed(err)
		return req, err
	}

	principals := make([]Principal, 0, len(scopes))
	for _, name := range scopes {
		scope, err := s.store.FindScope(ctx, name)
		if err != nil {
			s.checkFailed(err)
			return req, err
		}
		principals = append(principals, scope.Principal())
	}

	gate := ScopePrincipal(strings.Join(scopes, ","))

	static := s.staticRulesFor(req, principals...)
	resolved := ResolvePermission(static, req)
	if resolved.Permission == PermissionDeny {
		s.finishDecision(ctx, gate, "", resolved)
		return resolved, nil
	}

	var stored []Rule
	if len(principals) > 0 {
		stored, err = s.store.FindRules(ctx, ForRequest(req, principals...))
		if err != nil {
			s.checkFailed(err)
			return req, err
		}
	}

	resolved = ResolvePermission(append(static, stored...), req)
	if resolved.Permission == PermissionDefault {
		resolved.Permission = s.registry.DefaultPermission(req.Resource)
	}

	s.finishDecision(ctx, gate, "", resolved)
	return resolved, nil
}

// staticRulesFor returns the registry's static rules for the request that
// target one of the given principals.
func (s *Service) staticRulesFor(req AccessRequest, principals ...Principal) []Rule {
	candidates := s.registry.StaticRules(req.Resource, req.Property)

	var rules []Rule
	for _, rule := range candidates {
		for _, p := range principals {
			if rule.AppliesTo(p) {
				rules = append(rules, rule)
				break
			}
		}
	}
	return rules
}

// finishDecision records the outcome on metrics, the decision log and the
// debug log.
func (s *Service) finishDecision(ctx context.Context, principal Principal, resourceID string, resolved AccessRequest) {
	s.metrics.RecordDecision(resolved.Permission)
	s.monitor.record(resolved.Permission)
	s.logDecision(ctx, principal, resourceID, resolved)
	s.logger.Debug("permission resolved",
		"principal", principal.String(),
		"resource", resolved.Resource,
		"property", resolved.Property,
		"access_kind", string(resolved.AccessKind),
		"permission", string(resolved.Permission))
}

func normalizeRequest(req AccessRequest) (AccessRequest, error) {
	if req.Resource == "" {
		return req, NewError(ErrInvalidRequest, "resource is required")
	}
	if req.Property == "" {
		req.Property = All
	}
	if req.AccessKind == "" {
		req.AccessKind = AccessAll
	}
	return req, nil
}
