package aclkit

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// ============================================================================
// ACCESS EVALUATION
// ============================================================================

// CheckAccess decides what the subject of an access context may do. Every
// rule targeting the requested operation is considered: rules naming one of
// the context's principals apply directly, and ROLE rules apply when the
// membership check succeeds. Membership checks run concurrently and any
// resolver failure fails the evaluation, so a broken resolver can never
// widen access.
//
// Unlike CheckPermission, the outcome is not substituted: when no rule
// decides, the returned permission is DEFAULT and the caller applies its
// own fallback policy.
func (s *Service) CheckAccess(ctx context.Context, acc *AccessContext) (AccessRequest, error) {
	start := time.Now()
	defer s.observeCheck("check_access", start)

	if acc == nil {
		err := NewError(ErrInvalidRequest, "access context is required")
		s.checkFailed(err)
		return AccessRequest{}, err
	}

	req, err := normalizeRequest(acc.Request())
	if err != nil {
		s.checkFailed(err)
		return req, err
	}

	static := s.registry.StaticRules(req.Resource, req.Property)
	stored, err := s.store.FindRules(ctx, RuleFilter{
		Resource:   req.Resource,
		Property:   req.Property,
		AccessKind: req.AccessKind,
	})
	if err != nil {
		s.checkFailed(err)
		return req, err
	}

	candidates := make([]Rule, 0, len(static)+len(stored))
	candidates = append(candidates, static...)
	candidates = append(candidates, stored...)

	effective, err := s.effectiveRules(ctx, acc, candidates)
	if err != nil {
		s.checkFailed(err)
		return req, err
	}

	resolved := ResolvePermission(effective, req)

	s.finishDecision(ctx, contextPrincipal(acc), acc.ResourceID, resolved)
	return resolved, nil
}

// CheckAccessForToken decides whether the bearer of a token may perform the
// operation described by the context. The token's principals join the
// context before evaluation. The token is required; only a DENY outcome
// rejects.
//
// Example:
//
//	acc := aclkit.NewAccessContext("Album", "*", aclkit.AccessRead)
//	ok, err := service.CheckAccessForToken(ctx, token, acc)
func (s *Service) CheckAccessForToken(ctx context.Context, token *AccessToken, acc *AccessContext) (bool, error) {
	start := time.Now()
	defer s.observeCheck("check_access_for_token", start)

	if token == nil {
		err := NewError(ErrInvalidRequest, "access token is required")
		s.checkFailed(err)
		return false, err
	}
	if acc == nil {
		err := NewError(ErrInvalidRequest, "access context is required")
		s.checkFailed(err)
		return false, err
	}

	for _, p := range token.Principals() {
		acc.AddPrincipal(p)
	}

	resolved, err := s.CheckAccess(ctx, acc)
	if err != nil {
		return false, err
	}
	return resolved.Allowed(), nil
}

// effectiveRules keeps the candidates that apply to the context: rules
// naming one of its principals directly, plus ROLE rules whose membership
// check succeeds. Each distinct role is resolved once, concurrently; the
// surviving rules keep their candidate order so resolution tie-breaks stay
// deterministic.
func (s *Service) effectiveRules(ctx context.Context, acc *AccessContext, candidates []Rule) ([]Rule, error) {
	include := make([]bool, len(candidates))
	roleSlots := make(map[string][]int)

	for i, rule := range candidates {
		direct := false
		for _, p := range acc.Principals {
			if rule.AppliesTo(p) {
				direct = true
				break
			}
		}
		if direct {
			include[i] = true
			continue
		}
		if rule.PrincipalType == PrincipalRole {
			roleSlots[rule.PrincipalID] = append(roleSlots[rule.PrincipalID], i)
		}
	}

	if len(roleSlots) > 0 {
		roles := make([]string, 0, len(roleSlots))
		for role := range roleSlots {
			roles = append(roles, role)
		}
		members := make([]bool, len(roles))

		g, gctx := errgroup.WithContext(ctx)
		for i, role := range roles {
			i, role := i, role
			g.Go(func() error {
				member, err := s.roles.IsInRole(gctx, role, acc)
				if err != nil {
					return err
				}
				s.metrics.RecordRoleCheck(role, member)
				members[i] = member
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		for i, role := range roles {
			if !members[i] {
				continue
			}
			for _, slot := range roleSlots[role] {
				include[slot] = true
			}
		}
	}

	var effective []Rule
	for i, ok := range include {
		if ok {
			effective = append(effective, candidates[i])
		}
	}
	return effective, nil
}

// contextPrincipal picks the representative principal recorded with logged
// decisions.
func contextPrincipal(acc *AccessContext) Principal {
	if len(acc.Principals) > 0 {
		return acc.Principals[0]
	}
	return Principal{}
}
