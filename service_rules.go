package aclkit

import (
	"context"
)

// AdminResource is the resource guarding rule administration. When it is
// defined in the registry, every AddRule/RemoveRule/GrantRole/RevokeRole
// call requires the acting principal (from the request context) to hold
// WRITE on it, with the target resource or role as the property. Until the
// resource is defined, administration is ungated so a fresh deployment can
// bootstrap its first rules.
const AdminResource = "ACL"

// ============================================================================
// RULE ADMINISTRATION
// ============================================================================

// AddRule validates and stores a rule. The actor performing the change must
// be allowed to administer rules for the rule's resource.
//
// Example:
//
//	rule := aclkit.NewRule("Album", "*", aclkit.AccessWrite,
//	    aclkit.PermissionAllow, aclkit.RolePrincipal("editor"))
//	err := service.AddRule(ctx, &rule)
func (s *Service) AddRule(ctx context.Context, rule *Rule) error {
	if err := ValidateRule(*rule); err != nil {
		return err
	}

	actor, err := s.requireActor(ctx, rule.Resource)
	if err != nil {
		return err
	}

	writer, err := s.writer()
	if err != nil {
		return err
	}
	if err := writer.SaveRule(ctx, rule); err != nil {
		return err
	}

	s.logChange(ctx, actor, "rule_added", *rule)
	return nil
}

// AddRules validates and stores several rules at once. The actor must be
// allowed to administer every distinct resource the batch touches; the
// store writes the batch in one transaction.
func (s *Service) AddRules(ctx context.Context, rules []Rule) error {
	if len(rules) == 0 {
		return nil
	}

	resources := make(map[string]bool)
	for i := range rules {
		if err := ValidateRule(rules[i]); err != nil {
			return err
		}
		resources[rules[i].Resource] = true
	}

	var actor Principal
	for resource := range resources {
		var err error
		actor, err = s.requireActor(ctx, resource)
		if err != nil {
			return err
		}
	}

	writer, err := s.writer()
	if err != nil {
		return err
	}
	if err := writer.SaveRules(ctx, rules); err != nil {
		return err
	}

	for i := range rules {
		s.logChange(ctx, actor, "rule_added", rules[i])
	}
	return nil
}

// RemoveRule deletes a stored rule by ID.
func (s *Service) RemoveRule(ctx context.Context, id string) error {
	actor, err := s.requireActor(ctx, All)
	if err != nil {
		return err
	}

	writer, err := s.writer()
	if err != nil {
		return err
	}
	if err := writer.DeleteRule(ctx, id); err != nil {
		return err
	}

	s.logChange(ctx, actor, "rule_removed", Rule{ID: id})
	return nil
}

// GrantRole adds a principal to a stored role. Granting an already held
// role is a no-op.
//
// Example:
//
//	err := service.GrantRole(ctx, "editor", aclkit.UserPrincipal("u-1"))
func (s *Service) GrantRole(ctx context.Context, role string, p Principal) error {
	if err := ValidatePrincipal(p); err != nil {
		return err
	}

	actor, err := s.requireActor(ctx, role)
	if err != nil {
		return err
	}

	members, err := s.members()
	if err != nil {
		return err
	}
	if err := members.Grant(ctx, role, p); err != nil {
		return err
	}

	s.logMembershipChange(ctx, actor, "role_granted", role, p)
	return nil
}

// RevokeRole removes a principal from a stored role.
func (s *Service) RevokeRole(ctx context.Context, role string, p Principal) error {
	if err := ValidatePrincipal(p); err != nil {
		return err
	}

	actor, err := s.requireActor(ctx, role)
	if err != nil {
		return err
	}

	members, err := s.members()
	if err != nil {
		return err
	}
	if err := members.Revoke(ctx, role, p); err != nil {
		return err
	}

	s.logMembershipChange(ctx, actor, "role_revoked", role, p)
	return nil
}

// ============================================================================
// INTERNAL HELPERS
// ============================================================================

// requireActor returns the acting principal, enforcing the administration
// gate when the admin resource is defined.
func (s *Service) requireActor(ctx context.Context, target string) (Principal, error) {
	actor, ok := actorFromContext(ctx)
	if s.registry.GetResource(AdminResource) == nil {
		return actor, nil
	}

	if !ok {
		return Principal{}, NewError(ErrNoPrincipal, "rule administration requires an actor in context").
			WithResource(AdminResource, target)
	}

	resolved, err := s.CheckPermission(ctx, actor, NewAccessRequest(AdminResource, target, AccessWrite))
	if err != nil {
		return Principal{}, err
	}
	if !resolved.Allowed() {
		return Principal{}, NewError(ErrAccessDenied, "actor cannot administer rules").
			WithResource(AdminResource, target).
			WithPrincipal(actor)
	}
	return actor, nil
}

// actorFromContext derives the acting principal from the request context,
// preferring the token's user over bare context IDs.
func actorFromContext(ctx context.Context) (Principal, bool) {
	if token := GetToken(ctx); token != nil && token.UserID != "" {
		return UserPrincipal(token.UserID), true
	}
	if userID := GetUserID(ctx); userID != "" {
		return UserPrincipal(userID), true
	}
	if appID := GetAppID(ctx); appID != "" {
		return AppPrincipal(appID), true
	}
	return Principal{}, false
}

func (s *Service) writer() (RuleWriter, error) {
	if w, ok := s.store.(RuleWriter); ok {
		return w, nil
	}
	return nil, NewError(ErrStore, "store does not support rule writes")
}

func (s *Service) members() (MembershipStore, error) {
	if m, ok := s.store.(MembershipStore); ok {
		return m, nil
	}
	return nil, NewError(ErrStore, "store does not support role memberships")
}

// logChange records an administrative rule change in the decision log.
// Failures are logged, never surfaced.
func (s *Service) logChange(ctx context.Context, actor Principal, event string, rule Rule) {
	if s.decisions == nil {
		return
	}

	info := GetRequestInfo(ctx)
	entry := &DecisionEntry{
		Principal:  actor,
		Resource:   rule.Resource,
		Property:   rule.Property,
		AccessKind: rule.AccessKind,
		Permission: rule.Permission,
		IPAddress:  info.IPAddress,
		UserAgent:  info.UserAgent,
		RequestID:  info.RequestID,
		Metadata: map[string]any{
			"event":   event,
			"rule_id": rule.ID,
			"target":  rule.Principal().String(),
		},
	}

	if err := s.decisions.LogDecision(ctx, entry); err != nil {
		s.logger.Warn("decision log write failed", "error", err, "event", event)
	}
}

// logMembershipChange records a grant or revocation in the decision log.
func (s *Service) logMembershipChange(ctx context.Context, actor Principal, event, role string, p Principal) {
	if s.decisions == nil {
		return
	}

	info := GetRequestInfo(ctx)
	entry := &DecisionEntry{
		Principal:  actor,
		Resource:   AdminResource,
		Property:   role,
		AccessKind: AccessWrite,
		Permission: PermissionAllow,
		IPAddress:  info.IPAddress,
		UserAgent:  info.UserAgent,
		RequestID:  info.RequestID,
		Metadata: map[string]any{
			"event":  event,
			"role":   role,
			"target": p.String(),
		},
	}

	if err := s.decisions.LogDecision(ctx, entry); err != nil {
		s.logger.Warn("decision log write failed", "error", err, "event", event)
	}
}
