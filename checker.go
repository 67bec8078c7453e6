package aclkit

import "context"

// Checker provides permission checking for one subject: a fixed set of
// principals evaluated against the service. It is typically created by the
// Service and stored in context for use in handlers.
type Checker struct {
	principals []Principal
	service    *Service
}

// NewChecker creates a Checker for a set of principals.
func NewChecker(service *Service, principals ...Principal) *Checker {
	return &Checker{
		principals: principals,
		service:    service,
	}
}

// CheckerFor creates a Checker bound to this service.
//
// Example:
//
//	checker := service.CheckerFor(aclkit.UserPrincipal("u-1"))
//	if checker.Can(ctx, "Album", "*", aclkit.AccessRead) {
//	    // proceed
//	}
func (s *Service) CheckerFor(principals ...Principal) *Checker {
	return NewChecker(s, principals...)
}

// CheckerForToken creates a Checker for the principals a token vouches for.
func (s *Service) CheckerForToken(token *AccessToken) *Checker {
	if token == nil {
		return NewChecker(s)
	}
	return NewChecker(s, token.Principals()...)
}

// CheckerFromContext creates a Checker from the principals stored in
// context by the authentication layer.
func (s *Service) CheckerFromContext(ctx context.Context) (*Checker, error) {
	principals := PrincipalsFromContext(ctx)
	if len(principals) == 0 {
		return nil, ErrNoPrincipal
	}
	return NewChecker(s, principals...), nil
}

// Principals returns the principals this checker evaluates for.
func (c *Checker) Principals() []Principal {
	return c.principals
}

// UserID returns the ID of the first USER principal, or "" if none.
func (c *Checker) UserID() string {
	for _, p := range c.principals {
		if p.Type == PrincipalUser {
			return p.ID
		}
	}
	return ""
}

// IsAnonymous returns true if the checker carries no user or application.
func (c *Checker) IsAnonymous() bool {
	for _, p := range c.principals {
		if (p.Type == PrincipalUser || p.Type == PrincipalApp) && p.ID != "" {
			return false
		}
	}
	return true
}

// Resolve evaluates an operation and returns the resolved request, with a
// DEFAULT outcome substituted by the resource's default permission.
func (c *Checker) Resolve(ctx context.Context, resource, resourceID, property string, kind AccessKind) (AccessRequest, error) {
	acc := NewAccessContext(resource, property, kind)
	acc.ResourceID = resourceID
	for _, p := range c.principals {
		acc.AddPrincipal(p)
	}

	resolved, err := c.service.CheckAccess(ctx, acc)
	if err != nil {
		return resolved, err
	}
	if resolved.Permission == PermissionDefault {
		resolved.Permission = c.service.registry.DefaultPermission(resource)
	}
	return resolved, nil
}

// Can checks if the subject may perform an operation. Evaluation failures
// read as "no".
//
// Example:
//
//	if checker.Can(ctx, "Album", "title", aclkit.AccessWrite) {
//	    // User may change titles
//	}
func (c *Checker) Can(ctx context.Context, resource, property string, kind AccessKind) bool {
	return c.CanAccess(ctx, resource, "", property, kind)
}

// CanAccess checks an operation pinned to a resource instance, so
// ownership-based rules apply.
//
// Example:
//
//	if checker.CanAccess(ctx, "Album", albumID, "*", aclkit.AccessWrite) {
//	    // User may modify this album
//	}
func (c *Checker) CanAccess(ctx context.Context, resource, resourceID, property string, kind AccessKind) bool {
	resolved, err := c.Resolve(ctx, resource, resourceID, property, kind)
	if err != nil {
		return false
	}
	return resolved.Allowed()
}

// CanRead checks read access to a resource.
func (c *Checker) CanRead(ctx context.Context, resource string) bool {
	return c.Can(ctx, resource, All, AccessRead)
}

// CanWrite checks write access to a resource.
func (c *Checker) CanWrite(ctx context.Context, resource string) bool {
	return c.Can(ctx, resource, All, AccessWrite)
}

// CanInvoke checks access to a named resource method, deriving the access
// kind from the registry's method mapping.
//
// Example:
//
//	if checker.CanInvoke(ctx, "Album", "publish") {
//	    // "publish" maps to EXECUTE unless the resource overrides it
//	}
func (c *Checker) CanInvoke(ctx context.Context, resource, method string) bool {
	kind := c.service.registry.AccessKindForMethod(resource, method)
	return c.Can(ctx, resource, method, kind)
}

// Require checks an operation and returns ErrAccessDenied when it is not
// permitted. Evaluation failures are returned as-is.
func (c *Checker) Require(ctx context.Context, resource, property string, kind AccessKind) error {
	return c.RequireAccess(ctx, resource, "", property, kind)
}

// RequireAccess checks an operation pinned to a resource instance and
// returns ErrAccessDenied when it is not permitted.
func (c *Checker) RequireAccess(ctx context.Context, resource, resourceID, property string, kind AccessKind) error {
	resolved, err := c.Resolve(ctx, resource, resourceID, property, kind)
	if err != nil {
		return err
	}
	if !resolved.Allowed() {
		denied := NewError(ErrAccessDenied, "").
			WithResource(resource, resolved.Property).
			WithAccessKind(resolved.AccessKind)
		if len(c.principals) > 0 {
			denied = denied.WithPrincipal(c.principals[0])
		}
		return denied
	}
	return nil
}

// IsInRole checks if the subject belongs to a role. Resolver failures read
// as "no".
func (c *Checker) IsInRole(ctx context.Context, role string) bool {
	acc := &AccessContext{Principals: c.principals}
	in, err := c.service.roles.IsInRole(ctx, role, acc)
	if err != nil {
		return false
	}
	return in
}

// HasAnyRole checks if the subject belongs to any of the roles.
func (c *Checker) HasAnyRole(ctx context.Context, roles ...string) bool {
	for _, role := range roles {
		if c.IsInRole(ctx, role) {
			return true
		}
	}
	return false
}

// HasAllRoles checks if the subject belongs to all of the roles.
func (c *Checker) HasAllRoles(ctx context.Context, roles ...string) bool {
	for _, role := range roles {
		if !c.IsInRole(ctx, role) {
			return false
		}
	}
	return true
}
