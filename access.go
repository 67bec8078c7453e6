package aclkit

import "strings"

// All is the wildcard sentinel. A rule dimension set to All matches any
// concrete value; a request dimension set to All asks about every value.
const All = "*"

// AccessKind classifies how a resource is being accessed.
type AccessKind string

const (
	// AccessAll is the wildcard access kind, not a real kind of access.
	AccessAll AccessKind = All

	AccessRead    AccessKind = "READ"
	AccessWrite   AccessKind = "WRITE"
	AccessExecute AccessKind = "EXECUTE"
)

// IsWildcard returns true if this kind matches any access.
func (k AccessKind) IsWildcard() bool {
	return k == AccessAll || k == ""
}

// Permission is the effect a rule carries and the outcome a check resolves to.
type Permission string

const (
	// PermissionDefault means no rule decided; callers substitute their own
	// fallback policy.
	PermissionDefault Permission = "DEFAULT"

	// PermissionAllow grants the operation.
	PermissionAllow Permission = "ALLOW"

	// PermissionAlarm grants the operation but raises an alarm.
	PermissionAlarm Permission = "ALARM"

	// PermissionAudit grants the operation and records it for audit.
	PermissionAudit Permission = "AUDIT"

	// PermissionDeny rejects the operation.
	PermissionDeny Permission = "DENY"
)

// Strength returns the position of the permission in the total strength
// order used for tie-breaking: DEFAULT < ALLOW < ALARM < AUDIT < DENY.
// Unknown values rank as DEFAULT.
func (p Permission) Strength() int {
	switch p {
	case PermissionAllow:
		return 1
	case PermissionAlarm:
		return 2
	case PermissionAudit:
		return 3
	case PermissionDeny:
		return 4
	default:
		return 0
	}
}

// Stronger reports whether p outranks other in the strength order.
func (p Permission) Stronger(other Permission) bool {
	return p.Strength() > other.Strength()
}

// PrincipalType identifies what kind of subject a principal is.
type PrincipalType string

const (
	PrincipalUser  PrincipalType = "USER"
	PrincipalApp   PrincipalType = "APP"
	PrincipalRole  PrincipalType = "ROLE"
	PrincipalScope PrincipalType = "SCOPE"
)

// Principal is an authorization subject: a user, an application, a role, or
// a delegated scope. Principals are immutable values; two principals are the
// same subject when both type and stringified ID are equal.
type Principal struct {
	Type PrincipalType
	ID   string
}

// NewPrincipal creates a new Principal.
func NewPrincipal(t PrincipalType, id string) Principal {
	return Principal{Type: t, ID: id}
}

// String returns a string representation of the principal.
func (p Principal) String() string {
	return string(p.Type) + ":" + p.ID
}

// Equal reports whether both principals identify the same subject.
func (p Principal) Equal(other Principal) bool {
	return p.Type == other.Type && p.ID == other.ID
}

// AccessRequest describes one requested operation: an access kind on a
// property of a resource. Resolution fills in Permission; the other fields
// are read-only once built.
type AccessRequest struct {
	Resource   string
	Property   string
	AccessKind AccessKind
	Permission Permission
}

// NewAccessRequest builds a request for the given operation. Empty property
// and access kind normalize to the wildcard, an empty permission normalizes
// to DEFAULT.
func NewAccessRequest(resource, property string, kind AccessKind) AccessRequest {
	if property == "" {
		property = All
	}
	if kind == "" {
		kind = AccessAll
	}
	return AccessRequest{
		Resource:   resource,
		Property:   property,
		AccessKind: kind,
		Permission: PermissionDefault,
	}
}

// IsWildcard returns true if the request asks about every property or every
// access kind rather than one concrete operation.
func (r AccessRequest) IsWildcard() bool {
	return r.Property == All || r.AccessKind.IsWildcard()
}

// ExactlyMatches reports whether the rule names precisely this request's
// resource, property and access kind, wildcards included.
func (r AccessRequest) ExactlyMatches(rule Rule) bool {
	return rule.Resource == r.Resource &&
		rule.Property == r.Property &&
		rule.AccessKind == r.AccessKind
}

// Allowed reports whether the resolved permission permits the operation.
// ALARM and AUDIT decisions permit it; only DENY rejects.
func (r AccessRequest) Allowed() bool {
	return r.Permission != PermissionDeny
}

// AccessContext carries everything known about one access check: the full
// set of principals implied by the caller (the user, its application,
// implicit roles such as "everyone") and the operation being attempted,
// optionally pinned to one resource instance. It is built once per check
// and read-only during evaluation.
type AccessContext struct {
	Principals []Principal
	Resource   string
	ResourceID string
	Property   string
	AccessKind AccessKind
}

// NewAccessContext builds a context for an operation with no principals
// attached yet.
func NewAccessContext(resource, property string, kind AccessKind) *AccessContext {
	return &AccessContext{
		Resource:   resource,
		Property:   property,
		AccessKind: kind,
	}
}

// AddPrincipal appends a principal to the context, skipping duplicates.
func (c *AccessContext) AddPrincipal(p Principal) *AccessContext {
	for _, existing := range c.Principals {
		if existing.Equal(p) {
			return c
		}
	}
	c.Principals = append(c.Principals, p)
	return c
}

// HasPrincipal reports whether the context carries the given principal.
func (c *AccessContext) HasPrincipal(p Principal) bool {
	for _, existing := range c.Principals {
		if existing.Equal(p) {
			return true
		}
	}
	return false
}

// UserID returns the ID of the first USER principal, or "" if none.
func (c *AccessContext) UserID() string {
	for _, p := range c.Principals {
		if p.Type == PrincipalUser {
			return p.ID
		}
	}
	return ""
}

// Request derives the AccessRequest this context asks about.
func (c *AccessContext) Request() AccessRequest {
	return NewAccessRequest(c.Resource, c.Property, c.AccessKind)
}

// String returns a compact representation for logging.
func (c *AccessContext) String() string {
	var sb strings.Builder
	sb.WriteString(c.Resource)
	if c.ResourceID != "" {
		sb.WriteString("/")
		sb.WriteString(c.ResourceID)
	}
	sb.WriteString("#")
	sb.WriteString(c.Property)
	sb.WriteString("[")
	sb.WriteString(string(c.AccessKind))
	sb.WriteString("]")
	return sb.String()
}
