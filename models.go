package aclkit

import (
	"time"

	"github.com/uptrace/bun"
)

// Rule is one access-control entry: it grants or restricts a permission for
// a principal on a resource, a property of it, or a kind of access to it.
// Any of the three target dimensions can be the "*" wildcard.
type Rule struct {
	bun.BaseModel `bun:"table:acl_rules,alias:acl"`

	ID         string     `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Resource   string     `bun:"resource,notnull"`              // Can be "*" for wildcard
	Property   string     `bun:"property,notnull,default:'*'"`  // Can be "*" for wildcard
	AccessKind AccessKind `bun:"access_kind,notnull,default:'*'"`
	Permission Permission `bun:"permission,notnull"`

	// Who the rule applies to
	PrincipalType PrincipalType `bun:"principal_type,notnull"`
	PrincipalID   string        `bun:"principal_id,notnull"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// NewRule creates a rule with empty target dimensions normalized to the
// wildcard.
func NewRule(resource, property string, kind AccessKind, permission Permission, principal Principal) Rule {
	if resource == "" {
		resource = All
	}
	if property == "" {
		property = All
	}
	if kind == "" {
		kind = AccessAll
	}
	return Rule{
		Resource:      resource,
		Property:      property,
		AccessKind:    kind,
		Permission:    permission,
		PrincipalType: principal.Type,
		PrincipalID:   principal.ID,
	}
}

// Principal returns the subject the rule applies to.
func (r Rule) Principal() Principal {
	return Principal{Type: r.PrincipalType, ID: r.PrincipalID}
}

// AppliesTo reports whether the rule targets the given principal.
func (r Rule) AppliesTo(p Principal) bool {
	return r.PrincipalType == p.Type && r.PrincipalID == p.ID
}

// EffectivePermission returns the rule's permission, with the zero value
// reading as DEFAULT.
func (r Rule) EffectivePermission() Permission {
	if r.Permission == "" {
		return PermissionDefault
	}
	return r.Permission
}

// String returns a string representation of the rule.
func (r Rule) String() string {
	return r.Principal().String() + "@" + r.Resource + "#" + r.Property +
		"[" + string(r.AccessKind) + "]=" + string(r.EffectivePermission())
}

// Scope is a named bundle of delegated authority, typically granted to an
// access token. Rules target a scope through a SCOPE principal carrying the
// scope's name.
type Scope struct {
	bun.BaseModel `bun:"table:acl_scopes,alias:sc"`

	ID          string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Name        string    `bun:"name,notnull,unique"`
	Description string    `bun:"description"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Principal returns the SCOPE principal rules use to target this scope.
func (s Scope) Principal() Principal {
	return Principal{Type: PrincipalScope, ID: s.Name}
}

// RoleMembership maps a user or application to a stored role.
// A principal can hold multiple roles (permissions are UNION).
type RoleMembership struct {
	bun.BaseModel `bun:"table:acl_role_memberships,alias:arm"`

	ID            string        `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Role          string        `bun:"role,notnull"`
	PrincipalType PrincipalType `bun:"principal_type,notnull"` // "USER" or "APP"
	PrincipalID   string        `bun:"principal_id,notnull"`
	CreatedAt     time.Time     `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt     time.Time     `bun:"updated_at,notnull,default:current_timestamp"`
}

// Principal returns the member subject.
func (m RoleMembership) Principal() Principal {
	return Principal{Type: m.PrincipalType, ID: m.PrincipalID}
}

// DecisionRecord stores one AUDIT or ALARM outcome for compliance and
// debugging.
type DecisionRecord struct {
	bun.BaseModel `bun:"table:acl_decision_log,alias:adl"`

	ID        string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Timestamp time.Time `bun:"timestamp,notnull,default:current_timestamp"`

	// Who triggered the decision
	PrincipalType string `bun:"principal_type,notnull"`
	PrincipalID   string `bun:"principal_id,notnull"`

	// What was decided
	Resource   string `bun:"resource,notnull"`
	ResourceID string `bun:"resource_id"`
	Property   string `bun:"property,notnull"`
	AccessKind string `bun:"access_kind,notnull"`
	Permission string `bun:"permission,notnull"` // "AUDIT" or "ALARM"

	// Request metadata for forensics
	IPAddress string `bun:"ip_address"`
	UserAgent string `bun:"user_agent"`
	RequestID string `bun:"request_id"`

	// Additional context (JSON)
	Metadata map[string]any `bun:"metadata,type:jsonb"`
}

// DecisionEntry is used to create new decision log entries.
type DecisionEntry struct {
	Principal  Principal
	Resource   string
	ResourceID string
	Property   string
	AccessKind AccessKind
	Permission Permission
	IPAddress  string
	UserAgent  string
	RequestID  string
	Metadata   map[string]any
}

// ToModel converts a DecisionEntry to a DecisionRecord model.
func (e *DecisionEntry) ToModel() *DecisionRecord {
	return &DecisionRecord{
		PrincipalType: string(e.Principal.Type),
		PrincipalID:   e.Principal.ID,
		Resource:      e.Resource,
		ResourceID:    e.ResourceID,
		Property:      e.Property,
		AccessKind:    string(e.AccessKind),
		Permission:    string(e.Permission),
		IPAddress:     e.IPAddress,
		UserAgent:     e.UserAgent,
		RequestID:     e.RequestID,
		Metadata:      e.Metadata,
		Timestamp:     time.Now(),
	}
}
