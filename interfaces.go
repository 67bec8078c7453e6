package aclkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// Database defines the database operations interface for dependency injection
type Database interface {
	dbkit.IDB
}

// RuleStore defines the read side permission checks depend on
type RuleStore interface {
	FindRules(ctx context.Context, filter RuleFilter) ([]Rule, error)
	FindScope(ctx context.Context, name string) (*Scope, error)
}

// RuleWriter defines rule and scope management operations
type RuleWriter interface {
	SaveRule(ctx context.Context, rule *Rule) error
	SaveRules(ctx context.Context, rules []Rule) error
	DeleteRule(ctx context.Context, id string) error
	SaveScope(ctx context.Context, scope *Scope) error
	DeleteScope(ctx context.Context, name string) error
}

// MembershipStore defines stored role membership operations
type MembershipStore interface {
	IsMember(ctx context.Context, role string, p Principal) (bool, error)
	FindMemberships(ctx context.Context, p Principal) ([]RoleMembership, error)
	MembersOf(ctx context.Context, role string) ([]RoleMembership, error)
	Grant(ctx context.Context, role string, p Principal) error
	Revoke(ctx context.Context, role string, p Principal) error
}

// RoleResolver decides whether the subject of an access check belongs to a
// role, through a dynamic resolver or stored memberships
type RoleResolver interface {
	IsInRole(ctx context.Context, role string, acc *AccessContext) (bool, error)
}

// DecisionLogger records AUDIT and ALARM outcomes
type DecisionLogger interface {
	LogDecision(ctx context.Context, entry *DecisionEntry) error
}

// DecisionLogReader queries recorded decisions
type DecisionLogReader interface {
	GetDecisionLog(ctx context.Context, filter DecisionLogFilter) ([]DecisionRecord, error)
}

// PermissionChecker is the decision surface enforcement layers build on
type PermissionChecker interface {
	CheckPermission(ctx context.Context, principal Principal, req AccessRequest) (AccessRequest, error)
	CheckAccess(ctx context.Context, acc *AccessContext) (AccessRequest, error)
	CheckScopePermission(ctx context.Context, scopes []string, req AccessRequest) (AccessRequest, error)
	CheckAccessForToken(ctx context.Context, token *AccessToken, acc *AccessContext) (bool, error)
}

// HealthMonitor defines the health monitoring interface
type HealthMonitor interface {
	Health(ctx context.Context) dbkit.HealthStatus
	IsHealthy(ctx context.Context) bool
	Ping(ctx context.Context) error
	GetPoolStats() dbkit.PoolStats
}
