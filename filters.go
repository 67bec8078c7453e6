package aclkit

import "time"

// RuleFilter provides options for filtering rule queries.
//
// The target dimension filters follow rule-matching semantics: setting
// Resource to "Album" selects rules whose resource is "Album" or "*", and
// likewise for Property and AccessKind. An unset dimension selects rules
// with any value.
type RuleFilter struct {
	// Filter by the principals rules target
	Principals []Principal

	// Filter by target dimensions (value or wildcard)
	Resource   string
	Property   string
	AccessKind AccessKind

	// Pagination. Zero means unlimited: permission checks must see every
	// candidate rule.
	Limit  int
	Offset int
}

// NewRuleFilter creates an empty filter matching every rule.
func NewRuleFilter() RuleFilter {
	return RuleFilter{}
}

// WithPrincipal adds a principal to the filter.
func (f RuleFilter) WithPrincipal(p Principal) RuleFilter {
	f.Principals = append(f.Principals[:len(f.Principals):len(f.Principals)], p)
	return f
}

// WithPrincipals sets the principals filter.
func (f RuleFilter) WithPrincipals(principals ...Principal) RuleFilter {
	f.Principals = principals
	return f
}

// WithResource sets the resource filter.
func (f RuleFilter) WithResource(resource string) RuleFilter {
	f.Resource = resource
	return f
}

// WithProperty sets the property filter.
func (f RuleFilter) WithProperty(property string) RuleFilter {
	f.Property = property
	return f
}

// WithAccessKind sets the access kind filter.
func (f RuleFilter) WithAccessKind(kind AccessKind) RuleFilter {
	f.AccessKind = kind
	return f
}

// WithPagination sets both limit and offset.
func (f RuleFilter) WithPagination(limit, offset int) RuleFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}

// ForRequest builds the filter a permission check runs against the store:
// the given principals plus the request's target dimensions.
func ForRequest(req AccessRequest, principals ...Principal) RuleFilter {
	return RuleFilter{
		Principals: principals,
		Resource:   req.Resource,
		Property:   req.Property,
		AccessKind: req.AccessKind,
	}
}

// DecisionLogFilter provides options for filtering decision log queries.
type DecisionLogFilter struct {
	// Filter by the principal the decision applied to
	PrincipalType string
	PrincipalID   string

	// Filter by resource
	Resource string

	// Filter by outcome ("AUDIT" or "ALARM")
	Permission string

	// Filter by time range
	Since time.Time
	Until time.Time

	// Pagination
	Limit  int
	Offset int
}

// NewDecisionLogFilter creates a new DecisionLogFilter with default values.
func NewDecisionLogFilter() DecisionLogFilter {
	return DecisionLogFilter{
		Limit: 100,
	}
}

// WithPrincipal sets the principal filter.
func (f DecisionLogFilter) WithPrincipal(p Principal) DecisionLogFilter {
	f.PrincipalType = string(p.Type)
	f.PrincipalID = p.ID
	return f
}

// WithResource sets the resource filter.
func (f DecisionLogFilter) WithResource(resource string) DecisionLogFilter {
	f.Resource = resource
	return f
}

// WithPermission sets the outcome filter.
func (f DecisionLogFilter) WithPermission(p Permission) DecisionLogFilter {
	f.Permission = string(p)
	return f
}

// WithTimeRange sets the time range filter.
func (f DecisionLogFilter) WithTimeRange(since, until time.Time) DecisionLogFilter {
	f.Since = since
	f.Until = until
	return f
}

// WithLimit sets the limit for results.
func (f DecisionLogFilter) WithLimit(limit int) DecisionLogFilter {
	f.Limit = limit
	return f
}

// WithOffset sets the offset for pagination.
func (f DecisionLogFilter) WithOffset(offset int) DecisionLogFilter {
	f.Offset = offset
	return f
}

// WithPagination sets both limit and offset.
func (f DecisionLogFilter) WithPagination(limit, offset int) DecisionLogFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}
