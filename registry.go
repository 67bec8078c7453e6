package aclkit

import (
	"fmt"
	"strings"
	"sync"
)

// Registry holds all resource definitions for the application: their static
// rules, their method-to-access-kind mappings and their default permissions.
// It is created at startup and should be treated as immutable after
// initialization.
type Registry struct {
	mu                sync.RWMutex
	resources         map[string]*ResourceDefinition
	defaultPermission Permission
}

// ResourceDefinition defines a protected resource (e.g., "Album", "User")
// and the static rules that ship with it.
type ResourceDefinition struct {
	name              string
	defaultPermission Permission
	staticRules       []Rule
	methodKinds       map[string]AccessKind
	registry          *Registry
}

// NewRegistry creates a new resource registry.
func NewRegistry() *Registry {
	return &Registry{
		resources: make(map[string]*ResourceDefinition),
	}
}

// SetDefaultPermission sets the permission substituted when a check on any
// resource resolves to DEFAULT. Resources can override it individually.
func (r *Registry) SetDefaultPermission(p Permission) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultPermission = p
	return r
}

// DefineResource starts defining a new resource.
// Returns a ResourceDefinition builder for fluent configuration.
//
// Example:
//
//	registry.DefineResource("Album").
//	    Deny(Everyone(), "*", AccessWrite).
//	    Allow(RolePrincipal("admin"), "*", AccessAll).
//	    MapMethod("publish", AccessExecute)
func (r *Registry) DefineResource(name string) *ResourceDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := &ResourceDefinition{
		name:        name,
		methodKinds: make(map[string]AccessKind),
		registry:    r,
	}
	r.resources[name] = res
	return res
}

// GetResource returns the definition for a resource.
// Returns nil if the resource is not defined.
func (r *Registry) GetResource(name string) *ResourceDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resources[name]
}

// GetResources returns all defined resource names.
func (r *Registry) GetResources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.resources))
	for name := range r.resources {
		names = append(names, name)
	}
	return names
}

// ValidateResource checks if a resource is defined.
func (r *Registry) ValidateResource(name string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.resources[name]; !exists {
		return fmt.Errorf("%w: resource %q not defined", ErrNotFound, name)
	}
	return nil
}

// StaticRules returns the static rules declared for a resource that could
// apply to the given property. A rule declared for one property is excluded
// when a different concrete property is asked about; wildcard rules and
// wildcard requests keep everything in play.
func (r *Registry) StaticRules(resource, property string) []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, exists := r.resources[resource]
	if !exists {
		return nil
	}

	var rules []Rule
	for _, rule := range res.staticRules {
		if rule.Property == All || property == All || rule.Property == property {
			rules = append(rules, rule)
		}
	}
	return rules
}

// DefaultPermission returns the permission substituted when a check on the
// resource resolves to DEFAULT: the resource's own override, the registry
// default, or ALLOW.
func (r *Registry) DefaultPermission(resource string) Permission {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if res, exists := r.resources[resource]; exists && res.defaultPermission != "" {
		return res.defaultPermission
	}
	if r.defaultPermission != "" {
		return r.defaultPermission
	}
	return PermissionAllow
}

// AccessKindForMethod returns the access kind a named resource method
// implies, using the resource's explicit mapping when one exists.
func (r *Registry) AccessKindForMethod(resource, method string) AccessKind {
	r.mu.RLock()
	res, exists := r.resources[resource]
	r.mu.RUnlock()

	if exists {
		if kind, ok := res.methodKinds[method]; ok {
			return kind
		}
	}
	return accessKindForMethodName(method)
}

// readMethodPrefixes and writeMethodPrefixes drive the naming convention
// fallback of AccessKindForMethod.
var (
	readMethodPrefixes  = []string{"get", "find", "list", "exists", "count"}
	writeMethodPrefixes = []string{"create", "update", "patch", "delete", "destroy", "upsert", "replace", "save", "remove"}
)

func accessKindForMethodName(method string) AccessKind {
	lower := strings.ToLower(method)
	for _, prefix := range readMethodPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return AccessRead
		}
	}
	for _, prefix := range writeMethodPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return AccessWrite
		}
	}
	return AccessExecute
}

// Name returns the resource name.
func (d *ResourceDefinition) Name() string {
	return d.name
}

// DefaultPermission overrides the registry-wide default permission for this
// resource.
func (d *ResourceDefinition) DefaultPermission(p Permission) *ResourceDefinition {
	d.defaultPermission = p
	return d
}

// StaticRule declares a rule that ships with the resource. Static rules are
// evaluated before any stored rule, so a static DENY rejects without a
// store round trip.
//
// Example:
//
//	resource.StaticRule(RolePrincipal("auditor"), "*", AccessRead, PermissionAudit)
func (d *ResourceDefinition) StaticRule(principal Principal, property string, kind AccessKind, permission Permission) *ResourceDefinition {
	d.staticRules = append(d.staticRules, NewRule(d.name, property, kind, permission, principal))
	return d
}

// Allow declares a static ALLOW rule.
func (d *ResourceDefinition) Allow(principal Principal, property string, kind AccessKind) *ResourceDefinition {
	return d.StaticRule(principal, property, kind, PermissionAllow)
}

// Deny declares a static DENY rule.
func (d *ResourceDefinition) Deny(principal Principal, property string, kind AccessKind) *ResourceDefinition {
	return d.StaticRule(principal, property, kind, PermissionDeny)
}

// Audit declares a static AUDIT rule.
func (d *ResourceDefinition) Audit(principal Principal, property string, kind AccessKind) *ResourceDefinition {
	return d.StaticRule(principal, property, kind, PermissionAudit)
}

// Alarm declares a static ALARM rule.
func (d *ResourceDefinition) Alarm(principal Principal, property string, kind AccessKind) *ResourceDefinition {
	return d.StaticRule(principal, property, kind, PermissionAlarm)
}

// MapMethod maps a resource method name to an access kind, overriding the
// naming convention fallback.
//
// Example:
//
//	resource.MapMethod("publish", AccessExecute).
//	    MapMethod("preview", AccessRead)
func (d *ResourceDefinition) MapMethod(method string, kind AccessKind) *ResourceDefinition {
	d.methodKinds[method] = kind
	return d
}

// StaticRules returns a copy of the static rules declared for this resource.
func (d *ResourceDefinition) StaticRules() []Rule {
	rules := make([]Rule, len(d.staticRules))
	copy(rules, d.staticRules)
	return rules
}

// KindForMethod returns the access kind for a method of this resource.
func (d *ResourceDefinition) KindForMethod(method string) AccessKind {
	if kind, ok := d.methodKinds[method]; ok {
		return kind
	}
	return accessKindForMethodName(method)
}

// DefineResource continues defining resources on the registry (fluent API).
// This allows chaining resource definitions.
func (d *ResourceDefinition) DefineResource(name string) *ResourceDefinition {
	return d.registry.DefineResource(name)
}
