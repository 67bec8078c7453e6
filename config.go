package aclkit

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is a declarative rule set loaded from YAML. It covers the same
// ground as wiring a Registry by hand plus seeding the store, so
// deployments can keep their policy in a reviewed file.
type Config struct {
	// DefaultPermission applies when no rule matches and no resource
	// override exists. Defaults to ALLOW.
	DefaultPermission string `yaml:"default_permission"`

	// Resources defines per-resource settings and static rules.
	Resources map[string]ResourceConfig `yaml:"resources"`

	// Rules are stored rules to seed into the rule store.
	Rules []RuleConfig `yaml:"rules"`

	// Scopes are named delegation scopes to seed into the store.
	Scopes []ScopeConfig `yaml:"scopes"`

	// Memberships are role grants to seed into the membership store.
	Memberships []MembershipConfig `yaml:"memberships"`
}

// ResourceConfig defines one protected resource.
type ResourceConfig struct {
	// DefaultPermission overrides the global default for this resource.
	DefaultPermission string `yaml:"default_permission"`

	// Methods maps method names to access kinds, overriding the prefix
	// heuristic. Example: {"preview": "READ"}
	Methods map[string]string `yaml:"methods"`

	// Rules are static rules scoped to this resource. Their resource
	// field is implied.
	Rules []RuleConfig `yaml:"rules"`
}

// RuleConfig is one rule in YAML form.
type RuleConfig struct {
	// Principal identifies who the rule targets, as "TYPE:id", e.g.
	// "USER:alice" or "ROLE:admin". Dynamic roles may be written bare:
	// "$everyone", "$owner".
	Principal string `yaml:"principal"`

	Resource   string `yaml:"resource"`
	Property   string `yaml:"property"`
	Access     string `yaml:"access"`
	Permission string `yaml:"permission"`
}

// ScopeConfig is one named scope in YAML form.
type ScopeConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// MembershipConfig grants a role to a principal in YAML form.
type MembershipConfig struct {
	Role      string `yaml:"role"`
	Principal string `yaml:"principal"`
}

// LoadConfig loads a rule set from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses a rule set from YAML bytes.
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply defaults
	if config.DefaultPermission == "" {
		config.DefaultPermission = string(PermissionAllow)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if _, err := parsePermission(c.DefaultPermission); err != nil {
		return fmt.Errorf("default_permission: %w", err)
	}

	for name, res := range c.Resources {
		if res.DefaultPermission != "" {
			if _, err := parsePermission(res.DefaultPermission); err != nil {
				return fmt.Errorf("resource %q: default_permission: %w", name, err)
			}
		}
		for method, kind := range res.Methods {
			if _, err := parseAccessKind(kind); err != nil {
				return fmt.Errorf("resource %q: method %q: %w", name, method, err)
			}
		}
		for i, rule := range res.Rules {
			if err := rule.validate(); err != nil {
				return fmt.Errorf("resource %q: rule %d: %w", name, i, err)
			}
		}
	}

	for i, rule := range c.Rules {
		if rule.Resource == "" {
			return fmt.Errorf("rule %d: resource is required", i)
		}
		if err := rule.validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}

	for i, scope := range c.Scopes {
		if scope.Name == "" {
			return fmt.Errorf("scope %d: name is required", i)
		}
	}

	for i, membership := range c.Memberships {
		if membership.Role == "" {
			return fmt.Errorf("membership %d: role is required", i)
		}
		if _, err := parseConfigPrincipal(membership.Principal); err != nil {
			return fmt.Errorf("membership %d: %w", i, err)
		}
	}

	return nil
}

func (rc RuleConfig) validate() error {
	if _, err := parseConfigPrincipal(rc.Principal); err != nil {
		return err
	}
	if rc.Access != "" {
		if _, err := parseAccessKind(rc.Access); err != nil {
			return err
		}
	}
	if rc.Permission == "" {
		return fmt.Errorf("permission is required")
	}
	if _, err := parsePermission(rc.Permission); err != nil {
		return err
	}
	return nil
}

// ApplyTo registers the configured resources and their static rules on the
// registry.
func (c *Config) ApplyTo(registry *Registry) error {
	perm, err := parsePermission(c.DefaultPermission)
	if err != nil {
		return err
	}
	registry.SetDefaultPermission(perm)

	for name, res := range c.Resources {
		def := registry.DefineResource(name)

		if res.DefaultPermission != "" {
			perm, err := parsePermission(res.DefaultPermission)
			if err != nil {
				return fmt.Errorf("resource %q: %w", name, err)
			}
			def.DefaultPermission(perm)
		}

		for method, kind := range res.Methods {
			parsed, err := parseAccessKind(kind)
			if err != nil {
				return fmt.Errorf("resource %q: %w", name, err)
			}
			def.MapMethod(method, parsed)
		}

		for i, rc := range res.Rules {
			rule, err := rc.toRule(name)
			if err != nil {
				return fmt.Errorf("resource %q: rule %d: %w", name, i, err)
			}
			def.StaticRule(rule.Principal(), rule.Property, rule.AccessKind, rule.Permission)
		}
	}

	return nil
}

// Seed writes the configured stored rules, scopes and memberships. It is
// idempotent for scopes and memberships; rules are inserted as new rows.
func (c *Config) Seed(ctx context.Context, rules RuleWriter, members MembershipStore) error {
	if rules != nil {
		batch := make([]Rule, 0, len(c.Rules))
		for i, rc := range c.Rules {
			rule, err := rc.toRule(rc.Resource)
			if err != nil {
				return fmt.Errorf("rule %d: %w", i, err)
			}
			batch = append(batch, rule)
		}
		if len(batch) > 0 {
			if err := rules.SaveRules(ctx, batch); err != nil {
				return err
			}
		}

		for _, sc := range c.Scopes {
			if err := rules.SaveScope(ctx, &Scope{Name: sc.Name, Description: sc.Description}); err != nil {
				return err
			}
		}
	}

	if members != nil {
		for i, mc := range c.Memberships {
			principal, err := parseConfigPrincipal(mc.Principal)
			if err != nil {
				return fmt.Errorf("membership %d: %w", i, err)
			}
			if err := members.Grant(ctx, mc.Role, principal); err != nil {
				return err
			}
		}
	}

	return nil
}

func (rc RuleConfig) toRule(resource string) (Rule, error) {
	principal, err := parseConfigPrincipal(rc.Principal)
	if err != nil {
		return Rule{}, err
	}

	kind := AccessAll
	if rc.Access != "" {
		kind, err = parseAccessKind(rc.Access)
		if err != nil {
			return Rule{}, err
		}
	}

	perm, err := parsePermission(rc.Permission)
	if err != nil {
		return Rule{}, err
	}

	return NewRule(resource, rc.Property, kind, perm, principal), nil
}

// parseConfigPrincipal parses the "TYPE:id" form, with bare "$role" names
// accepted as role principals.
func parseConfigPrincipal(s string) (Principal, error) {
	if s == "" {
		return Principal{}, fmt.Errorf("principal is required")
	}
	if strings.HasPrefix(s, "$") {
		return RolePrincipal(s), nil
	}

	typ, id, found := strings.Cut(s, ":")
	if !found || id == "" {
		return Principal{}, fmt.Errorf("invalid principal %q (expected TYPE:id)", s)
	}

	switch PrincipalType(strings.ToUpper(typ)) {
	case PrincipalUser:
		return UserPrincipal(id), nil
	case PrincipalApp:
		return AppPrincipal(id), nil
	case PrincipalRole:
		return RolePrincipal(id), nil
	case PrincipalScope:
		return ScopePrincipal(id), nil
	default:
		return Principal{}, fmt.Errorf("invalid principal type %q (supported: USER, APP, ROLE, SCOPE)", typ)
	}
}

func parsePermission(s string) (Permission, error) {
	switch Permission(strings.ToUpper(s)) {
	case PermissionAllow:
		return PermissionAllow, nil
	case PermissionDeny:
		return PermissionDeny, nil
	case PermissionAudit:
		return PermissionAudit, nil
	case PermissionAlarm:
		return PermissionAlarm, nil
	case PermissionDefault:
		return PermissionDefault, nil
	default:
		return "", fmt.Errorf("unknown permission %q (supported: ALLOW, DENY, AUDIT, ALARM, DEFAULT)", s)
	}
}

func parseAccessKind(s string) (AccessKind, error) {
	switch AccessKind(strings.ToUpper(s)) {
	case AccessRead:
		return AccessRead, nil
	case AccessWrite:
		return AccessWrite, nil
	case AccessExecute:
		return AccessExecute, nil
	case AccessAll:
		return AccessAll, nil
	default:
		return "", fmt.Errorf("unknown access kind %q (supported: READ, WRITE, EXECUTE, *)", s)
	}
}
