package aclkit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps rules, scopes, memberships and the decision log in
// memory. It backs tests and small embedded deployments; database-backed
// setups use Store. Both honor the same filter semantics, creation order
// included.
type MemoryStore struct {
	mu          sync.RWMutex
	rules       []Rule
	scopes      map[string]Scope
	memberships map[string]map[string]bool // role -> principal -> member
	decisions   []DecisionRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scopes:      make(map[string]Scope),
		memberships: make(map[string]map[string]bool),
	}
}

// FindRules retrieves rules matching the filter, in creation order.
func (m *MemoryStore) FindRules(_ context.Context, filter RuleFilter) ([]Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []Rule
	for _, rule := range m.rules {
		if ruleMatchesFilter(rule, filter) {
			matched = append(matched, rule)
		}
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}

	out := make([]Rule, len(matched))
	copy(out, matched)
	return out, nil
}

func ruleMatchesFilter(rule Rule, filter RuleFilter) bool {
	if len(filter.Principals) > 0 {
		found := false
		for _, p := range filter.Principals {
			if rule.AppliesTo(p) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Resource != "" && filter.Resource != All {
		if rule.Resource != filter.Resource && rule.Resource != All {
			return false
		}
	}
	if filter.Property != "" && filter.Property != All {
		if rule.Property != filter.Property && rule.Property != All {
			return false
		}
	}
	if filter.AccessKind != "" && filter.AccessKind != AccessAll {
		if rule.AccessKind != filter.AccessKind && rule.AccessKind != AccessAll {
			return false
		}
	}
	return true
}

// SaveRule stores a rule, replacing an existing rule with the same ID.
func (m *MemoryStore) SaveRule(_ context.Context, rule *Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveRuleLocked(rule)
	return nil
}

// SaveRules stores several rules at once.
func (m *MemoryStore) SaveRules(_ context.Context, rules []Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range rules {
		m.saveRuleLocked(&rules[i])
	}
	return nil
}

func (m *MemoryStore) saveRuleLocked(rule *Rule) {
	normalizeRule(rule)
	now := time.Now()

	if rule.ID != "" {
		for i := range m.rules {
			if m.rules[i].ID == rule.ID {
				rule.CreatedAt = m.rules[i].CreatedAt
				rule.UpdatedAt = now
				m.rules[i] = *rule
				return
			}
		}
	}

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	rule.CreatedAt = now
	rule.UpdatedAt = now
	m.rules = append(m.rules, *rule)
}

// DeleteRule removes a rule by ID.
func (m *MemoryStore) DeleteRule(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.rules {
		if m.rules[i].ID == id {
			m.rules = append(m.rules[:i], m.rules[i+1:]...)
			return nil
		}
	}
	return NewError(ErrNotFound, fmt.Sprintf("rule %s does not exist", id))
}

// DeleteRulesFor removes every rule targeting a resource.
func (m *MemoryStore) DeleteRulesFor(_ context.Context, resource string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.rules[:0]
	removed := 0
	for _, rule := range m.rules {
		if rule.Resource == resource {
			removed++
			continue
		}
		kept = append(kept, rule)
	}
	m.rules = kept
	return removed, nil
}

// CountRules returns the total number of stored rules.
func (m *MemoryStore) CountRules(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rules), nil
}

// FindScope retrieves a scope by name.
func (m *MemoryStore) FindScope(_ context.Context, name string) (*Scope, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scope, ok := m.scopes[name]
	if !ok {
		return nil, NewError(ErrNotFound, fmt.Sprintf("scope %q does not exist", name)).WithScope(name)
	}
	return &scope, nil
}

// SaveScope stores a scope, updating it if the name is taken.
func (m *MemoryStore) SaveScope(_ context.Context, scope *Scope) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if existing, ok := m.scopes[scope.Name]; ok {
		scope.ID = existing.ID
		scope.CreatedAt = existing.CreatedAt
	} else {
		if scope.ID == "" {
			scope.ID = uuid.New().String()
		}
		scope.CreatedAt = now
	}
	scope.UpdatedAt = now
	m.scopes[scope.Name] = *scope
	return nil
}

// DeleteScope removes a scope by name.
func (m *MemoryStore) DeleteScope(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.scopes[name]; !ok {
		return NewError(ErrNotFound, fmt.Sprintf("scope %q does not exist", name)).WithScope(name)
	}
	delete(m.scopes, name)
	return nil
}

// IsMember checks if a principal holds a stored role.
func (m *MemoryStore) IsMember(_ context.Context, role string, p Principal) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.memberships[role][p.String()], nil
}

// FindMemberships retrieves all role memberships of a principal.
func (m *MemoryStore) FindMemberships(_ context.Context, p Principal) ([]RoleMembership, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []RoleMembership
	key := p.String()
	for role, members := range m.memberships {
		if members[key] {
			out = append(out, RoleMembership{
				Role:          role,
				PrincipalType: p.Type,
				PrincipalID:   p.ID,
			})
		}
	}
	return out, nil
}

// MembersOf retrieves all memberships of a role.
func (m *MemoryStore) MembersOf(_ context.Context, role string) ([]RoleMembership, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []RoleMembership
	for member := range m.memberships[role] {
		typ, id, _ := strings.Cut(member, ":")
		out = append(out, RoleMembership{
			Role:          role,
			PrincipalType: PrincipalType(typ),
			PrincipalID:   id,
		})
	}
	return out, nil
}

// Grant adds a principal to a role. Granting an already held role is a
// no-op.
func (m *MemoryStore) Grant(_ context.Context, role string, p Principal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.memberships[role] == nil {
		m.memberships[role] = make(map[string]bool)
	}
	m.memberships[role][p.String()] = true
	return nil
}

// Revoke removes a principal from a role.
func (m *MemoryStore) Revoke(_ context.Context, role string, p Principal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.memberships[role][p.String()] {
		return NewError(ErrNotFound, "principal does not hold this role").
			WithRole(role).
			WithPrincipal(p)
	}
	delete(m.memberships[role], p.String())
	return nil
}

// LogDecision appends an AUDIT or ALARM outcome to the decision log.
func (m *MemoryStore) LogDecision(_ context.Context, entry *DecisionEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record := entry.ToModel()
	record.ID = uuid.New().String()
	m.decisions = append(m.decisions, *record)
	return nil
}

// GetDecisionLog retrieves decision log entries, newest first.
func (m *MemoryStore) GetDecisionLog(_ context.Context, filter DecisionLogFilter) ([]DecisionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []DecisionRecord
	for i := len(m.decisions) - 1; i >= 0; i-- {
		record := m.decisions[i]
		if filter.PrincipalType != "" && record.PrincipalType != filter.PrincipalType {
			continue
		}
		if filter.PrincipalID != "" && record.PrincipalID != filter.PrincipalID {
			continue
		}
		if filter.Resource != "" && record.Resource != filter.Resource {
			continue
		}
		if filter.Permission != "" && record.Permission != filter.Permission {
			continue
		}
		if !filter.Since.IsZero() && record.Timestamp.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && record.Timestamp.After(filter.Until) {
			continue
		}
		matched = append(matched, record)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 100
	}
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}
