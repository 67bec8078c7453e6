package aclkit

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/fernandezvara/dbkit"
)

// Store persists rules, scopes, role memberships and the decision log
// through dbkit.
//
// Error Handling:
// All database operations use dbkit's chainable error wrapping internally
// and surface failures under the package sentinels, so callers can branch
// with IsStoreError / IsNotFound without knowing the database layer.
//
// Example error handling:
//
//	rules, err := store.FindRules(ctx, filter)
//	if err != nil {
//	    if aclkit.IsStoreError(err) {
//	        // Database unreachable, query failed, ...
//	    }
//	}
type Store struct {
	db dbkit.IDB
}

// NewStore creates a store on top of a dbkit database handle.
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	store := aclkit.NewStore(db)
func NewStore(db dbkit.IDB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle.
func (s *Store) DB() dbkit.IDB {
	return s.db
}

// ============================================================================
// RULES
// ============================================================================

// FindRules retrieves rules matching the filter. Target dimensions follow
// rule-matching semantics: a concrete value selects rules naming it or the
// wildcard, while an unset or wildcard value selects everything. Results
// come back in creation order so resolution tie-breaks stay deterministic.
func (s *Store) FindRules(ctx context.Context, filter RuleFilter) ([]Rule, error) {
	var rules []Rule
	q := s.db.NewSelect().Model(&rules)

	if len(filter.Principals) > 0 {
		principals := filter.Principals
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			for _, p := range principals {
				q = q.WhereOr("(principal_type = ? AND principal_id = ?)", string(p.Type), p.ID)
			}
			return q
		})
	}
	if filter.Resource != "" && filter.Resource != All {
		q = q.Where("resource IN (?)", bun.In([]string{filter.Resource, All}))
	}
	if filter.Property != "" && filter.Property != All {
		q = q.Where("property IN (?)", bun.In([]string{filter.Property, All}))
	}
	if filter.AccessKind != "" && filter.AccessKind != AccessAll {
		q = q.Where("access_kind IN (?)", bun.In([]string{string(filter.AccessKind), All}))
	}

	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	q = q.Order("created_at ASC")
	err := dbkit.WithErr1(q.Scan(ctx), "FindRules").Err()
	if err != nil {
		return nil, NewError(ErrStore, err.Error()).WithResource(filter.Resource, filter.Property)
	}

	return rules, nil
}

// SaveRule stores a rule, normalizing empty target dimensions to the
// wildcard first.
func (s *Store) SaveRule(ctx context.Context, rule *Rule) error {
	normalizeRule(rule)

	result, err := s.db.NewInsert().Model(rule).Exec(ctx)
	err = dbkit.WithErr(result, err, "SaveRule").Err()
	if err != nil {
		return NewError(ErrStore, err.Error()).
			WithResource(rule.Resource, rule.Property).
			WithPrincipal(rule.Principal())
	}
	return nil
}

// SaveRules stores several rules in one transaction using batch inserts.
func (s *Store) SaveRules(ctx context.Context, rules []Rule) error {
	if len(rules) == 0 {
		return nil
	}

	return s.Transaction(ctx, func(ctx context.Context) error {
		models := make([]*Rule, len(rules))
		for i := range rules {
			normalizeRule(&rules[i])
			models[i] = &rules[i]
		}

		_, err := dbkit.BatchInsert(ctx, s.db, models, dbkit.BatchSize)
		err = dbkit.WithErr1(err, "SaveRules").Err()
		if err != nil {
			return NewError(ErrStore, err.Error())
		}
		return nil
	})
}

// DeleteRule removes a rule by ID.
func (s *Store) DeleteRule(ctx context.Context, id string) error {
	result, err := s.db.NewDelete().Model((*Rule)(nil)).Where("id = ?", id).Exec(ctx)
	err = dbkit.WithErr(result, err, "DeleteRule").Err()
	if err != nil {
		return NewError(ErrStore, err.Error())
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return NewError(ErrNotFound, fmt.Sprintf("rule %s does not exist", id))
	}
	return nil
}

// DeleteRulesFor removes every rule targeting a resource. Useful when a
// resource is decommissioned.
func (s *Store) DeleteRulesFor(ctx context.Context, resource string) (int, error) {
	result, err := s.db.NewDelete().Model((*Rule)(nil)).Where("resource = ?", resource).Exec(ctx)
	err = dbkit.WithErr(result, err, "DeleteRulesFor").Err()
	if err != nil {
		return 0, NewError(ErrStore, err.Error()).WithResource(resource, "")
	}

	rows, _ := result.RowsAffected()
	return int(rows), nil
}

// CountRules returns the total number of stored rules.
// Useful for monitoring and analytics.
func (s *Store) CountRules(ctx context.Context) (int, error) {
	return dbkit.Count[Rule](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q
	})
}

func normalizeRule(rule *Rule) {
	if rule.Resource == "" {
		rule.Resource = All
	}
	if rule.Property == "" {
		rule.Property = All
	}
	if rule.AccessKind == "" {
		rule.AccessKind = AccessAll
	}
	if rule.Permission == "" {
		rule.Permission = PermissionDefault
	}
}

// ============================================================================
// SCOPES
// ============================================================================

// FindScope retrieves a scope by name. A missing scope is an ErrNotFound,
// never a silent nil.
func (s *Store) FindScope(ctx context.Context, name string) (*Scope, error) {
	scope := new(Scope)
	err := s.db.NewSelect().Model(scope).Where("name = ?", name).Limit(1).Scan(ctx)
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, NewError(ErrNotFound, fmt.Sprintf("scope %q does not exist", name)).WithScope(name)
		}
		return nil, NewError(ErrStore, err.Error()).WithScope(name)
	}
	return scope, nil
}

// SaveScope stores a scope, updating the description if the name is taken.
func (s *Store) SaveScope(ctx context.Context, scope *Scope) error {
	result, err := s.db.NewInsert().Model(scope).Exec(ctx)
	if err == nil {
		return nil
	}

	if dbkit.IsDuplicate(err) {
		result, err = s.db.NewUpdate().Model(scope).
			Set("description = ?", scope.Description).
			Set("updated_at = current_timestamp").
			Where("name = ?", scope.Name).
			Exec(ctx)
		err = dbkit.WithErr(result, err, "UpdateScope").Err()
		if err != nil {
			return NewError(ErrStore, err.Error()).WithScope(scope.Name)
		}
		return nil
	}

	err = dbkit.WithErr(result, err, "SaveScope").Err()
	return NewError(ErrStore, err.Error()).WithScope(scope.Name)
}

// DeleteScope removes a scope by name.
func (s *Store) DeleteScope(ctx context.Context, name string) error {
	result, err := s.db.NewDelete().Model((*Scope)(nil)).Where("name = ?", name).Exec(ctx)
	err = dbkit.WithErr(result, err, "DeleteScope").Err()
	if err != nil {
		return NewError(ErrStore, err.Error()).WithScope(name)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return NewError(ErrNotFound, fmt.Sprintf("scope %q does not exist", name)).WithScope(name)
	}
	return nil
}

// ============================================================================
// ROLE MEMBERSHIPS
// ============================================================================

// IsMember checks if a principal holds a stored role.
func (s *Store) IsMember(ctx context.Context, role string, p Principal) (bool, error) {
	exists, err := dbkit.Exists[RoleMembership](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("role = ? AND principal_type = ? AND principal_id = ?",
			role, string(p.Type), p.ID)
	})
	if err != nil {
		return false, NewError(ErrStore, err.Error()).WithRole(role).WithPrincipal(p)
	}
	return exists, nil
}

// FindMemberships retrieves all role memberships of a principal.
func (s *Store) FindMemberships(ctx context.Context, p Principal) ([]RoleMembership, error) {
	var memberships []RoleMembership
	err := dbkit.WithErr1(s.db.NewSelect().Model(&memberships).
		Where("principal_type = ? AND principal_id = ?", string(p.Type), p.ID).
		Scan(ctx), "FindMemberships").Err()
	if err != nil {
		return nil, NewError(ErrStore, err.Error()).WithPrincipal(p)
	}
	return memberships, nil
}

// MembersOf retrieves all memberships of a role.
func (s *Store) MembersOf(ctx context.Context, role string) ([]RoleMembership, error) {
	var memberships []RoleMembership
	err := dbkit.WithErr1(s.db.NewSelect().Model(&memberships).
		Where("role = ?", role).
		Scan(ctx), "MembersOf").Err()
	if err != nil {
		return nil, NewError(ErrStore, err.Error()).WithRole(role)
	}
	return memberships, nil
}

// Grant adds a principal to a role. Granting an already held role is a
// no-op.
func (s *Store) Grant(ctx context.Context, role string, p Principal) error {
	membership := &RoleMembership{
		Role:          role,
		PrincipalType: p.Type,
		PrincipalID:   p.ID,
	}

	result, err := s.db.NewInsert().Model(membership).Exec(ctx)
	if err != nil {
		// Already a member, nothing to do
		if dbkit.IsDuplicate(err) {
			return nil
		}
		err = dbkit.WithErr(result, err, "Grant").Err()
		return NewError(ErrStore, err.Error()).WithRole(role).WithPrincipal(p)
	}
	return nil
}

// Revoke removes a principal from a role.
func (s *Store) Revoke(ctx context.Context, role string, p Principal) error {
	result, err := s.db.NewDelete().Model((*RoleMembership)(nil)).
		Where("role = ? AND principal_type = ? AND principal_id = ?",
			role, string(p.Type), p.ID).
		Exec(ctx)
	err = dbkit.WithErr(result, err, "Revoke").Err()
	if err != nil {
		return NewError(ErrStore, err.Error()).WithRole(role).WithPrincipal(p)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return NewError(ErrNotFound, "principal does not hold this role").
			WithRole(role).
			WithPrincipal(p)
	}
	return nil
}

// ============================================================================
// DECISION LOG
// ============================================================================

// LogDecision appends an AUDIT or ALARM outcome to the decision log.
func (s *Store) LogDecision(ctx context.Context, entry *DecisionEntry) error {
	record := entry.ToModel()
	result, err := s.db.NewInsert().Model(record).Exec(ctx)
	err = dbkit.WithErr(result, err, "LogDecision").Err()
	if err != nil {
		return NewError(ErrStore, err.Error()).
			WithResource(entry.Resource, entry.Property).
			WithPrincipal(entry.Principal)
	}
	return nil
}

// GetDecisionLog retrieves decision log entries with optional filters.
func (s *Store) GetDecisionLog(ctx context.Context, filter DecisionLogFilter) ([]DecisionRecord, error) {
	var records []DecisionRecord
	q := s.db.NewSelect().Model(&records)
	if filter.PrincipalType != "" {
		q = q.Where("principal_type = ?", filter.PrincipalType)
	}
	if filter.PrincipalID != "" {
		q = q.Where("principal_id = ?", filter.PrincipalID)
	}
	if filter.Resource != "" {
		q = q.Where("resource = ?", filter.Resource)
	}
	if filter.Permission != "" {
		q = q.Where("permission = ?", filter.Permission)
	}
	if !filter.Since.IsZero() {
		q = q.Where("timestamp >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("timestamp <= ?", filter.Until)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 100 // Default limit
	}
	q = q.Limit(limit)

	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	q = q.Order("timestamp DESC")
	err := dbkit.WithErr1(q.Scan(ctx), "GetDecisionLog").Err()
	if err != nil {
		return nil, NewError(ErrStore, err.Error())
	}

	return records, nil
}

// ============================================================================
// TRANSACTIONS
// ============================================================================

// Transaction executes a function within a database transaction with automatic
// commit/rollback. If the function returns an error, the transaction is rolled
// back. Otherwise, it's committed.
//
// Example:
//
//	err := store.Transaction(ctx, func(ctx context.Context) error {
//	    if err := store.SaveScope(ctx, scope); err != nil {
//	        return err // This will cause a rollback
//	    }
//	    return store.SaveRules(ctx, rules) // nil commits
//	})
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// Already inside a transaction: nest through a savepoint
	if tx, ok := s.db.(*dbkit.Tx); ok {
		return tx.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(ctx)
		})
	}

	if db, ok := s.db.(*dbkit.DBKit); ok {
		return db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(ctx)
		})
	}

	return fmt.Errorf("transaction support requires a dbkit.DBKit or dbkit.Tx instance")
}

// ReadOnlyTransaction executes a function within a read-only database
// transaction. Useful for multi-query reads that want a consistent view.
func (s *Store) ReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if db, ok := s.db.(*dbkit.DBKit); ok {
		return db.TransactionWithOptions(ctx, dbkit.ReadOnlyTxOptions(), func(tx *dbkit.Tx) error {
			return fn(ctx)
		})
	}
	return s.Transaction(ctx, fn)
}
