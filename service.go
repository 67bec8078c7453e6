package aclkit

import (
	"context"
	"log/slog"
	"time"
)

// Service evaluates permission checks against the registry's static rules
// and the stored dynamic rules.
//
// Dependencies are explicit: a Registry for resource definitions and a
// RuleStore for stored rules. Role resolution, decision logging, metrics
// and logging attach through the With* methods; when the store itself
// supports membership queries or decision logging, those are picked up
// automatically.
//
// Example:
//
//	registry := aclkit.NewRegistry()
//	registry.DefineResource("Album").
//	    Deny(aclkit.Everyone(), "*", aclkit.AccessWrite).
//	    Allow(aclkit.Owner(), "*", aclkit.AccessAll)
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := aclkit.NewService(registry, aclkit.NewStore(db))
type Service struct {
	store     RuleStore
	registry  *Registry
	roles     RoleResolver
	decisions DecisionLogger
	logger    *slog.Logger
	metrics   *Metrics
	monitor   *checkMonitor
}

// NewService creates a permission checking service.
func NewService(registry *Registry, store RuleStore) *Service {
	s := &Service{
		store:    store,
		registry: registry,
		logger:   slog.Default(),
		monitor:  newCheckMonitor(),
	}

	roles := NewRoles()
	if ms, ok := store.(MembershipStore); ok {
		roles.WithMembershipStore(ms)
	}
	s.roles = roles

	if dl, ok := store.(DecisionLogger); ok {
		s.decisions = dl
	}

	return s
}

// WithRoles replaces the role resolver.
func (s *Service) WithRoles(roles RoleResolver) *Service {
	s.roles = roles
	return s
}

// WithLogger replaces the logger. A nil logger keeps the current one.
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithMetrics attaches a metrics collector.
func (s *Service) WithMetrics(m *Metrics) *Service {
	s.metrics = m
	return s
}

// WithDecisionLog replaces the decision logger.
func (s *Service) WithDecisionLog(dl DecisionLogger) *Service {
	s.decisions = dl
	return s
}

// Registry returns the resource registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Store returns the rule store.
func (s *Service) Store() RuleStore {
	return s.store
}

// Roles returns the role resolver.
func (s *Service) Roles() RoleResolver {
	return s.roles
}

// DecisionStats returns in-process decision statistics since the last reset.
//
// Example:
//
//	stats := service.DecisionStats()
//	log.Printf("checks=%d denied=%d avg=%v", stats.TotalChecks, stats.Denied, stats.AverageDuration)
func (s *Service) DecisionStats() CheckStats {
	return s.monitor.stats()
}

// ResetDecisionStats resets the in-process decision statistics.
func (s *Service) ResetDecisionStats() {
	s.monitor.reset()
}

// observeCheck records one completed check on the collectors.
func (s *Service) observeCheck(operation string, start time.Time) {
	s.metrics.ObserveCheck(operation, start)
	s.monitor.observe(time.Since(start))
}

// checkFailed records a check that errored before reaching a decision.
func (s *Service) checkFailed(err error) {
	s.metrics.RecordError(err)
	s.monitor.recordError()
}

// logDecision records an AUDIT or ALARM outcome. Failures are logged, never
// surfaced: a full decision log must not turn into an outage.
func (s *Service) logDecision(ctx context.Context, principal Principal, resourceID string, resolved AccessRequest) {
	if s.decisions == nil {
		return
	}
	if resolved.Permission != PermissionAudit && resolved.Permission != PermissionAlarm {
		return
	}

	info := GetRequestInfo(ctx)
	entry := &DecisionEntry{
		Principal:  principal,
		Resource:   resolved.Resource,
		ResourceID: resourceID,
		Property:   resolved.Property,
		AccessKind: resolved.AccessKind,
		Permission: resolved.Permission,
		IPAddress:  info.IPAddress,
		UserAgent:  info.UserAgent,
		RequestID:  info.RequestID,
	}

	if err := s.decisions.LogDecision(ctx, entry); err != nil {
		s.logger.Warn("decision log write failed",
			"error", err,
			"resource", resolved.Resource,
			"permission", string(resolved.Permission))
	}
}
