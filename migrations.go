package aclkit

import (
	"github.com/fernandezvara/dbkit"
)

// MigrationService provides migration management functionality as an extension to Store
type MigrationService struct {
	*Store
}

// NewMigrationService creates a new migration service extension
func NewMigrationService(store *Store) *MigrationService {
	return &MigrationService{Store: store}
}

// Migrations returns all database migrations required for ACLKit.
// Use dbkit.Migrate(ctx, service.Migrations()) to run migrations.
// Use dbkit.MigrationStatus(ctx, service.Migrations()) to check status.
func (ms *MigrationService) Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "aclkit-001",
			Description: "Create acl_rules table",
			SQL: `
                CREATE TABLE IF NOT EXISTS acl_rules (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    resource TEXT NOT NULL,
                    property TEXT NOT NULL DEFAULT '*',
                    access_kind TEXT NOT NULL DEFAULT '*',
                    permission TEXT NOT NULL,
                    principal_type TEXT NOT NULL,
                    principal_id TEXT NOT NULL,
                    created_at TIMESTAMPTZ DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "aclkit-002",
			Description: "Index acl_rules by target and by principal",
			SQL: `
                CREATE INDEX IF NOT EXISTS idx_acl_rules_target
                    ON acl_rules (resource, property, access_kind);
                CREATE INDEX IF NOT EXISTS idx_acl_rules_principal
                    ON acl_rules (principal_type, principal_id)`,
		},
		{
			ID:          "aclkit-003",
			Description: "Create acl_scopes table",
			SQL: `
                CREATE TABLE IF NOT EXISTS acl_scopes (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    name TEXT NOT NULL UNIQUE,
                    description TEXT,
                    created_at TIMESTAMPTZ DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "aclkit-004",
			Description: "Create acl_role_memberships table",
			SQL: `
                CREATE TABLE IF NOT EXISTS acl_role_memberships (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    role TEXT NOT NULL,
                    principal_type TEXT NOT NULL,
                    principal_id TEXT NOT NULL,
                    created_at TIMESTAMPTZ DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ DEFAULT current_timestamp,
                    UNIQUE (role, principal_type, principal_id)
                )`,
		},
		{
			ID:          "aclkit-005",
			Description: "Create acl_decision_log table",
			SQL: `
                CREATE TABLE IF NOT EXISTS acl_decision_log (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    timestamp TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    principal_type TEXT NOT NULL,
                    principal_id TEXT NOT NULL,
                    resource TEXT NOT NULL,
                    resource_id TEXT,
                    property TEXT NOT NULL,
                    access_kind TEXT NOT NULL,
                    permission TEXT NOT NULL,
                    ip_address TEXT,
                    user_agent TEXT,
                    request_id TEXT,
                    metadata JSONB
                )`,
		},
	}
}
