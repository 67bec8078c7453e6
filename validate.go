package aclkit

// ValidatePermission checks that a permission is one of the known values.
// The empty string is accepted and treated as DEFAULT everywhere.
func ValidatePermission(p Permission) error {
	switch p {
	case "", PermissionDefault, PermissionAllow, PermissionAlarm, PermissionAudit, PermissionDeny:
		return nil
	}
	return NewError(ErrInvalidRequest, "unknown permission "+string(p))
}

// ValidateAccessKind checks that an access kind is one of the known values.
// The empty string is accepted and treated as the wildcard everywhere.
func ValidateAccessKind(k AccessKind) error {
	switch k {
	case "", AccessAll, AccessRead, AccessWrite, AccessExecute:
		return nil
	}
	return NewError(ErrInvalidRequest, "unknown access kind "+string(k)).WithAccessKind(k)
}

// ValidatePrincipal checks that a principal names a known type and a
// non-empty subject.
func ValidatePrincipal(p Principal) error {
	switch p.Type {
	case PrincipalUser, PrincipalApp, PrincipalRole, PrincipalScope:
	default:
		return NewError(ErrInvalidRequest, "unknown principal type "+string(p.Type))
	}
	if p.ID == "" {
		return NewError(ErrInvalidRequest, "principal ID cannot be empty").WithPrincipal(p)
	}
	return nil
}

// ValidateRule checks that a rule is storable: a principal with a known
// type, known permission and access kind values. Target dimensions may be
// empty; they normalize to the wildcard on save.
func ValidateRule(rule Rule) error {
	if err := ValidatePrincipal(rule.Principal()); err != nil {
		return err
	}
	if err := ValidatePermission(rule.Permission); err != nil {
		return err
	}
	if err := ValidateAccessKind(rule.AccessKind); err != nil {
		return err
	}
	return nil
}
