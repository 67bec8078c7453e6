// Package aclkit provides a rule-based access control decision engine.
//
// ACLKit answers one question: may this principal perform this operation on
// this resource? Rules grant or deny access kinds (READ, WRITE, EXECUTE) on
// resource properties, with full wildcard support on every dimension, and
// the engine resolves the applicable rules into a single decision.
//
// # Core Concepts
//
// Principal: The subject asking for access. A user ("USER:alice"), an
// application ("APP:mobile"), a role ("ROLE:admin") or a delegated scope
// ("SCOPE:read-only"). One request usually carries several.
//
// Rule: A 5-tuple (principal, resource, property, access kind, permission).
// Any of resource, property and access kind may be the wildcard "*".
//
// Permission: The effect of a rule: ALLOW, DENY, AUDIT (allow and record)
// or ALARM (allow and raise). DEFAULT means "no opinion" and defers to the
// resource's configured fallback.
//
// Resolution: Matching rules are ranked by specificity, most specific
// first. An exact rule on ("Album", "title", READ) beats ("Album", "*", "*");
// among equally specific rules the strongest permission wins, with
// DENY strongest of all.
//
// # Key Features
//
//   - Wildcards on every rule dimension, ranked by specificity
//   - Static in-process rules plus stored rules in PostgreSQL
//   - Dynamic roles: $everyone, $authenticated, $unauthenticated, $owner
//   - Custom roles via matcher functions or stored memberships
//   - Scoped access tokens with per-scope permission gating
//   - Decision log for AUDIT and ALARM outcomes (who, what, when, where)
//   - DBKit integration: uses your existing database connection
//
// # Basic Usage
//
//	// 1. Define your resources (at application startup)
//	registry := aclkit.NewRegistry()
//
//	registry.DefineResource("Album").
//	    DefaultPermission(aclkit.PermissionDeny).
//	    Allow(aclkit.Everyone(), "*", aclkit.AccessRead).
//	    Allow(aclkit.Owner(), "*", aclkit.AccessWrite).
//	    Deny(aclkit.Unauthenticated(), "*", aclkit.AccessAll)
//
//	// 2. Create the service
//	store := aclkit.NewStore(db)
//	service := aclkit.NewService(registry, store)
//
//	// 3. Run migrations
//	migrations := aclkit.NewMigrationService(store)
//	db.Migrate(ctx, migrations.Migrations())
//
//	// 4. Add stored rules at runtime
//	rule := aclkit.NewRule("Album", "*", aclkit.AccessWrite,
//	    aclkit.PermissionAllow, aclkit.RolePrincipal("editor"))
//	store.SaveRule(ctx, &rule)
//
//	// 5. Check permissions
//	resolved, err := service.CheckPermission(ctx,
//	    aclkit.UserPrincipal(userID),
//	    aclkit.NewAccessRequest("Album", "title", aclkit.AccessWrite))
//	if err != nil {
//	    return err
//	}
//	if !resolved.Allowed() {
//	    return aclkit.ErrAccessDenied
//	}
//
// # Checker Usage
//
// A Checker binds a principal set once and offers boolean helpers:
//
//	checker := service.CheckerFor(aclkit.UserPrincipal(userID))
//
//	if checker.CanRead(ctx, "Album") {
//	    // Show albums
//	}
//	if err := checker.Require(ctx, "Album", "*", aclkit.AccessWrite); err != nil {
//	    return err // aclkit.ErrAccessDenied with details
//	}
//
// # Middleware Usage
//
//	mw := aclkit.NewMiddleware(service)
//
//	router.Handle("GET /albums/{albumID}",
//	    mw.RequireAccess("Album", "*", aclkit.AccessRead, aclkit.IDFromParam("albumID"))(getAlbum))
//
//	router.Handle("DELETE /albums/{albumID}",
//	    mw.RequireRole("admin")(deleteAlbum))
//
// gRPC servers use the interceptors instead:
//
//	server := grpc.NewServer(
//	    grpc.UnaryInterceptor(aclkit.UnaryServerInterceptor(service, "Album")),
//	)
//
// # Dynamic Roles
//
// Four roles are computed per request rather than stored:
//
//   - "$everyone" matches every request
//   - "$authenticated" matches requests carrying a user or application
//   - "$unauthenticated" matches anonymous requests
//   - "$owner" matches when the configured ownership function says the
//     user owns the resource instance under check
//
// Custom roles register a matcher function, and anything else falls back
// to stored role memberships:
//
//	roles := aclkit.NewRoles().
//	    WithMembershipStore(store).
//	    WithOwnership(func(ctx context.Context, userID, resource, resourceID string) (bool, error) {
//	        return albums.IsOwnedBy(ctx, resourceID, userID)
//	    })
//	service = service.WithRoles(roles)
//
// # Decision Log
//
// AUDIT and ALARM outcomes are written to the decision log with:
//   - The principal and the operation it attempted
//   - The resolved permission
//   - Timestamp
//   - Request metadata (IP, user agent, request ID)
package aclkit
