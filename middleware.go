package aclkit

import (
	"errors"
	"net/http"
)

// Middleware provides HTTP middleware for access checking.
type Middleware struct {
	service       *Service
	getPrincipals func(*http.Request) []Principal
	errorHandler  func(http.ResponseWriter, *http.Request, error)
}

// MiddlewareOption configures the Middleware.
type MiddlewareOption func(*Middleware)

// NewMiddleware creates a new Middleware instance. By default principals
// come from the request context, where the authentication layer put them
// with WithToken or WithUserID.
//
// Example:
//
//	mw := aclkit.NewMiddleware(service,
//	    aclkit.WithPrincipalExtractor(func(r *http.Request) []aclkit.Principal {
//	        return []aclkit.Principal{aclkit.UserPrincipal(r.Header.Get("X-User-ID"))}
//	    }),
//	)
func NewMiddleware(service *Service, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		service:       service,
		getPrincipals: defaultGetPrincipals,
		errorHandler:  defaultErrorHandler,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// WithPrincipalExtractor sets a custom function to extract principals from
// the request.
func WithPrincipalExtractor(fn func(*http.Request) []Principal) MiddlewareOption {
	return func(m *Middleware) {
		m.getPrincipals = fn
	}
}

// WithErrorHandler sets a custom error handler for middleware.
func WithErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) MiddlewareOption {
	return func(m *Middleware) {
		m.errorHandler = fn
	}
}

func defaultGetPrincipals(r *http.Request) []Principal {
	return PrincipalsFromContext(r.Context())
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case IsAccessDenied(err):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNoPrincipal):
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	case IsInvalidRequest(err):
		http.Error(w, "Bad Request", http.StatusBadRequest)
	case IsNotFound(err):
		// A token naming an unknown scope must not pass; don't leak which
		// scope was the problem either
		http.Error(w, "Forbidden", http.StatusForbidden)
	default:
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// ResourceIDExtractor extracts the resource instance ID from an HTTP
// request. Returning "" runs the check at the type level, where
// ownership-based rules cannot apply.
type ResourceIDExtractor func(*http.Request) string

// IDFromParam creates a ResourceIDExtractor that reads the ID from URL
// parameters.
//
// Example:
//
//	// For route /albums/{albumID}
//	mw.RequireAccess("Album", "*", aclkit.AccessWrite, aclkit.IDFromParam("albumID"))
func IDFromParam(paramName string) ResourceIDExtractor {
	return func(r *http.Request) string {
		return r.PathValue(paramName)
	}
}

// IDFromQuery creates a ResourceIDExtractor that reads the ID from query
// parameters.
//
// Example:
//
//	// For route /api/albums?id=alb_123
//	mw.RequireAccess("Album", "*", aclkit.AccessRead, aclkit.IDFromQuery("id"))
func IDFromQuery(queryParam string) ResourceIDExtractor {
	return func(r *http.Request) string {
		return r.URL.Query().Get(queryParam)
	}
}

// IDFromHeader creates a ResourceIDExtractor that reads the ID from a
// header.
func IDFromHeader(headerName string) ResourceIDExtractor {
	return func(r *http.Request) string {
		return r.Header.Get(headerName)
	}
}

// NoID runs checks at the type level.
func NoID() ResourceIDExtractor {
	return func(*http.Request) string {
		return ""
	}
}

// RequireAccess creates middleware that checks an operation before the
// handler runs. Anonymous requests are evaluated too, so rules targeting
// $everyone and $unauthenticated apply; a DENY outcome rejects with 403.
//
// Example:
//
//	router.Handle("POST /albums/{albumID}/tracks",
//	    mw.RequireAccess("Album", "tracks", aclkit.AccessWrite, aclkit.IDFromParam("albumID"))(addTrackHandler))
func (m *Middleware) RequireAccess(resource, property string, kind AccessKind, idFrom ResourceIDExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			checker := NewChecker(m.service, m.getPrincipals(r)...)

			resourceID := ""
			if idFrom != nil {
				resourceID = idFrom(r)
			}

			resolved, err := checker.Resolve(ctx, resource, resourceID, property, kind)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}
			if !resolved.Allowed() {
				denied := NewError(ErrAccessDenied, "").
					WithResource(resource, resolved.Property).
					WithAccessKind(resolved.AccessKind)
				m.errorHandler(w, r, denied)
				return
			}

			// Expose the checker and the outcome to the handler
			ctx = WithChecker(ctx, checker)
			ctx = WithDecision(ctx, resolved)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireMethod creates middleware that guards a named resource method,
// deriving the access kind from the registry's method mapping.
//
// Example:
//
//	router.Handle("POST /albums/{albumID}/publish",
//	    mw.RequireMethod("Album", "publish", aclkit.IDFromParam("albumID"))(publishHandler))
func (m *Middleware) RequireMethod(resource, method string, idFrom ResourceIDExtractor) func(http.Handler) http.Handler {
	kind := m.service.Registry().AccessKindForMethod(resource, method)
	return m.RequireAccess(resource, method, kind, idFrom)
}

// RequireAuthenticated creates middleware that rejects requests carrying no
// user or application with 401.
func (m *Middleware) RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			checker := NewChecker(m.service, m.getPrincipals(r)...)
			if checker.IsAnonymous() {
				m.errorHandler(w, r, ErrNoPrincipal)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithChecker(r.Context(), checker)))
		})
	}
}

// RequireRole creates middleware that requires role membership.
//
// Example:
//
//	router.Handle("DELETE /albums/{albumID}",
//	    mw.RequireRole("admin")(deleteAlbumHandler))
func (m *Middleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			checker := NewChecker(m.service, m.getPrincipals(r)...)

			if !checker.IsInRole(ctx, role) {
				m.errorHandler(w, r, NewError(ErrAccessDenied, "missing required role").WithRole(role))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithChecker(ctx, checker)))
		})
	}
}

// RequireTokenAccess creates middleware that evaluates the operation for
// the request's access token. Requests without a token are rejected with
// 401.
//
// Example:
//
//	router.Handle("GET /albums/{albumID}",
//	    mw.RequireTokenAccess("Album", "*", aclkit.AccessRead, aclkit.IDFromParam("albumID"))(getAlbumHandler))
func (m *Middleware) RequireTokenAccess(resource, property string, kind AccessKind, idFrom ResourceIDExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := GetToken(ctx)
			if token == nil {
				m.errorHandler(w, r, ErrNoPrincipal)
				return
			}

			acc := NewAccessContext(resource, property, kind)
			if idFrom != nil {
				acc.ResourceID = idFrom(r)
			}

			allowed, err := m.service.CheckAccessForToken(ctx, token, acc)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}
			if !allowed {
				denied := NewError(ErrAccessDenied, "").
					WithResource(resource, property).
					WithAccessKind(kind)
				m.errorHandler(w, r, denied)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithChecker(ctx, m.service.CheckerForToken(token))))
		})
	}
}

// RequireScopes creates middleware that gates an operation on the token's
// delegated scopes. A token naming an unknown scope fails the check.
//
// Example:
//
//	router.Handle("GET /albums",
//	    mw.RequireScopes("Album", "*", aclkit.AccessRead)(listAlbumsHandler))
func (m *Middleware) RequireScopes(resource, property string, kind AccessKind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := GetToken(ctx)
			if token == nil {
				m.errorHandler(w, r, ErrNoPrincipal)
				return
			}

			resolved, err := m.service.CheckScopePermission(ctx, token.Scopes, NewAccessRequest(resource, property, kind))
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}
			if !resolved.Allowed() {
				denied := NewError(ErrAccessDenied, "insufficient scope").
					WithResource(resource, property).
					WithAccessKind(kind)
				m.errorHandler(w, r, denied)
				return
			}

			ctx = WithDecision(ctx, resolved)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoadChecker creates middleware that loads a Checker into context without
// enforcing anything. Use this when the handler decides what to check.
//
// Example:
//
//	router.Handle("/dashboard", mw.LoadChecker()(dashboardHandler))
//
//	func dashboardHandler(w http.ResponseWriter, r *http.Request) {
//	    checker := aclkit.FromContext(r.Context())
//	    if checker.CanRead(r.Context(), "Report") {
//	        // Show reports section
//	    }
//	}
func (m *Middleware) LoadChecker() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principals := m.getPrincipals(r)
			if len(principals) == 0 {
				// No subject, continue without checker
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithChecker(r.Context(), NewChecker(m.service, principals...))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// InjectRequestInfo creates middleware that extracts forensic metadata from
// the request and adds it to the context, so logged decisions carry it.
//
// Example:
//
//	handler = mw.InjectRequestInfo()(handler)
func (m *Middleware) InjectRequestInfo() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// Extract IP address
			ip := r.Header.Get("X-Forwarded-For")
			if ip == "" {
				ip = r.Header.Get("X-Real-IP")
			}
			if ip == "" {
				ip = r.RemoteAddr
			}
			ctx = WithIPAddress(ctx, ip)

			// Extract User Agent
			ctx = WithUserAgent(ctx, r.UserAgent())

			// Extract Request ID (commonly set by other middleware)
			requestID := r.Header.Get("X-Request-ID")
			if requestID != "" {
				ctx = WithRequestID(ctx, requestID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
