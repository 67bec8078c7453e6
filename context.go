package aclkit

import (
	"context"
)

// Context keys for ACLKit values.
type contextKey string

const (
	contextKeyUserID    contextKey = "aclkit:user_id"
	contextKeyAppID     contextKey = "aclkit:app_id"
	contextKeyToken     contextKey = "aclkit:token"
	contextKeyIPAddress contextKey = "aclkit:ip_address"
	contextKeyUserAgent contextKey = "aclkit:user_agent"
	contextKeyRequestID contextKey = "aclkit:request_id"
	contextKeyChecker   contextKey = "aclkit:checker"
	contextKeyDecision  contextKey = "aclkit:decision"
)

// WithUserID adds a user ID to the context.
// This is the user being checked for permissions.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKeyUserID, userID)
}

// GetUserID retrieves the user ID from context.
// Returns empty string if not set.
func GetUserID(ctx context.Context) string {
	if v := ctx.Value(contextKeyUserID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// MustGetUserID retrieves the user ID from context.
// Panics if not set.
func MustGetUserID(ctx context.Context) string {
	userID := GetUserID(ctx)
	if userID == "" {
		panic("aclkit: user ID not in context")
	}
	return userID
}

// WithAppID adds an application ID to the context.
func WithAppID(ctx context.Context, appID string) context.Context {
	return context.WithValue(ctx, contextKeyAppID, appID)
}

// GetAppID retrieves the application ID from context.
func GetAppID(ctx context.Context) string {
	if v := ctx.Value(contextKeyAppID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithToken adds an access token to the context.
// This is set by the authentication layer before checks run.
func WithToken(ctx context.Context, token *AccessToken) context.Context {
	return context.WithValue(ctx, contextKeyToken, token)
}

// GetToken retrieves the access token from context.
// Returns nil if not set.
func GetToken(ctx context.Context) *AccessToken {
	if v := ctx.Value(contextKeyToken); v != nil {
		if t, ok := v.(*AccessToken); ok {
			return t
		}
	}
	return nil
}

// WithIPAddress adds the client IP address to the context (for the decision log).
func WithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKeyIPAddress, ip)
}

// GetIPAddress retrieves the IP address from context.
func GetIPAddress(ctx context.Context) string {
	if v := ctx.Value(contextKeyIPAddress); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithUserAgent adds the user agent to the context (for the decision log).
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, contextKeyUserAgent, ua)
}

// GetUserAgent retrieves the user agent from context.
func GetUserAgent(ctx context.Context) string {
	if v := ctx.Value(contextKeyUserAgent); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context (for the decision log and correlation).
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(contextKeyRequestID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithChecker adds a Checker to the context.
// This is set by middleware and can be retrieved in handlers.
func WithChecker(ctx context.Context, checker *Checker) context.Context {
	return context.WithValue(ctx, contextKeyChecker, checker)
}

// GetChecker retrieves the Checker from context.
// Returns nil if not set.
func GetChecker(ctx context.Context) *Checker {
	if v := ctx.Value(contextKeyChecker); v != nil {
		if c, ok := v.(*Checker); ok {
			return c
		}
	}
	return nil
}

// FromContext retrieves the Checker from context.
// Alias for GetChecker for convenience.
func FromContext(ctx context.Context) *Checker {
	return GetChecker(ctx)
}

// WithDecision adds a resolved access request to the context.
// This is set by middleware after a successful check so handlers can
// inspect the outcome (for example to honor AUDIT).
func WithDecision(ctx context.Context, decision AccessRequest) context.Context {
	return context.WithValue(ctx, contextKeyDecision, decision)
}

// GetDecision retrieves the resolved access request from context.
func GetDecision(ctx context.Context) (AccessRequest, bool) {
	if v := ctx.Value(contextKeyDecision); v != nil {
		if d, ok := v.(AccessRequest); ok {
			return d, true
		}
	}
	return AccessRequest{}, false
}

// PrincipalsFromContext derives the principals of the calling request: the
// token's principals when a token is present, otherwise whatever user and
// application IDs were stored on the context.
func PrincipalsFromContext(ctx context.Context) []Principal {
	if token := GetToken(ctx); token != nil {
		return token.Principals()
	}

	var principals []Principal
	if userID := GetUserID(ctx); userID != "" {
		principals = append(principals, UserPrincipal(userID))
	}
	if appID := GetAppID(ctx); appID != "" {
		principals = append(principals, AppPrincipal(appID))
	}
	return principals
}

// RequestInfo holds the forensic metadata recorded with logged decisions.
type RequestInfo struct {
	IPAddress string
	UserAgent string
	RequestID string
}

// GetRequestInfo extracts all forensic metadata from context.
func GetRequestInfo(ctx context.Context) RequestInfo {
	return RequestInfo{
		IPAddress: GetIPAddress(ctx),
		UserAgent: GetUserAgent(ctx),
		RequestID: GetRequestID(ctx),
	}
}

// WithRequestInfo adds all forensic metadata to context at once.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	if info.IPAddress != "" {
		ctx = WithIPAddress(ctx, info.IPAddress)
	}
	if info.UserAgent != "" {
		ctx = WithUserAgent(ctx, info.UserAgent)
	}
	if info.RequestID != "" {
		ctx = WithRequestID(ctx, info.RequestID)
	}
	return ctx
}
