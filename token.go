package aclkit

// AccessToken is the credential a request presents: the authenticated user
// and/or application, plus any scopes delegated to the token.
type AccessToken struct {
	ID     string
	UserID string
	AppID  string
	Scopes []string
}

// NewAccessToken creates a token for a user.
func NewAccessToken(id, userID string) *AccessToken {
	return &AccessToken{ID: id, UserID: userID}
}

// WithApp sets the application the token was issued to.
func (t *AccessToken) WithApp(appID string) *AccessToken {
	t.AppID = appID
	return t
}

// WithScopes sets the scopes delegated to the token.
func (t *AccessToken) WithScopes(scopes ...string) *AccessToken {
	t.Scopes = scopes
	return t
}

// Principals returns the principals the token vouches for.
func (t *AccessToken) Principals() []Principal {
	var principals []Principal
	if t.UserID != "" {
		principals = append(principals, UserPrincipal(t.UserID))
	}
	if t.AppID != "" {
		principals = append(principals, AppPrincipal(t.AppID))
	}
	return principals
}

// IsAnonymous reports whether the token vouches for nobody.
func (t *AccessToken) IsAnonymous() bool {
	return t.UserID == "" && t.AppID == ""
}

// HasScope reports whether the token carries the named scope.
func (t *AccessToken) HasScope(name string) bool {
	for _, s := range t.Scopes {
		if s == name {
			return true
		}
	}
	return false
}
