package auth

const (
	ScopeOpenID       = "openid"
	ScopeProfile      = "profile"
	ScopeEmail        = "email"
	ScopeToolsRead    = "tools:read"
	ScopeToolsInvoke  = "tools:invoke"
	ScopePipelinesRun = "pipelines:run"
)

// AllScopes defines the full set of scopes requested by the Swagger UI.
var AllScopes = []string{
	ScopeOpenID,
	ScopeProfile,
	ScopeEmail,
	ScopeToolsRead,
	ScopeToolsInvoke,
	ScopePipelinesRun,
}
