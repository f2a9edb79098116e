package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc"

	"github.com/jyoshithareddy08/McCarthy2.0/internal/config"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type contextKey struct{}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(contextKey{}).(string)
	return user, ok && user != ""
}

// Auth verifies bearer access tokens issued by an OpenID Connect provider.
type Auth struct {
	apiVerifier *oidc.IDTokenVerifier
	logger      Logger
	enabled     bool
	authBypass  bool
	devUser     string
}

// New creates a new Auth object using values from the application
// configuration. With auth disabled every request passes through without a
// user; in dev with the bypass set every request runs as the dev user.
func New(ctx context.Context, cfg *config.Config, logger Logger) (*Auth, error) {
	a := &Auth{
		logger:     logger,
		enabled:    cfg.Auth.Enabled,
		authBypass: cfg.IsDev() && cfg.Auth.DevModeBypass,
		devUser:    cfg.Auth.DevUser,
	}
	if !a.enabled || a.authBypass {
		return a, nil
	}

	if cfg.Auth.Issuer == "" {
		return nil, errors.New("auth configuration is incomplete: issuer is required")
	}
	provider, err := oidc.NewProvider(ctx, cfg.Auth.Issuer)
	if err != nil {
		return nil, err
	}

	// Access tokens often carry an API audience rather than the client id.
	a.apiVerifier = provider.Verifier(&oidc.Config{
		ClientID:          cfg.Auth.ClientID,
		SkipClientIDCheck: cfg.Auth.ClientID == "",
	})
	return a, nil
}

// RequireAuth is middleware that verifies the bearer token and puts the
// caller's identity (email, else subject) into the request context.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.enabled {
			next.ServeHTTP(w, r)
			return
		}

		var user string
		if a.authBypass {
			user = a.devUser
		} else {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			token, err := a.apiVerifier.Verify(r.Context(), strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				http.Error(w, "invalid token: "+err.Error(), http.StatusUnauthorized)
				return
			}

			var claims struct {
				Email string `json:"email"`
			}
			if err := token.Claims(&claims); err != nil {
				http.Error(w, "failed to parse token claims", http.StatusUnauthorized)
				return
			}
			user = claims.Email
			if user == "" {
				user = token.Subject
			}
		}

		if user == "" {
			http.Error(w, "token carries no user identity", http.StatusUnauthorized)
			return
		}
		if a.logger != nil {
			a.logger.Debug("request authenticated", "user", user, "path", r.URL.Path)
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}
