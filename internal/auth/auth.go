package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"n8n-workflows/internal/config"
)

// APIKeyHeader is accepted as an alternative to a bearer token.
const APIKeyHeader = "X-API-Key"

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type contextKey struct{}

// Auth guards the REST API with a static API key.
type Auth struct {
	apiKey     string
	logger     Logger
	authBypass bool
}

// New creates a new Auth object from the server configuration. With no key
// configured every request is let through.
func New(cfg *config.Config, logger Logger) *Auth {
	key := strings.TrimSpace(cfg.Server.APIKey)
	a := &Auth{apiKey: key, logger: logger, authBypass: key == ""}
	if a.authBypass {
		logger.Warn("server.api_key is not set; the REST API is unauthenticated")
	}
	return a
}

// RequireAuth is middleware that ensures the request carries the API key,
// either as "Authorization: Bearer <key>" or in the X-API-Key header.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := "anonymous"

		if !a.authBypass {
			presented := r.Header.Get(APIKeyHeader)
			if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
				presented = strings.TrimPrefix(authHeader, "Bearer ")
			}
			if presented == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="n8n-workflows"`)
				http.Error(w, "missing API key", http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(presented), []byte(a.apiKey)) != 1 {
				a.logger.Debug("Rejected request with invalid API key", "path", r.URL.Path, "remote", r.RemoteAddr)
				http.Error(w, "invalid API key", http.StatusUnauthorized)
				return
			}
			principal = "api-key"
		}

		ctx := context.WithValue(r.Context(), contextKey{}, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Principal returns who the request was authenticated as.
func Principal(ctx context.Context) (string, bool) {
	p, ok := ctx.Value(contextKey{}).(string)
	return p, ok
}
