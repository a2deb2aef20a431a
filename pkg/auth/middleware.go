package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/xraph-labs/nexus-registry/pkg/types"
)

type contextKey string

const identityContextKey contextKey = "auth_identity"

// Middleware enforces a manifest's AuthConfig: public_routes bypass
// verification entirely, every other request must present a bearer
// token one of the configured Verifiers accepts, and access_control
// rules further gate specific path/method pairs by role or permission.
type Middleware struct {
	cfg       *types.AuthConfig
	verifiers []Verifier
}

// NewMiddleware builds a Middleware enforcing cfg using verifiers, tried
// in order until one accepts the token.
func NewMiddleware(cfg *types.AuthConfig, verifiers []Verifier) *Middleware {
	return &Middleware{cfg: cfg, verifiers: verifiers}
}

// Handler wraps next with authentication/authorization enforcement. A nil
// cfg (no AuthConfig declared) leaves every request unauthenticated.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.cfg == nil || m.isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token := bearerToken(r)
		if token == "" {
			unauthorizedResponse(w, "missing bearer token")
			return
		}

		identity, err := m.verifyWithAny(r.Context(), token)
		if err != nil {
			unauthorizedResponse(w, "invalid or expired token")
			return
		}

		if rule, ok := m.matchingRule(r); ok && !rule.AllowAnonymous && !identity.satisfies(rule) {
			forbiddenResponse(w, "insufficient role or permission")
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) isPublic(path string) bool {
	for _, p := range m.cfg.PublicRoutes {
		if p == path {
			return true
		}
	}
	return false
}

func (m *Middleware) verifyWithAny(ctx context.Context, token string) (*Identity, error) {
	var lastErr error
	for _, v := range m.verifiers {
		identity, err := v.Verify(ctx, token)
		if err == nil {
			return identity, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errNoVerifiers
	}
	return nil, lastErr
}

func (m *Middleware) matchingRule(r *http.Request) (types.AccessRule, bool) {
	for _, rule := range m.cfg.AccessControl {
		if rule.Path != r.URL.Path {
			continue
		}
		if len(rule.Methods) == 0 {
			return rule, true
		}
		for _, method := range rule.Methods {
			if strings.EqualFold(method, r.Method) {
				return rule, true
			}
		}
	}
	return types.AccessRule{}, false
}

func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// IdentityFromContext extracts the Identity a Middleware attached to the
// request context, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	return identity, ok
}

func unauthorizedResponse(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `"}`))
}

func forbiddenResponse(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(`{"error":"` + message + `"}`))
}

var errNoVerifiers = errors.New("auth: no verifiers configured")
