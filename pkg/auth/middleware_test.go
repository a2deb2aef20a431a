package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xraph-labs/nexus-registry/pkg/types"
)

type fakeVerifier struct {
	identity *Identity
	err      error
}

func (f fakeVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

func passthroughHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewarePassesThroughWhenNoAuthConfig(t *testing.T) {
	mw := NewMiddleware(nil, nil)
	rec := httptest.NewRecorder()
	mw.Handler(passthroughHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anything", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareAllowsPublicRoutesWithoutToken(t *testing.T) {
	cfg := &types.AuthConfig{PublicRoutes: []string{"/healthz"}}
	mw := NewMiddleware(cfg, nil)

	rec := httptest.NewRecorder()
	mw.Handler(passthroughHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	cfg := &types.AuthConfig{}
	mw := NewMiddleware(cfg, nil)

	rec := httptest.NewRecorder()
	mw.Handler(passthroughHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/billing", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareAcceptsValidTokenFromAnyVerifier(t *testing.T) {
	cfg := &types.AuthConfig{}
	mw := NewMiddleware(cfg, []Verifier{fakeVerifier{identity: &Identity{Subject: "user-1"}}})

	req := httptest.NewRequest(http.MethodGet, "/billing", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	var sawIdentity *Identity
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, _ := IdentityFromContext(r.Context())
		sawIdentity = identity
		w.WriteHeader(http.StatusOK)
	})
	mw.Handler(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", sawIdentity.Subject)
}

func TestMiddlewareEnforcesAccessControlRoles(t *testing.T) {
	cfg := &types.AuthConfig{
		AccessControl: []types.AccessRule{
			{Path: "/admin", Methods: []string{"GET"}, Roles: []string{"admin"}},
		},
	}
	mw := NewMiddleware(cfg, []Verifier{fakeVerifier{identity: &Identity{Roles: []string{"viewer"}}}})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	mw.Handler(passthroughHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMiddlewareRejectsWhenAllVerifiersFail(t *testing.T) {
	cfg := &types.AuthConfig{}
	mw := NewMiddleware(cfg, []Verifier{fakeVerifier{err: assertError{}}})

	req := httptest.NewRequest(http.MethodGet, "/billing", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()
	mw.Handler(passthroughHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type assertError struct{}

func (assertError) Error() string { return "verification failed" }
