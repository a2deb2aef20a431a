package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph-labs/nexus-registry/pkg/types"
)

func TestNewVerifierRejectsUnsupportedSchemes(t *testing.T) {
	_, err := NewVerifier(context.Background(), types.AuthScheme{AuthType: types.AuthTypeMTLS})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mtls")
}

func TestNewOAuth2VerifierRequiresIntrospectionURL(t *testing.T) {
	_, err := NewOAuth2Verifier(map[string]interface{}{})
	assert.Error(t, err)
}

func TestOAuth2VerifierAcceptsActiveToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer good-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(introspectionResponse{
			Active: true,
			Sub:    "user-1",
			Email:  "user@example.com",
			Scope:  "read write",
			Groups: []string{"admins"},
		})
	}))
	defer srv.Close()

	v, err := NewOAuth2Verifier(map[string]interface{}{"introspection_url": srv.URL})
	require.NoError(t, err)

	identity, err := v.Verify(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.Subject)
	assert.True(t, identity.HasScope("write"))
	assert.True(t, identity.HasRole("admins"))
}

func TestOAuth2VerifierRejectsInactiveToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(introspectionResponse{Active: false})
	}))
	defer srv.Close()

	v, err := NewOAuth2Verifier(map[string]interface{}{"introspection_url": srv.URL})
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), "revoked-token")
	assert.Error(t, err)
}

func TestIdentitySatisfiesRuleWithNoRequirements(t *testing.T) {
	id := Identity{Subject: "user-1"}
	assert.True(t, id.satisfies(types.AccessRule{}))
}

func TestIdentitySatisfiesRuleByRoleOrPermission(t *testing.T) {
	id := Identity{Roles: []string{"editor"}, Scopes: []string{"billing:write"}}

	assert.True(t, id.satisfies(types.AccessRule{Roles: []string{"editor"}}))
	assert.True(t, id.satisfies(types.AccessRule{Permissions: []string{"billing:write"}}))
	assert.False(t, id.satisfies(types.AccessRule{Roles: []string{"owner"}, Permissions: []string{"billing:admin"}}))
}
