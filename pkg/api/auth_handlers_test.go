package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph-labs/nexus-registry/pkg/types"
)

func TestCheckManifestAuthNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/manifests/missing/auth/check", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckManifestAuthNoSchemesAllowsAnyRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	registerReq := httptest.NewRequest(http.MethodPost, "/manifests", bytes.NewReader(newManifestPayload(t, "billing", "instance-1")))
	registerRec := httptest.NewRecorder()
	srv.Router().ServeHTTP(registerRec, registerReq)
	require.Equal(t, http.StatusCreated, registerRec.Code)

	req := httptest.NewRequest(http.MethodPost, "/manifests/instance-1/auth/check", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp authCheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Authenticated)
}

func TestCheckManifestAuthMissingToken(t *testing.T) {
	srv, _ := newTestServer(t)

	m := newManifestWithOAuth2(t, "billing", "instance-1", "http://example.invalid/introspect")
	registerReq := httptest.NewRequest(http.MethodPost, "/manifests", bytes.NewReader(m))
	registerRec := httptest.NewRecorder()
	srv.Router().ServeHTTP(registerRec, registerReq)
	require.Equal(t, http.StatusCreated, registerRec.Code)

	req := httptest.NewRequest(http.MethodPost, "/manifests/instance-1/auth/check", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckManifestAuthAcceptsActiveToken(t *testing.T) {
	introspect := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"active": true,
			"sub":    "user-1",
			"scope":  "read",
		})
	}))
	defer introspect.Close()

	srv, _ := newTestServer(t)
	m := newManifestWithOAuth2(t, "billing", "instance-1", introspect.URL)
	registerReq := httptest.NewRequest(http.MethodPost, "/manifests", bytes.NewReader(m))
	registerRec := httptest.NewRecorder()
	srv.Router().ServeHTTP(registerRec, registerReq)
	require.Equal(t, http.StatusCreated, registerRec.Code)

	req := httptest.NewRequest(http.MethodPost, "/manifests/instance-1/auth/check", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp authCheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Authenticated)
	assert.Equal(t, "user-1", resp.Subject)
}

func newManifestWithOAuth2(t *testing.T, serviceName, instanceID, introspectionURL string) []byte {
	t.Helper()
	body := newManifestPayload(t, serviceName, instanceID)
	var m types.SchemaManifest
	require.NoError(t, json.Unmarshal(body, &m))
	m.Auth = &types.AuthConfig{
		Schemes: []types.AuthScheme{
			{AuthType: types.AuthTypeOAuth2, Config: map[string]interface{}{"introspection_url": introspectionURL}},
		},
	}
	out, err := json.Marshal(m)
	require.NoError(t, err)
	return out
}
