package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph-labs/nexus-registry/pkg/manifest"
	"github.com/xraph-labs/nexus-registry/pkg/registry"
	"github.com/xraph-labs/nexus-registry/pkg/types"
)

func newTestServer(t *testing.T) (*Server, registry.SchemaRegistry) {
	t.Helper()
	reg := registry.NewMemoryRegistry()
	srv := NewServer(reg, nil, nil, nil, nil)
	return srv, reg
}

func newManifestPayload(t *testing.T, serviceName, instanceID string) []byte {
	t.Helper()
	m := manifest.New(serviceName, "1.0.0", instanceID)
	m.Endpoints.Health = "/healthz"
	body, err := json.Marshal(m)
	require.NoError(t, err)
	return body
}

func TestRegisterManifestHandler(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/manifests", bytes.NewReader(newManifestPayload(t, "billing", "instance-1")))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var got types.SchemaManifest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "billing", got.ServiceName)
	assert.NotEmpty(t, got.Checksum)
}

func TestGetManifestHandlerNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/manifests/missing", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterThenGetManifestHandler(t *testing.T) {
	srv, _ := newTestServer(t)

	registerReq := httptest.NewRequest(http.MethodPost, "/manifests", bytes.NewReader(newManifestPayload(t, "billing", "instance-1")))
	registerRec := httptest.NewRecorder()
	srv.Router().ServeHTTP(registerRec, registerReq)
	require.Equal(t, http.StatusCreated, registerRec.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/manifests/instance-1", nil)
	getRec := httptest.NewRecorder()
	srv.Router().ServeHTTP(getRec, getReq)

	assert.Equal(t, http.StatusOK, getRec.Code)
	var got types.SchemaManifest
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &got))
	assert.Equal(t, "instance-1", got.InstanceID)
}

func TestListManifestsHandlerFiltersByService(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, pair := range [][2]string{{"billing", "instance-1"}, {"accounts", "instance-2"}} {
		req := httptest.NewRequest(http.MethodPost, "/manifests", bytes.NewReader(newManifestPayload(t, pair[0], pair[1])))
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/manifests?service=billing", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got []types.SchemaManifest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 1)
	assert.Equal(t, "billing", got[0].ServiceName)
}

func TestDeleteManifestHandler(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/manifests", bytes.NewReader(newManifestPayload(t, "billing", "instance-1")))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	delReq := httptest.NewRequest(http.MethodDelete, "/manifests/instance-1", nil)
	delRec := httptest.NewRecorder()
	srv.Router().ServeHTTP(delRec, delReq)
	assert.Equal(t, http.StatusNoContent, delRec.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/manifests/instance-1", nil)
	getRec := httptest.NewRecorder()
	srv.Router().ServeHTTP(getRec, getReq)
	assert.Equal(t, http.StatusNotFound, getRec.Code)
}
