package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/xraph-labs/nexus-registry/pkg/auth"
)

type authCheckResponse struct {
	Authenticated bool     `json:"authenticated"`
	Subject       string   `json:"subject,omitempty"`
	Email         string   `json:"email,omitempty"`
	Scopes        []string `json:"scopes,omitempty"`
	Roles         []string `json:"roles,omitempty"`
	Reason        string   `json:"reason,omitempty"`
}

// checkManifestAuth handles POST /manifests/{instanceId}/auth/check: it
// verifies the request's bearer token against the manifest's own
// AuthConfig, letting a service or gateway confirm a token would pass
// without needing to terminate the real request itself.
func (s *Server) checkManifestAuth(w http.ResponseWriter, r *http.Request) {
	instanceID := mux.Vars(r)["instanceId"]
	m, err := s.reg.GetManifest(r.Context(), instanceID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	if m.Auth == nil || len(m.Auth.Schemes) == 0 {
		writeJSON(w, http.StatusOK, authCheckResponse{Authenticated: true, Reason: "manifest declares no auth schemes"})
		return
	}

	token := bearerTokenFromRequest(r)
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, authCheckResponse{Authenticated: false, Reason: "missing bearer token"})
		return
	}

	var lastErr error
	for _, scheme := range m.Auth.Schemes {
		verifier, err := auth.NewVerifier(r.Context(), scheme)
		if err != nil {
			lastErr = err
			continue
		}
		identity, err := verifier.Verify(r.Context(), token)
		if err != nil {
			lastErr = err
			continue
		}
		writeJSON(w, http.StatusOK, authCheckResponse{
			Authenticated: true,
			Subject:       identity.Subject,
			Email:         identity.Email,
			Scopes:        identity.Scopes,
			Roles:         identity.Roles,
		})
		return
	}

	reason := "token rejected by every configured scheme"
	if lastErr != nil {
		reason = lastErr.Error()
	}
	writeJSON(w, http.StatusUnauthorized, authCheckResponse{Authenticated: false, Reason: reason})
}

func bearerTokenFromRequest(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
