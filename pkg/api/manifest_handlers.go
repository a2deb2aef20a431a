package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/xraph-labs/nexus-registry/pkg/manifest"
	"github.com/xraph-labs/nexus-registry/pkg/types"
	"github.com/xraph-labs/nexus-registry/pkg/webhook"
)

// registerManifest handles POST /manifests.
func (s *Server) registerManifest(w http.ResponseWriter, r *http.Request) {
	var m types.SchemaManifest
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	manifest.UpdateChecksum(&m)
	if err := manifest.Validate(&m); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.reg.RegisterManifest(r.Context(), &m); err != nil {
		s.recordManifestOp("register", "error")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.recordManifestOp("register", "ok")
	s.onManifestChanged(r.Context(), webhook.Event{
		Type:        types.WebhookSchemaUpdated,
		ServiceName: m.ServiceName,
		InstanceID:  m.InstanceID,
	}, &m)
	writeJSON(w, http.StatusCreated, m)
}

// getManifest handles GET /manifests/{instanceId}.
func (s *Server) getManifest(w http.ResponseWriter, r *http.Request) {
	instanceID := mux.Vars(r)["instanceId"]
	m, err := s.reg.GetManifest(r.Context(), instanceID)
	if err != nil {
		s.recordManifestOp("get", "error")
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.recordManifestOp("get", "ok")
	writeJSON(w, http.StatusOK, m)
}

// updateManifest handles PUT /manifests/{instanceId}.
func (s *Server) updateManifest(w http.ResponseWriter, r *http.Request) {
	instanceID := mux.Vars(r)["instanceId"]
	var m types.SchemaManifest
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	m.InstanceID = instanceID
	manifest.UpdateChecksum(&m)
	if err := manifest.Validate(&m); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.reg.UpdateManifest(r.Context(), &m); err != nil {
		s.recordManifestOp("update", "error")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.recordManifestOp("update", "ok")
	s.onManifestChanged(r.Context(), webhook.Event{
		Type:        types.WebhookSchemaUpdated,
		ServiceName: m.ServiceName,
		InstanceID:  m.InstanceID,
	}, &m)
	writeJSON(w, http.StatusOK, m)
}

// deleteManifest handles DELETE /manifests/{instanceId}.
func (s *Server) deleteManifest(w http.ResponseWriter, r *http.Request) {
	instanceID := mux.Vars(r)["instanceId"]
	if err := s.reg.DeleteManifest(r.Context(), instanceID); err != nil {
		s.recordManifestOp("delete", "error")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.recordManifestOp("delete", "ok")
	if s.dispatcher != nil {
		s.dispatcher.RemoveTarget(instanceID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// listManifests handles GET /manifests?service=name.
func (s *Server) listManifests(w http.ResponseWriter, r *http.Request) {
	serviceName := r.URL.Query().Get("service")
	manifests, err := s.reg.ListManifests(r.Context(), serviceName)
	if err != nil {
		s.recordManifestOp("list", "error")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.recordManifestOp("list", "ok")
	writeJSON(w, http.StatusOK, manifests)
}

func (s *Server) recordManifestOp(operation, status string) {
	if s.metrics == nil {
		return
	}
	s.metrics.ManifestOperationsTotal.WithLabelValues(operation, status).Inc()
}

// onManifestChanged keeps the webhook dispatcher's target table current
// and fires a lifecycle event to it, if one is configured.
func (s *Server) onManifestChanged(ctx context.Context, event webhook.Event, m *types.SchemaManifest) {
	if s.dispatcher == nil {
		return
	}
	if target, ok := webhook.TargetFromConfig(m.InstanceID, m.Webhook); ok {
		s.dispatcher.SetTarget(target)
	}
	s.dispatcher.Dispatch(ctx, event)
}
