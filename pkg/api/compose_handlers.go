package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/xraph-labs/nexus-registry/pkg/merger"
	"github.com/xraph-labs/nexus-registry/pkg/types"
)

// composeRequest is the body of a POST /compose/{schemaType} call: one
// document per contributing service, keyed by service name.
type composeRequest struct {
	Sources  map[string]map[string]interface{} `json:"sources"`
	Strategy types.ConflictStrategy             `json:"strategy,omitempty"`
}

type composeResponse struct {
	Document         map[string]interface{} `json:"document"`
	IncludedServices []string                `json:"included_services,omitempty"`
	ExcludedServices []string                `json:"excluded_services,omitempty"`
	Conflicts        []merger.Conflict       `json:"conflicts,omitempty"`
	Warnings         []string                `json:"warnings,omitempty"`
}

// composeSchemas handles POST /compose/{schemaType}, merging every
// submitted source document for that schema type into one composed
// document under the requested conflict strategy.
func (s *Server) composeSchemas(w http.ResponseWriter, r *http.Request) {
	schemaType := types.SchemaType(mux.Vars(r)["schemaType"])

	var req composeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Sources) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "sources must not be empty"})
		return
	}

	opts := merger.DefaultOptions()
	if req.Strategy != "" {
		opts.Strategy = req.Strategy
	}

	sources := make([]merger.Source, 0, len(req.Sources))
	for serviceName, doc := range req.Sources {
		sources = append(sources, merger.Source{ServiceName: serviceName, Document: doc})
	}

	start := time.Now()
	result, err := merger.Compose(schemaType, sources, opts)
	if s.metrics != nil {
		s.metrics.ComposeDuration.WithLabelValues(string(schemaType)).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		s.recordComposeOutcome(schemaType, "error")
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.recordComposeOutcome(schemaType, "ok")
	if s.metrics != nil {
		for _, c := range result.Conflicts {
			s.metrics.ComposeConflictsTotal.WithLabelValues(string(schemaType), c.ConflictType).Inc()
		}
	}

	resp := composeResponse{
		Document:         result.Document,
		IncludedServices: result.IncludedServices,
		ExcludedServices: result.ExcludedServices,
		Conflicts:        result.Conflicts,
	}
	for _, warn := range result.Warnings {
		resp.Warnings = append(resp.Warnings, warn.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) recordComposeOutcome(schemaType types.SchemaType, status string) {
	if s.metrics == nil {
		return
	}
	s.metrics.ComposeOperationsTotal.WithLabelValues(string(schemaType), status).Inc()
}
