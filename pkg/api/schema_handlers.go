package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
)

// publishSchema handles POST /schemas/{path}. The request body is stored
// verbatim as the schema's raw JSON document.
func (s *Server) publishSchema(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !json.Valid(body) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body is not valid JSON"})
		return
	}
	if err := s.reg.PublishSchema(r.Context(), path, body); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// fetchSchema handles GET /schemas/{path}.
func (s *Server) fetchSchema(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]
	schema, err := s.reg.FetchSchema(r.Context(), path)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(schema)
}

// deleteSchema handles DELETE /schemas/{path}.
func (s *Server) deleteSchema(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]
	if err := s.reg.DeleteSchema(r.Context(), path); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
