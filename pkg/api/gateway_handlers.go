package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// gatewayRoutes handles GET /gateway/routes, returning the gateway
// client's current computed route table. Responds 503 if no gateway
// client was wired (the registry was started in registry-only mode).
func (s *Server) gatewayRoutes(w http.ResponseWriter, r *http.Request) {
	if s.gatewayCli == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "gateway client not configured"})
		return
	}
	writeJSON(w, http.StatusOK, s.gatewayCli.Routes())
}

// clearGatewayCache handles DELETE /gateway/cache.
func (s *Server) clearGatewayCache(w http.ResponseWriter, r *http.Request) {
	if s.gatewayCli == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "gateway client not configured"})
		return
	}
	if err := s.gatewayCli.ClearCache(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// webhookDeliveries handles GET /webhooks/{instanceId}/deliveries.
func (s *Server) webhookDeliveries(w http.ResponseWriter, r *http.Request) {
	if s.dispatcher == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "webhook dispatcher not configured"})
		return
	}
	instanceID := mux.Vars(r)["instanceId"]
	limit := 50
	writeJSON(w, http.StatusOK, s.dispatcher.DeliveryLogs(instanceID, limit))
}
