// Package api exposes the registry's manifest, schema, composition and
// gateway operations over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/xraph-labs/nexus-registry/pkg/gateway"
	"github.com/xraph-labs/nexus-registry/pkg/observability"
	"github.com/xraph-labs/nexus-registry/pkg/providers"
	"github.com/xraph-labs/nexus-registry/pkg/registry"
	"github.com/xraph-labs/nexus-registry/pkg/webhook"
)

// Server wires a registry, a provider registry, an optional gateway
// client and an optional webhook dispatcher behind an HTTP router.
type Server struct {
	reg        registry.SchemaRegistry
	providers  *providers.Registry
	gatewayCli *gateway.Client
	dispatcher *webhook.Dispatcher
	logger     *observability.Logger
	metrics    *observability.Metrics
	router     *mux.Router
}

// NewServer builds a Server and registers all of its routes. gatewayCli
// and dispatcher may be nil; the routes that depend on them respond 503
// when absent.
func NewServer(reg registry.SchemaRegistry, providerRegistry *providers.Registry, gatewayCli *gateway.Client, dispatcher *webhook.Dispatcher, logger *observability.Logger) *Server {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	s := &Server{
		reg:        reg,
		providers:  providerRegistry,
		gatewayCli: gatewayCli,
		dispatcher: dispatcher,
		logger:     logger,
		router:     mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

// Router returns the underlying mux.Router so it can be wrapped (e.g. by
// an OpenTelemetry HTTP handler) before being handed to an http.Server.
func (s *Server) Router() *mux.Router {
	return s.router
}

// WithMetrics attaches a Prometheus metrics sink and installs the HTTP
// request-count/duration middleware on the router. Routes are labeled by
// their registered mux template (e.g. "/manifests/{instanceId}") rather
// than the raw request path, keeping label cardinality bounded.
func (s *Server) WithMetrics(m *observability.Metrics) *Server {
	s.metrics = m
	if m == nil {
		return s
	}
	s.router.Use(observability.HTTPMetricsMiddleware(m, func(r *http.Request) string {
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				return tmpl
			}
		}
		return r.URL.Path
	}))
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	s.router.HandleFunc("/readyz", s.readyz).Methods(http.MethodGet)

	s.router.HandleFunc("/manifests", s.registerManifest).Methods(http.MethodPost)
	s.router.HandleFunc("/manifests", s.listManifests).Methods(http.MethodGet)
	s.router.HandleFunc("/manifests/{instanceId}", s.getManifest).Methods(http.MethodGet)
	s.router.HandleFunc("/manifests/{instanceId}", s.updateManifest).Methods(http.MethodPut)
	s.router.HandleFunc("/manifests/{instanceId}", s.deleteManifest).Methods(http.MethodDelete)

	s.router.HandleFunc("/schemas/{path:.*}", s.publishSchema).Methods(http.MethodPost)
	s.router.HandleFunc("/schemas/{path:.*}", s.fetchSchema).Methods(http.MethodGet)
	s.router.HandleFunc("/schemas/{path:.*}", s.deleteSchema).Methods(http.MethodDelete)

	s.router.HandleFunc("/compose/{schemaType}", s.composeSchemas).Methods(http.MethodPost)

	s.router.HandleFunc("/gateway/routes", s.gatewayRoutes).Methods(http.MethodGet)
	s.router.HandleFunc("/gateway/cache", s.clearGatewayCache).Methods(http.MethodDelete)

	s.router.HandleFunc("/webhooks/{instanceId}/deliveries", s.webhookDeliveries).Methods(http.MethodGet)

	s.router.HandleFunc("/manifests/{instanceId}/auth/check", s.checkManifestAuth).Methods(http.MethodPost)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()
	if err := s.reg.Health(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
