package gateway

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xraph-labs/nexus-registry/pkg/types"
)

// Route is one HTTP-addressable entry a gateway should mount, derived from
// a single service instance's manifest and schema set. One Route covers
// every HTTP verb a path answers to, matching the shape a gateway's route
// table actually indexes by (path, not path+verb).
type Route struct {
	Path           string            `json:"path"`
	Methods        []string          `json:"methods"`
	TargetURL      string            `json:"target_url"`
	HealthURL      string            `json:"health_url"`
	ServiceName    string            `json:"service_name"`
	ServiceVersion string            `json:"service_version"`
	InstanceID     string            `json:"instance_id"`
	Middleware     []string          `json:"middleware"`
	Metadata       map[string]string `json:"metadata"`
	SchemaType     types.SchemaType  `json:"schema_type"`
	Tags           []string          `json:"tags,omitempty"`
}

// ComputeRoutes derives the full route set for a manifest from its routing
// configuration and the operations described by its OpenAPI/AsyncAPI/
// GraphQL schemas. Protocols with no natural verb/path shape (gRPC, oRPC,
// Thrift, Avro, custom) contribute no routes: they're addressed through
// their own protocol-specific transport, not the HTTP route table.
func ComputeRoutes(m *types.SchemaManifest, schemas map[types.SchemaType]map[string]interface{}) ([]Route, error) {
	var routes []Route

	base := ""
	if m.Routing.BasePath != nil {
		base = strings.TrimSuffix(*m.Routing.BasePath, "/")
	}

	for _, d := range m.Schemas {
		doc := schemas[d.SchemaType]
		switch d.SchemaType {
		case types.SchemaTypeOpenAPI:
			routes = append(routes, openAPIRoutes(m, base, doc)...)
		case types.SchemaTypeAsyncAPI:
			routes = append(routes, asyncAPIRoutes(m, base, doc)...)
		case types.SchemaTypeGraphQL:
			routes = append(routes, graphQLRoutes(m, base)...)
		}
	}

	for i := range routes {
		applyRewrites(&routes[i], m.Routing.Rewrite)
	}

	return routes, nil
}

// targetURL builds the upstream URL a gateway should forward a route's
// traffic to. The registry doesn't track per-instance listen ports, so,
// matching the reference gateway client, it assumes the service's
// well-known port 8080 addressed by service name rather than instance
// address — load balancing across instances is the gateway's concern, not
// the route table's.
func targetURL(m *types.SchemaManifest, path string) string {
	return fmt.Sprintf("http://%s:8080%s", m.ServiceName, path)
}

func healthURL(m *types.SchemaManifest) string {
	return fmt.Sprintf("http://%s:8080%s", m.ServiceName, m.Endpoints.Health)
}

func openAPIRoutes(m *types.SchemaManifest, base string, doc map[string]interface{}) []Route {
	if doc == nil {
		return nil
	}
	paths, _ := doc["paths"].(map[string]interface{})
	var routes []Route
	for path, item := range paths {
		ops, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		var methods []string
		for _, method := range []string{"get", "post", "put", "delete", "patch", "options", "head"} {
			if _, exists := ops[method]; exists {
				methods = append(methods, strings.ToUpper(method))
			}
		}
		if len(methods) == 0 {
			continue
		}
		fullPath := joinPath(base, path)
		routes = append(routes, Route{
			Path:           fullPath,
			Methods:        methods,
			TargetURL:      targetURL(m, fullPath),
			HealthURL:      healthURL(m),
			ServiceName:    m.ServiceName,
			ServiceVersion: m.ServiceVersion,
			InstanceID:     m.InstanceID,
			Middleware:     authMiddlewareNames(m),
			Metadata:       map[string]string{"schema_type": "openapi"},
			SchemaType:     types.SchemaTypeOpenAPI,
			Tags:           m.Routing.Tags,
		})
	}
	return routes
}

func asyncAPIRoutes(m *types.SchemaManifest, base string, doc map[string]interface{}) []Route {
	if doc == nil {
		return nil
	}
	channels, _ := doc["channels"].(map[string]interface{})
	var routes []Route
	for channel := range channels {
		fullPath := joinPath(base, "/ws/"+strings.TrimPrefix(channel, "/"))
		routes = append(routes, Route{
			Path:           fullPath,
			Methods:        []string{"WEBSOCKET"},
			TargetURL:      targetURL(m, fullPath),
			HealthURL:      healthURL(m),
			ServiceName:    m.ServiceName,
			ServiceVersion: m.ServiceVersion,
			InstanceID:     m.InstanceID,
			Middleware:     authMiddlewareNames(m),
			Metadata:       map[string]string{"schema_type": "asyncapi", "protocol": "websocket"},
			SchemaType:     types.SchemaTypeAsyncAPI,
			Tags:           m.Routing.Tags,
		})
	}
	return routes
}

func graphQLRoutes(m *types.SchemaManifest, base string) []Route {
	endpoint := "/graphql"
	if m.Endpoints.GraphQL != nil && *m.Endpoints.GraphQL != "" {
		endpoint = *m.Endpoints.GraphQL
	}
	fullPath := joinPath(base, endpoint)
	return []Route{{
		Path:           fullPath,
		Methods:        []string{"POST", "GET"},
		TargetURL:      targetURL(m, fullPath),
		HealthURL:      healthURL(m),
		ServiceName:    m.ServiceName,
		ServiceVersion: m.ServiceVersion,
		InstanceID:     m.InstanceID,
		Middleware:     authMiddlewareNames(m),
		Metadata:       map[string]string{"schema_type": "graphql"},
		SchemaType:     types.SchemaTypeGraphQL,
		Tags:           m.Routing.Tags,
	}}
}

// authMiddlewareNames lists the auth middleware a gateway should chain in
// front of a route, one per scheme the manifest's AuthConfig declares, so
// a gateway can see at a glance which verifier(s) it needs configured
// without re-reading the full manifest.
func authMiddlewareNames(m *types.SchemaManifest) []string {
	if m.Auth == nil || len(m.Auth.Schemes) == 0 {
		return []string{}
	}
	names := make([]string, 0, len(m.Auth.Schemes))
	for _, scheme := range m.Auth.Schemes {
		names = append(names, "auth:"+string(scheme.AuthType))
	}
	return names
}

func joinPath(base, path string) string {
	if base == "" {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

func applyRewrites(r *Route, rules []types.PathRewrite) {
	for _, rule := range rules {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			continue
		}
		if re.MatchString(r.Path) {
			r.Path = re.ReplaceAllString(r.Path, rule.Replacement)
		}
	}
}

// RouteKey uniquely identifies a route within a composed set, used to
// detect collisions between instances mounting overlapping paths.
func RouteKey(r Route) string {
	return r.Path
}
