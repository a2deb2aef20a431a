package gateway

import (
	"testing"

	"github.com/xraph-labs/nexus-registry/pkg/types"
)

func testManifest(basePath string) *types.SchemaManifest {
	m := &types.SchemaManifest{
		ServiceName:    "billing",
		ServiceVersion: "v1",
		InstanceID:     "instance-1",
		Instance:       &types.InstanceMetadata{Address: "10.0.0.5:8080"},
		Endpoints:      types.SchemaEndpoints{Health: "/health"},
		Schemas: []types.SchemaDescriptor{
			{SchemaType: types.SchemaTypeOpenAPI},
			{SchemaType: types.SchemaTypeGRPC},
		},
	}
	if basePath != "" {
		m.Routing.BasePath = &basePath
	}
	return m
}

func TestComputeRoutesOpenAPIGroupsMethodsByPath(t *testing.T) {
	m := testManifest("/billing")
	schemas := map[types.SchemaType]map[string]interface{}{
		types.SchemaTypeOpenAPI: {
			"paths": map[string]interface{}{
				"/invoices": map[string]interface{}{
					"get":  map[string]interface{}{},
					"post": map[string]interface{}{},
				},
			},
		},
	}

	routes, err := ComputeRoutes(m, schemas)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(routes) != 1 {
		t.Fatalf("expected exactly one route for the shared path, got %d: %+v", len(routes), routes)
	}
	r := routes[0]
	if r.Path != "/billing/invoices" {
		t.Errorf("expected path /billing/invoices, got %q", r.Path)
	}
	if len(r.Methods) != 2 || r.Methods[0] != "GET" || r.Methods[1] != "POST" {
		t.Errorf("expected methods [GET POST] in canonical verb order, got %v", r.Methods)
	}
	if r.TargetURL != "http://billing:8080/billing/invoices" {
		t.Errorf("unexpected target url: %q", r.TargetURL)
	}
	if r.HealthURL != "http://billing:8080/health" {
		t.Errorf("unexpected health url: %q", r.HealthURL)
	}
	if r.ServiceVersion != "v1" {
		t.Errorf("expected service version v1, got %q", r.ServiceVersion)
	}
	if r.Metadata["schema_type"] != "openapi" {
		t.Errorf("expected schema_type metadata, got %+v", r.Metadata)
	}
}

func TestComputeRoutesEmitsNoRoutesForGRPC(t *testing.T) {
	m := &types.SchemaManifest{
		ServiceName: "billing",
		InstanceID:  "instance-1",
		Endpoints:   types.SchemaEndpoints{Health: "/health"},
		Schemas:     []types.SchemaDescriptor{{SchemaType: types.SchemaTypeGRPC}},
	}

	routes, err := ComputeRoutes(m, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(routes) != 0 {
		t.Errorf("expected no routes for a gRPC-only manifest, got %+v", routes)
	}
}

func TestComputeRoutesAppliesPathRewrites(t *testing.T) {
	m := testManifest("")
	m.Schemas = []types.SchemaDescriptor{{SchemaType: types.SchemaTypeGraphQL}}
	m.Routing.Rewrite = []types.PathRewrite{
		{Pattern: "^/graphql$", Replacement: "/api/graphql"},
	}

	routes, err := ComputeRoutes(m, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(routes) != 1 {
		t.Fatalf("expected exactly one route, got %d", len(routes))
	}
	if routes[0].Path != "/api/graphql" {
		t.Errorf("expected rewritten path /api/graphql, got %q", routes[0].Path)
	}
}

func TestComputeRoutesGraphQLHonorsManifestEndpoint(t *testing.T) {
	custom := "/gql"
	m := testManifest("")
	m.Endpoints.GraphQL = &custom
	m.Schemas = []types.SchemaDescriptor{{SchemaType: types.SchemaTypeGraphQL}}

	routes, err := ComputeRoutes(m, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(routes) != 1 || routes[0].Path != "/gql" {
		t.Fatalf("expected the manifest's graphql endpoint to be honored, got %+v", routes)
	}
	if len(routes[0].Methods) != 2 || routes[0].Methods[0] != "POST" || routes[0].Methods[1] != "GET" {
		t.Errorf("expected methods [POST GET], got %v", routes[0].Methods)
	}
}

func TestComputeRoutesGraphQLDefaultsToSlashGraphQL(t *testing.T) {
	m := testManifest("")
	m.Schemas = []types.SchemaDescriptor{{SchemaType: types.SchemaTypeGraphQL}}

	routes, err := ComputeRoutes(m, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(routes) != 1 || routes[0].Path != "/graphql" {
		t.Fatalf("expected default /graphql path, got %+v", routes)
	}
}

func TestComputeRoutesAsyncAPIUsesWebsocketMethod(t *testing.T) {
	m := testManifest("")
	m.Schemas = []types.SchemaDescriptor{{SchemaType: types.SchemaTypeAsyncAPI}}
	schemas := map[types.SchemaType]map[string]interface{}{
		types.SchemaTypeAsyncAPI: {
			"channels": map[string]interface{}{
				"invoice.created": map[string]interface{}{},
			},
		},
	}

	routes, err := ComputeRoutes(m, schemas)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(routes) != 1 {
		t.Fatalf("expected one route for the channel, got %+v", routes)
	}
	if len(routes[0].Methods) != 1 || routes[0].Methods[0] != "WEBSOCKET" {
		t.Errorf("expected methods [WEBSOCKET], got %v", routes[0].Methods)
	}
	if routes[0].Metadata["protocol"] != "websocket" {
		t.Errorf("expected protocol=websocket metadata, got %+v", routes[0].Metadata)
	}
}

func TestRouteKeyIsThePath(t *testing.T) {
	r := Route{Path: "/billing/invoices"}
	if got := RouteKey(r); got != "/billing/invoices" {
		t.Errorf("unexpected route key: %q", got)
	}
}
