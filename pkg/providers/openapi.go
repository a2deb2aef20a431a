package providers

import (
	"github.com/xraph-labs/nexus-registry/pkg/regerrors"
	"github.com/xraph-labs/nexus-registry/pkg/types"
)

// OpenAPIProvider generates a minimal OpenAPI 3.1 document skeleton.
type OpenAPIProvider struct {
	specVersion string
	endpoint    string
}

// NewOpenAPIProvider returns the default OpenAPI 3.1 provider.
func NewOpenAPIProvider() *OpenAPIProvider {
	return &OpenAPIProvider{specVersion: "3.1.0", endpoint: "/openapi.json"}
}

func (p *OpenAPIProvider) SchemaType() types.SchemaType { return types.SchemaTypeOpenAPI }
func (p *OpenAPIProvider) SpecVersion() string           { return p.specVersion }
func (p *OpenAPIProvider) Endpoint() *string             { return &p.endpoint }
func (p *OpenAPIProvider) ContentType() string           { return "application/json" }

func (p *OpenAPIProvider) Generate(app Application) (map[string]interface{}, error) {
	return map[string]interface{}{
		"openapi": p.specVersion,
		"info": map[string]interface{}{
			"title":       app.Name(),
			"version":     app.Version(),
			"description": "",
		},
		"servers": []interface{}{
			map[string]interface{}{"url": "/"},
		},
		"paths": map[string]interface{}{},
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{},
		},
	}, nil
}

func (p *OpenAPIProvider) Validate(schema map[string]interface{}) error {
	for _, key := range []string{"openapi", "info", "paths"} {
		if _, ok := schema[key]; !ok {
			return regerrors.InvalidSchema("openapi document missing required key: " + key)
		}
	}
	return nil
}
