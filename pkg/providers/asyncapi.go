package providers

import (
	"github.com/xraph-labs/nexus-registry/pkg/regerrors"
	"github.com/xraph-labs/nexus-registry/pkg/types"
)

// AsyncAPIProvider generates a minimal AsyncAPI 3.0 document skeleton.
type AsyncAPIProvider struct {
	specVersion string
	endpoint    string
}

func NewAsyncAPIProvider() *AsyncAPIProvider {
	return &AsyncAPIProvider{specVersion: "3.0.0", endpoint: "/asyncapi.json"}
}

func (p *AsyncAPIProvider) SchemaType() types.SchemaType { return types.SchemaTypeAsyncAPI }
func (p *AsyncAPIProvider) SpecVersion() string           { return p.specVersion }
func (p *AsyncAPIProvider) Endpoint() *string             { return &p.endpoint }
func (p *AsyncAPIProvider) ContentType() string           { return "application/json" }

func (p *AsyncAPIProvider) Generate(app Application) (map[string]interface{}, error) {
	return map[string]interface{}{
		"asyncapi": p.specVersion,
		"info": map[string]interface{}{
			"title":   app.Name(),
			"version": app.Version(),
		},
		"channels": map[string]interface{}{},
	}, nil
}

func (p *AsyncAPIProvider) Validate(schema map[string]interface{}) error {
	for _, key := range []string{"asyncapi", "info"} {
		if _, ok := schema[key]; !ok {
			return regerrors.InvalidSchema("asyncapi document missing required key: " + key)
		}
	}
	return nil
}
