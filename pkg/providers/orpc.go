package providers

import (
	"github.com/xraph-labs/nexus-registry/pkg/regerrors"
	"github.com/xraph-labs/nexus-registry/pkg/types"
)

// ORPCProvider generates a minimal oRPC document skeleton.
type ORPCProvider struct {
	specVersion string
	endpoint    string
}

func NewORPCProvider() *ORPCProvider {
	return &ORPCProvider{specVersion: "1.0.0", endpoint: "/orpc.json"}
}

func (p *ORPCProvider) SchemaType() types.SchemaType { return types.SchemaTypeORPC }
func (p *ORPCProvider) SpecVersion() string           { return p.specVersion }
func (p *ORPCProvider) Endpoint() *string             { return &p.endpoint }
func (p *ORPCProvider) ContentType() string           { return "application/json" }

func (p *ORPCProvider) Generate(app Application) (map[string]interface{}, error) {
	return map[string]interface{}{
		"orpc": p.specVersion,
		"info": map[string]interface{}{
			"title":   app.Name(),
			"version": app.Version(),
		},
		"procedures": []interface{}{},
	}, nil
}

func (p *ORPCProvider) Validate(schema map[string]interface{}) error {
	if schema == nil {
		return regerrors.InvalidSchema("orpc document must be an object")
	}
	return nil
}
