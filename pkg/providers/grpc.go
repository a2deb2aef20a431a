package providers

import (
	"github.com/xraph-labs/nexus-registry/pkg/regerrors"
	"github.com/xraph-labs/nexus-registry/pkg/types"
)

// GRPCProvider generates a minimal proto3 package skeleton.
type GRPCProvider struct {
	specVersion string
}

func NewGRPCProvider() *GRPCProvider {
	return &GRPCProvider{specVersion: "proto3"}
}

func (p *GRPCProvider) SchemaType() types.SchemaType { return types.SchemaTypeGRPC }
func (p *GRPCProvider) SpecVersion() string           { return p.specVersion }
func (p *GRPCProvider) Endpoint() *string              { return nil }
func (p *GRPCProvider) ContentType() string            { return "application/x-protobuf" }

func (p *GRPCProvider) Generate(app Application) (map[string]interface{}, error) {
	return map[string]interface{}{
		"syntax":   p.specVersion,
		"package":  app.Name(),
		"services": []interface{}{},
		"messages": []interface{}{},
	}, nil
}

func (p *GRPCProvider) Validate(schema map[string]interface{}) error {
	if schema == nil {
		return regerrors.InvalidSchema("grpc document must be an object")
	}
	return nil
}
