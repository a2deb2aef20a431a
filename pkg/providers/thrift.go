package providers

import (
	"fmt"

	"github.com/xraph-labs/nexus-registry/pkg/regerrors"
	"github.com/xraph-labs/nexus-registry/pkg/types"
)

// ThriftProvider generates a minimal Thrift IDL skeleton.
type ThriftProvider struct {
	specVersion string
}

func NewThriftProvider() *ThriftProvider {
	return &ThriftProvider{specVersion: "0.19.0"}
}

func (p *ThriftProvider) SchemaType() types.SchemaType { return types.SchemaTypeThrift }
func (p *ThriftProvider) SpecVersion() string           { return p.specVersion }
func (p *ThriftProvider) Endpoint() *string              { return nil }
func (p *ThriftProvider) ContentType() string            { return "application/x-thrift" }

func (p *ThriftProvider) Generate(app Application) (map[string]interface{}, error) {
	return map[string]interface{}{
		"namespace": fmt.Sprintf("com.%s", app.Name()),
		"services":  []interface{}{},
		"structs":   []interface{}{},
	}, nil
}

func (p *ThriftProvider) Validate(schema map[string]interface{}) error {
	if schema == nil {
		return regerrors.InvalidSchema("thrift document must be an object")
	}
	return nil
}
