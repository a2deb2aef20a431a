package providers

import (
	"fmt"

	"github.com/xraph-labs/nexus-registry/pkg/regerrors"
	"github.com/xraph-labs/nexus-registry/pkg/types"
)

// GraphQLProvider generates a minimal GraphQL SDL skeleton.
type GraphQLProvider struct {
	specVersion string
	endpoint    string
}

func NewGraphQLProvider() *GraphQLProvider {
	return &GraphQLProvider{specVersion: "2023", endpoint: "/graphql"}
}

func (p *GraphQLProvider) SchemaType() types.SchemaType { return types.SchemaTypeGraphQL }
func (p *GraphQLProvider) SpecVersion() string           { return p.specVersion }
func (p *GraphQLProvider) Endpoint() *string             { return &p.endpoint }
func (p *GraphQLProvider) ContentType() string           { return "application/json" }

func (p *GraphQLProvider) Generate(app Application) (map[string]interface{}, error) {
	return map[string]interface{}{
		"version": p.specVersion,
		"schema":  fmt.Sprintf("type Query {\n  %s: String\n}", app.Name()),
		"types":   []interface{}{},
	}, nil
}

func (p *GraphQLProvider) Validate(schema map[string]interface{}) error {
	if schema == nil {
		return regerrors.InvalidSchema("graphql document must be an object")
	}
	return nil
}
