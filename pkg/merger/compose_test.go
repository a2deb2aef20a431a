package merger

import (
	"testing"

	"github.com/xraph-labs/nexus-registry/pkg/types"
)

func TestComposeDispatchesToOpenAPI(t *testing.T) {
	sources := []Source{
		{ServiceName: "billing", Document: openAPIDoc("/invoices")},
	}
	result, err := Compose(types.SchemaTypeOpenAPI, sources, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := result.Document["paths"]; !ok {
		t.Error("expected composed document to carry a paths key")
	}
	if len(result.IncludedServices) != 1 || result.IncludedServices[0] != "billing" {
		t.Errorf("expected billing included, got %v", result.IncludedServices)
	}
}

func TestComposeRejectsUnsupportedSchemaTypes(t *testing.T) {
	sources := []Source{{ServiceName: "billing", Document: map[string]interface{}{}}}

	for _, schemaType := range []types.SchemaType{types.SchemaTypeGraphQL, types.SchemaTypeThrift, types.SchemaTypeAvro, types.SchemaTypeCustom} {
		if _, err := Compose(schemaType, sources, DefaultOptions()); err == nil {
			t.Errorf("expected %s composition to be unsupported", schemaType)
		}
	}
}
