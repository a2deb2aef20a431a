package manifest

import (
	"strings"
	"testing"

	"github.com/xraph-labs/nexus-registry/pkg/types"
)

func validDescriptor(schemaType types.SchemaType, hash string) types.SchemaDescriptor {
	return types.SchemaDescriptor{
		SchemaType:  schemaType,
		SpecVersion: "3.0.0",
		Location:    types.SchemaLocation{LocationType: types.LocationTypeInline},
		ContentType: "application/json",
		InlineSchema: map[string]interface{}{
			"openapi": "3.0.0",
		},
		Hash: strings.Repeat(hash, 64/len(hash)+1)[:64],
	}
}

func TestNewStampsProtocolVersion(t *testing.T) {
	m := New("billing", "1.2.0", "instance-1")

	if m.Version != "1.0.0" {
		t.Errorf("expected protocol version 1.0.0, got %q", m.Version)
	}
	if m.ServiceName != "billing" {
		t.Errorf("expected service name billing, got %q", m.ServiceName)
	}
	if m.Routing.Strategy != types.DefaultMountStrategy {
		t.Errorf("expected default mount strategy, got %q", m.Routing.Strategy)
	}
}

func TestAddSchemaReplacesSameType(t *testing.T) {
	m := New("billing", "1.0.0", "instance-1")
	AddSchema(&m, validDescriptor(types.SchemaTypeOpenAPI, "a"))
	AddSchema(&m, validDescriptor(types.SchemaTypeOpenAPI, "b"))

	if len(m.Schemas) != 1 {
		t.Fatalf("expected 1 schema after replace, got %d", len(m.Schemas))
	}
	got, ok := GetSchema(&m, types.SchemaTypeOpenAPI)
	if !ok {
		t.Fatal("expected openapi schema to be present")
	}
	if got.Hash[0] != 'b' {
		t.Errorf("expected replaced descriptor to win, got hash %q", got.Hash)
	}
}

func TestAddCapabilityDeduplicates(t *testing.T) {
	m := New("billing", "1.0.0", "instance-1")
	AddCapability(&m, types.CapabilityREST)
	AddCapability(&m, types.CapabilityREST)
	AddCapability(&m, types.CapabilityGRPC)

	if len(m.Capabilities) != 2 {
		t.Fatalf("expected 2 distinct capabilities, got %d: %v", len(m.Capabilities), m.Capabilities)
	}
	if !HasCapability(&m, types.CapabilityGRPC) {
		t.Error("expected grpc capability to be present")
	}
}

func TestValidateRejectsMissingServiceName(t *testing.T) {
	m := New("", "1.0.0", "instance-1")
	m.Endpoints.Health = "/healthz"

	if err := Validate(&m); err == nil {
		t.Fatal("expected validation error for empty service name")
	}
}

func TestValidateRejectsIncompatibleVersion(t *testing.T) {
	m := New("billing", "1.0.0", "instance-1")
	m.Version = "2.0.0"
	m.Endpoints.Health = "/healthz"

	if err := Validate(&m); err == nil {
		t.Fatal("expected validation error for incompatible protocol version")
	}
}

func TestValidateAcceptsWellFormedManifest(t *testing.T) {
	m := New("billing", "1.0.0", "instance-1")
	m.Endpoints.Health = "/healthz"
	AddSchema(&m, validDescriptor(types.SchemaTypeOpenAPI, "a"))
	UpdateChecksum(&m)

	if err := Validate(&m); err != nil {
		t.Fatalf("expected valid manifest, got error: %v", err)
	}
}

func TestValidateCatchesTamperedChecksum(t *testing.T) {
	m := New("billing", "1.0.0", "instance-1")
	m.Endpoints.Health = "/healthz"
	AddSchema(&m, validDescriptor(types.SchemaTypeOpenAPI, "a"))
	UpdateChecksum(&m)
	m.Checksum = "deadbeef"

	if err := Validate(&m); err == nil {
		t.Fatal("expected checksum mismatch error")
	}
}

func TestCalculateManifestChecksumIsOrderIndependent(t *testing.T) {
	m1 := New("billing", "1.0.0", "instance-1")
	AddSchema(&m1, validDescriptor(types.SchemaTypeOpenAPI, "a"))
	AddSchema(&m1, validDescriptor(types.SchemaTypeAsyncAPI, "b"))

	m2 := New("billing", "1.0.0", "instance-1")
	AddSchema(&m2, validDescriptor(types.SchemaTypeAsyncAPI, "b"))
	AddSchema(&m2, validDescriptor(types.SchemaTypeOpenAPI, "a"))

	if CalculateManifestChecksum(&m1) != CalculateManifestChecksum(&m2) {
		t.Error("expected checksum to be independent of schema insertion order")
	}
}

func TestDiffManifestsDetectsAddedChangedRemoved(t *testing.T) {
	oldM := New("billing", "1.0.0", "instance-1")
	oldM.Endpoints.Health = "/healthz"
	AddSchema(&oldM, validDescriptor(types.SchemaTypeOpenAPI, "a"))
	AddSchema(&oldM, validDescriptor(types.SchemaTypeGRPC, "c"))
	AddCapability(&oldM, types.CapabilityREST)

	newM := New("billing", "1.0.0", "instance-1")
	newM.Endpoints.Health = "/healthz/v2"
	AddSchema(&newM, validDescriptor(types.SchemaTypeOpenAPI, "b"))
	AddSchema(&newM, validDescriptor(types.SchemaTypeAsyncAPI, "d"))
	AddCapability(&newM, types.CapabilityGRPC)

	diff := DiffManifests(&oldM, &newM)

	if !diff.HasChanges() {
		t.Fatal("expected differences to be detected")
	}
	if len(diff.Changed) != 1 || diff.Changed[0].SchemaType != types.SchemaTypeOpenAPI {
		t.Errorf("expected openapi to be reported changed, got %+v", diff.Changed)
	}
	if len(diff.Added) != 1 || diff.Added[0].SchemaType != types.SchemaTypeAsyncAPI {
		t.Errorf("expected asyncapi to be reported added, got %+v", diff.Added)
	}
	if len(diff.Removed) != 1 || diff.Removed[0].SchemaType != types.SchemaTypeGRPC {
		t.Errorf("expected grpc to be reported removed, got %+v", diff.Removed)
	}
	if !diff.EndpointsChanged {
		t.Error("expected endpoints change to be detected")
	}
	if len(diff.CapabilitiesAdded) != 1 || len(diff.CapabilitiesRemoved) != 1 {
		t.Errorf("expected one capability added and one removed, got +%v -%v", diff.CapabilitiesAdded, diff.CapabilitiesRemoved)
	}
}
