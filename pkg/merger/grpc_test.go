package merger

import "testing"

func grpcDoc(svcName, msgName, enumName string) map[string]interface{} {
	return map[string]interface{}{
		"syntax":  "proto3",
		"package": "demo",
		"services": []map[string]interface{}{
			{"name": svcName},
		},
		"messages": []map[string]interface{}{
			{"name": msgName},
		},
		"enums": []map[string]interface{}{
			{"name": enumName},
		},
	}
}

func TestMergeGRPCPrefixesServicesMessagesAndEnums(t *testing.T) {
	sources := []Source{
		{ServiceName: "billing", Document: grpcDoc("BillingService", "Invoice", "Status")},
		{ServiceName: "accounts", Document: grpcDoc("AccountsService", "Account", "Tier")},
	}

	result, err := MergeGRPC(sources, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Spec.Services) != 2 || len(result.Spec.Messages) != 2 || len(result.Spec.Enums) != 2 {
		t.Fatalf("expected two of each, got %+v", result.Spec)
	}
	names := map[string]bool{}
	for _, s := range result.Spec.Services {
		names[s["name"].(string)] = true
	}
	if !names["billing_BillingService"] || !names["accounts_AccountsService"] {
		t.Errorf("expected service names prefixed with their owning service, got %+v", result.Spec.Services)
	}
}

func TestMergeGRPCSkipsColldingMessagesSilently(t *testing.T) {
	sources := []Source{
		{ServiceName: "billing", Document: grpcDoc("BillingService", "Shared", "Status")},
		{ServiceName: "billing", Document: grpcDoc("OtherService", "Shared", "Tier")},
	}
	result, err := MergeGRPC(sources, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Spec.Messages) != 1 {
		t.Fatalf("expected collapsed duplicate message key, got %+v", result.Spec.Messages)
	}
	if len(result.Conflicts) != 0 {
		t.Errorf("message collisions should not be recorded in the ledger, got %+v", result.Conflicts)
	}
}

func TestMergeGRPCWarnsOnDuplicateEnumWithoutRecordingConflict(t *testing.T) {
	sources := []Source{
		{ServiceName: "billing", Document: grpcDoc("BillingService", "Invoice", "Shared")},
		{ServiceName: "billing", Document: grpcDoc("OtherService", "Account", "Shared")},
	}
	result, err := MergeGRPC(sources, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected one warning for the duplicate enum, got %v", result.Warnings)
	}
	if len(result.Conflicts) != 0 {
		t.Errorf("enum collisions should not enter the conflict ledger, got %+v", result.Conflicts)
	}
}

func TestMergeGRPCRejectsEmptySources(t *testing.T) {
	if _, err := MergeGRPC(nil, DefaultOptions()); err != ErrNoSources {
		t.Fatalf("expected ErrNoSources, got %v", err)
	}
}

func TestParseProtoSourceExtractsDeclarations(t *testing.T) {
	const proto = `syntax = "proto3";
package demo;

service Widgets {
  rpc Get(GetRequest) returns (GetResponse);
}

message GetRequest {
  string id = 1;
}

message GetResponse {
  string name = 1;
}

enum Status {
  STATUS_UNKNOWN = 0;
}
`
	desc, err := ParseProtoSource("widgets.proto", proto)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if desc.Package != "demo" {
		t.Errorf("expected package demo, got %q", desc.Package)
	}
	if len(desc.Services) != 1 || desc.Services[0] != "Widgets" {
		t.Errorf("expected Widgets service, got %v", desc.Services)
	}
	if len(desc.Messages) != 2 {
		t.Errorf("expected 2 messages, got %v", desc.Messages)
	}
	if len(desc.Enums) != 1 || desc.Enums[0] != "Status" {
		t.Errorf("expected Status enum, got %v", desc.Enums)
	}
}

func TestMergeProtoDescriptorsPrefixesAcrossServices(t *testing.T) {
	descriptors := map[string]*ProtoDescriptor{
		"billing":  {Package: "billing", Services: []string{"BillingService"}, Messages: []string{"Invoice"}, Enums: []string{"Status"}},
		"accounts": {Package: "accounts", Services: []string{"AccountsService"}, Messages: []string{"Account"}, Enums: []string{"Tier"}},
	}
	result, err := MergeProtoDescriptors(descriptors, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Spec.Services) != 2 {
		t.Fatalf("expected 2 services, got %+v", result.Spec.Services)
	}
	if len(result.IncludedServices) != 2 {
		t.Errorf("expected both descriptors included, got %v", result.IncludedServices)
	}
}
