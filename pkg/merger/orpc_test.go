package merger

import "testing"

func orpcDoc(procName string) map[string]interface{} {
	return map[string]interface{}{
		"procedures": []map[string]interface{}{
			{"name": procName},
		},
		"schemas": map[string]map[string]interface{}{
			"Result": {"type": "object"},
		},
	}
}

func TestMergeORPCScopesProcedureNamesByService(t *testing.T) {
	sources := []Source{
		{ServiceName: "billing", Document: orpcDoc("getInvoice")},
		{ServiceName: "accounts", Document: orpcDoc("getInvoice")},
	}

	result, err := MergeORPC(sources, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names := map[string]bool{}
	for _, p := range result.Spec.Procedures {
		names[p["name"].(string)] = true
	}
	if !names["accounts.getInvoice"] {
		t.Errorf("expected accounts' procedure to be keyed by its service name, got %+v", result.Spec.Procedures)
	}
	if !names["billing.getInvoice"] {
		t.Errorf("expected billing's procedure to be keyed by its service name, got %+v", result.Spec.Procedures)
	}
	if len(result.Conflicts) != 0 {
		t.Fatalf("expected no conflict since procedure keys are scoped by service, got %+v", result.Conflicts)
	}
}

func TestMergeORPCSchemasCollapseOnCollisionWithoutLedgerEntry(t *testing.T) {
	sources := []Source{
		{ServiceName: "billing", Document: orpcDoc("getInvoice")},
		{ServiceName: "billing", Document: orpcDoc("listInvoices")},
	}
	result, err := MergeORPC(sources, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Spec.Schemas) != 1 {
		t.Fatalf("expected the duplicate schema key to collapse, got %+v", result.Spec.Schemas)
	}
}

func TestMergeORPCRejectsEmptySources(t *testing.T) {
	if _, err := MergeORPC(nil, DefaultOptions()); err != ErrNoSources {
		t.Fatalf("expected ErrNoSources, got %v", err)
	}
}
