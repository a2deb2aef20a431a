package merger

import "testing"

func asyncAPIDoc(channelName string) map[string]interface{} {
	return map[string]interface{}{
		"asyncapi": "2.6.0",
		"info":     map[string]interface{}{"title": "svc", "version": "1.0.0"},
		"channels": map[string]interface{}{
			channelName: map[string]interface{}{
				"description": "a channel",
			},
		},
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"Payload": map[string]interface{}{"type": "object"},
			},
			"messages": map[string]interface{}{
				"Event": map[string]interface{}{"name": "Event"},
			},
		},
	}
}

func TestMergeAsyncAPIPrefixesChannelsAndComponentsPerService(t *testing.T) {
	sources := []Source{
		{ServiceName: "billing", Document: asyncAPIDoc("invoice.created")},
		{ServiceName: "accounts", Document: asyncAPIDoc("account.created")},
	}

	result, err := MergeAsyncAPI(sources, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := result.Spec.Channels["billing.invoice.created"]; !ok {
		t.Errorf("expected channel prefixed with owning service, got %+v", result.Spec.Channels)
	}
	if _, ok := result.Spec.Components.Schemas["billing_Payload"]; !ok {
		t.Errorf("expected schema prefixed with owning service, got %+v", result.Spec.Components.Schemas)
	}
	if len(result.IncludedServices) != 2 {
		t.Errorf("expected both services included, got %v", result.IncludedServices)
	}
}

func TestMergeAsyncAPISkipsCollidingMessageSilently(t *testing.T) {
	sources := []Source{
		{ServiceName: "billing", Document: asyncAPIDoc("invoice.created")},
		{ServiceName: "billing", Document: asyncAPIDoc("invoice.updated")},
	}
	result, err := MergeAsyncAPI(sources, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Spec.Components.Messages) != 1 {
		t.Fatalf("expected duplicate message key to collapse, got %+v", result.Spec.Components.Messages)
	}
}

func TestMergeAsyncAPIRejectsEmptySources(t *testing.T) {
	if _, err := MergeAsyncAPI(nil, DefaultOptions()); err != ErrNoSources {
		t.Fatalf("expected ErrNoSources, got %v", err)
	}
}
