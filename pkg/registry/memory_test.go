package registry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/xraph-labs/nexus-registry/pkg/manifest"
	"github.com/xraph-labs/nexus-registry/pkg/regerrors"
	"github.com/xraph-labs/nexus-registry/pkg/types"
)

func newValidManifest(serviceName, instanceID string) types.SchemaManifest {
	m := manifest.New(serviceName, "1.0.0", instanceID)
	m.Endpoints.Health = "/healthz"
	return m
}

func TestMemoryRegistryRegisterAndGetManifest(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()
	m := newValidManifest("billing", "instance-1")

	if err := reg.RegisterManifest(ctx, &m); err != nil {
		t.Fatalf("unexpected error registering manifest: %v", err)
	}

	got, err := reg.GetManifest(ctx, "instance-1")
	if err != nil {
		t.Fatalf("unexpected error fetching manifest: %v", err)
	}
	if got.ServiceName != "billing" {
		t.Errorf("expected service name billing, got %q", got.ServiceName)
	}
}

func TestMemoryRegistryGetManifestNotFound(t *testing.T) {
	reg := NewMemoryRegistry()
	if _, err := reg.GetManifest(context.Background(), "missing"); !errors.Is(err, regerrors.ErrManifestNotFound) {
		t.Fatalf("expected ErrManifestNotFound, got %v", err)
	}
}

func TestMemoryRegistryUpdateManifestRequiresExisting(t *testing.T) {
	reg := NewMemoryRegistry()
	m := newValidManifest("billing", "instance-1")
	if err := reg.UpdateManifest(context.Background(), &m); !errors.Is(err, regerrors.ErrManifestNotFound) {
		t.Fatalf("expected ErrManifestNotFound updating a manifest that was never registered, got %v", err)
	}
}

func TestMemoryRegistryListManifestsFiltersByService(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()
	billing1 := newValidManifest("billing", "instance-1")
	billing2 := newValidManifest("billing", "instance-2")
	accounts := newValidManifest("accounts", "instance-3")

	for _, m := range []types.SchemaManifest{billing1, billing2, accounts} {
		m := m
		if err := reg.RegisterManifest(ctx, &m); err != nil {
			t.Fatalf("unexpected error registering manifest: %v", err)
		}
	}

	billingOnly, err := reg.ListManifests(ctx, "billing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(billingOnly) != 2 {
		t.Errorf("expected 2 billing manifests, got %d", len(billingOnly))
	}

	all, err := reg.ListManifests(ctx, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 manifests total, got %d", len(all))
	}
}

func TestMemoryRegistryPublishAndFetchSchema(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()
	schema := json.RawMessage(`{"openapi":"3.0.0"}`)

	if err := reg.PublishSchema(ctx, "billing/openapi", schema); err != nil {
		t.Fatalf("unexpected error publishing schema: %v", err)
	}
	got, err := reg.FetchSchema(ctx, "billing/openapi")
	if err != nil {
		t.Fatalf("unexpected error fetching schema: %v", err)
	}
	if string(got) != string(schema) {
		t.Errorf("expected %s, got %s", schema, got)
	}

	if err := reg.DeleteSchema(ctx, "billing/openapi"); err != nil {
		t.Fatalf("unexpected error deleting schema: %v", err)
	}
	if _, err := reg.FetchSchema(ctx, "billing/openapi"); !errors.Is(err, regerrors.ErrSchemaNotFound) {
		t.Fatalf("expected ErrSchemaNotFound after delete, got %v", err)
	}
}

func TestMemoryRegistryWatchManifestsDeliversEvents(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan ManifestEvent, 4)
	if err := reg.WatchManifests(ctx, "billing", func(e ManifestEvent) {
		events <- e
	}); err != nil {
		t.Fatalf("unexpected error starting watch: %v", err)
	}

	m := newValidManifest("billing", "instance-1")
	if err := reg.RegisterManifest(ctx, &m); err != nil {
		t.Fatalf("unexpected error registering manifest: %v", err)
	}

	select {
	case e := <-events:
		if e.EventType != EventAdded {
			t.Errorf("expected EventAdded, got %v", e.EventType)
		}
		if e.Manifest.InstanceID != "instance-1" {
			t.Errorf("expected instance-1, got %q", e.Manifest.InstanceID)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a watch event to be delivered")
	}
}

func TestMemoryRegistryRejectsOperationsAfterClose(t *testing.T) {
	reg := NewMemoryRegistry()
	ctx := context.Background()
	if err := reg.Close(ctx); err != nil {
		t.Fatalf("unexpected error closing registry: %v", err)
	}

	m := newValidManifest("billing", "instance-1")
	if err := reg.RegisterManifest(ctx, &m); err == nil {
		t.Error("expected registration to fail on a closed registry")
	}
	if err := reg.Health(ctx); err == nil {
		t.Error("expected health check to fail on a closed registry")
	}
}
