package registry

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/xraph-labs/nexus-registry/pkg/manifest"
	"github.com/xraph-labs/nexus-registry/pkg/regerrors"
	"github.com/xraph-labs/nexus-registry/pkg/types"
)

// MemoryRegistry is a thread-safe, process-local SchemaRegistry. It is
// meant for tests and local development, not production use.
type MemoryRegistry struct {
	mu        sync.RWMutex
	manifests map[string]types.SchemaManifest // keyed by instance_id
	schemas   map[string]json.RawMessage       // keyed by path

	watchMu  sync.RWMutex
	watchers map[string][]chan ManifestEvent // keyed by service_name ("" = global)

	closedMu sync.RWMutex
	closed   bool
}

// NewMemoryRegistry constructs an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		manifests: make(map[string]types.SchemaManifest),
		schemas:   make(map[string]json.RawMessage),
		watchers:  make(map[string][]chan ManifestEvent),
	}
}

func (r *MemoryRegistry) isClosed() bool {
	r.closedMu.RLock()
	defer r.closedMu.RUnlock()
	return r.closed
}

func (r *MemoryRegistry) notify(serviceName string, event ManifestEvent) {
	r.watchMu.RLock()
	defer r.watchMu.RUnlock()

	for _, ch := range r.watchers[serviceName] {
		select {
		case ch <- event:
		default:
		}
	}
	if serviceName != "" {
		for _, ch := range r.watchers[""] {
			select {
			case ch <- event:
			default:
			}
		}
	}
}

// Clear removes all manifests and schemas; useful for resetting between
// tests.
func (r *MemoryRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.manifests = make(map[string]types.SchemaManifest)
	r.schemas = make(map[string]json.RawMessage)
}

func (r *MemoryRegistry) RegisterManifest(ctx context.Context, m *types.SchemaManifest) error {
	if r.isClosed() {
		return regerrors.BackendUnavailable("registry is closed")
	}
	if err := manifest.Validate(m); err != nil {
		return err
	}

	r.mu.Lock()
	r.manifests[m.InstanceID] = *m
	r.mu.Unlock() // released before notifying watchers

	r.notify(m.ServiceName, ManifestEvent{EventType: EventAdded, Manifest: *m, Timestamp: time.Now().Unix()})
	return nil
}

func (r *MemoryRegistry) GetManifest(ctx context.Context, instanceID string) (types.SchemaManifest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.manifests[instanceID]
	if !ok {
		return types.SchemaManifest{}, regerrors.ErrManifestNotFound
	}
	return m, nil
}

func (r *MemoryRegistry) UpdateManifest(ctx context.Context, m *types.SchemaManifest) error {
	if r.isClosed() {
		return regerrors.BackendUnavailable("registry is closed")
	}
	if err := manifest.Validate(m); err != nil {
		return err
	}

	r.mu.Lock()
	if _, ok := r.manifests[m.InstanceID]; !ok {
		r.mu.Unlock()
		return regerrors.ErrManifestNotFound
	}
	r.manifests[m.InstanceID] = *m
	r.mu.Unlock()

	r.notify(m.ServiceName, ManifestEvent{EventType: EventUpdated, Manifest: *m, Timestamp: time.Now().Unix()})
	return nil
}

func (r *MemoryRegistry) DeleteManifest(ctx context.Context, instanceID string) error {
	if r.isClosed() {
		return regerrors.BackendUnavailable("registry is closed")
	}

	r.mu.Lock()
	m, ok := r.manifests[instanceID]
	if !ok {
		r.mu.Unlock()
		return regerrors.ErrManifestNotFound
	}
	delete(r.manifests, instanceID)
	r.mu.Unlock()

	r.notify(m.ServiceName, ManifestEvent{EventType: EventRemoved, Manifest: m, Timestamp: time.Now().Unix()})
	return nil
}

func (r *MemoryRegistry) ListManifests(ctx context.Context, serviceName string) ([]types.SchemaManifest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []types.SchemaManifest
	for _, m := range r.manifests {
		if serviceName == "" || m.ServiceName == serviceName {
			results = append(results, m)
		}
	}
	return results, nil
}

func (r *MemoryRegistry) PublishSchema(ctx context.Context, path string, schema json.RawMessage) error {
	if r.isClosed() {
		return regerrors.BackendUnavailable("registry is closed")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[path] = schema
	return nil
}

func (r *MemoryRegistry) FetchSchema(ctx context.Context, path string) (json.RawMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[path]
	if !ok {
		return nil, regerrors.ErrSchemaNotFound
	}
	return s, nil
}

func (r *MemoryRegistry) DeleteSchema(ctx context.Context, path string) error {
	if r.isClosed() {
		return regerrors.BackendUnavailable("registry is closed")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.schemas, path) // idempotent: no error if missing
	return nil
}

func (r *MemoryRegistry) WatchManifests(ctx context.Context, serviceName string, onChange ManifestChangeHandler) error {
	if r.isClosed() {
		return regerrors.BackendUnavailable("registry is closed")
	}

	ch := make(chan ManifestEvent, 64)
	r.watchMu.Lock()
	r.watchers[serviceName] = append(r.watchers[serviceName], ch)
	r.watchMu.Unlock()

	go func() {
		for {
			select {
			case event, ok := <-ch:
				if !ok {
					return
				}
				onChange(event)
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// WatchSchemas is unimplemented in the in-memory registry: schema watching
// requires a durable backend with real change notification.
func (r *MemoryRegistry) WatchSchemas(ctx context.Context, path string, onChange SchemaChangeHandler) error {
	return regerrors.Custom("schema watching not supported in memory registry")
}

func (r *MemoryRegistry) Close(ctx context.Context) error {
	r.closedMu.Lock()
	defer r.closedMu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	r.watchMu.Lock()
	for _, chans := range r.watchers {
		for _, ch := range chans {
			close(ch)
		}
	}
	r.watchers = make(map[string][]chan ManifestEvent)
	r.watchMu.Unlock()

	return nil
}

func (r *MemoryRegistry) Health(ctx context.Context) error {
	if r.isClosed() {
		return regerrors.BackendUnavailable("registry is closed")
	}
	return nil
}
