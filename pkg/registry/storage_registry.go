package registry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/xraph-labs/nexus-registry/pkg/manifest"
	"github.com/xraph-labs/nexus-registry/pkg/storage"
	"github.com/xraph-labs/nexus-registry/pkg/types"
)

// StorageRegistry is a SchemaRegistry backed by a durable storage.Backend
// (filesystem, Redis, Postgres, S3). Unlike MemoryRegistry it supports
// WatchSchemas wherever the underlying backend supports Watch.
type StorageRegistry struct {
	store   *storage.ManifestStore
	backend storage.Backend
	cfg     Config
}

// NewStorageRegistry builds a registry over an existing storage backend.
func NewStorageRegistry(backend storage.Backend, cfg Config) *StorageRegistry {
	return &StorageRegistry{
		store:   storage.NewManifestStore(backend, cfg.Namespace, cfg.CompressionThreshold, cfg.MaxSchemaSize),
		backend: backend,
		cfg:     cfg,
	}
}

func (r *StorageRegistry) RegisterManifest(ctx context.Context, m *types.SchemaManifest) error {
	if err := manifest.Validate(m); err != nil {
		return err
	}
	return r.store.Put(ctx, m)
}

func (r *StorageRegistry) GetManifest(ctx context.Context, instanceID string) (types.SchemaManifest, error) {
	return r.store.GetByInstance(ctx, instanceID)
}

// GetManifestForService retrieves a manifest by its service name and
// instance ID directly, skipping the instance index lookup.
func (r *StorageRegistry) GetManifestForService(ctx context.Context, serviceName, instanceID string) (types.SchemaManifest, error) {
	return r.store.Get(ctx, serviceName, instanceID)
}

func (r *StorageRegistry) UpdateManifest(ctx context.Context, m *types.SchemaManifest) error {
	if err := manifest.Validate(m); err != nil {
		return err
	}
	if _, err := r.store.Get(ctx, m.ServiceName, m.InstanceID); err != nil {
		return err
	}
	return r.store.Put(ctx, m)
}

func (r *StorageRegistry) DeleteManifest(ctx context.Context, instanceID string) error {
	return r.store.DeleteByInstance(ctx, instanceID)
}

// DeleteManifestForService removes a single instance's manifest directly,
// skipping the instance index lookup.
func (r *StorageRegistry) DeleteManifestForService(ctx context.Context, serviceName, instanceID string) error {
	return r.store.Delete(ctx, serviceName, instanceID)
}

func (r *StorageRegistry) ListManifests(ctx context.Context, serviceName string) ([]types.SchemaManifest, error) {
	return r.store.List(ctx, serviceName)
}

func (r *StorageRegistry) PublishSchema(ctx context.Context, path string, schema json.RawMessage) error {
	return r.store.PutSchema(ctx, path, schema)
}

func (r *StorageRegistry) FetchSchema(ctx context.Context, path string) (json.RawMessage, error) {
	return r.store.GetSchema(ctx, path)
}

func (r *StorageRegistry) DeleteSchema(ctx context.Context, path string) error {
	return r.store.DeleteSchema(ctx, path)
}

func (r *StorageRegistry) WatchManifests(ctx context.Context, serviceName string, onChange ManifestChangeHandler) error {
	prefix := r.cfg.Namespace + "/services/" + serviceName
	events, err := r.backend.Watch(ctx, prefix)
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case evt, ok := <-events:
				if !ok {
					return
				}
				var m types.SchemaManifest
				if evt.Value != nil {
					if err := json.Unmarshal(evt.Value, &m); err != nil {
						continue
					}
				}
				onChange(ManifestEvent{
					EventType: EventType(evt.Type),
					Manifest:  m,
					Timestamp: time.Now().Unix(),
				})
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (r *StorageRegistry) WatchSchemas(ctx context.Context, path string, onChange SchemaChangeHandler) error {
	events, err := r.backend.Watch(ctx, r.cfg.Namespace+path)
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case evt, ok := <-events:
				if !ok {
					return
				}
				onChange(SchemaEvent{
					EventType: EventType(evt.Type),
					Path:      path,
					Schema:    evt.Value,
					Timestamp: time.Now().Unix(),
				})
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (r *StorageRegistry) Close(ctx context.Context) error {
	return r.backend.Close(ctx)
}

func (r *StorageRegistry) Health(ctx context.Context) error {
	return nil
}
