package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xraph-labs/nexus-registry/pkg/regerrors"
	"github.com/xraph-labs/nexus-registry/pkg/types"
)

// ManifestStore layers manifest/schema key conventions and the
// compress-and-size-limit Helper on top of a raw Backend.
type ManifestStore struct {
	backend   Backend
	helper    *Helper
	namespace string
}

// NewManifestStore builds a ManifestStore over backend, namespacing all
// keys under namespace and applying the given compression/size limits.
func NewManifestStore(backend Backend, namespace string, compressionThreshold, maxSize int64) *ManifestStore {
	return &ManifestStore{
		backend:   backend,
		helper:    NewHelper(compressionThreshold, maxSize),
		namespace: namespace,
	}
}

func (s *ManifestStore) manifestKey(serviceName, instanceID string) string {
	return fmt.Sprintf("%s/services/%s/instances/%s/manifest", s.namespace, serviceName, instanceID)
}

func (s *ManifestStore) schemaKey(path string) string {
	return s.namespace + path
}

// instanceIndexKey maps an instance ID to its owning service name, so a
// single-instance lookup doesn't require the caller to already know which
// service registered it.
func (s *ManifestStore) instanceIndexKey(instanceID string) string {
	return s.namespace + "/instance-index/" + instanceID
}

// Put stores a manifest and updates its instance index entry.
func (s *ManifestStore) Put(ctx context.Context, m *types.SchemaManifest) error {
	key := s.manifestKey(m.ServiceName, m.InstanceID)
	if err := s.helper.PutJSON(ctx, s.backend, key, m); err != nil {
		return err
	}
	return s.helper.PutJSON(ctx, s.backend, s.instanceIndexKey(m.InstanceID), m.ServiceName)
}

// Get retrieves a manifest, translating a missing-schema error into
// ManifestNotFound.
func (s *ManifestStore) Get(ctx context.Context, serviceName, instanceID string) (types.SchemaManifest, error) {
	key := s.manifestKey(serviceName, instanceID)
	var m types.SchemaManifest
	err := s.helper.GetJSON(ctx, s.backend, key, &m)
	if err != nil {
		var regErr *regerrors.Error
		if asRegErr(err, &regErr) && regErr.Kind == regerrors.KindSchemaNotFound {
			return types.SchemaManifest{}, regerrors.ErrManifestNotFound
		}
		return types.SchemaManifest{}, err
	}
	return m, nil
}

// Delete removes a manifest and its instance index entry.
func (s *ManifestStore) Delete(ctx context.Context, serviceName, instanceID string) error {
	if err := s.backend.Delete(ctx, s.manifestKey(serviceName, instanceID)); err != nil {
		return err
	}
	return s.backend.Delete(ctx, s.instanceIndexKey(instanceID))
}

// GetByInstance resolves a manifest by instance ID alone, via the instance
// index, without the caller needing to know its service name.
func (s *ManifestStore) GetByInstance(ctx context.Context, instanceID string) (types.SchemaManifest, error) {
	var serviceName string
	if err := s.helper.GetJSON(ctx, s.backend, s.instanceIndexKey(instanceID), &serviceName); err != nil {
		var regErr *regerrors.Error
		if asRegErr(err, &regErr) && regErr.Kind == regerrors.KindSchemaNotFound {
			return types.SchemaManifest{}, regerrors.ErrManifestNotFound
		}
		return types.SchemaManifest{}, err
	}
	return s.Get(ctx, serviceName, instanceID)
}

// DeleteByInstance removes a manifest by instance ID alone, via the
// instance index.
func (s *ManifestStore) DeleteByInstance(ctx context.Context, instanceID string) error {
	var serviceName string
	if err := s.helper.GetJSON(ctx, s.backend, s.instanceIndexKey(instanceID), &serviceName); err != nil {
		var regErr *regerrors.Error
		if asRegErr(err, &regErr) && regErr.Kind == regerrors.KindSchemaNotFound {
			return regerrors.ErrManifestNotFound
		}
		return err
	}
	return s.Delete(ctx, serviceName, instanceID)
}

// List returns all manifests registered for a service, silently skipping
// any entry that fails to decode.
func (s *ManifestStore) List(ctx context.Context, serviceName string) ([]types.SchemaManifest, error) {
	prefix := fmt.Sprintf("%s/services/%s/instances/", s.namespace, serviceName)
	keys, err := s.backend.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	manifests := make([]types.SchemaManifest, 0, len(keys))
	for _, key := range keys {
		var m types.SchemaManifest
		if err := s.helper.GetJSON(ctx, s.backend, key, &m); err != nil {
			continue
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}

// PutSchema stores a raw schema document at path.
func (s *ManifestStore) PutSchema(ctx context.Context, path string, schema json.RawMessage) error {
	return s.helper.PutJSON(ctx, s.backend, s.schemaKey(path), schema)
}

// GetSchema retrieves a raw schema document.
func (s *ManifestStore) GetSchema(ctx context.Context, path string) (json.RawMessage, error) {
	var schema json.RawMessage
	if err := s.helper.GetJSON(ctx, s.backend, s.schemaKey(path), &schema); err != nil {
		return nil, err
	}
	return schema, nil
}

// DeleteSchema removes a schema document.
func (s *ManifestStore) DeleteSchema(ctx context.Context, path string) error {
	return s.backend.Delete(ctx, s.schemaKey(path))
}

func asRegErr(err error, target **regerrors.Error) bool {
	re, ok := err.(*regerrors.Error)
	if !ok {
		return false
	}
	*target = re
	return true
}
