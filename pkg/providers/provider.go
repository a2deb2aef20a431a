// Package providers generates default schema documents for each supported
// schema type and offers a thread-safe registry for them.
package providers

import (
	"encoding/json"
	"sync"

	"github.com/xraph-labs/nexus-registry/pkg/manifest"
	"github.com/xraph-labs/nexus-registry/pkg/regerrors"
	"github.com/xraph-labs/nexus-registry/pkg/types"
)

// Application is the minimal identity a provider needs to generate a
// default schema document.
type Application interface {
	Name() string
	Version() string
}

// SimpleApplication is a trivial Application implementation.
type SimpleApplication struct {
	AppName    string
	AppVersion string
}

func (a SimpleApplication) Name() string    { return a.AppName }
func (a SimpleApplication) Version() string { return a.AppVersion }

// SchemaProvider generates and describes a schema document for one schema
// type.
type SchemaProvider interface {
	SchemaType() types.SchemaType
	SpecVersion() string
	Endpoint() *string
	ContentType() string
	Generate(app Application) (map[string]interface{}, error)
	Validate(schema map[string]interface{}) error
}

// Hash returns the hex-encoded SHA-256 checksum of a provider's generated
// schema, using the same canonical-JSON convention as the manifest
// checksum.
func Hash(schema map[string]interface{}) (string, error) {
	return manifest.CalculateSchemaChecksum(schema)
}

// Serialize marshals a schema document to JSON bytes.
func Serialize(schema map[string]interface{}) ([]byte, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, regerrors.InvalidSchema(err.Error())
	}
	return data, nil
}

// Registry is a thread-safe collection of providers keyed by schema type.
type Registry struct {
	mu        sync.RWMutex
	providers map[types.SchemaType]SchemaProvider
}

// NewRegistry builds an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[types.SchemaType]SchemaProvider)}
}

func (r *Registry) Register(provider SchemaProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.SchemaType()] = provider
}

func (r *Registry) Get(schemaType types.SchemaType) (SchemaProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[schemaType]
	if !ok {
		return nil, regerrors.ProviderNotFound(schemaType.String())
	}
	return p, nil
}

func (r *Registry) Has(schemaType types.SchemaType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[schemaType]
	return ok
}

func (r *Registry) List() []types.SchemaType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.SchemaType, 0, len(r.providers))
	for t := range r.providers {
		out = append(out, t)
	}
	return out
}

func (r *Registry) Unregister(schemaType types.SchemaType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.providers, schemaType)
}

func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = make(map[types.SchemaType]SchemaProvider)
}

var (
	globalOnce     sync.Once
	globalRegistry *Registry
)

func global() *Registry {
	globalOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// RegisterProvider registers p in the process-wide provider registry.
func RegisterProvider(p SchemaProvider) { global().Register(p) }

// GetProvider looks up a provider in the process-wide registry.
func GetProvider(schemaType types.SchemaType) (SchemaProvider, error) { return global().Get(schemaType) }

// HasProvider reports whether the process-wide registry has a provider for
// schemaType.
func HasProvider(schemaType types.SchemaType) bool { return global().Has(schemaType) }

// ListProviders lists the schema types registered in the process-wide
// registry.
func ListProviders() []types.SchemaType { return global().List() }

// UnregisterProvider removes a provider from the process-wide registry.
func UnregisterProvider(schemaType types.SchemaType) { global().Unregister(schemaType) }

// ClearProviders empties the process-wide registry.
func ClearProviders() { global().Clear() }
