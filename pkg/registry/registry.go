// Package registry is the watch-capable manifest/schema registry that
// service instances publish into and gateways subscribe to.
package registry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/xraph-labs/nexus-registry/pkg/types"
)

// EventType classifies a registry change.
type EventType string

const (
	EventAdded   EventType = "added"
	EventUpdated EventType = "updated"
	EventRemoved EventType = "removed"
)

// ManifestEvent is delivered to manifest watchers.
type ManifestEvent struct {
	EventType EventType             `json:"event_type"`
	Manifest  types.SchemaManifest  `json:"manifest"`
	Timestamp int64                 `json:"timestamp"`
}

// SchemaEvent is delivered to schema watchers.
type SchemaEvent struct {
	EventType EventType       `json:"event_type"`
	Path      string          `json:"path"`
	Schema    json.RawMessage `json:"schema,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// ManifestChangeHandler is invoked for each manifest change a watcher
// receives.
type ManifestChangeHandler func(event ManifestEvent)

// SchemaChangeHandler is invoked for each schema change a watcher
// receives.
type SchemaChangeHandler func(event SchemaEvent)

// Config mirrors the protocol's registry defaults.
type Config struct {
	Backend              string
	Namespace            string
	BackendConfig        map[string]interface{}
	MaxSchemaSize        int64
	CompressionThreshold int64
	TTL                  time.Duration
}

// DefaultConfig returns the registry's documented defaults.
func DefaultConfig() Config {
	return Config{
		Backend:              "memory",
		Namespace:            "registry",
		BackendConfig:        map[string]interface{}{},
		MaxSchemaSize:        1024 * 1024,
		CompressionThreshold: 100 * 1024,
		TTL:                  0,
	}
}

// Cache is a pluggable lookaside cache for fetched schema bodies, keyed by
// content hash.
type Cache interface {
	Get(hash string) (json.RawMessage, bool)
	Set(hash string, schema json.RawMessage) error
	Delete(hash string) error
	Clear() error
	Size() int
}

// FetchOptions controls a single schema fetch.
type FetchOptions struct {
	UseCache         bool
	ValidateChecksum bool
	ExpectedHash     string
	Timeout          time.Duration
}

// DefaultFetchOptions returns the documented defaults.
func DefaultFetchOptions() FetchOptions {
	return FetchOptions{UseCache: true, ValidateChecksum: true, Timeout: 30 * time.Second}
}

// PublishOptions controls a single schema publish.
type PublishOptions struct {
	Compress         bool
	TTL              time.Duration
	OverwriteExisting bool
}

// DefaultPublishOptions returns the documented defaults.
func DefaultPublishOptions() PublishOptions {
	return PublishOptions{Compress: false, TTL: 0, OverwriteExisting: true}
}

// SchemaRegistry is the facade service instances and gateways use to
// publish and subscribe to manifests and schemas.
type SchemaRegistry interface {
	RegisterManifest(ctx context.Context, manifest *types.SchemaManifest) error
	GetManifest(ctx context.Context, instanceID string) (types.SchemaManifest, error)
	UpdateManifest(ctx context.Context, manifest *types.SchemaManifest) error
	DeleteManifest(ctx context.Context, instanceID string) error
	ListManifests(ctx context.Context, serviceName string) ([]types.SchemaManifest, error)

	PublishSchema(ctx context.Context, path string, schema json.RawMessage) error
	FetchSchema(ctx context.Context, path string) (json.RawMessage, error)
	DeleteSchema(ctx context.Context, path string) error

	WatchManifests(ctx context.Context, serviceName string, onChange ManifestChangeHandler) error
	WatchSchemas(ctx context.Context, path string, onChange SchemaChangeHandler) error

	Close(ctx context.Context) error
	Health(ctx context.Context) error
}
