// Package gateway implements the watch-driven client a gateway process
// uses to keep an in-process view of every registered manifest, their
// resolved schema bodies, and the HTTP route set derived from them.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xraph-labs/nexus-registry/pkg/manifest"
	"github.com/xraph-labs/nexus-registry/pkg/observability"
	"github.com/xraph-labs/nexus-registry/pkg/regerrors"
	"github.com/xraph-labs/nexus-registry/pkg/registry"
	"github.com/xraph-labs/nexus-registry/pkg/types"
)

// Config controls a Client's cache sizing and HTTP fetch behavior.
type Config struct {
	ManifestCacheSize int
	SchemaCacheSize   int
	FetchTimeout      time.Duration
}

// DefaultConfig returns sane client defaults: a few hundred manifests and
// schemas held in memory, a bounded wait on HTTP schema fetches.
func DefaultConfig() Config {
	return Config{ManifestCacheSize: 512, SchemaCacheSize: 512, FetchTimeout: 10 * time.Second}
}

// Client watches a SchemaRegistry for manifest changes, resolves each
// manifest's schema descriptors into full documents, and maintains the
// composed HTTP route set a gateway should be serving at any moment.
type Client struct {
	reg     registry.SchemaRegistry
	cfg     Config
	logger  *observability.Logger
	metrics *observability.Metrics
	http    *http.Client

	schemaCache *LRUCache

	mu        sync.RWMutex
	manifests map[string]types.SchemaManifest // instance_id -> manifest
	routes    []Route

	routeMu      sync.RWMutex
	onRouteChange func([]Route)
}

// NewClient builds a Client against the given registry. Pass an empty
// Config{} to use DefaultConfig() values.
func NewClient(reg registry.SchemaRegistry, cfg Config, logger *observability.Logger) (*Client, error) {
	if cfg.ManifestCacheSize == 0 {
		cfg = DefaultConfig()
	}
	sc, err := NewLRUCache(cfg.SchemaCacheSize)
	if err != nil {
		return nil, fmt.Errorf("building schema cache: %w", err)
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Client{
		reg:         reg,
		cfg:         cfg,
		logger:      logger,
		http:        &http.Client{Timeout: cfg.FetchTimeout},
		schemaCache: sc,
		manifests:   map[string]types.SchemaManifest{},
	}, nil
}

// SetMetrics attaches a metrics sink the client reports its route table
// size to on every recomputation.
func (c *Client) SetMetrics(m *observability.Metrics) {
	c.metrics = m
}

// OnRouteChange registers a callback invoked every time the composed
// route set is recomputed. Only one callback is kept; a later call
// replaces the previous one.
func (c *Client) OnRouteChange(fn func([]Route)) {
	c.routeMu.Lock()
	defer c.routeMu.Unlock()
	c.onRouteChange = fn
}

// Routes returns the most recently computed route set.
func (c *Client) Routes() []Route {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Route, len(c.routes))
	copy(out, c.routes)
	return out
}

// Watch subscribes to every service's manifest changes and keeps the
// client's view and route set current until ctx is canceled. It also
// seeds the initial state from a full manifest listing before watching.
func (c *Client) Watch(ctx context.Context) error {
	if err := c.Reseed(ctx); err != nil {
		return err
	}

	return c.reg.WatchManifests(ctx, "", func(event registry.ManifestEvent) {
		c.mu.Lock()
		switch event.EventType {
		case registry.EventRemoved:
			delete(c.manifests, event.Manifest.InstanceID)
		default:
			c.manifests[event.Manifest.InstanceID] = event.Manifest
		}
		c.mu.Unlock()
		c.recompute(ctx)
	})
}

// maxSchemaResolveWorkers bounds how many manifests recompute resolves
// concurrently, keeping a registry with many tracked services from
// opening an unbounded number of simultaneous HTTP schema fetches.
const maxSchemaResolveWorkers = 8

// recompute resolves every tracked manifest's schemas and rebuilds the
// full route set from scratch, matching the registry client's
// full-recomputation-on-every-event behavior rather than incremental
// patching. Each manifest's schemas are resolved concurrently since
// resolution can involve an HTTP fetch; results are collected into a
// slice indexed by manifest, so each manifest's routes stay grouped
// whatever the completion order. The order of manifests (and of paths
// within an OpenAPI document) follows map iteration and is not stable
// between recomputes.
func (c *Client) recompute(ctx context.Context) {
	c.mu.RLock()
	snapshot := make([]types.SchemaManifest, 0, len(c.manifests))
	for _, m := range c.manifests {
		snapshot = append(snapshot, m)
	}
	c.mu.RUnlock()

	perManifest := make([][]Route, len(snapshot))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxSchemaResolveWorkers)
	for i := range snapshot {
		i := i
		eg.Go(func() error {
			m := snapshot[i]
			if m.Checksum != "" && !manifestChecksumValid(&m) {
				c.logger.WithField("service", m.ServiceName).WithField("instance", m.InstanceID).
					Warn("manifest checksum no longer matches its contents, skipping")
				return nil
			}
			schemas := map[types.SchemaType]map[string]interface{}{}
			for _, d := range m.Schemas {
				doc, err := c.resolveSchema(egCtx, &m, d)
				if err != nil {
					c.logger.WithError(err).WithField("service", m.ServiceName).
						WithField("instance", m.InstanceID).Warn("failed to resolve schema, skipping descriptor")
					continue
				}
				schemas[d.SchemaType] = doc
			}
			routes, err := ComputeRoutes(&m, schemas)
			if err != nil {
				c.logger.WithError(err).Warn("failed to compute routes for manifest")
				return nil
			}
			perManifest[i] = routes
			return nil
		})
	}
	_ = eg.Wait()

	var all []Route
	for _, routes := range perManifest {
		all = append(all, routes...)
	}

	c.mu.Lock()
	c.routes = all
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.GatewayRoutesComputed.Set(float64(len(all)))
	}

	c.routeMu.RLock()
	cb := c.onRouteChange
	c.routeMu.RUnlock()
	if cb != nil {
		cb(all)
	}
}

// resolveSchema fetches the document bytes for a descriptor, using the
// schema cache keyed by the descriptor's own hash so an unchanged schema
// is never refetched across recomputations.
func (c *Client) resolveSchema(ctx context.Context, m *types.SchemaManifest, d types.SchemaDescriptor) (map[string]interface{}, error) {
	if d.Hash != "" {
		if cached, ok := c.schemaCache.Get(d.Hash); ok {
			var doc map[string]interface{}
			if err := json.Unmarshal(cached, &doc); err == nil {
				return doc, nil
			}
		}
	}

	var raw []byte
	var err error
	switch d.Location.LocationType {
	case types.LocationTypeInline:
		if d.InlineSchema == nil {
			return nil, regerrors.Custom("inline schema descriptor has no inline_schema body")
		}
		raw, err = json.Marshal(d.InlineSchema)
	case types.LocationTypeRegistry:
		if d.Location.RegistryPath == nil {
			return nil, regerrors.Custom("registry-located schema descriptor has no registry_path")
		}
		raw, err = c.reg.FetchSchema(ctx, *d.Location.RegistryPath)
	case types.LocationTypeHTTP:
		raw, err = c.fetchHTTP(ctx, d)
	default:
		return nil, regerrors.InvalidLocation(fmt.Sprintf("unknown location type %q", d.Location.LocationType))
	}
	if err != nil {
		return nil, err
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding schema body: %w", err)
	}
	if d.Hash != "" {
		_ = c.schemaCache.Set(d.Hash, raw)
	}
	return doc, nil
}

func (c *Client) fetchHTTP(ctx context.Context, d types.SchemaDescriptor) ([]byte, error) {
	if d.Location.URL == nil {
		return nil, regerrors.Custom("http-located schema descriptor has no url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, *d.Location.URL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range d.Location.Headers {
		req.Header.Set(k, v)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching schema over http: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, regerrors.SchemaFetchFailed(fmt.Sprintf("unexpected status %d fetching %s", resp.StatusCode, *d.Location.URL))
	}
	return io.ReadAll(resp.Body)
}

// ClearCache purges both the resolved-schema cache and the in-process
// manifest view. This diverges from clearing only the schema cache:
// manifests are cheap to refetch from the registry's own listing, so
// there is no correctness reason to keep a stale manifest view around
// once an operator has asked to clear state. Call Watch (or Reseed) again
// afterward to repopulate.
func (c *Client) ClearCache() error {
	c.mu.Lock()
	c.manifests = map[string]types.SchemaManifest{}
	c.routes = nil
	c.mu.Unlock()
	return c.schemaCache.Clear()
}

// Reseed re-lists every manifest from the registry and recomputes routes,
// without disturbing an in-flight Watch subscription. Useful right after
// ClearCache when the caller wants an immediate refresh rather than
// waiting for the next manifest event.
func (c *Client) Reseed(ctx context.Context) error {
	existing, err := c.reg.ListManifests(ctx, "")
	if err != nil {
		return fmt.Errorf("listing manifests: %w", err)
	}
	c.mu.Lock()
	for _, m := range existing {
		c.manifests[m.InstanceID] = m
	}
	c.mu.Unlock()
	c.recompute(ctx)
	return nil
}

// Close releases the underlying registry connection. Callers that share
// a registry across multiple clients should not call Close here and
// should close the registry directly instead.
func (c *Client) Close(ctx context.Context) error {
	return c.reg.Close(ctx)
}

// manifestChecksumValid reports whether the cached manifest's checksum
// still matches a freshly computed one, used to detect a manifest that
// was mutated without going through UpdateManifest.
func manifestChecksumValid(m *types.SchemaManifest) bool {
	return manifest.CalculateManifestChecksum(m) == m.Checksum
}
