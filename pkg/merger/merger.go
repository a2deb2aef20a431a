package merger

import (
	"fmt"
	"sort"

	"github.com/xraph-labs/nexus-registry/pkg/regerrors"
	"github.com/xraph-labs/nexus-registry/pkg/types"
)

// Options controls how conflicting names across services are resolved
// when composing a federated document.
type Options struct {
	// Strategy is the default applied to every construct kind (paths,
	// components, channels, ...) unless overridden below or by a
	// source's own composition.conflict_strategy.
	Strategy types.ConflictStrategy
	// PerKind lets a caller override the strategy for one construct kind,
	// e.g. "paths", "components.schemas", "securitySchemes", "channels". Unknown
	// keys are ignored.
	PerKind map[string]types.ConflictStrategy

	// MergedTitle, MergedDescription, and MergedVersion populate the
	// composed OpenAPI document's info block when set.
	MergedTitle       string
	MergedDescription string
	MergedVersion     string
	// DisableServiceTagPrefixing suppresses prefixing top-level tags with
	// a service's tag_prefix. Tags are prefixed by default.
	DisableServiceTagPrefixing bool
	// SortTags sorts the composed document's top-level tags lexically by
	// name. Unsorted (source order) by default.
	SortTags bool
}

// DefaultOptions merges with the prefix strategy, matching the behavior of
// the original federation engine when no caller-supplied policy exists.
func DefaultOptions() Options {
	return Options{Strategy: types.ConflictPrefix, PerKind: map[string]types.ConflictStrategy{}}
}

func (o Options) strategyFor(kind string) types.ConflictStrategy {
	if o.PerKind != nil {
		if s, ok := o.PerKind[kind]; ok {
			return s
		}
	}
	if o.Strategy == "" {
		return types.ConflictPrefix
	}
	return o.Strategy
}

// Source pairs a service's contributed document fragment with the identity
// used to prefix or attribute it during composition. Manifest and
// Descriptor are optional: when present they drive per-service inclusion,
// mount-strategy path routing, and composition prefixes; when absent the
// merger includes the source unconditionally and uses the service name as
// every prefix.
type Source struct {
	ServiceName string
	Document    map[string]interface{}
	Manifest    *types.SchemaManifest
	Descriptor  *types.SchemaDescriptor
}

// compositionOf returns the OpenAPI composition config carried by a
// source's descriptor, or nil if the source carries no descriptor or
// protocol metadata.
func compositionOf(s Source) *types.CompositionConfig {
	if s.Descriptor == nil || s.Descriptor.Metadata == nil || s.Descriptor.Metadata.OpenAPI == nil {
		return nil
	}
	return s.Descriptor.Metadata.OpenAPI.Composition
}

// includeSource reports whether s should be folded into the merged output:
// included unless composition is present and explicitly disables it.
func includeSource(s Source) bool {
	c := compositionOf(s)
	return c == nil || c.IncludeInMerged
}

// prefixesFor derives a source's component/tag/operation-ID prefixes and
// per-source conflict strategy override, falling back to the service name
// and an empty (unset) strategy when no composition config is present.
func prefixesFor(s Source) (componentPrefix, tagPrefix, opPrefix string, strategy types.ConflictStrategy) {
	componentPrefix, tagPrefix, opPrefix = s.ServiceName, s.ServiceName, s.ServiceName
	if c := compositionOf(s); c != nil {
		if c.ComponentPrefix != nil {
			componentPrefix = *c.ComponentPrefix
		}
		if c.TagPrefix != nil {
			tagPrefix = *c.TagPrefix
		}
		if c.OperationIDPrefix != nil {
			opPrefix = *c.OperationIDPrefix
		}
		strategy = c.ConflictStrategy
	}
	return
}

// applyRouting rekeys a path the way a gateway would mount it, per the
// source manifest's routing strategy, so paths collide (or don't) the same
// way they would once actually routed.
func applyRouting(path string, m *types.SchemaManifest) string {
	if m == nil {
		return path
	}
	strategy := m.Routing.Strategy
	if strategy == "" {
		strategy = types.DefaultMountStrategy
	}
	switch strategy {
	case types.MountStrategyRoot:
		return path
	case types.MountStrategyInstance:
		return "/" + m.InstanceID + path
	case types.MountStrategyService:
		return "/" + m.ServiceName + path
	case types.MountStrategyVersioned:
		return "/" + m.ServiceName + "/" + m.ServiceVersion + path
	case types.MountStrategyCustom:
		if m.Routing.BasePath != nil {
			return *m.Routing.BasePath + path
		}
		return path
	case types.MountStrategySubdomain:
		return path
	default:
		return path
	}
}

// Conflict records a single name collision the merger resolved (or,
// under ConflictError, attempted to resolve before aborting).
type Conflict struct {
	ConflictType string                 `json:"conflict_type"`
	Item         string                 `json:"item"`
	Services     [2]string              `json:"services"`
	Resolution   string                 `json:"resolution"`
	Strategy     types.ConflictStrategy `json:"strategy"`
}

// ConflictError is returned under types.ConflictError when two services
// contribute the same key for a construct that cannot be merged silently.
type ConflictError struct {
	Kind        string
	Key         string
	FirstOwner  string
	SecondOwner string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict on %q: already contributed by %q, also contributed by %q",
		e.Kind, e.Key, e.FirstOwner, e.SecondOwner)
}

// resolver centralizes the name-collision bookkeeping shared by every
// protocol-specific merger: which service currently owns a key, what to do
// when a second service wants the same key, and the conflict ledger that
// records each collision's resolution.
type resolver struct {
	opts      Options
	owners    map[string]map[string]string // kind -> key -> owning service
	conflicts []Conflict
}

func newResolver(opts Options) *resolver {
	return &resolver{opts: opts, owners: map[string]map[string]string{}}
}

// resolve decides the effective key to store `key` under for `service`
// within construct `kind`, recording a Conflict for every non-error
// collision. prefixedKey is the key to use under ConflictPrefix, already
// formatted the way this construct kind prefixes (e.g. "/service-b/data"
// for paths, "service-b_Widget" for components). strategy, if non-empty,
// overrides the kind's configured default (a source's own
// composition.conflict_strategy).
//
// Returns (effectiveKey, skip, err). skip=true means the caller should
// drop this entry silently (types.ConflictSkip). err is non-nil only
// under types.ConflictError.
func (r *resolver) resolve(kind, key, service, prefixedKey string, strategy types.ConflictStrategy) (string, bool, error) {
	if r.owners[kind] == nil {
		r.owners[kind] = map[string]string{}
	}
	owner, exists := r.owners[kind][key]
	if !exists {
		r.owners[kind][key] = service
		return key, false, nil
	}
	if owner == service {
		return key, false, nil
	}

	if strategy == "" {
		strategy = r.opts.strategyFor(kind)
	}

	switch strategy {
	case types.ConflictError:
		return "", false, &ConflictError{Kind: kind, Key: key, FirstOwner: owner, SecondOwner: service}
	case types.ConflictSkip:
		r.record(kind, key, owner, service, "Skipped, kept contribution from "+owner, strategy)
		return "", true, nil
	case types.ConflictOverwrite:
		r.owners[kind][key] = service
		r.record(kind, key, owner, service, "Overwritten by "+service, strategy)
		return key, false, nil
	case types.ConflictMerge:
		r.record(kind, key, owner, service, "Merged with existing contribution from "+owner, strategy)
		return key, false, nil
	case types.ConflictPrefix:
		fallthrough
	default:
		r.owners[kind][prefixedKey] = service
		r.record(kind, key, owner, service, "Prefixed to "+prefixedKey, strategy)
		return prefixedKey, false, nil
	}
}

// resolveOverwriteOrSkip implements the narrower two-outcome collision
// rule components.schemas uses: a collision is always recorded as a
// Component conflict, and is either skipped (ConflictSkip) or overwritten
// (every other strategy) — never renamed, since schema keys already carry
// their contributing service's component prefix.
func (r *resolver) resolveOverwriteOrSkip(kind, key, service string, strategy types.ConflictStrategy) bool {
	if r.owners[kind] == nil {
		r.owners[kind] = map[string]string{}
	}
	owner, exists := r.owners[kind][key]
	if !exists || owner == service {
		r.owners[kind][key] = service
		return false
	}

	if strategy == "" {
		strategy = r.opts.strategyFor(kind)
	}
	if strategy == types.ConflictSkip {
		r.record("Component", key, owner, service, "Skipped, kept contribution from "+owner, strategy)
		return true
	}
	r.owners[kind][key] = service
	r.record("Component", key, owner, service, "Overwritten by "+service, strategy)
	return false
}

func (r *resolver) record(conflictType, item, first, second, resolution string, strategy types.ConflictStrategy) {
	r.conflicts = append(r.conflicts, Conflict{
		ConflictType: conflictType,
		Item:         item,
		Services:     [2]string{first, second},
		Resolution:   resolution,
		Strategy:     strategy,
	})
}

// sortedServiceNames returns source service names in a deterministic order
// so composition output is stable across runs given the same input set.
func sortedServiceNames(sources []Source) []string {
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.ServiceName)
	}
	sort.Strings(names)
	return names
}

// ErrNoSources is returned when composition is attempted with an empty
// source list.
var ErrNoSources = regerrors.Custom("no sources provided for composition")
