package merger

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/xraph-labs/nexus-registry/pkg/types"
)

// OpenAPIResult is the full output of composing a set of OpenAPI
// fragments: the merged document plus which services were folded in,
// which were excluded, and the ledger of every name collision the merge
// encountered.
type OpenAPIResult struct {
	Spec             *OpenAPISpec
	IncludedServices []string
	ExcludedServices []string
	Conflicts        []Conflict
	Warnings         []error
}

// MergeOpenAPI composes the OpenAPI fragments contributed by each source
// into a single document. Paths are the primary collision surface; when
// two services expose the same path after mount-strategy routing, the
// configured strategy decides whether the second contributor is prefixed,
// rejected, skipped, made to overwrite, or merged (verbs missing from the
// existing path item are filled in from the new one). Component schemas
// and security schemes also record collisions in the conflict ledger;
// responses, parameters and requestBodies are overwritten without a
// ledger entry.
func MergeOpenAPI(sources []Source, opts Options) (*OpenAPIResult, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	r := newResolver(opts)
	result := &OpenAPIResult{}

	out := &OpenAPISpec{
		OpenAPI: "3.1.0",
		Info: Info{
			Title:   "Federated API",
			Version: "composed",
		},
		Paths: map[string]PathItem{},
		Components: &Components{
			Schemas:         map[string]map[string]interface{}{},
			Responses:       map[string]Response{},
			Parameters:      map[string]Parameter{},
			RequestBodies:   map[string]RequestBody{},
			SecuritySchemes: map[string]SecurityScheme{},
		},
	}
	if opts.MergedTitle != "" {
		out.Info.Title = opts.MergedTitle
	}
	if opts.MergedDescription != "" {
		out.Info.Description = &opts.MergedDescription
	}
	if opts.MergedVersion != "" {
		out.Info.Version = opts.MergedVersion
	}

	opIDOwners := map[string]string{}
	var tags []Tag
	tagIndex := map[string]int{}

	for _, name := range sortedServiceNames(sources) {
		var src Source
		var found bool
		for _, s := range sources {
			if s.ServiceName == name {
				src, found = s, true
				break
			}
		}
		if !found {
			continue
		}

		if !includeSource(src) {
			result.ExcludedServices = append(result.ExcludedServices, name)
			continue
		}

		spec, err := decodeOpenAPI(src.Document)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Errorf("service %s: %w", name, err))
			result.ExcludedServices = append(result.ExcludedServices, name)
			continue
		}
		result.IncludedServices = append(result.IncludedServices, name)

		componentPrefix, tagPrefix, opPrefix, strategy := prefixesFor(src)

		if err := mergePaths(out, r, src, spec, tagPrefix, opPrefix, strategy, opIDOwners); err != nil {
			return nil, err
		}
		if spec.Components != nil {
			if err := mergeComponents(out, r, name, spec.Components, componentPrefix, strategy); err != nil {
				return nil, err
			}
		}
		out.Servers = append(out.Servers, spec.Servers...)

		for _, t := range spec.Tags {
			tagName := t.Name
			if !opts.DisableServiceTagPrefixing && tagPrefix != "" {
				tagName = tagPrefix + "_" + tagName
			}
			if idx, ok := tagIndex[tagName]; ok {
				if tags[idx].Description == nil && t.Description != nil {
					tags[idx].Description = t.Description
				}
				continue
			}
			t.Name = tagName
			tagIndex[tagName] = len(tags)
			tags = append(tags, t)
		}
	}

	if opts.SortTags {
		sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	}
	out.Tags = tags
	result.Conflicts = r.conflicts
	result.Spec = out
	return result, nil
}

func decodeOpenAPI(doc map[string]interface{}) (*OpenAPISpec, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var spec OpenAPISpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

// mergePaths applies mount-strategy routing, conflict resolution,
// operation-ID prefixing, and tag rewriting to every path the source
// contributes (spec steps 4-7).
func mergePaths(out *OpenAPISpec, r *resolver, src Source, spec *OpenAPISpec, tagPrefix, opPrefix string, strategy types.ConflictStrategy, opIDOwners map[string]string) error {
	for rawPath, item := range spec.Paths {
		routedPath := applyRouting(rawPath, src.Manifest)

		key, skip, err := r.resolve("paths", routedPath, src.ServiceName, "/"+src.ServiceName+routedPath, strategy)
		if err != nil {
			return err
		}
		if skip {
			continue
		}

		item = rewriteOperationIDsAndTags(item, opPrefix, tagPrefix, src.ServiceName, opIDOwners, r)

		effStrategy := strategy
		if effStrategy == "" {
			effStrategy = r.opts.strategyFor("paths")
		}
		if existing, ok := out.Paths[key]; ok && effStrategy == types.ConflictMerge {
			out.Paths[key] = mergePathItem(existing, item)
			continue
		}
		out.Paths[key] = item
	}
	return nil
}

// rewriteOperationIDsAndTags prefixes every verb's operation ID
// (unconditionally, tracked independently of the path conflict strategy)
// and every verb's tags (only when tagPrefix is set).
func rewriteOperationIDsAndTags(item PathItem, opPrefix, tagPrefix, service string, opIDOwners map[string]string, r *resolver) PathItem {
	ops := []**Operation{&item.Get, &item.Put, &item.Post, &item.Delete, &item.Patch, &item.Head, &item.Options}
	for _, opPtr := range ops {
		op := *opPtr
		if op == nil {
			continue
		}
		if opPrefix != "" && op.OperationID != "" {
			newID := opPrefix + "_" + op.OperationID
			if owner, exists := opIDOwners[newID]; exists && owner != service {
				r.record("OperationID", newID, owner, service, "Prefixed to "+newID, "")
			} else {
				opIDOwners[newID] = service
			}
			op.OperationID = newID
		}
		if tagPrefix != "" {
			rewritten := make([]string, len(op.Tags))
			for i, t := range op.Tags {
				rewritten[i] = tagPrefix + "_" + t
			}
			op.Tags = rewritten
		}
	}
	return item
}

// mergePathItem combines two PathItems method-by-method under
// ConflictMerge: the new side (b) fills in only the verbs the existing
// side (a) doesn't already have.
func mergePathItem(a, b PathItem) PathItem {
	if a.Get == nil {
		a.Get = b.Get
	}
	if a.Put == nil {
		a.Put = b.Put
	}
	if a.Post == nil {
		a.Post = b.Post
	}
	if a.Delete == nil {
		a.Delete = b.Delete
	}
	if a.Patch == nil {
		a.Patch = b.Patch
	}
	if a.Head == nil {
		a.Head = b.Head
	}
	if a.Options == nil {
		a.Options = b.Options
	}
	return a
}

// mergeComponents rewrites schema/response/parameter/requestBody keys with
// componentPrefix and folds them into out.Components, per spec step 8.
// Responses, parameters, and requestBodies are unconditionally overwritten
// (the upstream federation engine doesn't detect collisions on these,
// since component_prefix already scopes them to the contributing
// service); schemas and security schemes go through the conflict ledger.
func mergeComponents(out *OpenAPISpec, r *resolver, service string, c *Components, componentPrefix string, strategy types.ConflictStrategy) error {
	for name, schema := range c.Schemas {
		key := componentPrefix + "_" + name
		if r.resolveOverwriteOrSkip("components.schemas", key, service, strategy) {
			continue
		}
		out.Components.Schemas[key] = schema
	}
	for name, v := range c.Responses {
		out.Components.Responses[componentPrefix+"_"+name] = v
	}
	for name, v := range c.Parameters {
		out.Components.Parameters[componentPrefix+"_"+name] = v
	}
	for name, v := range c.RequestBodies {
		out.Components.RequestBodies[componentPrefix+"_"+name] = v
	}
	for name, scheme := range c.SecuritySchemes {
		key, skip, err := r.resolve("securitySchemes", name, service, service+"_"+name, strategy)
		if err != nil {
			return err
		}
		if skip {
			continue
		}
		out.Components.SecuritySchemes[key] = scheme
	}
	return nil
}
