package merger

import (
	"encoding/json"

	"github.com/xraph-labs/nexus-registry/pkg/regerrors"
	"github.com/xraph-labs/nexus-registry/pkg/types"
)

// ComposeResult is the schema-type-agnostic view of a merge: the composed
// document as a generic map, plus the inclusion/exclusion/conflict
// bookkeeping every protocol-specific merger now produces.
type ComposeResult struct {
	Document         map[string]interface{}
	IncludedServices []string
	ExcludedServices []string
	Conflicts        []Conflict
	Warnings         []error
}

// Compose dispatches to the protocol-specific merger for schemaType and
// flattens its result into a ComposeResult, suitable for serialization
// regardless of which concrete spec struct produced it.
func Compose(schemaType types.SchemaType, sources []Source, opts Options) (*ComposeResult, error) {
	var (
		spec   interface{}
		result ComposeResult
	)

	switch schemaType {
	case types.SchemaTypeOpenAPI:
		r, err := MergeOpenAPI(sources, opts)
		if err != nil {
			return nil, err
		}
		spec, result.IncludedServices, result.ExcludedServices, result.Conflicts, result.Warnings =
			r.Spec, r.IncludedServices, r.ExcludedServices, r.Conflicts, r.Warnings
	case types.SchemaTypeAsyncAPI:
		r, err := MergeAsyncAPI(sources, opts)
		if err != nil {
			return nil, err
		}
		spec, result.IncludedServices, result.ExcludedServices, result.Conflicts, result.Warnings =
			r.Spec, r.IncludedServices, r.ExcludedServices, r.Conflicts, r.Warnings
	case types.SchemaTypeGRPC:
		r, err := MergeGRPC(sources, opts)
		if err != nil {
			return nil, err
		}
		spec, result.IncludedServices, result.ExcludedServices, result.Conflicts, result.Warnings =
			r.Spec, r.IncludedServices, r.ExcludedServices, r.Conflicts, r.Warnings
	case types.SchemaTypeORPC:
		r, err := MergeORPC(sources, opts)
		if err != nil {
			return nil, err
		}
		spec, result.IncludedServices, result.ExcludedServices, result.Conflicts, result.Warnings =
			r.Spec, r.IncludedServices, r.ExcludedServices, r.Conflicts, r.Warnings
	default:
		return nil, regerrors.UnsupportedType(schemaType.String())
	}

	doc, err := toMap(spec)
	if err != nil {
		return nil, err
	}
	result.Document = doc
	return &result, nil
}

func toMap(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
