package merger

import (
	"encoding/json"
	"fmt"
)

// ORPCSpec is the composed view of a set of oRPC procedure documents.
type ORPCSpec struct {
	ORPC            string                             `json:"orpc"`
	Info            Info                               `json:"info"`
	Procedures      []map[string]interface{}           `json:"procedures"`
	Schemas         map[string]map[string]interface{}  `json:"schemas,omitempty"`
	SecuritySchemes map[string]SecurityScheme           `json:"security_schemes,omitempty"`
}

// ORPCResult is the full output of composing a set of oRPC fragments.
type ORPCResult struct {
	Spec             *ORPCSpec
	IncludedServices []string
	ExcludedServices []string
	Conflicts        []Conflict
	Warnings         []error
}

// MergeORPC composes per-service oRPC documents. Procedures are keyed
// <service_name>.<proc> and go through the full conflict ledger. Schemas
// are keyed <service_name>_<name> and only ever skip on collision (never
// recorded, since the prefix already scopes them to their contributor).
// Security scheme names are left unprefixed and follow the same
// five-branch strategy as procedures.
func MergeORPC(sources []Source, opts Options) (*ORPCResult, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	r := newResolver(opts)
	result := &ORPCResult{}
	out := &ORPCSpec{
		ORPC:            "1.0.0",
		Info:            Info{Title: "Federated Procedure API", Version: "composed"},
		Schemas:         map[string]map[string]interface{}{},
		SecuritySchemes: map[string]SecurityScheme{},
	}
	schemaOwners := map[string]bool{}

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

		raw, err := json.Marshal(src.Document)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Errorf("service %s: %w", name, err))
			result.ExcludedServices = append(result.ExcludedServices, name)
			continue
		}
		var doc struct {
			Procedures      []map[string]interface{}          `json:"procedures"`
			Schemas         map[string]map[string]interface{} `json:"schemas"`
			SecuritySchemes map[string]SecurityScheme         `json:"security_schemes"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			result.Warnings = append(result.Warnings, fmt.Errorf("service %s: %w", name, err))
			result.ExcludedServices = append(result.ExcludedServices, name)
			continue
		}
		result.IncludedServices = append(result.IncludedServices, name)

		strategy := compositionStrategy(src)

		for _, proc := range doc.Procedures {
			procName, _ := proc["name"].(string)
			rawKey := name + "." + procName
			key, skip, err := r.resolve("procedures", rawKey, name, rawKey, strategy)
			if err != nil {
				return nil, err
			}
			if skip {
				continue
			}
			proc["name"] = key
			out.Procedures = append(out.Procedures, proc)
		}
		for schemaName, schema := range doc.Schemas {
			key := name + "_" + schemaName
			if schemaOwners[key] {
				continue
			}
			schemaOwners[key] = true
			out.Schemas[key] = schema
		}
		for schemeName, scheme := range doc.SecuritySchemes {
			key, skip, err := r.resolve("securitySchemes", schemeName, name, name+"_"+schemeName, strategy)
			if err != nil {
				return nil, err
			}
			if skip {
				continue
			}
			out.SecuritySchemes[key] = scheme
		}
	}

	result.Conflicts = r.conflicts
	result.Spec = out
	return result, nil
}
