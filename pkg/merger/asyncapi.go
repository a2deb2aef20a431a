package merger

import (
	"encoding/json"
	"fmt"
)

// AsyncAPISpec is a simplified AsyncAPI 3.x document model.
type AsyncAPISpec struct {
	AsyncAPI   string           `json:"asyncapi"`
	Info       Info             `json:"info"`
	Servers    map[string]Server `json:"servers,omitempty"`
	Channels   map[string]Channel `json:"channels"`
	Components *AsyncComponents `json:"components,omitempty"`
}

type Channel struct {
	Address     *string                `json:"address,omitempty"`
	Messages    map[string]interface{} `json:"messages,omitempty"`
	Description *string                `json:"description,omitempty"`
}

type AsyncComponents struct {
	Schemas         map[string]map[string]interface{} `json:"schemas,omitempty"`
	Messages        map[string]map[string]interface{} `json:"messages,omitempty"`
	SecuritySchemes map[string]SecurityScheme          `json:"securitySchemes,omitempty"`
}

// AsyncAPIResult is the full output of composing a set of AsyncAPI
// fragments.
type AsyncAPIResult struct {
	Spec             *AsyncAPISpec
	IncludedServices []string
	ExcludedServices []string
	Conflicts        []Conflict
	Warnings         []error
}

// MergeAsyncAPI composes channel-based event specs. Channel and message
// keys are unconditionally prefixed with the contributing service's name,
// so true collisions are rare; when they happen, channels go through the
// full conflict ledger while message collisions are silently skipped
// (messages are addressed by channel, not by name, so a shadowed entry is
// harmless). Security schemes are unprefixed and go through the full
// ledger like OpenAPI's.
func MergeAsyncAPI(sources []Source, opts Options) (*AsyncAPIResult, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	r := newResolver(opts)
	result := &AsyncAPIResult{}

	out := &AsyncAPISpec{
		AsyncAPI: "3.0.0",
		Info:     Info{Title: "Federated Event API", Version: "composed"},
		Servers:  map[string]Server{},
		Channels: map[string]Channel{},
		Components: &AsyncComponents{
			Schemas:         map[string]map[string]interface{}{},
			Messages:        map[string]map[string]interface{}{},
			SecuritySchemes: map[string]SecurityScheme{},
		},
	}

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

		spec, err := decodeAsyncAPI(src.Document)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Errorf("service %s: %w", name, err))
			result.ExcludedServices = append(result.ExcludedServices, name)
			continue
		}
		result.IncludedServices = append(result.IncludedServices, name)

		for serverName, srv := range spec.Servers {
			key := name + "_" + serverName
			if _, exists := out.Servers[key]; exists {
				result.Warnings = append(result.Warnings, fmt.Errorf("duplicate server key %q", key))
			}
			out.Servers[key] = srv
		}

		for channelName, ch := range spec.Channels {
			rawKey := name + "." + channelName
			key, skip, err := r.resolve("channels", rawKey, name, rawKey, "")
			if err != nil {
				return nil, err
			}
			if skip {
				continue
			}
			out.Channels[key] = ch
		}

		if spec.Components == nil {
			continue
		}
		for schemaName, schema := range spec.Components.Schemas {
			out.Components.Schemas[name+"_"+schemaName] = schema
		}
		for msgName, msg := range spec.Components.Messages {
			key := name + "_" + msgName
			if _, exists := out.Components.Messages[key]; exists {
				continue
			}
			out.Components.Messages[key] = msg
		}
		for schemeName, scheme := range spec.Components.SecuritySchemes {
			key, skip, err := r.resolve("securitySchemes", schemeName, name, name+"_"+schemeName, "")
			if err != nil {
				return nil, err
			}
			if skip {
				continue
			}
			out.Components.SecuritySchemes[key] = scheme
		}
	}

	result.Conflicts = r.conflicts
	result.Spec = out
	return result, nil
}

func decodeAsyncAPI(doc map[string]interface{}) (*AsyncAPISpec, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var spec AsyncAPISpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, err
	}
	return &spec, nil
}
