package merger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/bufbuild/protocompile"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/xraph-labs/nexus-registry/pkg/types"
)

// GRPCSpec is the composed view of a set of gRPC service descriptions,
// mirroring the shape produced by the gRPC schema provider's generator.
type GRPCSpec struct {
	Syntax          string                             `json:"syntax"`
	Package         string                             `json:"package"`
	Services        []map[string]interface{}           `json:"services"`
	Messages        []map[string]interface{}           `json:"messages"`
	Enums           []map[string]interface{}           `json:"enums,omitempty"`
	SecuritySchemes map[string]SecurityScheme          `json:"security_schemes,omitempty"`
}

// GRPCResult is the full output of composing a set of gRPC fragments.
type GRPCResult struct {
	Spec             *GRPCSpec
	IncludedServices []string
	ExcludedServices []string
	Conflicts        []Conflict
	Warnings         []error
}

// MergeGRPC composes the skeleton gRPC documents produced by each
// service's provider. Services are keyed <service_name>_<svc> and go
// through the full conflict ledger (a "merge" strategy here is a no-op
// beyond recording the conflict, since two service descriptions can't be
// deep-merged). Messages are keyed the same way but only ever skip on
// collision, never recorded. Enums warn on collision instead of entering
// the ledger. Security scheme names are left unprefixed and follow the
// same five-branch strategy as services.
func MergeGRPC(sources []Source, opts Options) (*GRPCResult, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	r := newResolver(opts)
	result := &GRPCResult{}
	out := &GRPCSpec{
		Syntax:          "proto3",
		Package:         "federated",
		SecuritySchemes: map[string]SecurityScheme{},
	}
	msgOwners := map[string]bool{}
	enumOwners := map[string]bool{}

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
		var doc GRPCSpec
		if err := json.Unmarshal(raw, &doc); err != nil {
			result.Warnings = append(result.Warnings, fmt.Errorf("service %s: %w", name, err))
			result.ExcludedServices = append(result.ExcludedServices, name)
			continue
		}
		result.IncludedServices = append(result.IncludedServices, name)

		strategy := compositionStrategy(src)

		for _, svc := range doc.Services {
			svcName, _ := svc["name"].(string)
			rawKey := name + "_" + svcName
			key, skip, err := r.resolve("services", rawKey, name, rawKey, strategy)
			if err != nil {
				return nil, err
			}
			if skip {
				continue
			}
			svc["name"] = key
			out.Services = append(out.Services, svc)
		}
		for _, msg := range doc.Messages {
			msgName, _ := msg["name"].(string)
			key := name + "_" + msgName
			if msgOwners[key] {
				continue
			}
			msgOwners[key] = true
			msg["name"] = key
			out.Messages = append(out.Messages, msg)
		}
		for _, enum := range doc.Enums {
			enumName, _ := enum["name"].(string)
			key := name + "_" + enumName
			if enumOwners[key] {
				result.Warnings = append(result.Warnings, fmt.Errorf("duplicate enum key %q", key))
				continue
			}
			enumOwners[key] = true
			enum["name"] = key
			out.Enums = append(out.Enums, enum)
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

// ProtoDescriptor holds the compiled shape of a .proto source, used when a
// service contributes real proto source (via an inline_schema location)
// rather than the provider's generated skeleton.
type ProtoDescriptor struct {
	Package  string
	Services []string
	Messages []string
	Enums    []string
}

// ParseProtoSource compiles a single .proto file body and extracts its
// top-level service, message, and enum names. The file is compiled on its
// own: the resolver knows no other file, so a file that imports another
// .proto fails to compile and an error is returned.
func ParseProtoSource(filename, content string) (*ProtoDescriptor, error) {
	compiler := protocompile.Compiler{
		Resolver: &protocompile.SourceResolver{
			Accessor: protocompile.SourceAccessorFromMap(map[string]string{filename: content}),
		},
	}
	result, err := compiler.Compile(context.Background(), filename)
	if err != nil {
		return nil, fmt.Errorf("compiling proto source: %w", err)
	}

	var fd protoreflect.FileDescriptor
	for _, f := range result {
		fd = f
		break
	}
	if fd == nil {
		return nil, fmt.Errorf("no file compiled for %s", filename)
	}

	desc := &ProtoDescriptor{Package: string(fd.Package())}
	for i := 0; i < fd.Services().Len(); i++ {
		desc.Services = append(desc.Services, string(fd.Services().Get(i).Name()))
	}
	for i := 0; i < fd.Messages().Len(); i++ {
		desc.Messages = append(desc.Messages, string(fd.Messages().Get(i).Name()))
	}
	for i := 0; i < fd.Enums().Len(); i++ {
		desc.Enums = append(desc.Enums, string(fd.Enums().Get(i).Name()))
	}
	return desc, nil
}

// MergeProtoDescriptors folds a set of compiled proto descriptors into a
// GRPCResult using the same conflict resolution as MergeGRPC, for the path
// where services publish real proto source instead of provider skeletons.
func MergeProtoDescriptors(descriptors map[string]*ProtoDescriptor, opts Options) (*GRPCResult, error) {
	r := newResolver(opts)
	result := &GRPCResult{}
	out := &GRPCSpec{Syntax: "proto3", Package: "federated", SecuritySchemes: map[string]SecurityScheme{}}

	names := make([]string, 0, len(descriptors))
	for name := range descriptors {
		names = append(names, name)
	}
	sort.Strings(names)

	msgOwners := map[string]bool{}
	enumOwners := map[string]bool{}

	for _, name := range names {
		d := descriptors[name]
		result.IncludedServices = append(result.IncludedServices, name)

		for _, svcName := range d.Services {
			rawKey := name + "_" + svcName
			key, skip, err := r.resolve("services", rawKey, name, rawKey, "")
			if err != nil {
				return nil, err
			}
			if skip {
				continue
			}
			out.Services = append(out.Services, map[string]interface{}{"name": key, "source_service": name})
		}
		for _, msgName := range d.Messages {
			key := name + "_" + msgName
			if msgOwners[key] {
				continue
			}
			msgOwners[key] = true
			out.Messages = append(out.Messages, map[string]interface{}{"name": key, "source_service": name})
		}
		for _, enumName := range d.Enums {
			key := name + "_" + enumName
			if enumOwners[key] {
				result.Warnings = append(result.Warnings, fmt.Errorf("duplicate enum key %q", key))
				continue
			}
			enumOwners[key] = true
			out.Enums = append(out.Enums, map[string]interface{}{"name": key, "source_service": name})
		}
	}

	result.Conflicts = r.conflicts
	result.Spec = out
	return result, nil
}

// compositionStrategy returns a source's per-descriptor conflict strategy
// override, or "" (use the merger's configured default) when none is set.
func compositionStrategy(s Source) types.ConflictStrategy {
	if c := compositionOf(s); c != nil {
		return c.ConflictStrategy
	}
	return ""
}
