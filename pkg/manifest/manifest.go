// Package manifest builds, validates, checksums and diffs schema
// manifests.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/xraph-labs/nexus-registry/pkg/regerrors"
	"github.com/xraph-labs/nexus-registry/pkg/types"
	"github.com/xraph-labs/nexus-registry/pkg/version"
)

// New creates a manifest for the given service/instance, stamped with the
// current protocol version and timestamp. Callers should populate
// Capabilities, Endpoints and schemas before calling UpdateChecksum.
func New(serviceName, serviceVersion, instanceID string) types.SchemaManifest {
	return types.SchemaManifest{
		Version:        version.ProtocolVersion,
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		InstanceID:     instanceID,
		Schemas:        []types.SchemaDescriptor{},
		Capabilities:   []string{},
		Routing:        types.RoutingConfig{Strategy: types.DefaultMountStrategy},
		UpdatedAt:      time.Now().Unix(),
	}
}

// NewInstanceID generates a fresh random instance identifier.
func NewInstanceID() string {
	return uuid.NewString()
}

// AddSchema appends a schema descriptor, replacing any existing descriptor
// of the same schema type.
func AddSchema(m *types.SchemaManifest, descriptor types.SchemaDescriptor) {
	for i, existing := range m.Schemas {
		if existing.SchemaType == descriptor.SchemaType {
			m.Schemas[i] = descriptor
			return
		}
	}
	m.Schemas = append(m.Schemas, descriptor)
}

// AddCapability appends a capability if not already present.
func AddCapability(m *types.SchemaManifest, capability types.Capability) {
	for _, c := range m.Capabilities {
		if c == string(capability) {
			return
		}
	}
	m.Capabilities = append(m.Capabilities, string(capability))
}

// GetSchema returns the descriptor for a schema type, if present.
func GetSchema(m *types.SchemaManifest, schemaType types.SchemaType) (types.SchemaDescriptor, bool) {
	for _, s := range m.Schemas {
		if s.SchemaType == schemaType {
			return s, true
		}
	}
	return types.SchemaDescriptor{}, false
}

// HasCapability reports whether the manifest declares a capability.
func HasCapability(m *types.SchemaManifest, capability types.Capability) bool {
	for _, c := range m.Capabilities {
		if c == string(capability) {
			return true
		}
	}
	return false
}

// ToJSON serializes the manifest to canonical JSON bytes.
func ToJSON(m *types.SchemaManifest) ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON deserializes a manifest from JSON bytes.
func FromJSON(data []byte) (types.SchemaManifest, error) {
	var m types.SchemaManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return types.SchemaManifest{}, regerrors.InvalidManifest(err.Error())
	}
	return m, nil
}

// CalculateSchemaChecksum returns the hex-encoded SHA-256 hash of the
// schema's canonical JSON encoding.
func CalculateSchemaChecksum(schema interface{}) (string, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return "", regerrors.InvalidSchema(err.Error())
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// CalculateManifestChecksum hashes the manifest's schema descriptors
// together: the per-schema hashes are concatenated in ascending
// schema-type order and SHA-256'd. An empty schema list yields an empty
// checksum.
func CalculateManifestChecksum(m *types.SchemaManifest) string {
	if len(m.Schemas) == 0 {
		return ""
	}

	sorted := make([]types.SchemaDescriptor, len(m.Schemas))
	copy(sorted, m.Schemas)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].SchemaType.String() < sorted[j].SchemaType.String()
	})

	var concatenated string
	for _, s := range sorted {
		concatenated += s.Hash
	}

	sum := sha256.Sum256([]byte(concatenated))
	return hex.EncodeToString(sum[:])
}

// UpdateChecksum recomputes and stores the manifest-level checksum.
func UpdateChecksum(m *types.SchemaManifest) {
	m.Checksum = CalculateManifestChecksum(m)
}

// Validate checks the manifest against its structural invariants in
// fail-fast order: protocol compatibility, required identity fields,
// required health endpoint, each schema descriptor in turn, and finally
// (if a checksum was already set) that the checksum still matches.
func Validate(m *types.SchemaManifest) error {
	if !version.IsCompatible(m.Version) {
		return regerrors.IncompatibleVersion(m.Version, version.ProtocolVersion)
	}
	if m.ServiceName == "" {
		return regerrors.InvalidManifest("service_name must not be empty")
	}
	if m.InstanceID == "" {
		return regerrors.InvalidManifest("instance_id must not be empty")
	}
	if m.Endpoints.Health == "" {
		return regerrors.InvalidManifest("endpoints.health must not be empty")
	}

	for i, descriptor := range m.Schemas {
		if err := ValidateSchemaDescriptor(&descriptor); err != nil {
			return regerrors.InvalidManifest(fmt.Sprintf("schema[%d]: %v", i, err))
		}
	}

	if m.Checksum != "" {
		expected := CalculateManifestChecksum(m)
		if expected != m.Checksum {
			return regerrors.ChecksumMismatch(expected, m.Checksum)
		}
	}

	return nil
}

// ValidateSchemaDescriptor checks a single descriptor's invariants.
func ValidateSchemaDescriptor(d *types.SchemaDescriptor) error {
	if !d.SchemaType.IsValid() {
		return regerrors.InvalidSchema(fmt.Sprintf("unknown schema type %q", d.SchemaType))
	}
	if d.SpecVersion == "" {
		return regerrors.InvalidSchema("spec_version must not be empty")
	}
	if err := validateSchemaLocation(&d.Location); err != nil {
		return err
	}
	if d.Location.LocationType == types.LocationTypeInline && d.InlineSchema == nil {
		return regerrors.InvalidSchema("inline location requires inline_schema")
	}
	if d.Hash == "" {
		return regerrors.InvalidSchema("hash must not be empty")
	}
	if len(d.Hash) != 64 {
		return regerrors.InvalidSchema("hash must be exactly 64 characters")
	}
	for _, c := range d.Hash {
		if !(c >= '0' && c <= '9') && !(c >= 'a' && c <= 'f') {
			return regerrors.InvalidSchema("hash must be lowercase hex")
		}
	}
	if d.ContentType == "" {
		return regerrors.InvalidSchema("content_type must not be empty")
	}
	return nil
}

func validateSchemaLocation(loc *types.SchemaLocation) error {
	if !loc.LocationType.IsValid() {
		return regerrors.InvalidLocation(fmt.Sprintf("unknown location type %q", loc.LocationType))
	}
	switch loc.LocationType {
	case types.LocationTypeHTTP:
		if loc.URL == nil || *loc.URL == "" {
			return regerrors.InvalidLocation("http location requires a non-empty url")
		}
	case types.LocationTypeRegistry:
		if loc.RegistryPath == nil || *loc.RegistryPath == "" {
			return regerrors.InvalidLocation("registry location requires a non-empty registry_path")
		}
	case types.LocationTypeInline:
		// no additional location fields required
	}
	return nil
}

// Diff is the result of comparing two manifests for the same instance.
type Diff struct {
	Added            []types.SchemaDescriptor
	Changed          []SchemaChangeDiff
	Removed          []types.SchemaDescriptor
	CapabilitiesAdded   []string
	CapabilitiesRemoved []string
	EndpointsChanged bool
}

// SchemaChangeDiff describes how a single schema type changed between two
// manifest versions.
type SchemaChangeDiff struct {
	SchemaType SchemaTypeChange
	Old        types.SchemaDescriptor
	New        types.SchemaDescriptor
}

// SchemaTypeChange is a convenience alias kept distinct for readability at
// call sites.
type SchemaTypeChange = types.SchemaType

// HasChanges reports whether the diff contains any difference at all.
func (d Diff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Changed) > 0 || len(d.Removed) > 0 ||
		len(d.CapabilitiesAdded) > 0 || len(d.CapabilitiesRemoved) > 0 || d.EndpointsChanged
}

// DiffManifests compares two manifests for the same service instance and
// reports what changed.
func DiffManifests(oldM, newM *types.SchemaManifest) Diff {
	oldByType := make(map[types.SchemaType]types.SchemaDescriptor, len(oldM.Schemas))
	for _, s := range oldM.Schemas {
		oldByType[s.SchemaType] = s
	}
	newByType := make(map[types.SchemaType]types.SchemaDescriptor, len(newM.Schemas))
	for _, s := range newM.Schemas {
		newByType[s.SchemaType] = s
	}

	var diff Diff
	for t, newDesc := range newByType {
		if oldDesc, ok := oldByType[t]; ok {
			if oldDesc.Hash != newDesc.Hash {
				diff.Changed = append(diff.Changed, SchemaChangeDiff{SchemaType: t, Old: oldDesc, New: newDesc})
			}
		} else {
			diff.Added = append(diff.Added, newDesc)
		}
	}
	for t, oldDesc := range oldByType {
		if _, ok := newByType[t]; !ok {
			diff.Removed = append(diff.Removed, oldDesc)
		}
	}

	oldCaps := make(map[string]bool, len(oldM.Capabilities))
	for _, c := range oldM.Capabilities {
		oldCaps[c] = true
	}
	newCaps := make(map[string]bool, len(newM.Capabilities))
	for _, c := range newM.Capabilities {
		newCaps[c] = true
	}
	for c := range newCaps {
		if !oldCaps[c] {
			diff.CapabilitiesAdded = append(diff.CapabilitiesAdded, c)
		}
	}
	for c := range oldCaps {
		if !newCaps[c] {
			diff.CapabilitiesRemoved = append(diff.CapabilitiesRemoved, c)
		}
	}

	diff.EndpointsChanged = !endpointsEqual(oldM.Endpoints, newM.Endpoints)

	return diff
}

func endpointsEqual(a, b types.SchemaEndpoints) bool {
	if a.Health != b.Health || a.GRPCReflection != b.GRPCReflection {
		return false
	}
	return strPtrEqual(a.Metrics, b.Metrics) &&
		strPtrEqual(a.OpenAPI, b.OpenAPI) &&
		strPtrEqual(a.AsyncAPI, b.AsyncAPI) &&
		strPtrEqual(a.GraphQL, b.GraphQL)
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
