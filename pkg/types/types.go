// Package types is the wire data model for schema manifests: the schemas a
// service instance exposes, how it wants to be routed, and the operational
// metadata a gateway or mesh needs to integrate it.
package types

// SchemaType identifies the API description format a schema descriptor
// carries.
type SchemaType string

const (
	SchemaTypeOpenAPI  SchemaType = "openapi"
	SchemaTypeAsyncAPI SchemaType = "asyncapi"
	SchemaTypeGRPC     SchemaType = "grpc"
	SchemaTypeGraphQL  SchemaType = "graphql"
	SchemaTypeORPC     SchemaType = "orpc"
	SchemaTypeThrift   SchemaType = "thrift"
	SchemaTypeAvro     SchemaType = "avro"
	SchemaTypeCustom   SchemaType = "custom"
)

// IsValid reports whether t is one of the known schema types.
func (t SchemaType) IsValid() bool {
	switch t {
	case SchemaTypeOpenAPI, SchemaTypeAsyncAPI, SchemaTypeGRPC, SchemaTypeGraphQL,
		SchemaTypeORPC, SchemaTypeThrift, SchemaTypeAvro, SchemaTypeCustom:
		return true
	default:
		return false
	}
}

func (t SchemaType) String() string { return string(t) }

// LocationType describes where a schema's bytes can be found.
type LocationType string

const (
	LocationTypeHTTP     LocationType = "http"
	LocationTypeRegistry LocationType = "registry"
	LocationTypeInline   LocationType = "inline"
)

func (t LocationType) IsValid() bool {
	switch t {
	case LocationTypeHTTP, LocationTypeRegistry, LocationTypeInline:
		return true
	default:
		return false
	}
}

func (t LocationType) String() string { return string(t) }

// Capability names a transport/protocol capability a service instance
// supports.
type Capability string

const (
	CapabilityREST      Capability = "rest"
	CapabilityGRPC      Capability = "grpc"
	CapabilityWebSocket Capability = "websocket"
	CapabilitySSE       Capability = "sse"
	CapabilityGraphQL   Capability = "graphql"
	CapabilityMQTT      Capability = "mqtt"
	CapabilityAMQP      Capability = "amqp"
)

func (c Capability) String() string { return string(c) }

// InstanceStatus is the lifecycle status of a service instance.
type InstanceStatus string

const (
	InstanceStatusStarting  InstanceStatus = "starting"
	InstanceStatusHealthy   InstanceStatus = "healthy"
	InstanceStatusDegraded  InstanceStatus = "degraded"
	InstanceStatusUnhealthy InstanceStatus = "unhealthy"
	InstanceStatusDraining  InstanceStatus = "draining"
	InstanceStatusStopping  InstanceStatus = "stopping"
)

// InstanceRole is the traffic role of a service instance within a
// deployment.
type InstanceRole string

const (
	InstanceRolePrimary InstanceRole = "primary"
	InstanceRoleCanary  InstanceRole = "canary"
	InstanceRoleBlue    InstanceRole = "blue"
	InstanceRoleGreen   InstanceRole = "green"
	InstanceRoleShadow  InstanceRole = "shadow"
)

// DeploymentStrategy names the rollout strategy in effect for an instance.
type DeploymentStrategy string

const (
	DeploymentStrategyRolling   DeploymentStrategy = "rolling"
	DeploymentStrategyCanary    DeploymentStrategy = "canary"
	DeploymentStrategyBlueGreen DeploymentStrategy = "blue_green"
	DeploymentStrategyShadow    DeploymentStrategy = "shadow"
	DeploymentStrategyRecreate  DeploymentStrategy = "recreate"
)

// MountStrategy controls how a gateway mounts a service's routes under its
// own path space.
type MountStrategy string

const (
	MountStrategyRoot      MountStrategy = "root"
	MountStrategyInstance  MountStrategy = "instance"
	MountStrategyService   MountStrategy = "service"
	MountStrategyVersioned MountStrategy = "versioned"
	MountStrategyCustom    MountStrategy = "custom"
	MountStrategySubdomain MountStrategy = "subdomain"
)

// DefaultMountStrategy is used when RoutingConfig.Strategy is unset.
const DefaultMountStrategy = MountStrategyInstance

func (t MountStrategy) IsValid() bool {
	switch t {
	case MountStrategyRoot, MountStrategyInstance, MountStrategyService,
		MountStrategyVersioned, MountStrategyCustom, MountStrategySubdomain:
		return true
	default:
		return false
	}
}

func (t MountStrategy) String() string { return string(t) }

// AuthType names an authentication scheme.
type AuthType string

const (
	AuthTypeBearer AuthType = "bearer"
	AuthTypeAPIKey AuthType = "apikey"
	AuthTypeBasic  AuthType = "basic"
	AuthTypeMTLS   AuthType = "mtls"
	AuthTypeOAuth2 AuthType = "oauth2"
	AuthTypeOIDC   AuthType = "oidc"
	AuthTypeCustom AuthType = "custom"
)

// CommunicationRouteType names a control-plane operation exposed over the
// service/gateway HTTP communication routes.
type CommunicationRouteType string

const (
	RouteControl        CommunicationRouteType = "control"
	RouteAdmin           CommunicationRouteType = "admin"
	RouteManagement      CommunicationRouteType = "management"
	RouteLifecycleStart  CommunicationRouteType = "lifecycle.start"
	RouteLifecycleStop   CommunicationRouteType = "lifecycle.stop"
	RouteLifecycleReload CommunicationRouteType = "lifecycle.reload"
	RouteConfigUpdate    CommunicationRouteType = "config.update"
	RouteConfigQuery     CommunicationRouteType = "config.query"
	RouteEventPoll       CommunicationRouteType = "event.poll"
	RouteEventAck        CommunicationRouteType = "event.ack"
	RouteHealthCheck     CommunicationRouteType = "health.check"
	RouteStatusQuery     CommunicationRouteType = "status.query"
	RouteSchemaQuery     CommunicationRouteType = "schema.query"
	RouteSchemaValidate  CommunicationRouteType = "schema.validate"
	RouteMetricsQuery    CommunicationRouteType = "metrics.query"
	RouteTracingExport   CommunicationRouteType = "tracing.export"
	RouteCustom          CommunicationRouteType = "custom"
)

// WebhookEventType names a lifecycle event delivered over webhooks.
type WebhookEventType string

const (
	WebhookSchemaUpdated       WebhookEventType = "schema.updated"
	WebhookHealthChanged       WebhookEventType = "health.changed"
	WebhookInstanceScaling     WebhookEventType = "instance.scaling"
	WebhookMaintenanceMode     WebhookEventType = "maintenance.mode"
	WebhookRateLimitChanged    WebhookEventType = "ratelimit.changed"
	WebhookCircuitBreakerOpen  WebhookEventType = "circuit.breaker.open"
	WebhookCircuitBreakerClose WebhookEventType = "circuit.breaker.closed"
	WebhookConfigUpdated       WebhookEventType = "config.updated"
	WebhookTrafficShift        WebhookEventType = "traffic.shift"
)

// CompatibilityMode names a schema evolution compatibility contract.
type CompatibilityMode string

const (
	CompatibilityBackward            CompatibilityMode = "backward"
	CompatibilityForward             CompatibilityMode = "forward"
	CompatibilityFull                CompatibilityMode = "full"
	CompatibilityNone                CompatibilityMode = "none"
	CompatibilityBackwardTransitive  CompatibilityMode = "backward_transitive"
	CompatibilityForwardTransitive   CompatibilityMode = "forward_transitive"
)

// ChangeType classifies a breaking schema change.
type ChangeType string

const (
	ChangeFieldRemoved      ChangeType = "field_removed"
	ChangeFieldTypeChanged  ChangeType = "field_type_changed"
	ChangeFieldRequired     ChangeType = "field_required"
	ChangeEndpointRemoved   ChangeType = "endpoint_removed"
	ChangeEndpointChanged   ChangeType = "endpoint_changed"
	ChangeEnumValueRemoved  ChangeType = "enum_value_removed"
	ChangeMethodRemoved     ChangeType = "method_removed"
)

// ChangeSeverity ranks how disruptive a breaking change is.
type ChangeSeverity string

const (
	SeverityCritical ChangeSeverity = "critical"
	SeverityHigh     ChangeSeverity = "high"
	SeverityMedium   ChangeSeverity = "medium"
	SeverityLow      ChangeSeverity = "low"
)

// DataSensitivity classifies the data a route handles.
type DataSensitivity string

const (
	SensitivityPublic       DataSensitivity = "public"
	SensitivityInternal     DataSensitivity = "internal"
	SensitivityConfidential DataSensitivity = "confidential"
	SensitivityPII          DataSensitivity = "pii"
	SensitivityPHI          DataSensitivity = "phi"
	SensitivityPCI          DataSensitivity = "pci"
)

// SizeHint roughly classifies a response payload size.
type SizeHint string

const (
	SizeSmall  SizeHint = "small"
	SizeMedium SizeHint = "medium"
	SizeLarge  SizeHint = "large"
	SizeXLarge SizeHint = "xlarge"
)

// ConflictStrategy controls how the merger resolves name collisions between
// services being composed together.
type ConflictStrategy string

const (
	ConflictPrefix    ConflictStrategy = "prefix"
	ConflictError     ConflictStrategy = "error"
	ConflictSkip      ConflictStrategy = "skip"
	ConflictOverwrite ConflictStrategy = "overwrite"
	ConflictMerge     ConflictStrategy = "merge"
)

// SchemaManifest is the document a service instance registers: what it
// exposes, how it wants traffic routed to it, and how it should be
// integrated operationally.
type SchemaManifest struct {
	Version         string             `json:"version"`
	ServiceName     string             `json:"service_name"`
	ServiceVersion  string             `json:"service_version"`
	InstanceID      string             `json:"instance_id"`
	Instance        *InstanceMetadata  `json:"instance,omitempty"`
	Schemas         []SchemaDescriptor `json:"schemas"`
	Capabilities    []string           `json:"capabilities"`
	Endpoints       SchemaEndpoints    `json:"endpoints"`
	Routing         RoutingConfig      `json:"routing"`
	Auth            *AuthConfig        `json:"auth,omitempty"`
	Webhook         *WebhookConfig     `json:"webhook,omitempty"`
	Hints           *ServiceHints      `json:"hints,omitempty"`
	UpdatedAt       int64              `json:"updated_at"`
	Checksum        string             `json:"checksum"`
}

// SchemaDescriptor describes one schema a manifest exposes.
type SchemaDescriptor struct {
	SchemaType    SchemaType             `json:"type"`
	SpecVersion   string                 `json:"spec_version"`
	Location      SchemaLocation         `json:"location"`
	ContentType   string                 `json:"content_type"`
	InlineSchema  map[string]interface{} `json:"inline_schema,omitempty"`
	Hash          string                 `json:"hash"`
	Size          int64                  `json:"size"`
	Compatibility *SchemaCompatibility   `json:"compatibility,omitempty"`
	Metadata      *ProtocolMetadata      `json:"metadata,omitempty"`
}

// SchemaLocation says where a schema's bytes live.
type SchemaLocation struct {
	LocationType LocationType      `json:"type"`
	URL          *string           `json:"url,omitempty"`
	RegistryPath *string           `json:"registry_path,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
}

// SchemaEndpoints is the set of well-known introspection endpoints a
// service instance exposes.
type SchemaEndpoints struct {
	Health          string  `json:"health"`
	Metrics         *string `json:"metrics,omitempty"`
	OpenAPI         *string `json:"openapi,omitempty"`
	AsyncAPI        *string `json:"asyncapi,omitempty"`
	GRPCReflection  bool    `json:"grpc_reflection"`
	GraphQL         *string `json:"graphql,omitempty"`
}

// InstanceMetadata is operational metadata about a single running
// instance.
type InstanceMetadata struct {
	Address               string             `json:"address"`
	Region                *string            `json:"region,omitempty"`
	Zone                  *string            `json:"zone,omitempty"`
	Labels                map[string]string  `json:"labels,omitempty"`
	Weight                *int               `json:"weight,omitempty"`
	Status                InstanceStatus     `json:"status"`
	Role                  *InstanceRole      `json:"role,omitempty"`
	Deployment            *DeploymentMetadata `json:"deployment,omitempty"`
	StartedAt             int64              `json:"started_at"`
	ExpectedSchemaChecksum *string           `json:"expected_schema_checksum,omitempty"`
}

// DeploymentMetadata describes the rollout an instance belongs to.
type DeploymentMetadata struct {
	DeploymentID    string             `json:"deployment_id"`
	Strategy        DeploymentStrategy `json:"strategy"`
	TrafficPercent  *int               `json:"traffic_percent,omitempty"`
	Stage           *string            `json:"stage,omitempty"`
	DeployedAt      int64              `json:"deployed_at"`
}

// RoutingConfig controls how a gateway mounts and rewrites a service's
// routes.
type RoutingConfig struct {
	Strategy    MountStrategy `json:"strategy"`
	BasePath    *string       `json:"base_path,omitempty"`
	Subdomain   *string       `json:"subdomain,omitempty"`
	Rewrite     []PathRewrite `json:"rewrite"`
	StripPrefix bool          `json:"strip_prefix"`
	Priority    *int          `json:"priority,omitempty"`
	Tags        []string      `json:"tags"`
}

// PathRewrite is a single regex rewrite rule applied to incoming paths.
type PathRewrite struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
}

// AuthConfig describes the authentication/authorization contract a
// service's routes are gated by.
type AuthConfig struct {
	Schemes           []AuthScheme  `json:"schemes"`
	RequiredScopes    []string      `json:"required_scopes"`
	AccessControl     []AccessRule  `json:"access_control"`
	TokenValidationURL *string      `json:"token_validation_url,omitempty"`
	PublicRoutes      []string      `json:"public_routes"`
}

// AuthScheme is one supported authentication mechanism.
type AuthScheme struct {
	AuthType AuthType               `json:"type"`
	Config   map[string]interface{} `json:"config,omitempty"`
}

// AccessRule restricts a path/method pair to a set of roles/permissions.
type AccessRule struct {
	Path            string   `json:"path"`
	Methods         []string `json:"methods"`
	Roles           []string `json:"roles"`
	Permissions     []string `json:"permissions"`
	AllowAnonymous  bool     `json:"allow_anonymous"`
}

// WebhookConfig describes event subscription/publication between a service
// and its gateway.
type WebhookConfig struct {
	ServiceWebhook   *string                  `json:"service_webhook,omitempty"`
	GatewayWebhook   *string                  `json:"gateway_webhook,omitempty"`
	Secret           *string                  `json:"secret,omitempty"`
	SubscribeEvents  []WebhookEventType       `json:"subscribe_events"`
	PublishEvents    []WebhookEventType       `json:"publish_events"`
	Retry            *RetryConfig             `json:"retry,omitempty"`
	HTTPRoutes       *HTTPCommunicationRoutes `json:"http_routes,omitempty"`
}

// HTTPCommunicationRoutes declares the HTTP control-plane surface a
// service/gateway pair communicates over, beyond the data-plane schemas.
type HTTPCommunicationRoutes struct {
	ServiceRoutes []CommunicationRoute `json:"service_routes"`
	GatewayRoutes []CommunicationRoute `json:"gateway_routes"`
	Polling       *PollingConfig       `json:"polling,omitempty"`
}

// CommunicationRoute is a single control-plane HTTP operation.
type CommunicationRoute struct {
	ID             string                 `json:"id"`
	Path           string                 `json:"path"`
	Method         string                 `json:"method"`
	RouteType      CommunicationRouteType `json:"type"`
	Description    *string                `json:"description,omitempty"`
	RequestSchema  map[string]interface{} `json:"request_schema,omitempty"`
	ResponseSchema map[string]interface{} `json:"response_schema,omitempty"`
	AuthRequired   bool                   `json:"auth_required"`
	Idempotent     bool                   `json:"idempotent"`
	Timeout        *string                `json:"timeout,omitempty"`
}

// PollingConfig configures the event-polling control route.
type PollingConfig struct {
	Interval           string  `json:"interval"`
	Timeout            *string `json:"timeout,omitempty"`
	LongPolling        bool    `json:"long_polling"`
	LongPollingTimeout *string `json:"long_polling_timeout,omitempty"`
}

// RetryConfig is a generic exponential-backoff retry policy.
type RetryConfig struct {
	MaxAttempts  int     `json:"max_attempts"`
	InitialDelay string  `json:"initial_delay"`
	MaxDelay     string  `json:"max_delay"`
	Multiplier   float64 `json:"multiplier"`
}

// SchemaCompatibility declares a schema's evolution contract and history.
type SchemaCompatibility struct {
	Mode             CompatibilityMode `json:"mode"`
	PreviousVersions []string          `json:"previous_versions"`
	BreakingChanges  []BreakingChange  `json:"breaking_changes"`
	Deprecations     []Deprecation     `json:"deprecations"`
}

// BreakingChange records one incompatible change between schema versions.
type BreakingChange struct {
	ChangeType  ChangeType     `json:"type"`
	Path        string         `json:"path"`
	Description string         `json:"description"`
	Severity    ChangeSeverity `json:"severity"`
	Migration   *string        `json:"migration,omitempty"`
}

// Deprecation records a deprecated field/operation and its sunset plan.
type Deprecation struct {
	Path          string  `json:"path"`
	DeprecatedAt  string  `json:"deprecated_at"`
	RemovalDate   *string `json:"removal_date,omitempty"`
	Replacement   *string `json:"replacement,omitempty"`
	Migration     *string `json:"migration,omitempty"`
	Reason        *string `json:"reason,omitempty"`
}

// ServiceHints gives gateways and callers operational guidance about a
// service.
type ServiceHints struct {
	RecommendedTimeout *string              `json:"recommended_timeout,omitempty"`
	ExpectedLatency    *LatencyProfile      `json:"expected_latency,omitempty"`
	Scaling            *ScalingProfile      `json:"scaling,omitempty"`
	Dependencies       []ServiceDependency  `json:"dependencies"`
}

// LatencyProfile gives percentile latency expectations.
type LatencyProfile struct {
	P50  *string `json:"p50,omitempty"`
	P95  *string `json:"p95,omitempty"`
	P99  *string `json:"p99,omitempty"`
	P999 *string `json:"p999,omitempty"`
}

// ScalingProfile declares autoscaling parameters for the service.
type ScalingProfile struct {
	AutoScale     bool     `json:"auto_scale"`
	MinInstances  *int     `json:"min_instances,omitempty"`
	MaxInstances  *int     `json:"max_instances,omitempty"`
	TargetCPU     *float64 `json:"target_cpu,omitempty"`
	TargetMemory  *float64 `json:"target_memory,omitempty"`
}

// ServiceDependency declares a dependency of the registering service on
// another service's schema.
type ServiceDependency struct {
	ServiceName     string     `json:"service_name"`
	SchemaType      SchemaType `json:"schema_type"`
	VersionRange    *string    `json:"version_range,omitempty"`
	Critical        bool       `json:"critical"`
	UsedOperations  []string   `json:"used_operations"`
}

// RouteMetadata annotates a single operation/route with scheduling and
// caching hints used by the gateway.
type RouteMetadata struct {
	OperationID    string           `json:"operation_id"`
	Path           string           `json:"path"`
	Method         *string          `json:"method,omitempty"`
	Idempotent     bool             `json:"idempotent"`
	TimeoutHint    *string          `json:"timeout_hint,omitempty"`
	Cost           *int             `json:"cost,omitempty"`
	Cacheable      bool             `json:"cacheable"`
	CacheTTL       *string          `json:"cache_ttl,omitempty"`
	Sensitivity    *DataSensitivity `json:"sensitivity,omitempty"`
	ResponseSize   *SizeHint        `json:"response_size,omitempty"`
	RateLimitHint  *int             `json:"rate_limit_hint,omitempty"`
}

// ProtocolMetadata groups the per-protocol metadata a schema descriptor may
// carry.
type ProtocolMetadata struct {
	GraphQL  *GraphQLMetadata  `json:"graphql,omitempty"`
	GRPC     *GRPCMetadata     `json:"grpc,omitempty"`
	OpenAPI  *OpenAPIMetadata  `json:"openapi,omitempty"`
	AsyncAPI *AsyncAPIMetadata `json:"asyncapi,omitempty"`
	ORPC     *ORPCMetadata     `json:"orpc,omitempty"`
}

// GraphQLMetadata describes GraphQL-specific behavior of a schema.
type GraphQLMetadata struct {
	Federation             *GraphQLFederation `json:"federation,omitempty"`
	SubscriptionsEnabled   bool               `json:"subscriptions_enabled"`
	SubscriptionProtocol   *string            `json:"subscription_protocol,omitempty"`
	ComplexityLimit        *int               `json:"complexity_limit,omitempty"`
	DepthLimit             *int               `json:"depth_limit,omitempty"`
}

// GraphQLFederation describes a subgraph's federation participation.
type GraphQLFederation struct {
	Version      string              `json:"version"`
	SubgraphName string              `json:"subgraph_name"`
	Entities     []FederatedEntity   `json:"entities"`
	Extends      []string            `json:"extends"`
	Provides     []ProvidesRelation  `json:"provides"`
	Requires     []RequiresRelation  `json:"requires"`
}

// FederatedEntity is a type the subgraph contributes as a federation
// entity.
type FederatedEntity struct {
	TypeName   string   `json:"type_name"`
	KeyFields  []string `json:"key_fields"`
	Fields     []string `json:"fields"`
	Resolvable bool     `json:"resolvable"`
}

// ProvidesRelation / RequiresRelation describe field-level federation
// relations.
type ProvidesRelation struct {
	Field  string   `json:"field"`
	Fields []string `json:"fields"`
}

type RequiresRelation struct {
	Field  string   `json:"field"`
	Fields []string `json:"fields"`
}

// GRPCMetadata describes gRPC-specific capabilities of a schema.
type GRPCMetadata struct {
	ReflectionEnabled              bool     `json:"reflection_enabled"`
	Packages                       []string `json:"packages"`
	Services                       []string `json:"services"`
	GRPCWebEnabled                 bool     `json:"grpc_web_enabled"`
	GRPCWebProtocol                *string  `json:"grpc_web_protocol,omitempty"`
	ServerStreamingEnabled         bool     `json:"server_streaming_enabled"`
	ClientStreamingEnabled         bool     `json:"client_streaming_enabled"`
	BidirectionalStreamingEnabled  bool     `json:"bidirectional_streaming_enabled"`
}

// OpenAPIMetadata carries OpenAPI-specific extensions, including how this
// service's schema should be composed into a federated spec.
type OpenAPIMetadata struct {
	Extensions       map[string]interface{}    `json:"extensions,omitempty"`
	ServerVariables  map[string]ServerVariable `json:"server_variables,omitempty"`
	DefaultSecurity  []string                  `json:"default_security"`
	Composition      *CompositionConfig        `json:"composition,omitempty"`
}

// ServerVariable is an OpenAPI server URL template variable.
type ServerVariable struct {
	Default     string   `json:"default"`
	EnumValues  []string `json:"enum_values"`
	Description *string  `json:"description,omitempty"`
}

// AsyncAPIMetadata carries AsyncAPI-specific binding metadata.
type AsyncAPIMetadata struct {
	Protocol         string                 `json:"protocol"`
	ChannelBindings  map[string]interface{} `json:"channel_bindings,omitempty"`
	MessageBindings  map[string]interface{} `json:"message_bindings,omitempty"`
}

// ORPCMetadata carries oRPC-specific behavior flags.
type ORPCMetadata struct {
	BatchEnabled        bool     `json:"batch_enabled"`
	StreamingProcedures []string `json:"streaming_procedures"`
}

// CompositionConfig controls how a service's OpenAPI schema is folded into
// a federated spec by the merger.
type CompositionConfig struct {
	IncludeInMerged     bool             `json:"include_in_merged"`
	ComponentPrefix     *string          `json:"component_prefix,omitempty"`
	TagPrefix           *string          `json:"tag_prefix,omitempty"`
	OperationIDPrefix   *string          `json:"operation_id_prefix,omitempty"`
	ConflictStrategy    ConflictStrategy `json:"conflict_strategy"`
	PreserveExtensions  bool             `json:"preserve_extensions"`
	CustomServers       []OpenAPIServer  `json:"custom_servers"`
}

// OpenAPIServer is a server entry under CompositionConfig.CustomServers.
type OpenAPIServer struct {
	URL         string                    `json:"url"`
	Description *string                   `json:"description,omitempty"`
	Variables   map[string]ServerVariable `json:"variables,omitempty"`
}
