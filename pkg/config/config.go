// Package config loads the service's runtime configuration from the
// environment, following the ambient-stack conventions of the rest of the
// registry.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xraph-labs/nexus-registry/pkg/observability"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig
	Registry      RegistryConfig
	Storage       StorageConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	HealthPort      string
}

// RegistryConfig mirrors the protocol's RegistryConfig defaults.
type RegistryConfig struct {
	Backend              string
	Namespace            string
	MaxSchemaSize        int64
	CompressionThreshold int64
	TTL                  time.Duration
}

// StorageConfig holds backend-specific storage settings.
type StorageConfig struct {
	Type string // memory, filesystem, redis, postgres, s3

	FilesystemRoot string

	PostgresURL      string
	PostgresMaxConns int
	PostgresMinConns int

	RedisURL      string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int

	S3Endpoint       string
	S3Region         string
	S3Bucket         string
	S3AccessKey      string
	S3SecretKey      string
	S3UsePathStyle   bool

	CacheEnabled bool
	L1CacheSize  int
}

// ObservabilityConfig holds logging/metrics/tracing settings.
type ObservabilityConfig struct {
	LogLevel           observability.LogLevel
	MetricsEnabled     bool
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// Load reads configuration from the environment, overlays a YAML file
// named by REGISTRY_CONFIG_FILE if set, and validates the result. File
// values take precedence over environment defaults so an operator can
// check a base config into version control and still override individual
// fields per-environment.
func Load() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Registry:      loadRegistryConfig(),
		Storage:       loadStorageConfig(),
		Observability: loadObservabilityConfig(),
	}
	if path := getEnv("REGISTRY_CONFIG_FILE", ""); path != "" {
		if err := applyFileOverlay(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// fileOverlay holds the subset of Config a YAML file can override, every
// field optional so a file only needs to name the settings it changes:
// all server settings; storage type, filesystem_root, postgres_url,
// redis_url and s3_bucket; and observability log_level, metrics_enabled,
// otel_enabled and otel_endpoint. Registry settings and the other storage
// and observability fields are not read from the file.
type fileOverlay struct {
	Server *struct {
		Host            *string `yaml:"host"`
		Port            *string `yaml:"port"`
		ReadTimeout     *string `yaml:"read_timeout"`
		WriteTimeout    *string `yaml:"write_timeout"`
		IdleTimeout     *string `yaml:"idle_timeout"`
		ShutdownTimeout *string `yaml:"shutdown_timeout"`
		HealthPort      *string `yaml:"health_port"`
	} `yaml:"server"`
	Storage *struct {
		Type           *string `yaml:"type"`
		FilesystemRoot *string `yaml:"filesystem_root"`
		PostgresURL    *string `yaml:"postgres_url"`
		RedisURL       *string `yaml:"redis_url"`
		S3Bucket       *string `yaml:"s3_bucket"`
	} `yaml:"storage"`
	Observability *struct {
		LogLevel       *string `yaml:"log_level"`
		MetricsEnabled *bool   `yaml:"metrics_enabled"`
		OTelEnabled    *bool   `yaml:"otel_enabled"`
		OTelEndpoint   *string `yaml:"otel_endpoint"`
	} `yaml:"observability"`
}

// applyFileOverlay reads path as YAML and overlays any fields it sets
// onto cfg, leaving env-sourced values in place for anything the file
// omits.
func applyFileOverlay(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var overlay fileOverlay
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return fmt.Errorf("parsing yaml: %w", err)
	}

	if s := overlay.Server; s != nil {
		if s.Host != nil {
			cfg.Server.Host = *s.Host
		}
		if s.Port != nil {
			cfg.Server.Port = *s.Port
		}
		if s.ReadTimeout != nil {
			if d, err := time.ParseDuration(*s.ReadTimeout); err == nil {
				cfg.Server.ReadTimeout = d
			}
		}
		if s.WriteTimeout != nil {
			if d, err := time.ParseDuration(*s.WriteTimeout); err == nil {
				cfg.Server.WriteTimeout = d
			}
		}
		if s.IdleTimeout != nil {
			if d, err := time.ParseDuration(*s.IdleTimeout); err == nil {
				cfg.Server.IdleTimeout = d
			}
		}
		if s.ShutdownTimeout != nil {
			if d, err := time.ParseDuration(*s.ShutdownTimeout); err == nil {
				cfg.Server.ShutdownTimeout = d
			}
		}
		if s.HealthPort != nil {
			cfg.Server.HealthPort = *s.HealthPort
		}
	}

	if st := overlay.Storage; st != nil {
		if st.Type != nil {
			cfg.Storage.Type = *st.Type
		}
		if st.FilesystemRoot != nil {
			cfg.Storage.FilesystemRoot = *st.FilesystemRoot
		}
		if st.PostgresURL != nil {
			cfg.Storage.PostgresURL = *st.PostgresURL
		}
		if st.RedisURL != nil {
			cfg.Storage.RedisURL = *st.RedisURL
		}
		if st.S3Bucket != nil {
			cfg.Storage.S3Bucket = *st.S3Bucket
		}
	}

	if o := overlay.Observability; o != nil {
		if o.LogLevel != nil {
			cfg.Observability.LogLevel = parseLogLevel(*o.LogLevel)
		}
		if o.MetricsEnabled != nil {
			cfg.Observability.MetricsEnabled = *o.MetricsEnabled
		}
		if o.OTelEnabled != nil {
			cfg.Observability.OTelEnabled = *o.OTelEnabled
		}
		if o.OTelEndpoint != nil {
			cfg.Observability.OTelEndpoint = *o.OTelEndpoint
		}
	}

	return nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("REGISTRY_HOST", "0.0.0.0"),
		Port:            getEnv("REGISTRY_PORT", "8080"),
		ReadTimeout:     getEnvDuration("REGISTRY_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("REGISTRY_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("REGISTRY_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("REGISTRY_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("REGISTRY_HEALTH_PORT", "9090"),
	}
}

func loadRegistryConfig() RegistryConfig {
	return RegistryConfig{
		Backend:              getEnv("REGISTRY_BACKEND", "memory"),
		Namespace:            getEnv("REGISTRY_NAMESPACE", "registry"),
		MaxSchemaSize:        getEnvInt64("REGISTRY_MAX_SCHEMA_SIZE", 1024*1024),
		CompressionThreshold: getEnvInt64("REGISTRY_COMPRESSION_THRESHOLD", 100*1024),
		TTL:                  getEnvDuration("REGISTRY_TTL", 0),
	}
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Type:             getEnv("REGISTRY_STORAGE_TYPE", "memory"),
		FilesystemRoot:   getEnv("REGISTRY_FILESYSTEM_ROOT", ""),
		PostgresURL:      getEnv("REGISTRY_POSTGRES_URL", ""),
		PostgresMaxConns: getEnvInt("REGISTRY_POSTGRES_MAX_CONNS", 10),
		PostgresMinConns: getEnvInt("REGISTRY_POSTGRES_MIN_CONNS", 1),
		RedisURL:         getEnv("REGISTRY_REDIS_URL", ""),
		RedisPassword:    getEnv("REGISTRY_REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REGISTRY_REDIS_DB", 0),
		RedisPoolSize:    getEnvInt("REGISTRY_REDIS_POOL_SIZE", 10),
		S3Endpoint:       getEnv("REGISTRY_S3_ENDPOINT", ""),
		S3Region:         getEnv("REGISTRY_S3_REGION", ""),
		S3Bucket:         getEnv("REGISTRY_S3_BUCKET", ""),
		S3AccessKey:      getEnv("REGISTRY_S3_ACCESS_KEY", ""),
		S3SecretKey:      getEnv("REGISTRY_S3_SECRET_KEY", ""),
		S3UsePathStyle:   getEnvBool("REGISTRY_S3_USE_PATH_STYLE", false),
		CacheEnabled:     getEnvBool("REGISTRY_CACHE_ENABLED", true),
		L1CacheSize:      getEnvInt("REGISTRY_L1_CACHE_SIZE", 1024),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("REGISTRY_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("REGISTRY_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("REGISTRY_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("REGISTRY_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("REGISTRY_OTEL_SERVICE_NAME", "schema-registry"),
		OTelServiceVersion: getEnv("REGISTRY_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("REGISTRY_OTEL_INSECURE", true),
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	switch c.Storage.Type {
	case "memory":
	case "filesystem":
		if c.Storage.FilesystemRoot == "" {
			return fmt.Errorf("filesystem root is required for filesystem storage")
		}
	case "redis":
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("redis URL is required for redis storage")
		}
	case "postgres":
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres storage")
		}
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3 bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s", c.Storage.Type)
	}

	if c.Observability.OTelEnabled && c.Observability.OTelEndpoint == "" {
		return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
	}

	return nil
}

func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
