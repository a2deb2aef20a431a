package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsFromEnvironment(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Type)
}

func TestLoadAppliesYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9999"
  read_timeout: "5s"
storage:
  type: filesystem
  filesystem_root: /tmp/schemas
observability:
  log_level: debug
  metrics_enabled: false
`), 0o600))

	t.Setenv("REGISTRY_CONFIG_FILE", path)
	t.Setenv("REGISTRY_HEALTH_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "filesystem", cfg.Storage.Type)
	assert.Equal(t, "/tmp/schemas", cfg.Storage.FilesystemRoot)
	assert.False(t, cfg.Observability.MetricsEnabled)
}

func TestLoadReturnsErrorForMissingConfigFile(t *testing.T) {
	t.Setenv("REGISTRY_CONFIG_FILE", "/nonexistent/registry.yaml")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidateRejectsMatchingPorts(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{Port: "8080", HealthPort: "8080"},
		Storage: StorageConfig{Type: "memory"},
	}
	assert.Error(t, cfg.Validate())
}
