//go:build integration

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgresContainer starts a real Postgres instance for the backend
// to run its schema/CRUD path against, complementing the sqlmock-based
// unit tests with one exercise of the actual driver and SQL dialect.
func setupPostgresContainer(t *testing.T) (string, func()) {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("registry_test"),
		postgres.WithUsername("registry"),
		postgres.WithPassword("registry_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cleanup := func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = container.Terminate(cleanupCtx)
	}
	return connStr, cleanup
}

func TestPostgresBackendAgainstRealDatabase(t *testing.T) {
	dsn, cleanup := setupPostgresContainer(t)
	defer cleanup()

	ctx := context.Background()
	backend, err := NewPostgresBackend(ctx, dsn)
	require.NoError(t, err)
	defer backend.Close(ctx)

	require.NoError(t, backend.Put(ctx, "schemas/billing/v1", []byte(`{"openapi":"3.0.0"}`)))

	value, err := backend.Get(ctx, "schemas/billing/v1")
	require.NoError(t, err)
	require.Equal(t, `{"openapi":"3.0.0"}`, string(value))

	keys, err := backend.List(ctx, "schemas/billing")
	require.NoError(t, err)
	require.Contains(t, keys, "schemas/billing/v1")

	require.NoError(t, backend.Delete(ctx, "schemas/billing/v1"))
	_, err = backend.Get(ctx, "schemas/billing/v1")
	require.Error(t, err)
}
