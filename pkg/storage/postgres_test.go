package storage

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph-labs/nexus-registry/pkg/regerrors"
)

func newMockPostgresBackend(t *testing.T) (*PostgresBackend, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS registry_kv").WillReturnResult(sqlmock.NewResult(0, 0))

	backend, err := NewPostgresBackendFromDB(context.Background(), db)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	return backend, mock
}

func TestPostgresBackendPutUpserts(t *testing.T) {
	backend, mock := newMockPostgresBackend(t)

	mock.ExpectExec("INSERT INTO registry_kv").
		WithArgs("ns/services/billing/instance-1", []byte(`{"v":1}`)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := backend.Put(context.Background(), "ns/services/billing/instance-1", []byte(`{"v":1}`))
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackendGetReturnsNotFound(t *testing.T) {
	backend, mock := newMockPostgresBackend(t)

	mock.ExpectQuery("SELECT value FROM registry_kv").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	_, err := backend.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, regerrors.ErrSchemaNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackendGetReturnsStoredValue(t *testing.T) {
	backend, mock := newMockPostgresBackend(t)

	mock.ExpectQuery("SELECT value FROM registry_kv").
		WithArgs("ns/services/billing/instance-1").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`{"v":1}`)))

	value, err := backend.Get(context.Background(), "ns/services/billing/instance-1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":1}`), value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackendListFiltersByPrefix(t *testing.T) {
	backend, mock := newMockPostgresBackend(t)

	mock.ExpectQuery("SELECT key FROM registry_kv WHERE key LIKE").
		WithArgs("ns/services/billing/%").
		WillReturnRows(sqlmock.NewRows([]string{"key"}).
			AddRow("ns/services/billing/instance-1").
			AddRow("ns/services/billing/instance-2"))

	keys, err := backend.List(context.Background(), "ns/services/billing/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ns/services/billing/instance-1", "ns/services/billing/instance-2"}, keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackendDelete(t *testing.T) {
	backend, mock := newMockPostgresBackend(t)

	mock.ExpectExec("DELETE FROM registry_kv").
		WithArgs("ns/services/billing/instance-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := backend.Delete(context.Background(), "ns/services/billing/instance-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackendWatchIsUnsupported(t *testing.T) {
	backend, _ := newMockPostgresBackend(t)

	_, err := backend.Watch(context.Background(), "ns/")
	assert.Error(t, err)
}
