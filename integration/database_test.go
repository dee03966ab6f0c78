//go:build database

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// exerciseBackend runs the cache and history lifecycle against the configured backend.
func exerciseBackend(t *testing.T, backend, connStr string) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RADAR_CACHE_BACKEND", backend)
	t.Setenv("RADAR_CACHE_DB_CONNECT", connStr)
	t.Setenv("RADAR_HISTORY_BACKEND", backend)
	t.Setenv("RADAR_HISTORY_DB_CONNECT", connStr)

	_, _, err := runRadar(t, "cache", "clear")
	require.NoError(t, err)
	_, _, err = runRadar(t, "history", "clear")
	require.NoError(t, err)

	// Second run is served from the cache
	_, _, err = runRadar(t, forecastArgs(t, "--limit", "5")...)
	require.NoError(t, err)
	out, _, err := runRadar(t, forecastArgs(t, "--limit", "5")...)
	require.NoError(t, err)
	assert.Contains(t, out, "(cached)")

	out, _, err = runRadar(t, "cache", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Entries: 1")

	out, _, err = runRadar(t, "history", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Runs: 2")

	out, _, err = runRadar(t, "history", "migrate", "--target-version", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "to version 1")
	out, _, err = runRadar(t, "history", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "to version 2")
}

// TestRadarWithMySQL tests the radar CLI with a MySQL backend.
func TestRadarWithMySQL(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "radar",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = mysqlC.Terminate(ctx) }()

	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	exerciseBackend(t, "mysql", fmt.Sprintf("root:secret123@tcp(%s:%s)/radar?parseTime=true", host, port.Port()))
}

// TestRadarWithPostgres tests the radar CLI with a PostgreSQL backend.
func TestRadarWithPostgres(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	exerciseBackend(t, "postgresql", fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres sslmode=disable", host, port.Port()))
}
