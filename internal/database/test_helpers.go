package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
)

func setupSQLiteDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(context.Background(), Config{
		Type:       TypeSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "signlang.db"),
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to open SQLite database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func setupPostgresDB(t *testing.T) *DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping PostgreSQL container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("signlang_test"),
		postgres.WithUsername("signlang_test"),
		postgres.WithPassword("signlang_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	db, err := NewDB(ctx, Config{
		Type:     TypePostgres,
		Host:     host,
		Port:     port.Int(),
		User:     "signlang_test",
		Password: "signlang_test_password",
		Name:     "signlang_test",
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
