package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type Migrator struct {
	db *DB
}

func NewMigrator(db *DB) *Migrator {
	return &Migrator{db: db}
}

func (m *Migrator) provider() (*goose.Provider, error) {
	dialect := goose.DialectSQLite3
	if m.db.dbType == TypePostgres {
		dialect = goose.DialectPostgres
	}

	migrations, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations: %w", err)
	}

	provider, err := goose.NewProvider(dialect, m.db.conn, migrations)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return provider, nil
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) error {
	provider, err := m.provider()
	if err != nil {
		return err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if len(results) == 0 {
		m.db.logger.Debug("no pending migrations")
		return nil
	}
	for _, r := range results {
		m.db.logger.Info("applied migration",
			zap.Int64("version", r.Source.Version),
			zap.String("path", r.Source.Path),
			zap.Duration("duration", r.Duration))
	}
	return nil
}

// Version reports the current schema version.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	provider, err := m.provider()
	if err != nil {
		return 0, err
	}
	return provider.GetDBVersion(ctx)
}

// Status lists every known migration and whether it has been applied.
func (m *Migrator) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	provider, err := m.provider()
	if err != nil {
		return nil, err
	}
	return provider.Status(ctx)
}
