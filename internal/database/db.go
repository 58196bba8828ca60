package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

type DB struct {
	conn   *sql.DB
	dbType string
	logger *zap.Logger
}

type Config struct {
	Type       string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	SQLitePath string
	// SkipMigrations leaves the schema untouched on open.
	SkipMigrations bool
}

// NewDB opens the configured database and applies pending migrations unless
// SkipMigrations is set.
func NewDB(ctx context.Context, config Config, logger *zap.Logger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var conn *sql.DB
	var err error

	switch config.Type {
	case TypeSQLite, "":
		config.Type = TypeSQLite
		conn, err = sql.Open("sqlite3", sqliteDSN(config.SQLitePath))
		if err == nil {
			// SQLite serializes writers.
			conn.SetMaxOpenConns(1)
		}
	case TypePostgres:
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			config.Host, config.Port, config.User, config.Password, config.Name)
		conn, err = sql.Open("pgx", dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, dbType: config.Type, logger: logger}

	if !config.SkipMigrations {
		if err := NewMigrator(db).Up(ctx); err != nil {
			conn.Close()
			return nil, err
		}
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) Type() string {
	return db.dbType
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path + "&_busy_timeout=5000"
	}
	return path + "?_busy_timeout=5000"
}

// rebind rewrites ? placeholders to $n for postgres.
func (db *DB) rebind(query string) string {
	if db.dbType != TypePostgres {
		return query
	}
	out := make([]byte, 0, len(query)+8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			out = append(out, fmt.Sprintf("$%d", n)...)
			continue
		}
		out = append(out, query[i])
	}
	return string(out)
}
