package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/kdimtricp/signlang/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Storage.UploadDir = filepath.Join(dir, "uploads")
	cfg.Database.Path = filepath.Join(dir, "signlang.db")
	return &cfg
}

func TestOpenLocalStorage(t *testing.T) {
	cfg := testConfig(t)

	store, err := OpenStorage(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	if store.Local == nil || store.Backend == nil {
		t.Fatal("Expected local backend")
	}
	if store.NewUploader(cfg, zap.NewNop()) == nil {
		t.Fatal("Expected uploader")
	}
}

func TestOpenStorageRejectsUnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Backend = "s3"
	if _, err := OpenStorage(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for unknown backend")
	}
}

func TestOpenDatabase(t *testing.T) {
	cfg := testConfig(t)

	db, err := OpenDatabase(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if db.Type() != "sqlite" {
		t.Errorf("Expected sqlite, got %s", db.Type())
	}
}

func TestDatabaseConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Type = "postgres"
	cfg.Database.Port = 6543

	dbCfg := DatabaseConfig(cfg)
	if dbCfg.Type != "postgres" || dbCfg.Port != 6543 || dbCfg.SQLitePath != cfg.Database.Path {
		t.Errorf("Unexpected database config %+v", dbCfg)
	}
}

func TestNewVocabularyUsesConfiguredWords(t *testing.T) {
	cfg := testConfig(t)
	cfg.Vocabulary.Words = []string{"Makan", "minum"}
	cfg.Vocabulary.AssetBaseURL = "https://assets.example.com/"

	vocab := NewVocabulary(cfg)
	if got := vocab.Words(); len(got) != 2 {
		t.Fatalf("Expected 2 words, got %v", got)
	}
	if got := vocab.AssetURL("MAKAN"); got != "https://assets.example.com/makan.webm" {
		t.Errorf("Unexpected asset URL %s", got)
	}
}

func TestNewLoggerErrorOnly(t *testing.T) {
	cfg := testConfig(t)
	cfg.Logging.Level = "debug"

	logger, err := NewLogger(cfg, true)
	if err != nil {
		t.Fatalf("Failed to build logger: %v", err)
	}
	if logger.Core().Enabled(zap.WarnLevel) {
		t.Error("Expected warn to be disabled in error-only mode")
	}
}
