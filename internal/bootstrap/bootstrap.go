// Package bootstrap builds the runtime collaborators described by a Config.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kdimtricp/signlang/internal/capture"
	"github.com/kdimtricp/signlang/internal/config"
	"github.com/kdimtricp/signlang/internal/database"
	"github.com/kdimtricp/signlang/internal/inference"
	"github.com/kdimtricp/signlang/internal/logging"
	"github.com/kdimtricp/signlang/internal/storage"
	"github.com/kdimtricp/signlang/internal/vocabulary"
)

// Storage is the configured upload backend. Local is set only for the local
// backend, whose objects the server also serves.
type Storage struct {
	Backend storage.Backend
	Local   *storage.LocalStorage
	gcs     *storage.GCSStorage
}

func OpenStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	switch cfg.Storage.Backend {
	case config.BackendGCS:
		gcs, err := storage.NewGCSStorage(ctx, cfg.Storage.GCSBucket, cfg.Storage.GCSCredentialsFile)
		if err != nil {
			return nil, err
		}
		return &Storage{Backend: gcs, gcs: gcs}, nil
	case config.BackendLocal:
		local, err := storage.NewLocalStorage(cfg.Storage.UploadDir, cfg.Storage.PublicBaseURL)
		if err != nil {
			return nil, err
		}
		return &Storage{Backend: local, Local: local}, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}

func (s *Storage) Close() error {
	if s.gcs != nil {
		return s.gcs.Close()
	}
	return nil
}

func (s *Storage) NewUploader(cfg *config.Config, logger *zap.Logger) *storage.Uploader {
	return storage.NewUploader(s.Backend, cfg.Storage.KeyPrefix, logger)
}

func DatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		Type:       cfg.Database.Type,
		Host:       cfg.Database.Host,
		Port:       cfg.Database.Port,
		User:       cfg.Database.User,
		Password:   cfg.Database.Password,
		Name:       cfg.Database.Name,
		SQLitePath: cfg.Database.Path,
	}
}

func OpenDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*database.DB, error) {
	return database.NewDB(ctx, DatabaseConfig(cfg), logger)
}

func NewClassifier(cfg *config.Config, logger *zap.Logger) *inference.Client {
	return inference.NewClient(cfg.Inference.URL, cfg.InferenceTimeout(), logger)
}

func NewVocabulary(cfg *config.Config) *vocabulary.Vocabulary {
	return vocabulary.New(cfg.Vocabulary.Words, cfg.Vocabulary.AssetBaseURL, cfg.Vocabulary.AssetExt)
}

func NewRecorder(cfg *config.Config, logger *zap.Logger) *capture.FFmpegRecorder {
	return capture.NewFFmpegRecorder(capture.Options{
		FFmpegPath:  cfg.Capture.FFmpegPath,
		Device:      cfg.Capture.Device,
		InputFormat: cfg.Capture.InputFormat,
	}, logger)
}

// NewLogger builds the process logger; errorOnly restricts CLI output to
// failures regardless of the configured level.
func NewLogger(cfg *config.Config, errorOnly bool) (*zap.Logger, error) {
	opts := logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}
	if errorOnly {
		opts.Level = "error"
		opts.OutputPaths = []string{"stderr"}
	}
	return logging.New(opts)
}
