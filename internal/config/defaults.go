package config

import (
	"github.com/kdimtricp/signlang/internal/capture"
	"github.com/kdimtricp/signlang/internal/inference"
	"github.com/kdimtricp/signlang/internal/storage"
	"github.com/kdimtricp/signlang/internal/vocabulary"
)

const (
	defaultPort               = 8080
	defaultMaxUploadSize      = 100 << 20
	defaultSessionIdleSeconds = 1800
	defaultStorageBackend     = BackendLocal
	defaultUploadDir          = "./uploads"
	defaultPublicBaseURL      = "http://localhost:8080/media"
	defaultInferenceSeconds   = 60
	defaultDBType             = "sqlite"
	defaultDBPath             = "./signlang.db"
	defaultDBHost             = "localhost"
	defaultDBPort             = 5432
	defaultDBUser             = "signlang"
	defaultDBName             = "signlang"
	defaultLogLevel           = "info"
	defaultLogFormat          = "console"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			Port:               defaultPort,
			MaxUploadSize:      defaultMaxUploadSize,
			SessionIdleSeconds: defaultSessionIdleSeconds,
		},
		Storage: Storage{
			Backend:       defaultStorageBackend,
			UploadDir:     defaultUploadDir,
			PublicBaseURL: defaultPublicBaseURL,
			KeyPrefix:     storage.DefaultKeyPrefix,
		},
		Inference: Inference{
			URL:            inference.DefaultEndpoint,
			TimeoutSeconds: defaultInferenceSeconds,
		},
		Vocabulary: Vocabulary{
			AssetBaseURL: vocabulary.DefaultAssetBaseURL,
			AssetExt:     vocabulary.DefaultAssetExt,
			DefaultWord:  vocabulary.DefaultWord,
		},
		Capture: Capture{
			Device:      capture.DefaultDevice,
			FFmpegPath:  "ffmpeg",
			InputFormat: capture.DefaultInputFormat,
		},
		Database: Database{
			Type: defaultDBType,
			Path: defaultDBPath,
			Host: defaultDBHost,
			Port: defaultDBPort,
			User: defaultDBUser,
			Name: defaultDBName,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
