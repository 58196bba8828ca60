package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

const (
	BackendLocal = "local"
	BackendGCS   = "gcs"

	// ProjectConfigFile is read from the working directory when no path is given.
	ProjectConfigFile = "signlang.toml"
)

// Server contains HTTP listener and session settings.
type Server struct {
	Port               int   `toml:"port"`
	MaxUploadSize      int64 `toml:"max_upload_size"`
	SessionIdleSeconds int   `toml:"session_idle_seconds"`
}

// Storage selects and configures the blob store clips are uploaded to.
type Storage struct {
	Backend            string `toml:"backend"`
	UploadDir          string `toml:"upload_dir"`
	PublicBaseURL      string `toml:"public_base_url"`
	KeyPrefix          string `toml:"key_prefix"`
	GCSBucket          string `toml:"gcs_bucket"`
	GCSCredentialsFile string `toml:"gcs_credentials_file"`
}

// Inference configures the remote sign classifier.
type Inference struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Vocabulary configures the text-mode word list and its animation assets.
type Vocabulary struct {
	Words        []string `toml:"words"`
	AssetBaseURL string   `toml:"asset_base_url"`
	AssetExt     string   `toml:"asset_ext"`
	DefaultWord  string   `toml:"default_word"`
}

// Capture configures the camera recorder.
type Capture struct {
	Device      string `toml:"device"`
	FFmpegPath  string `toml:"ffmpeg_path"`
	InputFormat string `toml:"input_format"`
}

// Database configures classification history storage.
type Database struct {
	Type     string `toml:"type"`
	Path     string `toml:"path"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Config struct {
	Server     Server     `toml:"server"`
	Storage    Storage    `toml:"storage"`
	Inference  Inference  `toml:"inference"`
	Vocabulary Vocabulary `toml:"vocabulary"`
	Capture    Capture    `toml:"capture"`
	Database   Database   `toml:"database"`
	Logging    Logging    `toml:"logging"`
}

// Load builds a Config from defaults, the TOML file at path (or
// ProjectConfigFile when path is empty), .env and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	dotenv, err := readDotEnv(".env")
	if err != nil {
		return nil, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Sample returns an annotated TOML file with every setting at its default.
func Sample() string {
	return sampleConfig
}

func (c *Config) InferenceTimeout() time.Duration {
	return time.Duration(c.Inference.TimeoutSeconds) * time.Second
}

func (c *Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.Server.SessionIdleSeconds) * time.Second
}

func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Server.Port)
}

func (c *Config) loadFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ProjectConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func readDotEnv(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return values, nil
}

type envLookup func(key string) (string, bool)

func (c *Config) applyEnv(lookup envLookup) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	seconds := func(key string, dst *int) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			n, err := parseSeconds(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	integer("PORT", &c.Server.Port)
	if v, ok := lookup("MAX_UPLOAD_SIZE"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid MAX_UPLOAD_SIZE: %w", err))
		} else {
			c.Server.MaxUploadSize = n
		}
	}
	seconds("SESSION_IDLE_TIMEOUT", &c.Server.SessionIdleSeconds)

	str("STORAGE_BACKEND", &c.Storage.Backend)
	str("UPLOAD_DIR", &c.Storage.UploadDir)
	str("PUBLIC_BASE_URL", &c.Storage.PublicBaseURL)
	str("GCS_BUCKET", &c.Storage.GCSBucket)
	str("GCS_CREDENTIALS_FILE", &c.Storage.GCSCredentialsFile)

	str("INFERENCE_URL", &c.Inference.URL)
	seconds("INFERENCE_TIMEOUT", &c.Inference.TimeoutSeconds)

	str("ASSET_BASE_URL", &c.Vocabulary.AssetBaseURL)

	str("CAPTURE_DEVICE", &c.Capture.Device)
	str("FFMPEG_PATH", &c.Capture.FFmpegPath)

	str("DB_TYPE", &c.Database.Type)
	str("DB_PATH", &c.Database.Path)
	str("DB_HOST", &c.Database.Host)
	integer("DB_PORT", &c.Database.Port)
	str("DB_USER", &c.Database.User)
	str("DB_PASSWORD", &c.Database.Password)
	str("DB_NAME", &c.Database.Name)

	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)

	return errors.Join(errs...)
}

// parseSeconds accepts a whole number of seconds or a Go duration string.
func parseSeconds(v string) (int, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	return int(d / time.Second), nil
}
