package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable. It lower-cases enum-like
// fields in place.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateInference(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxUploadSize <= 0 {
		return errors.New("server.max_upload_size must be positive")
	}
	if c.Server.SessionIdleSeconds <= 0 {
		return errors.New("server.session_idle_seconds must be positive")
	}
	return nil
}

func (c *Config) validateStorage() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch c.Storage.Backend {
	case BackendLocal:
		if strings.TrimSpace(c.Storage.UploadDir) == "" {
			return errors.New("storage.upload_dir must be set for the local backend")
		}
		if err := requireHTTPURL("storage.public_base_url", c.Storage.PublicBaseURL); err != nil {
			return err
		}
	case BackendGCS:
		if strings.TrimSpace(c.Storage.GCSBucket) == "" {
			return errors.New("storage.gcs_bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", BackendLocal, BackendGCS, c.Storage.Backend)
	}
	return nil
}

func (c *Config) validateInference() error {
	if err := requireHTTPURL("inference.url", c.Inference.URL); err != nil {
		return err
	}
	if c.Inference.TimeoutSeconds <= 0 {
		return errors.New("inference.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	c.Database.Type = strings.ToLower(strings.TrimSpace(c.Database.Type))
	switch c.Database.Type {
	case "sqlite":
		if strings.TrimSpace(c.Database.Path) == "" {
			return errors.New("database.path must be set for sqlite")
		}
	case "postgres":
		if strings.TrimSpace(c.Database.Host) == "" || strings.TrimSpace(c.Database.Name) == "" {
			return errors.New("database.host and database.name must be set for postgres")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("database.port must be between 1 and 65535, got %d", c.Database.Port)
		}
	default:
		return fmt.Errorf("database.type must be \"sqlite\" or \"postgres\", got %q", c.Database.Type)
	}
	return nil
}

func (c *Config) validateLogging() error {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

func requireHTTPURL(field, raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", field, raw)
	}
	return nil
}
