package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

var envKeys = []string{
	"PORT", "MAX_UPLOAD_SIZE", "SESSION_IDLE_TIMEOUT",
	"STORAGE_BACKEND", "UPLOAD_DIR", "PUBLIC_BASE_URL", "GCS_BUCKET", "GCS_CREDENTIALS_FILE",
	"INFERENCE_URL", "INFERENCE_TIMEOUT", "ASSET_BASE_URL",
	"CAPTURE_DEVICE", "FFMPEG_PATH",
	"DB_TYPE", "DB_PATH", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
	"LOG_LEVEL", "LOG_FORMAT",
}

type cliTestEnv struct {
	baseDir    string
	configPath string
	uploadDir  string
	inference  *httptest.Server
	predicts   atomic.Int32
	status     atomic.Int32
}

// setupCLITestEnv points every command at a temp directory, a SQLite file and
// a fake inference endpoint that labels every clip "makan" at 0.82.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(base); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	for _, key := range envKeys {
		t.Setenv(key, "")
	}

	env := &cliTestEnv{
		baseDir:   base,
		uploadDir: filepath.Join(base, "uploads"),
	}
	env.status.Store(http.StatusOK)

	env.inference = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/predict" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		env.predicts.Add(1)
		status := int(env.status.Load())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			json.NewEncoder(w).Encode(map[string]any{"label": "makan", "confidence": 0.82})
		}
	}))
	t.Cleanup(env.inference.Close)

	env.configPath = filepath.Join(base, "signlang.toml")
	contents := fmt.Sprintf(`[storage]
upload_dir = %q
public_base_url = "http://localhost:8080/media"

[inference]
url = %q
timeout_seconds = 5

[capture]
device = %q
ffmpeg_path = "ffmpeg-not-installed"

[database]
path = %q
`, env.uploadDir, env.inference.URL, filepath.Join(base, "missing-camera"), filepath.Join(base, "signlang.db"))
	if err := os.WriteFile(env.configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func (env *cliTestEnv) writeClip(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(env.baseDir, name)
	if err := os.WriteFile(path, []byte("fake webm payload"), 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
