package main

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kdimtricp/signlang/internal/models"
	"github.com/kdimtricp/signlang/internal/session"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.inference.URL)

	out, _, err = runCLI(t, []string{"config", "init", "--path", "-"}, "")
	if err != nil {
		t.Fatalf("config init to stdout: %v", err)
	}
	requireContains(t, out, "[server]")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestConfigValidateRejectsBadConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("STORAGE_BACKEND", "s3")

	if _, _, err := runCLI(t, []string{"config", "validate"}, env.configPath); err == nil {
		t.Fatal("expected invalid storage backend to fail validation")
	}
}

func TestWordCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"word", "MAKAN"}, env.configPath)
	if err != nil {
		t.Fatalf("word: %v", err)
	}
	requireContains(t, out, "Display: Makan")
	requireContains(t, out, "Known: yes")
	requireContains(t, out, "/makan.webm")

	out, _, err = runCLI(t, []string{"word", "pizza", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("word --json: %v", err)
	}
	var entry struct {
		Display string `json:"display"`
		Known   bool   `json:"known"`
	}
	if err := json.Unmarshal([]byte(out), &entry); err != nil {
		t.Fatalf("decode word output: %v", err)
	}
	if entry.Known || entry.Display != "Pizza" {
		t.Fatalf("unexpected entry %+v", entry)
	}

	out, _, err = runCLI(t, []string{"words"}, env.configPath)
	if err != nil {
		t.Fatalf("words: %v", err)
	}
	requireContains(t, out, "Senyum")
	requireContains(t, out, "Teman")
}

func TestClassifyRecordsHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	clip := env.writeClip(t, "sign.webm")

	out, stderr, err := runCLI(t, []string{"classify", clip, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("classify: %v (stderr %s)", err, stderr)
	}
	var view session.View
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode classify output: %v", err)
	}
	if view.Display != "Makan (82%)" {
		t.Fatalf("expected Makan (82%%), got %q", view.Display)
	}
	requireContains(t, stderr, session.StageInferring)

	entries, err := os.ReadDir(filepath.Join(env.uploadDir, "videos"))
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one uploaded clip, got %v (%v)", entries, err)
	}

	out, _, err = runCLI(t, []string{"history", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	var history []models.Classification
	if err := json.Unmarshal([]byte(out), &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history) != 1 || history[0].Label != "makan" || history[0].SessionID != view.SessionID {
		t.Fatalf("unexpected history %+v", history)
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "Makan (82%)")
}

func TestClassifyNoHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	clip := env.writeClip(t, "sign.webm")

	out, _, err := runCLI(t, []string{"classify", clip, "--no-history"}, env.configPath)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	requireContains(t, out, "Makan (82%)")

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No classifications recorded")
}

func TestClassifyInferenceFailure(t *testing.T) {
	env := setupCLITestEnv(t)
	env.status.Store(http.StatusInternalServerError)
	clip := env.writeClip(t, "sign.webm")

	_, _, err := runCLI(t, []string{"classify", clip}, env.configPath)
	if err == nil {
		t.Fatal("expected classify to fail when inference fails")
	}
	requireContains(t, err.Error(), "classify")
	if env.predicts.Load() != 1 {
		t.Fatalf("expected one inference call, got %d", env.predicts.Load())
	}
}

func TestClassifyMissingFile(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"classify", filepath.Join(env.baseDir, "nope.webm")}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "open clip") {
		t.Fatalf("expected open clip error, got %v", err)
	}
	if env.predicts.Load() != 0 {
		t.Fatal("expected no inference call")
	}
}

func TestMigrateCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"migrate", "--status"}, env.configPath)
	if err != nil {
		t.Fatalf("migrate --status: %v", err)
	}
	requireContains(t, out, "pending")

	out, _, err = runCLI(t, []string{"migrate"}, env.configPath)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	requireContains(t, out, "applied")
	if strings.Contains(out, "pending") {
		t.Fatalf("expected no pending migrations, got %s", out)
	}
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"check", "--json"}, env.configPath)
	if err == nil {
		t.Fatal("expected missing ffmpeg and camera to fail the check")
	}

	var results []checkResult
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode check output: %v", err)
	}
	status := make(map[string]checkResult, len(results))
	for _, r := range results {
		status[r.Name] = r
	}

	for _, name := range []string{"storage", "inference", "database"} {
		if !status[name].OK {
			t.Errorf("expected %s check to pass, got %+v", name, status[name])
		}
	}
	for _, name := range []string{"ffmpeg", "capture device"} {
		if status[name].OK {
			t.Errorf("expected %s check to fail", name)
		}
	}
	requireContains(t, status["database"].Detail, "schema v2")
}
