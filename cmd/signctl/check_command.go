package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/kdimtricp/signlang/internal/bootstrap"
	"github.com/kdimtricp/signlang/internal/capture"
	"github.com/kdimtricp/signlang/internal/config"
	"github.com/kdimtricp/signlang/internal/database"
)

const probeTimeout = 5 * time.Second

type checkResult struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check capture, storage, inference and database readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			results := []checkResult{
				checkFFmpeg(cfg),
				checkCaptureDevice(cfg),
				checkStorage(cmd.Context(), cfg),
				checkInference(cmd.Context(), cfg),
				checkDatabase(cmd.Context(), ctx, cfg),
			}

			failed := 0
			for _, r := range results {
				if !r.OK {
					failed++
				}
			}

			if jsonOutput {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					status := "ok"
					if !r.OK {
						status = "FAIL"
					}
					rows = append(rows, []string{r.Name, status, r.Detail})
				}
				renderTable(cmd.OutOrStdout(), []string{"Check", "Status", "Detail"}, rows, nil)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d checks failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	return cmd
}

func checkFFmpeg(cfg *config.Config) checkResult {
	path, err := exec.LookPath(cfg.Capture.FFmpegPath)
	if err != nil {
		return checkResult{Name: "ffmpeg", Detail: err.Error()}
	}
	return checkResult{Name: "ffmpeg", OK: true, Detail: path}
}

// checkCaptureDevice only inspects device nodes; other input formats name
// devices by index and are reported as-is.
func checkCaptureDevice(cfg *config.Config) checkResult {
	r := checkResult{Name: "capture device", Detail: cfg.Capture.Device}
	if cfg.Capture.InputFormat != capture.DefaultInputFormat {
		r.OK = true
		r.Detail = fmt.Sprintf("%s (%s, not probed)", cfg.Capture.Device, cfg.Capture.InputFormat)
		return r
	}
	if _, err := os.Stat(cfg.Capture.Device); err != nil {
		r.Detail = err.Error()
		return r
	}
	r.OK = true
	return r
}

func checkStorage(ctx context.Context, cfg *config.Config) checkResult {
	r := checkResult{Name: "storage"}
	store, err := bootstrap.OpenStorage(ctx, cfg)
	if err != nil {
		r.Detail = err.Error()
		return r
	}
	defer store.Close()

	r.OK = true
	switch cfg.Storage.Backend {
	case config.BackendGCS:
		r.Detail = "gcs bucket " + cfg.Storage.GCSBucket
	default:
		r.Detail = "local " + cfg.Storage.UploadDir
	}
	return r
}

// checkInference treats any HTTP response as reachable; the endpoint only
// answers POST.
func checkInference(ctx context.Context, cfg *config.Config) checkResult {
	r := checkResult{Name: "inference", Detail: cfg.Inference.URL}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.Inference.URL, nil)
	if err != nil {
		r.Detail = err.Error()
		return r
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		r.Detail = err.Error()
		return r
	}
	resp.Body.Close()

	r.OK = true
	r.Detail = fmt.Sprintf("%s (HTTP %d)", cfg.Inference.URL, resp.StatusCode)
	return r
}

func checkDatabase(ctx context.Context, cc *commandContext, cfg *config.Config) checkResult {
	r := checkResult{Name: "database"}
	err := cc.withDB(ctx, func(db *database.DB) error {
		version, err := database.NewMigrator(db).Version(ctx)
		if err != nil {
			return err
		}
		count, err := database.NewResultRepository(db).Count(ctx)
		if err != nil {
			return err
		}
		r.Detail = fmt.Sprintf("%s schema v%d, %d classifications", db.Type(), version, count)
		return nil
	})
	if err != nil {
		r.Detail = err.Error()
		return r
	}
	r.OK = true
	return r
}
