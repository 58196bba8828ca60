package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kdimtricp/signlang/internal/bootstrap"
	"github.com/kdimtricp/signlang/internal/database"
	"github.com/kdimtricp/signlang/internal/models"
	"github.com/kdimtricp/signlang/internal/session"
)

const closeTimeout = 10 * time.Second

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var noHistory bool

	cmd := &cobra.Command{
		Use:   "classify <clip>",
		Short: "Upload a video clip and classify the sign it shows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.log()

			clip, err := readClipFile(args[0])
			if err != nil {
				return err
			}

			store, err := bootstrap.OpenStorage(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("initialize storage: %w", err)
			}
			defer store.Close()

			scfg := session.Config{
				Uploader:    store.NewUploader(cfg, logger),
				Classifier:  bootstrap.NewClassifier(cfg, logger),
				Vocabulary:  bootstrap.NewVocabulary(cfg),
				Logger:      logger,
				InitialMode: session.ModeVideo,
				InitialWord: cfg.Vocabulary.DefaultWord,
			}
			if !noHistory {
				db, err := bootstrap.OpenDatabase(cmd.Context(), cfg, logger)
				if err != nil {
					return fmt.Errorf("initialize database: %w", err)
				}
				defer db.Close()
				scfg.Recorder = database.NewResultRepository(db)
			}

			s := session.New(uuid.New().String(), scfg)
			// Close waits for the history insert, so it must run before the
			// database is closed.
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
				defer cancel()
				s.Close(closeCtx)
			}()

			views, unsubscribe := s.Subscribe()
			defer unsubscribe()
			<-views

			if err := s.SelectClip(clip); err != nil {
				return err
			}

			view, err := awaitOutcome(cmd.Context(), views, newProgressReporter(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			if view.LastError != "" {
				return fmt.Errorf("classify %s: %s", args[0], view.LastError)
			}

			if jsonOutput {
				return writeJSON(cmd, view)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, view.Display)
			if view.Result != nil && view.Result.RawLabel != view.Result.Label {
				fmt.Fprintf(out, "Raw label: %s\n", view.Result.RawLabel)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the final session view as JSON")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record the result in classification history")
	return cmd
}

func readClipFile(path string) (*models.Clip, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open clip: %w", err)
	}
	defer file.Close()

	name := filepath.Base(path)
	return models.ReadClip(file, models.ContentTypeForFilename(name), name)
}

// awaitOutcome follows views until the pipeline settles back to Idle.
func awaitOutcome(ctx context.Context, views <-chan session.View, progress progressReporter) (session.View, error) {
	defer progress.done()
	for {
		select {
		case view, ok := <-views:
			if !ok {
				return session.View{}, fmt.Errorf("session closed before classification finished")
			}
			switch view.State {
			case session.StateUploading:
				if view.Progress != nil {
					progress.uploading(*view.Progress)
				}
			case session.StateInferring:
				progress.inferring()
			case session.StateIdle:
				if !view.Busy {
					return view, nil
				}
			}
		case <-ctx.Done():
			return session.View{}, ctx.Err()
		}
	}
}

type progressReporter interface {
	uploading(percent float64)
	inferring()
	done()
}

func newProgressReporter(w io.Writer) progressReporter {
	if isTerminal(w) {
		return &barReporter{w: w}
	}
	return &lineReporter{w: w}
}

// barReporter draws the upload as a progress bar on a terminal.
type barReporter struct {
	w         io.Writer
	bar       *progressbar.ProgressBar
	announced bool
}

func (r *barReporter) uploading(percent float64) {
	if r.bar == nil {
		r.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(r.w),
			progressbar.OptionSetDescription(session.StageUploading),
			progressbar.OptionSetWidth(30),
			progressbar.OptionClearOnFinish(),
		)
	}
	r.bar.Set(int(percent))
}

func (r *barReporter) inferring() {
	if r.announced {
		return
	}
	r.announced = true
	if r.bar != nil {
		r.bar.Finish()
	}
	fmt.Fprintln(r.w, session.StageInferring)
}

func (r *barReporter) done() {
	if r.bar != nil {
		r.bar.Finish()
	}
}

// lineReporter prints stage changes only.
type lineReporter struct {
	w     io.Writer
	stage string
}

func (r *lineReporter) uploading(float64) { r.announce(session.StageUploading) }
func (r *lineReporter) inferring()        { r.announce(session.StageInferring) }
func (r *lineReporter) done()             {}

func (r *lineReporter) announce(stage string) {
	if r.stage == stage {
		return
	}
	r.stage = stage
	fmt.Fprintln(r.w, stage)
}
