package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kdimtricp/signlang/internal/api"
	"github.com/kdimtricp/signlang/internal/bootstrap"
	"github.com/kdimtricp/signlang/internal/config"
	"github.com/kdimtricp/signlang/internal/database"
	"github.com/kdimtricp/signlang/internal/session"
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file (default ./"+config.ProjectConfigFile+" when present)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		os.Exit(1)
	}

	logger, err := bootstrap.NewLogger(cfg, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := bootstrap.OpenStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	defer store.Close()

	db, err := bootstrap.OpenDatabase(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer db.Close()

	results := database.NewResultRepository(db)
	vocab := bootstrap.NewVocabulary(cfg)

	manager := session.NewManager(session.ManagerOptions{
		Session: session.Config{
			Capture:     bootstrap.NewRecorder(cfg, logger),
			Classifier:  bootstrap.NewClassifier(cfg, logger),
			Vocabulary:  vocab,
			Recorder:    results,
			Logger:      logger,
			InitialWord: cfg.Vocabulary.DefaultWord,
		},
		NewUploader: func() session.Uploader {
			return store.NewUploader(cfg, logger)
		},
		IdleTimeout: cfg.SessionIdleTimeout(),
	})
	go manager.Run(ctx, sweepInterval)

	app := &api.App{
		Sessions:      manager,
		Vocabulary:    vocab,
		History:       results,
		MaxUploadSize: cfg.Server.MaxUploadSize,
		Logger:        logger,
	}
	if store.Local != nil {
		app.Media = store.Local
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Closing sessions ends their event and websocket streams so Shutdown
	// does not wait on them.
	server.RegisterOnShutdown(func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		manager.Close(closeCtx)
	})

	logger.Info("server starting",
		zap.String("addr", server.Addr),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("database", db.Type()),
		zap.String("inference", cfg.Inference.URL),
		zap.Int64("max_upload_size", cfg.Server.MaxUploadSize))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
