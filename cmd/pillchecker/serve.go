package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pillchecker/pillchecker/data"
	"github.com/pillchecker/pillchecker/handlers"
	"github.com/pillchecker/pillchecker/health"
	"github.com/pillchecker/pillchecker/logging"
	"github.com/pillchecker/pillchecker/ocr"
	"github.com/pillchecker/pillchecker/scheduler"
	"github.com/pillchecker/pillchecker/server"
	"github.com/pillchecker/pillchecker/storage"
	"github.com/pillchecker/pillchecker/upload"
	"github.com/pillchecker/pillchecker/validation"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := setup(os.Stdout)
	if err != nil {
		return err
	}
	defer func() { _ = logging.Close() }()

	logging.Info("Starting pillchecker", "version", version, "env", cfg.Env.String())

	store, err := data.NewStore(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	files, err := storage.NewLocalStorage(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		return fmt.Errorf("failed to prepare storage: %w", err)
	}

	linker, err := newLinker(cfg)
	if err != nil {
		return err
	}

	extractor := newPipeline(cfg)
	scans := upload.NewService(files, ocr.NewRecognizer(cfg.OCRLanguages...), linker, extractor, store)

	nerStatus := health.NewNERStatus(linker != nil, cfg.NERProbeInterval)
	sched := scheduler.NewScheduler(linker, store, nerStatus, cfg.NERProbeInterval)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	validator := validation.NewDataValidator(cfg.MaxRequestBody)
	handler := handlers.NewHTTPHandler(store, scans, extractor, validator, health.NewHealthChecker(store, nerStatus))
	srv := server.NewServer(cfg, handler, validator)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		logging.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
