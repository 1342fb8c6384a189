package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"promptpdf/internal/adapter/repo"
	"promptpdf/internal/browser"
	"promptpdf/internal/infra"
	"promptpdf/internal/pdf"
	"promptpdf/internal/providers/htmlgen"
	"promptpdf/internal/storage"
	"promptpdf/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer dbpool.Close()

	if cfg.RunMigrations {
		if err := infra.RunMigrations(cfg, "migrations"); err != nil {
			logger.Fatal().Err(err).Msg("worker: migrations failed")
		}
	}

	storagePath := cfg.StoragePath
	if abs, err := filepath.Abs(storagePath); err == nil {
		storagePath = abs
	}
	fileStore, err := storage.NewFileStore(storagePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	generator, err := htmlgen.NewGeminiGenerator(htmlgen.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		Model:      cfg.GeminiModel,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure html generator")
	}
	if cfg.GeminiAPIKey == "" {
		logger.Warn().Str("model", generator.Model()).Msg("worker: gemini api key missing, using local document template")
	}

	pool := browser.New(&browser.RodLauncher{}, browser.Options{
		MaxInstances:        cfg.MaxBrowserInstances,
		MaxPagesPerInstance: cfg.MaxPagesPerBrowser,
		IdleTimeout:         cfg.BrowserIdleTimeout,
	}, logger)
	defer pool.Shutdown()

	renders := pdf.NewService(pool, pdf.Options{
		MaxConcurrency:  cfg.MaxPDFConcurrency,
		RenderTimeout:   cfg.RenderTimeout,
		FontWaitTimeout: cfg.FontWaitTimeout,
	}, logger)

	engine := worker.New(
		repo.NewJobRepository(dbpool),
		repo.NewFileRepository(dbpool),
		generator,
		renders,
		fileStore,
		worker.Options{
			BatchSize:    cfg.WorkerBatchSize,
			PollInterval: cfg.WorkerPollEvery,
			Lease:        cfg.JobLeaseDuration,
		},
		logger,
	)

	if err := engine.RunLoop(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker: run loop exited")
	}
	logger.Info().Msg("worker stopped")
}
