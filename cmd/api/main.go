package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"promptpdf/internal/adapter/repo"
	"promptpdf/internal/browser"
	"promptpdf/internal/http/handlers"
	httpapi "promptpdf/internal/http/httpapi"
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

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	if cfg.RunMigrations {
		if err := infra.RunMigrations(cfg, "migrations"); err != nil {
			logger.Fatal().Err(err).Msg("migrations failed")
		}
	}

	storagePath := cfg.StoragePath
	if abs, err := filepath.Abs(storagePath); err == nil {
		storagePath = abs
	}
	fileStore, err := storage.NewFileStore(storagePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	generator, err := htmlgen.NewGeminiGenerator(htmlgen.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		Model:      cfg.GeminiModel,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure html generator")
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

	jobs := repo.NewJobRepository(dbpool)
	files := repo.NewFileRepository(dbpool)

	engine := worker.New(jobs, files, generator, renders, fileStore, worker.Options{
		BatchSize:    cfg.WorkerBatchSize,
		PollInterval: cfg.WorkerPollEvery,
		Lease:        cfg.JobLeaseDuration,
	}, logger)

	app := &handlers.App{
		Cfg:     cfg,
		Logger:  logger,
		Jobs:    jobs,
		Files:   files,
		Engine:  engine,
		Pool:    pool,
		Renders: renders,
	}

	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app))

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
