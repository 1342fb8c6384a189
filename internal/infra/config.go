package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv        string
	Port          string
	DatabaseURL   string
	RunMigrations bool

	WorkerSecret   string
	StoragePath    string
	StorageBaseURL string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	MaxBrowserInstances int
	MaxPagesPerBrowser  int
	BrowserIdleTimeout  time.Duration

	MaxPDFConcurrency int
	RenderTimeout     time.Duration
	FontWaitTimeout   time.Duration

	WorkerBatchSize  int
	WorkerPollEvery  time.Duration
	JobLeaseDuration time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		Port:          getEnv("PORT", "8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RunMigrations: getEnvBool("RUN_MIGRATIONS", false),

		WorkerSecret:   os.Getenv("WORKER_SECRET"),
		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),

		MaxBrowserInstances: getEnvInt("MAX_BROWSER_INSTANCES", 2),
		MaxPagesPerBrowser:  getEnvInt("MAX_PAGES_PER_BROWSER", 8),
		BrowserIdleTimeout:  time.Second * time.Duration(getEnvInt("BROWSER_IDLE_TIMEOUT_SECONDS", 300)),

		MaxPDFConcurrency: getEnvInt("MAX_PDF_CONCURRENCY", 8),
		RenderTimeout:     time.Millisecond * time.Duration(getEnvInt("RENDER_TIMEOUT_MS", 30000)),
		FontWaitTimeout:   time.Millisecond * time.Duration(getEnvInt("FONT_WAIT_TIMEOUT_MS", 10000)),

		WorkerBatchSize:  getEnvInt("WORKER_BATCH_SIZE", 5),
		WorkerPollEvery:  time.Second * time.Duration(getEnvInt("WORKER_POLL_SECONDS", 2)),
		JobLeaseDuration: time.Second * time.Duration(getEnvInt("JOB_LEASE_SECONDS", 600)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.MaxBrowserInstances < 1 {
		return nil, fmt.Errorf("MAX_BROWSER_INSTANCES must be at least 1")
	}
	if cfg.MaxPDFConcurrency < 1 {
		return nil, fmt.Errorf("MAX_PDF_CONCURRENCY must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
