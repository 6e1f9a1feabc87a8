package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	SeedURL      string
	PageParam    string
	CardSelector string

	MaxStabilizationRounds int
	ScrollPauseMs          int
	RenderWaitSec          int
	NavTimeoutSec          int

	MaxRetries     int
	BaseBackoffMs  int
	MaxBackoffMs   int
	RetryJitterMs  int
	HTTPTimeoutSec int

	MaxConcurrency  int
	RateLimitMs     int
	DownloadDelayMs int

	CSVOutputPath string
	ChromeBin     string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "properties_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		SeedURL:      getEnv("SEED_URL", "https://intermark.ru/nedvizhimost-za-rubezhom/investicii-spain"),
		PageParam:    getEnv("PAGE_PARAM", "page"),
		CardSelector: getEnv("CARD_SELECTOR", "div.object-card"),

		MaxStabilizationRounds: getEnvInt("MAX_STABILIZATION_ROUNDS", 4),
		ScrollPauseMs:          getEnvInt("SCROLL_PAUSE_MS", 700),
		RenderWaitSec:          getEnvInt("RENDER_WAIT_SEC", 15),
		NavTimeoutSec:          getEnvInt("NAV_TIMEOUT_SEC", 30),

		MaxRetries:     getEnvInt("MAX_RETRIES", 5),
		BaseBackoffMs:  getEnvInt("BASE_BACKOFF_MS", 1500),
		MaxBackoffMs:   getEnvInt("MAX_BACKOFF_MS", 15000),
		RetryJitterMs:  getEnvInt("RETRY_JITTER_MS", 500),
		HTTPTimeoutSec: getEnvInt("HTTP_TIMEOUT_SEC", 30),

		MaxConcurrency:  getEnvInt("MAX_CONCURRENCY", 1),
		RateLimitMs:     getEnvInt("RATE_LIMIT_MS", 1000),
		DownloadDelayMs: getEnvInt("DOWNLOAD_DELAY_MS", 1000),

		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "./output/properties_raw.csv"),
		ChromeBin:     getEnv("CHROME_BIN", ""),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}
