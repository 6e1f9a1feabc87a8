package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"intermark-scraper/config"
	"intermark-scraper/crawler"
	"intermark-scraper/fetch"
	"intermark-scraper/parser/intermark"
	"intermark-scraper/render"
	"intermark-scraper/services"
	"intermark-scraper/storage"
	"intermark-scraper/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("=== Intermark property crawler starting ===")
	logger.Info("Config — seed: %s | concurrency: %d | retries: %d | delay: %dms",
		cfg.SeedURL, cfg.MaxConcurrency, cfg.MaxRetries, cfg.DownloadDelayMs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewPostgresStore(cfg.DSN(), logger)
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		logger.Error("Make sure the database is up: docker compose up -d")
		os.Exit(1)
	}
	defer store.Close()

	fetcher := render.NewFetcher(cfg, logger)
	defer fetcher.Close()

	policy := &utils.RetryPolicy{
		MaxAttempts: cfg.MaxRetries,
		BaseBackoff: time.Duration(cfg.BaseBackoffMs) * time.Millisecond,
		MaxBackoff:  time.Duration(cfg.MaxBackoffMs) * time.Millisecond,
		Jitter:      time.Duration(cfg.RetryJitterMs) * time.Millisecond,
	}
	client := fetch.NewClient(policy, time.Duration(cfg.HTTPTimeoutSec)*time.Second, logger)

	orchestrator := crawler.New(cfg, logger, fetcher, intermark.NewParser(), client, store)
	if err := orchestrator.Crawl(ctx, cfg.SeedURL); err != nil {
		logger.Error("Crawl failed: %v", err)
		os.Exit(1)
	}

	records, err := store.FetchAll()
	if err != nil {
		logger.Error("Failed to fetch stored records: %v", err)
		os.Exit(1)
	}

	if cfg.CSVOutputPath != "" {
		csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
		if err != nil {
			logger.Error("Failed to create CSV writer: %v", err)
		} else {
			if err := csvWriter.WriteRecords(records); err != nil {
				logger.Error("CSV export failed: %v", err)
			} else {
				logger.Info("Raw records exported to %s", cfg.CSVOutputPath)
			}
			csvWriter.Close()
		}
	}

	reportSvc := services.NewReportService(logger)
	reportSvc.Print(reportSvc.Generate(records))
}
