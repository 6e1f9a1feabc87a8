package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"intermark-scraper/models"
)

// CSVWriter exports raw property records to a CSV file for inspection.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"url", "source_page", "object_id", "title", "location",
		"price_raw", "area_raw", "description", "stage", "scraped_at",
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteRecords appends the given records to the CSV file.
func (c *CSVWriter) WriteRecords(records []*models.PropertyRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, rec := range records {
		stage := ""
		if rec.Features != nil {
			stage = rec.Features.Origin
		}
		row := []string{
			rec.URL,
			rec.SourcePage,
			rec.ObjectID,
			rec.Title,
			rec.Location,
			rec.PriceRaw,
			rec.AreaRaw,
			rec.Description,
			stage,
			rec.ScrapedAt.Format(time.RFC3339),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row for %s: %w", rec.URL, err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		_ = c.file.Close()
		return err
	}
	return c.file.Close()
}
