package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"intermark-scraper/models"
	"intermark-scraper/utils"
)

// PostgresStore persists property records to PostgreSQL with
// upsert-and-merge semantics. Writes are serialized per URL via a row-level
// lock so the merge stays atomic.
type PostgresStore struct {
	db  *sql.DB
	log *utils.Logger
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use store.
func NewPostgresStore(dsn string, log *utils.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	s := &PostgresStore{db: db, log: log}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return s, nil
}

func (s *PostgresStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS properties_raw (
			id          SERIAL PRIMARY KEY,
			url         TEXT        UNIQUE NOT NULL,
			scraped_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			source_page TEXT,
			title       TEXT,
			location    TEXT,
			price_raw   TEXT,
			area_raw    TEXT,
			object_id   TEXT,
			description TEXT,
			features    JSONB
		);

		CREATE INDEX IF NOT EXISTS idx_properties_raw_location  ON properties_raw(location);
		CREATE INDEX IF NOT EXISTS idx_properties_raw_object_id ON properties_raw(object_id);
	`)
	return err
}

// LoadSnapshot scans all stored URLs and flags the incomplete ones (blank
// description) as needing a detail visit.
func (s *PostgresStore) LoadSnapshot() (*models.CrawlSnapshot, error) {
	rows, err := s.db.Query(`SELECT url, COALESCE(description, '') FROM properties_raw`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load snapshot: %w", err)
	}
	defer rows.Close()

	snapshot := models.NewCrawlSnapshot()
	for rows.Next() {
		var url, description string
		if err := rows.Scan(&url, &description); err != nil {
			return nil, fmt.Errorf("postgres: scan snapshot row: %w", err)
		}
		if url == "" {
			continue
		}
		snapshot.AllURLs[url] = struct{}{}
		if isBlank(description) {
			snapshot.NeedsDetailURLs[url] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: snapshot rows: %w", err)
	}

	s.log.Info("[postgres] snapshot: %d urls, %d need detail",
		len(snapshot.AllURLs), len(snapshot.NeedsDetailURLs))
	return snapshot, nil
}

// Upsert inserts the record or merges it into the existing row, all within
// one transaction holding the row lock for the URL.
func (s *PostgresStore) Upsert(rec *models.PropertyRecord) (*models.PropertyRecord, bool, error) {
	if rec == nil || rec.URL == "" {
		return nil, false, errors.New("postgres: upsert: record has no url")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, false, fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	existing, err := selectForUpdate(tx, rec.URL)
	if err != nil {
		return nil, false, err
	}

	if existing == nil {
		if err := insertRecord(tx, rec); err != nil {
			return nil, false, err
		}
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("postgres: commit insert: %w", err)
		}
		s.log.Debug("[postgres] inserted url=%s", rec.URL)
		return rec, true, nil
	}

	merged, changed := Merge(existing, rec)
	if changed {
		if err := updateRecord(tx, merged); err != nil {
			return nil, false, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("postgres: commit update: %w", err)
	}

	if changed {
		s.log.Debug("[postgres] updated url=%s", rec.URL)
	}
	return merged, changed, nil
}

func selectForUpdate(tx *sql.Tx, url string) (*models.PropertyRecord, error) {
	row := tx.QueryRow(`
		SELECT url, scraped_at,
		       COALESCE(source_page, ''), COALESCE(title, ''), COALESCE(location, ''),
		       COALESCE(price_raw, ''), COALESCE(area_raw, ''), COALESCE(object_id, ''),
		       COALESCE(description, ''), features
		FROM properties_raw
		WHERE url = $1
		FOR UPDATE
	`, url)

	rec := &models.PropertyRecord{}
	var features []byte
	err := row.Scan(
		&rec.URL, &rec.ScrapedAt,
		&rec.SourcePage, &rec.Title, &rec.Location,
		&rec.PriceRaw, &rec.AreaRaw, &rec.ObjectID,
		&rec.Description, &features,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: select for update: %w", err)
	}

	if len(features) > 0 {
		f := &models.Features{}
		if err := json.Unmarshal(features, f); err != nil {
			return nil, fmt.Errorf("postgres: decode features for %s: %w", url, err)
		}
		rec.Features = f
	}
	return rec, nil
}

func insertRecord(tx *sql.Tx, rec *models.PropertyRecord) error {
	features, err := encodeFeatures(rec.Features)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`
		INSERT INTO properties_raw
			(url, scraped_at, source_page, title, location, price_raw, area_raw, object_id, description, features)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		rec.URL, rec.ScrapedAt, rec.SourcePage, rec.Title, rec.Location,
		rec.PriceRaw, rec.AreaRaw, rec.ObjectID, rec.Description, features,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert %s: %w", rec.URL, err)
	}
	return nil
}

func updateRecord(tx *sql.Tx, rec *models.PropertyRecord) error {
	features, err := encodeFeatures(rec.Features)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`
		UPDATE properties_raw
		SET scraped_at = $2, source_page = $3, title = $4, location = $5,
		    price_raw = $6, area_raw = $7, object_id = $8, description = $9, features = $10
		WHERE url = $1
	`,
		rec.URL, rec.ScrapedAt, rec.SourcePage, rec.Title, rec.Location,
		rec.PriceRaw, rec.AreaRaw, rec.ObjectID, rec.Description, features,
	)
	if err != nil {
		return fmt.Errorf("postgres: update %s: %w", rec.URL, err)
	}
	return nil
}

func encodeFeatures(f *models.Features) ([]byte, error) {
	if f == nil {
		return nil, nil
	}
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("postgres: encode features: %w", err)
	}
	return data, nil
}

// FetchAll retrieves every stored record, used by the CSV export and the
// crawl summary report.
func (s *PostgresStore) FetchAll() ([]*models.PropertyRecord, error) {
	rows, err := s.db.Query(`
		SELECT url, scraped_at,
		       COALESCE(source_page, ''), COALESCE(title, ''), COALESCE(location, ''),
		       COALESCE(price_raw, ''), COALESCE(area_raw, ''), COALESCE(object_id, ''),
		       COALESCE(description, ''), features
		FROM properties_raw
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var records []*models.PropertyRecord
	for rows.Next() {
		rec := &models.PropertyRecord{}
		var features []byte
		if err := rows.Scan(
			&rec.URL, &rec.ScrapedAt,
			&rec.SourcePage, &rec.Title, &rec.Location,
			&rec.PriceRaw, &rec.AreaRaw, &rec.ObjectID,
			&rec.Description, &features,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		if len(features) > 0 {
			f := &models.Features{}
			if err := json.Unmarshal(features, f); err != nil {
				return nil, fmt.Errorf("postgres: decode features for %s: %w", rec.URL, err)
			}
			rec.Features = f
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
