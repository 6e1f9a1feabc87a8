package storage

import "intermark-scraper/models"

// RecordStore is durable upsert-by-key storage for property records. Upsert
// applies merge semantics transactionally per URL and reports the stored
// record plus whether anything changed.
type RecordStore interface {
	LoadSnapshot() (*models.CrawlSnapshot, error)
	Upsert(rec *models.PropertyRecord) (*models.PropertyRecord, bool, error)
	Close() error
}

// RecordWriter is the interface for side-channel exports of raw records.
type RecordWriter interface {
	WriteRecords(records []*models.PropertyRecord) error
	Close() error
}
