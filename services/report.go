package services

import (
	"sort"

	"intermark-scraper/models"
	"intermark-scraper/utils"
)

// CrawlReport summarizes the stored dataset after a run.
type CrawlReport struct {
	Total              int
	Complete           int
	NeedsDetail        int
	RecordsByLocation  map[string]int
	LongestDescription *models.PropertyRecord
}

// ReportService computes a crawl summary over stored records.
type ReportService struct {
	logger *utils.Logger
}

// NewReportService creates a ReportService.
func NewReportService(logger *utils.Logger) *ReportService {
	return &ReportService{logger: logger}
}

// Generate computes the summary for the given records.
func (s *ReportService) Generate(records []*models.PropertyRecord) *CrawlReport {
	report := &CrawlReport{
		RecordsByLocation: make(map[string]int),
	}

	for _, rec := range records {
		report.Total++
		if rec.Complete() {
			report.Complete++
		} else {
			report.NeedsDetail++
		}
		if rec.Location != "" {
			report.RecordsByLocation[rec.Location]++
		}
		if report.LongestDescription == nil ||
			len(rec.Description) > len(report.LongestDescription.Description) {
			report.LongestDescription = rec
		}
	}

	if report.Total == 0 {
		report.LongestDescription = nil
	}
	return report
}

// Print writes the report to the log.
func (s *ReportService) Print(report *CrawlReport) {
	s.logger.Info("=== Crawl summary ===")
	s.logger.Info("Records stored:       %d", report.Total)
	s.logger.Info("Complete:             %d", report.Complete)
	s.logger.Info("Still needing detail: %d", report.NeedsDetail)

	locations := make([]string, 0, len(report.RecordsByLocation))
	for loc := range report.RecordsByLocation {
		locations = append(locations, loc)
	}
	sort.Slice(locations, func(i, j int) bool {
		a, b := locations[i], locations[j]
		if report.RecordsByLocation[a] != report.RecordsByLocation[b] {
			return report.RecordsByLocation[a] > report.RecordsByLocation[b]
		}
		return a < b
	})
	for _, loc := range locations {
		s.logger.Info("  %-30s %d", loc, report.RecordsByLocation[loc])
	}

	if report.LongestDescription != nil && report.LongestDescription.Complete() {
		s.logger.Info("Longest description:  %d chars (%s)",
			len(report.LongestDescription.Description), report.LongestDescription.URL)
	}
}
