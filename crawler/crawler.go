// Package crawler contains the two-stage (listing → detail) crawl
// orchestration: pagination traversal, detail-fetch decisions and emission of
// records to the store.
package crawler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"intermark-scraper/config"
	"intermark-scraper/models"
	"intermark-scraper/storage"
	"intermark-scraper/utils"
)

// Fetcher renders a URL in a browser session and returns stabilized HTML.
// It never fails: navigation errors degrade to an empty page.
type Fetcher interface {
	Fetch(ctx context.Context, url string, maxRounds int) *models.RenderedPage
}

// PageParser extracts records from rendered HTML. Missing fields are blank
// values, never errors.
type PageParser interface {
	ParseListing(html, baseURL string) []models.CardExtraction
	ParseDetail(html, baseURL string) *models.DetailExtraction
}

// HTTPClient performs the plain-HTTP first pass of a detail fetch, with
// retry/backoff applied at the transport level.
type HTTPClient interface {
	Get(ctx context.Context, url string) (string, int, error)
}

// Orchestrator drives listing traversal, pagination decisions and per-record
// detail fetches against one shared rendering session.
type Orchestrator struct {
	cfg     *config.Config
	log     *utils.Logger
	fetcher Fetcher
	parser  PageParser
	client  HTTPClient
	store   storage.RecordStore
	pool    *utils.WorkerPool

	// visited guards pagination against cycles; claimed caps detail
	// fetches at one per URL per run.
	visited *utils.URLSet
	claimed *utils.URLSet
}

// New creates a ready-to-use Orchestrator.
func New(cfg *config.Config, log *utils.Logger, fetcher Fetcher, parser PageParser,
	client HTTPClient, store storage.RecordStore) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		log:     log,
		fetcher: fetcher,
		parser:  parser,
		client:  client,
		store:   store,
		pool:    utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
		visited: utils.NewURLSet(),
		claimed: utils.NewURLSet(),
	}
}

// Crawl walks the paginated listing starting at seedURL until an empty page
// or an already-visited URL terminates the chain. Total result count is
// unknown upfront, so the end has to be discovered by probing.
func (o *Orchestrator) Crawl(ctx context.Context, seedURL string) error {
	snapshot, err := o.store.LoadSnapshot()
	if err != nil {
		return fmt.Errorf("crawler: load snapshot: %w", err)
	}
	o.log.Info("[crawl] snapshot: %d known urls, %d need detail",
		len(snapshot.AllURLs), len(snapshot.NeedsDetailURLs))

	current := seedURL
	for ctx.Err() == nil {
		if !o.visited.Add(current) {
			o.log.Info("[pagination] already visited: %s", current)
			break
		}

		page := o.fetcher.Fetch(ctx, current, o.cfg.MaxStabilizationRounds)
		cards := o.parser.ParseListing(page.HTML, current)
		o.log.Info("[listing] url=%s cards=%d", current, len(cards))

		// An empty page is the defined end-of-results signal.
		if len(cards) == 0 {
			o.log.Info("[pagination] stop: 0 cards on %s", current)
			break
		}

		o.processListing(ctx, current, cards, snapshot)

		next, err := nextPageURL(current, o.cfg.PageParam)
		if err != nil {
			o.log.Warn("[pagination] bad url %s: %v", current, err)
			break
		}
		if o.visited.Contains(next) {
			o.log.Info("[pagination] already visited: %s", next)
			break
		}

		select {
		case <-time.After(time.Duration(o.cfg.DownloadDelayMs) * time.Millisecond):
		case <-ctx.Done():
		}
		current = next
	}

	o.pool.Wait()
	o.log.Info("[crawl] done: %d listing pages, %d detail fetches",
		o.visited.Size(), o.claimed.Size())
	return nil
}

// processListing emits a listing-stage record for every card and schedules a
// detail step where the snapshot says the record is missing or incomplete.
func (o *Orchestrator) processListing(ctx context.Context, sourcePage string,
	cards []models.CardExtraction, snapshot *models.CrawlSnapshot) {
	scrapedAt := time.Now().UTC()

	for _, card := range cards {
		rec := listingRecord(card, sourcePage, scrapedAt)

		// The listing record always goes to the store: the merge there
		// is authoritative for whether anything actually changes.
		if _, _, err := o.store.Upsert(rec); err != nil {
			o.log.Error("[listing] upsert failed url=%s err=%v", card.URL, err)
			continue
		}

		needDetail := !snapshot.Known(card.URL) || snapshot.NeedsDetail(card.URL)
		if needDetail && o.claimed.Add(card.URL) {
			listing := rec
			o.pool.Submit(func() {
				o.detailStep(ctx, listing)
			})
		}
	}
}

// detailStep refines a listing-stage record from its detail page: plain-HTTP
// fetch first, then exactly one fallback render pass when the description is
// still blank — some pages only populate it after client-side rendering
// settles on a second load.
func (o *Orchestrator) detailStep(ctx context.Context, listing *models.PropertyRecord) {
	var det *models.DetailExtraction

	html, status, err := o.client.Get(ctx, listing.URL)
	if err != nil {
		o.log.Warn("[detail] fetch failed url=%s err=%v", listing.URL, err)
	} else {
		o.log.Debug("[detail] GET %s status=%d", listing.URL, status)
		det = o.parser.ParseDetail(html, listing.URL)
	}

	if det == nil || isBlank(det.Description) {
		o.log.Info("[detail] render fallback for %s", listing.URL)
		page := o.fetcher.Fetch(ctx, listing.URL, o.cfg.MaxStabilizationRounds)
		if page.HTML != "" {
			det = o.parser.ParseDetail(page.HTML, listing.URL)
		}
	}
	if det == nil {
		det = &models.DetailExtraction{}
	}

	rec := detailRecord(listing, det, time.Now().UTC())
	if _, _, err := o.store.Upsert(rec); err != nil {
		o.log.Error("[detail] upsert failed url=%s err=%v", listing.URL, err)
		return
	}
	o.log.Info("[detail] url=%s description_len=%d", listing.URL, len(rec.Description))
}

// listingRecord builds the listing-stage partial record for one card.
func listingRecord(card models.CardExtraction, sourcePage string, scrapedAt time.Time) *models.PropertyRecord {
	return &models.PropertyRecord{
		URL:        card.URL,
		SourcePage: sourcePage,
		ScrapedAt:  scrapedAt,
		ObjectID:   card.ObjectID,
		Title:      card.Title,
		Location:   card.Location,
		PriceRaw:   card.PriceRaw,
		AreaRaw:    card.AreaRaw,
		Features: &models.Features{
			Origin:     models.StageListing,
			Images:     card.Images,
			ParamsList: card.ParamsList,
		},
	}
}

// detailRecord builds the detail-stage record. Identity fields are inherited
// from the listing record: the detail template does not re-expose them
// reliably.
func detailRecord(listing *models.PropertyRecord, det *models.DetailExtraction, scrapedAt time.Time) *models.PropertyRecord {
	areaRaw := det.AreaRaw
	if isBlank(areaRaw) {
		areaRaw = listing.AreaRaw
	}
	return &models.PropertyRecord{
		URL:         listing.URL,
		SourcePage:  listing.SourcePage,
		ScrapedAt:   scrapedAt,
		ObjectID:    listing.ObjectID,
		Title:       listing.Title,
		Location:    listing.Location,
		PriceRaw:    listing.PriceRaw,
		AreaRaw:     areaRaw,
		Description: det.Description,
		Features: &models.Features{
			Origin: models.StageDetail,
			Images: det.Images,
			Params: det.Params,
		},
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
