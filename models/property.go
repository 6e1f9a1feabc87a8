package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Stage tags which page type a partial record was extracted from.
const (
	StageListing = "listing"
	StageDetail  = "detail"
)

// Features is the semi-structured part of a property record, stored as JSONB.
// Origin marshals as "from" to keep the stored document shape stable.
type Features struct {
	Origin     string
	Images     []string
	Params     map[string]string
	ParamsList []string
	Extra      map[string]any
}

// PropertyRecord is the unit of extraction and storage. URL is the sole
// identity. Free-text fields (price, area, ...) are kept verbatim — the source
// formatting is inconsistent and normalizing it here would be lossy.
type PropertyRecord struct {
	URL         string
	SourcePage  string
	ScrapedAt   time.Time
	ObjectID    string
	Title       string
	Location    string
	PriceRaw    string
	AreaRaw     string
	Description string
	Features    *Features
}

// Complete reports whether the record needs no further detail visit.
// A blank description is the sole trigger for a future detail fetch.
func (r *PropertyRecord) Complete() bool {
	return strings.TrimSpace(r.Description) != ""
}

// CrawlSnapshot is the read-only, run-start copy of store state used to decide
// whether a detail fetch is needed. It is a starting hint, not a live index:
// writes made during the same run are not reflected back into it.
type CrawlSnapshot struct {
	AllURLs         map[string]struct{}
	NeedsDetailURLs map[string]struct{}
}

// NewCrawlSnapshot returns an empty snapshot.
func NewCrawlSnapshot() *CrawlSnapshot {
	return &CrawlSnapshot{
		AllURLs:         make(map[string]struct{}),
		NeedsDetailURLs: make(map[string]struct{}),
	}
}

// Known reports whether the URL existed in the store at run start.
func (s *CrawlSnapshot) Known(url string) bool {
	_, ok := s.AllURLs[url]
	return ok
}

// NeedsDetail reports whether the stored record was incomplete at run start.
func (s *CrawlSnapshot) NeedsDetail(url string) bool {
	_, ok := s.NeedsDetailURLs[url]
	return ok
}

// RenderedPage is the output of the rendering fetcher. HTML may be empty when
// navigation failed — an empty page is a legitimate termination signal.
type RenderedPage struct {
	URL  string
	HTML string
}

// CardExtraction is one property summary card pulled from a listing page.
type CardExtraction struct {
	URL        string
	ObjectID   string
	Title      string
	Location   string
	PriceRaw   string
	AreaRaw    string
	Images     []string
	ParamsList []string
}

// DetailExtraction is what a detail page yields. Identity fields are not
// extracted here — the detail template does not re-expose them reliably, so
// they are inherited from the listing-stage record.
type DetailExtraction struct {
	Description string
	AreaRaw     string
	Images      []string
	Params      map[string]string
}

// MarshalJSON flattens Extra keys into the top-level features document.
func (f *Features) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, 4+len(f.Extra))
	for k, v := range f.Extra {
		doc[k] = v
	}
	if f.Origin != "" {
		doc["from"] = f.Origin
	}
	if f.Images != nil {
		doc["images"] = f.Images
	}
	if f.Params != nil {
		doc["params"] = f.Params
	}
	if f.ParamsList != nil {
		doc["params_list"] = f.ParamsList
	}
	return json.Marshal(doc)
}

// UnmarshalJSON splits the known feature keys out of the document and keeps
// everything else in Extra.
func (f *Features) UnmarshalJSON(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if raw, ok := doc["from"]; ok {
		if err := json.Unmarshal(raw, &f.Origin); err != nil {
			return err
		}
		delete(doc, "from")
	}
	if raw, ok := doc["images"]; ok {
		if err := json.Unmarshal(raw, &f.Images); err != nil {
			return err
		}
		delete(doc, "images")
	}
	if raw, ok := doc["params"]; ok {
		if err := json.Unmarshal(raw, &f.Params); err != nil {
			return err
		}
		delete(doc, "params")
	}
	if raw, ok := doc["params_list"]; ok {
		if err := json.Unmarshal(raw, &f.ParamsList); err != nil {
			return err
		}
		delete(doc, "params_list")
	}
	if len(doc) > 0 {
		f.Extra = make(map[string]any, len(doc))
		for k, raw := range doc {
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				return err
			}
			f.Extra[k] = v
		}
	}
	return nil
}
