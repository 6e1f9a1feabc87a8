package storage

import (
	"reflect"
	"strings"

	"intermark-scraper/models"
)

// Merge reconciles an incoming partial record against the stored one and
// reports whether the merged record differs from the existing in any field.
// Field rules:
//
//   - scalar fields fill in only where the existing value is blank
//   - description is overwritten when blank or when the incoming one is
//     strictly longer (length as a completeness proxy — a heuristic: a
//     shorter but more accurate re-render can lose to a longer stale one)
//   - feature images and params_list are order-preserving unions, existing
//     entries first; params shallow-merge with incoming winning per key
//   - scrapedAt always takes the incoming observation time when present,
//     and that alone still counts as a change
func Merge(existing, incoming *models.PropertyRecord) (*models.PropertyRecord, bool) {
	merged := *existing
	changed := false

	fillIfBlank(&merged.SourcePage, incoming.SourcePage, &changed)
	fillIfBlank(&merged.Title, incoming.Title, &changed)
	fillIfBlank(&merged.Location, incoming.Location, &changed)
	fillIfBlank(&merged.PriceRaw, incoming.PriceRaw, &changed)
	fillIfBlank(&merged.ObjectID, incoming.ObjectID, &changed)
	fillIfBlank(&merged.AreaRaw, incoming.AreaRaw, &changed)

	if !isBlank(incoming.Description) {
		if isBlank(merged.Description) || len(incoming.Description) > len(merged.Description) {
			merged.Description = incoming.Description
			changed = true
		}
	}

	mergedFeatures := mergeFeatures(existing.Features, incoming.Features)
	if !reflect.DeepEqual(mergedFeatures, existing.Features) {
		changed = true
	}
	merged.Features = mergedFeatures

	if !incoming.ScrapedAt.IsZero() && !incoming.ScrapedAt.Equal(existing.ScrapedAt) {
		merged.ScrapedAt = incoming.ScrapedAt
		changed = true
	}

	return &merged, changed
}

func mergeFeatures(existing, incoming *models.Features) *models.Features {
	if incoming == nil {
		return existing
	}
	if existing == nil {
		return incoming
	}

	out := &models.Features{
		Origin:     existing.Origin,
		Images:     unionKeepOrder(existing.Images, incoming.Images),
		ParamsList: unionKeepOrder(existing.ParamsList, incoming.ParamsList),
	}

	if len(existing.Params) > 0 || len(incoming.Params) > 0 {
		params := make(map[string]string, len(existing.Params)+len(incoming.Params))
		for k, v := range existing.Params {
			params[k] = v
		}
		// Incoming wins per key: the detail stage carries fresher values.
		for k, v := range incoming.Params {
			params[k] = v
		}
		out.Params = params
	}

	if incoming.Origin != "" {
		out.Origin = incoming.Origin
	}

	if len(existing.Extra) > 0 || len(incoming.Extra) > 0 {
		extra := make(map[string]any, len(existing.Extra)+len(incoming.Extra))
		for k, v := range existing.Extra {
			extra[k] = v
		}
		for k, v := range incoming.Extra {
			if v != nil {
				extra[k] = v
			}
		}
		out.Extra = extra
	}

	return out
}

// unionKeepOrder merges two lists, existing entries first, de-duplicated by
// exact match.
func unionKeepOrder(existing, incoming []string) []string {
	if len(existing) == 0 && len(incoming) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, x := range append(append([]string{}, existing...), incoming...) {
		if x == "" {
			continue
		}
		if _, ok := seen[x]; ok {
			continue
		}
		seen[x] = struct{}{}
		out = append(out, x)
	}
	return out
}

func fillIfBlank(dst *string, incoming string, changed *bool) {
	if isBlank(*dst) && !isBlank(incoming) {
		*dst = incoming
		*changed = true
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
