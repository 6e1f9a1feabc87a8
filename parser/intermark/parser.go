// Package intermark extracts property records from intermark.ru pages.
// It is the swappable per-site adapter behind the crawler's PageParser
// boundary: nothing in here is consulted by the orchestration logic beyond
// the extraction output shape.
package intermark

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"intermark-scraper/models"
)

var (
	spaceRe  = regexp.MustCompile(`\s+`)
	digitsRe = regexp.MustCompile(`\d+`)
	areaRe   = regexp.MustCompile(`(?i)\d[\d\s]{0,10}\s*(?:м²|m²)`)
)

// Parser implements the PageParser contract for intermark.ru templates.
type Parser struct{}

// NewParser returns a Parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseListing extracts the property summary cards from a rendered listing
// page. Missing fields come back blank, never as errors.
func (p *Parser) ParseListing(html, baseURL string) []models.CardExtraction {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	base, _ := url.Parse(baseURL)

	var cards []models.CardExtraction
	doc.Find("div.object-card").Each(func(_ int, card *goquery.Selection) {
		link, _ := card.Find("a.object-card-main-info__link").Attr("href")
		if link == "" {
			link, _ = card.Find(`a[href*="/objects/"]`).Attr("href")
		}
		cardURL := resolveURL(base, link)
		if cardURL == "" {
			return
		}

		objectID := ""
		if idText := cleanText(card.Find("div.object-card-main-info__id").Text()); idText != "" {
			objectID = digitsRe.FindString(idText)
		}

		title := cleanText(card.Find("div.object-card-main-info__name-title div.name").Text())
		if title == "" {
			title = cleanText(card.Find("div.name").First().Text())
		}

		location := cleanText(card.Find("div.object-card-main-info__name-title div.address").Text())
		if location == "" {
			location = cleanText(card.Find("div.address").First().Text())
		}

		priceRaw := cleanText(card.Find("div.object-card-main-info__price").Text())
		if priceRaw == "" {
			priceRaw = cleanText(card.Find(`[class*="price"]`).First().Text())
		}

		// The area can sit in any of the card's param rows, so scan the
		// card's full text rather than one list.
		areaRaw := cleanText(areaRe.FindString(cleanText(card.Text())))

		var paramsList []string
		card.Find("ul.object-card-param-list li").Each(func(_ int, li *goquery.Selection) {
			if txt := cleanText(li.Text()); txt != "" {
				paramsList = append(paramsList, txt)
			}
		})

		cards = append(cards, models.CardExtraction{
			URL:        cardURL,
			ObjectID:   objectID,
			Title:      title,
			Location:   location,
			PriceRaw:   priceRaw,
			AreaRaw:    areaRaw,
			Images:     extractImages(card, base),
			ParamsList: paramsList,
		})
	})

	return cards
}

// ParseDetail extracts the refinement fields from a property detail page.
func (p *Parser) ParseDetail(html, baseURL string) *models.DetailExtraction {
	out := &models.DetailExtraction{}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return out
	}
	base, _ := url.Parse(baseURL)

	out.Description = extractDescription(doc)
	out.AreaRaw = cleanText(areaRe.FindString(cleanText(doc.Find("body").Text())))
	out.Images = extractImages(doc.Selection, base)

	// key:value parameters from generic list items; first occurrence per
	// key wins when the template repeats a row.
	params := make(map[string]string)
	doc.Find("ul li").Each(func(_ int, li *goquery.Selection) {
		txt := cleanText(li.Text())
		if txt == "" || !strings.Contains(txt, ":") {
			return
		}
		k, v, _ := strings.Cut(txt, ":")
		k = cleanText(k)
		v = cleanText(v)
		if k == "" || v == "" {
			return
		}
		if _, ok := params[k]; !ok {
			params[k] = v
		}
	})
	if len(params) > 0 {
		out.Params = params
	}

	return out
}

// extractDescription walks the fallback chain for the page description:
// the metadata description tag, then blocks whose class hints at a
// description, then the primary article/main containers. First non-blank
// result wins.
func extractDescription(doc *goquery.Document) string {
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		if desc = cleanText(desc); desc != "" {
			return desc
		}
	}

	for _, sel := range []string{
		`[class*="description"]`,
		`[class*="desc"]`,
		`[class*="text"]`,
		"article",
		"main",
	} {
		if txt := cleanText(doc.Find(sel).Text()); txt != "" {
			return txt
		}
	}

	return ""
}

// extractImages collects picture sources in document order, resolved against
// the base URL and de-duplicated by exact match.
func extractImages(root *goquery.Selection, base *url.URL) []string {
	var imgs []string
	root.Find("picture img").Each(func(_ int, img *goquery.Selection) {
		for _, attr := range []string{"src", "data-lazy"} {
			if src, ok := img.Attr(attr); ok && src != "" {
				if resolved := resolveURL(base, src); resolved != "" {
					imgs = append(imgs, resolved)
				}
			}
		}
	})
	return uniqueKeepOrder(imgs)
}

// cleanText collapses runs of whitespace and trims the result.
func cleanText(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// resolveURL joins a possibly relative href to the page URL.
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// uniqueKeepOrder drops duplicates while preserving first-seen order.
func uniqueKeepOrder(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, x := range items {
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
