package intermark

import (
	"reflect"
	"testing"
)

const listingHTML = `
<html><body>
<div class="object-card">
  <a class="object-card-main-info__link" href="/objects/724599"></a>
  <div class="object-card-main-info__id">ID 724599</div>
  <div class="object-card-main-info__name-title">
    <div class="name">Villa in Marbella</div>
    <div class="address">Marbella, Costa del Sol</div>
  </div>
  <div class="object-card-main-info__price">€ 896 000 – 1 682 000</div>
  <ul class="object-card-param-list">
    <li>4 спальни</li>
    <li> 2700 м² </li>
    <li></li>
  </ul>
  <picture><img src="/img/a.jpg"></picture>
  <picture><img src="/img/b.jpg" data-lazy="/img/b-lazy.jpg"></picture>
  <picture><img src="/img/a.jpg"></picture>
</div>
<div class="object-card">
  <a href="/objects/100"></a>
</div>
<div class="object-card">
  <div class="name">No link card</div>
</div>
</body></html>`

func TestParseListing(t *testing.T) {
	p := NewParser()
	cards := p.ParseListing(listingHTML, "https://intermark.ru/catalog?page=2")

	if len(cards) != 2 {
		t.Fatalf("got %d cards, want 2 (the card without a link is skipped)", len(cards))
	}

	c := cards[0]
	if c.URL != "https://intermark.ru/objects/724599" {
		t.Errorf("url = %q", c.URL)
	}
	if c.ObjectID != "724599" {
		t.Errorf("objectId = %q", c.ObjectID)
	}
	if c.Title != "Villa in Marbella" {
		t.Errorf("title = %q", c.Title)
	}
	if c.Location != "Marbella, Costa del Sol" {
		t.Errorf("location = %q", c.Location)
	}
	if c.PriceRaw != "€ 896 000 – 1 682 000" {
		t.Errorf("priceRaw = %q", c.PriceRaw)
	}
	if c.AreaRaw != "2700 м²" {
		t.Errorf("areaRaw = %q", c.AreaRaw)
	}
	wantParams := []string{"4 спальни", "2700 м²"}
	if !reflect.DeepEqual(c.ParamsList, wantParams) {
		t.Errorf("paramsList = %v, want %v", c.ParamsList, wantParams)
	}
	wantImages := []string{
		"https://intermark.ru/img/a.jpg",
		"https://intermark.ru/img/b.jpg",
		"https://intermark.ru/img/b-lazy.jpg",
	}
	if !reflect.DeepEqual(c.Images, wantImages) {
		t.Errorf("images = %v, want %v", c.Images, wantImages)
	}

	// Minimal card: only a URL, everything else blank.
	m := cards[1]
	if m.URL != "https://intermark.ru/objects/100" {
		t.Errorf("minimal url = %q", m.URL)
	}
	if m.Title != "" || m.PriceRaw != "" || m.ObjectID != "" {
		t.Errorf("minimal card should have blank fields: %+v", m)
	}
}

func TestParseListingEmptyPage(t *testing.T) {
	p := NewParser()
	if cards := p.ParseListing("<html><body><p>nothing here</p></body></html>", "https://intermark.ru/"); len(cards) != 0 {
		t.Errorf("got %d cards on a cardless page, want 0", len(cards))
	}
}

func TestParseDetailMetaDescriptionWins(t *testing.T) {
	html := `<html><head>
	<meta name="description" content="  Seafront  villa with pool. ">
	</head><body>
	<div class="object-description">visible block text</div>
	</body></html>`

	d := NewParser().ParseDetail(html, "https://intermark.ru/objects/1")
	if d.Description != "Seafront villa with pool." {
		t.Errorf("description = %q, want the meta tag content", d.Description)
	}
}

func TestParseDetailFallbackChain(t *testing.T) {
	html := `<html><head><meta name="description" content="   "></head><body>
	<main>main body content</main>
	<div class="page-text">textual section</div>
	<div class="object-desc">short desc block</div>
	<div class="object-description">the full description block</div>
	</body></html>`

	d := NewParser().ParseDetail(html, "https://intermark.ru/objects/1")
	if d.Description != "the full description block" {
		t.Errorf("description = %q, want the first selector group hit", d.Description)
	}
}

func TestParseDetailArticleFallback(t *testing.T) {
	html := `<html><body><article>article body only</article></body></html>`

	d := NewParser().ParseDetail(html, "https://intermark.ru/objects/1")
	if d.Description != "article body only" {
		t.Errorf("description = %q", d.Description)
	}
}

func TestParseDetailAreaAndParams(t *testing.T) {
	html := `<html><body>
	<main>Splendid flat of 1 250 m² in the old town.</main>
	<ul>
	  <li>Bedrooms: 4</li>
	  <li>Bedrooms: 7</li>
	  <li>no separator here</li>
	  <li>Pool : yes</li>
	</ul>
	</body></html>`

	d := NewParser().ParseDetail(html, "https://intermark.ru/objects/1")
	if d.AreaRaw != "1 250 m²" {
		t.Errorf("areaRaw = %q", d.AreaRaw)
	}
	if d.Params["Bedrooms"] != "4" {
		t.Errorf("params[Bedrooms] = %q, first occurrence must win", d.Params["Bedrooms"])
	}
	if d.Params["Pool"] != "yes" {
		t.Errorf("params[Pool] = %q", d.Params["Pool"])
	}
	if len(d.Params) != 2 {
		t.Errorf("params = %v, want 2 keys", d.Params)
	}
}

func TestParseDetailMissingEverything(t *testing.T) {
	d := NewParser().ParseDetail("<html><body></body></html>", "https://intermark.ru/objects/1")
	if d.Description != "" || d.AreaRaw != "" || len(d.Images) != 0 || len(d.Params) != 0 {
		t.Errorf("extraction misses must come back blank, got %+v", d)
	}
}
