package crawler

import "testing"

func TestNextPageURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"no page param means page 1",
			"https://intermark.ru/catalog",
			"https://intermark.ru/catalog?page=2",
		},
		{
			"existing page is incremented",
			"https://intermark.ru/catalog?page=2",
			"https://intermark.ru/catalog?page=3",
		},
		{
			"unparsable page falls back to 1",
			"https://intermark.ru/catalog?page=abc",
			"https://intermark.ru/catalog?page=2",
		},
		{
			"other query parameters survive",
			"https://intermark.ru/catalog?country=spain&page=4",
			"https://intermark.ru/catalog?country=spain&page=5",
		},
		{
			"path and fragment survive",
			"https://intermark.ru/a/b?page=1#top",
			"https://intermark.ru/a/b?page=2#top",
		},
	}

	for _, tt := range tests {
		got, err := nextPageURL(tt.in, "page")
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestSetPageParamIdempotent(t *testing.T) {
	urls := []string{
		"https://intermark.ru/catalog",
		"https://intermark.ru/catalog?page=7",
		"https://intermark.ru/catalog?b=2&a=1&page=3",
	}

	for _, u := range urls {
		once, err := setPageParam(u, "page", 5)
		if err != nil {
			t.Fatal(err)
		}
		twice, err := setPageParam(once, "page", 5)
		if err != nil {
			t.Fatal(err)
		}
		if once != twice {
			t.Errorf("rewrite not idempotent for %q: %q vs %q", u, once, twice)
		}
	}
}
