package crawler

import (
	"net/url"
	"strconv"
)

// currentPage reads the page-number query parameter from a listing URL.
// Absent or unparsable values mean page 1.
func currentPage(rawURL, pageParam string) int {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 1
	}
	n, err := strconv.Atoi(u.Query().Get(pageParam))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// setPageParam rewrites the page-number query parameter, preserving every
// other part of the URL. Applying it twice with the same page value yields
// the same URL both times.
func setPageParam(rawURL, pageParam string, page int) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(pageParam, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// nextPageURL derives the pagination candidate: current page (default 1)
// plus one.
func nextPageURL(rawURL, pageParam string) (string, error) {
	return setPageParam(rawURL, pageParam, currentPage(rawURL, pageParam)+1)
}
