package render

// stabilityTracker decides when the lazy-load scroll loop can stop: the card
// count has to come back unchanged for one consecutive round.
type stabilityTracker struct {
	prev     int
	observed bool
}

// observe records a card count and reports whether the page has stabilized.
func (t *stabilityTracker) observe(count int) bool {
	stable := t.observed && count == t.prev
	t.prev = count
	t.observed = true
	return stable
}
