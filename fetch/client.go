package fetch

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-resty/resty/v2"

	"intermark-scraper/utils"
)

// userAgents is a small fixed pool rotated per request.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// Client is the transport-level HTTP client for detail-page fetches. On a
// transient/anti-bot status it resends the original request unmodified, after
// the backoff the policy dictates; exhausting the ceiling surfaces the last
// response as final rather than failing the crawl.
type Client struct {
	http   *resty.Client
	policy *utils.RetryPolicy
	log    *utils.Logger
}

// NewClient builds a Client around the given retry policy.
func NewClient(policy *utils.RetryPolicy, timeout time.Duration, log *utils.Logger) *Client {
	httpClient := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	return &Client{http: httpClient, policy: policy, log: log}
}

// Get fetches the URL and returns the body and status code. Transport-level
// failures (connection refused, timeout) are returned as errors; the caller
// degrades them to an empty page.
func (c *Client) Get(ctx context.Context, url string) (string, int, error) {
	for attempt := 1; ; attempt++ {
		resp, err := c.http.R().
			SetContext(ctx).
			SetHeader("User-Agent", userAgents[rand.Intn(len(userAgents))]).
			Get(url)
		if err != nil {
			return "", 0, fmt.Errorf("fetch: get %s: %w", url, err)
		}

		d := c.policy.Decide(resp.StatusCode(), attempt)
		if !d.Retry {
			return resp.String(), resp.StatusCode(), nil
		}

		c.log.Info("[retry] %s status=%d retry=%d/%d sleep=%.2fs",
			url, resp.StatusCode(), attempt, c.policy.MaxAttempts, d.Delay.Seconds())

		select {
		case <-time.After(d.Delay):
		case <-ctx.Done():
			return "", 0, ctx.Err()
		}
	}
}
