package calendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/rental-sync/backend/internal/metrics"
)

// ErrFeedUnavailable wraps every failure to obtain a feed body.
var ErrFeedUnavailable = errors.New("unable to download calendar")

// maxFeedBytes caps a feed download.
const maxFeedBytes = 16 << 20

// cachedFeed is what a conditional request needs to revalidate a feed.
type cachedFeed struct {
	ETag         string
	LastModified string
	Body         string
}

// Fetcher downloads feeds with one bounded GET each. With a cache TTL set it
// sends If-None-Match / If-Modified-Since and serves 304s from memory.
type Fetcher struct {
	client  *http.Client
	cache   *gocache.Cache
	metrics *metrics.Registry
	logger  *zap.Logger
}

// NewFetcher creates a fetcher. A zero cacheTTL disables conditional
// requests.
func NewFetcher(timeout, cacheTTL time.Duration, m *metrics.Registry, logger *zap.Logger) *Fetcher {
	f := &Fetcher{
		client:  &http.Client{Timeout: timeout},
		metrics: m,
		logger:  logger,
	}
	if cacheTTL > 0 {
		f.cache = gocache.New(cacheTTL, 2*cacheTTL)
	}
	return f
}

// Fetch returns the feed body at feedURL. Network errors and non-2xx
// answers are reported as ErrFeedUnavailable.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) (string, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		f.metrics.ObserveFetch("error", time.Since(start))
		return "", fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	req.Header.Set("Accept", "text/calendar, text/plain;q=0.9, */*;q=0.5")

	var cached *cachedFeed
	if f.cache != nil {
		if v, ok := f.cache.Get(feedURL); ok {
			cached = v.(*cachedFeed)
			if cached.ETag != "" {
				req.Header.Set("If-None-Match", cached.ETag)
			}
			if cached.LastModified != "" {
				req.Header.Set("If-Modified-Since", cached.LastModified)
			}
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.metrics.ObserveFetch("error", time.Since(start))
		f.logger.Warn("feed fetch failed", zap.String("url", redactURL(feedURL)), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && cached != nil {
		f.metrics.ObserveFetch("not_modified", time.Since(start))
		f.logger.Debug("feed not modified", zap.String("url", redactURL(feedURL)))
		return cached.Body, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.metrics.ObserveFetch("http_error", time.Since(start))
		return "", fmt.Errorf("%w: status %d", ErrFeedUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		f.metrics.ObserveFetch("error", time.Since(start))
		return "", fmt.Errorf("%w: reading body: %v", ErrFeedUnavailable, err)
	}
	f.metrics.ObserveFetch("ok", time.Since(start))

	if f.cache != nil {
		etag, lastModified := resp.Header.Get("ETag"), resp.Header.Get("Last-Modified")
		if etag != "" || lastModified != "" {
			f.cache.SetDefault(feedURL, &cachedFeed{
				ETag:         etag,
				LastModified: lastModified,
				Body:         string(body),
			})
		}
	}

	return string(body), nil
}

// redactURL strips the query string, where platforms put the feed token.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	if u.RawQuery != "" {
		u.RawQuery = "redacted"
	}
	u.User = nil
	return u.String()
}
