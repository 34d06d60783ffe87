// Package scraper performs the HTTP leg of a search-engine query: a single
// GET with browser-like headers, optional proxy rotation and a TLS
// fingerprint matching the advertised browser.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/MattiaPrimavera/yass/internal/bypass"
	"github.com/MattiaPrimavera/yass/internal/fingerprint"
	"github.com/MattiaPrimavera/yass/internal/metrics"
	"github.com/MattiaPrimavera/yass/pkg/httpclient"
	"github.com/MattiaPrimavera/yass/pkg/proxy"
	"github.com/MattiaPrimavera/yass/pkg/useragent"
)

type contextKey string

const proxyKey contextKey = "proxy_url"

// FetchError is a failed query: a network error, a non-success status, or
// an engine challenge page. It is recoverable; the orchestrator treats it
// as zero results from the affected plugin.
type FetchError struct {
	URL        string
	StatusCode int
	// Challenge names the detected block mechanism, e.g. "google-sorry",
	// when the engine answered with a challenge page instead of results.
	Challenge string
	Err       error
}

func (e *FetchError) Error() string {
	switch {
	case e.Challenge != "":
		return fmt.Sprintf("fetch %s: blocked by %s (status %d)", e.URL, e.Challenge, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Page is one successfully fetched result page.
type Page struct {
	ID         string
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
	FetchedAt  time.Time
}

// Config configures a Fetcher.
type Config struct {
	Timeout      time.Duration
	MaxRedirects int
	UseCookieJar bool
	Fingerprint  fingerprint.Profile
	UAPool       *useragent.Pool
	ProxyPool    *proxy.Pool
	// Detectors identify challenge pages; nil means bypass.DefaultDetectors.
	Detectors []bypass.Detector
}

// Fetcher issues GET requests for query URLs. A single Fetcher is shared
// across plugins so connections and cookies are pooled; pacing is the
// caller's concern.
type Fetcher struct {
	config Config
	client *httpclient.Client
}

// NewFetcher initializes a Fetcher with the given configuration.
func NewFetcher(cfg Config) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}
	if cfg.Detectors == nil {
		cfg.Detectors = bypass.DefaultDetectors()
	}

	// One transport for the fetcher's lifetime. Per-request proxy rotation
	// goes through the request context so the shared Proxy func stays
	// immutable.
	proxyFunc := func(req *http.Request) (*url.URL, error) {
		if val := req.Context().Value(proxyKey); val != nil {
			if u, ok := val.(*url.URL); ok {
				return u, nil
			}
		}
		return http.ProxyFromEnvironment(req)
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, proxyFunc)
	if err != nil {
		return nil, fmt.Errorf("scraper: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: cfg.UseCookieJar,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("scraper: %w", err)
	}

	return &Fetcher{
		config: cfg,
		client: client,
	}, nil
}

// Fetch executes a GET against the query URL. A nil error means a success
// status and no challenge page; any other outcome is a *FetchError. The
// returned Page carries whatever response was received, also on error.
func (f *Fetcher) Fetch(ctx context.Context, queryURL string) (*Page, error) {
	start := time.Now()
	page := &Page{
		ID:        uuid.New().String(),
		URL:       queryURL,
		FetchedAt: start.UTC(),
	}

	var activeProxy *url.URL
	if f.config.ProxyPool != nil {
		activeProxy = f.config.ProxyPool.Next()
	}
	if activeProxy != nil {
		ctx = context.WithValue(ctx, proxyKey, activeProxy)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		page.Duration = time.Since(start)
		return page, &FetchError{URL: queryURL, Err: err}
	}

	req.Header.Set("User-Agent", f.config.UAPool.Next())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(ctx, req)
	if err != nil {
		if activeProxy != nil {
			_ = f.config.ProxyPool.MarkFailure(activeProxy)
			metrics.ProxyFailures.WithLabelValues(activeProxy.String()).Inc()
		}
		page.Duration = time.Since(start)
		return page, &FetchError{URL: queryURL, Err: err}
	}
	defer resp.Body.Close()

	if activeProxy != nil {
		_ = f.config.ProxyPool.MarkSuccess(activeProxy)
	}

	body, err := io.ReadAll(resp.Body)
	page.StatusCode = resp.StatusCode
	page.Header = resp.Header
	page.Body = body
	page.Duration = time.Since(start)
	if err != nil {
		return page, &FetchError{URL: queryURL, StatusCode: resp.StatusCode, Err: err}
	}

	if source, blocked := bypass.Detect(resp.StatusCode, resp.Header, body, f.config.Detectors); blocked {
		return page, &FetchError{URL: queryURL, StatusCode: resp.StatusCode, Challenge: source}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return page, &FetchError{URL: queryURL, StatusCode: resp.StatusCode}
	}

	return page, nil
}
