// Package scrape resolves products by fetching and parsing Amazon retail
// pages. It is the fallback source when the structured API cannot produce
// data, and it only ever reports what the page actually shows.
package scrape

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/savingsguru/dealflow/internal/common"
	"github.com/savingsguru/dealflow/internal/config"
	"github.com/savingsguru/dealflow/internal/model"
)

// userAgents is the rotation pool for the User-Agent header. Each request
// draws a real desktop browser string at random so consecutive fetches do
// not share a fingerprint.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

var acceptLanguages = []string{
	"en-CA,en;q=0.9",
	"en-CA,en-US;q=0.9,en;q=0.8",
	"en-US,en;q=0.9",
}

// Client implements service.ProductSource by scraping product pages.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	rng        *rand.Rand
	cfg        config.Config
	baseURL    string
	// backoffUnit is the time base for the retry ladder. Production uses one
	// second; tests shrink it.
	backoffUnit time.Duration
	mu          sync.Mutex
}

// NewClient creates a scraping client for the configured marketplace.
func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:         cfg,
		baseURL:     model.MarketplaceBaseURL(cfg.Marketplace),
		backoffUnit: time.Second,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return errors.New("too many redirects")
				}
				return nil
			},
		},
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: slog.Default().With("component", "scrape"),
	}
}

// Name identifies this source in logs and session records.
func (c *Client) Name() string { return string(model.SourceScraped) }

// Healthy is always true; scraping needs no credentials.
func (c *Client) Healthy() bool { return true }

// Resolve fetches the product page for an ASIN and extracts verified fields
// from it. Retries follow a status-dependent backoff ladder; anything that
// still fails after the configured attempts, or that the page simply does
// not show, comes back as an error wrapping common.ErrNoData or
// common.ErrPageBlocked. No field is ever invented.
func (c *Client) Resolve(ctx context.Context, asin string) (*model.Product, error) {
	if !model.ValidASIN(asin) {
		return nil, fmt.Errorf("%w: %q", common.ErrInvalidASIN, asin)
	}
	asin = strings.ToUpper(asin)
	pageURL := c.baseURL + "/dp/" + asin

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetryAttempts; attempt++ {
		if err := c.politeDelay(ctx); err != nil {
			return nil, err
		}

		product, retryIn, err := c.fetchOnce(ctx, pageURL, asin, attempt+1)
		if err == nil {
			return product, nil
		}
		lastErr = err

		if retryIn < 0 {
			// Non-retryable outcome, stop the ladder.
			break
		}
		c.logger.Warn("Scrape attempt failed",
			"asin", asin,
			"attempt", attempt+1,
			"retry_in", retryIn,
			"error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryIn):
		}
	}

	if lastErr == nil {
		lastErr = common.ErrNoData
	}
	return nil, fmt.Errorf("scraping %s: %w", asin, lastErr)
}

// fetchOnce performs one page fetch. It returns the backoff delay before the
// next attempt, or a negative delay when retrying cannot help.
func (c *Client) fetchOnce(ctx context.Context, pageURL, asin string, attempt int) (*model.Product, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, -1, fmt.Errorf("%w: building request: %v", common.ErrNoData, err)
	}
	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, -1, ctx.Err()
		}
		if isTimeout(err) {
			return nil, c.backoff(2, attempt, 0, 0), fmt.Errorf("%w: timeout: %v", common.ErrNoData, err)
		}
		return nil, -1, fmt.Errorf("%w: %v", common.ErrNoData, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		// Fall through to parsing.
	case http.StatusServiceUnavailable:
		return nil, c.backoff(2, attempt, 1, 3), fmt.Errorf("%w: status 503", common.ErrNoData)
	case http.StatusForbidden, http.StatusTooManyRequests:
		return nil, c.backoff(3, attempt, 2, 5), fmt.Errorf("%w: status %d", common.ErrPageBlocked, resp.StatusCode)
	default:
		return nil, -1, fmt.Errorf("%w: status %d", common.ErrNoData, resp.StatusCode)
	}

	// Setting Accept-Encoding ourselves turns off the transport's
	// transparent decompression, so the body may still be compressed here.
	body := io.Reader(resp.Body)
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, gzErr := gzip.NewReader(resp.Body)
		if gzErr != nil {
			return nil, -1, fmt.Errorf("%w: decompressing page: %v", common.ErrNoData, gzErr)
		}
		defer func() { _ = gz.Close() }()
		body = gz
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, -1, fmt.Errorf("%w: parsing page: %v", common.ErrNoData, err)
	}

	if err := validatePage(doc); err != nil {
		if errors.Is(err, common.ErrPageBlocked) {
			return nil, c.backoff(3, attempt, 2, 5), err
		}
		return nil, -1, err
	}

	product, err := extractProduct(doc, asin)
	if err != nil {
		return nil, -1, err
	}
	return product, 0, nil
}

// politeDelay sleeps a random duration inside the configured window before
// every request.
func (c *Client) politeDelay(ctx context.Context) error {
	window := c.cfg.ScraperDelayMax - c.cfg.ScraperDelayMin
	delay := c.cfg.ScraperDelayMin
	if window > 0 {
		c.mu.Lock()
		delay += time.Duration(c.rng.Int63n(int64(window)))
		c.mu.Unlock()
	}
	if delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// decorate applies browser headers with the User-Agent and language drawn
// at random from the rotation pools.
func (c *Client) decorate(req *http.Request) {
	c.mu.Lock()
	ua := userAgents[c.rng.Intn(len(userAgents))]
	lang := acceptLanguages[c.rng.Intn(len(acceptLanguages))]
	c.mu.Unlock()

	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", lang)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("DNT", "1")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

// backoff computes base^attempt units plus uniform jitter drawn from
// [jitterMin, jitterMax] units.
func (c *Client) backoff(base float64, attempt, jitterMin, jitterMax int) time.Duration {
	if attempt > 6 {
		attempt = 6
	}
	d := time.Duration(math.Pow(base, float64(attempt))) * c.backoffUnit
	if jitterMax > jitterMin {
		c.mu.Lock()
		jitter := jitterMin + c.rng.Intn(jitterMax-jitterMin+1)
		c.mu.Unlock()
		d += time.Duration(jitter) * c.backoffUnit
	}
	return d
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
