// Package paapi provides a client for the Amazon Product Advertising API v5.
package paapi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"

	"github.com/savingsguru/dealflow/internal/common"
	"github.com/savingsguru/dealflow/internal/config"
	"github.com/savingsguru/dealflow/internal/model"
)

const (
	serviceName    = "ProductAdvertisingAPI"
	getItemsTarget = "com.amazon.paapi5.v1.ProductAdvertisingAPIv1.GetItems"
	getItemsPath   = "/paapi5/getitems"
)

// endpoint describes the PA-API host and signing region for a marketplace.
type endpoint struct {
	host          string
	region        string
	marketplaceID string
}

var endpoints = map[string]endpoint{
	"CA": {"webservices.amazon.ca", "us-east-1", "www.amazon.ca"},
	"US": {"webservices.amazon.com", "us-east-1", "www.amazon.com"},
	"UK": {"webservices.amazon.co.uk", "eu-west-1", "www.amazon.co.uk"},
	"DE": {"webservices.amazon.de", "eu-west-1", "www.amazon.de"},
	"FR": {"webservices.amazon.fr", "eu-west-1", "www.amazon.fr"},
	"IT": {"webservices.amazon.it", "eu-west-1", "www.amazon.it"},
	"ES": {"webservices.amazon.es", "eu-west-1", "www.amazon.es"},
	"IN": {"webservices.amazon.in", "eu-west-1", "www.amazon.in"},
	"JP": {"webservices.amazon.co.jp", "us-west-2", "www.amazon.co.jp"},
	"AU": {"webservices.amazon.com.au", "us-west-2", "www.amazon.com.au"},
}

// Client implements service.ProductSource against PA-API. Requests are
// signed with AWS SigV4 and throttled to the configured minimum inter-call
// delay; the free tier allows roughly one request per second, so the delay
// is a hard quota requirement rather than politeness.
type Client struct {
	lastCall   time.Time
	httpClient *http.Client
	signer     *v4.Signer
	logger     *slog.Logger
	cfg        config.Config
	baseURL    string
	endpoint   endpoint
	mu         sync.Mutex
}

// NewClient creates a PA-API client for the configured marketplace.
func NewClient(cfg config.Config) (*Client, error) {
	ep, ok := endpoints[cfg.Marketplace]
	if !ok {
		return nil, fmt.Errorf("%w: no PA-API endpoint for marketplace %q", common.ErrInvalidConfig, cfg.Marketplace)
	}

	return &Client{
		cfg:        cfg,
		endpoint:   ep,
		baseURL:    "https://" + ep.host,
		signer:     v4.NewSigner(),
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     slog.Default().With("component", "paapi"),
	}, nil
}

// Name identifies this source in logs and session records.
func (c *Client) Name() string { return string(model.SourcePAAPI) }

// Healthy reports whether the client has all required credentials.
func (c *Client) Healthy() bool {
	return c.cfg.AccessKey != "" && c.cfg.SecretKey != "" && c.cfg.PartnerTag != ""
}

// Resolve fetches product data for a single ASIN. A malformed ASIN returns
// immediately without a network call. Any transport or parse failure is
// contained here and reported as an absence (an error wrapping
// common.ErrNoData); nothing propagates past this boundary.
func (c *Client) Resolve(ctx context.Context, asin string) (*model.Product, error) {
	if !model.ValidASIN(asin) {
		return nil, fmt.Errorf("%w: %q", common.ErrInvalidASIN, asin)
	}

	if err := c.throttle(ctx); err != nil {
		return nil, err
	}
	defer c.markCall()

	body, err := json.Marshal(getItemsRequest{
		ItemIDs:     []string{strings.ToUpper(asin)},
		Resources:   defaultResources,
		PartnerTag:  c.cfg.PartnerTag,
		PartnerType: "Associates",
		Marketplace: c.endpoint.marketplaceID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", common.ErrNoData, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+getItemsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", common.ErrNoData, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Content-Encoding", "amz-1.0")
	req.Header.Set("X-Amz-Target", getItemsTarget)

	if err := c.sign(ctx, req, body); err != nil {
		return nil, fmt.Errorf("%w: signing request: %v", common.ErrNoData, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("PA-API request failed", "asin", asin, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrNoData, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: %v", common.ErrNoData, common.ErrRateLimit)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("PA-API returned non-OK status", "asin", asin, "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", common.ErrNoData, resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", common.ErrNoData, err)
	}

	product, err := parseGetItemsResponse(payload, strings.ToUpper(asin))
	if err != nil {
		c.logger.Warn("PA-API response unusable", "asin", asin, "error", err)
		return nil, err
	}

	c.logger.Info("PA-API resolved product",
		"asin", product.ASIN,
		"title", product.Title,
		"price", product.CurrentPrice)
	return product, nil
}

// throttle suspends the caller until the minimum inter-call delay, measured
// from the end of the previous call, has elapsed.
func (c *Client) throttle(ctx context.Context) error {
	c.mu.Lock()
	var wait time.Duration
	if !c.lastCall.IsZero() {
		wait = c.cfg.APIRateLimitDelay - time.Since(c.lastCall)
	}
	c.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	c.logger.Debug("Rate limiting PA-API call", "wait", wait)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

func (c *Client) markCall() {
	c.mu.Lock()
	c.lastCall = time.Now()
	c.mu.Unlock()
}

func (c *Client) sign(ctx context.Context, req *http.Request, body []byte) error {
	sum := sha256.Sum256(body)
	creds := aws.Credentials{
		AccessKeyID:     c.cfg.AccessKey,
		SecretAccessKey: c.cfg.SecretKey,
	}
	return c.signer.SignHTTP(ctx, creds, req, hex.EncodeToString(sum[:]),
		serviceName, c.endpoint.region, time.Now())
}
