// Package config loads and validates application configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/savingsguru/dealflow/internal/common"
	"github.com/spf13/viper"
)

// Config carries every tunable the pipeline needs. It is an explicit value
// passed into each component's constructor; there is no global settings
// singleton.
type Config struct {
	// Amazon Product Advertising API credentials.
	AccessKey   string
	SecretKey   string
	PartnerTag  string
	Marketplace string

	// Rate limiting and retries.
	APIRateLimitDelay time.Duration
	ScraperDelayMin   time.Duration
	ScraperDelayMax   time.Duration
	MaxRetryAttempts  int
	RequestTimeout    time.Duration

	// Catalog lifecycle.
	TargetDealCount    int
	MaxPages           int
	FreshnessWindow    time.Duration
	MinDiscountPercent int
	FeaturedThreshold  int
	MaxFeatured        int

	// Paths.
	CatalogPath   string
	HistoryDBPath string

	// Source feed.
	FeedBaseURL string
}

// validMarketplaces are the country codes PA-API supports.
var validMarketplaces = map[string]bool{
	"CA": true, "US": true, "UK": true, "DE": true, "FR": true,
	"IT": true, "ES": true, "IN": true, "JP": true, "AU": true,
}

// placeholders are credential values that indicate an unconfigured install.
// They must fail hard before any network activity, not silently skip.
var placeholders = []string{
	"your-access-key", "your-secret-key", "your-partner-tag",
	"changeme", "dummy", "xxx",
}

// Default returns the configuration defaults, matching the documented
// behavior of a fresh install.
func Default() Config {
	return Config{
		Marketplace:        "CA",
		APIRateLimitDelay:  time.Second,
		ScraperDelayMin:    time.Second,
		ScraperDelayMax:    3 * time.Second,
		MaxRetryAttempts:   3,
		RequestTimeout:     30 * time.Second,
		TargetDealCount:    120,
		MaxPages:           20,
		FreshnessWindow:    24 * time.Hour,
		MinDiscountPercent: 10,
		FeaturedThreshold:  40,
		MaxFeatured:        20,
		CatalogPath:        "public/deals.json",
		HistoryDBPath:      "dealflow.db",
		FeedBaseURL:        "https://www.savingsguru.ca",
	}
}

// Load builds a Config from viper, which has already merged config file,
// environment (DEALFLOW_*), and flags.
func Load() Config {
	cfg := Default()

	cfg.AccessKey = viper.GetString("amazon.access_key")
	cfg.SecretKey = viper.GetString("amazon.secret_key")
	cfg.PartnerTag = viper.GetString("amazon.partner_tag")
	if v := viper.GetString("amazon.marketplace"); v != "" {
		cfg.Marketplace = strings.ToUpper(v)
	}

	if v := viper.GetDuration("rate.api_delay"); v > 0 {
		cfg.APIRateLimitDelay = v
	}
	if v := viper.GetDuration("rate.scraper_delay_min"); v > 0 {
		cfg.ScraperDelayMin = v
	}
	if v := viper.GetDuration("rate.scraper_delay_max"); v > 0 {
		cfg.ScraperDelayMax = v
	}
	if v := viper.GetInt("rate.max_retries"); v > 0 {
		cfg.MaxRetryAttempts = v
	}
	if v := viper.GetDuration("rate.request_timeout"); v > 0 {
		cfg.RequestTimeout = v
	}

	if v := viper.GetInt("catalog.target_count"); v > 0 {
		cfg.TargetDealCount = v
	}
	if v := viper.GetInt("catalog.max_pages"); v > 0 {
		cfg.MaxPages = v
	}
	if v := viper.GetDuration("catalog.freshness_window"); v > 0 {
		cfg.FreshnessWindow = v
	}
	if viper.IsSet("catalog.min_discount") {
		cfg.MinDiscountPercent = viper.GetInt("catalog.min_discount")
	}
	if v := viper.GetInt("catalog.featured_threshold"); v > 0 {
		cfg.FeaturedThreshold = v
	}
	if v := viper.GetInt("catalog.max_featured"); v > 0 {
		cfg.MaxFeatured = v
	}

	if v := viper.GetString("catalog.path"); v != "" {
		cfg.CatalogPath = v
	}
	if v := viper.GetString("history.db_path"); v != "" {
		cfg.HistoryDBPath = v
	}
	if v := viper.GetString("feed.base_url"); v != "" {
		cfg.FeedBaseURL = v
	}

	return cfg
}

// ValidateCredentials fails when any Amazon credential is empty or an
// obvious placeholder. This runs before any resolution attempt.
func (c Config) ValidateCredentials() error {
	creds := map[string]string{
		"access key":  c.AccessKey,
		"secret key":  c.SecretKey,
		"partner tag": c.PartnerTag,
	}
	for name, value := range creds {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: amazon %s is empty", common.ErrMissingConfig, name)
		}
		lower := strings.ToLower(value)
		for _, p := range placeholders {
			if strings.Contains(lower, p) {
				return fmt.Errorf("%w: amazon %s looks like a placeholder (%q)", common.ErrInvalidConfig, name, value)
			}
		}
	}
	return nil
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	if err := c.ValidateCredentials(); err != nil {
		return err
	}
	if !validMarketplaces[c.Marketplace] {
		return fmt.Errorf("%w: unknown marketplace %q", common.ErrInvalidConfig, c.Marketplace)
	}
	if c.ScraperDelayMin > c.ScraperDelayMax {
		return fmt.Errorf("%w: scraper delay min exceeds max", common.ErrInvalidConfig)
	}
	if c.TargetDealCount <= 0 {
		return fmt.Errorf("%w: target deal count must be positive", common.ErrInvalidConfig)
	}
	if c.MinDiscountPercent < 0 || c.MinDiscountPercent > 100 {
		return fmt.Errorf("%w: min discount must be within 0-100", common.ErrInvalidConfig)
	}
	return nil
}
