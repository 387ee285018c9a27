// Package model defines the core domain types shared across the application.
package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DataSource records which client produced a piece of product data.
type DataSource string

// Known data sources.
const (
	SourcePAAPI   DataSource = "PAAPI"
	SourceScraped DataSource = "SCRAPED"
)

// ASINLength is the fixed length of an Amazon Standard Identification Number.
const ASINLength = 10

// MaxFeatures caps how many feature bullets we keep per product.
const MaxFeatures = 5

// ValidASIN reports whether s is a well-formed ASIN: exactly ten
// alphanumeric characters.
func ValidASIN(s string) bool {
	if len(s) != ASINLength {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return true
}

// Product is verified data about one ASIN at one point in time, produced by
// either the PA-API client or the page scraper. It is immutable once
// normalized and is never persisted directly; deals are derived from it.
type Product struct {
	RetrievedAt     time.Time
	CurrentPrice    *float64
	ListPrice       *float64
	DiscountPercent *int
	ASIN            string
	Title           string
	ImageURL        string
	Brand           string
	Availability    string
	Source          DataSource
	Features        []string
}

// Normalize upper-cases the ASIN, caps the feature list, defaults
// availability, and derives the discount percentage when both prices are
// present and the list price exceeds the current price.
func (p *Product) Normalize() {
	p.ASIN = strings.ToUpper(p.ASIN)
	if len(p.Features) > MaxFeatures {
		p.Features = p.Features[:MaxFeatures]
	}
	if p.Availability == "" {
		p.Availability = "Unknown"
	}
	if p.RetrievedAt.IsZero() {
		p.RetrievedAt = time.Now().UTC()
	}
	if p.DiscountPercent == nil && p.CurrentPrice != nil && p.ListPrice != nil && *p.ListPrice > *p.CurrentPrice {
		discount := int(math.Round((*p.ListPrice - *p.CurrentPrice) / *p.ListPrice * 100))
		p.DiscountPercent = &discount
	}
}

// HasValidPrice reports whether the product carries a positive current
// price. Products without one must never become deals.
func (p *Product) HasValidPrice() bool {
	return p.CurrentPrice != nil && *p.CurrentPrice > 0
}

// AffiliateURL builds the outbound referral URL for this product with the
// given partner tag embedded.
func (p *Product) AffiliateURL(partnerTag, marketplace string) string {
	return fmt.Sprintf("%s/dp/%s?tag=%s", MarketplaceBaseURL(marketplace), p.ASIN, partnerTag)
}

// MarketplaceBaseURL returns the retail site base URL for a marketplace
// country code. Unknown codes fall back to the Canadian storefront.
func MarketplaceBaseURL(marketplace string) string {
	switch strings.ToUpper(marketplace) {
	case "US":
		return "https://www.amazon.com"
	case "UK":
		return "https://www.amazon.co.uk"
	case "DE":
		return "https://www.amazon.de"
	case "FR":
		return "https://www.amazon.fr"
	case "IT":
		return "https://www.amazon.it"
	case "ES":
		return "https://www.amazon.es"
	case "IN":
		return "https://www.amazon.in"
	case "JP":
		return "https://www.amazon.co.jp"
	case "AU":
		return "https://www.amazon.com.au"
	default:
		return "https://www.amazon.ca"
	}
}
