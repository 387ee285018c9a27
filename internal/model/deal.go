package model

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Deal factory errors.
var (
	ErrNoCurrentPrice = errors.New("product has no valid current price")
	ErrInvalidDeal    = errors.New("deal failed validation")
)

// FeaturedDiscountThreshold is the minimum discount percentage for a deal to
// be eligible for the featured flag.
const FeaturedDiscountThreshold = 40

// Deal is the persisted, user-facing catalog entry. The JSON field names are
// the contract with the frontend and must not change.
type Deal struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	ImageURL        string     `json:"imageUrl"`
	Price           float64    `json:"price"`
	OriginalPrice   *float64   `json:"originalPrice"`
	DiscountPercent *int       `json:"discountPercent"`
	Category        string     `json:"category"`
	Description     string     `json:"description"`
	AffiliateURL    string     `json:"affiliateUrl"`
	Featured        bool       `json:"featured"`
	DateAdded       string     `json:"dateAdded"`
	DataSource      DataSource `json:"dataSource"`
	ASIN            string     `json:"asin"`
}

// NewDeal converts a resolved product into a catalog entry. It refuses to
// build a deal without a positive real current price: absence is returned as
// an error, never as a partially-filled deal. Category and description come
// from the originating post when one is available.
func NewDeal(product *Product, partnerTag, marketplace string, post *Post) (*Deal, error) {
	if product == nil || !product.HasValidPrice() {
		return nil, ErrNoCurrentPrice
	}
	if product.Title == "" {
		return nil, fmt.Errorf("%w: missing title", ErrInvalidDeal)
	}

	category := "General"
	description := fmt.Sprintf("Great deal on %s", product.Title)
	if post != nil {
		if post.Category != "" {
			category = post.Category
		}
		if post.Description != "" {
			description = post.Description
		}
	}

	now := time.Now().UTC()
	deal := &Deal{
		ID:              fmt.Sprintf("deal_%s_%s", product.ASIN, now.Format("20060102")),
		Title:           product.Title,
		ImageURL:        product.ImageURL,
		Price:           *product.CurrentPrice,
		OriginalPrice:   product.ListPrice,
		DiscountPercent: product.DiscountPercent,
		Category:        category,
		Description:     description,
		AffiliateURL:    product.AffiliateURL(partnerTag, marketplace),
		Featured:        product.DiscountPercent != nil && *product.DiscountPercent >= FeaturedDiscountThreshold,
		DateAdded:       now.Format(time.RFC3339),
		DataSource:      product.Source,
		ASIN:            product.ASIN,
	}

	if err := deal.Validate(); err != nil {
		return nil, err
	}
	return deal, nil
}

// Validate checks the invariants every persisted deal must satisfy.
func (d *Deal) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidDeal)
	}
	if d.Title == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidDeal)
	}
	if d.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalidDeal)
	}
	if d.DiscountPercent != nil && (*d.DiscountPercent < 0 || *d.DiscountPercent > 100) {
		return fmt.Errorf("%w: discount out of range", ErrInvalidDeal)
	}
	if !validHTTPURL(d.AffiliateURL) {
		return fmt.Errorf("%w: invalid affiliate URL %q", ErrInvalidDeal, d.AffiliateURL)
	}
	if d.ImageURL != "" && !validHTTPURL(d.ImageURL) {
		return fmt.Errorf("%w: invalid image URL %q", ErrInvalidDeal, d.ImageURL)
	}
	if !ValidASIN(d.ASIN) {
		return fmt.Errorf("%w: invalid ASIN %q", ErrInvalidDeal, d.ASIN)
	}
	return nil
}

func validHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
