package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savingsguru/dealflow/internal/common"
	"github.com/savingsguru/dealflow/internal/config"
	"github.com/savingsguru/dealflow/internal/model"
)

// stubSource is a scripted ProductSource for pipeline tests.
type stubSource struct {
	name     string
	healthy  bool
	products map[string]*model.Product
	calls    []string
}

func (s *stubSource) Resolve(_ context.Context, asin string) (*model.Product, error) {
	s.calls = append(s.calls, asin)
	if p, ok := s.products[asin]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", common.ErrNoData, asin)
}

func (s *stubSource) Name() string  { return s.name }
func (s *stubSource) Healthy() bool { return s.healthy }

func stubProduct(asin string, price float64, source model.DataSource) *model.Product {
	p := &model.Product{
		ASIN:         asin,
		Title:        "Product " + asin,
		CurrentPrice: &price,
		ImageURL:     "https://m.media-amazon.com/images/I/x.jpg",
		Source:       source,
		RetrievedAt:  time.Now().UTC(),
	}
	p.Normalize()
	return p
}

func TestResolve_PrimaryShortCircuitsFallback(t *testing.T) {
	primary := &stubSource{name: "PAAPI", healthy: true, products: map[string]*model.Product{
		"B0AAAAAAA1": stubProduct("B0AAAAAAA1", 19.99, model.SourcePAAPI),
	}}
	fallback := &stubSource{name: "SCRAPED", healthy: true}

	result := NewResolver(primary, fallback).Resolve(context.Background(), []string{"B0AAAAAAA1"})

	require.Len(t, result.Products, 1)
	assert.Empty(t, fallback.calls)
	assert.Equal(t, 1, result.Session.APICalls)
	assert.Equal(t, 0, result.Session.ScrapeCalls)
	assert.Equal(t, 1, result.Session.Succeeded)
}

func TestResolve_FallsBackWhenPrimaryFails(t *testing.T) {
	primary := &stubSource{name: "PAAPI", healthy: true}
	fallback := &stubSource{name: "SCRAPED", healthy: true, products: map[string]*model.Product{
		"B0AAAAAAA1": stubProduct("B0AAAAAAA1", 9.99, model.SourceScraped),
	}}

	result := NewResolver(primary, fallback).Resolve(context.Background(), []string{"B0AAAAAAA1"})

	require.Len(t, result.Products, 1)
	assert.Equal(t, model.SourceScraped, result.Products["B0AAAAAAA1"].Source)
	assert.Equal(t, []string{"B0AAAAAAA1"}, primary.calls)
	assert.Equal(t, []string{"B0AAAAAAA1"}, fallback.calls)
}

func TestResolve_UnhealthyPrimarySkipsStraightToFallback(t *testing.T) {
	primary := &stubSource{name: "PAAPI", healthy: false}
	fallback := &stubSource{name: "SCRAPED", healthy: true, products: map[string]*model.Product{
		"B0AAAAAAA1": stubProduct("B0AAAAAAA1", 9.99, model.SourceScraped),
	}}

	result := NewResolver(primary, fallback).Resolve(context.Background(), []string{"B0AAAAAAA1"})

	assert.Empty(t, primary.calls)
	assert.Equal(t, 0, result.Session.APICalls)
	assert.Equal(t, 1, result.Session.ScrapeCalls)
	require.Len(t, result.Products, 1)
}

func TestResolve_BothFailSkipsIdentifier(t *testing.T) {
	primary := &stubSource{name: "PAAPI", healthy: true}
	fallback := &stubSource{name: "SCRAPED", healthy: true}

	result := NewResolver(primary, fallback).Resolve(context.Background(),
		[]string{"B0AAAAAAA1", "B0AAAAAAA2"})

	assert.Empty(t, result.Products)
	assert.Equal(t, 2, result.Session.Attempted)
	assert.Equal(t, 2, result.Session.Skipped)
	assert.Len(t, result.Session.Errors, 2)
	require.Len(t, result.Resolutions, 2)
	assert.False(t, result.Resolutions[0].Resolved)
}

func TestResolve_CancellationKeepsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	primary := &stubSource{name: "PAAPI", healthy: true, products: map[string]*model.Product{
		"B0AAAAAAA1": stubProduct("B0AAAAAAA1", 19.99, model.SourcePAAPI),
	}}

	resolver := NewResolver(primary, nil)
	resolver.Progress = func(done, total int, asin string) {
		cancel()
	}

	result := resolver.Resolve(ctx, []string{"B0AAAAAAA1", "B0AAAAAAA2", "B0AAAAAAA3"})

	assert.Len(t, result.Products, 1)
	assert.Equal(t, 1, result.Session.Attempted)
	assert.False(t, result.Session.CompletedAt.IsZero())
}

func TestBuildDeals(t *testing.T) {
	cfg := config.Default()
	cfg.PartnerTag = "savingsgurucc-20"

	list := 49.99
	discounted := stubProduct("B0AAAAAAA2", 29.99, model.SourcePAAPI)
	discounted.ListPrice = &list
	discounted.Normalize()

	products := map[string]*model.Product{
		"B0AAAAAAA2": discounted,
		"B0AAAAAAA1": stubProduct("B0AAAAAAA1", 19.99, model.SourceScraped),
		"B0AAAAAAA3": {ASIN: "B0AAAAAAA3", Title: "No price at all", Source: model.SourcePAAPI},
	}
	posts := map[string]*model.Post{
		"B0AAAAAAA1": {Title: "Great kitchen find", Category: "Home & Garden", Description: "A great kitchen find"},
	}

	deals := BuildDeals(products, posts, cfg)

	require.Len(t, deals, 2)
	// ASIN order keeps output deterministic.
	assert.Equal(t, "B0AAAAAAA1", deals[0].ASIN)
	assert.Equal(t, "Home & Garden", deals[0].Category)
	assert.Equal(t, "B0AAAAAAA2", deals[1].ASIN)
	require.NotNil(t, deals[1].DiscountPercent)
	assert.Equal(t, 40, *deals[1].DiscountPercent)
	assert.Contains(t, deals[1].AffiliateURL, "tag=savingsgurucc-20")
}

func intp(v int) *int { return &v }

func TestMarkFeatured(t *testing.T) {
	deals := []model.Deal{
		{ID: "deal_a", DiscountPercent: intp(55)},
		{ID: "deal_b", DiscountPercent: intp(45), Featured: false},
		{ID: "deal_c", DiscountPercent: intp(40)},
		{ID: "deal_d", DiscountPercent: intp(39), Featured: true},
		{ID: "deal_e", DiscountPercent: nil, Featured: true},
	}

	count := MarkFeatured(deals, 40, 2)

	assert.Equal(t, 2, count)
	assert.True(t, deals[0].Featured)
	assert.True(t, deals[1].Featured)
	assert.False(t, deals[2].Featured, "cap reached before this deal")
	assert.False(t, deals[3].Featured, "below threshold loses stale flag")
	assert.False(t, deals[4].Featured, "unknown discount is never featured")
}

func TestMarkFeatured_NoEligibleDeals(t *testing.T) {
	deals := []model.Deal{
		{ID: "deal_a", DiscountPercent: intp(5), Featured: true},
	}
	assert.Zero(t, MarkFeatured(deals, 40, 20))
	assert.False(t, deals[0].Featured)
}
