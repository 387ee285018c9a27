package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func intp(v int) *int { return &v }

func TestValidASIN(t *testing.T) {
	tests := []struct {
		name string
		asin string
		want bool
	}{
		{name: "valid uppercase", asin: "B08N5WRWNW", want: true},
		{name: "valid lowercase", asin: "b08n5wrwnw", want: true},
		{name: "valid digits only", asin: "1234567890", want: true},
		{name: "too short", asin: "B08N5WRW", want: false},
		{name: "too long", asin: "B08N5WRWNWX", want: false},
		{name: "empty", asin: "", want: false},
		{name: "punctuation", asin: "B08N5-RWNW", want: false},
		{name: "whitespace", asin: "B08N5 RWNW", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidASIN(tt.asin))
		})
	}
}

func TestProductNormalize_DiscountDerivation(t *testing.T) {
	tests := []struct {
		current      *float64
		list         *float64
		preset       *int
		wantDiscount *int
		name         string
	}{
		{
			name:         "derives rounded discount",
			current:      f64(29.99),
			list:         f64(49.99),
			wantDiscount: intp(40),
		},
		{
			name:         "half price",
			current:      f64(20),
			list:         f64(40),
			wantDiscount: intp(50),
		},
		{
			name:         "no discount when list equals current",
			current:      f64(25),
			list:         f64(25),
			wantDiscount: nil,
		},
		{
			name:         "no discount when list below current",
			current:      f64(30),
			list:         f64(25),
			wantDiscount: nil,
		},
		{
			name:         "missing list price",
			current:      f64(30),
			wantDiscount: nil,
		},
		{
			name:         "preset discount is preserved",
			current:      f64(30),
			list:         f64(60),
			preset:       intp(17),
			wantDiscount: intp(17),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Product{
				ASIN:            "b00test001",
				Title:           "Widget",
				CurrentPrice:    tt.current,
				ListPrice:       tt.list,
				DiscountPercent: tt.preset,
			}
			p.Normalize()

			assert.Equal(t, "B00TEST001", p.ASIN, "ASIN should be upper-cased")
			if tt.wantDiscount == nil {
				assert.Nil(t, p.DiscountPercent)
			} else {
				require.NotNil(t, p.DiscountPercent)
				assert.Equal(t, *tt.wantDiscount, *p.DiscountPercent)
			}
		})
	}
}

func TestProductNormalize_Defaults(t *testing.T) {
	p := Product{
		ASIN:     "B00TEST001",
		Title:    "Widget",
		Features: []string{"a", "b", "c", "d", "e", "f", "g"},
	}
	p.Normalize()

	assert.Equal(t, "Unknown", p.Availability)
	assert.Len(t, p.Features, MaxFeatures)
	assert.False(t, p.RetrievedAt.IsZero())
}

func TestProductHasValidPrice(t *testing.T) {
	assert.False(t, (&Product{}).HasValidPrice())
	assert.False(t, (&Product{CurrentPrice: f64(0)}).HasValidPrice())
	assert.False(t, (&Product{CurrentPrice: f64(-1)}).HasValidPrice())
	assert.True(t, (&Product{CurrentPrice: f64(0.01)}).HasValidPrice())
}

func TestAffiliateURL(t *testing.T) {
	p := Product{ASIN: "B00TEST001"}

	assert.Equal(t,
		"https://www.amazon.ca/dp/B00TEST001?tag=savingsgurucc-20",
		p.AffiliateURL("savingsgurucc-20", "CA"))
	assert.Equal(t,
		"https://www.amazon.com/dp/B00TEST001?tag=mytag-20",
		p.AffiliateURL("mytag-20", "US"))
	// Unknown marketplaces fall back to the Canadian storefront.
	assert.Equal(t,
		"https://www.amazon.ca/dp/B00TEST001?tag=mytag-20",
		p.AffiliateURL("mytag-20", "XX"))
}
