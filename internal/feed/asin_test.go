package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractASIN(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
		ok   bool
	}{
		{
			name: "dp path",
			url:  "https://www.amazon.ca/dp/B0EXAMPLE1",
			want: "B0EXAMPLE1",
			ok:   true,
		},
		{
			name: "dp path with slug and query",
			url:  "https://www.amazon.ca/Instant-Pot-Duo/dp/B0EXAMPLE1/ref=sr_1_1?keywords=pot",
			want: "B0EXAMPLE1",
			ok:   true,
		},
		{
			name: "gp product path",
			url:  "https://www.amazon.ca/gp/product/B0EXAMPLE2?tag=x-20",
			want: "B0EXAMPLE2",
			ok:   true,
		},
		{
			name: "asin query parameter",
			url:  "https://www.amazon.ca/gp/offer-listing?asin=B0EXAMPLE3",
			want: "B0EXAMPLE3",
			ok:   true,
		},
		{
			name: "lowercase asin in url",
			url:  "https://www.amazon.ca/dp/b0example1",
			want: "B0EXAMPLE1",
			ok:   true,
		},
		{
			name: "short link has no asin",
			url:  "https://amzn.to/3xYzAbC",
			ok:   false,
		},
		{
			name: "search page",
			url:  "https://www.amazon.ca/s?k=pressure+cooker",
			ok:   false,
		},
		{
			name: "asin too short",
			url:  "https://www.amazon.ca/dp/B0SHORT",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractASIN(tt.url)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestUniqueASINs(t *testing.T) {
	urls := []string{
		"https://www.amazon.ca/dp/B0EXAMPLE1",
		"https://amzn.to/3xYzAbC",
		"https://www.amazon.ca/gp/product/B0EXAMPLE2",
		"https://www.amazon.ca/dp/B0EXAMPLE1?ref=twice",
	}

	assert.Equal(t, []string{"B0EXAMPLE1", "B0EXAMPLE2"}, UniqueASINs(urls))
}
