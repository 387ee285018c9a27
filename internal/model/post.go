package model

import (
	"strings"
	"time"
)

// Post is contextual metadata about where a batch of ASINs was discovered:
// a deal post on the source feed. It is read-only input to deal creation.
type Post struct {
	ScrapedAt   time.Time
	ID          string
	Title       string
	URL         string
	Category    string
	Description string
	AmazonLinks []string
	ASINs       []string
}

// categoryKeywords maps a display category to the title keywords that
// indicate it. Checked in a fixed order so categorization is deterministic.
var categoryKeywords = []struct {
	name     string
	keywords []string
}{
	{"Electronics", []string{"electronics", "tech", "computer", "laptop", "phone", "tablet", "camera", "tv"}},
	{"Home & Garden", []string{"home", "kitchen", "garden", "furniture", "decor", "appliance"}},
	{"Clothing", []string{"clothing", "fashion", "shirt", "dress", "shoes", "jacket"}},
	{"Books", []string{"book", "novel", "kindle", "ebook", "reading"}},
	{"Toys & Games", []string{"toy", "game", "kids", "children", "play"}},
	{"Health & Beauty", []string{"health", "beauty", "skincare", "makeup", "supplement"}},
	{"Sports", []string{"sport", "fitness", "gym", "exercise", "outdoor"}},
}

// CategorizeTitle derives a deal category from a post title via keyword
// matching, defaulting to "General".
func CategorizeTitle(title string) string {
	lower := strings.ToLower(title)
	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return c.name
			}
		}
	}
	return "General"
}
