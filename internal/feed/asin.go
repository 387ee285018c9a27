// Package feed discovers deal candidates from the SavingsGuru blog: it
// walks the post listing pages, collects Amazon links, and extracts ASINs.
package feed

import (
	"regexp"
	"strings"
)

// asinPatterns match the URL shapes Amazon uses for product links, most
// specific first.
var asinPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/dp/([A-Z0-9]{10})(?:[/?]|$)`),
	regexp.MustCompile(`(?i)/gp/product/([A-Z0-9]{10})(?:[/?]|$)`),
	regexp.MustCompile(`(?i)/product/([A-Z0-9]{10})(?:[/?]|$)`),
	regexp.MustCompile(`(?i)[?&]asin=([A-Z0-9]{10})(?:[&#]|$)`),
}

// ExtractASIN pulls the ASIN out of an Amazon product URL. Shortened links
// (amzn.to) carry no ASIN in the URL itself and are reported as not found.
func ExtractASIN(rawURL string) (string, bool) {
	candidate := strings.TrimSpace(rawURL)
	for _, pattern := range asinPatterns {
		if m := pattern.FindStringSubmatch(candidate); m != nil {
			return strings.ToUpper(m[1]), true
		}
	}
	return "", false
}

// UniqueASINs extracts ASINs from a list of URLs, preserving first-seen
// order and dropping duplicates.
func UniqueASINs(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	var asins []string
	for _, u := range urls {
		asin, ok := ExtractASIN(u)
		if !ok || seen[asin] {
			continue
		}
		seen[asin] = true
		asins = append(asins, asin)
	}
	return asins
}
