package scrape

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/savingsguru/dealflow/internal/common"
	"github.com/savingsguru/dealflow/internal/model"
)

const (
	minTitleLength     = 5
	maxTitleLength     = 200
	maxAvailability    = 100
	maxFeatureTextSize = 300
)

// Selector lists are ordered by reliability; the first match wins. Amazon
// serves several page layouts, so each field carries fallbacks.
var (
	titleSelectors = []string{
		"#productTitle",
		"#title span",
		"h1.a-size-large span",
	}
	priceSelectors = []string{
		"span.a-price:not(.a-text-price) span.a-offscreen",
		"#corePrice_feature_div span.a-offscreen",
		"#priceblock_ourprice",
		"#priceblock_dealprice",
		"#priceblock_saleprice",
	}
	listPriceSelectors = []string{
		"span.a-price.a-text-price span.a-offscreen",
		"#priceblock_listprice",
		".priceBlockStrikePriceString",
		"span.basisPrice span.a-offscreen",
	}
	imageSelectors = []string{
		"#landingImage",
		"#imgBlkFront",
		"#main-image",
		"#ebooksImgBlkFront",
	}
	availabilitySelectors = []string{
		"#availability span",
		"#availability",
		"#outOfStock .a-color-price",
	}
	brandSelectors = []string{
		"#bylineInfo",
		"a#brand",
		"#brand",
	}
	featureSelectors = []string{
		"#feature-bullets li span.a-list-item",
		"#productFactsDesktopExpander li span.a-list-item",
	}
)

var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`CDN\$\s*([\d,]+\.?\d*)`),
	regexp.MustCompile(`\$\s*([\d,]+\.?\d*)`),
	regexp.MustCompile(`([\d,]+\.\d{2})`),
}

// extractProduct pulls product fields out of a validated page. Title and
// current price are required; everything else is included only when the
// page shows it.
func extractProduct(doc *goquery.Document, asin string) (*model.Product, error) {
	title := firstText(doc, titleSelectors)
	if len(title) < minTitleLength {
		return nil, fmt.Errorf("%w: no usable title for %s", common.ErrNoData, asin)
	}
	if len(title) > maxTitleLength {
		title = strings.TrimSpace(title[:maxTitleLength])
	}

	product := &model.Product{
		ASIN:        asin,
		Title:       title,
		Source:      model.SourceScraped,
		RetrievedAt: time.Now().UTC(),
	}

	if v, ok := extractPrice(doc, priceSelectors); ok {
		product.CurrentPrice = &v
	}
	if product.CurrentPrice == nil {
		return nil, fmt.Errorf("%w: no price on page for %s", common.ErrNoData, asin)
	}

	if v, ok := extractPrice(doc, listPriceSelectors); ok && v > *product.CurrentPrice {
		product.ListPrice = &v
	}

	product.ImageURL = extractImage(doc)

	if avail := firstText(doc, availabilitySelectors); avail != "" {
		if len(avail) > maxAvailability {
			avail = strings.TrimSpace(avail[:maxAvailability])
		}
		product.Availability = avail
	}

	if brand := firstText(doc, brandSelectors); brand != "" {
		product.Brand = cleanBrand(brand)
	}

	product.Features = extractFeatures(doc)

	product.Normalize()
	return product, nil
}

// firstText returns the trimmed text of the first selector that matches a
// non-empty element.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if text != "" {
			return collapseSpace(text)
		}
	}
	return ""
}

func extractPrice(doc *goquery.Document, selectors []string) (float64, bool) {
	for _, sel := range selectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if text == "" {
			continue
		}
		if v, ok := parsePriceText(text); ok {
			return v, true
		}
	}
	return 0, false
}

// parsePriceText matches the localized price patterns in order and parses
// the first capture.
func parsePriceText(text string) (float64, bool) {
	for _, pattern := range pricePatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		raw := strings.ReplaceAll(m[1], ",", "")
		v, err := strconv.ParseFloat(raw, 64)
		if err == nil && v > 0 {
			return v, true
		}
	}
	return 0, false
}

func extractImage(doc *goquery.Document) string {
	for _, sel := range imageSelectors {
		node := doc.Find(sel).First()
		for _, attr := range []string{"data-old-hires", "src"} {
			if url, ok := node.Attr(attr); ok {
				url = strings.TrimSpace(url)
				if strings.HasPrefix(url, "https://") {
					return url
				}
			}
		}
	}
	return ""
}

func extractFeatures(doc *goquery.Document) []string {
	var features []string
	for _, sel := range featureSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if len(features) >= model.MaxFeatures {
				return
			}
			text := collapseSpace(strings.TrimSpace(s.Text()))
			if text == "" || len(text) > maxFeatureTextSize {
				return
			}
			features = append(features, text)
		})
		if len(features) > 0 {
			break
		}
	}
	return features
}

// cleanBrand strips the byline boilerplate ("Visit the Sony Store",
// "Brand: Sony") down to the brand name.
func cleanBrand(text string) string {
	text = strings.TrimSpace(strings.TrimPrefix(text, "Brand:"))
	text = strings.TrimPrefix(text, "Visit the ")
	text = strings.TrimSuffix(text, " Store")
	return strings.TrimSpace(text)
}

var spaceRun = regexp.MustCompile(`\s+`)

func collapseSpace(s string) string {
	return spaceRun.ReplaceAllString(s, " ")
}
