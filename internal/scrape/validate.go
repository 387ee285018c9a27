package scrape

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/savingsguru/dealflow/internal/common"
)

// blockedIndicators are phrases Amazon's interstitial pages show when a
// request has been flagged. Their presence anywhere in the body means the
// response is not product data.
var blockedIndicators = []string{
	"captcha",
	"robot check",
	"are you a robot",
	"automated access",
	"access denied",
	"enter the characters you see below",
	"to discuss automated access",
}

// productLandmarks are elements a real product page always carries at least
// one of.
var productLandmarks = []string{
	"#productTitle",
	".a-price",
	"#availability",
}

// validatePage decides whether a 200 response actually carries a product
// page. A blocked interstitial returns common.ErrPageBlocked; a page with
// none of the product landmarks returns common.ErrNoData. An ambiguous page
// is treated as invalid rather than scraped on faith.
func validatePage(doc *goquery.Document) error {
	body := strings.ToLower(doc.Find("body").Text())
	if body == "" {
		body = strings.ToLower(doc.Text())
	}
	for _, indicator := range blockedIndicators {
		if strings.Contains(body, indicator) {
			return fmt.Errorf("%w: page contains %q", common.ErrPageBlocked, indicator)
		}
	}

	for _, landmark := range productLandmarks {
		if doc.Find(landmark).Length() > 0 {
			return nil
		}
	}
	return fmt.Errorf("%w: response is not a product page", common.ErrNoData)
}
