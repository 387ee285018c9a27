package paapi

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/savingsguru/dealflow/internal/common"
	"github.com/savingsguru/dealflow/internal/model"
)

// defaultResources are the PA-API resources requested for every lookup.
var defaultResources = []string{
	"ItemInfo.Title",
	"ItemInfo.Features",
	"ItemInfo.ByLineInfo",
	"Offers.Listings.Price",
	"Offers.Listings.SavingBasis",
	"Offers.Listings.Availability.Message",
	"Images.Primary.Large",
	"Images.Primary.Medium",
	"Images.Primary.Small",
}

type getItemsRequest struct {
	PartnerTag  string   `json:"PartnerTag"`
	PartnerType string   `json:"PartnerType"`
	Marketplace string   `json:"Marketplace"`
	ItemIDs     []string `json:"ItemIds"`
	Resources   []string `json:"Resources"`
}

type getItemsResponse struct {
	ItemsResult struct {
		Items []item `json:"Items"`
	} `json:"ItemsResult"`
	Errors []apiError `json:"Errors"`
}

type apiError struct {
	Code    string `json:"Code"`
	Message string `json:"Message"`
}

type item struct {
	ASIN     string    `json:"ASIN"`
	ItemInfo *itemInfo `json:"ItemInfo"`
	Offers   *offers   `json:"Offers"`
	Images   *images   `json:"Images"`
}

type itemInfo struct {
	Title *struct {
		DisplayValue string `json:"DisplayValue"`
	} `json:"Title"`
	Features *struct {
		DisplayValues []string `json:"DisplayValues"`
	} `json:"Features"`
	ByLineInfo *struct {
		Brand *struct {
			DisplayValue string `json:"DisplayValue"`
		} `json:"Brand"`
	} `json:"ByLineInfo"`
}

type offers struct {
	Listings []listing `json:"Listings"`
}

type listing struct {
	Price        *price `json:"Price"`
	SavingBasis  *price `json:"SavingBasis"`
	Availability *struct {
		Message string `json:"Message"`
	} `json:"Availability"`
}

type price struct {
	Amount       *float64 `json:"Amount"`
	DisplayValue string   `json:"DisplayValue"`
}

type images struct {
	Primary *struct {
		Large  *imageRef `json:"Large"`
		Medium *imageRef `json:"Medium"`
		Small  *imageRef `json:"Small"`
	} `json:"Primary"`
}

type imageRef struct {
	URL string `json:"URL"`
}

// parseGetItemsResponse converts a GetItems payload into a Product. Only
// values actually present in the response make it into the result; a payload
// without the requested item, a title, or any price yields common.ErrNoData.
func parseGetItemsResponse(payload []byte, asin string) (*model.Product, error) {
	var resp getItemsResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", common.ErrNoData, err)
	}

	if len(resp.ItemsResult.Items) == 0 {
		if len(resp.Errors) > 0 {
			return nil, fmt.Errorf("%w: %s: %s", common.ErrNoData, resp.Errors[0].Code, resp.Errors[0].Message)
		}
		return nil, fmt.Errorf("%w: item %s not in response", common.ErrNoData, asin)
	}

	it := resp.ItemsResult.Items[0]
	product := &model.Product{
		ASIN:        asin,
		Source:      model.SourcePAAPI,
		RetrievedAt: time.Now().UTC(),
	}
	if it.ASIN != "" {
		product.ASIN = it.ASIN
	}

	if it.ItemInfo != nil {
		if it.ItemInfo.Title != nil {
			product.Title = strings.TrimSpace(it.ItemInfo.Title.DisplayValue)
		}
		if it.ItemInfo.Features != nil {
			product.Features = it.ItemInfo.Features.DisplayValues
		}
		if it.ItemInfo.ByLineInfo != nil && it.ItemInfo.ByLineInfo.Brand != nil {
			product.Brand = strings.TrimSpace(it.ItemInfo.ByLineInfo.Brand.DisplayValue)
		}
	}
	if product.Title == "" {
		return nil, fmt.Errorf("%w: item %s has no title", common.ErrNoData, asin)
	}

	if it.Offers != nil && len(it.Offers.Listings) > 0 {
		l := it.Offers.Listings[0]
		if l.Price != nil {
			product.CurrentPrice = priceAmount(l.Price)
		}
		if l.SavingBasis != nil {
			product.ListPrice = priceAmount(l.SavingBasis)
		}
		if l.Availability != nil {
			product.Availability = strings.TrimSpace(l.Availability.Message)
		}
	}
	if product.CurrentPrice == nil {
		return nil, fmt.Errorf("%w: item %s has no price", common.ErrNoData, asin)
	}

	if it.Images != nil && it.Images.Primary != nil {
		for _, ref := range []*imageRef{it.Images.Primary.Large, it.Images.Primary.Medium, it.Images.Primary.Small} {
			if ref != nil && ref.URL != "" {
				product.ImageURL = ref.URL
				break
			}
		}
	}

	product.Normalize()
	return product, nil
}

// priceAmount prefers the numeric Amount field and falls back to parsing the
// localized DisplayValue ("CDN$ 29.99", "$1,299.00"). A non-positive amount
// is no price at all.
func priceAmount(p *price) *float64 {
	if p.Amount != nil && *p.Amount > 0 {
		return p.Amount
	}
	if v, ok := parseDisplayPrice(p.DisplayValue); ok {
		return &v
	}
	return nil
}

func parseDisplayPrice(s string) (float64, bool) {
	cleaned := strings.TrimSpace(s)
	for _, prefix := range []string{"CDN$", "CAD", "US$", "USD", "$"} {
		cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, prefix))
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
