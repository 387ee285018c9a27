package pipeline

import (
	"log/slog"
	"sort"

	"github.com/savingsguru/dealflow/internal/config"
	"github.com/savingsguru/dealflow/internal/model"
)

// BuildDeals converts resolved products into catalog deals. Products are
// processed in ASIN order so runs are deterministic. A product that cannot
// form a valid deal (no price, broken fields) is dropped with a log line,
// never padded with invented values.
func BuildDeals(products map[string]*model.Product, posts map[string]*model.Post, cfg config.Config) []model.Deal {
	asins := make([]string, 0, len(products))
	for asin := range products {
		asins = append(asins, asin)
	}
	sort.Strings(asins)

	deals := make([]model.Deal, 0, len(products))
	for _, asin := range asins {
		deal, err := model.NewDeal(products[asin], cfg.PartnerTag, cfg.Marketplace, posts[asin])
		if err != nil {
			slog.Warn("Product could not form a deal", "asin", asin, "error", err)
			continue
		}
		deals = append(deals, *deal)
	}
	return deals
}

// MarkFeatured recomputes the featured flag across the whole catalog: the
// highest-discount deals at or above the threshold are featured, capped at
// maxFeatured, and everything else is unmarked. Running it after
// reconciliation keeps the flag consistent as deals age in and out.
func MarkFeatured(deals []model.Deal, threshold, maxFeatured int) int {
	discount := func(d model.Deal) int {
		if d.DiscountPercent == nil {
			return -1
		}
		return *d.DiscountPercent
	}

	order := make([]int, len(deals))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		da, db := discount(deals[order[a]]), discount(deals[order[b]])
		if da != db {
			return da > db
		}
		return deals[order[a]].ID < deals[order[b]].ID
	})

	featured := 0
	for _, idx := range order {
		if featured < maxFeatured && discount(deals[idx]) >= threshold {
			deals[idx].Featured = true
			featured++
		} else {
			deals[idx].Featured = false
		}
	}
	return featured
}
