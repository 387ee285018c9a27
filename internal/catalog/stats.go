package catalog

import "github.com/savingsguru/dealflow/internal/model"

// Summary describes the shape of a catalog for reporting.
type Summary struct {
	ByCategory  map[string]int
	BySource    map[string]int
	Total       int
	Featured    int
	AvgDiscount float64
	MaxDiscount int
}

// Summarize computes catalog-wide statistics. Discount figures cover only
// deals with a known discount.
func Summarize(deals []model.Deal) Summary {
	s := Summary{
		Total:      len(deals),
		ByCategory: make(map[string]int),
		BySource:   make(map[string]int),
	}

	sum, known := 0, 0
	for _, deal := range deals {
		if deal.Featured {
			s.Featured++
		}
		s.ByCategory[deal.Category]++
		s.BySource[string(deal.DataSource)]++
		if deal.DiscountPercent != nil {
			known++
			sum += *deal.DiscountPercent
			if *deal.DiscountPercent > s.MaxDiscount {
				s.MaxDiscount = *deal.DiscountPercent
			}
		}
	}
	if known > 0 {
		s.AvgDiscount = float64(sum) / float64(known)
	}
	return s
}
