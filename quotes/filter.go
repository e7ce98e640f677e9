package quotes

import (
	"sort"

	"remit-scout/quotes/types"

	"github.com/shopspring/decimal"
)

// ApplyFilters reduces the normalized quote list to the successful quotes
// passing the request's filters, then stable-sorts them by the requested
// criterion. The input slice is not modified.
func ApplyFilters(quotes []types.Quote, opts types.QuoteOptions) []types.Quote {
	kept := make([]types.Quote, 0, len(quotes))
	for _, q := range quotes {
		if !q.Success {
			continue
		}
		if opts.MaxFee != nil && q.Fee.GreaterThan(*opts.MaxFee) {
			continue
		}
		if opts.MaxDeliveryTimeMinutes != nil {
			// Quotes without a delivery estimate cannot satisfy the limit.
			if q.DeliveryTimeMinutes == nil || *q.DeliveryTimeMinutes > *opts.MaxDeliveryTimeMinutes {
				continue
			}
		}
		if opts.CustomPredicate != nil && !opts.CustomPredicate(q) {
			continue
		}
		kept = append(kept, q)
	}

	sortQuotes(kept, opts.SortBy)
	return kept
}

// AppliedFilters echoes the filter set in effect for a request.
func AppliedFilters(opts types.QuoteOptions) types.FiltersApplied {
	sortBy := opts.SortBy
	if !types.ValidSortBy(sortBy) {
		sortBy = types.SortBestRate
	}
	return types.FiltersApplied{
		SortBy:                 sortBy,
		MaxFee:                 opts.MaxFee,
		MaxDeliveryTimeMinutes: opts.MaxDeliveryTimeMinutes,
		CustomPredicate:        opts.CustomPredicate != nil,
	}
}

func sortQuotes(quotes []types.Quote, sortBy types.SortBy) {
	var less func(a, b types.Quote) bool
	switch sortBy {
	case types.SortLowestFee:
		less = lessByFee
	case types.SortFastestTime:
		less = lessByDelivery
	case types.SortBestValue:
		less = lessByValue
	default:
		less = lessByRate
	}
	sort.SliceStable(quotes, func(i, j int) bool {
		return less(quotes[i], quotes[j])
	})
}

// lessByRate orders by descending rate, then ascending fee, then ascending
// delivery time, then provider id.
func lessByRate(a, b types.Quote) bool {
	if cmp := rateOf(a).Cmp(rateOf(b)); cmp != 0 {
		return cmp > 0
	}
	if cmp := a.Fee.Cmp(b.Fee); cmp != 0 {
		return cmp < 0
	}
	if cmp := compareDelivery(a.DeliveryTimeMinutes, b.DeliveryTimeMinutes); cmp != 0 {
		return cmp < 0
	}
	return a.ProviderID < b.ProviderID
}

// lessByFee orders by ascending fee, then descending rate, then ascending
// delivery time, then provider id.
func lessByFee(a, b types.Quote) bool {
	if cmp := a.Fee.Cmp(b.Fee); cmp != 0 {
		return cmp < 0
	}
	if cmp := rateOf(a).Cmp(rateOf(b)); cmp != 0 {
		return cmp > 0
	}
	if cmp := compareDelivery(a.DeliveryTimeMinutes, b.DeliveryTimeMinutes); cmp != 0 {
		return cmp < 0
	}
	return a.ProviderID < b.ProviderID
}

// lessByDelivery orders by ascending delivery time with unknown estimates
// last; equal delivery times fall back to the lowest-fee ordering.
func lessByDelivery(a, b types.Quote) bool {
	if cmp := compareDelivery(a.DeliveryTimeMinutes, b.DeliveryTimeMinutes); cmp != 0 {
		return cmp < 0
	}
	return lessByFee(a, b)
}

// lessByValue orders by descending effective receive amount: the destination
// amount minus the fee converted into destination currency at the quote's
// rate.
func lessByValue(a, b types.Quote) bool {
	if cmp := effectiveValue(a).Cmp(effectiveValue(b)); cmp != 0 {
		return cmp > 0
	}
	return lessByRate(a, b)
}

func effectiveValue(q types.Quote) decimal.Decimal {
	return q.DestinationAmount.Sub(q.Fee.Mul(rateOf(q)))
}

func rateOf(q types.Quote) decimal.Decimal {
	if q.ExchangeRate != nil {
		return *q.ExchangeRate
	}
	if q.SendAmount.IsPositive() {
		return q.DestinationAmount.DivRound(q.SendAmount, rateScale)
	}
	return decimal.Zero
}

// compareDelivery treats nil as slower than any estimate.
func compareDelivery(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	default:
		return 0
	}
}
