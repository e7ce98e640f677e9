package provider

import (
	"fmt"
	"sort"
	"strings"

	"remit-scout/quotes/types"

	"github.com/shopspring/decimal"
)

// parseDecimal parses a provider-reported numeric string with locale-neutral
// rules: commas are thousand separators and are stripped, the decimal point
// is ".". Currency symbols and surrounding whitespace are tolerated.
func parseDecimal(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimLeft(cleaned, "$£€₹ ")
	if cleaned == "" {
		return decimal.Decimal{}, fmt.Errorf("empty decimal string")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to parse decimal %q: %w", s, err)
	}
	return d, nil
}

func decPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

func intPtr(i int) *int {
	return &i
}

// RateTier is one amount band of a tiered exchange rate.
type RateTier struct {
	Min  decimal.Decimal
	Max  decimal.Decimal
	Rate decimal.Decimal
}

// selectTier picks the tier whose [min, max] band contains amount. Ties are
// broken by preferring the lower min.
func selectTier(tiers []RateTier, amount decimal.Decimal) (RateTier, bool) {
	var (
		best  RateTier
		found bool
	)
	for _, tier := range tiers {
		if amount.LessThan(tier.Min) || amount.GreaterThan(tier.Max) {
			continue
		}
		if !found || tier.Min.LessThan(best.Min) {
			best = tier
			found = true
		}
	}
	return best, found
}

// PriceOption is one payment x delivery combination offered by a provider
// for a single corridor and amount.
type PriceOption struct {
	PaymentMethod       string
	DeliveryMethod      string
	Fee                 decimal.Decimal
	DestinationAmount   decimal.Decimal
	ExchangeRate        *decimal.Decimal
	DeliveryTimeMinutes *int
	Default             bool
}

// pickPrimaryOption selects the single option reported on the quote: the
// provider-marked default when present, otherwise the lowest fee, breaking
// ties by fastest delivery and then by the lexicographically least
// (payment_method, delivery_method) pair.
func pickPrimaryOption(options []PriceOption) (PriceOption, bool) {
	if len(options) == 0 {
		return PriceOption{}, false
	}
	for _, opt := range options {
		if opt.Default {
			return opt, true
		}
	}

	sorted := make([]PriceOption, len(options))
	copy(sorted, options)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.Fee.Equal(b.Fee) {
			return a.Fee.LessThan(b.Fee)
		}
		am, bm := deliveryOrMax(a.DeliveryTimeMinutes), deliveryOrMax(b.DeliveryTimeMinutes)
		if am != bm {
			return am < bm
		}
		if a.PaymentMethod != b.PaymentMethod {
			return a.PaymentMethod < b.PaymentMethod
		}
		return a.DeliveryMethod < b.DeliveryMethod
	})
	return sorted[0], true
}

func deliveryOrMax(minutes *int) int {
	if minutes == nil {
		return int(^uint(0) >> 1)
	}
	return *minutes
}

// deliveryTextTable maps the common free-text delivery estimates returned by
// provider APIs to minutes. Adapter-specific patterns extend this locally.
var deliveryTextTable = map[string]int{
	"instant":         10,
	"minutes":         10,
	"within minutes":  10,
	"same day":        480,
	"within 24 hours": 1440,
	"next day":        1440,
	"1 business day":  1440,
	"2 business days": 2880,
	"3 business days": 4320,
	"5 business days": 7200,
}

// estimateDeliveryMinutes translates a free-text delivery estimate.
// Returns nil when the text is not in the closed table.
func estimateDeliveryMinutes(text string) *int {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if minutes, ok := deliveryTextTable[normalized]; ok {
		return intPtr(minutes)
	}
	return nil
}

// rawSuccess assembles a successful RawResult from the parts adapters
// produce; it exists so the per-provider files stay focused on payload
// mapping.
func rawSuccess(
	id string,
	req types.QuoteRequest,
	destCcy string,
	destAmount decimal.Decimal,
	rate *decimal.Decimal,
	fee *decimal.Decimal,
	opt PriceOption,
	raw []byte,
) types.RawResult {
	res := types.RawResult{
		ProviderID:          id,
		Success:             true,
		SendAmount:          req.Amount,
		SourceCurrency:      strings.ToUpper(req.SourceCurrency),
		DestinationAmount:   destAmount,
		DestinationCurrency: destCcy,
		ExchangeRate:        rate,
		Fee:                 fee,
		PaymentMethod:       opt.PaymentMethod,
		DeliveryMethod:      opt.DeliveryMethod,
		DeliveryTimeMinutes: opt.DeliveryTimeMinutes,
	}
	if req.Options.IncludeRaw {
		res.Raw = raw
	}
	return res
}
