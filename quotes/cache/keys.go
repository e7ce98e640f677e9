package cache

import (
	"fmt"
	"strings"

	"remit-scout/quotes/types"
)

const (
	quotePrefix    = "v1:fee:"
	corridorPrefix = "corridor:"
	providerPrefix = "provider:"
)

// QuoteKey builds the quote-namespace key for a request. The amount is
// rendered as integer micro-units so equal decimals always map to the same
// key regardless of their textual form.
func QuoteKey(req types.QuoteRequest) string {
	micro := req.Amount.Shift(6).Truncate(0)
	return fmt.Sprintf("%s%s:%s:%s:%s:%s",
		quotePrefix,
		strings.ToUpper(req.SourceCountry),
		strings.ToUpper(req.DestCountry),
		strings.ToUpper(req.SourceCurrency),
		strings.ToUpper(req.DestCurrency),
		micro.String(),
	)
}

// CorridorQuotePrefix is the quote-namespace prefix shared by every amount
// and currency pair on one corridor.
func CorridorQuotePrefix(srcCountry, dstCountry string) string {
	return fmt.Sprintf("%s%s:%s:", quotePrefix,
		strings.ToUpper(srcCountry), strings.ToUpper(dstCountry))
}

// CorridorKey builds the corridor-support key.
func CorridorKey(srcCountry, dstCountry string) string {
	return fmt.Sprintf("%s%s:%s", corridorPrefix,
		strings.ToUpper(srcCountry), strings.ToUpper(dstCountry))
}

// ProviderKey builds the provider-metadata key.
func ProviderKey(providerID string) string {
	return providerPrefix + providerID
}
