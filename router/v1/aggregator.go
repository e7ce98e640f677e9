package v1

import (
	"context"

	"remit-scout/quotes"
	"remit-scout/quotes/types"
)

// Aggregator defines the aggregator interface contract that the v1 router
// depends on.
type Aggregator interface {
	GetAllQuotes(ctx context.Context, req types.QuoteRequest) types.AggregateResult
	Registry() *quotes.Registry
}
