package types

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Corridor is an ordered (source country, destination country) pair.
	Corridor struct {
		SourceCountry string `json:"source_country"`
		DestCountry   string `json:"dest_country"`
	}

	// QuoteOptions carries the recognized per-request options.
	QuoteOptions struct {
		ForceRefresh           bool
		SortBy                 SortBy
		MaxFee                 *decimal.Decimal
		MaxDeliveryTimeMinutes *int
		IncludeProviders       []string
		ExcludeProviders       []string
		CustomPredicate        func(Quote) bool
		PerProviderTimeout     time.Duration
		MaxWorkers             int
		IncludeRaw             bool
	}

	// QuoteRequest is the canonical aggregation input. Countries are
	// ISO-3166-1 alpha-2, currencies ISO-4217, amount an exact decimal.
	QuoteRequest struct {
		SourceCountry  string          `json:"source_country"`
		DestCountry    string          `json:"dest_country"`
		SourceCurrency string          `json:"source_currency"`
		DestCurrency   string          `json:"dest_currency"`
		Amount         decimal.Decimal `json:"amount"`
		PaymentMethod  string          `json:"payment_method,omitempty"`
		DeliveryMethod string          `json:"delivery_method,omitempty"`
		Options        QuoteOptions    `json:"-"`
	}

	// RawResult is what an adapter hands back to the executor: a quote minus
	// the canonical-only fields, or a typed failure. Adapters never return Go
	// errors past their boundary.
	RawResult struct {
		ProviderID          string
		Success             bool
		ErrorKind           ErrorKind
		ErrorMessage        string
		SendAmount          decimal.Decimal
		SourceCurrency      string
		DestinationAmount   decimal.Decimal
		DestinationCurrency string

		// ExchangeRate and Fee are nil when the provider did not report
		// them. The normalizer recomputes the rate; a missing fee downgrades
		// the result to a Parsing failure.
		ExchangeRate *decimal.Decimal
		Fee          *decimal.Decimal

		PaymentMethod  string
		DeliveryMethod string

		// DeliveryTimeMinutes is nil when the provider supports the corridor
		// but gave no estimate.
		DeliveryTimeMinutes *int

		Raw json.RawMessage
	}

	// Quote is the canonical per-provider record after normalization.
	// Read-only once constructed.
	Quote struct {
		ProviderID          string           `json:"provider_id"`
		Success             bool             `json:"success"`
		ErrorKind           ErrorKind        `json:"error_kind,omitempty"`
		ErrorMessage        string           `json:"error_message,omitempty"`
		SendAmount          decimal.Decimal  `json:"send_amount"`
		SourceCurrency      string           `json:"source_currency"`
		DestinationAmount   decimal.Decimal  `json:"destination_amount"`
		DestinationCurrency string           `json:"destination_currency"`
		ExchangeRate        *decimal.Decimal `json:"exchange_rate"`
		Fee                 decimal.Decimal  `json:"fee"`
		PaymentMethod       string           `json:"payment_method"`
		DeliveryMethod      string           `json:"delivery_method"`
		DeliveryTimeMinutes *int             `json:"delivery_time_minutes"`
		Timestamp           time.Time        `json:"timestamp"`
		Raw                 json.RawMessage  `json:"raw,omitempty"`
	}

	// FiltersApplied echoes the filter set used to build the quotes list.
	FiltersApplied struct {
		SortBy                 SortBy           `json:"sort_by"`
		MaxFee                 *decimal.Decimal `json:"max_fee,omitempty"`
		MaxDeliveryTimeMinutes *int             `json:"max_delivery_time_minutes,omitempty"`
		CustomPredicate        bool             `json:"custom_predicate"`
	}

	// AggregateResult is the coordinator's response. AllProviders holds one
	// quote per queried provider in registry order, failures included;
	// Quotes is the filtered and sorted successful subsequence.
	AggregateResult struct {
		Success        bool                     `json:"success"`
		Request        QuoteRequest             `json:"request"`
		ElapsedMs      int64                    `json:"elapsed_ms"`
		CacheHit       bool                     `json:"cache_hit"`
		Timestamp      time.Time                `json:"timestamp"`
		FiltersApplied FiltersApplied           `json:"filters_applied"`
		AllProviders   []Quote                  `json:"all_providers"`
		Quotes         []Quote                  `json:"quotes"`
		Errors         map[string]ProviderError `json:"errors"`
	}
)

// String renders the corridor as "US->MX".
func (c Corridor) String() string {
	return c.SourceCountry + "->" + c.DestCountry
}

// NewRawFailure builds a failed RawResult with a typed kind.
func NewRawFailure(providerID string, kind ErrorKind, msg string) RawResult {
	return RawResult{
		ProviderID:   providerID,
		Success:      false,
		ErrorKind:    kind,
		ErrorMessage: msg,
	}
}

// FailedAggregate builds a failed AggregateResult with a single request-level
// error entry.
func FailedAggregate(req QuoteRequest, kind ErrorKind, msg string, now time.Time) AggregateResult {
	return AggregateResult{
		Success:   false,
		Request:   req,
		Timestamp: now.UTC(),
		Errors: map[string]ProviderError{
			"request": {ErrorKind: kind, ErrorMessage: msg},
		},
	}
}

// FailedQuote builds the canonical failed Quote for a provider, used both by
// the normalizer and by the executor for timeouts and panics.
func FailedQuote(providerID string, kind ErrorKind, msg string, req QuoteRequest, now time.Time) Quote {
	return Quote{
		ProviderID:          providerID,
		Success:             false,
		ErrorKind:           kind,
		ErrorMessage:        msg,
		SendAmount:          req.Amount,
		SourceCurrency:      req.SourceCurrency,
		DestinationAmount:   decimal.Zero,
		DestinationCurrency: req.DestCurrency,
		Fee:                 decimal.Zero,
		PaymentMethod:       PaymentUnknown,
		DeliveryMethod:      DeliveryUnknown,
		Timestamp:           now.UTC(),
	}
}
