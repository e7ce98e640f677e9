package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"remit-scout/quotes/types"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	rewireRestHost  = "https://api.rewire.to"
	rewireRatesPath = "/services/rates/v3/jsonp"
	rewireWebOrigin = "https://www.rewire.com"
)

var _ Adapter = (*RewireProvider)(nil)

type (
	// RewireProvider integrates Rewire's public rates feed. One GET returns
	// the full table keyed by sending country, each entry mapping a payout
	// currency to buy/sell rates; the sell rate is the send-currency price of
	// one payout unit. Rewire's pricing endpoint is unavailable, so fees come
	// from the published flat schedule per send currency.
	RewireProvider struct {
		ctx       Context
		client    *http.Client
		logger    zerolog.Logger
		endpoints Endpoint
	}

	rewireRate struct {
		Buy  decimal.Decimal `json:"buy"`
		Sell decimal.Decimal `json:"sell"`
	}

	rewireRatesResponse struct {
		ID        string                           `json:"id"`
		Timestamp int64                            `json:"timestamp"`
		Rates     map[string]map[string]rewireRate `json:"rates"`
	}
)

// rewireFees is the flat fee schedule per send currency, keyed by payout
// currency with a per-currency fallback.
var rewireFees = map[string]map[string]decimal.Decimal{
	"ILS": {
		"PHP":     decimal.NewFromInt(5),
		"INR":     decimal.NewFromInt(5),
		"NGN":     decimal.NewFromInt(10),
		"CNY":     decimal.NewFromInt(10),
		"default": decimal.NewFromInt(5),
	},
	"GBP": {
		"PHP":     decimal.NewFromInt(2),
		"INR":     decimal.NewFromInt(2),
		"default": decimal.NewFromInt(2),
	},
	"EUR": {
		"PHP":     decimal.NewFromFloat(2.5),
		"INR":     decimal.NewFromFloat(2.5),
		"default": decimal.NewFromFloat(2.5),
	},
	"USD": {
		"default": decimal.NewFromInt(3),
	},
}

func NewRewireProvider(pctx Context, endpoints Endpoint) *RewireProvider {
	if endpoints.Rest == "" {
		endpoints = Endpoint{Name: ProviderRewire, Rest: rewireRestHost}
	}
	return &RewireProvider{
		ctx:       pctx,
		client:    pctx.HTTPClient(defaultTimeout),
		logger:    pctx.Logger.With().Str("provider", ProviderRewire.String()).Logger(),
		endpoints: endpoints,
	}
}

func (p *RewireProvider) ID() string {
	return ProviderRewire.String()
}

func (p *RewireProvider) DisplayName() string {
	return "Rewire"
}

func (p *RewireProvider) Quote(ctx context.Context, req types.QuoteRequest) types.RawResult {
	id := p.ID()

	srcCountry := strings.ToUpper(req.SourceCountry)
	destCcy, ok := destCurrency(p.ctx, req)
	if !ok {
		return types.NewRawFailure(id, types.ErrInvalidParameter,
			fmt.Sprintf("no currency known for destination %s", req.DestCountry))
	}

	headers := map[string]string{
		"Origin":  rewireWebOrigin,
		"Referer": rewireWebOrigin + "/",
	}

	var rates rewireRatesResponse
	raw, err := getJSON(ctx, p.client, p.endpoints.Rest+rewireRatesPath, headers, &rates)
	if err != nil {
		return failureFromError(id, ctx, err)
	}
	if len(rates.Rates) == 0 {
		return types.NewRawFailure(id, types.ErrParsing, "rewire rates payload carries no rates")
	}

	countryRates, ok := rates.Rates[srcCountry]
	if !ok {
		return types.NewRawFailure(id, types.ErrUnsupportedCorridor,
			fmt.Sprintf("rewire does not serve sends from %s", srcCountry))
	}
	entry, ok := countryRates[destCcy]
	if !ok {
		return types.NewRawFailure(id, types.ErrUnsupportedCorridor,
			fmt.Sprintf("rewire does not pay out %s from %s", destCcy, srcCountry))
	}
	if !entry.Sell.IsPositive() {
		return types.NewRawFailure(id, types.ErrProviderAPI,
			fmt.Sprintf("rewire sell rate for %s->%s is not positive", srcCountry, destCcy))
	}

	// Sell is the send-currency cost of one payout unit.
	rate := decimal.NewFromInt(1).Div(entry.Sell)
	receive := req.Amount.Div(entry.Sell)
	fee := rewireFee(strings.ToUpper(req.SourceCurrency), destCcy)

	opt := PriceOption{
		PaymentMethod:  types.PaymentBankAccount,
		DeliveryMethod: types.DeliveryBankDeposit,
		Fee:            fee,
	}
	return rawSuccess(id, req, destCcy, receive, decPtr(rate), decPtr(fee), opt, raw)
}

func rewireFee(srcCcy, destCcy string) decimal.Decimal {
	schedule, ok := rewireFees[srcCcy]
	if !ok {
		return decimal.Zero
	}
	if fee, ok := schedule[destCcy]; ok {
		return fee
	}
	return schedule["default"]
}
