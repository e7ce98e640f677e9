package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"remit-scout/quotes/types"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	sendwaveRestHost    = "https://app.sendwave.com"
	sendwavePricingPath = "/v2/pricing-public"
)

var _ Adapter = (*SendwaveProvider)(nil)

type (
	// SendwaveProvider integrates the Sendwave public pricing API. Sendwave
	// is mobile-wallet-first with zero or near-zero fees; the effective rate
	// already folds in any running campaign, and corridors are segmented by
	// payout channel, ex. "ph_gcash".
	SendwaveProvider struct {
		ctx       Context
		client    *http.Client
		logger    zerolog.Logger
		endpoints Endpoint
	}

	sendwavePricing struct {
		EffectiveExchangeRate string `json:"effectiveExchangeRate"`
		EffectiveFeeAmount    string `json:"effectiveFeeAmount"`
		EffectiveSendAmount   string `json:"effectiveSendAmount"`
	}
)

// sendwaveSegments maps destination countries to the default payout segment.
var sendwaveSegments = map[string]string{
	"PH": "ph_gcash",
	"KE": "ke_mpesa",
	"GH": "gh_momo",
	"UG": "ug_mtn",
	"TZ": "tz_mpesa",
	"SN": "sn_wave",
	"CI": "ci_wave",
	"BD": "bd_bkash",
	"LK": "lk_bank",
	"NG": "ng_bank",
}

// sendwaveSourceCurrencies is the accepted send-side set.
var sendwaveSourceCurrencies = map[string]bool{
	"USD": true, "GBP": true, "EUR": true, "CAD": true,
}

func NewSendwaveProvider(pctx Context, endpoints Endpoint) *SendwaveProvider {
	if endpoints.Rest == "" {
		endpoints = Endpoint{Name: ProviderSendwave, Rest: sendwaveRestHost}
	}
	return &SendwaveProvider{
		ctx:       pctx,
		client:    pctx.HTTPClient(defaultTimeout),
		logger:    pctx.Logger.With().Str("provider", ProviderSendwave.String()).Logger(),
		endpoints: endpoints,
	}
}

func (p *SendwaveProvider) ID() string {
	return ProviderSendwave.String()
}

func (p *SendwaveProvider) DisplayName() string {
	return "Sendwave"
}

func (p *SendwaveProvider) SupportedCorridors() []types.Corridor {
	corridors := make([]types.Corridor, 0, len(sendwaveSegments)*2)
	for dest := range sendwaveSegments {
		corridors = append(corridors,
			types.Corridor{SourceCountry: "US", DestCountry: dest},
			types.Corridor{SourceCountry: "GB", DestCountry: dest},
		)
	}
	return corridors
}

func (p *SendwaveProvider) Quote(ctx context.Context, req types.QuoteRequest) types.RawResult {
	id := p.ID()

	srcCcy := strings.ToUpper(req.SourceCurrency)
	if !sendwaveSourceCurrencies[srcCcy] {
		return types.NewRawFailure(id, types.ErrUnsupportedCorridor,
			fmt.Sprintf("sendwave does not accept %s", srcCcy))
	}
	segment, ok := sendwaveSegments[req.DestCountry]
	if !ok {
		return types.NewRawFailure(id, types.ErrUnsupportedCorridor,
			fmt.Sprintf("sendwave does not serve destination %s", req.DestCountry))
	}
	destCcy, ok := destCurrency(p.ctx, req)
	if !ok {
		return types.NewRawFailure(id, types.ErrInvalidParameter,
			fmt.Sprintf("no currency known for destination %s", req.DestCountry))
	}

	values := url.Values{}
	values.Set("amountType", "SEND")
	values.Set("receiveCurrency", destCcy)
	values.Set("segmentName", segment)
	values.Set("amount", req.Amount.String())
	values.Set("sendCurrency", srcCcy)
	values.Set("sendCountryIso2", strings.ToLower(req.SourceCountry))
	values.Set("receiveCountryIso2", strings.ToLower(req.DestCountry))

	var pricing sendwavePricing
	raw, err := getJSON(ctx, p.client, p.endpoints.Rest+sendwavePricingPath+"?"+values.Encode(), nil, &pricing)
	if err != nil {
		return failureFromError(id, ctx, err)
	}
	if pricing.EffectiveExchangeRate == "" || pricing.EffectiveSendAmount == "" {
		return types.NewRawFailure(id, types.ErrParsing, "missing effective rate in sendwave response")
	}

	return p.toRawResult(req, destCcy, pricing, raw)
}

func (p *SendwaveProvider) toRawResult(req types.QuoteRequest, destCcy string, pricing sendwavePricing, raw json.RawMessage) types.RawResult {
	id := p.ID()

	rate, err := parseDecimal(pricing.EffectiveExchangeRate)
	if err != nil {
		return types.NewRawFailure(id, types.ErrParsing, err.Error())
	}
	sendAmount, err := parseDecimal(pricing.EffectiveSendAmount)
	if err != nil {
		return types.NewRawFailure(id, types.ErrParsing, err.Error())
	}
	fee, err := parseDecimal(pricing.EffectiveFeeAmount)
	if err != nil {
		fee = decimal.Zero
	}

	receive := sendAmount.Mul(rate)
	opt := PriceOption{
		PaymentMethod:       types.PaymentDebitCard,
		DeliveryMethod:      types.DeliveryMobile,
		Fee:                 fee,
		DeliveryTimeMinutes: intPtr(10),
	}
	return rawSuccess(id, req, destCcy, receive, decPtr(rate), decPtr(fee), opt, raw)
}
