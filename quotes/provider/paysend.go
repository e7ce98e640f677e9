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
	paysendRestHost  = "https://paysend.com/api"
	paysendQuotePath = "/api/public/quote"
)

var _ Adapter = (*PaysendProvider)(nil)

type (
	// PaysendProvider integrates the Paysend public quote endpoint. The
	// endpoint sits behind a captcha-guarded session, so the adapter needs a
	// session token captured from a browser; without one the provider is
	// registered disabled. Currencies are addressed by Paysend's numeric ids.
	PaysendProvider struct {
		ctx       Context
		client    *http.Client
		logger    zerolog.Logger
		endpoints Endpoint
		session   string
	}

	paysendQuoteResponse struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Quote   paysendQuote `json:"quote"`
	}

	paysendQuote struct {
		Rate          decimal.Decimal `json:"rate"`
		Fee           decimal.Decimal `json:"fee"`
		ReceiveAmount decimal.Decimal `json:"receiveAmount"`
	}
)

// paysendCurrencyIDs maps ISO-4217 codes to Paysend's internal numeric ids,
// same numbering as the ISO-4217 standard.
var paysendCurrencyIDs = map[string]string{
	"USD": "840", "EUR": "978", "GBP": "826", "CAD": "124",
	"INR": "356", "PHP": "608", "MXN": "484", "COP": "170",
	"NGN": "566", "KES": "404", "BDT": "050", "PKR": "586",
	"UAH": "980", "KZT": "398", "UZS": "860", "GEL": "981",
	"AMD": "051", "MDL": "498", "TRY": "949", "VND": "704",
}

func NewPaysendProvider(pctx Context, endpoints Endpoint) *PaysendProvider {
	if endpoints.Rest == "" {
		endpoints = Endpoint{Name: ProviderPaysend, Rest: paysendRestHost}
	}
	return &PaysendProvider{
		ctx:       pctx,
		client:    pctx.HTTPClient(defaultTimeout),
		logger:    pctx.Logger.With().Str("provider", ProviderPaysend.String()).Logger(),
		endpoints: endpoints,
		session:   pctx.Credential("PAYSEND_SESSION_TOKEN"),
	}
}

func (p *PaysendProvider) ID() string {
	return ProviderPaysend.String()
}

func (p *PaysendProvider) DisplayName() string {
	return "Paysend"
}

func (p *PaysendProvider) Quote(ctx context.Context, req types.QuoteRequest) types.RawResult {
	id := p.ID()

	if p.session == "" {
		return types.NewRawFailure(id, types.ErrAuthentication,
			"paysend session token not configured")
	}
	destCcy, ok := destCurrency(p.ctx, req)
	if !ok {
		return types.NewRawFailure(id, types.ErrInvalidParameter,
			fmt.Sprintf("no currency known for destination %s", req.DestCountry))
	}
	fromID, ok := paysendCurrencyIDs[strings.ToUpper(req.SourceCurrency)]
	if !ok {
		return types.NewRawFailure(id, types.ErrUnsupportedCorridor,
			fmt.Sprintf("paysend does not price currency %s", req.SourceCurrency))
	}
	toID, ok := paysendCurrencyIDs[destCcy]
	if !ok {
		return types.NewRawFailure(id, types.ErrUnsupportedCorridor,
			fmt.Sprintf("paysend does not pay out %s", destCcy))
	}

	values := url.Values{}
	values.Set("fromCurrId", fromID)
	values.Set("toCurrId", toID)
	values.Set("amount", req.Amount.String())
	values.Set("isFrom", "true")

	headers := map[string]string{
		"Origin":          "https://paysend.com",
		"Referer":         "https://paysend.com/en-us/",
		"X-Session-Token": p.session,
	}

	var resp paysendQuoteResponse
	raw, err := getJSON(ctx, p.client, p.endpoints.Rest+paysendQuotePath+"?"+values.Encode(), headers, &resp)
	if err != nil {
		return failureFromError(id, ctx, err)
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "paysend rejected the quote"
		}
		return types.NewRawFailure(id, types.ErrProviderAPI, msg)
	}
	return p.toRawResult(req, destCcy, resp.Quote, raw)
}

func (p *PaysendProvider) toRawResult(req types.QuoteRequest, destCcy string, quote paysendQuote, raw json.RawMessage) types.RawResult {
	id := p.ID()

	if quote.Rate.IsZero() {
		return types.NewRawFailure(id, types.ErrParsing, "paysend quote carries no rate")
	}
	receive := quote.ReceiveAmount
	if receive.IsZero() {
		receive = req.Amount.Mul(quote.Rate)
	}

	opt := PriceOption{
		PaymentMethod:       types.PaymentCard,
		DeliveryMethod:      types.DeliveryDebitCard,
		Fee:                 quote.Fee,
		DeliveryTimeMinutes: intPtr(15),
	}
	return rawSuccess(id, req, destCcy, receive, decPtr(quote.Rate), decPtr(quote.Fee), opt, raw)
}
