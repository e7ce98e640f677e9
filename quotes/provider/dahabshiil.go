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
	dahabshiilRestHost    = "https://apigw-us.dahabshiil.com/remit/transaction"
	dahabshiilChargesPath = "/get-charges-anonymous"
)

var _ Adapter = (*DahabshiilProvider)(nil)

type (
	// DahabshiilProvider integrates the Dahabshiil anonymous charges
	// endpoint, strongest on corridors into East Africa and the Horn of
	// Africa. The API returns rate and fee, leaving the receive amount to
	// the caller.
	DahabshiilProvider struct {
		ctx       Context
		client    *http.Client
		logger    zerolog.Logger
		endpoints Endpoint
	}

	dahabshiilChargesRequest struct {
		SourceAmount   string `json:"sourceAmount"`
		SourceCurrency string `json:"sourceCurrency"`
		TargetCurrency string `json:"targetCurrency"`
		SourceCountry  string `json:"sourceCountry"`
		TargetCountry  string `json:"targetCountry"`
	}

	dahabshiilChargesResponse struct {
		Success bool               `json:"success"`
		Message string             `json:"message"`
		Data    dahabshiilCharges  `json:"data"`
	}

	dahabshiilCharges struct {
		Rate decimal.Decimal `json:"rate"`
		Fee  decimal.Decimal `json:"fee"`
	}
)

// dahabshiilDestCountries is the receive-side footprint.
var dahabshiilDestCountries = map[string]bool{
	"SO": true, "KE": true, "ET": true, "UG": true, "TZ": true,
	"DJ": true, "SD": true, "GH": true, "NG": true, "IN": true,
	"PK": true, "BD": true, "PH": true, "AE": true, "GB": true,
}

func NewDahabshiilProvider(pctx Context, endpoints Endpoint) *DahabshiilProvider {
	if endpoints.Rest == "" {
		endpoints = Endpoint{Name: ProviderDahabshiil, Rest: dahabshiilRestHost}
	}
	return &DahabshiilProvider{
		ctx:       pctx,
		client:    pctx.HTTPClient(defaultTimeout),
		logger:    pctx.Logger.With().Str("provider", ProviderDahabshiil.String()).Logger(),
		endpoints: endpoints,
	}
}

func (p *DahabshiilProvider) ID() string {
	return ProviderDahabshiil.String()
}

func (p *DahabshiilProvider) DisplayName() string {
	return "Dahabshiil"
}

func (p *DahabshiilProvider) Quote(ctx context.Context, req types.QuoteRequest) types.RawResult {
	id := p.ID()

	if !dahabshiilDestCountries[req.DestCountry] {
		return types.NewRawFailure(id, types.ErrUnsupportedCorridor,
			fmt.Sprintf("dahabshiil does not serve destination %s", req.DestCountry))
	}
	destCcy, ok := destCurrency(p.ctx, req)
	if !ok {
		return types.NewRawFailure(id, types.ErrInvalidParameter,
			fmt.Sprintf("no currency known for destination %s", req.DestCountry))
	}

	payload := dahabshiilChargesRequest{
		SourceAmount:   req.Amount.String(),
		SourceCurrency: strings.ToUpper(req.SourceCurrency),
		TargetCurrency: destCcy,
		SourceCountry:  req.SourceCountry,
		TargetCountry:  req.DestCountry,
	}

	var resp dahabshiilChargesResponse
	raw, err := postJSON(ctx, p.client, p.endpoints.Rest+dahabshiilChargesPath, nil, payload, &resp)
	if err != nil {
		return failureFromError(id, ctx, err)
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "dahabshiil rejected the quote"
		}
		return types.NewRawFailure(id, types.ErrProviderAPI, msg)
	}
	if resp.Data.Rate.IsZero() {
		return types.NewRawFailure(id, types.ErrParsing, "dahabshiil response carries no rate")
	}

	rate := resp.Data.Rate
	fee := resp.Data.Fee
	receive := req.Amount.Mul(rate)

	delivery := types.DeliveryCashPickup
	if req.DeliveryMethod == types.DeliveryBankDeposit || req.DeliveryMethod == types.DeliveryMobile {
		delivery = req.DeliveryMethod
	}
	opt := PriceOption{
		PaymentMethod:       types.PaymentBankAccount,
		DeliveryMethod:      delivery,
		Fee:                 fee,
		DeliveryTimeMinutes: intPtr(60),
	}
	return rawSuccess(id, req, destCcy, receive, decPtr(rate), decPtr(fee), opt, raw)
}
