package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"remit-scout/quotes/types"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	orbitremitRestHost  = "https://www.orbitremit.com"
	orbitremitFeesPath  = "/api/fees"
	orbitremitRatesPath = "/api/rates"
)

var _ Adapter = (*OrbitRemitProvider)(nil)

type (
	// OrbitRemitProvider integrates the OrbitRemit web calculator. Unlike the
	// single-call providers, pricing needs two endpoints: POST /api/rates for
	// the exchange rate and GET /api/fees for the flat transfer fee. Both are
	// issued sequentially against the same deadline.
	OrbitRemitProvider struct {
		ctx       Context
		client    *http.Client
		logger    zerolog.Logger
		endpoints Endpoint
	}

	orbitremitRateRequest struct {
		Send       string `json:"send"`
		Payout     string `json:"payout"`
		SendAmount string `json:"send_amount"`
	}

	orbitremitEnvelope struct {
		Code   int                `json:"code"`
		Status string             `json:"status"`
		Data   orbitremitPayload  `json:"data"`
	}

	orbitremitPayload struct {
		Rate decimal.Decimal `json:"rate"`
		Fee  decimal.Decimal `json:"fee"`
	}
)

// orbitremitCorridors maps each source currency to its payout currencies.
var orbitremitCorridors = map[string][]string{
	"AUD": {"PHP", "INR", "PKR", "BDT", "FJD", "LKR", "NPR", "USD", "VND"},
	"NZD": {"PHP", "INR", "FJD", "PKR", "BDT", "LKR", "NPR", "VND"},
	"GBP": {"PHP", "INR", "PKR", "BDT", "LKR", "NPR", "VND"},
	"EUR": {"PHP", "INR", "PKR", "BDT", "LKR", "NPR", "VND"},
	"CAD": {"PHP", "INR", "PKR", "BDT", "LKR", "NPR", "VND"},
	"USD": {"PHP", "INR", "PKR", "BDT", "LKR", "NPR", "VND"},
}

func NewOrbitRemitProvider(pctx Context, endpoints Endpoint) *OrbitRemitProvider {
	if endpoints.Rest == "" {
		endpoints = Endpoint{Name: ProviderOrbitRemit, Rest: orbitremitRestHost}
	}
	return &OrbitRemitProvider{
		ctx:       pctx,
		client:    pctx.HTTPClient(defaultTimeout),
		logger:    pctx.Logger.With().Str("provider", ProviderOrbitRemit.String()).Logger(),
		endpoints: endpoints,
	}
}

func (p *OrbitRemitProvider) ID() string {
	return ProviderOrbitRemit.String()
}

func (p *OrbitRemitProvider) DisplayName() string {
	return "OrbitRemit"
}

func (p *OrbitRemitProvider) Quote(ctx context.Context, req types.QuoteRequest) types.RawResult {
	id := p.ID()

	srcCcy := strings.ToUpper(req.SourceCurrency)
	destCcy, ok := destCurrency(p.ctx, req)
	if !ok {
		return types.NewRawFailure(id, types.ErrInvalidParameter,
			fmt.Sprintf("no currency known for destination %s", req.DestCountry))
	}
	if !orbitremitServes(srcCcy, destCcy) {
		return types.NewRawFailure(id, types.ErrUnsupportedCorridor,
			fmt.Sprintf("orbitremit does not serve %s->%s", srcCcy, destCcy))
	}

	headers := map[string]string{
		"Origin":  orbitremitRestHost,
		"Referer": orbitremitRestHost + "/",
	}

	ratePayload := orbitremitRateRequest{
		Send:       srcCcy,
		Payout:     destCcy,
		SendAmount: req.Amount.StringFixed(2),
	}
	var rateEnv orbitremitEnvelope
	rawRate, err := postJSON(ctx, p.client, p.endpoints.Rest+orbitremitRatesPath, headers, ratePayload, &rateEnv)
	if err != nil {
		return failureFromError(id, ctx, err)
	}
	if !orbitremitOK(rateEnv) || rateEnv.Data.Rate.IsZero() {
		return types.NewRawFailure(id, types.ErrProviderAPI,
			fmt.Sprintf("orbitremit rates returned status %q", rateEnv.Status))
	}

	values := url.Values{}
	values.Set("send", srcCcy)
	values.Set("payout", destCcy)
	values.Set("amount", req.Amount.StringFixed(2))
	values.Set("type", "bank_account")

	var feeEnv orbitremitEnvelope
	_, err = getJSON(ctx, p.client, p.endpoints.Rest+orbitremitFeesPath+"?"+values.Encode(), headers, &feeEnv)
	if err != nil {
		return failureFromError(id, ctx, err)
	}
	if !orbitremitOK(feeEnv) {
		return types.NewRawFailure(id, types.ErrProviderAPI,
			fmt.Sprintf("orbitremit fees returned status %q", feeEnv.Status))
	}

	rate := rateEnv.Data.Rate
	fee := feeEnv.Data.Fee
	receive := req.Amount.Mul(rate)

	opt := PriceOption{
		PaymentMethod:       types.PaymentBankAccount,
		DeliveryMethod:      types.DeliveryBankDeposit,
		Fee:                 fee,
		DeliveryTimeMinutes: intPtr(1440),
	}
	return rawSuccess(id, req, destCcy, receive, decPtr(rate), decPtr(fee), opt, rawRate)
}

func orbitremitOK(env orbitremitEnvelope) bool {
	return env.Code == 200 && env.Status == "success"
}

func orbitremitServes(srcCcy, destCcy string) bool {
	payouts, ok := orbitremitCorridors[srcCcy]
	if !ok {
		return false
	}
	for _, p := range payouts {
		if p == destCcy {
			return true
		}
	}
	return false
}
