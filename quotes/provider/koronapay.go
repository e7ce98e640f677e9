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
	koronapayRestHost   = "https://koronapay.com/api"
	koronapayTariffPath = "/transfers/tariffs"
)

var _ Adapter = (*KoronaPayProvider)(nil)

type (
	// KoronaPayProvider integrates the KoronaPay tariff API. Countries are
	// addressed by alpha-3 codes, currencies by their ISO-4217 numeric ids,
	// and every monetary field on the wire is in minor units (cents).
	KoronaPayProvider struct {
		ctx       Context
		client    *http.Client
		logger    zerolog.Logger
		endpoints Endpoint
	}

	koronaTariff struct {
		SendingAmount     int64           `json:"sendingAmount"`
		ReceivingAmount   int64           `json:"receivingAmount"`
		ExchangeRate      decimal.Decimal `json:"exchangeRate"`
		SendingCommission int64           `json:"sendingCommission"`
	}

	koronaError struct {
		Message string `json:"message"`
	}
)

// koronaCurrencyIDs maps ISO-4217 alphabetic codes to the numeric ids the
// tariff API expects.
var koronaCurrencyIDs = map[string]string{
	"EUR": "978", "USD": "840", "TRY": "949", "IDR": "360",
	"GBP": "826", "PLN": "985", "CZK": "203", "HUF": "348",
	"RON": "946", "BGN": "975", "DKK": "208", "SEK": "752",
	"NOK": "578", "VND": "704", "PHP": "608", "THB": "764",
	"MYR": "458",
}

// koronaSourceCountries is the European sending set; koronaDestCountries the
// receiving set. Both keyed by alpha-2, the wire uses alpha-3.
var (
	koronaSourceCountries = map[string]bool{
		"AT": true, "BE": true, "BG": true, "HR": true, "CY": true,
		"CZ": true, "DK": true, "EE": true, "FI": true, "FR": true,
		"DE": true, "GR": true, "HU": true, "IS": true, "IE": true,
		"IT": true, "LV": true, "LT": true, "LU": true, "MT": true,
		"NL": true, "NO": true, "PL": true, "PT": true, "RO": true,
		"SK": true, "SI": true, "ES": true, "SE": true, "GB": true,
	}
	koronaDestCountries = map[string]bool{
		"ID": true, "TR": true, "VN": true, "PH": true, "TH": true,
		"MY": true,
	}
)

var koronaReceivingMethods = map[string]string{
	types.DeliveryCashPickup: "cash",
	types.DeliveryDebitCard:  "card",
}

func NewKoronaPayProvider(pctx Context, endpoints Endpoint) *KoronaPayProvider {
	if endpoints.Rest == "" {
		endpoints = Endpoint{Name: ProviderKoronaPay, Rest: koronapayRestHost}
	}
	return &KoronaPayProvider{
		ctx:       pctx,
		client:    pctx.HTTPClient(defaultTimeout),
		logger:    pctx.Logger.With().Str("provider", ProviderKoronaPay.String()).Logger(),
		endpoints: endpoints,
	}
}

func (p *KoronaPayProvider) ID() string {
	return ProviderKoronaPay.String()
}

func (p *KoronaPayProvider) DisplayName() string {
	return "KoronaPay"
}

func (p *KoronaPayProvider) SupportedCorridors() []types.Corridor {
	corridors := make([]types.Corridor, 0, len(koronaSourceCountries)*len(koronaDestCountries))
	for src := range koronaSourceCountries {
		for dst := range koronaDestCountries {
			corridors = append(corridors, types.Corridor{SourceCountry: src, DestCountry: dst})
		}
	}
	return corridors
}

func (p *KoronaPayProvider) Quote(ctx context.Context, req types.QuoteRequest) types.RawResult {
	id := p.ID()

	if !koronaSourceCountries[req.SourceCountry] || !koronaDestCountries[req.DestCountry] {
		return types.NewRawFailure(id, types.ErrUnsupportedCorridor,
			fmt.Sprintf("koronapay does not serve %s->%s", req.SourceCountry, req.DestCountry))
	}
	srcISO3, ok := p.ctx.Catalog.ISO3(req.SourceCountry)
	if !ok {
		return types.NewRawFailure(id, types.ErrInvalidParameter,
			fmt.Sprintf("unknown source country %s", req.SourceCountry))
	}
	dstISO3, ok := p.ctx.Catalog.ISO3(req.DestCountry)
	if !ok {
		return types.NewRawFailure(id, types.ErrInvalidParameter,
			fmt.Sprintf("unknown destination country %s", req.DestCountry))
	}
	destCcy, ok := destCurrency(p.ctx, req)
	if !ok {
		return types.NewRawFailure(id, types.ErrInvalidParameter,
			fmt.Sprintf("no currency known for destination %s", req.DestCountry))
	}
	srcCcyID, ok := koronaCurrencyIDs[strings.ToUpper(req.SourceCurrency)]
	if !ok {
		return types.NewRawFailure(id, types.ErrUnsupportedCorridor,
			fmt.Sprintf("koronapay does not price currency %s", req.SourceCurrency))
	}
	dstCcyID, ok := koronaCurrencyIDs[destCcy]
	if !ok {
		return types.NewRawFailure(id, types.ErrUnsupportedCorridor,
			fmt.Sprintf("koronapay does not pay out currency %s", destCcy))
	}

	receivingMethod := "cash"
	if m, ok := koronaReceivingMethods[req.DeliveryMethod]; ok {
		receivingMethod = m
	}
	paymentMethod := "debitCard"
	if req.PaymentMethod == types.PaymentBankAccount {
		paymentMethod = "bankAccount"
	}

	values := url.Values{}
	values.Set("sendingCountryId", srcISO3)
	values.Set("receivingCountryId", dstISO3)
	values.Set("sendingCurrencyId", srcCcyID)
	values.Set("receivingCurrencyId", dstCcyID)
	values.Set("paymentMethod", paymentMethod)
	values.Set("receivingMethod", receivingMethod)
	values.Set("paidNotificationEnabled", "false")
	// Wire amounts are cents.
	values.Set("sendingAmount", req.Amount.Mul(decimal.NewFromInt(100)).Round(0).String())

	endpoint := p.endpoints.Rest + koronapayTariffPath + "?" + values.Encode()

	// The tariff endpoint answers either a single object or a list.
	var tariffs []koronaTariff
	raw, err := getJSON(ctx, p.client, endpoint, nil, &tariffs)
	if err != nil {
		// Retry the decode as a single object before surfacing the error.
		var single koronaTariff
		if raw != nil && json.Unmarshal(raw, &single) == nil && single.ExchangeRate.IsPositive() {
			tariffs = []koronaTariff{single}
		} else {
			return failureFromError(id, ctx, err)
		}
	}
	if len(tariffs) == 0 {
		return types.NewRawFailure(id, types.ErrProviderAPI, "no tariffs available for this corridor")
	}

	return p.toRawResult(req, destCcy, receivingMethod, paymentMethod, tariffs[0], raw)
}

func (p *KoronaPayProvider) toRawResult(
	req types.QuoteRequest,
	destCcy, receivingMethod, paymentMethod string,
	tariff koronaTariff,
	raw json.RawMessage,
) types.RawResult {
	id := p.ID()

	if tariff.ExchangeRate.IsZero() || tariff.ReceivingAmount == 0 {
		return types.NewRawFailure(id, types.ErrParsing, "tariff carries no rate or receiving amount")
	}

	cents := decimal.NewFromInt(100)
	receive := decimal.NewFromInt(tariff.ReceivingAmount).Div(cents)
	fee := decimal.NewFromInt(tariff.SendingCommission).Div(cents)

	delivery := types.DeliveryCashPickup
	if receivingMethod == "card" {
		delivery = types.DeliveryDebitCard
	}
	payment := types.PaymentDebitCard
	if paymentMethod == "bankAccount" {
		payment = types.PaymentBankAccount
	}
	opt := PriceOption{
		PaymentMethod:       payment,
		DeliveryMethod:      delivery,
		Fee:                 fee,
		DeliveryTimeMinutes: intPtr(10),
	}
	return rawSuccess(id, req, destCcy, receive, decPtr(tariff.ExchangeRate), decPtr(fee), opt, raw)
}
