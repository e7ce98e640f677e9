package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"remit-scout/quotes/types"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	mukuruRestHost      = "https://mobile.mukuru.com"
	mukuruCalculatePath = "/pricechecker/calculate"

	mukuruBrandID      = "1"
	mukuruSalesChannel = "mobi"
)

var _ Adapter = (*MukuruProvider)(nil)

type (
	// MukuruProvider integrates the Mukuru price checker, the mobile site's
	// calculator backend. Corridors are South-Africa-out into the southern
	// African region and the breakdown fields are display strings, ex. rate
	// "$1:R18.7248", charge "ZAR94.00", payout "USD50.00".
	MukuruProvider struct {
		ctx       Context
		client    *http.Client
		logger    zerolog.Logger
		endpoints Endpoint
	}

	mukuruResponse struct {
		Status string     `json:"status"`
		Data   mukuruData `json:"data"`
	}

	mukuruData struct {
		Breakdown mukuruBreakdown `json:"breakdown"`
	}

	mukuruBreakdown struct {
		Rate   string            `json:"Rate"`
		PayIn  map[string]string `json:"payin"`
		PayOut map[string]string `json:"payout"`
	}
)

// mukuruCorridorIDs maps corridors to Mukuru's internal payout currency ids.
var mukuruCorridorIDs = map[types.Corridor]int{
	{SourceCountry: "ZA", DestCountry: "ZW"}: 18,
	{SourceCountry: "ZA", DestCountry: "MZ"}: 37,
	{SourceCountry: "ZA", DestCountry: "MW"}: 68,
	{SourceCountry: "ZA", DestCountry: "BW"}: 78,
	{SourceCountry: "ZA", DestCountry: "LS"}: 35,
	{SourceCountry: "ZA", DestCountry: "SZ"}: 41,
	{SourceCountry: "ZA", DestCountry: "ZM"}: 112,
	{SourceCountry: "ZA", DestCountry: "GH"}: 20,
	{SourceCountry: "ZA", DestCountry: "NG"}: 21,
}

var (
	mukuruRatePattern   = regexp.MustCompile(`R(\d+(?:\.\d+)?)`)
	mukuruAmountPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)`)
)

func NewMukuruProvider(pctx Context, endpoints Endpoint) *MukuruProvider {
	if endpoints.Rest == "" {
		endpoints = Endpoint{Name: ProviderMukuru, Rest: mukuruRestHost}
	}
	return &MukuruProvider{
		ctx:       pctx,
		client:    pctx.HTTPClient(defaultTimeout),
		logger:    pctx.Logger.With().Str("provider", ProviderMukuru.String()).Logger(),
		endpoints: endpoints,
	}
}

func (p *MukuruProvider) ID() string {
	return ProviderMukuru.String()
}

func (p *MukuruProvider) DisplayName() string {
	return "Mukuru"
}

func (p *MukuruProvider) SupportedCorridors() []types.Corridor {
	corridors := make([]types.Corridor, 0, len(mukuruCorridorIDs))
	for c := range mukuruCorridorIDs {
		corridors = append(corridors, c)
	}
	return corridors
}

func (p *MukuruProvider) Quote(ctx context.Context, req types.QuoteRequest) types.RawResult {
	id := p.ID()

	corridor := types.Corridor{SourceCountry: req.SourceCountry, DestCountry: req.DestCountry}
	currencyID, ok := mukuruCorridorIDs[corridor]
	if !ok {
		return types.NewRawFailure(id, types.ErrUnsupportedCorridor,
			fmt.Sprintf("mukuru does not serve %s", corridor))
	}

	values := url.Values{}
	values.Set("from_currency_iso", req.SourceCurrency)
	values.Set("payin_amount", req.Amount.String())
	values.Set("from_country", req.SourceCountry)
	values.Set("to_currency_iso", "")
	values.Set("payout_amount", "")
	values.Set("to_country", req.DestCountry)
	values.Set("currency_id", strconv.Itoa(currencyID))
	values.Set("active_input", "payin_amount")
	values.Set("brand_id", mukuruBrandID)
	values.Set("sales_channel", mukuruSalesChannel)

	endpoint := p.endpoints.Rest + mukuruCalculatePath + "?" + values.Encode()

	var resp mukuruResponse
	raw, err := getJSON(ctx, p.client, endpoint, nil, &resp)
	if err != nil {
		return failureFromError(id, ctx, err)
	}
	if resp.Status != "success" {
		return types.NewRawFailure(id, types.ErrProviderAPI,
			fmt.Sprintf("mukuru returned status %q", resp.Status))
	}

	return p.toRawResult(req, resp.Data.Breakdown, raw)
}

func (p *MukuruProvider) toRawResult(req types.QuoteRequest, breakdown mukuruBreakdown, raw json.RawMessage) types.RawResult {
	id := p.ID()

	// "They receive" carries both the payout currency and the amount,
	// ex. "USD50.00".
	receiveText := breakdown.PayOut["They receive"]
	receiveMatch := mukuruAmountPattern.FindString(receiveText)
	if receiveMatch == "" {
		return types.NewRawFailure(id, types.ErrParsing,
			fmt.Sprintf("no payout amount in %q", receiveText))
	}
	receive, err := decimal.NewFromString(receiveMatch)
	if err != nil {
		return types.NewRawFailure(id, types.ErrParsing, err.Error())
	}
	destCcy := mukuruPayoutCurrency(receiveText)
	if destCcy == "" {
		var ok bool
		destCcy, ok = destCurrency(p.ctx, req)
		if !ok {
			return types.NewRawFailure(id, types.ErrParsing,
				fmt.Sprintf("no payout currency in %q", receiveText))
		}
	}

	var rate *decimal.Decimal
	// Rate arrives as ZAR per payout unit, ex. "$1:R18.7248"; invert it to
	// payout per ZAR.
	if m := mukuruRatePattern.FindStringSubmatch(breakdown.Rate); m != nil {
		perUnit, err := decimal.NewFromString(m[1])
		if err == nil && perUnit.IsPositive() {
			inverted := decimal.NewFromInt(1).DivRound(perUnit, 10)
			rate = &inverted
		}
	}

	var fee *decimal.Decimal
	if m := mukuruAmountPattern.FindString(breakdown.PayIn["Charge"]); m != "" {
		parsed, err := decimal.NewFromString(m)
		if err == nil {
			fee = &parsed
		}
	}

	opt := PriceOption{
		PaymentMethod:       types.PaymentBankAccount,
		DeliveryMethod:      types.DeliveryCashPickup,
		DeliveryTimeMinutes: intPtr(60),
	}
	if fee != nil {
		opt.Fee = *fee
	}
	return rawSuccess(id, req, destCcy, receive, rate, fee, opt, raw)
}

var mukuruCurrencyPattern = regexp.MustCompile(`([A-Z]{3})`)

func mukuruPayoutCurrency(text string) string {
	return mukuruCurrencyPattern.FindString(text)
}
