package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"remit-scout/quotes/types"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	intermexRestHost    = "https://api.imxi.com"
	intermexPricingPath = "/pricing/api/v2/feesrates"

	intermexStyleID    = 3
	intermexTranTypeID = 3
	intermexChannelID  = 1
)

var _ Adapter = (*IntermexProvider)(nil)

type (
	// IntermexProvider integrates the Intermex fees-and-rates API, a
	// US-out latin-corridor specialist. The subscription key travels in the
	// Ocp-Apim-Subscription-Key header and delivery is encoded as a
	// single-letter type, "W" for bank deposit.
	IntermexProvider struct {
		ctx       Context
		client    *http.Client
		logger    zerolog.Logger
		endpoints Endpoint
		apiKey    string
	}

	intermexFeesRates struct {
		Rate           decimal.Decimal         `json:"rate"`
		FeeAmount      decimal.Decimal         `json:"feeAmount"`
		DestAmount     decimal.Decimal         `json:"destAmount"`
		TotalAmount    decimal.Decimal         `json:"totalAmount"`
		PaymentMethods []intermexPaymentMethod `json:"paymentMethods"`
	}

	intermexPaymentMethod struct {
		SenderPaymentMethodID   int             `json:"senderPaymentMethodId"`
		SenderPaymentMethodName string          `json:"senderPaymentMethodName"`
		FeeAmount               decimal.Decimal `json:"feeAmount"`
		IsAvailable             bool            `json:"isAvailable"`
	}
)

// intermexPaymentIDs maps canonical payment tokens to sender payment ids.
var intermexPaymentIDs = map[string]int{
	types.PaymentDebitCard:  3,
	types.PaymentCreditCard: 4,
}

// intermexDestCountries is the latin-america receive footprint.
var intermexDestCountries = map[string]bool{
	"MX": true, "GT": true, "SV": true, "HN": true, "NI": true,
	"DO": true, "CO": true, "EC": true, "PE": true, "BO": true,
}

func NewIntermexProvider(pctx Context, endpoints Endpoint) *IntermexProvider {
	if endpoints.Rest == "" {
		endpoints = Endpoint{Name: ProviderIntermex, Rest: intermexRestHost}
	}
	return &IntermexProvider{
		ctx:       pctx,
		client:    pctx.HTTPClient(defaultTimeout),
		logger:    pctx.Logger.With().Str("provider", ProviderIntermex.String()).Logger(),
		endpoints: endpoints,
		apiKey:    pctx.Credential("INTERMEX_API_KEY"),
	}
}

func (p *IntermexProvider) ID() string {
	return ProviderIntermex.String()
}

func (p *IntermexProvider) DisplayName() string {
	return "Intermex"
}

func (p *IntermexProvider) SupportedCorridors() []types.Corridor {
	corridors := make([]types.Corridor, 0, len(intermexDestCountries))
	for dest := range intermexDestCountries {
		corridors = append(corridors, types.Corridor{SourceCountry: "US", DestCountry: dest})
	}
	return corridors
}

func (p *IntermexProvider) Quote(ctx context.Context, req types.QuoteRequest) types.RawResult {
	id := p.ID()

	if req.SourceCountry != "US" {
		return types.NewRawFailure(id, types.ErrUnsupportedCorridor,
			fmt.Sprintf("intermex only sends from US, got %s", req.SourceCountry))
	}
	if !intermexDestCountries[req.DestCountry] {
		return types.NewRawFailure(id, types.ErrUnsupportedCorridor,
			fmt.Sprintf("intermex does not serve destination %s", req.DestCountry))
	}
	if p.apiKey == "" {
		return types.NewRawFailure(id, types.ErrAuthentication, "intermex subscription key not configured")
	}
	destCcy, ok := destCurrency(p.ctx, req)
	if !ok {
		return types.NewRawFailure(id, types.ErrInvalidParameter,
			fmt.Sprintf("no currency known for destination %s", req.DestCountry))
	}

	paymentID := 4
	if pid, ok := intermexPaymentIDs[req.PaymentMethod]; ok {
		paymentID = pid
	}

	values := url.Values{}
	values.Set("DestCountryAbbr", req.DestCountry)
	values.Set("DestCurrency", destCcy)
	values.Set("OriCountryAbbr", req.SourceCountry)
	values.Set("OriStateAbbr", "FL")
	values.Set("StyleId", strconv.Itoa(intermexStyleID))
	values.Set("TranTypeId", strconv.Itoa(intermexTranTypeID))
	values.Set("DeliveryType", "W")
	values.Set("OriCurrency", strings.ToUpper(req.SourceCurrency))
	values.Set("ChannelId", strconv.Itoa(intermexChannelID))
	values.Set("OriAmount", req.Amount.StringFixed(2))
	values.Set("DestAmount", "0")
	values.Set("SenderPaymentMethodId", strconv.Itoa(paymentID))

	headers := map[string]string{
		"Ocp-Apim-Subscription-Key": p.apiKey,
	}

	var resp intermexFeesRates
	raw, err := getJSON(ctx, p.client, p.endpoints.Rest+intermexPricingPath+"?"+values.Encode(), headers, &resp)
	if err != nil {
		return failureFromError(id, ctx, err)
	}
	if resp.Rate.IsZero() || resp.DestAmount.IsZero() {
		return types.NewRawFailure(id, types.ErrParsing, "intermex response carries no rate or amount")
	}

	return p.toRawResult(req, destCcy, paymentID, resp, raw)
}

func (p *IntermexProvider) toRawResult(
	req types.QuoteRequest,
	destCcy string,
	paymentID int,
	resp intermexFeesRates,
	raw json.RawMessage,
) types.RawResult {
	id := p.ID()

	fee := resp.FeeAmount
	// Prefer the per-method fee when the pricing table lists the method the
	// quote was requested with.
	for _, pm := range resp.PaymentMethods {
		if pm.IsAvailable && pm.SenderPaymentMethodID == paymentID {
			fee = pm.FeeAmount
			break
		}
	}

	payment := types.PaymentCreditCard
	if paymentID == 3 {
		payment = types.PaymentDebitCard
	}
	opt := PriceOption{
		PaymentMethod:       payment,
		DeliveryMethod:      types.DeliveryBankDeposit,
		Fee:                 fee,
		DeliveryTimeMinutes: intPtr(2160), // 24-48 hours
	}
	return rawSuccess(id, req, destCcy, resp.DestAmount, decPtr(resp.Rate), decPtr(fee), opt, raw)
}
