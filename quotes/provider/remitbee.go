package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"remit-scout/quotes/types"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	remitbeeRestHost  = "https://api.remitbee.com"
	remitbeeQuotePath = "/public-services/calculate-money-transfer"
)

var _ Adapter = (*RemitbeeProvider)(nil)

type (
	// RemitbeeProvider integrates the Remitbee public money-transfer
	// calculator. Remitbee is Canada-based: every corridor originates in CA
	// with CAD as the send currency. Rates are tiered by amount band and the
	// payload reports the band that applies plus a special-rate band for
	// larger transfers.
	RemitbeeProvider struct {
		ctx       Context
		client    *http.Client
		logger    zerolog.Logger
		endpoints Endpoint
	}

	remitbeeQuoteRequest struct {
		TransferAmount  string `json:"transfer_amount"`
		CountryID       int    `json:"country_id"`
		CurrencyCode    string `json:"currency_code"`
		IncludeTimeline bool   `json:"include_timeline"`
		IsSpecialRate   bool   `json:"is_special_rate"`
		SourceCurrency  string `json:"source_currency"`
		SourceCountry   string `json:"source_country"`
	}

	remitbeeQuoteResponse struct {
		Rate         string             `json:"rate"`
		SpecialRate  string             `json:"special_rate"`
		RateTiers    []remitbeeRateTier `json:"special_rate_tiers"`
		Fees         []remitbeeFee      `json:"fees"`
		ReceiveAmont string             `json:"receiving_amount"`
		Timeline     remitbeeTimeline   `json:"timeline"`
		Error        string             `json:"error"`
	}

	remitbeeRateTier struct {
		MinAmount string `json:"min_amount"`
		MaxAmount string `json:"max_amount"`
		Rate      string `json:"rate"`
	}

	remitbeeFee struct {
		Type   string `json:"type"` // ex.: "bank_transfer", "debit_card"
		Amount string `json:"amount"`
	}

	remitbeeTimeline struct {
		Estimate string `json:"estimate"` // ex.: "1 business day"
	}
)

// remitbeeCountryIDs maps destination countries to Remitbee's internal
// numeric country ids, extracted from their send-money page.
var remitbeeCountryIDs = map[string]int{
	"IN": 101, "PH": 150, "LK": 192, "PK": 142, "BD": 18,
	"NP": 137, "VN": 226, "GH": 80, "KE": 108, "NG": 139,
	"MX": 127, "CO": 46, "BR": 28, "PE": 146, "JM": 104,
	"GY": 87, "TT": 208, "AE": 2, "GB": 77, "US": 220,
}

// remitbeePaymentTokens maps Remitbee fee types to canonical tokens.
var remitbeePaymentTokens = map[string]string{
	"bank_transfer": types.PaymentBankAccount,
	"debit_card":    types.PaymentDebitCard,
	"credit_card":   types.PaymentCreditCard,
}

func NewRemitbeeProvider(pctx Context, endpoints Endpoint) *RemitbeeProvider {
	if endpoints.Rest == "" {
		endpoints = Endpoint{Name: ProviderRemitbee, Rest: remitbeeRestHost}
	}
	return &RemitbeeProvider{
		ctx:       pctx,
		client:    pctx.HTTPClient(defaultTimeout),
		logger:    pctx.Logger.With().Str("provider", ProviderRemitbee.String()).Logger(),
		endpoints: endpoints,
	}
}

func (p *RemitbeeProvider) ID() string {
	return ProviderRemitbee.String()
}

func (p *RemitbeeProvider) DisplayName() string {
	return "Remitbee"
}

// SupportedCorridors lists the CA-origin corridors Remitbee serves.
func (p *RemitbeeProvider) SupportedCorridors() []types.Corridor {
	corridors := make([]types.Corridor, 0, len(remitbeeCountryIDs))
	for dest := range remitbeeCountryIDs {
		corridors = append(corridors, types.Corridor{SourceCountry: "CA", DestCountry: dest})
	}
	return corridors
}

func (p *RemitbeeProvider) Quote(ctx context.Context, req types.QuoteRequest) types.RawResult {
	id := p.ID()

	if req.SourceCountry != "CA" || req.SourceCurrency != "CAD" {
		return types.NewRawFailure(id, types.ErrUnsupportedCorridor,
			fmt.Sprintf("remitbee only sends from CA/CAD, got %s/%s", req.SourceCountry, req.SourceCurrency))
	}
	countryID, ok := remitbeeCountryIDs[req.DestCountry]
	if !ok {
		return types.NewRawFailure(id, types.ErrUnsupportedCorridor,
			fmt.Sprintf("remitbee does not serve destination %s", req.DestCountry))
	}
	destCcy, ok := destCurrency(p.ctx, req)
	if !ok {
		return types.NewRawFailure(id, types.ErrInvalidParameter,
			fmt.Sprintf("no currency known for destination %s", req.DestCountry))
	}

	payload := remitbeeQuoteRequest{
		TransferAmount:  req.Amount.StringFixed(2),
		CountryID:       countryID,
		CurrencyCode:    destCcy,
		IncludeTimeline: true,
		SourceCurrency:  "CAD",
		SourceCountry:   "CA",
	}
	headers := map[string]string{
		"Origin":  "https://www.remitbee.com",
		"Referer": "https://www.remitbee.com/send-money",
	}

	var quote remitbeeQuoteResponse
	raw, err := postJSON(ctx, p.client, p.endpoints.Rest+remitbeeQuotePath, headers, payload, &quote)
	if err != nil {
		return failureFromError(id, ctx, err)
	}
	if quote.Error != "" {
		return types.NewRawFailure(id, types.ErrProviderAPI, quote.Error)
	}

	return p.toRawResult(req, destCcy, quote, raw)
}

func (p *RemitbeeProvider) toRawResult(
	req types.QuoteRequest,
	destCcy string,
	quote remitbeeQuoteResponse,
	raw json.RawMessage,
) types.RawResult {
	id := p.ID()

	rate, err := p.selectRate(quote, req.Amount)
	if err != nil {
		return types.NewRawFailure(id, types.ErrParsing, err.Error())
	}

	options := make([]PriceOption, 0, len(quote.Fees))
	for _, fee := range quote.Fees {
		amount, err := parseDecimal(fee.Amount)
		if err != nil {
			p.logger.Debug().Str("fee_type", fee.Type).Msg("skipping unparseable fee entry")
			continue
		}
		payment, ok := remitbeePaymentTokens[strings.ToLower(fee.Type)]
		if !ok {
			payment = types.PaymentUnknown
		}
		options = append(options, PriceOption{
			PaymentMethod:       payment,
			DeliveryMethod:      types.DeliveryBankDeposit,
			Fee:                 amount,
			DeliveryTimeMinutes: estimateDeliveryMinutes(quote.Timeline.Estimate),
		})
	}
	opt, ok := pickPrimaryOption(options)
	if !ok {
		return types.NewRawFailure(id, types.ErrParsing, "no fee options in remitbee payload")
	}

	destAmount := req.Amount.Mul(rate)
	return rawSuccess(id, req, destCcy, destAmount, decPtr(rate), decPtr(opt.Fee), opt, raw)
}

// selectRate resolves the effective rate: the tier band containing the
// amount wins over the flat rate when tiers are present.
func (p *RemitbeeProvider) selectRate(quote remitbeeQuoteResponse, amount decimal.Decimal) (decimal.Decimal, error) {
	if len(quote.RateTiers) > 0 {
		tiers := make([]RateTier, 0, len(quote.RateTiers))
		for _, t := range quote.RateTiers {
			min, err := parseDecimal(t.MinAmount)
			if err != nil {
				continue
			}
			max, err := parseDecimal(t.MaxAmount)
			if err != nil {
				continue
			}
			rate, err := parseDecimal(t.Rate)
			if err != nil {
				continue
			}
			tiers = append(tiers, RateTier{Min: min, Max: max, Rate: rate})
		}
		if tier, ok := selectTier(tiers, amount); ok {
			return tier.Rate, nil
		}
	}
	if quote.Rate == "" {
		return decimal.Decimal{}, fmt.Errorf("remitbee payload carries no rate")
	}
	return parseDecimal(quote.Rate)
}
