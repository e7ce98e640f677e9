package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"remit-scout/quotes/types"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	wiseRestHost  = "https://api.transferwise.com"
	wiseQuotePath = "/v3/quotes/"
)

var _ Adapter = (*WiseProvider)(nil)

type (
	// WiseProvider integrates Wise (formerly TransferWise) through the
	// unauthenticated v3 quote endpoint. The response carries a mid-market
	// rate plus a paymentOptions array of payIn x payOut combinations, each
	// with its own fee and delivery estimate.
	WiseProvider struct {
		ctx       Context
		client    *http.Client
		logger    zerolog.Logger
		endpoints Endpoint
		apiKey    string
	}

	wiseQuoteRequest struct {
		SourceCurrency string          `json:"sourceCurrency"`
		TargetCurrency string          `json:"targetCurrency"`
		SourceAmount   decimal.Decimal `json:"sourceAmount"`
	}

	wiseQuoteResponse struct {
		Rate           decimal.Decimal     `json:"rate"`
		PaymentOptions []wisePaymentOption `json:"paymentOptions"`
	}

	wisePaymentOption struct {
		Disabled          bool            `json:"disabled"`
		PayIn             string          `json:"payIn"`
		PayOut            string          `json:"payOut"`
		Fee               wiseFee         `json:"fee"`
		TargetAmount      decimal.Decimal `json:"targetAmount"`
		EstimatedDelivery string          `json:"formattedEstimatedDelivery"`
	}

	wiseFee struct {
		Total decimal.Decimal `json:"total"`
	}
)

// wisePayInTokens maps Wise payIn identifiers to canonical payment tokens.
var wisePayInTokens = map[string]string{
	"BANK_TRANSFER":      types.PaymentBankAccount,
	"PISP":               types.PaymentOpenBanking,
	"CARD":               types.PaymentCard,
	"DEBIT":              types.PaymentDebitCard,
	"DEBIT_CARD":         types.PaymentDebitCard,
	"CREDIT":             types.PaymentCreditCard,
	"CREDIT_CARD":        types.PaymentCreditCard,
	"BALANCE":            types.PaymentBalance,
	"SWIFT":              types.PaymentBankAccount,
	"INTERNATIONAL_CARD": types.PaymentCard,
}

// wisePayOutTokens maps Wise payOut identifiers to canonical delivery tokens.
var wisePayOutTokens = map[string]string{
	"BANK_TRANSFER": types.DeliveryBankDeposit,
	"SWIFT":         types.DeliveryBankDeposit,
	"BALANCE":       types.DeliveryMobile,
	"CASH_PICKUP":   types.DeliveryCashPickup,
	"CARD":          types.DeliveryDebitCard,
}

var wiseDayPattern = regexp.MustCompile(`(\d+)(?:-\d+)?\s*(?:business\s*)?days?`)

func NewWiseProvider(pctx Context, endpoints Endpoint) *WiseProvider {
	if endpoints.Rest == "" {
		endpoints = Endpoint{Name: ProviderWise, Rest: wiseRestHost}
	}
	return &WiseProvider{
		ctx:       pctx,
		client:    pctx.HTTPClient(defaultTimeout),
		logger:    pctx.Logger.With().Str("provider", ProviderWise.String()).Logger(),
		endpoints: endpoints,
		apiKey:    pctx.Credential("WISE_API_KEY"),
	}
}

func (p *WiseProvider) ID() string {
	return ProviderWise.String()
}

func (p *WiseProvider) DisplayName() string {
	return "Wise"
}

func (p *WiseProvider) Quote(ctx context.Context, req types.QuoteRequest) types.RawResult {
	id := p.ID()

	destCcy, ok := destCurrency(p.ctx, req)
	if !ok {
		return types.NewRawFailure(id, types.ErrInvalidParameter,
			fmt.Sprintf("no currency known for destination %s", req.DestCountry))
	}

	payload := wiseQuoteRequest{
		SourceCurrency: strings.ToUpper(req.SourceCurrency),
		TargetCurrency: destCcy,
		SourceAmount:   req.Amount,
	}
	headers := map[string]string{}
	if p.apiKey != "" {
		headers["Authorization"] = "Bearer " + p.apiKey
	}

	var quote wiseQuoteResponse
	raw, err := postJSON(ctx, p.client, p.endpoints.Rest+wiseQuotePath, headers, payload, &quote)
	if err != nil {
		return failureFromError(id, ctx, err)
	}
	if len(quote.PaymentOptions) == 0 {
		return types.NewRawFailure(id, types.ErrUnsupportedCorridor,
			fmt.Sprintf("wise offers no payment options for %s->%s", payload.SourceCurrency, destCcy))
	}

	return p.toRawResult(req, destCcy, quote, raw)
}

func (p *WiseProvider) toRawResult(
	req types.QuoteRequest,
	destCcy string,
	quote wiseQuoteResponse,
	raw json.RawMessage,
) types.RawResult {
	id := p.ID()

	options := make([]PriceOption, 0, len(quote.PaymentOptions))
	for _, po := range quote.PaymentOptions {
		if po.Disabled {
			continue
		}
		options = append(options, PriceOption{
			PaymentMethod:       wiseToken(wisePayInTokens, po.PayIn, types.PaymentUnknown),
			DeliveryMethod:      wiseToken(wisePayOutTokens, po.PayOut, types.DeliveryUnknown),
			Fee:                 po.Fee.Total,
			DestinationAmount:   po.TargetAmount,
			DeliveryTimeMinutes: wiseDeliveryMinutes(po.EstimatedDelivery),
		})
	}
	// Honor requested methods the way the web client does: narrow only when
	// the narrowing leaves at least one option.
	options = narrowOptions(options, req.PaymentMethod, req.DeliveryMethod)

	opt, ok := pickPrimaryOption(options)
	if !ok {
		return types.NewRawFailure(id, types.ErrProviderAPI, "all wise payment options disabled")
	}
	if opt.DestinationAmount.IsZero() {
		return types.NewRawFailure(id, types.ErrParsing, "wise option carries no target amount")
	}

	return rawSuccess(id, req, destCcy, opt.DestinationAmount, decPtr(quote.Rate), decPtr(opt.Fee), opt, raw)
}

// narrowOptions filters by the requested payment and delivery tokens,
// keeping the full set whenever a filter would empty it.
func narrowOptions(options []PriceOption, payment, delivery string) []PriceOption {
	if payment != "" && payment != types.PaymentUnknown {
		narrowed := make([]PriceOption, 0, len(options))
		for _, opt := range options {
			if opt.PaymentMethod == payment {
				narrowed = append(narrowed, opt)
			}
		}
		if len(narrowed) > 0 {
			options = narrowed
		}
	}
	if delivery != "" && delivery != types.DeliveryUnknown {
		narrowed := make([]PriceOption, 0, len(options))
		for _, opt := range options {
			if opt.DeliveryMethod == delivery {
				narrowed = append(narrowed, opt)
			}
		}
		if len(narrowed) > 0 {
			options = narrowed
		}
	}
	return options
}

func wiseToken(table map[string]string, key, fallback string) string {
	if tok, ok := table[strings.ToUpper(key)]; ok {
		return tok
	}
	return fallback
}

// wiseDeliveryMinutes translates Wise's formatted delivery estimates,
// ex.: "in seconds", "by tomorrow", "within 2 business days".
func wiseDeliveryMinutes(text string) *int {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return nil
	}
	switch {
	case strings.Contains(t, "second"), strings.Contains(t, "instant"):
		return intPtr(5)
	case strings.Contains(t, "today"), strings.Contains(t, "same day"), strings.Contains(t, "within hours"):
		return intPtr(180)
	case strings.Contains(t, "tomorrow"), strings.Contains(t, "next day"), strings.Contains(t, "1 day"):
		return intPtr(1440)
	}
	if m := wiseDayPattern.FindStringSubmatch(t); m != nil {
		days, err := strconv.Atoi(m[1])
		if err == nil {
			return intPtr(days * 24 * 60)
		}
	}
	return nil
}
