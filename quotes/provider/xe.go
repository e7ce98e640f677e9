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
	xeRestHost  = "https://launchpad-api.xe.com"
	xeQuotePath = "/v2/quotes"

	xeStatusQuoted = "Quoted"
)

var _ Adapter = (*XEProvider)(nil)

type (
	// XEProvider integrates XE Money Transfer through the launchpad quote
	// API. A quote fans out into individualQuotes, one per settlement and
	// delivery combination, with the default flagged by isDefault.
	XEProvider struct {
		ctx       Context
		client    *http.Client
		logger    zerolog.Logger
		endpoints Endpoint
	}

	xeQuoteRequest struct {
		SellCcy     string          `json:"sellCcy"`
		BuyCcy      string          `json:"buyCcy"`
		UserCountry string          `json:"userCountry"`
		Amount      decimal.Decimal `json:"amount"`
		FixedCcy    string          `json:"fixedCcy"`
		CountryTo   string          `json:"countryTo"`
	}

	xeQuoteResponse struct {
		Quote xeQuote `json:"quote"`
	}

	xeQuote struct {
		QuoteStatus      string            `json:"quoteStatus"`
		ErrorMessages    map[string]string `json:"errorMessages"`
		IndividualQuotes []xeIndividual    `json:"individualQuotes"`
	}

	xeIndividual struct {
		IsDefault        bool            `json:"isDefault"`
		IsEnabled        bool            `json:"isEnabled"`
		Rate             decimal.Decimal `json:"rate"`
		BuyAmount        string          `json:"buyAmount"`
		TransferFee      string          `json:"transferFee"`
		PaymentMethodFee string          `json:"paymentMethodFee"`
		LeadTime         string          `json:"leadTime"`
		SettlementMethod string          `json:"settlementMethod"`
		DeliveryMethod   string          `json:"deliveryMethod"`
	}
)

// xeSettlementTokens maps XE settlement methods to canonical payment tokens.
var xeSettlementTokens = map[string]string{
	"DirectDebit":  types.PaymentBankAccount,
	"BankTransfer": types.PaymentBankAccount,
	"DebitCard":    types.PaymentDebitCard,
	"CreditCard":   types.PaymentCreditCard,
}

// xeDeliveryTokens maps XE delivery methods to canonical delivery tokens.
var xeDeliveryTokens = map[string]string{
	"BankAccount":    types.DeliveryBankDeposit,
	"CashPayout":     types.DeliveryCashPickup,
	"MobileWallet":   types.DeliveryMobile,
	"FundsOnBalance": types.DeliveryMobile,
}

var (
	xeDayRangePattern = regexp.MustCompile(`(\d+)\s*-\s*(\d+)\s*day`)
	xeDayPattern      = regexp.MustCompile(`(\d+)\s*(?:business\s*)?day`)
	xeHourPattern     = regexp.MustCompile(`(\d+)\s*hour`)
	xeMinutePattern   = regexp.MustCompile(`(\d+)\s*minute`)
)

func NewXEProvider(pctx Context, endpoints Endpoint) *XEProvider {
	if endpoints.Rest == "" {
		endpoints = Endpoint{Name: ProviderXE, Rest: xeRestHost}
	}
	return &XEProvider{
		ctx:       pctx,
		client:    pctx.HTTPClient(defaultTimeout),
		logger:    pctx.Logger.With().Str("provider", ProviderXE.String()).Logger(),
		endpoints: endpoints,
	}
}

func (p *XEProvider) ID() string {
	return ProviderXE.String()
}

func (p *XEProvider) DisplayName() string {
	return "XE Money Transfer"
}

func (p *XEProvider) Quote(ctx context.Context, req types.QuoteRequest) types.RawResult {
	id := p.ID()

	destCcy, ok := destCurrency(p.ctx, req)
	if !ok {
		return types.NewRawFailure(id, types.ErrInvalidParameter,
			fmt.Sprintf("no currency known for destination %s", req.DestCountry))
	}

	payload := xeQuoteRequest{
		SellCcy:     strings.ToUpper(req.SourceCurrency),
		BuyCcy:      destCcy,
		UserCountry: req.SourceCountry,
		Amount:      req.Amount,
		FixedCcy:    strings.ToUpper(req.SourceCurrency),
		CountryTo:   req.DestCountry,
	}
	headers := map[string]string{
		"Origin":  "https://www.xe.com",
		"Referer": "https://www.xe.com/",
	}

	var resp xeQuoteResponse
	raw, err := postJSON(ctx, p.client, p.endpoints.Rest+xeQuotePath, headers, payload, &resp)
	if err != nil {
		return failureFromError(id, ctx, err)
	}

	quote := resp.Quote
	if quote.QuoteStatus != "" && quote.QuoteStatus != xeStatusQuoted {
		return types.NewRawFailure(id, types.ErrProviderAPI, xeErrorText(quote))
	}
	if len(quote.IndividualQuotes) == 0 {
		return types.NewRawFailure(id, types.ErrUnsupportedCorridor,
			fmt.Sprintf("xe returned no quotes for %s->%s", payload.SellCcy, destCcy))
	}

	return p.toRawResult(req, destCcy, quote, raw)
}

func (p *XEProvider) toRawResult(
	req types.QuoteRequest,
	destCcy string,
	quote xeQuote,
	raw json.RawMessage,
) types.RawResult {
	id := p.ID()

	options := make([]PriceOption, 0, len(quote.IndividualQuotes))
	for _, iq := range quote.IndividualQuotes {
		if !iq.IsEnabled {
			continue
		}
		buyAmount, err := parseDecimal(iq.BuyAmount)
		if err != nil {
			p.logger.Debug().Str("buy_amount", iq.BuyAmount).Msg("skipping quote with bad buy amount")
			continue
		}
		fee, err := xeTotalFee(iq)
		if err != nil {
			continue
		}
		rate := iq.Rate
		options = append(options, PriceOption{
			PaymentMethod:       xeToken(xeSettlementTokens, iq.SettlementMethod, types.PaymentUnknown),
			DeliveryMethod:      xeToken(xeDeliveryTokens, iq.DeliveryMethod, types.DeliveryUnknown),
			Fee:                 fee,
			DestinationAmount:   buyAmount,
			ExchangeRate:        decPtr(rate),
			DeliveryTimeMinutes: xeLeadTimeMinutes(iq.LeadTime),
			Default:             iq.IsDefault,
		})
	}
	options = narrowOptions(options, req.PaymentMethod, req.DeliveryMethod)

	opt, ok := pickPrimaryOption(options)
	if !ok {
		return types.NewRawFailure(id, types.ErrProviderAPI, "no enabled quote in xe response")
	}
	return rawSuccess(id, req, destCcy, opt.DestinationAmount, opt.ExchangeRate, decPtr(opt.Fee), opt, raw)
}

// xeTotalFee sums the transfer fee and the payment-method surcharge.
func xeTotalFee(iq xeIndividual) (decimal.Decimal, error) {
	fee, err := parseDecimal(iq.TransferFee)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if strings.TrimSpace(iq.PaymentMethodFee) != "" {
		surcharge, err := parseDecimal(iq.PaymentMethodFee)
		if err != nil {
			return decimal.Decimal{}, err
		}
		fee = fee.Add(surcharge)
	}
	return fee, nil
}

func xeToken(table map[string]string, key, fallback string) string {
	if tok, ok := table[strings.TrimSpace(key)]; ok {
		return tok
	}
	return fallback
}

func xeErrorText(quote xeQuote) string {
	if len(quote.ErrorMessages) == 0 {
		return fmt.Sprintf("xe quote failed with status %s", quote.QuoteStatus)
	}
	parts := make([]string, 0, len(quote.ErrorMessages))
	for k, v := range quote.ErrorMessages {
		parts = append(parts, k+": "+v)
	}
	return fmt.Sprintf("xe quote failed with status %s: %s", quote.QuoteStatus, strings.Join(parts, "; "))
}

// xeLeadTimeMinutes parses lead times like "Within 1-2 days", "24 hours" or
// "Takes minutes".
func xeLeadTimeMinutes(text string) *int {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return nil
	}
	if m := xeDayRangePattern.FindStringSubmatch(t); m != nil {
		d1, err1 := strconv.Atoi(m[1])
		d2, err2 := strconv.Atoi(m[2])
		if err1 == nil && err2 == nil {
			return intPtr((d1 + d2) / 2 * 24 * 60)
		}
	}
	if m := xeDayPattern.FindStringSubmatch(t); m != nil {
		if days, err := strconv.Atoi(m[1]); err == nil {
			return intPtr(days * 24 * 60)
		}
	}
	if m := xeHourPattern.FindStringSubmatch(t); m != nil {
		if hours, err := strconv.Atoi(m[1]); err == nil {
			return intPtr(hours * 60)
		}
	}
	if m := xeMinutePattern.FindStringSubmatch(t); m != nil {
		if minutes, err := strconv.Atoi(m[1]); err == nil {
			return intPtr(minutes)
		}
	}
	if strings.Contains(t, "instant") || strings.Contains(t, "same day") || strings.Contains(t, "takes minutes") {
		return intPtr(60)
	}
	return nil
}
