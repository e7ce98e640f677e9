package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"remit-scout/quotes/types"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	transfergoRestHost   = "https://my.transfergo.com"
	transfergoQuotesPath = "/api/booking/quotes"
)

var _ Adapter = (*TransferGoProvider)(nil)

type (
	// TransferGoProvider integrates the TransferGo booking quote API. One
	// call returns every pay-in/pay-out option for the corridor, the default
	// flagged with isDefault, amounts wrapped in {value, currency} envelopes.
	TransferGoProvider struct {
		ctx       Context
		client    *http.Client
		logger    zerolog.Logger
		endpoints Endpoint
	}

	transfergoQuotesResponse struct {
		Options []transfergoOption `json:"options"`
		Error   *transfergoError   `json:"error"`
	}

	transfergoError struct {
		Message string `json:"message"`
	}

	transfergoOption struct {
		IsDefault       bool              `json:"isDefault"`
		Fee             transfergoAmount  `json:"fee"`
		Rate            transfergoAmount  `json:"rate"`
		SendingAmount   transfergoAmount  `json:"sendingAmount"`
		ReceivingAmount transfergoAmount  `json:"receivingAmount"`
		PayInMethod     transfergoMethod  `json:"payInMethod"`
		PayOutMethod    transfergoMethod  `json:"payOutMethod"`
		Delivery        transfergoDelivery `json:"delivery"`
	}

	transfergoAmount struct {
		Value    decimal.Decimal `json:"value"`
		Currency string          `json:"currency"`
	}

	transfergoMethod struct {
		Type string `json:"type"`
	}

	transfergoDelivery struct {
		Time string `json:"time"`
	}
)

// transfergoPayInTokens maps TransferGo pay-in types to canonical tokens.
var transfergoPayInTokens = map[string]string{
	"BANK_TRANSFER": types.PaymentBankAccount,
	"CARD":          types.PaymentCard,
	"DEBIT_CARD":    types.PaymentDebitCard,
	"CREDIT_CARD":   types.PaymentCreditCard,
	"OPEN_BANKING":  types.PaymentOpenBanking,
}

// transfergoPayOutTokens maps TransferGo pay-out types to canonical tokens.
var transfergoPayOutTokens = map[string]string{
	"BANK_TRANSFER": types.DeliveryBankDeposit,
	"CASH_PICKUP":   types.DeliveryCashPickup,
	"MOBILE_WALLET": types.DeliveryMobile,
	"CARD":          types.DeliveryDebitCard,
}

var transfergoHourPattern = regexp.MustCompile(`(\d+)\s*h`)

func NewTransferGoProvider(pctx Context, endpoints Endpoint) *TransferGoProvider {
	if endpoints.Rest == "" {
		endpoints = Endpoint{Name: ProviderTransferGo, Rest: transfergoRestHost}
	}
	return &TransferGoProvider{
		ctx:       pctx,
		client:    pctx.HTTPClient(defaultTimeout),
		logger:    pctx.Logger.With().Str("provider", ProviderTransferGo.String()).Logger(),
		endpoints: endpoints,
	}
}

func (p *TransferGoProvider) ID() string {
	return ProviderTransferGo.String()
}

func (p *TransferGoProvider) DisplayName() string {
	return "TransferGo"
}

func (p *TransferGoProvider) Quote(ctx context.Context, req types.QuoteRequest) types.RawResult {
	id := p.ID()

	destCcy, ok := destCurrency(p.ctx, req)
	if !ok {
		return types.NewRawFailure(id, types.ErrInvalidParameter,
			fmt.Sprintf("no currency known for destination %s", req.DestCountry))
	}

	values := url.Values{}
	values.Set("fromCurrencyCode", strings.ToUpper(req.SourceCurrency))
	values.Set("toCurrencyCode", destCcy)
	values.Set("fromCountryCode", req.SourceCountry)
	values.Set("toCountryCode", req.DestCountry)
	values.Set("amount", req.Amount.String())
	values.Set("calculationBase", "sendAmount")
	values.Set("business", "0")

	var resp transfergoQuotesResponse
	raw, err := getJSON(ctx, p.client, p.endpoints.Rest+transfergoQuotesPath+"?"+values.Encode(), nil, &resp)
	if err != nil {
		return failureFromError(id, ctx, err)
	}
	if resp.Error != nil {
		return types.NewRawFailure(id, types.ErrProviderAPI, resp.Error.Message)
	}
	if len(resp.Options) == 0 {
		return types.NewRawFailure(id, types.ErrUnsupportedCorridor,
			fmt.Sprintf("transfergo offers no options for %s->%s", req.SourceCurrency, destCcy))
	}

	return p.toRawResult(req, destCcy, resp.Options, raw)
}

func (p *TransferGoProvider) toRawResult(req types.QuoteRequest, destCcy string, tgOptions []transfergoOption, raw json.RawMessage) types.RawResult {
	id := p.ID()

	options := make([]PriceOption, 0, len(tgOptions))
	for _, o := range tgOptions {
		options = append(options, PriceOption{
			PaymentMethod:       tokenOrDefault(transfergoPayInTokens, o.PayInMethod.Type, types.PaymentUnknown),
			DeliveryMethod:      tokenOrDefault(transfergoPayOutTokens, o.PayOutMethod.Type, types.DeliveryUnknown),
			Fee:                 o.Fee.Value,
			DestinationAmount:   o.ReceivingAmount.Value,
			ExchangeRate:        decPtr(o.Rate.Value),
			DeliveryTimeMinutes: transfergoDeliveryMinutes(o.Delivery.Time),
			Default:             o.IsDefault,
		})
	}
	options = narrowOptions(options, req.PaymentMethod, req.DeliveryMethod)

	opt, ok := pickPrimaryOption(options)
	if !ok {
		return types.NewRawFailure(id, types.ErrProviderAPI, "no usable transfergo option")
	}
	if opt.DestinationAmount.IsZero() {
		return types.NewRawFailure(id, types.ErrParsing, "transfergo option carries no receiving amount")
	}
	return rawSuccess(id, req, destCcy, opt.DestinationAmount, opt.ExchangeRate, decPtr(opt.Fee), opt, raw)
}

func tokenOrDefault(table map[string]string, key, fallback string) string {
	if tok, ok := table[strings.ToUpper(key)]; ok {
		return tok
	}
	return fallback
}

// transfergoDeliveryMinutes parses estimates like "30 minutes", "2h" or
// "1 day", falling back to the shared text table.
func transfergoDeliveryMinutes(text string) *int {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return nil
	}
	if minutes := estimateDeliveryMinutes(t); minutes != nil {
		return minutes
	}
	if m := transfergoHourPattern.FindStringSubmatch(t); m != nil {
		if hours, err := strconv.Atoi(m[1]); err == nil {
			return intPtr(hours * 60)
		}
	}
	if strings.Contains(t, "day") {
		return intPtr(1440)
	}
	return nil
}
