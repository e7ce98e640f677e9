package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"remit-scout/quotes/types"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	riaRestHost      = "https://public.riamoneytransfer.com"
	riaSessionPath   = "/Authorization/session"
	riaCalculatePath = "/MoneyTransferCalculator/Calculate"

	// riaTokenLifetime is assumed when the session response omits expiry.
	riaTokenLifetime = 30 * time.Minute
)

var _ Adapter = (*RiaProvider)(nil)

type (
	// RiaProvider integrates the Ria public money-transfer calculator. The
	// calculator wants a short-lived bearer token minted by the session
	// endpoint; the token arrives in the "bearer" response header and is
	// cached until close to expiry.
	RiaProvider struct {
		ctx       Context
		client    *http.Client
		logger    zerolog.Logger
		endpoints Endpoint

		mtx         sync.Mutex
		bearerToken string
		tokenExpiry time.Time
	}

	riaCalculateRequest struct {
		Selections riaSelections `json:"selections"`
	}

	riaSelections struct {
		CountryTo          string          `json:"countryTo"`
		AmountFrom         decimal.Decimal `json:"amountFrom"`
		AmountTo           *decimal.Decimal `json:"amountTo"`
		CurrencyFrom       string          `json:"currencyFrom"`
		CurrencyTo         *string         `json:"currencyTo"`
		PaymentMethod      string          `json:"paymentMethod"`
		DeliveryMethod     string          `json:"deliveryMethod"`
		ShouldCalcAmountFrom bool          `json:"shouldCalcAmountFrom"`
		ShouldCalcVariableRates bool       `json:"shouldCalcVariableRates"`
		PromoID            int             `json:"promoId"`
		CountryFrom        string          `json:"countryFrom"`
	}

	riaCalculateResponse struct {
		Model         riaModel         `json:"model"`
		Calculations  riaCalculations  `json:"calculations"`
		ErrorResponse riaErrorResponse `json:"errorResponse"`
	}

	riaModel struct {
		Calculations    riaCalculations    `json:"calculations"`
		TransferDetails riaTransferDetails `json:"transferDetails"`
	}

	riaTransferDetails struct {
		Calculations riaCalculations `json:"calculations"`
	}

	riaCalculations struct {
		ExchangeRate      *decimal.Decimal `json:"exchangeRate"`
		TransferFee       *decimal.Decimal `json:"transferFee"`
		AmountTo          *decimal.Decimal `json:"amountTo"`
		TotalFeesAndTaxes *decimal.Decimal `json:"totalFeesAndTaxes"`
		CurrencyTo        string           `json:"currencyTo"`
	}

	riaErrorResponse struct {
		Errors []riaError `json:"errors"`
	}

	riaError struct {
		Message string `json:"message"`
	}
)

// riaPaymentMethods maps canonical payment tokens to Ria's identifiers.
var riaPaymentMethods = map[string]string{
	types.PaymentBankAccount: "BankAccount",
	types.PaymentDebitCard:   "DebitCard",
	types.PaymentCreditCard:  "CreditCard",
}

// riaDeliveryMethods maps canonical delivery tokens to Ria's identifiers.
var riaDeliveryMethods = map[string]string{
	types.DeliveryBankDeposit: "BankDeposit",
	types.DeliveryCashPickup:  "OfficePickup",
	types.DeliveryMobile:      "MobileWallet",
	types.DeliveryHome:        "HomeDelivery",
}

func NewRiaProvider(pctx Context, endpoints Endpoint) *RiaProvider {
	if endpoints.Rest == "" {
		endpoints = Endpoint{Name: ProviderRia, Rest: riaRestHost}
	}
	return &RiaProvider{
		ctx:       pctx,
		client:    pctx.HTTPClient(defaultTimeout),
		logger:    pctx.Logger.With().Str("provider", ProviderRia.String()).Logger(),
		endpoints: endpoints,
	}
}

func (p *RiaProvider) ID() string {
	return ProviderRia.String()
}

func (p *RiaProvider) DisplayName() string {
	return "Ria Money Transfer"
}

func (p *RiaProvider) Quote(ctx context.Context, req types.QuoteRequest) types.RawResult {
	id := p.ID()

	token, err := p.sessionToken(ctx)
	if err != nil {
		return failureFromError(id, ctx, err)
	}

	payment := "DebitCard"
	if m, ok := riaPaymentMethods[req.PaymentMethod]; ok {
		payment = m
	}
	delivery := "BankDeposit"
	if m, ok := riaDeliveryMethods[req.DeliveryMethod]; ok {
		delivery = m
	}

	payload := riaCalculateRequest{
		Selections: riaSelections{
			CountryTo:               req.DestCountry,
			AmountFrom:              req.Amount,
			CurrencyFrom:            strings.ToUpper(req.SourceCurrency),
			PaymentMethod:           payment,
			DeliveryMethod:          delivery,
			ShouldCalcVariableRates: true,
			CountryFrom:             req.SourceCountry,
		},
	}
	headers := map[string]string{
		"Authorization": "Bearer " + token,
	}

	var resp riaCalculateResponse
	raw, err := postJSON(ctx, p.client, p.endpoints.Rest+riaCalculatePath, headers, payload, &resp)
	if err != nil {
		return failureFromError(id, ctx, err)
	}
	if len(resp.ErrorResponse.Errors) > 0 {
		return types.NewRawFailure(id, types.ErrProviderAPI, resp.ErrorResponse.Errors[0].Message)
	}

	return p.toRawResult(req, resp, raw)
}

func (p *RiaProvider) toRawResult(req types.QuoteRequest, resp riaCalculateResponse, raw json.RawMessage) types.RawResult {
	id := p.ID()

	calc := riaPickCalculations(resp)
	if calc.ExchangeRate == nil || calc.AmountTo == nil {
		return types.NewRawFailure(id, types.ErrParsing, "ria response carries no calculations")
	}

	destCcy := strings.ToUpper(calc.CurrencyTo)
	if destCcy == "" {
		var ok bool
		destCcy, ok = destCurrency(p.ctx, req)
		if !ok {
			return types.NewRawFailure(id, types.ErrParsing, "ria response carries no payout currency")
		}
	}

	fee := calc.TransferFee
	if calc.TotalFeesAndTaxes != nil {
		fee = calc.TotalFeesAndTaxes
	}

	opt := PriceOption{
		PaymentMethod:       canonicalOrDefault(req.PaymentMethod, types.PaymentDebitCard),
		DeliveryMethod:      canonicalOrDefault(req.DeliveryMethod, types.DeliveryBankDeposit),
		DeliveryTimeMinutes: intPtr(2160), // 24-48 hours
	}
	if fee != nil {
		opt.Fee = *fee
	}
	return rawSuccess(id, req, destCcy, *calc.AmountTo, calc.ExchangeRate, fee, opt, raw)
}

// riaPickCalculations probes the three places the calculator is known to put
// its numbers.
func riaPickCalculations(resp riaCalculateResponse) riaCalculations {
	if resp.Model.Calculations.ExchangeRate != nil {
		return resp.Model.Calculations
	}
	if resp.Model.TransferDetails.Calculations.ExchangeRate != nil {
		return resp.Model.TransferDetails.Calculations
	}
	return resp.Calculations
}

func canonicalOrDefault(token, fallback string) string {
	if token == "" || token == types.PaymentUnknown {
		return fallback
	}
	return token
}

// sessionToken returns the cached bearer token, minting a fresh one through
// the session endpoint when missing or within a minute of expiry.
func (p *RiaProvider) sessionToken(ctx context.Context) (string, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if p.bearerToken != "" && p.ctx.Now().Before(p.tokenExpiry.Add(-time.Minute)) {
		return p.bearerToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoints.Rest+riaSessionPath, nil)
	if err != nil {
		return "", newHTTPFailure(types.ErrInternal, err)
	}
	applyHeaders(req, nil)

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", newHTTPFailure(types.ErrTimeout, ctx.Err())
		}
		return "", newHTTPFailure(types.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", newHTTPFailure(classifyStatus(resp.StatusCode),
			fmt.Errorf("session request failed: %s", resp.Status))
	}
	token := resp.Header.Get("bearer")
	if token == "" {
		return "", newHTTPFailure(types.ErrAuthentication,
			fmt.Errorf("no bearer token in session response"))
	}

	p.bearerToken = token
	p.tokenExpiry = p.ctx.Now().Add(riaTokenLifetime)
	p.logger.Debug().Time("expires", p.tokenExpiry).Msg("minted ria session token")
	return token, nil
}
