package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"remit-scout/quotes/types"

	"github.com/rs/zerolog"
)

const (
	alansariRestHost  = "https://alansariexchange.com"
	alansariAjaxPath  = "/wp-admin/admin-ajax.php"
	alansariTokenPath = "/currency-converter/"

	alansariStatusSuccess = "SUCCESS"
)

var _ Adapter = (*AlAnsariProvider)(nil)

type (
	// AlAnsariProvider integrates the Al Ansari Exchange rate converter, a
	// WordPress admin-ajax action behind the public currency page. Every
	// convert_action call wants a fresh security nonce scraped from the page
	// markup, and all corridors originate in the UAE with AED.
	AlAnsariProvider struct {
		ctx       Context
		client    *http.Client
		logger    zerolog.Logger
		endpoints Endpoint
	}

	alansariConvertResponse struct {
		StatusMsg string `json:"status_msg"`
		Rate      string `json:"rate"`
		Amount    string `json:"amount"`
		Fee       string `json:"charges"`
	}
)

// alansariCurrencyIDs maps ISO currency codes to the converter's internal
// ids, lifted from the page's select options.
var alansariCurrencyIDs = map[string]string{
	"AED": "1", "INR": "2", "PKR": "3", "PHP": "4", "BDT": "5",
	"LKR": "6", "NPR": "7", "EGP": "8", "USD": "9", "GBP": "10",
	"EUR": "11", "JOD": "12", "KES": "13", "MAD": "14", "IDR": "15",
}

var alansariNoncePattern = regexp.MustCompile(`"security"\s*:\s*"([a-f0-9]+)"`)

func NewAlAnsariProvider(pctx Context, endpoints Endpoint) *AlAnsariProvider {
	if endpoints.Rest == "" {
		endpoints = Endpoint{Name: ProviderAlAnsari, Rest: alansariRestHost}
	}
	return &AlAnsariProvider{
		ctx:       pctx,
		client:    pctx.HTTPClient(defaultTimeout),
		logger:    pctx.Logger.With().Str("provider", ProviderAlAnsari.String()).Logger(),
		endpoints: endpoints,
	}
}

func (p *AlAnsariProvider) ID() string {
	return ProviderAlAnsari.String()
}

func (p *AlAnsariProvider) DisplayName() string {
	return "Al Ansari Exchange"
}

func (p *AlAnsariProvider) Quote(ctx context.Context, req types.QuoteRequest) types.RawResult {
	id := p.ID()

	if req.SourceCountry != "AE" || strings.ToUpper(req.SourceCurrency) != "AED" {
		return types.NewRawFailure(id, types.ErrUnsupportedCorridor,
			fmt.Sprintf("alansari only sends from AE/AED, got %s/%s", req.SourceCountry, req.SourceCurrency))
	}
	destCcy, ok := destCurrency(p.ctx, req)
	if !ok {
		return types.NewRawFailure(id, types.ErrInvalidParameter,
			fmt.Sprintf("no currency known for destination %s", req.DestCountry))
	}
	srcID := alansariCurrencyIDs["AED"]
	dstID, ok := alansariCurrencyIDs[destCcy]
	if !ok {
		return types.NewRawFailure(id, types.ErrUnsupportedCorridor,
			fmt.Sprintf("alansari does not pay out %s", destCcy))
	}

	nonce, err := p.securityToken(ctx)
	if err != nil {
		return failureFromError(id, ctx, err)
	}

	values := url.Values{}
	values.Set("action", "convert_action")
	values.Set("currfrom", srcID)
	values.Set("currto", dstID)
	values.Set("cntcode", dstID)
	values.Set("amt", req.Amount.StringFixed(2))
	values.Set("security", nonce)
	values.Set("trtype", "BT")

	headers := map[string]string{
		"X-Requested-With": "XMLHttpRequest",
		"Origin":           alansariRestHost,
		"Referer":          alansariRestHost + "/",
	}

	body, err := postForm(ctx, p.client, p.endpoints.Rest+alansariAjaxPath, headers, values)
	if err != nil {
		return failureFromError(id, ctx, err)
	}

	var resp alansariConvertResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return types.NewRawFailure(id, types.ErrParsing, err.Error())
	}
	if resp.StatusMsg != alansariStatusSuccess {
		return types.NewRawFailure(id, types.ErrProviderAPI,
			fmt.Sprintf("alansari returned status %q", resp.StatusMsg))
	}

	return p.toRawResult(req, destCcy, resp, body)
}

func (p *AlAnsariProvider) toRawResult(req types.QuoteRequest, destCcy string, resp alansariConvertResponse, raw json.RawMessage) types.RawResult {
	id := p.ID()

	rate, err := parseDecimal(resp.Rate)
	if err != nil {
		return types.NewRawFailure(id, types.ErrParsing, err.Error())
	}
	receive, err := parseDecimal(resp.Amount)
	if err != nil {
		return types.NewRawFailure(id, types.ErrParsing, err.Error())
	}

	opt := PriceOption{
		PaymentMethod:       types.PaymentCash,
		DeliveryMethod:      types.DeliveryBankDeposit,
		DeliveryTimeMinutes: intPtr(1440),
	}
	if strings.TrimSpace(resp.Fee) != "" {
		fee, err := parseDecimal(resp.Fee)
		if err == nil {
			opt.Fee = fee
			return rawSuccess(id, req, destCcy, receive, decPtr(rate), decPtr(fee), opt, raw)
		}
	}
	// Fee missing from the payload; surface the quote with a nil fee and let
	// the normalizer decide.
	return rawSuccess(id, req, destCcy, receive, decPtr(rate), nil, opt, raw)
}

// securityToken scrapes the ajax nonce from the converter page markup.
func (p *AlAnsariProvider) securityToken(ctx context.Context) (string, error) {
	body, err := fetch(ctx, p.client, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, p.endpoints.Rest+alansariTokenPath, nil)
		if err != nil {
			return nil, err
		}
		applyHeaders(req, nil)
		return req, nil
	})
	if err != nil {
		return "", err
	}
	m := alansariNoncePattern.FindSubmatch(body)
	if m == nil {
		return "", newHTTPFailure(types.ErrAuthentication,
			fmt.Errorf("no security nonce in converter page"))
	}
	return string(m[1]), nil
}
