package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"remit-scout/quotes/types"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	wirebarleyRestHost   = "https://www.wirebarley.com"
	wirebarleyExRatePath = "/my/remittance/api/v1/exrate"

	// wirebarleyTierSlots is the number of fee/rate slots the payload can
	// carry (fee1..fee10, threshold1..threshold10).
	wirebarleyTierSlots = 10
)

var _ Adapter = (*WireBarleyProvider)(nil)

type (
	// WireBarleyProvider integrates the WireBarley exchange-rate API. The
	// endpoint sits behind a browser session, so the adapter needs a cookie
	// header captured from a logged-in session; without one the provider is
	// registered disabled. Rates and fees are both threshold-tiered: the
	// wbRateData object carries rateN/thresholdN pairs and each fee entry
	// feeN/thresholdN pairs, where thresholdN is the tier's upper bound.
	WireBarleyProvider struct {
		ctx       Context
		client    *http.Client
		logger    zerolog.Logger
		endpoints Endpoint
		cookies   string
	}

	wirebarleyResponse struct {
		Status int             `json:"status"`
		Data   *wirebarleyData `json:"data"`
	}

	wirebarleyData struct {
		ExRates []wirebarleyExRate `json:"exRates"`
	}

	wirebarleyExRate struct {
		Country      string                     `json:"country"`
		Currency     string                     `json:"currency"`
		WbRate       decimal.Decimal            `json:"wbRate"`
		BaseRate     decimal.Decimal            `json:"baseRate"`
		Status       string                     `json:"status"`
		WbRateData   map[string]json.RawMessage `json:"wbRateData"`
		PaymentFees  []wirebarleyFeeItem        `json:"paymentFees"`
		TransferFees []wirebarleyFeeItem        `json:"transferFees"`
	}

	wirebarleyFeeItem struct {
		Option string          `json:"option"`
		Dest   string          `json:"dest"`
		Min    decimal.Decimal `json:"min"`
		Max    decimal.Decimal `json:"max"`
		Extra  map[string]json.RawMessage `json:"-"`
	}

	// wirebarleyTier is one threshold band, value meaning rate or fee
	// depending on origin.
	wirebarleyTier struct {
		Threshold decimal.Decimal
		Value     decimal.Decimal
	}
)

// wirebarleyPaymentOptions maps fee options to canonical payment tokens.
var wirebarleyPaymentOptions = map[string]string{
	"CREDIT_DEBIT_CARD": types.PaymentDebitCard,
	"ACH":               types.PaymentBankAccount,
	"ACH_EXPRESS":       types.PaymentBankAccount,
	"WIRE":              types.PaymentBankAccount,
}

func NewWireBarleyProvider(pctx Context, endpoints Endpoint) *WireBarleyProvider {
	if endpoints.Rest == "" {
		endpoints = Endpoint{Name: ProviderWireBarley, Rest: wirebarleyRestHost}
	}
	return &WireBarleyProvider{
		ctx:       pctx,
		client:    pctx.HTTPClient(defaultTimeout),
		logger:    pctx.Logger.With().Str("provider", ProviderWireBarley.String()).Logger(),
		endpoints: endpoints,
		cookies:   pctx.Credential("WIREBARLEY_COOKIES"),
	}
}

func (p *WireBarleyProvider) ID() string {
	return ProviderWireBarley.String()
}

func (p *WireBarleyProvider) DisplayName() string {
	return "WireBarley"
}

func (p *WireBarleyProvider) Quote(ctx context.Context, req types.QuoteRequest) types.RawResult {
	id := p.ID()

	if p.cookies == "" {
		return types.NewRawFailure(id, types.ErrAuthentication,
			"wirebarley session cookies not configured")
	}
	destCcy, ok := destCurrency(p.ctx, req)
	if !ok {
		return types.NewRawFailure(id, types.ErrInvalidParameter,
			fmt.Sprintf("no currency known for destination %s", req.DestCountry))
	}

	endpoint := fmt.Sprintf("%s%s/%s/%s",
		p.endpoints.Rest, wirebarleyExRatePath, req.SourceCountry, strings.ToUpper(req.SourceCurrency))
	headers := map[string]string{
		"Cookie":      p.cookies,
		"Device-Type": "web",
	}

	var resp wirebarleyResponse
	raw, err := getJSON(ctx, p.client, endpoint, headers, &resp)
	if err != nil {
		return failureFromError(id, ctx, err)
	}
	if resp.Status != 0 || resp.Data == nil {
		return types.NewRawFailure(id, types.ErrProviderAPI,
			fmt.Sprintf("wirebarley returned status %d", resp.Status))
	}

	for _, ex := range resp.Data.ExRates {
		if ex.Country == req.DestCountry && ex.Currency == destCcy {
			return p.toRawResult(req, destCcy, ex, raw)
		}
	}
	return types.NewRawFailure(id, types.ErrUnsupportedCorridor,
		fmt.Sprintf("wirebarley does not serve %s/%s from %s", req.DestCountry, destCcy, req.SourceCountry))
}

func (p *WireBarleyProvider) toRawResult(req types.QuoteRequest, destCcy string, ex wirebarleyExRate, raw json.RawMessage) types.RawResult {
	id := p.ID()

	if ex.Status != "" && ex.Status != "ACTIVE" {
		return types.NewRawFailure(id, types.ErrProviderAPI,
			fmt.Sprintf("wirebarley corridor status %s", ex.Status))
	}

	rate := wirebarleySelectRate(ex, req.Amount)
	if rate.IsZero() {
		return types.NewRawFailure(id, types.ErrParsing, "wirebarley corridor carries no rate")
	}

	fee, payment, ok := wirebarleySelectFee(ex, req.Amount)
	if !ok {
		return types.NewRawFailure(id, types.ErrProviderAPI,
			fmt.Sprintf("amount %s outside wirebarley fee bands", req.Amount))
	}

	receive := req.Amount.Mul(rate)
	opt := PriceOption{
		PaymentMethod:       payment,
		DeliveryMethod:      types.DeliveryBankDeposit,
		Fee:                 fee,
		DeliveryTimeMinutes: intPtr(1440),
	}
	return rawSuccess(id, req, destCcy, receive, decPtr(rate), decPtr(fee), opt, raw)
}

// wirebarleySelectRate walks the wbRateData threshold pairs and picks the
// first band whose upper bound covers the amount, falling back to the flat
// wbRate.
func wirebarleySelectRate(ex wirebarleyExRate, amount decimal.Decimal) decimal.Decimal {
	tiers := wirebarleyRateTiers(ex.WbRateData)
	for _, tier := range tiers {
		if amount.LessThanOrEqual(tier.Threshold) {
			return tier.Value
		}
	}
	return ex.WbRate
}

// wirebarleyRateTiers decodes {"threshold":500,"wbRate":32.03,
// "threshold1":1000,"wbRate1":32.05,...} into ordered bands.
func wirebarleyRateTiers(data map[string]json.RawMessage) []wirebarleyTier {
	if len(data) == 0 {
		return nil
	}
	tiers := make([]wirebarleyTier, 0, wirebarleyTierSlots)
	for i := 0; i <= wirebarleyTierSlots; i++ {
		suffix := ""
		if i > 0 {
			suffix = strconv.Itoa(i)
		}
		threshold, okT := wirebarleyNumber(data, "threshold"+suffix)
		rate, okR := wirebarleyNumber(data, "wbRate"+suffix)
		if !okT || !okR {
			continue
		}
		tiers = append(tiers, wirebarleyTier{Threshold: threshold, Value: rate})
	}
	sort.Slice(tiers, func(i, j int) bool {
		return tiers[i].Threshold.LessThan(tiers[j].Threshold)
	})
	return tiers
}

// wirebarleySelectFee picks the cheapest applicable fee across the payment
// and transfer fee tables.
func wirebarleySelectFee(ex wirebarleyExRate, amount decimal.Decimal) (decimal.Decimal, string, bool) {
	var (
		best        decimal.Decimal
		bestPayment string
		found       bool
	)
	consider := func(item wirebarleyFeeItem) {
		if amount.LessThan(item.Min) || (item.Max.IsPositive() && amount.GreaterThan(item.Max)) {
			return
		}
		fee, ok := wirebarleyFeeForAmount(item, amount)
		if !ok {
			return
		}
		if !found || fee.LessThan(best) {
			best = fee
			bestPayment = wirebarleyPaymentToken(item.Option)
			found = true
		}
	}
	for _, item := range ex.PaymentFees {
		consider(item)
	}
	for _, item := range ex.TransferFees {
		consider(item)
	}
	return best, bestPayment, found
}

// wirebarleyFeeForAmount walks feeN/thresholdN pairs; thresholdN caps the
// band fee N applies to, the last fee having no cap.
func wirebarleyFeeForAmount(item wirebarleyFeeItem, amount decimal.Decimal) (decimal.Decimal, bool) {
	var (
		lastFee decimal.Decimal
		have    bool
	)
	for i := 1; i <= wirebarleyTierSlots; i++ {
		fee, okF := wirebarleyNumber(item.Extra, "fee"+strconv.Itoa(i))
		if !okF {
			break
		}
		lastFee, have = fee, true
		threshold, okT := wirebarleyNumber(item.Extra, "threshold"+strconv.Itoa(i))
		if okT && amount.LessThan(threshold) {
			return fee, true
		}
	}
	return lastFee, have
}

func wirebarleyNumber(data map[string]json.RawMessage, key string) (decimal.Decimal, bool) {
	rawVal, ok := data[key]
	if !ok {
		return decimal.Decimal{}, false
	}
	var d decimal.Decimal
	if err := json.Unmarshal(rawVal, &d); err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func wirebarleyPaymentToken(option string) string {
	if tok, ok := wirebarleyPaymentOptions[option]; ok {
		return tok
	}
	return types.PaymentUnknown
}

// UnmarshalJSON keeps the typed fields and captures the dynamic feeN and
// thresholdN keys in Extra.
func (f *wirebarleyFeeItem) UnmarshalJSON(b []byte) error {
	type alias wirebarleyFeeItem
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*f = wirebarleyFeeItem(a)
	return json.Unmarshal(b, &f.Extra)
}
