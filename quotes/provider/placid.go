package provider

import (
	"context"
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
	placidRestHost  = "https://www.placid.net"
	placidQuotePath = "/conf/sqls/pstRqstNS.php"
)

var _ Adapter = (*PlacidProvider)(nil)

type (
	// PlacidProvider integrates the Placid rate board, a legacy PHP endpoint
	// that answers a form post with a pipe-delimited text blob. The board
	// publishes a rate per corridor code (ex. "PAK", "IND") without fees, so
	// quotes carry a zero fee and the board rate.
	PlacidProvider struct {
		ctx       Context
		client    *http.Client
		logger    zerolog.Logger
		endpoints Endpoint
	}
)

// placidCorridors maps destination countries to the board's corridor codes
// and payout currencies.
var placidCorridors = map[string]struct {
	Code     string
	Currency string
}{
	"PK": {"PAK", "PKR"},
	"IN": {"IND", "INR"},
	"BD": {"BGD", "BDT"},
	"PH": {"PHL", "PHP"},
	"NP": {"NPL", "NPR"},
	"LK": {"LKA", "LKR"},
	"ID": {"IDN", "IDR"},
	"VN": {"VNM", "VND"},
}

// placidSourceCountries is the send-side set the board quotes against.
var placidSourceCountries = map[string]bool{
	"US": true, "GB": true, "CA": true, "AU": true,
	// The board treats the eurozone as a single sender.
	"DE": true, "FR": true, "ES": true, "IT": true, "NL": true, "IE": true,
}

func NewPlacidProvider(pctx Context, endpoints Endpoint) *PlacidProvider {
	if endpoints.Rest == "" {
		endpoints = Endpoint{Name: ProviderPlacid, Rest: placidRestHost}
	}
	return &PlacidProvider{
		ctx:       pctx,
		client:    pctx.HTTPClient(defaultTimeout),
		logger:    pctx.Logger.With().Str("provider", ProviderPlacid.String()).Logger(),
		endpoints: endpoints,
	}
}

func (p *PlacidProvider) ID() string {
	return ProviderPlacid.String()
}

func (p *PlacidProvider) DisplayName() string {
	return "Placid Express"
}

func (p *PlacidProvider) SupportedCorridors() []types.Corridor {
	corridors := make([]types.Corridor, 0, len(placidSourceCountries)*len(placidCorridors))
	for src := range placidSourceCountries {
		for dst := range placidCorridors {
			corridors = append(corridors, types.Corridor{SourceCountry: src, DestCountry: dst})
		}
	}
	return corridors
}

func (p *PlacidProvider) Quote(ctx context.Context, req types.QuoteRequest) types.RawResult {
	id := p.ID()

	if !placidSourceCountries[req.SourceCountry] {
		return types.NewRawFailure(id, types.ErrUnsupportedCorridor,
			fmt.Sprintf("placid does not send from %s", req.SourceCountry))
	}
	corridor, ok := placidCorridors[req.DestCountry]
	if !ok {
		return types.NewRawFailure(id, types.ErrUnsupportedCorridor,
			fmt.Sprintf("placid does not serve destination %s", req.DestCountry))
	}

	query := url.Values{}
	query.Set("TaskType", "ChgContIndx")
	query.Set("Val1", corridor.Code)
	query.Set("Val2", "NIL")
	query.Set("Val3", "NIL")
	query.Set("Val4", "NIL")
	query.Set("Val5", "NIL")
	query.Set("Val6", "NIL")

	form := url.Values{}
	form.Set("rndval", strconv.FormatInt(p.ctx.Now().UnixMilli(), 10))

	endpoint := p.endpoints.Rest + placidQuotePath + "?" + query.Encode()
	body, err := postForm(ctx, p.client, endpoint, nil, form)
	if err != nil {
		return failureFromError(id, ctx, err)
	}

	content := string(body)
	if !strings.Contains(content, corridor.Code) && !strings.Contains(content, "|//|") {
		return types.NewRawFailure(id, types.ErrUnsupportedCorridor,
			fmt.Sprintf("corridor %s not on the placid board", corridor.Code))
	}

	rate, ok := placidExtractRate(content, corridor.Currency)
	if !ok {
		return types.NewRawFailure(id, types.ErrParsing,
			fmt.Sprintf("no %s rate on the placid board", corridor.Currency))
	}

	receive := req.Amount.Mul(rate)
	fee := decimal.Zero
	opt := PriceOption{
		PaymentMethod:       types.PaymentBankAccount,
		DeliveryMethod:      types.DeliveryBankDeposit,
		Fee:                 fee,
		DeliveryTimeMinutes: intPtr(1440),
	}
	return rawSuccess(id, req, corridor.Currency, receive, decPtr(rate), decPtr(fee), opt,
		[]byte(strconv.Quote(content)))
}

// placidExtractRate pulls "184.25 PKR" style figures out of the board text.
func placidExtractRate(content, currency string) (decimal.Decimal, bool) {
	pattern := regexp.MustCompile(`(\d+[.,]?\d*)\s*` + regexp.QuoteMeta(currency))
	m := pattern.FindStringSubmatch(content)
	if m == nil {
		return decimal.Decimal{}, false
	}
	rate, err := parseDecimal(m[1])
	if err != nil || !rate.IsPositive() {
		return decimal.Decimal{}, false
	}
	return rate, true
}
