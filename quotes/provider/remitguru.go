package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"remit-scout/quotes/types"

	"github.com/rs/zerolog"
)

const (
	remitguruRestHost  = "https://www.remitguru.com"
	remitguruQuotePath = "/transfer/jsp/getQTStatistics.jsp"

	// remitguruSendMode selects the instant-pay pricing table.
	remitguruSendMode = "CIP-FER"

	// remitguruFieldCount is the number of pipe-delimited fields in a
	// well-formed response line.
	remitguruFieldCount = 8
)

var _ Adapter = (*RemitGuruProvider)(nil)

type (
	// RemitGuruProvider integrates the RemitGuru transfer calculator, a
	// legacy JSP endpoint that takes a form post and answers with one
	// pipe-delimited line:
	//
	//   receive_amount|exchange_rate|fee|send_amount|error_message|is_valid|send_currency|error_code
	//
	// The corridor is encoded as "GB~GBP~IN~INR" in the form payload.
	RemitGuruProvider struct {
		ctx       Context
		client    *http.Client
		logger    zerolog.Logger
		endpoints Endpoint
	}
)

// remitguruCorridors enumerates the corridors the calculator prices. The
// receive side is India only.
var remitguruCorridors = map[types.Corridor]bool{
	{SourceCountry: "GB", DestCountry: "IN"}: true,
	{SourceCountry: "AU", DestCountry: "IN"}: true,
	{SourceCountry: "IE", DestCountry: "IN"}: true,
	{SourceCountry: "AT", DestCountry: "IN"}: true,
	{SourceCountry: "DE", DestCountry: "IN"}: true,
}

func NewRemitGuruProvider(pctx Context, endpoints Endpoint) *RemitGuruProvider {
	if endpoints.Rest == "" {
		endpoints = Endpoint{Name: ProviderRemitGuru, Rest: remitguruRestHost}
	}
	return &RemitGuruProvider{
		ctx:       pctx,
		client:    pctx.HTTPClient(defaultTimeout),
		logger:    pctx.Logger.With().Str("provider", ProviderRemitGuru.String()).Logger(),
		endpoints: endpoints,
	}
}

func (p *RemitGuruProvider) ID() string {
	return ProviderRemitGuru.String()
}

func (p *RemitGuruProvider) DisplayName() string {
	return "RemitGuru"
}

func (p *RemitGuruProvider) SupportedCorridors() []types.Corridor {
	corridors := make([]types.Corridor, 0, len(remitguruCorridors))
	for c := range remitguruCorridors {
		corridors = append(corridors, c)
	}
	return corridors
}

func (p *RemitGuruProvider) Quote(ctx context.Context, req types.QuoteRequest) types.RawResult {
	id := p.ID()

	corridor := types.Corridor{SourceCountry: req.SourceCountry, DestCountry: req.DestCountry}
	if !remitguruCorridors[corridor] {
		return types.NewRawFailure(id, types.ErrUnsupportedCorridor,
			fmt.Sprintf("remitguru does not serve %s", corridor))
	}
	destCcy, ok := destCurrency(p.ctx, req)
	if !ok {
		return types.NewRawFailure(id, types.ErrInvalidParameter,
			fmt.Sprintf("no currency known for destination %s", req.DestCountry))
	}

	values := url.Values{}
	values.Set("amountTransfer", req.Amount.StringFixed(2))
	values.Set("corridor", strings.Join([]string{
		req.SourceCountry, strings.ToUpper(req.SourceCurrency), req.DestCountry, destCcy,
	}, "~"))
	values.Set("sendMode", remitguruSendMode)

	body, err := postForm(ctx, p.client, p.endpoints.Rest+remitguruQuotePath, nil, values)
	if err != nil {
		return failureFromError(id, ctx, err)
	}
	return p.parseQuoteLine(req, destCcy, body)
}

// parseQuoteLine decodes the single pipe-delimited response line.
func (p *RemitGuruProvider) parseQuoteLine(req types.QuoteRequest, destCcy string, body []byte) types.RawResult {
	id := p.ID()

	line := strings.TrimSpace(string(body))
	fields := strings.Split(line, "|")
	if len(fields) < remitguruFieldCount {
		return types.NewRawFailure(id, types.ErrParsing,
			fmt.Sprintf("expected %d pipe-delimited fields, got %d", remitguruFieldCount, len(fields)))
	}

	var (
		receiveStr = strings.TrimSpace(fields[0])
		rateStr    = strings.TrimSpace(fields[1])
		feeStr     = strings.TrimSpace(fields[2])
		errMessage = strings.TrimSpace(fields[4])
		isValid    = strings.TrimSpace(fields[5])
	)
	if !strings.EqualFold(isValid, "Y") && !strings.EqualFold(isValid, "true") {
		if errMessage == "" {
			errMessage = "remitguru flagged the quote invalid"
		}
		return types.NewRawFailure(id, types.ErrProviderAPI, errMessage)
	}

	receive, err := parseDecimal(receiveStr)
	if err != nil {
		return types.NewRawFailure(id, types.ErrParsing, err.Error())
	}
	rate, err := parseDecimal(rateStr)
	if err != nil {
		return types.NewRawFailure(id, types.ErrParsing, err.Error())
	}
	fee, err := parseDecimal(feeStr)
	if err != nil {
		return types.NewRawFailure(id, types.ErrParsing, err.Error())
	}

	opt := PriceOption{
		PaymentMethod:       types.PaymentBankAccount,
		DeliveryMethod:      types.DeliveryBankDeposit,
		Fee:                 fee,
		DeliveryTimeMinutes: intPtr(1440),
	}
	// The body is plain text, quote it so Raw stays valid JSON.
	return rawSuccess(id, req, destCcy, receive, decPtr(rate), decPtr(fee), opt, []byte(strconv.Quote(line)))
}
