package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"remit-scout/quotes/types"

	"github.com/shopspring/decimal"
)

var _ Adapter = (*MockProvider)(nil)

type (
	// MockProvider is a fixture adapter for local development and tests. It
	// answers from an in-memory rate table without network I/O, honors
	// context cancellation through an optional artificial latency, and can be
	// pinned to a fixed failure.
	MockProvider struct {
		ctx Context

		// Latency is waited before answering; zero answers immediately.
		Latency time.Duration

		// FailWith pins every quote to this failure when non-empty.
		FailWith types.ErrorKind

		// Rates overrides the built-in table, keyed "USD/MXN".
		Rates map[string]decimal.Decimal

		// Fee applies to every quote; defaults to 3.99.
		Fee *decimal.Decimal
	}
)

// mockRates is the built-in table covering the common test corridors.
var mockRates = map[string]decimal.Decimal{
	"USD/MXN": decimal.RequireFromString("17.05"),
	"USD/INR": decimal.RequireFromString("83.20"),
	"USD/PHP": decimal.RequireFromString("55.85"),
	"GBP/INR": decimal.RequireFromString("105.40"),
	"EUR/TRY": decimal.RequireFromString("35.10"),
	"CAD/INR": decimal.RequireFromString("61.60"),
	"AUD/PHP": decimal.RequireFromString("36.40"),
	"ZAR/USD": decimal.RequireFromString("0.053"),
}

func NewMockProvider(pctx Context, _ Endpoint) *MockProvider {
	return &MockProvider{ctx: pctx}
}

func (p *MockProvider) ID() string {
	return ProviderMock.String()
}

func (p *MockProvider) DisplayName() string {
	return "Mock Provider"
}

func (p *MockProvider) Quote(ctx context.Context, req types.QuoteRequest) types.RawResult {
	id := p.ID()

	if p.Latency > 0 {
		select {
		case <-ctx.Done():
			return types.NewRawFailure(id, types.ErrTimeout, ctx.Err().Error())
		case <-time.After(p.Latency):
		}
	}
	if p.FailWith != "" {
		return types.NewRawFailure(id, p.FailWith, "mock failure")
	}

	destCcy, ok := destCurrency(p.ctx, req)
	if !ok {
		return types.NewRawFailure(id, types.ErrInvalidParameter,
			fmt.Sprintf("no currency known for destination %s", req.DestCountry))
	}

	key := strings.ToUpper(req.SourceCurrency) + "/" + destCcy
	table := p.Rates
	if table == nil {
		table = mockRates
	}
	rate, ok := table[key]
	if !ok {
		return types.NewRawFailure(id, types.ErrUnsupportedCorridor,
			fmt.Sprintf("mock table has no rate for %s", key))
	}

	fee := decimal.RequireFromString("3.99")
	if p.Fee != nil {
		fee = *p.Fee
	}

	opt := PriceOption{
		PaymentMethod:       types.PaymentBankAccount,
		DeliveryMethod:      types.DeliveryBankDeposit,
		Fee:                 fee,
		DeliveryTimeMinutes: intPtr(60),
	}
	return rawSuccess(id, req, destCcy, req.Amount.Mul(rate), decPtr(rate), decPtr(fee), opt, nil)
}
