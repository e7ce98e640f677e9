package quotes

import (
	"context"
	"testing"
	"time"

	"remit-scout/quotes/types"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// stubAdapter is a minimal in-memory adapter for pipeline tests.
type stubAdapter struct {
	id      string
	latency time.Duration
	fail    types.ErrorKind
	panics  bool
	rate    string
	fee     string

	// calls counts Quote invocations; reads are safe once Execute returned.
	calls int
}

func (s *stubAdapter) ID() string          { return s.id }
func (s *stubAdapter) DisplayName() string { return s.id }

func (s *stubAdapter) Quote(ctx context.Context, req types.QuoteRequest) types.RawResult {
	s.calls++
	if s.panics {
		panic("stub adapter exploded")
	}
	if s.latency > 0 {
		select {
		case <-ctx.Done():
			return types.NewRawFailure(s.id, types.ErrTimeout, ctx.Err().Error())
		case <-time.After(s.latency):
		}
	}
	if s.fail != "" {
		return types.NewRawFailure(s.id, s.fail, "stub failure")
	}
	rate := dec(s.rate)
	fee := dec(s.fee)
	return types.RawResult{
		ProviderID:          s.id,
		Success:             true,
		SendAmount:          req.Amount,
		SourceCurrency:      req.SourceCurrency,
		DestinationAmount:   req.Amount.Mul(rate),
		DestinationCurrency: req.DestCurrency,
		ExchangeRate:        &rate,
		Fee:                 &fee,
		PaymentMethod:       types.PaymentBankAccount,
		DeliveryMethod:      types.DeliveryBankDeposit,
	}
}

func testReq() types.QuoteRequest {
	return types.QuoteRequest{
		SourceCountry:  "US",
		DestCountry:    "MX",
		SourceCurrency: "USD",
		DestCurrency:   "MXN",
		Amount:         dec("100"),
	}
}

func newStubRegistry(adapters ...*stubAdapter) *Registry {
	registry := NewRegistry(zerolog.Nop())
	for _, a := range adapters {
		registry.Register(a, true)
	}
	return registry
}

func TestExecutorPreservesOrder(t *testing.T) {
	registry := newStubRegistry(
		&stubAdapter{id: "p1", rate: "17.05", fee: "3.99", latency: 30 * time.Millisecond},
		&stubAdapter{id: "p2", rate: "17.10", fee: "2.99"},
		&stubAdapter{id: "p3", rate: "17.00", fee: "1.99", latency: 10 * time.Millisecond},
	)
	executor := NewExecutor(registry, zerolog.Nop())

	req := testReq()
	req.Options.PerProviderTimeout = time.Second

	results := executor.Execute(context.Background(), registry.ActiveIDs(nil, nil), req)
	require.Len(t, results, 3)
	require.Equal(t, "p1", results[0].ProviderID)
	require.Equal(t, "p2", results[1].ProviderID)
	require.Equal(t, "p3", results[2].ProviderID)
	for _, res := range results {
		require.True(t, res.Success)
	}
}

func TestExecutorTimesOutSlowProvider(t *testing.T) {
	registry := newStubRegistry(
		&stubAdapter{id: "slow", rate: "17.05", fee: "3.99", latency: 10 * time.Second},
		&stubAdapter{id: "fast", rate: "17.10", fee: "2.99"},
	)
	executor := NewExecutor(registry, zerolog.Nop())

	req := testReq()
	req.Options.PerProviderTimeout = 500 * time.Millisecond

	start := time.Now()
	results := executor.Execute(context.Background(), []string{"slow", "fast"}, req)
	elapsed := time.Since(start)

	require.Len(t, results, 2)
	require.False(t, results[0].Success)
	require.Equal(t, types.ErrTimeout, results[0].ErrorKind)
	require.True(t, results[1].Success)
	// per-provider timeout plus slack, not the adapter's 10s sleep
	require.Less(t, elapsed, 4*time.Second)
}

func TestExecutorRecoversPanics(t *testing.T) {
	registry := newStubRegistry(
		&stubAdapter{id: "boom", panics: true},
		&stubAdapter{id: "ok", rate: "17.05", fee: "3.99"},
	)
	executor := NewExecutor(registry, zerolog.Nop())

	req := testReq()
	req.Options.PerProviderTimeout = time.Second

	results := executor.Execute(context.Background(), []string{"boom", "ok"}, req)
	require.False(t, results[0].Success)
	require.Equal(t, types.ErrInternal, results[0].ErrorKind)
	require.True(t, results[1].Success)
}

func TestExecutorWorkerCap(t *testing.T) {
	adapters := make([]*stubAdapter, 0, 10)
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		adapters = append(adapters, &stubAdapter{id: id, rate: "17.05", fee: "1", latency: 20 * time.Millisecond})
	}
	registry := newStubRegistry(adapters...)
	executor := NewExecutor(registry, zerolog.Nop())

	req := testReq()
	req.Options.PerProviderTimeout = 2 * time.Second
	req.Options.MaxWorkers = 2

	results := executor.Execute(context.Background(), registry.ActiveIDs(nil, nil), req)
	require.Len(t, results, 10)
	for _, res := range results {
		require.True(t, res.Success)
	}
}

func TestExecutorEmptySet(t *testing.T) {
	executor := NewExecutor(newStubRegistry(), zerolog.Nop())
	require.Nil(t, executor.Execute(context.Background(), nil, testReq()))
}
