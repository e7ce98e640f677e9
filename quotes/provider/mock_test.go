package provider

import (
	"context"
	"testing"
	"time"

	"remit-scout/quotes/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestMockProvider_Quote(t *testing.T) {
	p := NewMockProvider(testContext(nil, nil), Endpoint{})

	t.Run("builtin_rate_table", func(t *testing.T) {
		res := p.Quote(context.Background(), testRequest("US", "USD", "MX", "100"))
		require.True(t, res.Success)
		require.Equal(t, "1705", res.DestinationAmount.String())
		require.Equal(t, "17.05", res.ExchangeRate.String())
		require.Equal(t, "3.99", res.Fee.String())
	})

	t.Run("rate_override", func(t *testing.T) {
		p := NewMockProvider(testContext(nil, nil), Endpoint{})
		p.Rates = map[string]decimal.Decimal{
			"USD/MXN": decimal.RequireFromString("20"),
		}
		res := p.Quote(context.Background(), testRequest("US", "USD", "MX", "100"))
		require.True(t, res.Success)
		require.Equal(t, "2000", res.DestinationAmount.String())
	})

	t.Run("unknown_corridor", func(t *testing.T) {
		res := p.Quote(context.Background(), testRequest("US", "USD", "JP", "100"))
		require.False(t, res.Success)
		require.Equal(t, types.ErrUnsupportedCorridor, res.ErrorKind)
	})

	t.Run("pinned_failure", func(t *testing.T) {
		p := NewMockProvider(testContext(nil, nil), Endpoint{})
		p.FailWith = types.ErrRateLimit
		res := p.Quote(context.Background(), testRequest("US", "USD", "MX", "100"))
		require.False(t, res.Success)
		require.Equal(t, types.ErrRateLimit, res.ErrorKind)
	})

	t.Run("latency_observes_cancellation", func(t *testing.T) {
		p := NewMockProvider(testContext(nil, nil), Endpoint{})
		p.Latency = 5 * time.Second

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		start := time.Now()
		res := p.Quote(ctx, testRequest("US", "USD", "MX", "100"))
		require.False(t, res.Success)
		require.Equal(t, types.ErrTimeout, res.ErrorKind)
		require.Less(t, time.Since(start), time.Second)
	})
}
