package quotes

import (
	"context"
	"testing"
	"time"

	"remit-scout/catalog"
	"remit-scout/quotes/cache"
	"remit-scout/quotes/types"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestAggregator(t *testing.T, adapters ...*stubAdapter) (*Aggregator, *Registry) {
	t.Helper()
	registry := newStubRegistry(adapters...)
	cacheLayer := cache.New(cache.NewMemoryStore(), cache.DefaultTTLConfig(), zerolog.Nop())
	aggregator := NewAggregator(registry, cacheLayer, catalog.New(), zerolog.Nop())
	return aggregator, registry
}

func TestAggregatorHappyPath(t *testing.T) {
	aggregator, _ := newTestAggregator(t,
		&stubAdapter{id: "p1", rate: "17.05", fee: "3.99"},
		&stubAdapter{id: "p2", rate: "17.20", fee: "5.99"},
	)

	req := testReq()
	req.Options.SortBy = types.SortBestRate

	result := aggregator.GetAllQuotes(context.Background(), req)
	require.True(t, result.Success)
	require.False(t, result.CacheHit)
	require.Len(t, result.AllProviders, 2)
	require.Len(t, result.Quotes, 2)
	require.Empty(t, result.Errors)
	// best_rate puts the higher rate first
	require.Equal(t, "p2", result.Quotes[0].ProviderID)
	require.Equal(t, "p1", result.AllProviders[0].ProviderID)
}

func TestAggregatorPartialFailure(t *testing.T) {
	aggregator, _ := newTestAggregator(t,
		&stubAdapter{id: "ok", rate: "17.05", fee: "3.99"},
		&stubAdapter{id: "down", fail: types.ErrConnection},
	)

	result := aggregator.GetAllQuotes(context.Background(), testReq())
	require.True(t, result.Success)
	require.Len(t, result.AllProviders, 2)
	require.Len(t, result.Quotes, 1)
	require.Len(t, result.Errors, 1)
	require.Equal(t, types.ErrConnection, result.Errors["down"].ErrorKind)
}

func TestAggregatorCacheRoundTrip(t *testing.T) {
	aggregator, _ := newTestAggregator(t,
		&stubAdapter{id: "p1", rate: "17.05", fee: "3.99"},
	)

	first := aggregator.GetAllQuotes(context.Background(), testReq())
	require.False(t, first.CacheHit)

	second := aggregator.GetAllQuotes(context.Background(), testReq())
	require.True(t, second.CacheHit)
	require.Len(t, second.Quotes, 1)
	require.Equal(t, first.Quotes[0].DestinationAmount.String(), second.Quotes[0].DestinationAmount.String())
}

func TestAggregatorForceRefresh(t *testing.T) {
	adapter := &stubAdapter{id: "p1", rate: "17.05", fee: "3.99"}
	aggregator, _ := newTestAggregator(t, adapter)

	first := aggregator.GetAllQuotes(context.Background(), testReq())
	require.False(t, first.CacheHit)

	// The provider repriced; a forced refresh must bypass the read but
	// still write the fresh result.
	adapter.rate = "18.00"
	req := testReq()
	req.Options.ForceRefresh = true

	refreshed := aggregator.GetAllQuotes(context.Background(), req)
	require.False(t, refreshed.CacheHit)
	require.Equal(t, "1800", refreshed.Quotes[0].DestinationAmount.String())

	cached := aggregator.GetAllQuotes(context.Background(), testReq())
	require.True(t, cached.CacheHit)
	require.Equal(t, "1800", cached.Quotes[0].DestinationAmount.String())
}

func TestAggregatorInvalidRequest(t *testing.T) {
	called := &stubAdapter{id: "p1", rate: "17.05", fee: "3.99"}
	aggregator, _ := newTestAggregator(t, called)

	t.Run("negative_amount", func(t *testing.T) {
		req := testReq()
		req.Amount = dec("-1")
		result := aggregator.GetAllQuotes(context.Background(), req)
		require.False(t, result.Success)
		require.Len(t, result.Errors, 1)
		require.Equal(t, types.ErrInvalidParameter, result.Errors["request"].ErrorKind)
		require.Empty(t, result.AllProviders)
	})

	t.Run("amount_above_cap", func(t *testing.T) {
		req := testReq()
		req.Amount = dec("2000000")
		result := aggregator.GetAllQuotes(context.Background(), req)
		require.False(t, result.Success)
	})

	t.Run("unknown_country", func(t *testing.T) {
		req := testReq()
		req.DestCountry = "ZZ"
		req.DestCurrency = ""
		result := aggregator.GetAllQuotes(context.Background(), req)
		require.False(t, result.Success)
	})

	t.Run("bad_sort_token", func(t *testing.T) {
		req := testReq()
		req.Options.SortBy = "cheapest"
		result := aggregator.GetAllQuotes(context.Background(), req)
		require.False(t, result.Success)
	})

	t.Run("bad_payment_token", func(t *testing.T) {
		req := testReq()
		req.PaymentMethod = "wire"
		result := aggregator.GetAllQuotes(context.Background(), req)
		require.False(t, result.Success)
	})
}

func TestAggregatorResolvesDestCurrency(t *testing.T) {
	aggregator, _ := newTestAggregator(t,
		&stubAdapter{id: "p1", rate: "17.05", fee: "3.99"},
	)

	req := testReq()
	req.DestCurrency = ""

	result := aggregator.GetAllQuotes(context.Background(), req)
	require.True(t, result.Success)
	require.Equal(t, "MXN", result.Request.DestCurrency)
}

func TestAggregatorTransientOnlyAggregateNotCached(t *testing.T) {
	adapter := &stubAdapter{id: "down", fail: types.ErrConnection}
	aggregator, _ := newTestAggregator(t, adapter)

	first := aggregator.GetAllQuotes(context.Background(), testReq())
	require.True(t, first.Success)
	require.Empty(t, first.Quotes)

	// The provider recovered; the earlier all-transient aggregate must not
	// have poisoned the cache.
	adapter.fail = ""
	adapter.rate = "17.05"
	adapter.fee = "3.99"

	second := aggregator.GetAllQuotes(context.Background(), testReq())
	require.False(t, second.CacheHit)
	require.Len(t, second.Quotes, 1)
}

func TestAggregatorUnsupportedCorridorIsCached(t *testing.T) {
	aggregator, _ := newTestAggregator(t,
		&stubAdapter{id: "narrow", fail: types.ErrUnsupportedCorridor},
	)

	first := aggregator.GetAllQuotes(context.Background(), testReq())
	require.True(t, first.Success)
	require.Empty(t, first.Quotes)

	second := aggregator.GetAllQuotes(context.Background(), testReq())
	require.True(t, second.CacheHit)
}

func TestAggregatorProviderDisableInvalidates(t *testing.T) {
	aggregator, registry := newTestAggregator(t,
		&stubAdapter{id: "p1", rate: "17.05", fee: "3.99"},
		&stubAdapter{id: "p2", rate: "17.20", fee: "5.99"},
	)

	first := aggregator.GetAllQuotes(context.Background(), testReq())
	require.Len(t, first.Quotes, 2)

	require.NoError(t, registry.SetEnabled("p2", false))

	second := aggregator.GetAllQuotes(context.Background(), testReq())
	require.False(t, second.CacheHit)
	require.Len(t, second.Quotes, 1)
	require.Equal(t, "p1", second.Quotes[0].ProviderID)
}

func TestAggregatorIncludeExclude(t *testing.T) {
	aggregator, _ := newTestAggregator(t,
		&stubAdapter{id: "p1", rate: "17.05", fee: "3.99"},
		&stubAdapter{id: "p2", rate: "17.20", fee: "5.99"},
		&stubAdapter{id: "p3", rate: "16.90", fee: "1.99"},
	)

	req := testReq()
	req.Options.IncludeProviders = []string{"p1", "p3"}
	req.Options.ExcludeProviders = []string{"p3"}
	req.Options.ForceRefresh = true

	result := aggregator.GetAllQuotes(context.Background(), req)
	require.Len(t, result.AllProviders, 1)
	require.Equal(t, "p1", result.AllProviders[0].ProviderID)
}

func TestAggregatorCacheHitReappliesFilters(t *testing.T) {
	aggregator, _ := newTestAggregator(t,
		&stubAdapter{id: "cheap", rate: "17.00", fee: "0"},
		&stubAdapter{id: "pricey", rate: "17.50", fee: "9.99"},
	)

	first := aggregator.GetAllQuotes(context.Background(), testReq())
	require.False(t, first.CacheHit)
	require.Len(t, first.Quotes, 2)

	t.Run("max_fee_narrows_cached_entry", func(t *testing.T) {
		req := testReq()
		req.Options.MaxFee = decP("0")

		result := aggregator.GetAllQuotes(context.Background(), req)
		require.True(t, result.CacheHit)
		require.Len(t, result.Quotes, 1)
		require.Equal(t, "cheap", result.Quotes[0].ProviderID)
		require.NotNil(t, result.FiltersApplied.MaxFee)
		require.Equal(t, "0", result.FiltersApplied.MaxFee.String())
	})

	t.Run("sort_follows_the_request", func(t *testing.T) {
		req := testReq()
		req.Options.SortBy = types.SortLowestFee

		result := aggregator.GetAllQuotes(context.Background(), req)
		require.True(t, result.CacheHit)
		require.Len(t, result.Quotes, 2)
		require.Equal(t, "cheap", result.Quotes[0].ProviderID)
		require.Equal(t, types.SortLowestFee, result.FiltersApplied.SortBy)
	})
}

func TestAggregatorConfiguredDefaults(t *testing.T) {
	registry := newStubRegistry(&stubAdapter{id: "p1", rate: "17.05", fee: "3.99"})
	cacheLayer := cache.New(cache.NewMemoryStore(), cache.DefaultTTLConfig(), zerolog.Nop())
	aggregator := NewAggregator(registry, cacheLayer, catalog.New(), zerolog.Nop(),
		WithProviderTimeout(750*time.Millisecond),
		WithWorkerCount(3),
	)

	t.Run("unset_options_take_the_configured_values", func(t *testing.T) {
		result := aggregator.GetAllQuotes(context.Background(), testReq())
		require.True(t, result.Success)
		require.Equal(t, 750*time.Millisecond, result.Request.Options.PerProviderTimeout)
		require.Equal(t, 3, result.Request.Options.MaxWorkers)
	})

	t.Run("request_options_win", func(t *testing.T) {
		req := testReq()
		req.Options.ForceRefresh = true
		req.Options.PerProviderTimeout = 100 * time.Millisecond
		req.Options.MaxWorkers = 1

		result := aggregator.GetAllQuotes(context.Background(), req)
		require.Equal(t, 100*time.Millisecond, result.Request.Options.PerProviderTimeout)
		require.Equal(t, 1, result.Request.Options.MaxWorkers)
	})
}

func TestAggregatorConfiguredTimeoutBoundsSlowProvider(t *testing.T) {
	registry := newStubRegistry(
		&stubAdapter{id: "slow", rate: "17.05", fee: "3.99", latency: 10 * time.Second},
		&stubAdapter{id: "fast", rate: "17.10", fee: "2.99"},
	)
	cacheLayer := cache.New(cache.NewMemoryStore(), cache.DefaultTTLConfig(), zerolog.Nop())
	aggregator := NewAggregator(registry, cacheLayer, catalog.New(), zerolog.Nop(),
		WithProviderTimeout(300*time.Millisecond))

	start := time.Now()
	result := aggregator.GetAllQuotes(context.Background(), testReq())
	elapsed := time.Since(start)

	require.True(t, result.Success)
	require.Len(t, result.Quotes, 1)
	require.Equal(t, types.ErrTimeout, result.Errors["slow"].ErrorKind)
	// configured timeout plus slack, not the adapter's 10s sleep
	require.Less(t, elapsed, 4*time.Second)
}

func TestAggregatorSkipsKnownUnsupportedProviders(t *testing.T) {
	narrow := &stubAdapter{id: "narrow", fail: types.ErrUnsupportedCorridor}
	ok := &stubAdapter{id: "ok", rate: "17.05", fee: "3.99"}
	aggregator, _ := newTestAggregator(t, narrow, ok)

	first := aggregator.GetAllQuotes(context.Background(), testReq())
	require.True(t, first.Success)
	require.Equal(t, 1, narrow.calls)
	require.Equal(t, 1, ok.calls)

	// A forced refresh re-queries the corridor but not the provider that
	// definitively rejected it; its slot in the result remains.
	req := testReq()
	req.Options.ForceRefresh = true

	second := aggregator.GetAllQuotes(context.Background(), req)
	require.False(t, second.CacheHit)
	require.Equal(t, 1, narrow.calls)
	require.Equal(t, 2, ok.calls)
	require.Len(t, second.AllProviders, 2)
	require.Len(t, second.Quotes, 1)
	require.Equal(t, types.ErrUnsupportedCorridor, second.Errors["narrow"].ErrorKind)
}

func TestAggregatorElapsedAndTimestamp(t *testing.T) {
	fixed := timeNow()
	registry := newStubRegistry(&stubAdapter{id: "p1", rate: "17.05", fee: "3.99"})
	cacheLayer := cache.New(cache.NewMemoryStore(), cache.DefaultTTLConfig(), zerolog.Nop())
	aggregator := NewAggregator(registry, cacheLayer, catalog.New(), zerolog.Nop(),
		WithClock(func() time.Time { return fixed }))

	result := aggregator.GetAllQuotes(context.Background(), testReq())
	require.Equal(t, fixed.UTC(), result.Timestamp)
	require.GreaterOrEqual(t, result.ElapsedMs, int64(0))
}
