package quotes

import (
	"testing"

	"remit-scout/quotes/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func testQuote(providerID, rate, fee string, deliveryMinutes *int) types.Quote {
	r := decimal.RequireFromString(rate)
	return types.Quote{
		ProviderID:          providerID,
		Success:             true,
		SendAmount:          decimal.RequireFromString("100"),
		SourceCurrency:      "USD",
		DestinationAmount:   decimal.RequireFromString("100").Mul(r),
		DestinationCurrency: "MXN",
		ExchangeRate:        &r,
		Fee:                 decimal.RequireFromString(fee),
		DeliveryTimeMinutes: deliveryMinutes,
	}
}

func minutes(m int) *int { return &m }

func TestApplyFiltersDropsFailuresAndLimits(t *testing.T) {
	maxFee := decimal.RequireFromString("5")
	quotes := []types.Quote{
		testQuote("a", "17.05", "3.99", minutes(60)),
		testQuote("b", "17.20", "9.99", minutes(60)),
		testQuote("c", "17.10", "4.50", nil),
		types.FailedQuote("d", types.ErrTimeout, "slow", types.QuoteRequest{}, timeNow()),
	}

	t.Run("success_only", func(t *testing.T) {
		out := ApplyFilters(quotes, types.QuoteOptions{})
		require.Len(t, out, 3)
		for _, q := range out {
			require.True(t, q.Success)
		}
	})

	t.Run("max_fee", func(t *testing.T) {
		out := ApplyFilters(quotes, types.QuoteOptions{MaxFee: &maxFee})
		require.Len(t, out, 2)
		for _, q := range out {
			require.True(t, q.Fee.LessThanOrEqual(maxFee))
		}
	})

	t.Run("max_delivery_drops_unknown_estimates", func(t *testing.T) {
		limit := 120
		out := ApplyFilters(quotes, types.QuoteOptions{MaxDeliveryTimeMinutes: &limit})
		require.Len(t, out, 2)
		for _, q := range out {
			require.NotNil(t, q.DeliveryTimeMinutes)
		}
	})

	t.Run("custom_predicate", func(t *testing.T) {
		out := ApplyFilters(quotes, types.QuoteOptions{
			CustomPredicate: func(q types.Quote) bool { return q.ProviderID != "b" },
		})
		require.Len(t, out, 2)
	})
}

func TestSortOrders(t *testing.T) {
	quotes := []types.Quote{
		testQuote("slowcheap", "17.00", "1.00", minutes(2880)),
		testQuote("fast", "17.05", "3.99", minutes(15)),
		testQuote("bestrate", "17.30", "6.00", minutes(240)),
		testQuote("noestimate", "17.10", "2.50", nil),
	}

	t.Run("best_rate", func(t *testing.T) {
		out := ApplyFilters(quotes, types.QuoteOptions{SortBy: types.SortBestRate})
		require.Equal(t, "bestrate", out[0].ProviderID)
		require.Equal(t, "noestimate", out[1].ProviderID)
		require.Equal(t, "fast", out[2].ProviderID)
		require.Equal(t, "slowcheap", out[3].ProviderID)
	})

	t.Run("lowest_fee", func(t *testing.T) {
		out := ApplyFilters(quotes, types.QuoteOptions{SortBy: types.SortLowestFee})
		require.Equal(t, "slowcheap", out[0].ProviderID)
		require.Equal(t, "noestimate", out[1].ProviderID)
	})

	t.Run("fastest_time_nulls_last", func(t *testing.T) {
		out := ApplyFilters(quotes, types.QuoteOptions{SortBy: types.SortFastestTime})
		require.Equal(t, "fast", out[0].ProviderID)
		require.Equal(t, "noestimate", out[len(out)-1].ProviderID)
	})

	t.Run("best_value", func(t *testing.T) {
		out := ApplyFilters(quotes, types.QuoteOptions{SortBy: types.SortBestValue})
		// effective receive = destination_amount - fee * rate
		first := out[0]
		second := out[1]
		fv := first.DestinationAmount.Sub(first.Fee.Mul(*first.ExchangeRate))
		sv := second.DestinationAmount.Sub(second.Fee.Mul(*second.ExchangeRate))
		require.True(t, fv.GreaterThanOrEqual(sv))
	})
}

func TestSortStability(t *testing.T) {
	// Identical sort keys must preserve input order.
	quotes := []types.Quote{
		testQuote("first", "17.05", "3.99", minutes(60)),
		testQuote("second", "17.05", "3.99", minutes(60)),
		testQuote("third", "17.05", "3.99", minutes(60)),
	}
	// Equal under every key except provider_id, which is the last tie-break;
	// blank it out so the keys are fully equal.
	for i := range quotes {
		quotes[i].ProviderID = "same"
		quotes[i].Timestamp = timeNow().Add(timeOffset(i))
	}

	out := ApplyFilters(quotes, types.QuoteOptions{SortBy: types.SortBestRate})
	require.Len(t, out, 3)
	for i := range out {
		require.Equal(t, quotes[i].Timestamp, out[i].Timestamp)
	}
}

func TestAppliedFiltersEcho(t *testing.T) {
	maxFee := decimal.RequireFromString("10")
	limit := 500
	applied := AppliedFilters(types.QuoteOptions{
		SortBy:                 types.SortLowestFee,
		MaxFee:                 &maxFee,
		MaxDeliveryTimeMinutes: &limit,
		CustomPredicate:        func(types.Quote) bool { return true },
	})
	require.Equal(t, types.SortLowestFee, applied.SortBy)
	require.Equal(t, "10", applied.MaxFee.String())
	require.Equal(t, 500, *applied.MaxDeliveryTimeMinutes)
	require.True(t, applied.CustomPredicate)

	t.Run("invalid_sort_defaults_to_best_rate", func(t *testing.T) {
		applied := AppliedFilters(types.QuoteOptions{})
		require.Equal(t, types.SortBestRate, applied.SortBy)
	})
}
