package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"remit-scout/config"
	"remit-scout/quotes"
	"remit-scout/quotes/types"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type routerTestAdapter struct {
	id string
}

func (a *routerTestAdapter) ID() string          { return a.id }
func (a *routerTestAdapter) DisplayName() string { return a.id }

func (a *routerTestAdapter) Quote(_ context.Context, req types.QuoteRequest) types.RawResult {
	rate := decimal.RequireFromString("17.05")
	fee := decimal.RequireFromString("3.99")
	return types.RawResult{
		ProviderID:          a.id,
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

// stubAggregator records the request it was handed and replies with a canned
// result, so handler tests do not exercise the fan-out.
type stubAggregator struct {
	registry *quotes.Registry
	lastReq  types.QuoteRequest
	result   types.AggregateResult
}

func (s *stubAggregator) GetAllQuotes(_ context.Context, req types.QuoteRequest) types.AggregateResult {
	s.lastReq = req
	return s.result
}

func (s *stubAggregator) Registry() *quotes.Registry {
	return s.registry
}

func newTestRouter(t *testing.T, agg Aggregator, cfg config.Config) *mux.Router {
	t.Helper()
	rtr := mux.NewRouter()
	New(zerolog.Nop(), cfg, agg).RegisterRoutes(rtr, APIPathPrefix)
	return rtr
}

func newStubAggregator(success bool) *stubAggregator {
	registry := quotes.NewRegistry(zerolog.Nop())
	registry.Register(&routerTestAdapter{id: "wise"}, true)
	registry.Register(&routerTestAdapter{id: "xe"}, false)
	return &stubAggregator{
		registry: registry,
		result:   types.AggregateResult{Success: success},
	}
}

func TestHealthz(t *testing.T) {
	rtr := newTestRouter(t, newStubAggregator(true), config.DefaultConfig())

	rec := httptest.NewRecorder()
	rtr.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body healthZResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "available", body.Status)
	require.Equal(t, 2, body.Providers)
}

func TestQuotesHandler(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		agg := newStubAggregator(true)
		rtr := newTestRouter(t, agg, config.DefaultConfig())

		target := "/api/quotes/?source_country=US&dest_country=MX&source_currency=USD&amount=100" +
			"&sort_by=lowest_fee&max_fee=9.99&max_delivery_time_minutes=120" +
			"&include_providers=wise,xe&exclude_providers=ria&force_refresh=true"
		rec := httptest.NewRecorder()
		rtr.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

		require.Equal(t, http.StatusOK, rec.Code)

		req := agg.lastReq
		require.Equal(t, "US", req.SourceCountry)
		require.Equal(t, "MX", req.DestCountry)
		require.Equal(t, "100", req.Amount.String())
		require.Equal(t, types.SortLowestFee, req.Options.SortBy)
		require.Equal(t, "9.99", req.Options.MaxFee.String())
		require.Equal(t, 120, *req.Options.MaxDeliveryTimeMinutes)
		require.Equal(t, []string{"wise", "xe"}, req.Options.IncludeProviders)
		require.Equal(t, []string{"ria"}, req.Options.ExcludeProviders)
		require.True(t, req.Options.ForceRefresh)
	})

	t.Run("unparseable_amount", func(t *testing.T) {
		rtr := newTestRouter(t, newStubAggregator(true), config.DefaultConfig())

		rec := httptest.NewRecorder()
		rtr.ServeHTTP(rec, httptest.NewRequest(
			http.MethodGet, "/api/quotes/?source_country=US&dest_country=MX&amount=lots", nil))

		require.Equal(t, http.StatusBadRequest, rec.Code)

		var body errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, types.ErrInvalidParameter.String(), body.Error.Code)
	})

	t.Run("aggregator_rejects_request", func(t *testing.T) {
		agg := newStubAggregator(false)
		agg.result.Errors = map[string]types.ProviderError{
			"request": {ErrorKind: types.ErrInvalidParameter, ErrorMessage: "amount must be positive"},
		}
		rtr := newTestRouter(t, agg, config.DefaultConfig())

		rec := httptest.NewRecorder()
		rtr.ServeHTTP(rec, httptest.NewRequest(
			http.MethodGet, "/api/quotes/?source_country=US&dest_country=MX&amount=100", nil))

		require.Equal(t, http.StatusBadRequest, rec.Code)

		var body errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "amount must be positive", body.Error.Details)
	})

	t.Run("partial_failure_still_200", func(t *testing.T) {
		agg := newStubAggregator(true)
		agg.result.Errors = map[string]types.ProviderError{
			"xe": {ErrorKind: types.ErrTimeout, ErrorMessage: "deadline exceeded"},
		}
		rtr := newTestRouter(t, agg, config.DefaultConfig())

		rec := httptest.NewRecorder()
		rtr.ServeHTTP(rec, httptest.NewRequest(
			http.MethodGet, "/api/quotes/?source_country=US&dest_country=MX&amount=100", nil))

		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestProvidersHandler(t *testing.T) {
	rtr := newTestRouter(t, newStubAggregator(true), config.DefaultConfig())

	rec := httptest.NewRecorder()
	rtr.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/providers/", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var list []providerListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	require.Equal(t, "wise", list[0].ID)
	require.Equal(t, "xe", list[1].ID)
}

func TestProviderDetailHandler(t *testing.T) {
	rtr := newTestRouter(t, newStubAggregator(true), config.DefaultConfig())

	t.Run("known", func(t *testing.T) {
		rec := httptest.NewRecorder()
		rtr.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/providers/wise/", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var info quotes.ProviderInfo
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
		require.Equal(t, "wise", info.ID)
		require.True(t, info.Enabled)
	})

	t.Run("unknown", func(t *testing.T) {
		rec := httptest.NewRecorder()
		rtr.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/providers/moneygram/", nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRateLimit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.RateLimit = 1
	cfg.Server.RateBurst = 2
	rtr := newTestRouter(t, newStubAggregator(true), cfg)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		rtr.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
		codes = append(codes, rec.Code)
	}
	require.Equal(t, http.StatusOK, codes[0])
	require.Equal(t, http.StatusOK, codes[1])
	require.Equal(t, http.StatusTooManyRequests, codes[2])

	t.Run("zero_limit_disables", func(t *testing.T) {
		rtr := newTestRouter(t, newStubAggregator(true), config.Config{})
		for i := 0; i < 50; i++ {
			rec := httptest.NewRecorder()
			rtr.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
			require.Equal(t, http.StatusOK, rec.Code)
		}
	})
}
