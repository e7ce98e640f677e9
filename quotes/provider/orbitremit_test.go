package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"remit-scout/quotes/types"

	"github.com/stretchr/testify/require"
)

func TestOrbitRemitProvider_Quote(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(orbitremitRatesPath, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(`{"code": 200, "status": "success", "data": {"rate": 36.40}}`))
	})
	mux.HandleFunc(orbitremitFeesPath, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "AUD", r.URL.Query().Get("send"))
		require.Equal(t, "PHP", r.URL.Query().Get("payout"))
		require.Equal(t, "bank_account", r.URL.Query().Get("type"))
		w.Write([]byte(`{"code": 200, "status": "success", "data": {"fee": 4.00}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewOrbitRemitProvider(testContext(srv.Client(), nil), Endpoint{Name: ProviderOrbitRemit, Rest: srv.URL})

	t.Run("rate_and_fee_combined", func(t *testing.T) {
		res := p.Quote(context.Background(), testRequest("AU", "AUD", "PH", "200"))
		require.True(t, res.Success, res.ErrorMessage)
		require.Equal(t, "7280", res.DestinationAmount.String())
		require.Equal(t, "36.4", res.ExchangeRate.String())
		require.Equal(t, "4", res.Fee.String())
	})

	t.Run("unsupported_payout_currency", func(t *testing.T) {
		res := p.Quote(context.Background(), testRequest("AU", "AUD", "JP", "200"))
		require.False(t, res.Success)
		require.Equal(t, types.ErrUnsupportedCorridor, res.ErrorKind)
	})
}

func TestOrbitRemitProvider_RateFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(orbitremitRatesPath, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": 422, "status": "error", "data": {}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewOrbitRemitProvider(testContext(srv.Client(), nil), Endpoint{Name: ProviderOrbitRemit, Rest: srv.URL})
	res := p.Quote(context.Background(), testRequest("AU", "AUD", "PH", "200"))
	require.False(t, res.Success)
	require.Equal(t, types.ErrProviderAPI, res.ErrorKind)
}
