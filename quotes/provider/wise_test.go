package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"remit-scout/quotes/types"

	"github.com/stretchr/testify/require"
)

func TestWiseProvider_Quote(t *testing.T) {
	payload := map[string]interface{}{
		"rate": 83.20,
		"paymentOptions": []map[string]interface{}{
			{
				"disabled":                   false,
				"payIn":                      "BANK_TRANSFER",
				"payOut":                     "BANK_TRANSFER",
				"fee":                        map[string]interface{}{"total": 6.52},
				"targetAmount":               8277.76,
				"formattedEstimatedDelivery": "by tomorrow",
			},
			{
				"disabled":                   false,
				"payIn":                      "CARD",
				"payOut":                     "BANK_TRANSFER",
				"fee":                        map[string]interface{}{"total": 11.13},
				"targetAmount":               7894.21,
				"formattedEstimatedDelivery": "in seconds",
			},
			{
				"disabled": true,
				"payIn":    "BALANCE",
				"payOut":   "BANK_TRANSFER",
				"fee":      map[string]interface{}{"total": 0},
			},
		},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, wiseQuotePath, r.URL.Path)

		var req wiseQuoteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "USD", req.SourceCurrency)
		require.Equal(t, "INR", req.TargetCurrency)

		json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	p := NewWiseProvider(testContext(srv.Client(), nil), Endpoint{Name: ProviderWise, Rest: srv.URL})

	t.Run("lowest_fee_option_selected", func(t *testing.T) {
		res := p.Quote(context.Background(), testRequest("US", "USD", "IN", "1000"))
		require.True(t, res.Success, res.ErrorMessage)
		require.Equal(t, "wise", res.ProviderID)
		require.Equal(t, "INR", res.DestinationCurrency)
		require.Equal(t, "8277.76", res.DestinationAmount.String())
		require.Equal(t, "6.52", res.Fee.String())
		require.Equal(t, types.PaymentBankAccount, res.PaymentMethod)
		require.Equal(t, types.DeliveryBankDeposit, res.DeliveryMethod)
		require.NotNil(t, res.DeliveryTimeMinutes)
		require.Equal(t, 1440, *res.DeliveryTimeMinutes)
	})

	t.Run("requested_payment_method_narrows", func(t *testing.T) {
		req := testRequest("US", "USD", "IN", "1000")
		req.PaymentMethod = types.PaymentCard
		res := p.Quote(context.Background(), req)
		require.True(t, res.Success)
		require.Equal(t, types.PaymentCard, res.PaymentMethod)
		require.Equal(t, "11.13", res.Fee.String())
	})

	t.Run("raw_payload_only_on_request", func(t *testing.T) {
		req := testRequest("US", "USD", "IN", "1000")
		res := p.Quote(context.Background(), req)
		require.Nil(t, res.Raw)

		req.Options.IncludeRaw = true
		res = p.Quote(context.Background(), req)
		require.NotEmpty(t, res.Raw)
	})
}

func TestWiseProvider_NoOptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rate": 1.0, "paymentOptions": []}`))
	}))
	defer srv.Close()

	p := NewWiseProvider(testContext(srv.Client(), nil), Endpoint{Name: ProviderWise, Rest: srv.URL})
	res := p.Quote(context.Background(), testRequest("US", "USD", "IN", "1000"))
	require.False(t, res.Success)
	require.Equal(t, types.ErrUnsupportedCorridor, res.ErrorKind)
}

func TestWiseDeliveryMinutes(t *testing.T) {
	testCases := map[string]*int{
		"in seconds":             intPtr(5),
		"by today":               intPtr(180),
		"by tomorrow":            intPtr(1440),
		"within 2 business days": intPtr(2880),
		"within 2-3 days":        intPtr(2880),
		"":                       nil,
		"someday":                nil,
	}
	for input, expected := range testCases {
		got := wiseDeliveryMinutes(input)
		if expected == nil {
			require.Nil(t, got, "input %q", input)
			continue
		}
		require.NotNil(t, got, "input %q", input)
		require.Equal(t, *expected, *got, "input %q", input)
	}
}
