package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"remit-scout/quotes/types"

	"github.com/stretchr/testify/require"
)

func TestRemitGuruProvider_Quote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "GB~GBP~IN~INR", r.PostForm.Get("corridor"))
		require.Equal(t, "100.00", r.PostForm.Get("amountTransfer"))
		require.Equal(t, remitguruSendMode, r.PostForm.Get("sendMode"))

		w.Write([]byte("10540.00|105.40|0.00|100.00||Y|GBP|"))
	}))
	defer srv.Close()

	p := NewRemitGuruProvider(testContext(srv.Client(), nil), Endpoint{Name: ProviderRemitGuru, Rest: srv.URL})

	t.Run("valid_line", func(t *testing.T) {
		res := p.Quote(context.Background(), testRequest("GB", "GBP", "IN", "100"))
		require.True(t, res.Success, res.ErrorMessage)
		require.Equal(t, "10540", res.DestinationAmount.String())
		require.Equal(t, "105.4", res.ExchangeRate.String())
		require.Equal(t, "0", res.Fee.String())
		require.Equal(t, types.DeliveryBankDeposit, res.DeliveryMethod)
	})

	t.Run("unsupported_corridor_short_circuits", func(t *testing.T) {
		res := p.Quote(context.Background(), testRequest("US", "USD", "MX", "100"))
		require.False(t, res.Success)
		require.Equal(t, types.ErrUnsupportedCorridor, res.ErrorKind)
	})
}

func TestRemitGuruProvider_InvalidQuoteLine(t *testing.T) {
	testCases := map[string]struct {
		body string
		kind types.ErrorKind
	}{
		"flagged_invalid": {
			body: "0|0|0|100.00|Amount below minimum|N|GBP|E02",
			kind: types.ErrProviderAPI,
		},
		"truncated_line": {
			body: "10540.00|105.40",
			kind: types.ErrParsing,
		},
		"unparseable_rate": {
			body: "10540.00|abc|0.00|100.00||Y|GBP|",
			kind: types.ErrParsing,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			p := NewRemitGuruProvider(testContext(srv.Client(), nil), Endpoint{Name: ProviderRemitGuru, Rest: srv.URL})
			res := p.Quote(context.Background(), testRequest("GB", "GBP", "IN", "100"))
			require.False(t, res.Success)
			require.Equal(t, tc.kind, res.ErrorKind)
		})
	}
}
