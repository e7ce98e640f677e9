package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"remit-scout/quotes/types"

	"github.com/stretchr/testify/require"
)

func TestClassifyStatus(t *testing.T) {
	testCases := map[int]types.ErrorKind{
		http.StatusUnauthorized:       types.ErrAuthentication,
		http.StatusForbidden:          types.ErrAuthentication,
		http.StatusTooManyRequests:    types.ErrRateLimit,
		http.StatusRequestTimeout:     types.ErrTimeout,
		http.StatusGatewayTimeout:     types.ErrTimeout,
		http.StatusInternalServerError: types.ErrConnection,
		http.StatusBadGateway:         types.ErrConnection,
		http.StatusBadRequest:         types.ErrProviderAPI,
		http.StatusNotFound:           types.ErrProviderAPI,
	}
	for status, expected := range testCases {
		require.Equal(t, expected, classifyStatus(status), "status %d", status)
	}
}

func TestFetchRetriesRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	body, err := fetch(ctx, srv.Client(), func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, srv.URL, nil)
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(body))
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestFetchDoesNotRetryAuthFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := fetch(context.Background(), srv.Client(), func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, srv.URL, nil)
	})
	require.Error(t, err)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))

	res := failureFromError("wise", context.Background(), err)
	require.False(t, res.Success)
	require.Equal(t, types.ErrAuthentication, res.ErrorKind)
}

func TestFetchSkipsRetryWhenBudgetExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	// The remaining budget is below the smallest backoff, so no retry fires.
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	_, err := fetch(ctx, srv.Client(), func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, srv.URL, nil)
	})
	require.Error(t, err)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestFailureFromErrorHonorsContextState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := failureFromError("xe", ctx, context.Canceled)
	require.Equal(t, types.ErrTimeout, res.ErrorKind)
}

func TestGetJSONParseFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	var out map[string]interface{}
	_, err := getJSON(context.Background(), srv.Client(), srv.URL, nil, &out)
	require.Error(t, err)

	res := failureFromError("ria", context.Background(), err)
	require.Equal(t, types.ErrParsing, res.ErrorKind)
}
