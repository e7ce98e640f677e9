package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"remit-scout/quotes/types"
)

const (
	maxResponseBytes = 4 << 20

	connectionBackoff = 250 * time.Millisecond
	rateLimitBackoff  = 250 * time.Millisecond
	rateLimitJitter   = 750 * time.Millisecond
)

// httpFailure pairs an error kind with the underlying cause so adapters can
// convert transport problems into typed RawResult failures.
type httpFailure struct {
	kind types.ErrorKind
	err  error
}

func (f *httpFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.kind, f.err)
}

func newHTTPFailure(kind types.ErrorKind, err error) *httpFailure {
	return &httpFailure{kind: kind, err: err}
}

// classifyStatus maps a non-200 response to the canonical error taxonomy.
func classifyStatus(status int) types.ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return types.ErrAuthentication
	case status == http.StatusTooManyRequests:
		return types.ErrRateLimit
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return types.ErrTimeout
	case status >= 500:
		return types.ErrConnection
	default:
		return types.ErrProviderAPI
	}
}

// doRequest executes one HTTP round trip and returns the response body.
// Non-200 statuses and transport errors come back as *httpFailure.
func doRequest(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		ctx := req.Context()
		if ctx.Err() != nil {
			return nil, newHTTPFailure(types.ErrTimeout, ctx.Err())
		}
		return nil, newHTTPFailure(types.ErrConnection, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, newHTTPFailure(types.ErrConnection, err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		kind := classifyStatus(resp.StatusCode)
		return nil, newHTTPFailure(kind, fmt.Errorf("unexpected status: %s", resp.Status))
	}
	return body, nil
}

// fetch performs the request with at most one retry on transient failures.
// Connection errors back off 250ms; rate limits back off 250-1000ms with
// jitter. The retry is skipped whenever the remaining deadline budget cannot
// absorb the backoff.
func fetch(ctx context.Context, client *http.Client, build func() (*http.Request, error)) ([]byte, error) {
	req, err := build()
	if err != nil {
		return nil, newHTTPFailure(types.ErrInternal, err)
	}

	body, err := doRequest(client, req.WithContext(ctx))
	if err == nil {
		return body, nil
	}

	var fail *httpFailure
	if !errors.As(err, &fail) || !fail.kind.Retryable() {
		return nil, err
	}

	delay := connectionBackoff
	if fail.kind == types.ErrRateLimit {
		delay = rateLimitBackoff + time.Duration(rand.Int63n(int64(rateLimitJitter)))
	}
	deadline, ok := ctx.Deadline()
	if ok && time.Until(deadline) < delay+50*time.Millisecond {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, newHTTPFailure(types.ErrTimeout, ctx.Err())
	case <-time.After(delay):
	}

	req, err = build()
	if err != nil {
		return nil, newHTTPFailure(types.ErrInternal, err)
	}
	return doRequest(client, req.WithContext(ctx))
}

// getJSON fetches url and decodes the JSON body into out.
func getJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, out interface{}) ([]byte, error) {
	body, err := fetch(ctx, client, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		applyHeaders(req, headers)
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return body, newHTTPFailure(types.ErrParsing, err)
		}
	}
	return body, nil
}

// postJSON posts payload as JSON to url and decodes the response into out.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload, out interface{}) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, newHTTPFailure(types.ErrInternal, err)
	}

	body, err := fetch(ctx, client, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		applyHeaders(req, headers)
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return body, newHTTPFailure(types.ErrParsing, err)
		}
	}
	return body, nil
}

// postForm posts values urlencoded and returns the raw body. Some legacy
// provider endpoints answer form posts with plain text, so no decoding
// happens here.
func postForm(ctx context.Context, client *http.Client, url string, headers map[string]string, values neturl.Values) ([]byte, error) {
	encoded := values.Encode()
	return fetch(ctx, client, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		applyHeaders(req, headers)
		return req, nil
	})
}

func applyHeaders(req *http.Request, headers map[string]string) {
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("User-Agent", "remit-scout/1.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
}

// failureFromError converts a transport or parse error into the adapter's
// failed RawResult, honoring the context state for timeout classification.
func failureFromError(id string, ctx context.Context, err error) types.RawResult {
	if ctx.Err() != nil {
		return types.NewRawFailure(id, types.ErrTimeout, ctx.Err().Error())
	}
	var fail *httpFailure
	if errors.As(err, &fail) {
		return types.NewRawFailure(id, fail.kind, fail.err.Error())
	}
	return types.NewRawFailure(id, types.ErrConnection, err.Error())
}
