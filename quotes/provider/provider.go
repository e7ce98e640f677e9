package provider

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"remit-scout/catalog"
	"remit-scout/quotes/types"

	"github.com/rs/zerolog"
)

const (
	defaultTimeout = 30 * time.Second

	ProviderRemitbee   Name = "remitbee"
	ProviderRemitGuru  Name = "remitguru"
	ProviderWise       Name = "wise"
	ProviderXE         Name = "xe"
	ProviderRia        Name = "ria"
	ProviderKoronaPay  Name = "koronapay"
	ProviderPaysend    Name = "paysend"
	ProviderWireBarley Name = "wirebarley"
	ProviderMukuru     Name = "mukuru"
	ProviderRewire     Name = "rewire"
	ProviderOrbitRemit Name = "orbitremit"
	ProviderDahabshiil Name = "dahabshiil"
	ProviderAlAnsari   Name = "alansari"
	ProviderIntermex   Name = "intermex"
	ProviderPlacid     Name = "placid"
	ProviderTransferGo Name = "transfergo"
	ProviderSendwave   Name = "sendwave"
	ProviderMock       Name = "mock"

	credentialEnvPrefix = "REMITSCOUT_"
)

// AllNames lists every built-in provider in canonical registration order,
// which is also the order of fan-out results.
var AllNames = []Name{
	ProviderRemitbee,
	ProviderRemitGuru,
	ProviderWise,
	ProviderXE,
	ProviderRia,
	ProviderKoronaPay,
	ProviderPaysend,
	ProviderWireBarley,
	ProviderMukuru,
	ProviderRewire,
	ProviderOrbitRemit,
	ProviderDahabshiil,
	ProviderAlAnsari,
	ProviderIntermex,
	ProviderPlacid,
	ProviderTransferGo,
	ProviderSendwave,
	ProviderMock,
}

type (
	// Adapter is the contract every remittance provider integration
	// implements. Quote is synchronous from the executor's point of view and
	// must not return after the context deadline with anything other than a
	// Timeout result; all failure modes are converted to a failed RawResult,
	// never a panic or error past this boundary.
	Adapter interface {
		// ID returns the stable provider identifier, ex.: "wise".
		ID() string

		// DisplayName returns the human-readable provider name.
		DisplayName() string

		// Quote resolves one canonical request into a RawResult. The context
		// carries the per-provider deadline and cancellation signal; every
		// HTTP call inside the adapter must observe it.
		Quote(ctx context.Context, req types.QuoteRequest) types.RawResult
	}

	// CorridorLister is implemented by adapters that publish a static
	// corridor list. Adapters without one detect unsupported corridors
	// inline and return UnsupportedCorridor.
	CorridorLister interface {
		SupportedCorridors() []types.Corridor
	}

	// Name of a remittance provider, ex.: "remitbee", "wise".
	Name string

	// Endpoint overrides the hardcoded REST host for a provider.
	Endpoint struct {
		Name Name   `toml:"name"`
		Rest string `toml:"rest"`
	}

	// Context is the small dependency set handed to every adapter at
	// construction: catalog lookups, HTTP client factory, credential lookup
	// and clock. Adapters never see the aggregator.
	Context struct {
		Catalog    *catalog.Catalog
		HTTPClient func(timeout time.Duration) *http.Client
		Credential func(key string) string
		Now        func() time.Time
		Logger     zerolog.Logger
	}
)

// NewContext builds an adapter context with production defaults.
func NewContext(cat *catalog.Catalog, logger zerolog.Logger) Context {
	return Context{
		Catalog:    cat,
		HTTPClient: newHTTPClientWithTimeout,
		Credential: credentialFromEnv,
		Now:        time.Now,
		Logger:     logger,
	}
}

// String casts the provider name to string.
func (n Name) String() string {
	return string(n)
}

// credentialFromEnv resolves per-provider secrets from the environment,
// ex.: key "WISE_API_KEY" reads REMITSCOUT_WISE_API_KEY.
func credentialFromEnv(key string) string {
	return os.Getenv(credentialEnvPrefix + strings.ToUpper(key))
}

// preventRedirect avoids any redirect in the http.Client: the request call
// will not return an error, but a valid response with redirect status code.
func preventRedirect(_ *http.Request, _ []*http.Request) error {
	return http.ErrUseLastResponse
}

func newHTTPClientWithTimeout(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:       timeout,
		CheckRedirect: preventRedirect,
	}
}

// destCurrency applies the catalog fallback when the request leaves the
// destination currency unspecified.
func destCurrency(pctx Context, req types.QuoteRequest) (string, bool) {
	if req.DestCurrency != "" {
		return strings.ToUpper(req.DestCurrency), true
	}
	return pctx.Catalog.DefaultCurrency(req.DestCountry)
}
