package quotes

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"remit-scout/catalog"
	"remit-scout/quotes/cache"
	"remit-scout/quotes/history"
	"remit-scout/quotes/types"

	"github.com/armon/go-metrics"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const (
	// defaultMaxAmount caps the send amount a single request may quote.
	defaultMaxAmount = "1000000"

	// singleflightSlack bounds how long a follower waits on the leader's
	// fan-out before proceeding independently.
	singleflightSlack = 2 * time.Second
)

type (
	// Aggregator orchestrates one quote request end to end: validate the
	// corridor against the catalog, probe the cache, fan out over the active
	// providers, normalize, filter, sort, store and respond. Concurrent
	// requests for the same cache key share a single fan-out.
	Aggregator struct {
		registry   *Registry
		executor   *Executor
		normalizer *Normalizer
		cache      *cache.Cache
		catalog    *catalog.Catalog
		history    *history.QuoteHistory
		logger     zerolog.Logger
		now        func() time.Time
		maxAmount  decimal.Decimal

		// providerTimeout and maxWorkers are the configured defaults applied
		// to requests that leave the corresponding option unset.
		providerTimeout time.Duration
		maxWorkers      int

		group singleflight.Group
	}

	// AggregatorOption mutates the aggregator at construction.
	AggregatorOption func(*Aggregator)
)

// WithHistory attaches a quote history store; stored best-effort after every
// successful fan-out.
func WithHistory(h *history.QuoteHistory) AggregatorOption {
	return func(a *Aggregator) { a.history = h }
}

// WithMaxAmount overrides the send-amount cap.
func WithMaxAmount(max decimal.Decimal) AggregatorOption {
	return func(a *Aggregator) {
		if max.IsPositive() {
			a.maxAmount = max
		}
	}
}

// WithProviderTimeout sets the default per-provider timeout for requests that
// do not carry their own.
func WithProviderTimeout(timeout time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if timeout > 0 {
			a.providerTimeout = timeout
		}
	}
}

// WithWorkerCount sets the default fan-out worker count for requests that do
// not carry their own.
func WithWorkerCount(workers int) AggregatorOption {
	return func(a *Aggregator) {
		if workers > 0 {
			a.maxWorkers = workers
		}
	}
}

// WithClock overrides the aggregator clock, used by tests.
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

func NewAggregator(
	registry *Registry,
	cacheLayer *cache.Cache,
	cat *catalog.Catalog,
	logger zerolog.Logger,
	opts ...AggregatorOption,
) *Aggregator {
	logger = logger.With().Str("module", "aggregator").Logger()
	a := &Aggregator{
		registry:   registry,
		executor:   NewExecutor(registry, logger),
		normalizer: NewNormalizer(logger, nil),
		cache:      cacheLayer,
		catalog:    cat,
		logger:     logger,
		now:        time.Now,
		maxAmount:  decimal.RequireFromString(defaultMaxAmount),

		providerTimeout: defaultProviderTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.normalizer = NewNormalizer(logger, a.now)

	// Disabling a provider drops every cached aggregate that may embed its
	// quotes; re-enabling only refreshes the provider entry.
	registry.OnChange(func(id string, enabled bool) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if !enabled {
			if err := a.cache.InvalidateProvider(ctx, id); err != nil {
				a.logger.Warn().Err(err).Str("provider", id).Msg("provider invalidation failed")
			}
		}
		_ = a.cache.SetProvider(ctx, cache.ProviderMeta{ProviderID: id, Enabled: enabled})
	})
	return a
}

// GetAllQuotes resolves one request into an AggregateResult. The call always
// returns a result; only InvalidParameter makes the aggregate itself fail.
func (a *Aggregator) GetAllQuotes(ctx context.Context, req types.QuoteRequest) types.AggregateResult {
	start := a.now()

	req, err := a.validate(req)
	if err != nil {
		metrics.IncrCounter([]string{"aggregator", "invalid_request"}, 1)
		return types.AggregateResult{
			Success:        false,
			Request:        req,
			ElapsedMs:      time.Since(start).Milliseconds(),
			Timestamp:      a.now().UTC(),
			FiltersApplied: AppliedFilters(req.Options),
			Errors: map[string]types.ProviderError{
				"request": {ErrorKind: types.ErrInvalidParameter, ErrorMessage: err.Error()},
			},
		}
	}

	key := cache.QuoteKey(req)
	if !req.Options.ForceRefresh {
		if cached, ok := a.cache.GetQuote(ctx, req); ok {
			metrics.IncrCounter([]string{"aggregator", "cache_hit"}, 1)
			result := *cached
			result.CacheHit = true
			result.Timestamp = a.now().UTC()
			result.ElapsedMs = time.Since(start).Milliseconds()
			// The cached entry was filtered with its writer's options; this
			// request may carry a different predicate, limit or sort.
			result.Quotes = ApplyFilters(result.AllProviders, req.Options)
			result.FiltersApplied = AppliedFilters(req.Options)
			return result
		}
	}
	metrics.IncrCounter([]string{"aggregator", "cache_miss"}, 1)

	result := a.sharedFanOut(ctx, key, req)
	result.ElapsedMs = time.Since(start).Milliseconds()
	return result
}

// sharedFanOut deduplicates concurrent fan-outs on one cache key. Followers
// wait a bounded time for the leader; past that they run their own fan-out.
func (a *Aggregator) sharedFanOut(ctx context.Context, key string, req types.QuoteRequest) types.AggregateResult {
	wait := req.Options.PerProviderTimeout
	if wait <= 0 {
		wait = defaultProviderTimeout
	}
	wait += overallSlack + singleflightSlack

	ch := a.group.DoChan(key, func() (interface{}, error) {
		return a.fanOut(ctx, req), nil
	})

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case res := <-ch:
		result := res.Val.(types.AggregateResult)
		if res.Shared {
			// Followers re-evaluate filters: they may carry a different
			// predicate or sort than the leader.
			result.Quotes = ApplyFilters(result.AllProviders, req.Options)
			result.FiltersApplied = AppliedFilters(req.Options)
		}
		return result
	case <-timer.C:
		a.group.Forget(key)
		a.logger.Warn().Str("key", key).Msg("single-flight wait exceeded, running independently")
		return a.fanOut(ctx, req)
	case <-ctx.Done():
		return types.FailedAggregate(req, types.ErrTimeout, ctx.Err().Error(), a.now().UTC())
	}
}

func (a *Aggregator) fanOut(ctx context.Context, req types.QuoteRequest) types.AggregateResult {
	ids := a.registry.ActiveIDs(req.Options.IncludeProviders, req.Options.ExcludeProviders)

	// Providers with a fresh definitive UnsupportedCorridor entry are not
	// queried again; they still get their slot in the result.
	known := map[string]struct{}{}
	if support, ok := a.cache.GetCorridor(ctx, req.SourceCountry, req.DestCountry); ok {
		for _, id := range support.UnsupportedProviders {
			known[id] = struct{}{}
		}
	}
	skipped := map[string]struct{}{}
	for _, id := range ids {
		if _, ok := known[id]; ok {
			skipped[id] = struct{}{}
		}
	}
	live := ids
	if len(skipped) > 0 {
		live = make([]string, 0, len(ids))
		for _, id := range ids {
			if _, ok := skipped[id]; !ok {
				live = append(live, id)
			}
		}
	}

	raws := a.executor.Execute(ctx, live, req)
	normalized := a.normalizer.Normalize(req, raws)

	all := make([]types.Quote, 0, len(ids))
	next := 0
	for _, id := range ids {
		if _, ok := skipped[id]; ok {
			metrics.IncrCounterWithLabels([]string{"aggregator", "corridor_skip"}, 1,
				[]metrics.Label{{Name: "provider", Value: id}})
			all = append(all, types.FailedQuote(id, types.ErrUnsupportedCorridor,
				"provider does not serve this corridor", req, a.now()))
			continue
		}
		all = append(all, normalized[next])
		next++
	}

	errs := map[string]types.ProviderError{}
	for _, q := range all {
		if !q.Success {
			errs[q.ProviderID] = types.ProviderError{
				ErrorKind:    q.ErrorKind,
				ErrorMessage: q.ErrorMessage,
			}
		}
		// A freshly queried provider supersedes the recorded state either way.
		if q.ErrorKind == types.ErrUnsupportedCorridor {
			known[q.ProviderID] = struct{}{}
		} else {
			delete(known, q.ProviderID)
		}
	}
	unsupported := make([]string, 0, len(known))
	for id := range known {
		unsupported = append(unsupported, id)
	}
	sort.Strings(unsupported)

	result := types.AggregateResult{
		Success:        true,
		Request:        req,
		CacheHit:       false,
		Timestamp:      a.now().UTC(),
		FiltersApplied: AppliedFilters(req.Options),
		AllProviders:   all,
		Quotes:         ApplyFilters(all, req.Options),
		Errors:         errs,
	}

	if ctx.Err() == nil && cacheable(result) {
		if err := a.cache.SetQuote(ctx, req, result); err != nil {
			a.logger.Warn().Err(err).Msg("cache write failed")
		}
		_ = a.cache.SetCorridor(ctx, cache.CorridorSupport{
			SourceCountry:        req.SourceCountry,
			DestCountry:          req.DestCountry,
			Supported:            len(result.Quotes) > 0,
			UnsupportedProviders: unsupported,
		})
	}
	a.record(req, all)
	return result
}

// validate canonicalizes the request and rejects anything the fan-out must
// never see. The returned request has uppercase codes and a resolved
// destination currency.
func (a *Aggregator) validate(req types.QuoteRequest) (types.QuoteRequest, error) {
	req.SourceCountry = strings.ToUpper(strings.TrimSpace(req.SourceCountry))
	req.DestCountry = strings.ToUpper(strings.TrimSpace(req.DestCountry))
	req.SourceCurrency = strings.ToUpper(strings.TrimSpace(req.SourceCurrency))
	req.DestCurrency = strings.ToUpper(strings.TrimSpace(req.DestCurrency))

	if !req.Amount.IsPositive() {
		return req, fmt.Errorf("amount must be positive, got %s", req.Amount)
	}
	if req.Amount.GreaterThan(a.maxAmount) {
		return req, fmt.Errorf("amount %s exceeds the maximum of %s", req.Amount, a.maxAmount)
	}
	if req.DestCurrency == "" {
		ccy, ok := a.catalog.DefaultCurrency(req.DestCountry)
		if !ok {
			return req, fmt.Errorf("no default currency for destination country %q", req.DestCountry)
		}
		req.DestCurrency = ccy
	}
	if err := a.catalog.ValidateCorridor(req.SourceCountry, req.SourceCurrency, req.DestCountry, req.DestCurrency); err != nil {
		return req, err
	}
	if req.PaymentMethod != "" && !types.ValidPaymentMethod(req.PaymentMethod) {
		return req, fmt.Errorf("unknown payment method %q", req.PaymentMethod)
	}
	if req.DeliveryMethod != "" && !types.ValidDeliveryMethod(req.DeliveryMethod) {
		return req, fmt.Errorf("unknown delivery method %q", req.DeliveryMethod)
	}
	if req.Options.SortBy != "" && !types.ValidSortBy(req.Options.SortBy) {
		return req, fmt.Errorf("unknown sort order %q", req.Options.SortBy)
	}
	if req.Options.MaxFee != nil && req.Options.MaxFee.IsNegative() {
		return req, fmt.Errorf("max_fee must not be negative")
	}
	if req.Options.MaxDeliveryTimeMinutes != nil && *req.Options.MaxDeliveryTimeMinutes < 0 {
		return req, fmt.Errorf("max_delivery_time_minutes must not be negative")
	}
	if req.Options.PerProviderTimeout <= 0 {
		req.Options.PerProviderTimeout = a.providerTimeout
	}
	if req.Options.MaxWorkers <= 0 {
		req.Options.MaxWorkers = a.maxWorkers
	}
	return req, nil
}

// InvalidateAll drops every cached quote; wired to catalog reloads.
func (a *Aggregator) InvalidateAll(ctx context.Context) error {
	return a.cache.InvalidateAllQuotes(ctx)
}

// InvalidateCorridor drops one corridor's cached state.
func (a *Aggregator) InvalidateCorridor(ctx context.Context, srcCountry, dstCountry string) error {
	return a.cache.InvalidateCorridor(ctx, srcCountry, dstCountry)
}

// Registry exposes the provider registry for the API surface.
func (a *Aggregator) Registry() *Registry {
	return a.registry
}

func (a *Aggregator) record(req types.QuoteRequest, quotes []types.Quote) {
	if a.history == nil {
		return
	}
	for _, q := range quotes {
		if q.Success {
			_ = a.history.AddQuote(req, q)
		}
	}
}

// cacheable rejects aggregates where every provider failed transiently, so a
// network blip does not poison the cache for a whole TTL.
func cacheable(result types.AggregateResult) bool {
	if !result.Success {
		return false
	}
	if len(result.AllProviders) == 0 {
		return false
	}
	for _, q := range result.AllProviders {
		if q.Success || q.ErrorKind == types.ErrUnsupportedCorridor {
			return true
		}
	}
	return false
}
