package cache

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"remit-scout/quotes/types"

	"github.com/rs/zerolog"
)

const (
	DefaultQuoteTTL    = 1800 * time.Second
	DefaultCorridorTTL = 43200 * time.Second
	DefaultProviderTTL = 86400 * time.Second
	DefaultJitterMax   = 300 * time.Second
)

type (
	// Store is the raw byte-oriented backend behind the cache. Set with a
	// zero TTL must not expire the key.
	Store interface {
		Get(ctx context.Context, key string) ([]byte, bool, error)
		Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
		Delete(ctx context.Context, keys ...string) error
		DeletePrefix(ctx context.Context, prefix string) error
		Close() error
	}

	// TTLConfig carries the per-namespace base TTLs and the jitter ceiling.
	// Every insert stretches its base TTL by uniform(0, JitterMax) so entries
	// written together do not expire together.
	TTLConfig struct {
		Quote     time.Duration
		Corridor  time.Duration
		Provider  time.Duration
		JitterMax time.Duration
	}

	// Cache layers the quote, corridor and provider namespaces over a Store.
	Cache struct {
		store  Store
		ttl    TTLConfig
		logger zerolog.Logger

		mtx  sync.Mutex
		rand *rand.Rand
	}

	// CorridorSupport records whether any provider serves a corridor and
	// which providers definitively do not, so a fan-out can skip them while
	// the entry is fresh.
	CorridorSupport struct {
		SourceCountry        string   `json:"source_country"`
		DestCountry          string   `json:"dest_country"`
		Supported            bool     `json:"supported"`
		UnsupportedProviders []string `json:"unsupported_providers,omitempty"`
	}

	// ProviderMeta is the cached per-provider state.
	ProviderMeta struct {
		ProviderID string `json:"provider_id"`
		Enabled    bool   `json:"enabled"`
	}
)

// DefaultTTLConfig returns the standard base TTLs.
func DefaultTTLConfig() TTLConfig {
	return TTLConfig{
		Quote:     DefaultQuoteTTL,
		Corridor:  DefaultCorridorTTL,
		Provider:  DefaultProviderTTL,
		JitterMax: DefaultJitterMax,
	}
}

func New(store Store, ttl TTLConfig, logger zerolog.Logger) *Cache {
	if ttl.Quote <= 0 {
		ttl.Quote = DefaultQuoteTTL
	}
	if ttl.Corridor <= 0 {
		ttl.Corridor = DefaultCorridorTTL
	}
	if ttl.Provider <= 0 {
		ttl.Provider = DefaultProviderTTL
	}
	if ttl.JitterMax < 0 {
		ttl.JitterMax = 0
	}
	return &Cache{
		store:  store,
		ttl:    ttl,
		logger: logger.With().Str("module", "cache").Logger(),
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GetQuote returns the cached aggregate for a request, if present and fresh.
func (c *Cache) GetQuote(ctx context.Context, req types.QuoteRequest) (*types.AggregateResult, bool) {
	key := QuoteKey(req)
	payload, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var result types.AggregateResult
	if err := json.Unmarshal(payload, &result); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cached aggregate is corrupt")
		_ = c.store.Delete(ctx, key)
		return nil, false
	}
	return &result, true
}

// SetQuote stores an aggregate under its request key with a jittered TTL.
// Raw provider payloads and the per-call timing fields are stripped first.
func (c *Cache) SetQuote(ctx context.Context, req types.QuoteRequest, result types.AggregateResult) error {
	result.CacheHit = false
	result.ElapsedMs = 0
	for i := range result.AllProviders {
		result.AllProviders[i].Raw = nil
	}
	for i := range result.Quotes {
		result.Quotes[i].Raw = nil
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, QuoteKey(req), payload, c.jittered(c.ttl.Quote))
}

// GetCorridor returns the cached support flag for a corridor.
func (c *Cache) GetCorridor(ctx context.Context, srcCountry, dstCountry string) (*CorridorSupport, bool) {
	payload, ok, err := c.store.Get(ctx, CorridorKey(srcCountry, dstCountry))
	if err != nil || !ok {
		return nil, false
	}
	var entry CorridorSupport
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, false
	}
	return &entry, true
}

// SetCorridor stores the support flag for a corridor.
func (c *Cache) SetCorridor(ctx context.Context, entry CorridorSupport) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	key := CorridorKey(entry.SourceCountry, entry.DestCountry)
	return c.store.Set(ctx, key, payload, c.jittered(c.ttl.Corridor))
}

// GetProvider returns the cached metadata for a provider.
func (c *Cache) GetProvider(ctx context.Context, providerID string) (*ProviderMeta, bool) {
	payload, ok, err := c.store.Get(ctx, ProviderKey(providerID))
	if err != nil || !ok {
		return nil, false
	}
	var entry ProviderMeta
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, false
	}
	return &entry, true
}

// SetProvider stores per-provider metadata.
func (c *Cache) SetProvider(ctx context.Context, entry ProviderMeta) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, ProviderKey(entry.ProviderID), payload, c.jittered(c.ttl.Provider))
}

// InvalidateAllQuotes drops every entry in the quote namespace.
func (c *Cache) InvalidateAllQuotes(ctx context.Context) error {
	c.logger.Info().Msg("invalidating all cached quotes")
	return c.store.DeletePrefix(ctx, quotePrefix)
}

// InvalidateCorridor drops the corridor entry and every quote cached under
// that corridor.
func (c *Cache) InvalidateCorridor(ctx context.Context, srcCountry, dstCountry string) error {
	c.logger.Info().
		Str("source", srcCountry).
		Str("dest", dstCountry).
		Msg("invalidating corridor")
	if err := c.store.Delete(ctx, CorridorKey(srcCountry, dstCountry)); err != nil {
		return err
	}
	return c.store.DeletePrefix(ctx, CorridorQuotePrefix(srcCountry, dstCountry))
}

// InvalidateProvider drops the provider entry and, because cached aggregates
// embed per-provider quotes, the whole quote namespace.
func (c *Cache) InvalidateProvider(ctx context.Context, providerID string) error {
	c.logger.Info().Str("provider", providerID).Msg("invalidating provider")
	if err := c.store.Delete(ctx, ProviderKey(providerID)); err != nil {
		return err
	}
	return c.store.DeletePrefix(ctx, quotePrefix)
}

// Close releases the backing store.
func (c *Cache) Close() error {
	return c.store.Close()
}

func (c *Cache) jittered(base time.Duration) time.Duration {
	if c.ttl.JitterMax <= 0 {
		return base
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return base + time.Duration(c.rand.Int63n(int64(c.ttl.JitterMax)))
}
