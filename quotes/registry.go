package quotes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"remit-scout/quotes/provider"
	"remit-scout/quotes/types"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

const (
	// breakerFailureThreshold consecutive failures open a provider's
	// circuit; it half-opens again after breakerCooldown.
	breakerFailureThreshold = 5
	breakerCooldown         = 60 * time.Second
)

type (
	// Registry holds the configured provider adapters in registration order.
	// Registration order is the canonical order of fan-out results.
	Registry struct {
		mtx      sync.RWMutex
		order    []string
		entries  map[string]*registryEntry
		logger   zerolog.Logger
		onChange []func(id string, enabled bool)
	}

	registryEntry struct {
		adapter provider.Adapter
		enabled bool
		breaker *gobreaker.CircuitBreaker
	}

	// ProviderInfo is the registry's public view of one adapter.
	ProviderInfo struct {
		ID           string           `json:"id"`
		DisplayName  string           `json:"display_name"`
		Enabled      bool             `json:"enabled"`
		BreakerState string           `json:"breaker_state"`
		Corridors    []types.Corridor `json:"corridors,omitempty"`
	}
)

// NewProvider constructs the adapter for a provider name.
func NewProvider(
	pctx provider.Context,
	providerName provider.Name,
	endpoint provider.Endpoint,
) (provider.Adapter, error) {
	endpoint.Name = providerName
	switch providerName {
	case provider.ProviderRemitbee:
		return provider.NewRemitbeeProvider(pctx, endpoint), nil
	case provider.ProviderRemitGuru:
		return provider.NewRemitGuruProvider(pctx, endpoint), nil
	case provider.ProviderWise:
		return provider.NewWiseProvider(pctx, endpoint), nil
	case provider.ProviderXE:
		return provider.NewXEProvider(pctx, endpoint), nil
	case provider.ProviderRia:
		return provider.NewRiaProvider(pctx, endpoint), nil
	case provider.ProviderKoronaPay:
		return provider.NewKoronaPayProvider(pctx, endpoint), nil
	case provider.ProviderPaysend:
		return provider.NewPaysendProvider(pctx, endpoint), nil
	case provider.ProviderWireBarley:
		return provider.NewWireBarleyProvider(pctx, endpoint), nil
	case provider.ProviderMukuru:
		return provider.NewMukuruProvider(pctx, endpoint), nil
	case provider.ProviderRewire:
		return provider.NewRewireProvider(pctx, endpoint), nil
	case provider.ProviderOrbitRemit:
		return provider.NewOrbitRemitProvider(pctx, endpoint), nil
	case provider.ProviderDahabshiil:
		return provider.NewDahabshiilProvider(pctx, endpoint), nil
	case provider.ProviderAlAnsari:
		return provider.NewAlAnsariProvider(pctx, endpoint), nil
	case provider.ProviderIntermex:
		return provider.NewIntermexProvider(pctx, endpoint), nil
	case provider.ProviderPlacid:
		return provider.NewPlacidProvider(pctx, endpoint), nil
	case provider.ProviderTransferGo:
		return provider.NewTransferGoProvider(pctx, endpoint), nil
	case provider.ProviderSendwave:
		return provider.NewSendwaveProvider(pctx, endpoint), nil
	case provider.ProviderMock:
		return provider.NewMockProvider(pctx, endpoint), nil
	}
	return nil, fmt.Errorf("provider %s not found", providerName)
}

func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		entries: map[string]*registryEntry{},
		logger:  logger.With().Str("module", "registry").Logger(),
	}
}

// Register adds an adapter under its own ID. Re-registering an ID replaces
// the adapter but keeps its position and enabled state.
func (r *Registry) Register(adapter provider.Adapter, enabled bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	id := adapter.ID()
	if entry, ok := r.entries[id]; ok {
		entry.adapter = adapter
		return
	}
	settings := gobreaker.Settings{
		Name:    id,
		Timeout: breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("provider circuit state changed")
		},
	}
	r.entries[id] = &registryEntry{
		adapter: adapter,
		enabled: enabled,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
	r.order = append(r.order, id)
}

// SetEnabled toggles a provider and notifies change subscribers.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mtx.Lock()
	entry, ok := r.entries[id]
	if !ok {
		r.mtx.Unlock()
		return fmt.Errorf("provider %s not found", id)
	}
	changed := entry.enabled != enabled
	entry.enabled = enabled
	hooks := r.onChange
	r.mtx.Unlock()

	if changed {
		r.logger.Info().Str("provider", id).Bool("enabled", enabled).Msg("provider toggled")
		for _, hook := range hooks {
			hook(id, enabled)
		}
	}
	return nil
}

// OnChange subscribes to enable/disable transitions.
func (r *Registry) OnChange(hook func(id string, enabled bool)) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.onChange = append(r.onChange, hook)
}

// ActiveIDs resolves the adapter set for one request: enabled providers with
// a closed or half-open breaker, narrowed by include (when non-empty) and
// exclude, in registration order. Exclusion wins on overlap.
func (r *Registry) ActiveIDs(include, exclude []string) []string {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	includeSet := toSet(include)
	excludeSet := toSet(exclude)

	active := make([]string, 0, len(r.order))
	for _, id := range r.order {
		entry := r.entries[id]
		if !entry.enabled {
			continue
		}
		if entry.breaker.State() == gobreaker.StateOpen {
			continue
		}
		if len(includeSet) > 0 {
			if _, ok := includeSet[id]; !ok {
				continue
			}
		}
		if _, ok := excludeSet[id]; ok {
			continue
		}
		active = append(active, id)
	}
	return active
}

// Quote runs one adapter through its circuit breaker. Breaker accounting
// counts Connection, Timeout and ProviderApi failures; business failures
// like UnsupportedCorridor do not trip the circuit.
func (r *Registry) Quote(ctx context.Context, id string, req types.QuoteRequest) types.RawResult {
	r.mtx.RLock()
	entry, ok := r.entries[id]
	r.mtx.RUnlock()
	if !ok {
		return types.NewRawFailure(id, types.ErrInternal, fmt.Sprintf("provider %s not registered", id))
	}

	result, err := entry.breaker.Execute(func() (interface{}, error) {
		res := entry.adapter.Quote(ctx, req)
		if !res.Success && breakerCounts(res.ErrorKind) {
			return res, fmt.Errorf("%s: %s", res.ErrorKind, res.ErrorMessage)
		}
		return res, nil
	})
	if err != nil {
		if res, ok := result.(types.RawResult); ok {
			return res
		}
		// Breaker open: short-circuit without touching the adapter.
		return types.NewRawFailure(id, types.ErrConnection, err.Error())
	}
	return result.(types.RawResult)
}

// Get returns the adapter registered under id.
func (r *Registry) Get(id string) (provider.Adapter, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	entry, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return entry.adapter, true
}

// Providers lists every registered provider in registration order.
func (r *Registry) Providers() []ProviderInfo {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	infos := make([]ProviderInfo, 0, len(r.order))
	for _, id := range r.order {
		entry := r.entries[id]
		info := ProviderInfo{
			ID:           id,
			DisplayName:  entry.adapter.DisplayName(),
			Enabled:      entry.enabled,
			BreakerState: entry.breaker.State().String(),
		}
		if lister, ok := entry.adapter.(provider.CorridorLister); ok {
			info.Corridors = lister.SupportedCorridors()
		}
		infos = append(infos, info)
	}
	return infos
}

// Len reports the number of registered providers.
func (r *Registry) Len() int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return len(r.order)
}

func breakerCounts(kind types.ErrorKind) bool {
	switch kind {
	case types.ErrConnection, types.ErrTimeout, types.ErrProviderAPI:
		return true
	default:
		return false
	}
}

func toSet(ids []string) map[string]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
