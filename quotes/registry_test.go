package quotes

import (
	"context"
	"testing"

	"remit-scout/catalog"
	"remit-scout/quotes/provider"
	"remit-scout/quotes/types"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewProviderBuildsEveryAdapter(t *testing.T) {
	pctx := provider.NewContext(catalog.New(), zerolog.Nop())

	for _, name := range provider.AllNames {
		adapter, err := NewProvider(pctx, name, provider.Endpoint{})
		require.NoError(t, err, "provider %s", name)
		require.Equal(t, name.String(), adapter.ID())
		require.NotEmpty(t, adapter.DisplayName())
	}

	_, err := NewProvider(pctx, provider.Name("nope"), provider.Endpoint{})
	require.Error(t, err)
}

func TestRegistryActiveIDs(t *testing.T) {
	registry := newStubRegistry(
		&stubAdapter{id: "p1", rate: "1", fee: "1"},
		&stubAdapter{id: "p2", rate: "1", fee: "1"},
		&stubAdapter{id: "p3", rate: "1", fee: "1"},
	)

	t.Run("all_enabled", func(t *testing.T) {
		require.Equal(t, []string{"p1", "p2", "p3"}, registry.ActiveIDs(nil, nil))
	})

	t.Run("include_narrows", func(t *testing.T) {
		require.Equal(t, []string{"p2"}, registry.ActiveIDs([]string{"p2"}, nil))
	})

	t.Run("exclude_wins_over_include", func(t *testing.T) {
		require.Empty(t, registry.ActiveIDs([]string{"p2"}, []string{"p2"}))
	})

	t.Run("disabled_skipped", func(t *testing.T) {
		require.NoError(t, registry.SetEnabled("p1", false))
		require.Equal(t, []string{"p2", "p3"}, registry.ActiveIDs(nil, nil))
		require.NoError(t, registry.SetEnabled("p1", true))
	})

	t.Run("unknown_provider_errors", func(t *testing.T) {
		require.Error(t, registry.SetEnabled("nope", true))
	})
}

func TestRegistryChangeHooks(t *testing.T) {
	registry := newStubRegistry(&stubAdapter{id: "p1", rate: "1", fee: "1"})

	var events []bool
	registry.OnChange(func(id string, enabled bool) {
		require.Equal(t, "p1", id)
		events = append(events, enabled)
	})

	require.NoError(t, registry.SetEnabled("p1", false))
	require.NoError(t, registry.SetEnabled("p1", false)) // no transition, no event
	require.NoError(t, registry.SetEnabled("p1", true))
	require.Equal(t, []bool{false, true}, events)
}

func TestRegistryBreakerTripsOnConsecutiveFailures(t *testing.T) {
	adapter := &stubAdapter{id: "flaky", fail: types.ErrConnection}
	registry := newStubRegistry(adapter)

	for i := 0; i < breakerFailureThreshold; i++ {
		res := registry.Quote(context.Background(), "flaky", testReq())
		require.False(t, res.Success)
		require.Equal(t, types.ErrConnection, res.ErrorKind)
	}

	// Circuit open: the provider drops out of the active set and quotes
	// short-circuit without touching the adapter.
	require.Empty(t, registry.ActiveIDs(nil, nil))
	res := registry.Quote(context.Background(), "flaky", testReq())
	require.False(t, res.Success)
	require.Equal(t, types.ErrConnection, res.ErrorKind)
}

func TestRegistryBreakerIgnoresBusinessFailures(t *testing.T) {
	adapter := &stubAdapter{id: "narrow", fail: types.ErrUnsupportedCorridor}
	registry := newStubRegistry(adapter)

	for i := 0; i < breakerFailureThreshold*2; i++ {
		res := registry.Quote(context.Background(), "narrow", testReq())
		require.False(t, res.Success)
		require.Equal(t, types.ErrUnsupportedCorridor, res.ErrorKind)
	}
	require.Equal(t, []string{"narrow"}, registry.ActiveIDs(nil, nil))
}

func TestRegistryProviders(t *testing.T) {
	registry := newStubRegistry(
		&stubAdapter{id: "p1", rate: "1", fee: "1"},
		&stubAdapter{id: "p2", rate: "1", fee: "1"},
	)
	require.NoError(t, registry.SetEnabled("p2", false))

	infos := registry.Providers()
	require.Len(t, infos, 2)
	require.Equal(t, "p1", infos[0].ID)
	require.True(t, infos[0].Enabled)
	require.False(t, infos[1].Enabled)
	require.Equal(t, 2, registry.Len())
}

func TestRegistryQuoteUnknownProvider(t *testing.T) {
	registry := newStubRegistry()
	res := registry.Quote(context.Background(), "ghost", testReq())
	require.False(t, res.Success)
	require.Equal(t, types.ErrInternal, res.ErrorKind)
}
