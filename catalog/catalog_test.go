package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultCurrency(t *testing.T) {
	c := New()

	tests := []struct {
		country  string
		currency string
	}{
		{"US", "USD"},
		{"MX", "MXN"},
		{"IN", "INR"},
		{"PH", "PHP"},
		{"GB", "GBP"},
		{"DE", "EUR"},
	}
	for _, tc := range tests {
		ccy, ok := c.DefaultCurrency(tc.country)
		require.True(t, ok, tc.country)
		require.Equal(t, tc.currency, ccy)
	}

	t.Run("case_insensitive", func(t *testing.T) {
		ccy, ok := c.DefaultCurrency("mx")
		require.True(t, ok)
		require.Equal(t, "MXN", ccy)
	})

	t.Run("unknown", func(t *testing.T) {
		_, ok := c.DefaultCurrency("ZZ")
		require.False(t, ok)
	})
}

func TestISO3(t *testing.T) {
	c := New()

	iso3, ok := c.ISO3("US")
	require.True(t, ok)
	require.Equal(t, "USA", iso3)

	iso3, ok = c.ISO3("ph")
	require.True(t, ok)
	require.Equal(t, "PHL", iso3)

	_, ok = c.ISO3("ZZ")
	require.False(t, ok)
}

func TestCountriesForCurrency(t *testing.T) {
	c := New()

	require.Contains(t, c.CountriesForCurrency("EUR"), "DE")
	require.Contains(t, c.CountriesForCurrency("eur"), "FR")
	require.Empty(t, c.CountriesForCurrency("XXX"))
}

func TestValidity(t *testing.T) {
	c := New()

	require.True(t, c.IsValidCountry("US"))
	require.True(t, c.IsValidCountry("so"))
	require.False(t, c.IsValidCountry("USA"))
	require.False(t, c.IsValidCountry(""))

	require.True(t, c.IsValidCurrency("USD"))
	require.True(t, c.IsValidCurrency("kes"))
	require.False(t, c.IsValidCurrency("US"))
	require.False(t, c.IsValidCurrency(""))
}

func TestValidateCorridor(t *testing.T) {
	c := New()

	require.NoError(t, c.ValidateCorridor("US", "USD", "MX", "MXN"))
	// empty destination currency is resolved upstream from the country
	require.NoError(t, c.ValidateCorridor("US", "USD", "MX", ""))

	require.Error(t, c.ValidateCorridor("ZZ", "USD", "MX", "MXN"))
	require.Error(t, c.ValidateCorridor("US", "USD", "ZZ", "MXN"))
	require.Error(t, c.ValidateCorridor("US", "XXL", "MX", "MXN"))
	require.Error(t, c.ValidateCorridor("US", "USD", "MX", "XXL"))
}

func TestReloadKeepsTables(t *testing.T) {
	c := New()
	c.Reload()
	require.True(t, c.IsValidCountry("US"))
	require.True(t, c.IsValidCurrency("USD"))
}
