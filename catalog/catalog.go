// Package catalog holds the canonical ISO-3166 country and ISO-4217 currency
// tables used to validate corridors. Tables are loaded once at construction
// and are immutable afterwards; lookups never perform I/O.
package catalog

import (
	"fmt"
	"strings"
	"sync"
)

// Country is one ISO-3166-1 entry with its default remittance currency.
type Country struct {
	ISO2            string
	ISO3            string
	DefaultCurrency string
}

// Catalog provides corridor and currency validity checks.
type Catalog struct {
	mtx        sync.RWMutex
	countries  map[string]Country
	currencies map[string]struct{}
	byCurrency map[string][]string
}

// New builds a catalog from the built-in ISO tables.
func New() *Catalog {
	c := &Catalog{}
	c.load()
	return c
}

func (c *Catalog) load() {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.countries = make(map[string]Country, len(countryTable))
	c.currencies = make(map[string]struct{}, len(currencyTable))
	c.byCurrency = make(map[string][]string)

	for _, ccy := range currencyTable {
		c.currencies[ccy] = struct{}{}
	}
	for _, country := range countryTable {
		c.countries[country.ISO2] = country
		c.byCurrency[country.DefaultCurrency] = append(c.byCurrency[country.DefaultCurrency], country.ISO2)
	}
}

// Reload rebuilds the lookup tables. Callers hook cache invalidation on it.
func (c *Catalog) Reload() {
	c.load()
}

// DefaultCurrency returns the primary currency for an ISO-3166 alpha-2
// country code, e.g. "MX" -> "MXN".
func (c *Catalog) DefaultCurrency(country string) (string, bool) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	entry, ok := c.countries[strings.ToUpper(country)]
	if !ok {
		return "", false
	}
	return entry.DefaultCurrency, true
}

// CountriesForCurrency returns every country whose default currency matches.
func (c *Catalog) CountriesForCurrency(currency string) []string {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	countries := c.byCurrency[strings.ToUpper(currency)]
	out := make([]string, len(countries))
	copy(out, countries)
	return out
}

// IsValidCountry reports whether code is a known ISO-3166-1 alpha-2 code.
func (c *Catalog) IsValidCountry(code string) bool {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	_, ok := c.countries[strings.ToUpper(code)]
	return ok
}

// IsValidCurrency reports whether code is a known ISO-4217 code.
func (c *Catalog) IsValidCurrency(code string) bool {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	_, ok := c.currencies[strings.ToUpper(code)]
	return ok
}

// ISO3 returns the alpha-3 code for an alpha-2 country code.
func (c *Catalog) ISO3(code string) (string, bool) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()

	entry, ok := c.countries[strings.ToUpper(code)]
	if !ok {
		return "", false
	}
	return entry.ISO3, true
}

// ValidateCorridor checks all four corridor codes against the ISO tables.
func (c *Catalog) ValidateCorridor(srcCountry, srcCurrency, dstCountry, dstCurrency string) error {
	if !c.IsValidCountry(srcCountry) {
		return fmt.Errorf("invalid source country: %q", srcCountry)
	}
	if !c.IsValidCountry(dstCountry) {
		return fmt.Errorf("invalid destination country: %q", dstCountry)
	}
	if !c.IsValidCurrency(srcCurrency) {
		return fmt.Errorf("invalid source currency: %q", srcCurrency)
	}
	if dstCurrency != "" && !c.IsValidCurrency(dstCurrency) {
		return fmt.Errorf("invalid destination currency: %q", dstCurrency)
	}
	return nil
}
