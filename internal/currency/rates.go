package currency

import (
	"sort"
	"strings"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultBase is the currency the backend expresses every rate against.
const DefaultBase = "USD"

// RateTable maps currency codes to their rate relative to a base currency.
// A nil *RateTable means the rates are unavailable.
type RateTable struct {
	base  string
	rates map[string]decimal.Decimal
}

// NewRateTable builds a table from raw rates. Non-positive rates are dropped
// and the base currency is always present with rate 1.
func NewRateTable(base string, rates map[string]decimal.Decimal) *RateTable {
	base = normalize(base)
	if base == "" {
		base = DefaultBase
	}
	t := &RateTable{base: base, rates: make(map[string]decimal.Decimal, len(rates)+1)}
	for code, rate := range rates {
		code = normalize(code)
		if code == "" || !rate.IsPositive() {
			continue
		}
		t.rates[code] = rate
	}
	if _, ok := t.rates[base]; !ok {
		t.rates[base] = decimal.NewFromInt(1)
	}
	return t
}

// FromExchangeRates builds a table from the backend exchange-rate list,
// skipping rows whose rate does not parse.
func FromExchangeRates(base string, rows []domain.ExchangeRate) *RateTable {
	rates := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		rate, ok := row.Rate()
		if !ok {
			continue
		}
		rates[row.CurrencyCode] = rate
	}
	return NewRateTable(base, rates)
}

func (t *RateTable) Base() string {
	return t.base
}

// Rate returns the base-relative rate for code.
func (t *RateTable) Rate(code string) (decimal.Decimal, bool) {
	if t == nil {
		return decimal.Zero, false
	}
	r, ok := t.rates[normalize(code)]
	return r, ok
}

// Codes lists the known currencies in alphabetical order.
func (t *RateTable) Codes() []string {
	if t == nil {
		return nil
	}
	codes := make([]string, 0, len(t.rates))
	for code := range t.rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Rates returns a copy of the table contents.
func (t *RateTable) Rates() map[string]decimal.Decimal {
	if t == nil {
		return nil
	}
	out := make(map[string]decimal.Decimal, len(t.rates))
	for k, v := range t.rates {
		out[k] = v
	}
	return out
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
