package domain

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// ExchangeRate is one row of the backend exchange-rate list. The rate is kept
// raw because the backend sends it either as a decimal string or as a number.
type ExchangeRate struct {
	ID           int64           `json:"id,omitempty"`
	CurrencyCode string          `json:"currency_code"`
	RateFromUSD  json.RawMessage `json:"rate_from_usd"`
	UpdatedAt    string          `json:"updated_at,omitempty"`
}

// Rate parses the raw rate. ok is false for missing or unparseable values.
func (r ExchangeRate) Rate() (decimal.Decimal, bool) {
	raw := strings.Trim(strings.TrimSpace(string(r.RateFromUSD)), `"`)
	if raw == "" || raw == "null" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
