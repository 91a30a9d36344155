package currency

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrUnavailable is returned when an amount cannot be converted: the rate table
// is not loaded or lacks a usable rate for one side.
var ErrUnavailable = errors.New("currency conversion unavailable")

// Convert converts amount from one currency to another through the table's base
// currency. The result is not rounded. Without a table nothing converts, not
// even a currency to itself.
func Convert(amount decimal.Decimal, from, to string, rt *RateTable) (decimal.Decimal, error) {
	if rt == nil {
		return decimal.Zero, fmt.Errorf("%w: no rate table", ErrUnavailable)
	}
	from, to = normalize(from), normalize(to)
	if from == to {
		return amount, nil
	}

	fromRate, ok := rt.Rate(from)
	if !ok || !fromRate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: missing rate for %s", ErrUnavailable, from)
	}
	toRate, ok := rt.Rate(to)
	if !ok || !toRate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: missing rate for %s", ErrUnavailable, to)
	}

	return amount.Div(fromRate).Mul(toRate), nil
}
