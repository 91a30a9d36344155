package cart

import (
	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// ShippingPolicy prices delivery: free above the threshold, a flat fee otherwise.
// Both amounts are read in the cart's currency.
type ShippingPolicy struct {
	FreeThreshold    decimal.Decimal
	FlatFee          decimal.Decimal
	FallbackCurrency string
}

func DefaultShippingPolicy() ShippingPolicy {
	return ShippingPolicy{
		FreeThreshold:    decimal.NewFromInt(2000),
		FlatFee:          decimal.NewFromInt(150),
		FallbackCurrency: "ETB",
	}
}

type Summary struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Currency string          `json:"currency"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
	// MixedCurrency is set when lines carry different currencies. Amounts are
	// then summed without conversion and the subtotal is not meaningful.
	MixedCurrency bool `json:"mixed_currency"`
}

// Summarize totals the cart. The subtotal is only valid for single-currency carts.
func Summarize(items []domain.CartLineItem, policy ShippingPolicy) Summary {
	sum := Summary{
		Subtotal: decimal.Zero,
		Currency: policy.FallbackCurrency,
	}
	if len(items) > 0 {
		sum.Currency = items[0].Currency
	}

	for _, item := range items {
		sum.Subtotal = sum.Subtotal.Add(item.LineTotal())
		if item.Currency != sum.Currency {
			sum.MixedCurrency = true
		}
	}

	if sum.Subtotal.GreaterThan(policy.FreeThreshold) {
		sum.Shipping = decimal.Zero
	} else {
		sum.Shipping = policy.FlatFee
	}
	sum.Total = sum.Subtotal.Add(sum.Shipping)
	return sum
}
