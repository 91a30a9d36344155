package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/storefront/internal/currency"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/metrics"
	"github.com/shopspring/decimal"
)

// FallbackCurrency is assumed for catalog items that do not declare one.
const FallbackCurrency = "USD"

// Unavailable is shown when an item has no usable price at all.
const Unavailable = "Price unavailable"

// NativeMarker is appended when a price is shown in the item's own currency
// because it could not be converted to the display currency.
const NativeMarker = "*"

var (
	ErrNoPrice        = errors.New("no valid price")
	ErrUnknownVariant = errors.New("unknown variant")
)

// Display is a resolved price, ready for rendering.
type Display struct {
	Text     string           `json:"text"`
	Min      *decimal.Decimal `json:"min,omitempty"`
	Max      *decimal.Decimal `json:"max,omitempty"`
	Currency string           `json:"currency,omitempty"`
	Native   bool             `json:"native"`
}

// Range reports whether the price spans more than one amount.
func (d Display) Range() bool {
	return d.Min != nil && d.Max != nil && d.Min.StringFixed(2) != d.Max.StringFixed(2)
}

// Resolver turns catalog prices into display strings.
type Resolver struct {
	formatter *currency.Formatter
}

func NewResolver(f *currency.Formatter) *Resolver {
	return &Resolver{formatter: f}
}

var defaultResolver = &Resolver{}

// ResolveDisplayPrice returns the display text for item in the display currency.
func ResolveDisplayPrice(item domain.PriceInfo, rt *currency.RateTable, display string) string {
	return defaultResolver.Resolve(item, rt, display).Text
}

// Resolve computes the representative price of item: a single price or a
// min - max range over its sizes, converted to display when rates allow,
// otherwise in the item's own currency with a trailing marker.
func (r *Resolver) Resolve(item domain.PriceInfo, rt *currency.RateTable, display string) Display {
	native := nativeCurrency(item)
	lo, hi, ok := bounds(item)
	if !ok {
		return Display{Text: Unavailable}
	}

	minConv, errMin := currency.Convert(lo, native, display, rt)
	maxConv, errMax := currency.Convert(hi, native, display, rt)
	if errMin == nil && errMax == nil {
		return Display{
			Text:     r.text(minConv, maxConv, display, ""),
			Min:      &minConv,
			Max:      &maxConv,
			Currency: strings.ToUpper(display),
		}
	}

	metrics.NativePriceFallbacks.Inc()
	return Display{
		Text:     r.text(lo, hi, native, NativeMarker),
		Min:      &lo,
		Max:      &hi,
		Currency: native,
		Native:   true,
	}
}

// UnitPrice is the per-unit price put into the cart for the chosen variant:
// converted to display when possible, otherwise the native price and currency.
// A variant on an item without sizes is unknown.
func (r *Resolver) UnitPrice(item domain.PriceInfo, variant string, rt *currency.RateTable, display string) (decimal.Decimal, string, error) {
	native := nativeCurrency(item)

	var price decimal.Decimal
	if variant != "" {
		found := false
		for _, s := range item.Sizes {
			if s.Label != variant {
				continue
			}
			p, err := decimal.NewFromString(strings.TrimSpace(s.Price))
			if err != nil {
				return decimal.Zero, "", fmt.Errorf("%w: size %q has price %q", ErrNoPrice, variant, s.Price)
			}
			price, found = p, true
			break
		}
		if !found {
			return decimal.Zero, "", fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
		}
	} else {
		lo, _, ok := bounds(item)
		if !ok {
			return decimal.Zero, "", ErrNoPrice
		}
		price = lo
	}

	converted, err := currency.Convert(price, native, display, rt)
	if err != nil {
		return price, native, nil
	}
	return converted, strings.ToUpper(display), nil
}

func (r *Resolver) text(lo, hi decimal.Decimal, code, suffix string) string {
	if lo.StringFixed(2) == hi.StringFixed(2) {
		return r.format(lo, code) + suffix
	}
	return r.format(lo, code) + " - " + r.format(hi, code) + suffix
}

func (r *Resolver) format(amount decimal.Decimal, code string) string {
	if r.formatter == nil {
		return currency.Format(amount, code)
	}
	return r.formatter.Format(amount, code)
}

func nativeCurrency(item domain.PriceInfo) string {
	code := strings.ToUpper(strings.TrimSpace(item.DefaultCurrency))
	if code == "" {
		return FallbackCurrency
	}
	return code
}

// bounds returns the lowest and highest candidate price. Size prices win when
// any of them parse; otherwise the catalog's calculated price, then the base price.
func bounds(item domain.PriceInfo) (decimal.Decimal, decimal.Decimal, bool) {
	var lo, hi decimal.Decimal
	found := false
	for _, s := range item.Sizes {
		p, err := decimal.NewFromString(strings.TrimSpace(s.Price))
		if err != nil {
			continue
		}
		if !found {
			lo, hi, found = p, p, true
			continue
		}
		lo = decimal.Min(lo, p)
		hi = decimal.Max(hi, p)
	}
	if found {
		return lo, hi, true
	}

	if item.CalculatedPrice != nil {
		return *item.CalculatedPrice, *item.CalculatedPrice, true
	}
	base, err := decimal.NewFromString(strings.TrimSpace(item.BasePrice))
	if err != nil {
		return decimal.Zero, decimal.Zero, false
	}
	return base, base, true
}
