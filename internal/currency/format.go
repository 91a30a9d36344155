package currency

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// LocalCode is the home-market currency. It is always rendered as "ETB 12.00",
// whatever the locale would do.
const LocalCode = "ETB"

// Formatter renders amounts for display with exactly two fraction digits.
type Formatter struct {
	local   string
	printer *message.Printer
}

func NewFormatter(local string, tag language.Tag) *Formatter {
	return &Formatter{
		local:   normalize(local),
		printer: message.NewPrinter(tag),
	}
}

var defaultFormatter = NewFormatter(LocalCode, language.English)

// Format renders amount in code using the default English formatter.
func Format(amount decimal.Decimal, code string) string {
	return defaultFormatter.Format(amount, code)
}

func (f *Formatter) Format(amount decimal.Decimal, code string) string {
	code = normalize(code)
	if code == f.local {
		return plain(amount, code)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return plain(amount, code)
	}

	symbol := strings.TrimSpace(f.printer.Sprint(currency.NarrowSymbol(unit)))
	if symbol == "" {
		return plain(amount, code)
	}
	number := f.printer.Sprintf("%.2f", amount.Round(2).InexactFloat64())
	if amount.IsNegative() {
		return "-" + symbol + strings.TrimPrefix(number, "-")
	}
	return symbol + number
}

func plain(amount decimal.Decimal, code string) string {
	return code + " " + amount.StringFixed(2)
}
