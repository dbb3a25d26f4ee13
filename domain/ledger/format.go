package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Default display settings (Colombian pesos).
const (
	DefaultLocale   = "es-CO"
	DefaultCurrency = "COP"
	DefaultSymbol   = "$"
)

// Formatter renders amounts with locale grouping and a currency symbol.
type Formatter struct {
	tag      language.Tag
	unit     currency.Unit
	symbol   string
	fraction int
}

// NewFormatter builds a formatter.
// locale is a BCP 47 tag, code an ISO 4217 currency code.
// An empty symbol falls back to the ISO code.
func NewFormatter(locale, code, symbol string, fraction int) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", code, err)
	}
	if symbol == "" {
		symbol = unit.String()
	}
	if fraction < 0 {
		fraction = 0
	}
	return &Formatter{tag: tag, unit: unit, symbol: symbol, fraction: fraction}, nil
}

// DefaultFormatter formats as es-CO pesos with two decimals.
func DefaultFormatter() *Formatter {
	f, err := NewFormatter(DefaultLocale, DefaultCurrency, DefaultSymbol, 2)
	if err != nil {
		panic(err)
	}
	return f
}

// Format renders amount, e.g. "$ 49.750,00".
func (f *Formatter) Format(amount decimal.Decimal) string {
	p := message.NewPrinter(f.tag)
	rounded := amount.Round(int32(f.fraction))
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	n := number.Decimal(rounded.InexactFloat64(),
		number.MinFractionDigits(f.fraction),
		number.MaxFractionDigits(f.fraction),
	)
	return sign + f.symbol + " " + p.Sprint(n)
}

// Currency returns the ISO currency code.
func (f *Formatter) Currency() string {
	return f.unit.String()
}

// Locale returns the locale tag.
func (f *Formatter) Locale() string {
	return f.tag.String()
}
