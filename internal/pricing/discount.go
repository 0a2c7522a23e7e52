package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Discount is a parsed discount offer value.
type Discount struct {
	Percent bool
	Value   decimal.Decimal
}

var currencyAliases = []string{"MAD", "DHS", "DH"}

// ParseDiscount reads "20%" as a percentage and "50", "50.00" or "50 MAD" as a fixed
// amount off the order. Anything else is reported as unparsable.
func ParseDiscount(raw, currency string) (Discount, bool) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if value == "" {
		return Discount{}, false
	}

	if rest, ok := strings.CutSuffix(value, "%"); ok {
		pct, err := decimal.NewFromString(strings.TrimSpace(rest))
		if err != nil || !pct.IsPositive() || pct.GreaterThan(hundred) {
			return Discount{}, false
		}
		return Discount{Percent: true, Value: pct}, true
	}

	value = stripCurrency(value, currency)
	value = strings.ReplaceAll(value, ",", ".")
	amount, err := decimal.NewFromString(value)
	if err != nil || !amount.IsPositive() {
		return Discount{}, false
	}
	return Discount{Value: amount}, true
}

// AmountOn returns the money taken off subtotal, never more than subtotal.
func (d Discount) AmountOn(subtotal decimal.Decimal) decimal.Decimal {
	amount := d.Value
	if d.Percent {
		amount = subtotal.Mul(d.Value).Div(hundred)
	}
	amount = round(amount)
	if amount.GreaterThan(subtotal) {
		return subtotal
	}
	return amount
}

func stripCurrency(value, currency string) string {
	codes := currencyAliases
	if c := strings.ToUpper(strings.TrimSpace(currency)); c != "" {
		codes = append([]string{c}, currencyAliases...)
	}
	for _, code := range codes {
		if rest, ok := strings.CutSuffix(value, code); ok {
			return strings.TrimSpace(rest)
		}
		if rest, ok := strings.CutPrefix(value, code); ok {
			return strings.TrimSpace(rest)
		}
	}
	return value
}
