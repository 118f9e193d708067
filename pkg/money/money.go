// Package money holds the decimal helpers shared by the ledger and the
// settlement math. All comparisons tolerate sub-cent drift so that values
// that round to the same cent are treated as equal.
package money

import "github.com/shopspring/decimal"

// Epsilon is one cent: amounts (and claimed quantities, which live on the
// same decimal grid) closer than this are considered equal.
var Epsilon = decimal.NewFromFloat(0.01)

// Equal reports whether a and b differ by less than Epsilon.
func Equal(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(Epsilon)
}

// LTE reports whether a <= b with Epsilon tolerance, so a value a cent's
// whisker above b still passes.
func LTE(a, b decimal.Decimal) bool {
	return a.LessThanOrEqual(b.Add(Epsilon))
}

// GT reports whether a exceeds b beyond the tolerance.
func GT(a, b decimal.Decimal) bool {
	return !LTE(a, b)
}

// Sum adds up the provided amounts.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// UnitPrice derives a per-unit price from a line total and its quantity.
// Items store line totals, not unit prices, so every per-member figure
// goes through this. A zero quantity yields zero rather than a division
// error; such items cannot be claimed anyway.
func UnitPrice(lineTotal, quantity decimal.Decimal) decimal.Decimal {
	if quantity.IsZero() {
		return decimal.Zero
	}
	return lineTotal.Div(quantity)
}
