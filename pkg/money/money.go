// Package money holds the decimal helpers shared by cart totals and order rows.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TaxRate is the single flat rate applied to every subtotal.
var TaxRate = decimal.RequireFromString("0.0875")

// DisplayPlaces is the currency precision used only when rendering.
const DisplayPlaces = 2

// Totals is the unrounded aggregate of a cart.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// ComputeTotals applies the flat tax to subtotal. Nothing is rounded here.
func ComputeTotals(subtotal decimal.Decimal) Totals {
	tax := subtotal.Mul(TaxRate)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// Display rounds half away from zero to two places and prefixes "$".
func Display(amount decimal.Decimal) string {
	s := amount.Round(DisplayPlaces).StringFixed(DisplayPlaces)
	if strings.HasPrefix(s, "-") {
		return "-$" + strings.TrimPrefix(s, "-")
	}
	return "$" + s
}

// Parse reads a price from user or JSON input.
func Parse(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(value), "$"))
	if value == "" {
		return decimal.Zero, fmt.Errorf("price is required")
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q: %w", value, err)
	}
	return d, nil
}
