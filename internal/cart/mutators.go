package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tableside-backend/pkg/money"
)

// newLineID is swapped in tests.
var newLineID = uuid.NewString

// Item is the menu item snapshot taken when a line is added.
type Item struct {
	ID    uuid.UUID
	Title string
	Price decimal.Decimal
}

// Customized is a line produced by a customization session.
type Customized struct {
	Item      Item
	Qty       int
	UnitPrice decimal.Decimal
	Notes     string
	Modifiers Modifiers
}

// The mutators below never modify their input slice.

// Increment bumps qty of the line with the given id.
func Increment(lines []Line, id string) []Line {
	out := clone(lines)
	for i := range out {
		if out[i].ID == id {
			out[i].Qty++
		}
	}
	return out
}

// Decrement lowers qty of the line with the given id and drops it once qty reaches zero.
func Decrement(lines []Line, id string) []Line {
	out := make([]Line, 0, len(lines))
	for _, line := range lines {
		if line.ID == id {
			line.Qty--
			if line.Qty <= 0 {
				continue
			}
		}
		out = append(out, line)
	}
	return out
}

func Remove(lines []Line, id string) []Line {
	out := make([]Line, 0, len(lines))
	for _, line := range lines {
		if line.ID != id {
			out = append(out, line)
		}
	}
	return out
}

// AddPlain merges into an existing unmodified line for the same item, or appends a new one.
func AddPlain(lines []Line, item Item) []Line {
	out := clone(lines)
	for i := range out {
		if out[i].ItemID == item.ID && out[i].Modifiers.IsNone() && out[i].Notes == "" {
			out[i].Qty++
			return out
		}
	}
	return append(out, Line{
		ID:        newLineID(),
		Title:     item.Title,
		UnitPrice: item.Price,
		Qty:       1,
		ItemID:    item.ID,
		Modifiers: NoModifiers(),
	})
}

// AddCustomized always appends a new line; modifier-bearing lines are never merged.
func AddCustomized(lines []Line, c Customized) []Line {
	qty := c.Qty
	if qty < 1 {
		qty = 1
	}
	return append(clone(lines), Line{
		ID:        newLineID(),
		Title:     c.Item.Title,
		UnitPrice: c.UnitPrice,
		Qty:       qty,
		ItemID:    c.Item.ID,
		Notes:     c.Notes,
		Modifiers: c.Modifiers,
	})
}

// Find returns the line with the given id.
func Find(lines []Line, id string) (Line, bool) {
	for _, line := range lines {
		if line.ID == id {
			return line, true
		}
	}
	return Line{}, false
}

// Subtotal is the unrounded sum of unitPrice x qty.
func Subtotal(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

func Totals(lines []Line) money.Totals {
	return money.ComputeTotals(Subtotal(lines))
}

func clone(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}
