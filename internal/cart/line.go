package cart

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Line is one entry in a table's pending order.
//
// Title and UnitPrice are captured when the line is added and never
// re-fetched. Qty is always >= 1 for a line that is still in the cart.
type Line struct {
	ID        string
	Title     string
	UnitPrice decimal.Decimal
	Qty       int
	// ItemID is the menu item key used at submission. uuid.Nil means unresolved.
	ItemID    uuid.UUID
	Notes     string
	Modifiers Modifiers

	// priceMissing is set when a decoded line carried no numeric unitPrice.
	priceMissing bool
}

// LineTotal returns UnitPrice x Qty without rounding.
func (l Line) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Qty)))
}

// Problem describes why a line cannot be submitted, or "" when it can.
func (l Line) Problem() string {
	switch {
	case l.ItemID == uuid.Nil:
		return "missing item id"
	case l.priceMissing:
		return "missing unit price"
	case l.Qty < 1:
		return "quantity must be at least 1"
	}
	return ""
}

// ModifierKind tags which variant a Modifiers value holds.
type ModifierKind string

const (
	ModifierKindNone    ModifierKind = "none"
	ModifierKindLegacy  ModifierKind = "legacy"
	ModifierKindGeneric ModifierKind = "generic"
)

// Modifiers is the customization attached to a line: nothing, the fixed
// legacy noodle-bowl fields, or generic per-group selections. The variant is
// fixed when the line is created or decoded.
type Modifiers struct {
	kind       ModifierKind
	legacy     LegacyModifiers
	selections []Selection
}

// LegacyModifiers is the fixed-shape customization used by older menus.
type LegacyModifiers struct {
	BowlSize   string   `json:"bowlSize,omitempty"`
	NoodleSize string   `json:"noodleSize,omitempty"`
	Broth      string   `json:"broth,omitempty"`
	Removed    []string `json:"removed,omitempty"`
	ExtraMeats []string `json:"extraMeats,omitempty"`
	Extras     []string `json:"extras,omitempty"`
}

func (l LegacyModifiers) isZero() bool {
	return l.BowlSize == "" && l.NoodleSize == "" && l.Broth == "" &&
		len(l.Removed) == 0 && len(l.ExtraMeats) == 0 && len(l.Extras) == 0
}

// Selection is the picks made in one modifier group.
type Selection struct {
	GroupID   uuid.UUID        `json:"groupId"`
	GroupName string           `json:"groupName"`
	Options   []SelectedOption `json:"options"`
}

// SelectedOption is one picked option. Qty is 1 unless the group is repeatable.
type SelectedOption struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Qty  int       `json:"qty"`
}

func NoModifiers() Modifiers {
	return Modifiers{kind: ModifierKindNone}
}

// NewLegacyModifiers returns NoModifiers when every legacy field is empty.
func NewLegacyModifiers(legacy LegacyModifiers) Modifiers {
	if legacy.isZero() {
		return NoModifiers()
	}
	return Modifiers{kind: ModifierKindLegacy, legacy: legacy}
}

// NewGenericModifiers drops selections without options and returns
// NoModifiers when nothing is left.
func NewGenericModifiers(selections []Selection) Modifiers {
	kept := make([]Selection, 0, len(selections))
	for _, sel := range selections {
		if len(sel.Options) == 0 {
			continue
		}
		kept = append(kept, sel)
	}
	if len(kept) == 0 {
		return NoModifiers()
	}
	return Modifiers{kind: ModifierKindGeneric, selections: kept}
}

func (m Modifiers) Kind() ModifierKind {
	if m.kind == "" {
		return ModifierKindNone
	}
	return m.kind
}

func (m Modifiers) IsNone() bool {
	return m.Kind() == ModifierKindNone
}

func (m Modifiers) Legacy() (LegacyModifiers, bool) {
	return m.legacy, m.kind == ModifierKindLegacy
}

func (m Modifiers) Selections() []Selection {
	if m.kind != ModifierKindGeneric {
		return nil
	}
	return m.selections
}

// lineJSON is the persisted shape: {id,title,unitPrice,qty,meta:{item_id,...}}.
type lineJSON struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	UnitPrice json.RawMessage `json:"unitPrice"`
	Qty       int             `json:"qty"`
	Meta      *metaJSON       `json:"meta,omitempty"`
}

type metaJSON struct {
	ItemID     string      `json:"item_id,omitempty"`
	Notes      string      `json:"notes,omitempty"`
	Selections []Selection `json:"selections,omitempty"`
	LegacyModifiers
}

func (l Line) MarshalJSON() ([]byte, error) {
	price, err := l.UnitPrice.MarshalJSON()
	if err != nil {
		return nil, err
	}
	if l.priceMissing {
		price = []byte("null")
	}
	meta := &metaJSON{Notes: l.Notes}
	if l.ItemID != uuid.Nil {
		meta.ItemID = l.ItemID.String()
	}
	switch l.Modifiers.Kind() {
	case ModifierKindLegacy:
		meta.LegacyModifiers = l.Modifiers.legacy
	case ModifierKindGeneric:
		meta.Selections = l.Modifiers.selections
	}
	return json.Marshal(lineJSON{
		ID:        l.ID,
		Title:     l.Title,
		UnitPrice: price,
		Qty:       l.Qty,
		Meta:      meta,
	})
}

// UnmarshalJSON resolves the modifier variant once. When both selections and
// legacy fields are present the selections win.
func (l *Line) UnmarshalJSON(data []byte) error {
	var raw lineJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if strings.TrimSpace(raw.ID) == "" {
		return fmt.Errorf("cart line without id")
	}

	out := Line{ID: raw.ID, Title: raw.Title, Qty: raw.Qty, Modifiers: NoModifiers()}

	price := strings.TrimSpace(string(raw.UnitPrice))
	if price == "" || price == "null" {
		out.priceMissing = true
	} else if err := out.UnitPrice.UnmarshalJSON(raw.UnitPrice); err != nil {
		out.priceMissing = true
	}

	if raw.Meta != nil {
		out.Notes = raw.Meta.Notes
		if id, err := uuid.Parse(strings.TrimSpace(raw.Meta.ItemID)); err == nil {
			out.ItemID = id
		}
		if len(raw.Meta.Selections) > 0 {
			out.Modifiers = NewGenericModifiers(raw.Meta.Selections)
		} else {
			out.Modifiers = NewLegacyModifiers(raw.Meta.LegacyModifiers)
		}
	}

	*l = out
	return nil
}
