package modifiers

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tableside-backend/internal/cart"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tableside-backend/pkg/errors"
)

// Group is a modifier group as offered for one menu item.
type Group struct {
	ID            uuid.UUID           `json:"id"`
	Name          string              `json:"name"`
	SelectionMode enums.SelectionMode `json:"selectionMode"`
	MaxSelect     int                 `json:"maxSelect"`
	Repeatable    bool                `json:"repeatable"`
	Options       []Option            `json:"options"`
}

type Option struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	PriceDelta decimal.Decimal `json:"priceDelta"`
}

func (g Group) option(id uuid.UUID) (Option, bool) {
	for _, opt := range g.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return Option{}, false
}

// Session tracks the picks of one item-customization. It is not safe for
// concurrent use.
type Session struct {
	item   cart.Item
	groups []Group

	single map[uuid.UUID]uuid.UUID
	multi  map[uuid.UUID]map[uuid.UUID]struct{}
	qty    map[uuid.UUID]int

	lineQty int
	notes   string
	closed  bool
}

// NewSession opens a session in the fully reset state.
func NewSession(item cart.Item, groups []Group) *Session {
	s := &Session{item: item, groups: groups}
	s.Reset()
	return s
}

// Reset drops every pick, the notes and the line quantity, and reopens the session.
func (s *Session) Reset() {
	s.single = map[uuid.UUID]uuid.UUID{}
	s.multi = map[uuid.UUID]map[uuid.UUID]struct{}{}
	s.qty = map[uuid.UUID]int{}
	s.lineQty = 1
	s.notes = ""
	s.closed = false
}

func (s *Session) Groups() []Group {
	return s.groups
}

// PickSingle replaces the group's pick. uuid.Nil clears it.
func (s *Session) PickSingle(groupID, optionID uuid.UUID) error {
	group, err := s.group(groupID, enums.SelectionModeSingle)
	if err != nil {
		return err
	}
	if optionID == uuid.Nil {
		delete(s.single, groupID)
		return nil
	}
	if _, ok := group.option(optionID); !ok {
		return unknownOption(group, optionID)
	}
	s.single[groupID] = optionID
	return nil
}

// ToggleMulti adds or removes an option. Adding starts its qty at 1;
// removing forgets the qty.
func (s *Session) ToggleMulti(groupID, optionID uuid.UUID, checked bool) error {
	group, err := s.group(groupID, enums.SelectionModeMulti)
	if err != nil {
		return err
	}
	if _, ok := group.option(optionID); !ok {
		return unknownOption(group, optionID)
	}

	picked := s.multi[groupID]
	if !checked {
		if picked != nil {
			delete(picked, optionID)
			if len(picked) == 0 {
				delete(s.multi, groupID)
			}
		}
		delete(s.qty, optionID)
		return nil
	}

	if picked == nil {
		picked = map[uuid.UUID]struct{}{}
		s.multi[groupID] = picked
	}
	if _, ok := picked[optionID]; ok {
		return nil
	}
	if group.MaxSelect > 0 && len(picked) >= group.MaxSelect {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s allows at most %d choices", group.Name, group.MaxSelect))
	}
	picked[optionID] = struct{}{}
	if _, ok := s.qty[optionID]; !ok {
		s.qty[optionID] = 1
	}
	return nil
}

// SetOptionQty sets the quantity of a picked multi-select option, clamped to
// at least 1. Setting 1 keeps the pick; only ToggleMulti removes it.
func (s *Session) SetOptionQty(optionID uuid.UUID, qty int) error {
	if err := s.open(); err != nil {
		return err
	}
	group, ok := s.pickedMultiGroup(optionID)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "option is not selected")
	}
	if qty < 1 {
		qty = 1
	}
	if qty > 1 && !group.Repeatable {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s does not allow repeated choices", group.Name))
	}
	s.qty[optionID] = qty
	return nil
}

func (s *Session) SetQty(qty int) error {
	if err := s.open(); err != nil {
		return err
	}
	if qty < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	s.lineQty = qty
	return nil
}

func (s *Session) SetNotes(notes string) {
	s.notes = strings.TrimSpace(notes)
}

// Selections materializes one Selection per group with at least one pick,
// in group order, naming options from the group's current option list.
func (s *Session) Selections() []cart.Selection {
	out := make([]cart.Selection, 0, len(s.groups))
	for _, group := range s.groups {
		var options []cart.SelectedOption
		switch group.SelectionMode {
		case enums.SelectionModeSingle:
			if id, ok := s.single[group.ID]; ok {
				if opt, found := group.option(id); found {
					options = append(options, cart.SelectedOption{ID: opt.ID, Name: opt.Name, Qty: 1})
				}
			}
		default:
			picked := s.multi[group.ID]
			for _, opt := range group.Options {
				if _, ok := picked[opt.ID]; !ok {
					continue
				}
				qty := s.qty[opt.ID]
				if qty < 1 {
					qty = 1
				}
				options = append(options, cart.SelectedOption{ID: opt.ID, Name: opt.Name, Qty: qty})
			}
		}
		if len(options) == 0 {
			continue
		}
		out = append(out, cart.Selection{GroupID: group.ID, GroupName: group.Name, Options: options})
	}
	return out
}

// UnitPrice is the item price plus every picked option's delta times its qty.
func (s *Session) UnitPrice() decimal.Decimal {
	price := s.item.Price
	for _, sel := range s.Selections() {
		group, _ := s.findGroup(sel.GroupID)
		for _, picked := range sel.Options {
			opt, _ := group.option(picked.ID)
			price = price.Add(opt.PriceDelta.Mul(decimal.NewFromInt(int64(picked.Qty))))
		}
	}
	return price
}

// Confirm emits the customized line and closes the session.
func (s *Session) Confirm() (cart.Customized, error) {
	if err := s.open(); err != nil {
		return cart.Customized{}, err
	}
	out := cart.Customized{
		Item:      s.item,
		Qty:       s.lineQty,
		UnitPrice: s.UnitPrice(),
		Notes:     s.notes,
		Modifiers: cart.NewGenericModifiers(s.Selections()),
	}
	s.Reset()
	s.closed = true
	return out, nil
}

// ConfirmLegacy emits the fixed-shape variant at the item price and closes the session.
func (s *Session) ConfirmLegacy(legacy cart.LegacyModifiers) (cart.Customized, error) {
	if err := s.open(); err != nil {
		return cart.Customized{}, err
	}
	out := cart.Customized{
		Item:      s.item,
		Qty:       s.lineQty,
		UnitPrice: s.item.Price,
		Notes:     s.notes,
		Modifiers: cart.NewLegacyModifiers(legacy),
	}
	s.Reset()
	s.closed = true
	return out, nil
}

func (s *Session) open() error {
	if s.closed {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "customization already confirmed")
	}
	return nil
}

func (s *Session) findGroup(id uuid.UUID) (Group, bool) {
	return findGroup(s.groups, id)
}

func (s *Session) group(id uuid.UUID, mode enums.SelectionMode) (Group, error) {
	if err := s.open(); err != nil {
		return Group{}, err
	}
	group, ok := s.findGroup(id)
	if !ok {
		return Group{}, pkgerrors.New(pkgerrors.CodeValidation, "modifier group is not offered for this item")
	}
	if group.SelectionMode != mode {
		return Group{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s is a %s-select group", group.Name, group.SelectionMode))
	}
	return group, nil
}

func (s *Session) pickedMultiGroup(optionID uuid.UUID) (Group, bool) {
	for groupID, picked := range s.multi {
		if _, ok := picked[optionID]; ok {
			return s.findGroup(groupID)
		}
	}
	return Group{}, false
}

func unknownOption(group Group, optionID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("option does not belong to %s", group.Name)).
		WithDetails(map[string]any{"groupId": group.ID, "optionId": optionID})
}
