package modifiers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tableside-backend/internal/cart"
	"github.com/angelmondragon/tableside-backend/pkg/db/models"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tableside-backend/pkg/errors"
	"github.com/angelmondragon/tableside-backend/pkg/logger"
)

type itemFinder interface {
	FindMenuItem(ctx context.Context, organizationID, id uuid.UUID) (*models.MenuItem, error)
}

type groupLoader interface {
	ListGroupsForMenuItem(ctx context.Context, organizationID, itemID uuid.UUID) ([]models.ModifierGroup, error)
	ListModifiers(ctx context.Context, groupIDs ...uuid.UUID) ([]models.Modifier, error)
}

// Customization is what the customization sheet renders for one item.
// LoadError is set when the groups could not be fetched; Groups is then empty
// and the item can still be added without modifiers.
type Customization struct {
	Item      cart.Item `json:"item"`
	Groups    []Group   `json:"groups"`
	LoadError string    `json:"loadError,omitempty"`
}

// MultiPick is one checked option of a multi-select group.
type MultiPick struct {
	OptionID uuid.UUID `json:"optionId" validate:"required"`
	Qty      int       `json:"qty"`
}

// ComposeInput replays a customization in one request.
type ComposeInput struct {
	ItemID uuid.UUID                 `json:"itemId" validate:"required"`
	Qty    int                       `json:"qty"`
	Notes  string                    `json:"notes"`
	Single map[uuid.UUID]uuid.UUID   `json:"single"`
	Multi  map[uuid.UUID][]MultiPick `json:"multi"`
	Legacy *cart.LegacyModifiers     `json:"legacy,omitempty"`
}

type Service interface {
	Load(ctx context.Context, orgID, itemID uuid.UUID) (*Customization, error)
	Open(ctx context.Context, orgID, itemID uuid.UUID) (*Session, *Customization, error)
	Compose(ctx context.Context, orgID uuid.UUID, input ComposeInput) (cart.Customized, error)
}

type service struct {
	items  itemFinder
	groups groupLoader
	logg   *logger.Logger
}

func NewService(items itemFinder, groups groupLoader, logg *logger.Logger) (Service, error) {
	if items == nil {
		return nil, fmt.Errorf("menu item finder required")
	}
	if groups == nil {
		return nil, fmt.Errorf("modifier group loader required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{items: items, groups: groups, logg: logg}, nil
}

func (s *service) Load(ctx context.Context, orgID, itemID uuid.UUID) (*Customization, error) {
	row, err := s.items.FindMenuItem(ctx, orgID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
		}
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu item")
	}
	if row == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
	}

	out := &Customization{
		Item:   cart.Item{ID: row.ID, Title: row.Name, Price: row.Price},
		Groups: []Group{},
	}
	groups, err := s.loadGroups(ctx, orgID, itemID)
	if err != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{"menu_item_id": itemID.String(), "error": err.Error()})
		s.logg.Warn(ctx, "modifier groups unavailable")
		out.LoadError = "modifier options could not be loaded"
		return out, nil
	}
	out.Groups = groups
	return out, nil
}

func (s *service) Open(ctx context.Context, orgID, itemID uuid.UUID) (*Session, *Customization, error) {
	c, err := s.Load(ctx, orgID, itemID)
	if err != nil {
		return nil, nil, err
	}
	return NewSession(c.Item, c.Groups), c, nil
}

// Compose runs a full session from the picks in input and confirms it.
func (s *service) Compose(ctx context.Context, orgID uuid.UUID, input ComposeInput) (cart.Customized, error) {
	session, _, err := s.Open(ctx, orgID, input.ItemID)
	if err != nil {
		return cart.Customized{}, err
	}
	if input.Qty != 0 {
		if err := session.SetQty(input.Qty); err != nil {
			return cart.Customized{}, err
		}
	}
	session.SetNotes(input.Notes)

	for groupID := range input.Multi {
		if _, ok := findGroup(session.Groups(), groupID); !ok {
			return cart.Customized{}, pkgerrors.New(pkgerrors.CodeValidation, "modifier group is not offered for this item")
		}
	}
	for groupID, optionID := range input.Single {
		if err := session.PickSingle(groupID, optionID); err != nil {
			return cart.Customized{}, err
		}
	}
	// Apply multi picks in group order so MaxSelect errors are deterministic.
	for _, group := range session.Groups() {
		picks, ok := input.Multi[group.ID]
		if !ok {
			continue
		}
		for _, pick := range picks {
			if err := session.ToggleMulti(group.ID, pick.OptionID, true); err != nil {
				return cart.Customized{}, err
			}
			if pick.Qty > 1 {
				if err := session.SetOptionQty(pick.OptionID, pick.Qty); err != nil {
					return cart.Customized{}, err
				}
			}
		}
	}
	// legacy fields only describe the line when no group received a pick
	if input.Legacy != nil && len(session.Selections()) == 0 {
		return session.ConfirmLegacy(*input.Legacy)
	}
	return session.Confirm()
}

func (s *service) loadGroups(ctx context.Context, orgID, itemID uuid.UUID) ([]Group, error) {
	rows, err := s.groups.ListGroupsForMenuItem(ctx, orgID, itemID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	options, err := s.groups.ListModifiers(ctx, ids...)
	if err != nil {
		return nil, err
	}
	byGroup := make(map[uuid.UUID][]Option, len(rows))
	for _, opt := range options {
		byGroup[opt.GroupID] = append(byGroup[opt.GroupID], Option{ID: opt.ID, Name: opt.Name, PriceDelta: opt.PriceDelta})
	}

	groups := make([]Group, 0, len(rows))
	for _, row := range rows {
		mode := row.SelectionMode
		if !mode.IsValid() {
			mode = enums.SelectionModeMulti
		}
		opts := byGroup[row.ID]
		if opts == nil {
			opts = []Option{}
		}
		groups = append(groups, Group{
			ID:            row.ID,
			Name:          row.Name,
			SelectionMode: mode,
			MaxSelect:     row.MaxSelect,
			Repeatable:    row.Repeatable,
			Options:       opts,
		})
	}
	return groups, nil
}

func findGroup(groups []Group, id uuid.UUID) (Group, bool) {
	for _, g := range groups {
		if g.ID == id {
			return g, true
		}
	}
	return Group{}, false
}
