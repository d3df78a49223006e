package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tableside-backend/pkg/db/models"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
)

// Listing is a refreshed list returned after reads and mutations.
type Listing[T any] struct {
	Items []T `json:"items"`
	// RefreshError is set when a write succeeded but re-reading the list failed.
	RefreshError string `json:"refreshError,omitempty"`
}

type CategoryDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type ModifierDTO struct {
	ID         uuid.UUID       `json:"id"`
	GroupID    uuid.UUID       `json:"groupId"`
	Name       string          `json:"name"`
	PriceDelta decimal.Decimal `json:"priceDelta"`
	Position   int             `json:"position"`
}

type ModifierGroupDTO struct {
	ID            uuid.UUID           `json:"id"`
	Name          string              `json:"name"`
	SelectionMode enums.SelectionMode `json:"selectionMode"`
	MaxSelect     int                 `json:"maxSelect"`
	Repeatable    bool                `json:"repeatable"`
	Modifiers     []ModifierDTO       `json:"modifiers"`
}

type MenuItemDTO struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Price            decimal.Decimal `json:"price"`
	CategoryID       *uuid.UUID      `json:"categoryId,omitempty"`
	IsAddon          bool            `json:"isAddon"`
	ModifierGroupIDs []uuid.UUID     `json:"modifierGroupIds"`
}

// GroupInput is the validated payload for creating or updating a modifier group.
type GroupInput struct {
	Name          string
	SelectionMode enums.SelectionMode
	MaxSelect     int
	Repeatable    bool
}

type ModifierInput struct {
	Name       string
	PriceDelta decimal.Decimal
	Position   int
}

type MenuItemInput struct {
	Name             string
	Description      string
	Price            decimal.Decimal
	CategoryID       *uuid.UUID
	IsAddon          bool
	ModifierGroupIDs []uuid.UUID
}

func categoryDTO(row models.Category) CategoryDTO {
	return CategoryDTO{ID: row.ID, Name: row.Name}
}

func modifierDTO(row models.Modifier) ModifierDTO {
	return ModifierDTO{
		ID:         row.ID,
		GroupID:    row.GroupID,
		Name:       row.Name,
		PriceDelta: row.PriceDelta,
		Position:   row.Position,
	}
}

func groupDTOs(groups []models.ModifierGroup, mods []models.Modifier) []ModifierGroupDTO {
	byGroup := make(map[uuid.UUID][]ModifierDTO, len(groups))
	for _, mod := range mods {
		byGroup[mod.GroupID] = append(byGroup[mod.GroupID], modifierDTO(mod))
	}
	out := make([]ModifierGroupDTO, 0, len(groups))
	for _, g := range groups {
		options := byGroup[g.ID]
		if options == nil {
			options = []ModifierDTO{}
		}
		out = append(out, ModifierGroupDTO{
			ID:            g.ID,
			Name:          g.Name,
			SelectionMode: g.SelectionMode,
			MaxSelect:     g.MaxSelect,
			Repeatable:    g.Repeatable,
			Modifiers:     options,
		})
	}
	return out
}

func menuItemDTOs(items []models.MenuItem, links []models.MenuItemModifierGroup) []MenuItemDTO {
	byItem := make(map[uuid.UUID][]uuid.UUID, len(items))
	for _, link := range links {
		byItem[link.MenuItemID] = append(byItem[link.MenuItemID], link.ModifierGroupID)
	}
	out := make([]MenuItemDTO, 0, len(items))
	for _, item := range items {
		groups := byItem[item.ID]
		if groups == nil {
			groups = []uuid.UUID{}
		}
		out = append(out, MenuItemDTO{
			ID:               item.ID,
			Name:             item.Name,
			Description:      item.Description,
			Price:            item.Price,
			CategoryID:       item.CategoryID,
			IsAddon:          item.IsAddon,
			ModifierGroupIDs: groups,
		})
	}
	return out
}
