package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tableside-backend/api/responses"
	"github.com/angelmondragon/tableside-backend/api/validators"
	"github.com/angelmondragon/tableside-backend/internal/catalog"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
	"github.com/angelmondragon/tableside-backend/pkg/logger"
)

type categoryRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

type modifierGroupRequest struct {
	Name          string `json:"name" validate:"required,max=120"`
	SelectionMode string `json:"selectionMode" validate:"required,oneof=single multi"`
	MaxSelect     int    `json:"maxSelect" validate:"min=0"`
	Repeatable    bool   `json:"repeatable"`
}

func (r modifierGroupRequest) toInput() catalog.GroupInput {
	return catalog.GroupInput{
		Name:          r.Name,
		SelectionMode: enums.SelectionMode(r.SelectionMode),
		MaxSelect:     r.MaxSelect,
		Repeatable:    r.Repeatable,
	}
}

type modifierRequest struct {
	Name       string          `json:"name" validate:"required,max=120"`
	PriceDelta decimal.Decimal `json:"priceDelta"`
	Position   int             `json:"position" validate:"min=0"`
}

func (r modifierRequest) toInput() catalog.ModifierInput {
	return catalog.ModifierInput{Name: r.Name, PriceDelta: r.PriceDelta, Position: r.Position}
}

type menuItemRequest struct {
	Name             string          `json:"name" validate:"required,max=160"`
	Description      string          `json:"description" validate:"max=2000"`
	Price            decimal.Decimal `json:"price"`
	CategoryID       *uuid.UUID      `json:"categoryId"`
	IsAddon          bool            `json:"isAddon"`
	ModifierGroupIDs []uuid.UUID     `json:"modifierGroupIds"`
}

func (r menuItemRequest) toInput() catalog.MenuItemInput {
	return catalog.MenuItemInput{
		Name:             r.Name,
		Description:      r.Description,
		Price:            r.Price,
		CategoryID:       r.CategoryID,
		IsAddon:          r.IsAddon,
		ModifierGroupIDs: r.ModifierGroupIDs,
	}
}

// Categories

func CategoriesList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		list, err := svc.ListCategories(r.Context(), sess.OrganizationID)
		writeListing(w, r, logg, http.StatusOK, list, err)
	}
}

func CategoryCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		var body categoryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.CreateCategory(r.Context(), sess.OrganizationID, body.Name)
		writeListing(w, r, logg, http.StatusCreated, list, err)
	}
}

func CategoryRename(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body categoryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.RenameCategory(r.Context(), sess.OrganizationID, id, body.Name)
		writeListing(w, r, logg, http.StatusOK, list, err)
	}
}

// CategoryDelete removes the category and every menu item under it.
func CategoryDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.DeleteCategory(r.Context(), sess.OrganizationID, id)
		writeListing(w, r, logg, http.StatusOK, list, err)
	}
}

// Modifier groups and modifiers

func ModifierGroupsList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		list, err := svc.ListModifierGroups(r.Context(), sess.OrganizationID)
		writeListing(w, r, logg, http.StatusOK, list, err)
	}
}

func ModifierGroupCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		var body modifierGroupRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.CreateModifierGroup(r.Context(), sess.OrganizationID, body.toInput())
		writeListing(w, r, logg, http.StatusCreated, list, err)
	}
}

func ModifierGroupUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body modifierGroupRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.UpdateModifierGroup(r.Context(), sess.OrganizationID, id, body.toInput())
		writeListing(w, r, logg, http.StatusOK, list, err)
	}
}

func ModifierGroupDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.DeleteModifierGroup(r.Context(), sess.OrganizationID, id)
		writeListing(w, r, logg, http.StatusOK, list, err)
	}
}

func ModifierCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		groupID, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body modifierRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.CreateModifier(r.Context(), sess.OrganizationID, groupID, body.toInput())
		writeListing(w, r, logg, http.StatusCreated, list, err)
	}
}

func ModifierUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body modifierRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.UpdateModifier(r.Context(), sess.OrganizationID, id, body.toInput())
		writeListing(w, r, logg, http.StatusOK, list, err)
	}
}

func ModifierDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.DeleteModifier(r.Context(), sess.OrganizationID, id)
		writeListing(w, r, logg, http.StatusOK, list, err)
	}
}

// Menu items

func MenuItemsList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		list, err := svc.ListMenuItems(r.Context(), sess.OrganizationID)
		writeListing(w, r, logg, http.StatusOK, list, err)
	}
}

func MenuItemCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		var body menuItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.CreateMenuItem(r.Context(), sess.OrganizationID, body.toInput())
		writeListing(w, r, logg, http.StatusCreated, list, err)
	}
}

func MenuItemUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body menuItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.UpdateMenuItem(r.Context(), sess.OrganizationID, id, body.toInput())
		writeListing(w, r, logg, http.StatusOK, list, err)
	}
}

func MenuItemDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.DeleteMenuItem(r.Context(), sess.OrganizationID, id)
		writeListing(w, r, logg, http.StatusOK, list, err)
	}
}

// writeListing answers with the refreshed list; a failed refresh still reports
// the write as done, with RefreshError set.
func writeListing[T any](w http.ResponseWriter, r *http.Request, logg *logger.Logger, status int, list *catalog.Listing[T], err error) {
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, status, list)
}
