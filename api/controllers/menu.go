package controllers

import (
	"net/http"

	"github.com/angelmondragon/tableside-backend/api/responses"
	"github.com/angelmondragon/tableside-backend/api/validators"
	"github.com/angelmondragon/tableside-backend/internal/catalog"
	"github.com/angelmondragon/tableside-backend/internal/modifiers"
	"github.com/angelmondragon/tableside-backend/pkg/logger"
)

// menuResponse is the read-only menu a customer orders from.
type menuResponse struct {
	Categories []catalog.CategoryDTO `json:"categories"`
	MenuItems  []catalog.MenuItemDTO `json:"menuItems"`
}

// MenuItemModifierGroups loads the customization sheet for one item. A failed
// group load still answers 200 with no groups and loadError set.
func MenuItemModifierGroups(svc modifiers.Service, scope ScopeResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := scope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := validators.PathUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customization, err := svc.Load(r.Context(), caller.Scope.OrganizationID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customization)
	}
}

func CustomerMenu(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := CustomerScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		categories, err := svc.ListCategories(r.Context(), caller.Scope.OrganizationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.ListMenuItems(r.Context(), caller.Scope.OrganizationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, menuResponse{Categories: categories.Items, MenuItems: items.Items})
	}
}
