package controllers

import (
	"net/http"

	"github.com/angelmondragon/tableside-backend/api/responses"
	"github.com/angelmondragon/tableside-backend/api/validators"
	"github.com/angelmondragon/tableside-backend/internal/cart"
	"github.com/angelmondragon/tableside-backend/internal/modifiers"
	"github.com/angelmondragon/tableside-backend/pkg/logger"
)

// addLineRequest adds one item. Without picks, notes or a qty above one the
// item goes in as a plain line and merges with an existing plain line.
type addLineRequest = modifiers.ComposeInput

func isPlainAdd(body addLineRequest) bool {
	return len(body.Single) == 0 &&
		len(body.Multi) == 0 &&
		body.Legacy == nil &&
		body.Notes == "" &&
		body.Qty <= 1
}

func CartGet(svc cart.Service, scope ScopeResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := scope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Get(r.Context(), caller.Scope)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CartClear(svc cart.Service, scope ScopeResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := scope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Clear(r.Context(), caller.Scope); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Get(r.Context(), caller.Scope)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartAddLine adds a plain line or runs the customization picks through the
// modifier engine and adds the resulting customized line.
func CartAddLine(svc cart.Service, mods modifiers.Service, scope ScopeResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := scope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body addLineRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var view *cart.View
		if isPlainAdd(body) {
			view, err = svc.AddPlain(r.Context(), caller.Scope, body.ItemID)
		} else {
			var line cart.Customized
			line, err = mods.Compose(r.Context(), caller.Scope.OrganizationID, body)
			if err == nil {
				view, err = svc.AddCustomized(r.Context(), caller.Scope, line)
			}
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

type lineMutation func(svc cart.Service, r *http.Request, scope cart.Scope, lineID string) (*cart.View, error)

func CartIncrement(svc cart.Service, scope ScopeResolver, logg *logger.Logger) http.HandlerFunc {
	return mutateLine(svc, scope, logg, func(svc cart.Service, r *http.Request, s cart.Scope, id string) (*cart.View, error) {
		return svc.Increment(r.Context(), s, id)
	})
}

// CartDecrement lowers qty; a line at qty 1 is removed.
func CartDecrement(svc cart.Service, scope ScopeResolver, logg *logger.Logger) http.HandlerFunc {
	return mutateLine(svc, scope, logg, func(svc cart.Service, r *http.Request, s cart.Scope, id string) (*cart.View, error) {
		return svc.Decrement(r.Context(), s, id)
	})
}

func CartRemoveLine(svc cart.Service, scope ScopeResolver, logg *logger.Logger) http.HandlerFunc {
	return mutateLine(svc, scope, logg, func(svc cart.Service, r *http.Request, s cart.Scope, id string) (*cart.View, error) {
		return svc.Remove(r.Context(), s, id)
	})
}

func mutateLine(svc cart.Service, scope ScopeResolver, logg *logger.Logger, apply lineMutation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := scope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := validators.PathString(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := apply(svc, r, caller.Scope, lineID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
