package controllers

import (
	"net/http"

	"github.com/angelmondragon/tableside-backend/api/responses"
	"github.com/angelmondragon/tableside-backend/api/validators"
	"github.com/angelmondragon/tableside-backend/internal/orders"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
	"github.com/angelmondragon/tableside-backend/pkg/logger"
)

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending preparing ready"`
}

// OrderSubmit replaces the table's active order with the cart. The flow
// (employee or customer) comes from the scope resolver.
func OrderSubmit(svc orders.Service, scope ScopeResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := scope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Submit(r.Context(), orders.SubmitInput{
			Scope: caller.Scope,
			Flow:  caller.Flow,
			Actor: caller.Actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

func OrdersActive(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		active, err := svc.ListActive(r.Context(), sess.OrganizationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, active)
	}
}

func OrderClose(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, ok := orderRef(w, r, logg)
		if !ok {
			return
		}
		order, err := svc.Close(r.Context(), ref)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderReopen answers ACTIVE_ORDER_EXISTS when the table already has another
// open order.
func OrderReopen(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, ok := orderRef(w, r, logg)
		if !ok {
			return
		}
		order, err := svc.Reopen(r.Context(), ref)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func OrderUpdateStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, ok := orderRef(w, r, logg)
		if !ok {
			return
		}
		var body updateStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.UpdateStatus(r.Context(), orders.UpdateStatusInput{
			OrderRef: ref,
			Status:   enums.OrderStatus(body.Status),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func orderRef(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (orders.OrderRef, bool) {
	sess, ok := requireSession(w, r, logg)
	if !ok {
		return orders.OrderRef{}, false
	}
	id, err := validators.PathUUID(r, "id")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return orders.OrderRef{}, false
	}
	return orders.OrderRef{
		OrganizationID: sess.OrganizationID,
		OrderID:        id,
		Actor:          orders.Actor{UserID: sess.UserID, Role: string(sess.Role)},
	}, true
}
