package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/tableside-backend/api/validators"
	"github.com/angelmondragon/tableside-backend/internal/auth"
	"github.com/angelmondragon/tableside-backend/internal/cart"
	"github.com/angelmondragon/tableside-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/tableside-backend/pkg/errors"
)

// Caller is who a cart or order request acts for. Staff callers come from the
// session; customers are anonymous and scoped by the QR URL.
type Caller struct {
	Scope cart.Scope
	Flow  orders.Flow
	Actor orders.Actor
}

// ScopeResolver derives the caller of a table-scoped request.
type ScopeResolver func(r *http.Request) (Caller, error)

const customerRole = "customer"

// StaffScope reads the organization from the session and the table from the path.
func StaffScope(r *http.Request) (Caller, error) {
	caller, err := StaffOrganization(r)
	if err != nil {
		return Caller{}, err
	}
	table, err := validators.PathString(r, "tableNumber")
	if err != nil {
		return Caller{}, err
	}
	caller.Scope.TableNumber = table
	return caller, nil
}

// StaffOrganization is StaffScope for routes that are not about one table.
func StaffOrganization(r *http.Request) (Caller, error) {
	sess, ok := auth.SessionFromContext(r.Context())
	if !ok {
		return Caller{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session required")
	}
	return Caller{
		Scope: cart.Scope{OrganizationID: sess.OrganizationID},
		Flow:  orders.FlowEmployee,
		Actor: orders.Actor{UserID: sess.UserID, Role: string(sess.Role)},
	}, nil
}

// CustomerScope reads both the organization and the table from the path.
func CustomerScope(r *http.Request) (Caller, error) {
	orgID, err := validators.PathUUID(r, "organizationId")
	if err != nil {
		return Caller{}, err
	}
	table, err := validators.PathString(r, "tableNumber")
	if err != nil {
		return Caller{}, err
	}
	return Caller{
		Scope: cart.Scope{OrganizationID: orgID, TableNumber: table},
		Flow:  orders.FlowCustomer,
		Actor: orders.Actor{UserID: uuid.Nil, Role: customerRole},
	}, nil
}
