package controllers

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tableside-backend/internal/cart"
	"github.com/angelmondragon/tableside-backend/internal/modifiers"
	"github.com/angelmondragon/tableside-backend/internal/orders"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tableside-backend/pkg/errors"
	"github.com/angelmondragon/tableside-backend/pkg/logger"
)

const customerCartPattern = "/customer/{organizationId}/tables/{tableNumber}/cart/lines"

func TestCartAddLinePlainGoesThroughAddPlain(t *testing.T) {
	carts := &stubCart{}
	mods := &stubModifiers{}
	orgID := uuid.New()
	itemID := uuid.New()

	rec := serve(t, http.MethodPost, customerCartPattern,
		"/customer/"+orgID.String()+"/tables/12/cart/lines",
		map[string]any{"itemId": itemID}, nil,
		CartAddLine(carts, mods, CustomerScope, logger.Nop()))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "plain", carts.op)
	assert.Equal(t, itemID, carts.plainItem)
	assert.Equal(t, cart.Scope{OrganizationID: orgID, TableNumber: "12"}, carts.lastScope)
	assert.Nil(t, mods.composed)
}

func TestCartAddLineWithPicksComposesFirst(t *testing.T) {
	carts := &stubCart{}
	mods := &stubModifiers{}
	orgID := uuid.New()
	itemID := uuid.New()
	groupID := uuid.New()
	optionID := uuid.New()

	body := map[string]any{
		"itemId": itemID,
		"qty":    2,
		"notes":  "no onions",
		"single": map[string]string{groupID.String(): optionID.String()},
	}
	rec := serve(t, http.MethodPost, customerCartPattern,
		"/customer/"+orgID.String()+"/tables/12/cart/lines", body, nil,
		CartAddLine(carts, mods, CustomerScope, logger.Nop()))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, mods.composed)
	assert.Equal(t, optionID, mods.composed.Single[groupID])
	assert.Equal(t, "customized", carts.op)
	require.NotNil(t, carts.customized)
	assert.Equal(t, 2, carts.customized.Qty)
	assert.Equal(t, "no onions", carts.customized.Notes)
}

func TestCartAddLineSurfacesComposeValidation(t *testing.T) {
	carts := &stubCart{}
	mods := &stubModifiers{composeErr: pkgerrors.New(pkgerrors.CodeValidation, "pick one option for Broth")}
	rec := serve(t, http.MethodPost, customerCartPattern,
		"/customer/"+uuid.NewString()+"/tables/12/cart/lines",
		map[string]any{"itemId": uuid.New(), "notes": "extra"}, nil,
		CartAddLine(carts, mods, CustomerScope, logger.Nop()))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "pick one option for Broth", env.Error.Message)
	assert.Empty(t, carts.op)
}

func TestCartLineMutationsUseStaffScope(t *testing.T) {
	sess := staffSession(enums.EmployeeRoleStaff)
	carts := &stubCart{}
	pattern := "/tables/{tableNumber}/cart/lines/{lineId}/decrement"

	rec := serve(t, http.MethodPost, pattern, "/tables/7/cart/lines/line-1/decrement", nil, &sess,
		CartDecrement(carts, StaffScope, logger.Nop()))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "decrement", carts.op)
	assert.Equal(t, "line-1", carts.lineID)
	assert.Equal(t, cart.Scope{OrganizationID: sess.OrganizationID, TableNumber: "7"}, carts.lastScope)
}

func TestStaffCartRequiresSession(t *testing.T) {
	carts := &stubCart{}
	rec := serve(t, http.MethodGet, "/tables/{tableNumber}/cart", "/tables/7/cart", nil, nil,
		CartGet(carts, StaffScope, logger.Nop()))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, carts.op)
}

func TestOrderSubmitFlows(t *testing.T) {
	sess := staffSession(enums.EmployeeRoleStaff)
	svc := &stubOrders{created: true}
	rec := serve(t, http.MethodPost, "/tables/{tableNumber}/order", "/tables/4/order", nil, &sess,
		OrderSubmit(svc, StaffScope, logger.Nop()))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.submitted)
	assert.Equal(t, orders.FlowEmployee, svc.submitted.Flow)
	assert.Equal(t, sess.UserID, svc.submitted.Actor.UserID)
	assert.Equal(t, "4", svc.submitted.Scope.TableNumber)

	orgID := uuid.New()
	svc = &stubOrders{created: false}
	rec = serve(t, http.MethodPost, "/customer/{organizationId}/tables/{tableNumber}/order",
		"/customer/"+orgID.String()+"/tables/4/order", nil, nil,
		OrderSubmit(svc, CustomerScope, logger.Nop()))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, orders.FlowCustomer, svc.submitted.Flow)
	assert.Equal(t, uuid.Nil, svc.submitted.Actor.UserID)
	assert.Equal(t, orgID, svc.submitted.Scope.OrganizationID)
}

func TestCustomerScopeRejectsBadOrganization(t *testing.T) {
	svc := &stubOrders{}
	rec := serve(t, http.MethodPost, "/customer/{organizationId}/tables/{tableNumber}/order",
		"/customer/not-a-uuid/tables/4/order", nil, nil,
		OrderSubmit(svc, CustomerScope, logger.Nop()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.submitted)
}

func TestOrderReopenReportsActiveOrder(t *testing.T) {
	sess := staffSession(enums.EmployeeRoleAdmin)
	activeID := uuid.New()
	svc := &stubOrders{err: pkgerrors.New(pkgerrors.CodeActiveOrder, "table already has an active order").
		WithDetails(map[string]any{"activeOrderId": activeID.String()})}
	orderID := uuid.New()

	rec := serve(t, http.MethodPost, "/orders/{id}/reopen", "/orders/"+orderID.String()+"/reopen", nil, &sess,
		OrderReopen(svc, logger.Nop()))

	require.Equal(t, http.StatusConflict, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, string(pkgerrors.CodeActiveOrder), env.Error.Code)
	assert.Equal(t, activeID.String(), env.Error.Details.(map[string]any)["activeOrderId"])
	require.NotNil(t, svc.ref)
	assert.Equal(t, orderID, svc.ref.OrderID)
	assert.Equal(t, sess.OrganizationID, svc.ref.OrganizationID)
}

func TestOrderUpdateStatusValidatesBody(t *testing.T) {
	sess := staffSession(enums.EmployeeRoleStaff)
	svc := &stubOrders{}
	target := "/orders/" + uuid.NewString() + "/status"

	rec := serve(t, http.MethodPatch, "/orders/{id}/status", target, map[string]string{"status": "closed"}, &sess,
		OrderUpdateStatus(svc, logger.Nop()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.ref)

	rec = serve(t, http.MethodPatch, "/orders/{id}/status", target, map[string]string{"status": "preparing"}, &sess,
		OrderUpdateStatus(svc, logger.Nop()))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, enums.OrderStatusPreparing, svc.status)
}

func TestMenuItemModifierGroupsReturnsLoadError(t *testing.T) {
	sess := staffSession(enums.EmployeeRoleStaff)
	mods := &stubModifiers{load: &modifiers.Customization{
		Item:      cart.Item{ID: uuid.New(), Title: "Pho"},
		Groups:    []modifiers.Group{},
		LoadError: "modifier options could not be loaded",
	}}
	rec := serve(t, http.MethodGet, "/menu-items/{id}/modifier-groups", "/menu-items/"+uuid.NewString()+"/modifier-groups", nil, &sess,
		MenuItemModifierGroups(mods, StaffOrganization, logger.Nop()))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"loadError":"modifier options could not be loaded"`)
	assert.Contains(t, rec.Body.String(), `"groups":[]`)
}
