package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tableside-backend/internal/auth"
	"github.com/angelmondragon/tableside-backend/internal/cart"
	"github.com/angelmondragon/tableside-backend/internal/modifiers"
	"github.com/angelmondragon/tableside-backend/internal/orders"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
)

type stubCart struct {
	lastScope  cart.Scope
	plainItem  uuid.UUID
	customized *cart.Customized
	lineID     string
	op         string
	err        error
}

func (s *stubCart) view() *cart.View {
	return &cart.View{Key: cart.Key(s.lastScope.TableNumber), Lines: []cart.Line{}}
}

func (s *stubCart) Get(_ context.Context, scope cart.Scope) (*cart.View, error) {
	s.lastScope = scope
	return s.view(), s.err
}

func (s *stubCart) AddPlain(_ context.Context, scope cart.Scope, itemID uuid.UUID) (*cart.View, error) {
	s.lastScope, s.plainItem, s.op = scope, itemID, "plain"
	return s.view(), s.err
}

func (s *stubCart) AddCustomized(_ context.Context, scope cart.Scope, line cart.Customized) (*cart.View, error) {
	s.lastScope, s.customized, s.op = scope, &line, "customized"
	return s.view(), s.err
}

func (s *stubCart) Increment(_ context.Context, scope cart.Scope, lineID string) (*cart.View, error) {
	s.lastScope, s.lineID, s.op = scope, lineID, "increment"
	return s.view(), s.err
}

func (s *stubCart) Decrement(_ context.Context, scope cart.Scope, lineID string) (*cart.View, error) {
	s.lastScope, s.lineID, s.op = scope, lineID, "decrement"
	return s.view(), s.err
}

func (s *stubCart) Remove(_ context.Context, scope cart.Scope, lineID string) (*cart.View, error) {
	s.lastScope, s.lineID, s.op = scope, lineID, "remove"
	return s.view(), s.err
}

func (s *stubCart) Clear(_ context.Context, scope cart.Scope) error {
	s.lastScope, s.op = scope, "clear"
	return s.err
}

type stubModifiers struct {
	composed   *modifiers.ComposeInput
	load       *modifiers.Customization
	composeErr error
}

func (s *stubModifiers) Load(context.Context, uuid.UUID, uuid.UUID) (*modifiers.Customization, error) {
	return s.load, nil
}

func (s *stubModifiers) Open(ctx context.Context, orgID, itemID uuid.UUID) (*modifiers.Session, *modifiers.Customization, error) {
	return nil, s.load, nil
}

func (s *stubModifiers) Compose(_ context.Context, _ uuid.UUID, input modifiers.ComposeInput) (cart.Customized, error) {
	s.composed = &input
	if s.composeErr != nil {
		return cart.Customized{}, s.composeErr
	}
	return cart.Customized{Item: cart.Item{ID: input.ItemID, Title: "Pho"}, Qty: input.Qty, Notes: input.Notes}, nil
}

type stubOrders struct {
	submitted *orders.SubmitInput
	ref       *orders.OrderRef
	status    enums.OrderStatus
	created   bool
	err       error
}

func (s *stubOrders) Submit(_ context.Context, input orders.SubmitInput) (*orders.SubmitResult, error) {
	s.submitted = &input
	if s.err != nil {
		return nil, s.err
	}
	return &orders.SubmitResult{OrderID: uuid.New(), TableNumber: input.Scope.TableNumber, Created: s.created, Status: enums.OrderStatusPending}, nil
}

func (s *stubOrders) Close(_ context.Context, ref orders.OrderRef) (*orders.OrderDTO, error) {
	s.ref = &ref
	if s.err != nil {
		return nil, s.err
	}
	return &orders.OrderDTO{ID: ref.OrderID, Status: enums.OrderStatusClosed}, nil
}

func (s *stubOrders) Reopen(_ context.Context, ref orders.OrderRef) (*orders.OrderDTO, error) {
	s.ref = &ref
	if s.err != nil {
		return nil, s.err
	}
	return &orders.OrderDTO{ID: ref.OrderID, Status: enums.OrderStatusPending}, nil
}

func (s *stubOrders) UpdateStatus(_ context.Context, input orders.UpdateStatusInput) (*orders.OrderDTO, error) {
	s.ref = &input.OrderRef
	s.status = input.Status
	if s.err != nil {
		return nil, s.err
	}
	return &orders.OrderDTO{ID: input.OrderID, Status: input.Status}, nil
}

func (s *stubOrders) ListActive(context.Context, uuid.UUID) ([]orders.ActiveOrder, error) {
	return []orders.ActiveOrder{}, s.err
}

func staffSession(role enums.EmployeeRole) auth.Session {
	return auth.Session{UserID: uuid.New(), OrganizationID: uuid.New(), Role: role, AccessID: "access-1"}
}

// serve routes a single request through a chi router so path params resolve.
func serve(t *testing.T, method, pattern, target string, body any, sess *auth.Session, h http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, target, &payload)
	if sess != nil {
		req = req.WithContext(auth.WithSession(req.Context(), *sess))
	}
	r := chi.NewRouter()
	r.Method(method, pattern, h)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details any    `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}
