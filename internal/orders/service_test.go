package orders

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/tableside-backend/internal/cart"
	"github.com/angelmondragon/tableside-backend/internal/realtime"
	"github.com/angelmondragon/tableside-backend/pkg/db"
	"github.com/angelmondragon/tableside-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tableside-backend/pkg/db/models"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tableside-backend/pkg/errors"
	"github.com/angelmondragon/tableside-backend/pkg/lock"
	"github.com/angelmondragon/tableside-backend/pkg/logger"
	"github.com/angelmondragon/tableside-backend/pkg/outbox"
	"github.com/angelmondragon/tableside-backend/pkg/redis"
)

type fakeCarts struct {
	mu       sync.Mutex
	lines    map[cart.Scope][]cart.Line
	cleared  []cart.Scope
	clearErr error
}

func (f *fakeCarts) Get(_ context.Context, scope cart.Scope) (*cart.View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := f.lines[scope]
	return &cart.View{Key: cart.Key(scope.TableNumber), Lines: lines, Totals: cart.Totals(lines)}, nil
}

func (f *fakeCarts) Clear(_ context.Context, scope cart.Scope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return f.clearErr
	}
	f.cleared = append(f.cleared, scope)
	delete(f.lines, scope)
	return nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []realtime.Change
}

func (r *recordingNotifier) Notify(_ context.Context, change realtime.Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
	return nil
}

type recordingMetrics struct {
	submitted []string
	failures  []string
}

func (r *recordingMetrics) IncSubmitted(flow string)       { r.submitted = append(r.submitted, flow) }
func (r *recordingMetrics) IncSubmitFailure(reason string) { r.failures = append(r.failures, reason) }

type fixture struct {
	conn     *gorm.DB
	svc      Service
	carts    *fakeCarts
	locker   *lock.Locker
	notifier *recordingNotifier
	metrics  *recordingMetrics
	org      uuid.UUID
	table    models.Table
	scope    cart.Scope
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	locker, err := lock.New(lock.NewMemoryStore(), time.Minute)
	require.NoError(t, err)

	f := &fixture{
		conn:     conn,
		carts:    &fakeCarts{lines: make(map[cart.Scope][]cart.Line)},
		locker:   locker,
		notifier: &recordingNotifier{},
		metrics:  &recordingMetrics{},
		org:      uuid.New(),
	}
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Tx:       db.FromGorm(conn),
		Carts:    f.carts,
		Locker:   locker,
		Keys:     &redis.Client{},
		Outbox:   outbox.NewService(outbox.NewRepository(conn), logger.Nop()),
		Notifier: f.notifier,
		Metrics:  f.metrics,
	})
	require.NoError(t, err)
	f.svc = svc
	f.table = seedTable(t, conn, f.org, "12")
	f.scope = cart.Scope{OrganizationID: f.org, TableNumber: "12"}
	return f
}

func (f *fixture) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := f.conn.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func (f *fixture) tableStatus(t *testing.T) enums.TableStatus {
	t.Helper()
	var table models.Table
	require.NoError(t, f.conn.First(&table, "id = ?", f.table.ID).Error)
	return table.Status
}

func ctx() context.Context { return context.Background() }

var (
	extrasGroup = uuid.New()
	extraEgg    = uuid.New()
)

func phoLine() cart.Line {
	return cart.Line{
		ID:        "line-pho",
		Title:     "Pho",
		UnitPrice: decimal.RequireFromString("12.95"),
		Qty:       2,
		ItemID:    uuid.New(),
		Modifiers: cart.NoModifiers(),
	}
}

func rollsLine() cart.Line {
	return cart.Line{
		ID:        "line-rolls",
		Title:     "Spring Rolls",
		UnitPrice: decimal.RequireFromString("7.5"),
		Qty:       1,
		ItemID:    uuid.New(),
		Notes:     " no cilantro ",
		Modifiers: cart.NewGenericModifiers([]cart.Selection{{
			GroupID:   extrasGroup,
			GroupName: "Extras",
			Options:   []cart.SelectedOption{{ID: extraEgg, Name: "Egg", Qty: 2}},
		}}),
	}
}

func TestSubmitRejectsWholeCartOnInvalidLine(t *testing.T) {
	f := newFixture(t)
	bad := cart.Line{ID: "line-bad", Title: "Mystery Bowl", UnitPrice: decimal.RequireFromString("9"), Qty: 1, Modifiers: cart.NoModifiers()}
	f.carts.lines[f.scope] = []cart.Line{phoLine(), bad}

	_, err := f.svc.Submit(ctx(), SubmitInput{Scope: f.scope, Flow: FlowEmployee})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Contains(t, err.Error(), "Mystery Bowl")

	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	invalid := details["invalidLines"].([]InvalidLine)
	require.Len(t, invalid, 1)
	assert.Equal(t, "line-bad", invalid[0].LineID)
	assert.Equal(t, "missing item id", invalid[0].Reason)

	assert.Zero(t, f.count(t, &models.Order{}, ""))
	assert.Zero(t, f.count(t, &models.OrderItem{}, ""))
	assert.Len(t, f.carts.lines[f.scope], 2)
	assert.Empty(t, f.carts.cleared)
	assert.Equal(t, []string{reasonValidation}, f.metrics.failures)
}

func TestSubmitEmployeeCreatesOrder(t *testing.T) {
	f := newFixture(t)
	f.carts.lines[f.scope] = []cart.Line{phoLine(), rollsLine()}

	res, err := f.svc.Submit(ctx(), SubmitInput{Scope: f.scope, Flow: FlowEmployee, Actor: Actor{UserID: uuid.New(), Role: "staff"}})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.True(t, res.CartCleared)
	assert.Equal(t, enums.OrderStatusPending, res.Status)
	assert.Equal(t, 2, res.ItemCount)
	assert.Equal(t, "12", res.TableNumber)
	assert.True(t, decimal.RequireFromString("33.4").Equal(res.Totals.Subtotal))
	assert.True(t, decimal.RequireFromString("36.3225").Equal(res.Totals.Total))

	assert.Equal(t, enums.TableStatusOccupied, f.tableStatus(t))
	assert.Empty(t, f.carts.lines[f.scope])

	var rolls models.OrderItem
	require.NoError(t, f.conn.First(&rolls, "order_id = ? AND client_line_id = ?", res.OrderID, "line-rolls").Error)
	require.NotNil(t, rolls.Note)
	assert.Equal(t, "no cilantro", *rolls.Note)

	var mods []models.OrderItemModifier
	require.NoError(t, f.conn.Find(&mods).Error)
	require.Len(t, mods, 1)
	assert.Equal(t, rolls.ID, mods[0].OrderItemID)
	assert.Equal(t, extraEgg, mods[0].ModifierID)
	assert.Equal(t, 2, mods[0].Quantity)

	var meta itemMeta
	require.NoError(t, json.Unmarshal(rolls.Meta, &meta))
	assert.Equal(t, cart.ModifierKindGeneric, meta.Kind)
	require.Len(t, meta.Selections, 1)
	assert.Equal(t, "Extras", meta.Selections[0].GroupName)

	assert.EqualValues(t, 1, f.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventOrderSubmitted))
	require.Len(t, f.notifier.changes, 3)
	for _, change := range f.notifier.changes {
		assert.Equal(t, f.org, change.OrganizationID)
	}
	assert.Equal(t, enums.ChangeInsert, f.notifier.changes[0].Op)
	assert.Equal(t, []string{string(FlowEmployee)}, f.metrics.submitted)
}

func TestSubmitReplacesItemsOnActiveOrder(t *testing.T) {
	f := newFixture(t)
	f.carts.lines[f.scope] = []cart.Line{phoLine(), rollsLine()}
	first, err := f.svc.Submit(ctx(), SubmitInput{Scope: f.scope, Flow: FlowEmployee})
	require.NoError(t, err)

	f.carts.lines[f.scope] = []cart.Line{phoLine()}
	second, err := f.svc.Submit(ctx(), SubmitInput{Scope: f.scope, Flow: FlowEmployee})
	require.NoError(t, err)

	assert.Equal(t, first.OrderID, second.OrderID)
	assert.False(t, second.Created)
	assert.EqualValues(t, 1, f.count(t, &models.Order{}, ""))
	assert.EqualValues(t, 1, f.count(t, &models.OrderItem{}, "order_id = ?", first.OrderID))
	assert.Zero(t, f.count(t, &models.OrderItemModifier{}, ""))
}

func TestSubmitCustomerFlowKeepsTableStatus(t *testing.T) {
	f := newFixture(t)
	f.carts.lines[f.scope] = []cart.Line{rollsLine()}

	res, err := f.svc.Submit(ctx(), SubmitInput{Scope: f.scope, Flow: FlowCustomer})
	require.NoError(t, err)
	assert.True(t, res.Created)

	assert.Equal(t, enums.TableStatusAvailable, f.tableStatus(t))
	assert.Zero(t, f.count(t, &models.OrderItemModifier{}, ""))
	require.Len(t, f.notifier.changes, 2)
	assert.Equal(t, []string{string(FlowCustomer)}, f.metrics.submitted)

	var item models.OrderItem
	require.NoError(t, f.conn.First(&item, "order_id = ?", res.OrderID).Error)
	assert.Contains(t, string(item.Meta), extraEgg.String())
}

func TestSubmitRefusesWhileTableLocked(t *testing.T) {
	f := newFixture(t)
	f.carts.lines[f.scope] = []cart.Line{phoLine()}

	handle, ok, err := f.locker.TryAcquire(ctx(), (&redis.Client{}).LockKey("table", f.table.ID.String()))
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.svc.Submit(ctx(), SubmitInput{Scope: f.scope, Flow: FlowEmployee})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Len(t, f.carts.lines[f.scope], 1)
	assert.Equal(t, []string{reasonLocked}, f.metrics.failures)

	require.NoError(t, handle.Release(ctx()))
	_, err = f.svc.Submit(ctx(), SubmitInput{Scope: f.scope, Flow: FlowEmployee})
	require.NoError(t, err)
}

func TestSubmitPreconditions(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Submit(ctx(), SubmitInput{Scope: f.scope, Flow: FlowEmployee})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "empty cart")

	missing := cart.Scope{OrganizationID: f.org, TableNumber: "99"}
	f.carts.lines[missing] = []cart.Line{phoLine()}
	_, err = f.svc.Submit(ctx(), SubmitInput{Scope: missing, Flow: FlowEmployee})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Submit(ctx(), SubmitInput{Scope: f.scope, Flow: "kiosk"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Submit(ctx(), SubmitInput{Scope: cart.Scope{TableNumber: "12"}, Flow: FlowEmployee})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	assert.Equal(t, []string{reasonEmptyCart, reasonNoTable}, f.metrics.failures)
}

func TestSubmitSucceedsWhenCartClearFails(t *testing.T) {
	f := newFixture(t)
	f.carts.lines[f.scope] = []cart.Line{phoLine()}
	f.carts.clearErr = errors.New("redis down")

	res, err := f.svc.Submit(ctx(), SubmitInput{Scope: f.scope, Flow: FlowEmployee})
	require.NoError(t, err)
	assert.False(t, res.CartCleared)
	assert.EqualValues(t, 1, f.count(t, &models.OrderItem{}, ""))
}

func TestCloseThenReopen(t *testing.T) {
	f := newFixture(t)
	f.carts.lines[f.scope] = []cart.Line{phoLine()}
	res, err := f.svc.Submit(ctx(), SubmitInput{Scope: f.scope, Flow: FlowEmployee})
	require.NoError(t, err)
	ref := OrderRef{OrganizationID: f.org, OrderID: res.OrderID}

	closed, err := f.svc.Close(ctx(), ref)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, enums.TableStatusAvailable, f.tableStatus(t))

	_, err = f.svc.Close(ctx(), ref)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	active, err := f.svc.ListActive(ctx(), f.org)
	require.NoError(t, err)
	assert.Empty(t, active)

	reopened, err := f.svc.Reopen(ctx(), ref)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPreparing, reopened.Status)
	assert.Nil(t, reopened.ClosedAt)
	assert.Equal(t, enums.TableStatusOccupied, f.tableStatus(t))

	_, err = f.svc.Reopen(ctx(), ref)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeActiveOrder))

	assert.EqualValues(t, 1, f.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventOrderClosed))
	assert.EqualValues(t, 1, f.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventOrderReopened))
}

func TestSecondReopenDetectsActiveOrder(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()
	first := seedOrder(t, f.conn, f.table, enums.OrderStatusClosed, now.Add(-time.Hour))
	second := seedOrder(t, f.conn, f.table, enums.OrderStatusClosed, now)

	_, err := f.svc.Reopen(ctx(), OrderRef{OrganizationID: f.org, OrderID: first.ID})
	require.NoError(t, err)

	_, err = f.svc.Reopen(ctx(), OrderRef{OrganizationID: f.org, OrderID: second.ID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeActiveOrder))
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, first.ID, details["activeOrderId"])

	assert.EqualValues(t, 1, f.count(t, &models.Order{}, "table_id = ? AND status IN ?", f.table.ID, enums.ActiveOrderStatuses()))
}

func TestReopenUnknownOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Reopen(ctx(), OrderRef{OrganizationID: f.org, OrderID: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	other := seedOrder(t, f.conn, seedTable(t, f.conn, uuid.New(), "1"), enums.OrderStatusClosed, time.Now().UTC())
	_, err = f.svc.Reopen(ctx(), OrderRef{OrganizationID: f.org, OrderID: other.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	order := seedOrder(t, f.conn, f.table, enums.OrderStatusPending, time.Now().UTC())
	ref := OrderRef{OrganizationID: f.org, OrderID: order.ID}

	got, err := f.svc.UpdateStatus(ctx(), UpdateStatusInput{OrderRef: ref, Status: enums.OrderStatusReady})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusReady, got.Status)
	assert.EqualValues(t, 1, f.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventOrderStatusChanged))

	_, err = f.svc.UpdateStatus(ctx(), UpdateStatusInput{OrderRef: ref, Status: enums.OrderStatusReady})
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventOrderStatusChanged))

	_, err = f.svc.UpdateStatus(ctx(), UpdateStatusInput{OrderRef: ref, Status: enums.OrderStatusClosed})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	closed := seedOrder(t, f.conn, seedTable(t, f.conn, f.org, "13"), enums.OrderStatusClosed, time.Now().UTC())
	_, err = f.svc.UpdateStatus(ctx(), UpdateStatusInput{
		OrderRef: OrderRef{OrganizationID: f.org, OrderID: closed.ID},
		Status:   enums.OrderStatusPreparing,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestListActiveSkipsHeadersWithoutItems(t *testing.T) {
	f := newFixture(t)
	f.carts.lines[f.scope] = []cart.Line{phoLine(), rollsLine()}
	res, err := f.svc.Submit(ctx(), SubmitInput{Scope: f.scope, Flow: FlowEmployee})
	require.NoError(t, err)
	seedOrder(t, f.conn, seedTable(t, f.conn, f.org, "7"), enums.OrderStatusPending, time.Now().UTC())

	active, err := f.svc.ListActive(ctx(), f.org)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, res.OrderID, active[0].ID)
	assert.Equal(t, "12", active[0].TableNumber)
	assert.Len(t, active[0].Items, 2)
	assert.True(t, decimal.RequireFromString("33.4").Equal(active[0].Totals.Subtotal))

	none, err := f.svc.ListActive(ctx(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}
