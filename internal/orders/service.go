package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/tableside-backend/internal/cart"
	"github.com/angelmondragon/tableside-backend/internal/realtime"
	dbpkg "github.com/angelmondragon/tableside-backend/pkg/db"
	"github.com/angelmondragon/tableside-backend/pkg/db/models"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tableside-backend/pkg/errors"
	"github.com/angelmondragon/tableside-backend/pkg/lock"
	"github.com/angelmondragon/tableside-backend/pkg/logger"
	"github.com/angelmondragon/tableside-backend/pkg/money"
	"github.com/angelmondragon/tableside-backend/pkg/outbox"
	"github.com/angelmondragon/tableside-backend/pkg/outbox/payloads"
)

// Submit failure reasons recorded in metrics.
const (
	reasonValidation = "validation"
	reasonEmptyCart  = "empty_cart"
	reasonNoTable    = "table_not_found"
	reasonLocked     = "locked"
	reasonBackend    = "backend"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartStore interface {
	Get(ctx context.Context, scope cart.Scope) (*cart.View, error)
	Clear(ctx context.Context, scope cart.Scope) error
}

type tableLocker interface {
	TryAcquire(ctx context.Context, key string) (*lock.Handle, bool, error)
}

type lockKeyer interface {
	LockKey(parts ...string) string
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type submitRecorder interface {
	IncSubmitted(flow string)
	IncSubmitFailure(reason string)
}

// Service reconciles carts into orders and drives the order lifecycle.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error)
	Close(ctx context.Context, ref OrderRef) (*OrderDTO, error)
	Reopen(ctx context.Context, ref OrderRef) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error)
	ListActive(ctx context.Context, organizationID uuid.UUID) ([]ActiveOrder, error)
}

// ServiceParams groups the orders service dependencies.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Carts    cartStore
	Locker   tableLocker
	Keys     lockKeyer
	Outbox   outboxPublisher
	Notifier realtime.Notifier
	Metrics  submitRecorder
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	tx       txRunner
	carts    cartStore
	locker   tableLocker
	keys     lockKeyer
	outbox   outboxPublisher
	notifier realtime.Notifier
	metrics  submitRecorder
	logg     *logger.Logger
}

// NewService builds an orders service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("table locker required")
	}
	if params.Keys == nil {
		return nil, fmt.Errorf("lock keyer required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		carts:    params.Carts,
		locker:   params.Locker,
		keys:     params.Keys,
		outbox:   params.Outbox,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		logg:     logg,
	}, nil
}

// Submit writes the cart as the table's complete item list. Every line must
// be valid or nothing is written and the cart is left as is. The header,
// items, modifiers, table status and outbox event commit together.
func (s *service) Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error) {
	scope := input.Scope
	if scope.OrganizationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "organization context missing")
	}
	if strings.TrimSpace(scope.TableNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "table number is required")
	}
	if !input.Flow.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid submission flow")
	}
	ctx = s.logg.WithTableKey(s.logg.WithOrganizationID(ctx, scope.OrganizationID.String()), cart.Key(scope.TableNumber))

	view, err := s.carts.Get(ctx, scope)
	if err != nil {
		s.failed(reasonBackend)
		return nil, asDependency(err, "failed to load cart")
	}
	if len(view.Lines) == 0 {
		s.failed(reasonEmptyCart)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if err := validateLines(view.Lines); err != nil {
		s.failed(reasonValidation)
		return nil, err
	}

	table, err := s.repo.FindTableByNumber(ctx, scope.OrganizationID, scope.TableNumber)
	if err != nil {
		if dbpkg.IsNotFound(err) {
			s.failed(reasonNoTable)
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "table not found")
		}
		s.failed(reasonBackend)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to resolve table")
	}

	handle, err := s.lockTable(ctx, table.ID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			s.failed(reasonLocked)
		} else {
			s.failed(reasonBackend)
		}
		return nil, err
	}
	defer s.release(ctx, handle)

	items, err := buildOrderItems(view.Lines)
	if err != nil {
		s.failed(reasonBackend)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to encode order items")
	}

	result := &SubmitResult{
		TableID:     table.ID,
		TableNumber: table.Number,
		ItemCount:   len(items),
		Totals:      view.Totals,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindActiveOrder(ctx, table.ID)
		switch {
		case err == nil:
		case dbpkg.IsNotFound(err):
			order, result.Created, err = repo.CreateActiveOrder(ctx, &models.Order{
				ID:             uuid.New(),
				OrganizationID: scope.OrganizationID,
				TableID:        table.ID,
				Status:         enums.OrderStatusPending,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to create order")
			}
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load active order")
		}
		result.OrderID = order.ID
		result.Status = order.Status

		if err := repo.DeleteOrderItems(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to clear order items")
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := repo.InsertOrderItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to insert order items")
		}

		if input.Flow == FlowEmployee {
			if err := s.insertModifiers(ctx, repo, order.ID, view.Lines); err != nil {
				return err
			}
			if err := repo.SetTableStatus(ctx, table.ID, enums.TableStatusOccupied); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to mark table occupied")
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			OrganizationID: scope.OrganizationID,
			EventType:      enums.EventOrderSubmitted,
			AggregateType:  enums.AggregateOrder,
			AggregateID:    order.ID,
			Actor:          buildActor(scope.OrganizationID, input.Actor),
			Data: payloads.OrderSubmittedEvent{
				OrderID:     order.ID,
				TableID:     table.ID,
				TableNumber: table.Number,
				Flow:        string(input.Flow),
				Status:      order.Status,
				ItemCount:   len(items),
				Subtotal:    view.Totals.Subtotal.String(),
				Created:     result.Created,
			},
		})
	})
	if err != nil {
		s.failed(reasonBackend)
		return nil, asDependency(err, "failed to submit order")
	}

	if err := s.carts.Clear(ctx, scope); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "order saved but cart could not be cleared")
	} else {
		result.CartCleared = true
	}

	orderOp := enums.ChangeUpdate
	if result.Created {
		orderOp = enums.ChangeInsert
	}
	changes := []realtime.Change{
		{Table: realtime.TableOrders, Op: orderOp, RowID: result.OrderID},
		{Table: realtime.TableOrderItems, Op: enums.ChangeInsert, RowID: result.OrderID},
	}
	if input.Flow == FlowEmployee {
		changes = append(changes, realtime.Change{Table: realtime.TableTables, Op: enums.ChangeUpdate, RowID: table.ID})
	}
	s.notify(ctx, scope.OrganizationID, changes...)

	if s.metrics != nil {
		s.metrics.IncSubmitted(string(input.Flow))
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":   result.OrderID.String(),
		"flow":       string(input.Flow),
		"item_count": result.ItemCount,
		"created":    result.Created,
	})
	s.logg.Info(logCtx, "order submitted")
	return result, nil
}

// Close ends the order and frees its table.
func (s *service) Close(ctx context.Context, ref OrderRef) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	if order.Status == enums.OrderStatusClosed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already closed")
	}

	handle, err := s.lockTable(ctx, order.TableID)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, handle)

	closedAt := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateOrderStatus(ctx, order.ID, enums.OrderStatusClosed, &closedAt); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to close order")
		}
		if err := repo.SetTableStatus(ctx, order.TableID, enums.TableStatusAvailable); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to free table")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			OrganizationID: ref.OrganizationID,
			EventType:      enums.EventOrderClosed,
			AggregateType:  enums.AggregateOrder,
			AggregateID:    order.ID,
			Actor:          buildActor(ref.OrganizationID, ref.Actor),
			Data: payloads.OrderClosedEvent{
				OrderID:  order.ID,
				TableID:  order.TableID,
				ClosedAt: closedAt,
			},
		})
	})
	if err != nil {
		return nil, asDependency(err, "failed to close order")
	}

	order.Status = enums.OrderStatusClosed
	order.ClosedAt = &closedAt
	s.notify(ctx, ref.OrganizationID,
		realtime.Change{Table: realtime.TableOrders, Op: enums.ChangeUpdate, RowID: order.ID},
		realtime.Change{Table: realtime.TableTables, Op: enums.ChangeUpdate, RowID: order.TableID},
	)
	out := orderDTO(order)
	return &out, nil
}

// Reopen moves a closed order back to preparing. It refuses with
// CodeActiveOrder while any active order, this one included, holds the table.
func (s *service) Reopen(ctx context.Context, ref OrderRef) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, ref)
	if err != nil {
		return nil, err
	}

	handle, err := s.lockTable(ctx, order.TableID)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, handle)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		active, err := repo.FindActiveOrder(ctx, order.TableID)
		switch {
		case err == nil:
			return activeOrderExists(active.ID)
		case !dbpkg.IsNotFound(err):
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to check active orders")
		}

		current, err := repo.FindOrder(ctx, ref.OrganizationID, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to reload order")
		}
		if current.Status != enums.OrderStatusClosed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only closed orders can be reopened")
		}

		if err := repo.UpdateOrderStatus(ctx, order.ID, enums.OrderStatusPreparing, nil); err != nil {
			if dbpkg.IsUniqueViolation(err, models.ActiveOrderConstraint) {
				return activeOrderExists(uuid.Nil)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to reopen order")
		}
		if err := repo.SetTableStatus(ctx, order.TableID, enums.TableStatusOccupied); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to mark table occupied")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			OrganizationID: ref.OrganizationID,
			EventType:      enums.EventOrderReopened,
			AggregateType:  enums.AggregateOrder,
			AggregateID:    order.ID,
			Actor:          buildActor(ref.OrganizationID, ref.Actor),
			Data: payloads.OrderReopenedEvent{
				OrderID: order.ID,
				TableID: order.TableID,
				Status:  enums.OrderStatusPreparing,
			},
		})
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeActiveOrder) {
			s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "reopen refused, table already has an active order")
		}
		return nil, asDependency(err, "failed to reopen order")
	}

	order.Status = enums.OrderStatusPreparing
	order.ClosedAt = nil
	s.notify(ctx, ref.OrganizationID,
		realtime.Change{Table: realtime.TableOrders, Op: enums.ChangeUpdate, RowID: order.ID},
		realtime.Change{Table: realtime.TableTables, Op: enums.ChangeUpdate, RowID: order.TableID},
	)
	out := orderDTO(order)
	return &out, nil
}

// UpdateStatus moves an active order between pending, preparing and ready.
func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error) {
	if !input.Status.IsActive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be pending, preparing or ready")
	}
	order, err := s.loadOrder(ctx, input.OrderRef)
	if err != nil {
		return nil, err
	}
	if !order.Status.IsActive() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "closed orders must be reopened first")
	}
	if order.Status == input.Status {
		out := orderDTO(order)
		return &out, nil
	}

	from := order.Status
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateOrderStatus(ctx, order.ID, input.Status, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to update order status")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			OrganizationID: input.OrganizationID,
			EventType:      enums.EventOrderStatusChanged,
			AggregateType:  enums.AggregateOrder,
			AggregateID:    order.ID,
			Actor:          buildActor(input.OrganizationID, input.Actor),
			Data: payloads.OrderStatusChangedEvent{
				OrderID: order.ID,
				TableID: order.TableID,
				From:    from,
				To:      input.Status,
			},
		})
	})
	if err != nil {
		return nil, asDependency(err, "failed to update order status")
	}

	order.Status = input.Status
	s.notify(ctx, input.OrganizationID, realtime.Change{Table: realtime.TableOrders, Op: enums.ChangeUpdate, RowID: order.ID})
	out := orderDTO(order)
	return &out, nil
}

// ListActive returns the organization's open orders. Headers without items
// are left out.
func (s *service) ListActive(ctx context.Context, organizationID uuid.UUID) ([]ActiveOrder, error) {
	headers, err := s.repo.ListActiveOrders(ctx, organizationID)
	if err != nil {
		return []ActiveOrder{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list active orders")
	}
	if len(headers) == 0 {
		return []ActiveOrder{}, nil
	}

	orderIDs := make([]uuid.UUID, 0, len(headers))
	tableIDs := make([]uuid.UUID, 0, len(headers))
	for _, h := range headers {
		orderIDs = append(orderIDs, h.ID)
		tableIDs = append(tableIDs, h.TableID)
	}
	items, err := s.repo.ListOrderItems(ctx, orderIDs...)
	if err != nil {
		return []ActiveOrder{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list order items")
	}
	tables, err := s.repo.ListTables(ctx, organizationID, tableIDs...)
	if err != nil {
		return []ActiveOrder{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list tables")
	}

	byOrder := make(map[uuid.UUID][]models.OrderItem, len(headers))
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	numbers := make(map[uuid.UUID]string, len(tables))
	for _, t := range tables {
		numbers[t.ID] = t.Number
	}

	out := make([]ActiveOrder, 0, len(headers))
	for _, h := range headers {
		rows := byOrder[h.ID]
		if len(rows) == 0 {
			continue
		}
		dtos := make([]OrderItemDTO, 0, len(rows))
		subtotal := decimal.Zero
		for _, row := range rows {
			dtos = append(dtos, orderItemDTO(row))
			subtotal = subtotal.Add(row.PriceEach.Mul(decimal.NewFromInt(int64(row.Quantity))))
		}
		out = append(out, ActiveOrder{
			ID:          h.ID,
			TableID:     h.TableID,
			TableNumber: numbers[h.TableID],
			Status:      h.Status,
			Notes:       h.Notes,
			Items:       dtos,
			Totals:      money.ComputeTotals(subtotal),
			CreatedAt:   h.CreatedAt,
		})
	}
	return out, nil
}

func (s *service) loadOrder(ctx context.Context, ref OrderRef) (*models.Order, error) {
	if ref.OrganizationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "organization context missing")
	}
	if ref.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrder(ctx, ref.OrganizationID, ref.OrderID)
	if err != nil {
		if dbpkg.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load order")
	}
	return order, nil
}

func (s *service) lockTable(ctx context.Context, tableID uuid.UUID) (*lock.Handle, error) {
	handle, ok, err := s.locker.TryAcquire(ctx, s.keys.LockKey("table", tableID.String()))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to lock table")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "another change to this table is in progress")
	}
	return handle, nil
}

func (s *service) release(ctx context.Context, handle *lock.Handle) {
	if err := handle.Release(context.WithoutCancel(ctx)); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "failed to release table lock")
	}
}

// insertModifiers attaches structured modifier rows to the items inserted for
// lines, matched by client line id.
func (s *service) insertModifiers(ctx context.Context, repo Repository, orderID uuid.UUID, lines []cart.Line) error {
	var ids map[string]uuid.UUID
	var rows []models.OrderItemModifier
	for _, line := range lines {
		selections := line.Modifiers.Selections()
		if len(selections) == 0 {
			continue
		}
		if ids == nil {
			var err error
			ids, err = repo.OrderItemIDsByClientLine(ctx, orderID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to correlate order items")
			}
		}
		itemID, ok := ids[line.ID]
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("no order item stored for cart line %s", line.ID))
		}
		qty := make(map[uuid.UUID]int)
		var order []uuid.UUID
		for _, sel := range selections {
			for _, opt := range sel.Options {
				if _, seen := qty[opt.ID]; !seen {
					order = append(order, opt.ID)
				}
				qty[opt.ID] += max(opt.Qty, 1)
			}
		}
		for _, modifierID := range order {
			rows = append(rows, models.OrderItemModifier{
				OrderItemID: itemID,
				ModifierID:  modifierID,
				Quantity:    qty[modifierID],
			})
		}
	}
	if err := repo.InsertItemModifiers(ctx, rows); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to insert order item modifiers")
	}
	return nil
}

func (s *service) notify(ctx context.Context, organizationID uuid.UUID, changes ...realtime.Change) {
	if s.notifier == nil {
		return
	}
	for _, change := range changes {
		change.OrganizationID = organizationID
		if err := s.notifier.Notify(ctx, change); err != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"table": change.Table,
				"error": err.Error(),
			})
			s.logg.Warn(logCtx, "failed to publish change notification")
		}
	}
}

func (s *service) failed(reason string) {
	if s.metrics != nil {
		s.metrics.IncSubmitFailure(reason)
	}
}

// validateLines rejects the whole cart when any line cannot be submitted.
func validateLines(lines []cart.Line) error {
	var errs error
	var invalid []InvalidLine
	for _, line := range lines {
		problem := line.Problem()
		if problem == "" {
			continue
		}
		invalid = append(invalid, InvalidLine{LineID: line.ID, Title: line.Title, Reason: problem})
		errs = multierr.Append(errs, fmt.Errorf("%s: %s", line.Title, problem))
	}
	if errs == nil {
		return nil
	}
	titles := make([]string, 0, len(invalid))
	for _, line := range invalid {
		titles = append(titles, line.Title)
	}
	msg := fmt.Sprintf("invalid cart lines: %s", strings.Join(titles, ", "))
	return pkgerrors.Wrap(pkgerrors.CodeValidation, errs, msg).
		WithDetails(map[string]any{"invalidLines": invalid})
}

func buildOrderItems(lines []cart.Line) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		meta, err := encodeMeta(line.Modifiers)
		if err != nil {
			return nil, fmt.Errorf("line %s: %w", line.ID, err)
		}
		var note *string
		if n := strings.TrimSpace(line.Notes); n != "" {
			note = &n
		}
		items = append(items, models.OrderItem{
			ID:           uuid.New(),
			ItemID:       line.ItemID,
			ClientLineID: line.ID,
			Title:        line.Title,
			Quantity:     line.Qty,
			PriceEach:    line.UnitPrice,
			Note:         note,
			Meta:         meta,
		})
	}
	return items, nil
}

func encodeMeta(mods cart.Modifiers) (json.RawMessage, error) {
	meta := itemMeta{Kind: mods.Kind()}
	switch mods.Kind() {
	case cart.ModifierKindNone:
		return nil, nil
	case cart.ModifierKindLegacy:
		legacy, _ := mods.Legacy()
		meta.Legacy = &legacy
	case cart.ModifierKindGeneric:
		meta.Selections = mods.Selections()
	}
	return json.Marshal(meta)
}

func buildActor(organizationID uuid.UUID, actor Actor) *outbox.ActorRef {
	ref := &outbox.ActorRef{OrganizationID: organizationID, Role: actor.Role}
	if actor.UserID != uuid.Nil {
		id := actor.UserID
		ref.UserID = &id
	}
	return ref
}

func activeOrderExists(activeID uuid.UUID) error {
	err := pkgerrors.New(pkgerrors.CodeActiveOrder, "table already has an active order")
	if activeID == uuid.Nil {
		return err
	}
	return err.WithDetails(map[string]any{"activeOrderId": activeID})
}

// asDependency keeps typed errors and wraps everything else.
func asDependency(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
