package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/tableside-backend/pkg/db"
	"github.com/angelmondragon/tableside-backend/pkg/db/models"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
)

const createOrderSavepoint = "create_active_order"

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindTableByNumber(ctx context.Context, organizationID uuid.UUID, number string) (*models.Table, error) {
	var table models.Table
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND table_number = ?", organizationID, number).
		First(&table).Error
	if err != nil {
		return nil, err
	}
	return &table, nil
}

func (r *repository) FindTable(ctx context.Context, organizationID, id uuid.UUID) (*models.Table, error) {
	var table models.Table
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", organizationID, id).
		First(&table).Error
	if err != nil {
		return nil, err
	}
	return &table, nil
}

func (r *repository) FindOrder(ctx context.Context, organizationID, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", organizationID, id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindActiveOrder returns gorm.ErrRecordNotFound when the table has no active header.
func (r *repository) FindActiveOrder(ctx context.Context, tableID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("table_id = ? AND status IN ?", tableID, enums.ActiveOrderStatuses()).
		Order("created_at ASC").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateActiveOrder inserts order, or returns the header that already holds
// ux_orders_active_table for the same table. The bool reports whether order
// was inserted. Must run inside a transaction.
func (r *repository) CreateActiveOrder(ctx context.Context, order *models.Order) (*models.Order, bool, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	db := r.db.WithContext(ctx)
	if err := db.SavePoint(createOrderSavepoint).Error; err != nil {
		return nil, false, err
	}
	err := db.Create(order).Error
	if err == nil {
		return order, true, nil
	}
	if !dbpkg.IsUniqueViolation(err, models.ActiveOrderConstraint) {
		return nil, false, err
	}
	if err := db.RollbackTo(createOrderSavepoint).Error; err != nil {
		return nil, false, err
	}
	existing, err := r.FindActiveOrder(ctx, order.TableID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *repository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus, closedAt *time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"closed_at":  closedAt,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteOrderItems removes every item of the order together with its modifier rows.
func (r *repository) DeleteOrderItems(ctx context.Context, orderID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	itemIDs := db.Model(&models.OrderItem{}).Select("id").Where("order_id = ?", orderID)
	if err := db.Where("order_item_id IN (?)", itemIDs).Delete(&models.OrderItemModifier{}).Error; err != nil {
		return err
	}
	return db.Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error
}

func (r *repository) InsertOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// OrderItemIDsByClientLine maps each item's client_line_id to its row id.
func (r *repository) OrderItemIDsByClientLine(ctx context.Context, orderID uuid.UUID) (map[string]uuid.UUID, error) {
	var rows []struct {
		ID           uuid.UUID
		ClientLineID string
	}
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Select("id, client_line_id").
		Where("order_id = ?", orderID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]uuid.UUID, len(rows))
	for _, row := range rows {
		out[row.ClientLineID] = row.ID
	}
	return out, nil
}

func (r *repository) InsertItemModifiers(ctx context.Context, rows []models.OrderItemModifier) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *repository) SetTableStatus(ctx context.Context, tableID uuid.UUID, status enums.TableStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Table{}).
		Where("id = ?", tableID).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListActiveOrders(ctx context.Context, organizationID uuid.UUID) ([]models.Order, error) {
	var out []models.Order
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND status IN ?", organizationID, enums.ActiveOrderStatuses()).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (r *repository) ListOrderItems(ctx context.Context, orderIDs ...uuid.UUID) ([]models.OrderItem, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	var out []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id IN ?", orderIDs).
		Order("created_at ASC").
		Order("client_line_id ASC").
		Find(&out).Error
	return out, err
}

// ListTables returns the organization's tables, optionally narrowed to ids.
func (r *repository) ListTables(ctx context.Context, organizationID uuid.UUID, ids ...uuid.UUID) ([]models.Table, error) {
	q := r.db.WithContext(ctx).Where("organization_id = ?", organizationID)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	var out []models.Table
	err := q.Order("table_number ASC").Find(&out).Error
	return out, err
}

// ListOrphanOrders finds active headers with no items created before the cutoff,
// across every organization. Headers that already have an orphan report in the
// outbox are skipped so each run reaches past the ones reported before.
func (r *repository) ListOrphanOrders(ctx context.Context, createdBefore time.Time, limit int) ([]models.Order, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	var out []models.Order
	err := r.db.WithContext(ctx).
		Where("status IN ? AND created_at < ?", enums.ActiveOrderStatuses(), createdBefore).
		Where("NOT EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = orders.id)").
		Where("NOT EXISTS (SELECT 1 FROM outbox_events oe WHERE oe.aggregate_id = orders.id AND oe.aggregate_type = ? AND oe.event_type = ?)",
			enums.AggregateOrder, enums.EventOrderOrphanFound).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
