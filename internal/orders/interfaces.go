package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tableside-backend/pkg/db/models"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
)

// Repository defines persistence operations for order headers, their items and table status.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindTableByNumber(ctx context.Context, organizationID uuid.UUID, number string) (*models.Table, error)
	FindTable(ctx context.Context, organizationID, id uuid.UUID) (*models.Table, error)
	FindOrder(ctx context.Context, organizationID, id uuid.UUID) (*models.Order, error)
	FindActiveOrder(ctx context.Context, tableID uuid.UUID) (*models.Order, error)
	CreateActiveOrder(ctx context.Context, order *models.Order) (*models.Order, bool, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus, closedAt *time.Time) error
	DeleteOrderItems(ctx context.Context, orderID uuid.UUID) error
	InsertOrderItems(ctx context.Context, items []models.OrderItem) error
	OrderItemIDsByClientLine(ctx context.Context, orderID uuid.UUID) (map[string]uuid.UUID, error)
	InsertItemModifiers(ctx context.Context, rows []models.OrderItemModifier) error
	SetTableStatus(ctx context.Context, tableID uuid.UUID, status enums.TableStatus) error
	ListActiveOrders(ctx context.Context, organizationID uuid.UUID) ([]models.Order, error)
	ListOrderItems(ctx context.Context, orderIDs ...uuid.UUID) ([]models.OrderItem, error)
	ListTables(ctx context.Context, organizationID uuid.UUID, ids ...uuid.UUID) ([]models.Table, error)
	ListOrphanOrders(ctx context.Context, createdBefore time.Time, limit int) ([]models.Order, error)
}
