package tables

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tableside-backend/internal/orders"
	"github.com/angelmondragon/tableside-backend/pkg/db/models"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
)

type TableDTO struct {
	ID        uuid.UUID         `json:"id"`
	Number    string            `json:"number"`
	Status    enums.TableStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
}

// ProjectedTable is a table with live orders overlaid on its stored status.
type ProjectedTable struct {
	ID              uuid.UUID          `json:"id"`
	Number          string             `json:"number"`
	Status          enums.TableStatus  `json:"status"`
	IsOccupied      bool               `json:"isOccupied"`
	OpenOrderID     *uuid.UUID         `json:"openOrderId,omitempty"`
	OpenOrderStatus *enums.OrderStatus `json:"openOrderStatus,omitempty"`
}

// Projection is one full snapshot. A failed list read is reported in the
// matching error field and the list is empty, never stale.
type Projection struct {
	Tables      []ProjectedTable     `json:"tables"`
	OpenOrders  []orders.ActiveOrder `json:"openOrders"`
	TablesError string               `json:"tablesError,omitempty"`
	OrdersError string               `json:"ordersError,omitempty"`
	GeneratedAt time.Time            `json:"generatedAt"`
}

// QRCode is what gets printed on a table. The URL carries only the table
// number; OrganizationID is what the ordering page needs for customer API calls.
type QRCode struct {
	OrganizationID uuid.UUID `json:"organizationId"`
	TableNumber    string    `json:"tableNumber"`
	URL            string    `json:"url"`
}

func tableDTO(t models.Table) TableDTO {
	return TableDTO{
		ID:        t.ID,
		Number:    t.Number,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
	}
}
