package tables

import (
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/tableside-backend/internal/orders"
	"github.com/angelmondragon/tableside-backend/pkg/db/models"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
)

// Project marks a table occupied when its stored status says so or when an
// open order with items references it.
func Project(rows []models.Table, open []orders.ActiveOrder) []ProjectedTable {
	byTable := make(map[uuid.UUID]orders.ActiveOrder, len(open))
	for _, order := range open {
		if len(order.Items) == 0 {
			continue
		}
		byTable[order.TableID] = order
	}

	out := make([]ProjectedTable, 0, len(rows))
	for _, row := range rows {
		p := ProjectedTable{
			ID:         row.ID,
			Number:     row.Number,
			Status:     row.Status,
			IsOccupied: row.Status == enums.TableStatusOccupied,
		}
		if order, ok := byTable[row.ID]; ok {
			id := order.ID
			status := order.Status
			p.IsOccupied = true
			p.OpenOrderID = &id
			p.OpenOrderStatus = &status
		}
		out = append(out, p)
	}
	return out
}

// CustomerOrderURL builds the address encoded in a table's QR code:
// <origin>/customer/order/<tableNumber>.
func CustomerOrderURL(origin, tableNumber string) string {
	return strings.TrimRight(strings.TrimSpace(origin), "/") + "/customer/order/" + url.PathEscape(tableNumber)
}
