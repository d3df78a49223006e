package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/tableside-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tableside-backend/pkg/db/models"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
)

func seedTable(t *testing.T, conn *gorm.DB, org uuid.UUID, number string) models.Table {
	t.Helper()
	table := models.Table{ID: uuid.New(), OrganizationID: org, Number: number, Status: enums.TableStatusAvailable}
	require.NoError(t, conn.Create(&table).Error)
	return table
}

func seedOrder(t *testing.T, conn *gorm.DB, table models.Table, status enums.OrderStatus, createdAt time.Time) models.Order {
	t.Helper()
	order := models.Order{
		ID:             uuid.New(),
		OrganizationID: table.OrganizationID,
		TableID:        table.ID,
		Status:         status,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
	require.NoError(t, conn.Create(&order).Error)
	return order
}

func seedItem(t *testing.T, conn *gorm.DB, orderID uuid.UUID, clientLineID string) models.OrderItem {
	t.Helper()
	item := models.OrderItem{
		ID:           uuid.New(),
		OrderID:      orderID,
		ItemID:       uuid.New(),
		ClientLineID: clientLineID,
		Title:        "Pho",
		Quantity:     1,
		PriceEach:    decimal.RequireFromString("12.95"),
	}
	require.NoError(t, conn.Create(&item).Error)
	return item
}

func TestCreateActiveOrderReusesExistingHeader(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	table := seedTable(t, conn, uuid.New(), "4")
	existing := seedOrder(t, conn, table, enums.OrderStatusPreparing, time.Now().UTC())

	var got *models.Order
	var created bool
	err := conn.Transaction(func(tx *gorm.DB) error {
		var err error
		got, created, err = repo.WithTx(tx).CreateActiveOrder(context.Background(), &models.Order{
			OrganizationID: table.OrganizationID,
			TableID:        table.ID,
			Status:         enums.OrderStatusPending,
		})
		return err
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, got.ID)

	var n int64
	require.NoError(t, conn.Model(&models.Order{}).Where("table_id = ?", table.ID).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestCreateActiveOrderInsertsNextToClosedHeaders(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	table := seedTable(t, conn, uuid.New(), "4")
	seedOrder(t, conn, table, enums.OrderStatusClosed, time.Now().UTC())

	var created bool
	err := conn.Transaction(func(tx *gorm.DB) error {
		var err error
		_, created, err = repo.WithTx(tx).CreateActiveOrder(context.Background(), &models.Order{
			OrganizationID: table.OrganizationID,
			TableID:        table.ID,
			Status:         enums.OrderStatusPending,
		})
		return err
	})
	require.NoError(t, err)
	assert.True(t, created)

	active, err := repo.FindActiveOrder(context.Background(), table.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, active.Status)
}

func TestDeleteOrderItemsRemovesModifiers(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	table := seedTable(t, conn, uuid.New(), "1")
	order := seedOrder(t, conn, table, enums.OrderStatusPending, time.Now().UTC())
	other := seedOrder(t, conn, seedTable(t, conn, table.OrganizationID, "2"), enums.OrderStatusPending, time.Now().UTC())

	item := seedItem(t, conn, order.ID, "line-1")
	kept := seedItem(t, conn, other.ID, "line-1")
	require.NoError(t, repo.InsertItemModifiers(ctx, []models.OrderItemModifier{
		{OrderItemID: item.ID, ModifierID: uuid.New(), Quantity: 1},
		{OrderItemID: kept.ID, ModifierID: uuid.New(), Quantity: 2},
	}))

	require.NoError(t, repo.DeleteOrderItems(ctx, order.ID))

	var items, mods int64
	require.NoError(t, conn.Model(&models.OrderItem{}).Count(&items).Error)
	require.NoError(t, conn.Model(&models.OrderItemModifier{}).Count(&mods).Error)
	assert.EqualValues(t, 1, items)
	assert.EqualValues(t, 1, mods)
}

func TestOrderItemIDsByClientLine(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	table := seedTable(t, conn, uuid.New(), "1")
	order := seedOrder(t, conn, table, enums.OrderStatusPending, time.Now().UTC())
	a := seedItem(t, conn, order.ID, "a")
	b := seedItem(t, conn, order.ID, "b")

	ids, err := repo.OrderItemIDsByClientLine(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]uuid.UUID{"a": a.ID, "b": b.ID}, ids)
}

func TestListOrphanOrders(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	org := uuid.New()
	now := time.Now().UTC()
	old := now.Add(-2 * time.Hour)

	orphan := seedOrder(t, conn, seedTable(t, conn, org, "1"), enums.OrderStatusPending, old)
	withItems := seedOrder(t, conn, seedTable(t, conn, org, "2"), enums.OrderStatusPreparing, old)
	seedItem(t, conn, withItems.ID, "x")
	seedOrder(t, conn, seedTable(t, conn, org, "3"), enums.OrderStatusClosed, old)
	seedOrder(t, conn, seedTable(t, conn, org, "4"), enums.OrderStatusPending, now)

	got, err := repo.ListOrphanOrders(context.Background(), now.Add(-30*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, orphan.ID, got[0].ID)

	_, err = repo.ListOrphanOrders(context.Background(), now, 0)
	assert.Error(t, err)
}

func TestListOrphanOrdersSkipsReported(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	org := uuid.New()
	now := time.Now().UTC()

	var headers []models.Order
	for i := 0; i < 3; i++ {
		table := seedTable(t, conn, org, fmt.Sprintf("%d", i+1))
		headers = append(headers, seedOrder(t, conn, table, enums.OrderStatusPending, now.Add(-time.Duration(3-i)*time.Hour)))
	}

	got, err := repo.ListOrphanOrders(context.Background(), now, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, headers[0].ID, got[0].ID)

	for _, h := range headers[:2] {
		require.NoError(t, conn.Create(&models.OutboxEvent{
			ID:             uuid.New(),
			OrganizationID: org,
			EventType:      enums.EventOrderOrphanFound,
			AggregateType:  enums.AggregateOrder,
			AggregateID:    h.ID,
			Payload:        []byte(`{}`),
		}).Error)
	}

	got, err = repo.ListOrphanOrders(context.Background(), now, 2)
	require.NoError(t, err)
	require.Len(t, got, 1, "reported headers no longer fill the batch")
	assert.Equal(t, headers[2].ID, got[0].ID)
}

func TestSetTableStatusUnknownTable(t *testing.T) {
	conn := dbtest.Open(t)
	err := NewRepository(conn).SetTableStatus(context.Background(), uuid.New(), enums.TableStatusOccupied)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
