package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/tableside-backend/internal/orders"
	"github.com/angelmondragon/tableside-backend/pkg/db"
	"github.com/angelmondragon/tableside-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tableside-backend/pkg/db/models"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
	"github.com/angelmondragon/tableside-backend/pkg/logger"
	"github.com/angelmondragon/tableside-backend/pkg/outbox"
)

type countingOrphans struct {
	total int
}

func (c *countingOrphans) AddOrphans(n int) { c.total += n }

func seedHeader(t *testing.T, conn *gorm.DB, status enums.OrderStatus, createdAt time.Time) models.Order {
	t.Helper()
	order := models.Order{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		TableID:        uuid.New(),
		Status:         status,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
	require.NoError(t, conn.Create(&order).Error)
	return order
}

func TestOrphanOrderJobReportsEachHeaderOnce(t *testing.T) {
	conn := dbtest.Open(t)
	now := time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)

	orphan := seedHeader(t, conn, enums.OrderStatusPending, now.Add(-2*time.Hour))
	seedHeader(t, conn, enums.OrderStatusPending, now.Add(-5*time.Minute))
	seedHeader(t, conn, enums.OrderStatusClosed, now.Add(-3*time.Hour))
	withItems := seedHeader(t, conn, enums.OrderStatusPreparing, now.Add(-3*time.Hour))
	require.NoError(t, conn.Create(&models.OrderItem{
		ID:           uuid.New(),
		OrderID:      withItems.ID,
		ItemID:       uuid.New(),
		ClientLineID: "line-1",
		Title:        "Pho",
		Quantity:     1,
		PriceEach:    decimal.RequireFromString("12.95"),
	}).Error)

	recorder := &countingOrphans{}
	jobIface, err := NewOrphanOrderJob(OrphanOrderJobParams{
		Logger:  logger.Nop(),
		DB:      db.FromGorm(conn),
		Orders:  orders.NewRepository(conn),
		Outbox:  outbox.NewService(outbox.NewRepository(conn), logger.Nop()),
		Metrics: recorder,
	})
	require.NoError(t, err)
	job := jobIface.(*orphanOrderJob)
	job.now = func() time.Time { return now }
	assert.Equal(t, "orphan-order-report", job.Name())

	require.NoError(t, job.Run(context.Background()))
	require.NoError(t, job.Run(context.Background()))

	var events []models.OutboxEvent
	require.NoError(t, conn.Where("event_type = ?", enums.EventOrderOrphanFound).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, orphan.ID, events[0].AggregateID)
	assert.Equal(t, orphan.OrganizationID, events[0].OrganizationID)
	assert.Equal(t, 1, recorder.total)

	// headers are surfaced, never purged
	var count int64
	require.NoError(t, conn.Model(&models.Order{}).Where("id = ?", orphan.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

type failingOrphanReader struct{}

func (failingOrphanReader) ListOrphanOrders(context.Context, time.Time, int) ([]models.Order, error) {
	return nil, errors.New("db down")
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOnceEmitter struct {
	err error
}

func (s stubOnceEmitter) EmitIfNotExists(context.Context, *gorm.DB, outbox.DomainEvent) (bool, error) {
	return s.err == nil, s.err
}

type fixedOrphanReader struct {
	headers []models.Order
}

func (f fixedOrphanReader) ListOrphanOrders(context.Context, time.Time, int) ([]models.Order, error) {
	return f.headers, nil
}

func TestOrphanOrderJobPropagatesFailures(t *testing.T) {
	job, err := NewOrphanOrderJob(OrphanOrderJobParams{
		Logger: logger.Nop(),
		DB:     stubTxRunner{},
		Orders: failingOrphanReader{},
		Outbox: stubOnceEmitter{},
	})
	require.NoError(t, err)
	assert.Error(t, job.Run(context.Background()))

	headers := []models.Order{
		{ID: uuid.New(), OrganizationID: uuid.New(), Status: enums.OrderStatusPending},
		{ID: uuid.New(), OrganizationID: uuid.New(), Status: enums.OrderStatusReady},
	}
	recorder := &countingOrphans{}
	job, err = NewOrphanOrderJob(OrphanOrderJobParams{
		Logger:  logger.Nop(),
		DB:      stubTxRunner{},
		Orders:  fixedOrphanReader{headers: headers},
		Outbox:  stubOnceEmitter{err: errors.New("insert failed")},
		Metrics: recorder,
	})
	require.NoError(t, err)
	err = job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), headers[0].ID.String())
	assert.Contains(t, err.Error(), headers[1].ID.String())
	assert.Zero(t, recorder.total)
}

func TestNewOrphanOrderJobRequiresDependencies(t *testing.T) {
	_, err := NewOrphanOrderJob(OrphanOrderJobParams{Logger: logger.Nop(), DB: stubTxRunner{}})
	assert.Error(t, err)
	_, err = NewOrphanOrderJob(OrphanOrderJobParams{DB: stubTxRunner{}, Orders: failingOrphanReader{}, Outbox: stubOnceEmitter{}})
	assert.Error(t, err)
}
