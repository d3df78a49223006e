package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/tableside-backend/pkg/db/models"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
	"github.com/angelmondragon/tableside-backend/pkg/logger"
	"github.com/angelmondragon/tableside-backend/pkg/outbox"
	"github.com/angelmondragon/tableside-backend/pkg/outbox/payloads"
)

const (
	orphanOrderJobName     = "orphan-order-report"
	defaultOrphanGrace     = 30 * time.Minute
	defaultOrphanBatchSize = 200
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orphanOrderReader interface {
	ListOrphanOrders(ctx context.Context, createdBefore time.Time, limit int) ([]models.Order, error)
}

type onceEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (bool, error)
}

type orphanRecorder interface {
	AddOrphans(n int)
}

// OrphanOrderJobParams configure the orphan header report.
type OrphanOrderJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Orders      orphanOrderReader
	Outbox      onceEmitter
	Metrics     orphanRecorder
	GracePeriod time.Duration
	BatchSize   int
}

// NewOrphanOrderJob builds the job that surfaces active order headers left without items.
// Headers are reported, never deleted; staff decide what to do with them.
func NewOrphanOrderJob(params OrphanOrderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	grace := params.GracePeriod
	if grace <= 0 {
		grace = defaultOrphanGrace
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultOrphanBatchSize
	}
	return &orphanOrderJob{
		logg:    params.Logger,
		db:      params.DB,
		orders:  params.Orders,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		grace:   grace,
		batch:   batch,
		now:     time.Now,
	}, nil
}

type orphanOrderJob struct {
	logg    *logger.Logger
	db      txRunner
	orders  orphanOrderReader
	outbox  onceEmitter
	metrics orphanRecorder
	grace   time.Duration
	batch   int
	now     func() time.Time
}

func (j *orphanOrderJob) Name() string { return orphanOrderJobName }

func (j *orphanOrderJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.grace)
	headers, err := j.orders.ListOrphanOrders(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("list orphan orders: %w", err)
	}

	var errs error
	reported := 0
	for _, order := range headers {
		order := order
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"order_id":        order.ID.String(),
			"table_id":        order.TableID.String(),
			"organization_id": order.OrganizationID.String(),
			"status":          order.Status,
			"created_at":      order.CreatedAt,
		})
		j.logg.Warn(logCtx, "active order header has no items")

		var emitted bool
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			ok, err := j.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				OrganizationID: order.OrganizationID,
				EventType:      enums.EventOrderOrphanFound,
				AggregateType:  enums.AggregateOrder,
				AggregateID:    order.ID,
				Data: payloads.OrderOrphanDetectedEvent{
					OrderID:   order.ID,
					TableID:   order.TableID,
					Status:    order.Status,
					CreatedAt: order.CreatedAt,
					Age:       now.Sub(order.CreatedAt).Truncate(time.Second).String(),
				},
			})
			emitted = ok
			return err
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}
		if emitted {
			reported++
		}
	}

	if reported > 0 && j.metrics != nil {
		j.metrics.AddOrphans(reported)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":   cutoff,
		"found":    len(headers),
		"reported": reported,
	})
	j.logg.Info(logCtx, "orphan order report complete")
	return errs
}
