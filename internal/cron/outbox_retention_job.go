package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/tableside-backend/pkg/logger"
)

const (
	outboxRetentionJobName = "outbox-retention"
	outboxRetentionDays    = 30
	outboxMinAttempts      = 10
	outboxRetentionBatch   = 500
)

type OutboxRetentionJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Repository    expiredEventDeleter
	RetentionDays int
	// MinAttempts matches the publisher's terminal attempt count.
	MinAttempts int
	// BatchSize caps the rows deleted per transaction.
	BatchSize int
}

type expiredEventDeleter interface {
	DeleteExpired(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount, limit int) (int64, error)
}

// outboxRetentionJob trims delivered and dead-lettered order events. Each
// batch commits on its own so the outbox table is never locked for the
// whole sweep.
type outboxRetentionJob struct {
	logg        *logger.Logger
	db          txRunner
	repo        expiredEventDeleter
	keep        time.Duration
	minAttempts int
	batch       int
	now         func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.DB == nil:
		return nil, errors.New("db runner required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository required")
	}
	return &outboxRetentionJob{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Repository,
		keep:        time.Duration(positiveOr(params.RetentionDays, outboxRetentionDays)) * 24 * time.Hour,
		minAttempts: positiveOr(params.MinAttempts, outboxMinAttempts),
		batch:       positiveOr(params.BatchSize, outboxRetentionBatch),
		now:         time.Now,
	}, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func (j *outboxRetentionJob) Name() string { return outboxRetentionJobName }

// Run deletes batch after batch until one comes back short. A canceled
// context stops between batches; rows already deleted stay deleted.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.keep)
	var total int64
	batches := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var n int64
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			n, err = j.repo.DeleteExpired(ctx, tx, cutoff, j.minAttempts, j.batch)
			return err
		})
		if err != nil {
			return fmt.Errorf("outbox retention after %d rows: %w", total, err)
		}
		total += n
		batches++
		if n < int64(j.batch) {
			break
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"min_attempts": j.minAttempts,
		"batches":      batches,
		"rows_deleted": total,
	}), "outbox retention cleanup complete")
	return nil
}
