package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"gorm.io/gorm"

	"github.com/angelmondragon/tableside-backend/pkg/db/models"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
	"github.com/angelmondragon/tableside-backend/pkg/outbox/registry"
)

var errNoPublisher = errors.New("publisher not configured")

type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetry
	outcomeDead
)

type delivery struct {
	outcome outcome
	reason  enums.OutboxDLQErrorReason
	err     error
	topic   string
	eventID string
}

// deliver resolves and publishes one row. It never touches the database; the
// result is settled by the caller inside the batch transaction.
func (s *Service) deliver(ctx context.Context, event models.OutboxEvent) delivery {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return delivery{outcome: outcomeDead, reason: enums.OutboxDLQReasonUnresolvable, err: err}
	}
	d := delivery{topic: resolved.Descriptor.Topic, eventID: resolved.Envelope.EventID}

	err = s.publish(ctx, event, resolved)
	var nonRetry registry.NonRetryableError
	switch {
	case err == nil:
		d.outcome = outcomePublished
	case errors.Is(err, errNoPublisher):
		d.outcome, d.reason, d.err = outcomeDead, enums.OutboxDLQReasonNoPublisher, err
	case errors.As(err, &nonRetry):
		d.outcome, d.reason, d.err = outcomeDead, enums.OutboxDLQReasonNonRetryable, err
	case event.AttemptCount+1 >= s.maxAttempts:
		d.outcome, d.reason = outcomeDead, enums.OutboxDLQReasonMaxAttempts
		d.err = fmt.Errorf("max publish attempts reached: %w", err)
	default:
		d.outcome, d.err = outcomeRetry, err
	}
	return d
}

func (s *Service) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	pub := s.publishers(resolved.Descriptor.Topic)
	if pub == nil {
		return fmt.Errorf("topic %s: %w", resolved.Descriptor.Topic, errNoPublisher)
	}

	orderingKey := event.AggregateID.String()
	msg := &gcppubsub.Message{
		Data:        event.Payload,
		OrderingKey: orderingKey,
		Attributes: map[string]string{
			"event_id":        resolved.Envelope.EventID,
			"event_type":      string(event.EventType),
			"aggregate_type":  string(event.AggregateType),
			"aggregate_id":    orderingKey,
			"organization_id": event.OrganizationID.String(),
			"created_at":      event.CreatedAt.Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, msg)
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", resolved.Descriptor.Topic))
	}
	if _, err := result.Get(publishCtx); err != nil {
		// a failed ordering key rejects every later message until resumed
		pub.ResumePublish(orderingKey)
		return err
	}
	return nil
}

func (s *Service) settle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, d delivery) error {
	fields := map[string]any{
		"outbox_id":       event.ID.String(),
		"event_type":      event.EventType,
		"order_id":        event.AggregateID.String(),
		"attempt_count":   event.AttemptCount,
		"organization_id": event.OrganizationID.String(),
	}
	if d.topic != "" {
		fields["topic"] = d.topic
	}
	if d.eventID != "" {
		fields["event_id"] = d.eventID
	}
	logCtx := s.logg.WithFields(ctx, fields)

	switch d.outcome {
	case outcomePublished:
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.logg.Info(logCtx, "outbox event published")
	case outcomeRetry:
		s.logg.Warn(s.logg.WithField(logCtx, "error", d.err.Error()), "outbox publish failed")
		if err := s.repo.MarkFailedTx(tx, event.ID, d.err); err != nil {
			return fmt.Errorf("mark failure %s: %w", event.ID, err)
		}
	case outcomeDead:
		logCtx = s.logg.WithFields(logCtx, map[string]any{"reason": d.reason, "error": d.err.Error()})
		s.logg.Warn(logCtx, "outbox event dead-lettered")
		msg := d.err.Error()
		entry := models.OutboxDLQ{
			EventID:       event.ID,
			EventType:     event.EventType,
			AggregateType: event.AggregateType,
			AggregateID:   event.AggregateID,
			Payload:       event.Payload,
			ErrorReason:   d.reason,
			ErrorMessage:  &msg,
			AttemptCount:  event.AttemptCount,
			FailedAt:      time.Now().UTC(),
		}
		if err := s.dlq.InsertTx(tx, entry); err != nil {
			return fmt.Errorf("insert dlq %s: %w", event.ID, err)
		}
		if err := s.repo.MarkTerminalTx(tx, event.ID, d.err, s.maxAttempts); err != nil {
			return fmt.Errorf("mark terminal %s: %w", event.ID, err)
		}
	}
	return nil
}

// gcpPublishers adapts the client's per-topic publishers, which it already
// shares for the life of the process.
func gcpPublishers(client pubSubClient) publisherFactory {
	return func(topic string) publisher {
		p := client.Publisher(topic)
		if p == nil {
			return nil
		}
		return gcpPublisher{p}
	}
}

type gcpPublisher struct {
	p *gcppubsub.Publisher
}

func (g gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return g.p.Publish(ctx, msg)
}

func (g gcpPublisher) ResumePublish(key string) {
	g.p.ResumePublish(key)
}
