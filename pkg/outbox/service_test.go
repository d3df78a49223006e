package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/tableside-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tableside-backend/pkg/db/models"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
	"github.com/angelmondragon/tableside-backend/pkg/logger"
)

func newTestService(t *testing.T) (*Service, *Repository, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	return NewService(repo, logger.Nop()), repo, conn
}

func TestEmitWrapsPayloadInEnvelope(t *testing.T) {
	svc, _, conn := newTestService(t)
	org := uuid.New()
	orderID := uuid.New()
	userID := uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			OrganizationID: org,
			EventType:      enums.EventOrderClosed,
			AggregateType:  enums.AggregateOrder,
			AggregateID:    orderID,
			Actor:          &ActorRef{UserID: &userID, OrganizationID: org, Role: "staff"},
			Data:           map[string]string{"orderId": orderID.String()},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, org, rows[0].OrganizationID)
	assert.Equal(t, orderID, rows[0].AggregateID)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, "staff", envelope.Actor.Role)
	assert.JSONEq(t, `{"orderId":"`+orderID.String()+`"}`, string(envelope.Data))
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	svc, _, conn := newTestService(t)
	boom := errors.New("boom")

	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			OrganizationID: uuid.New(),
			EventType:      enums.EventOrderSubmitted,
			AggregateType:  enums.AggregateOrder,
			AggregateID:    uuid.New(),
			Data:           struct{}{},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestEmitRequiresTransactionAndOrganization(t *testing.T) {
	svc, _, conn := newTestService(t)

	assert.Error(t, svc.Emit(context.Background(), nil, DomainEvent{OrganizationID: uuid.New()}))
	assert.Error(t, svc.Emit(context.Background(), conn, DomainEvent{}))
}

func TestEmitIfNotExistsWritesOnce(t *testing.T) {
	svc, _, conn := newTestService(t)
	event := DomainEvent{
		OrganizationID: uuid.New(),
		EventType:      enums.EventOrderOrphanFound,
		AggregateType:  enums.AggregateOrder,
		AggregateID:    uuid.New(),
		Data:           map[string]string{},
	}

	for i, want := range []bool{true, false} {
		var wrote bool
		err := conn.Transaction(func(tx *gorm.DB) error {
			var err error
			wrote, err = svc.EmitIfNotExists(context.Background(), tx, event)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, want, wrote, "attempt %d", i)
	}
}

func TestFetchAndMarkLifecycle(t *testing.T) {
	_, repo, conn := newTestService(t)
	base := time.Now().UTC().Add(-time.Hour)
	ids := make([]uuid.UUID, 3)
	for i := range ids {
		ids[i] = uuid.New()
		require.NoError(t, conn.Create(&models.OutboxEvent{
			ID:             ids[i],
			OrganizationID: uuid.New(),
			EventType:      enums.EventOrderSubmitted,
			AggregateType:  enums.AggregateOrder,
			AggregateID:    uuid.New(),
			Payload:        json.RawMessage(`{}`),
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ids[0], rows[0].ID, "oldest first")

	require.NoError(t, repo.MarkPublishedTx(conn, ids[0]))
	require.NoError(t, repo.MarkFailedTx(conn, ids[1], errors.New("unavailable")))
	require.NoError(t, repo.MarkTerminalTx(conn, ids[2], errors.New("bad payload"), 3))

	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ids[1], rows[0].ID)
	assert.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	assert.Equal(t, "unavailable", *rows[0].LastError)

	cutoff := time.Now().UTC().Add(time.Minute)
	deleted, err := repo.DeleteExpired(context.Background(), conn, cutoff, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted, "limit caps one pass")

	deleted, err = repo.DeleteExpired(context.Background(), conn, cutoff, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted, "published and exhausted rows go, the retryable one stays")
}

func TestDLQInsertTruncatesMessage(t *testing.T) {
	conn := dbtest.Open(t)
	dlq := NewDLQRepository(conn)
	msg := strings.Repeat("x", maxDLQErrorBytes+50)
	eventID := uuid.New()

	require.NoError(t, dlq.InsertTx(conn, models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventOrderSubmitted,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonNonRetryable,
		ErrorMessage:  &msg,
	}))

	row, err := dlq.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, row)
	require.NotNil(t, row.ErrorMessage)
	assert.Len(t, *row.ErrorMessage, maxDLQErrorBytes)

	missing, err := dlq.FindByEventID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDLQInsertRejectsUnknownReason(t *testing.T) {
	conn := dbtest.Open(t)
	err := NewDLQRepository(conn).InsertTx(conn, models.OutboxDLQ{
		EventID:     uuid.New(),
		ErrorReason: "timeout",
	})
	assert.Error(t, err)
}

func TestClipUTF8KeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", clipUTF8("short", 10))
	// "é" is two bytes; cutting at 4 would split the second one
	assert.Equal(t, "aé", clipUTF8("aéé", 4))
}
