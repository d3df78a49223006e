package tables

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/tableside-backend/internal/realtime"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
	"github.com/angelmondragon/tableside-backend/pkg/logger"
)

// EventProjection is the websocket event type carrying a Projection.
const EventProjection = "tables.projection"

var watchedTables = []string{realtime.TableOrders, realtime.TableOrderItems, realtime.TableTables}

type changeSubscriber interface {
	Subscribe(ctx context.Context, table string, mask enums.ChangeMask, fn realtime.Handler) (*realtime.Subscription, error)
}

type broadcaster interface {
	Broadcast(organizationID uuid.UUID, event realtime.Event) error
}

// Projector pushes a freshly refetched Projection to an organization's
// websocket clients after every change notification it receives.
type Projector struct {
	svc  Service
	bus  changeSubscriber
	hub  broadcaster
	logg *logger.Logger
}

func NewProjector(svc Service, bus changeSubscriber, hub broadcaster, logg *logger.Logger) (*Projector, error) {
	if svc == nil {
		return nil, errors.New("tables service required")
	}
	if bus == nil {
		return nil, errors.New("change subscriber required")
	}
	if hub == nil {
		return nil, errors.New("broadcaster required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Projector{svc: svc, bus: bus, hub: hub, logg: logg}, nil
}

// Run subscribes to order, item and table changes and blocks until ctx is done.
func (p *Projector) Run(ctx context.Context) error {
	subs := make([]*realtime.Subscription, 0, len(watchedTables))
	defer func() {
		for _, sub := range subs {
			sub.Close()
		}
	}()
	for _, table := range watchedTables {
		sub, err := p.bus.Subscribe(ctx, table, enums.MaskAll, p.handle)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", table, err)
		}
		subs = append(subs, sub)
	}
	p.logg.Info(ctx, "table projector subscribed")
	<-ctx.Done()
	return nil
}

func (p *Projector) handle(ctx context.Context, change realtime.Change) {
	if change.OrganizationID == uuid.Nil {
		return
	}
	p.Refresh(ctx, change.OrganizationID)
}

// Refresh rebuilds and broadcasts the organization's projection. Read
// failures still broadcast, with empty lists and the error fields set.
func (p *Projector) Refresh(ctx context.Context, organizationID uuid.UUID) {
	ctx = p.logg.WithOrganizationID(ctx, organizationID.String())
	projection, err := p.svc.Projection(ctx, organizationID)
	if err != nil {
		p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "table projection refetch failed")
	}
	if projection == nil {
		return
	}
	payload, err := json.Marshal(projection)
	if err != nil {
		p.logg.Error(ctx, "failed to encode table projection", err)
		return
	}
	if err := p.hub.Broadcast(organizationID, realtime.Event{Type: EventProjection, Payload: payload}); err != nil {
		p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "failed to broadcast table projection")
	}
}
