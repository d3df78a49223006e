package tables

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/angelmondragon/tableside-backend/internal/orders"
	"github.com/angelmondragon/tableside-backend/internal/realtime"
	dbpkg "github.com/angelmondragon/tableside-backend/pkg/db"
	"github.com/angelmondragon/tableside-backend/pkg/db/models"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tableside-backend/pkg/errors"
	"github.com/angelmondragon/tableside-backend/pkg/logger"
)

const maxTableNumberLen = 32

type tableRepository interface {
	Create(ctx context.Context, table *models.Table) error
	List(ctx context.Context, organizationID uuid.UUID) ([]models.Table, error)
	FindByNumber(ctx context.Context, organizationID uuid.UUID, number string) (*models.Table, error)
}

type openOrderLister interface {
	ListActive(ctx context.Context, organizationID uuid.UUID) ([]orders.ActiveOrder, error)
}

// Service exposes table management and the occupancy projection.
type Service interface {
	List(ctx context.Context, organizationID uuid.UUID) ([]TableDTO, error)
	Create(ctx context.Context, organizationID uuid.UUID, number string) ([]TableDTO, error)
	Projection(ctx context.Context, organizationID uuid.UUID) (*Projection, error)
	QRCode(ctx context.Context, organizationID uuid.UUID, number string) (*QRCode, error)
}

// ServiceParams groups the tables service dependencies.
type ServiceParams struct {
	Repo         tableRepository
	Orders       openOrderLister
	PublicOrigin string
	Notifier     realtime.Notifier
	Logger       *logger.Logger
}

type service struct {
	repo     tableRepository
	orders   openOrderLister
	origin   string
	notifier realtime.Notifier
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("table repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("open order lister required")
	}
	if strings.TrimSpace(params.PublicOrigin) == "" {
		return nil, fmt.Errorf("public origin required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:     params.Repo,
		orders:   params.Orders,
		origin:   params.PublicOrigin,
		notifier: params.Notifier,
		logg:     logg,
	}, nil
}

func (s *service) List(ctx context.Context, organizationID uuid.UUID) ([]TableDTO, error) {
	rows, err := s.repo.List(ctx, organizationID)
	if err != nil {
		return []TableDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list tables")
	}
	out := make([]TableDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, tableDTO(row))
	}
	return out, nil
}

// Create adds a table and answers with the refetched list.
func (s *service) Create(ctx context.Context, organizationID uuid.UUID, number string) ([]TableDTO, error) {
	number, err := cleanNumber(number)
	if err != nil {
		return nil, err
	}
	table := &models.Table{
		OrganizationID: organizationID,
		Number:         number,
		Status:         enums.TableStatusAvailable,
	}
	if err := s.repo.Create(ctx, table); err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "table number already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to create table")
	}

	if s.notifier != nil {
		change := realtime.Change{
			Table:          realtime.TableTables,
			Op:             enums.ChangeInsert,
			OrganizationID: organizationID,
			RowID:          table.ID,
		}
		if err := s.notifier.Notify(ctx, change); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "failed to publish table change")
		}
	}
	return s.List(ctx, organizationID)
}

// Projection refetches both the tables and the open orders. Either list is
// empty when its read fails; the error is returned after both reads ran.
func (s *service) Projection(ctx context.Context, organizationID uuid.UUID) (*Projection, error) {
	out := &Projection{
		Tables:      []ProjectedTable{},
		OpenOrders:  []orders.ActiveOrder{},
		GeneratedAt: time.Now().UTC(),
	}

	rows, tablesErr := s.repo.List(ctx, organizationID)
	if tablesErr != nil {
		rows = nil
		out.TablesError = "tables could not be loaded"
	}
	open, ordersErr := s.orders.ListActive(ctx, organizationID)
	if ordersErr != nil {
		open = []orders.ActiveOrder{}
		out.OrdersError = "open orders could not be loaded"
	}

	out.Tables = Project(rows, open)
	out.OpenOrders = open

	switch {
	case tablesErr != nil:
		return out, pkgerrors.Wrap(pkgerrors.CodeDependency, tablesErr, "failed to list tables")
	case ordersErr != nil:
		if pkgerrors.As(ordersErr) != nil {
			return out, ordersErr
		}
		return out, pkgerrors.Wrap(pkgerrors.CodeDependency, ordersErr, "failed to list open orders")
	}
	return out, nil
}

func (s *service) QRCode(ctx context.Context, organizationID uuid.UUID, number string) (*QRCode, error) {
	number, err := cleanNumber(number)
	if err != nil {
		return nil, err
	}
	table, err := s.repo.FindByNumber(ctx, organizationID, number)
	if err != nil {
		if dbpkg.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "table not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load table")
	}
	return &QRCode{
		OrganizationID: organizationID,
		TableNumber:    table.Number,
		URL:            CustomerOrderURL(s.origin, table.Number),
	}, nil
}

func cleanNumber(number string) (string, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "table number is required")
	}
	if utf8.RuneCountInString(number) > maxTableNumberLen {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("table number must be at most %d characters", maxTableNumberLen))
	}
	return number, nil
}
