package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/tableside-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tableside-backend/pkg/errors"
	"github.com/angelmondragon/tableside-backend/pkg/money"
)

// Scope identifies one table's cart inside an organization. An empty
// TableNumber addresses the anonymous cart.
type Scope struct {
	OrganizationID uuid.UUID
	TableNumber    string
}

// View is a cart snapshot plus its unrounded totals.
type View struct {
	Key    string       `json:"key"`
	Lines  []Line       `json:"lines"`
	Totals money.Totals `json:"totals"`
}

const maxTableNumberLen = 32

type lineStore interface {
	Load(ctx context.Context, organizationID uuid.UUID, tableIdentifier string) ([]Line, error)
	Save(ctx context.Context, organizationID uuid.UUID, tableIdentifier string, lines []Line) error
	Clear(ctx context.Context, organizationID uuid.UUID, tableIdentifier string) error
}

type menuItemLoader interface {
	FindMenuItem(ctx context.Context, organizationID, id uuid.UUID) (*models.MenuItem, error)
}

// Service applies mutators to a table's cart and saves after every change.
type Service interface {
	Get(ctx context.Context, scope Scope) (*View, error)
	AddPlain(ctx context.Context, scope Scope, itemID uuid.UUID) (*View, error)
	AddCustomized(ctx context.Context, scope Scope, line Customized) (*View, error)
	Increment(ctx context.Context, scope Scope, lineID string) (*View, error)
	Decrement(ctx context.Context, scope Scope, lineID string) (*View, error)
	Remove(ctx context.Context, scope Scope, lineID string) (*View, error)
	Clear(ctx context.Context, scope Scope) error
}

type service struct {
	store lineStore
	items menuItemLoader
}

// NewService wires the cart store with the catalog lookup used for plain adds.
func NewService(store lineStore, items menuItemLoader) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if items == nil {
		return nil, fmt.Errorf("menu item loader required")
	}
	return &service{store: store, items: items}, nil
}

func (s *service) Get(ctx context.Context, scope Scope) (*View, error) {
	lines, err := s.load(ctx, scope)
	if err != nil {
		return nil, err
	}
	return newView(scope, lines), nil
}

func (s *service) AddPlain(ctx context.Context, scope Scope, itemID uuid.UUID) (*View, error) {
	item, err := s.loadItem(ctx, scope, itemID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, scope, func(lines []Line) ([]Line, error) {
		return AddPlain(lines, item), nil
	})
}

func (s *service) AddCustomized(ctx context.Context, scope Scope, line Customized) (*View, error) {
	if line.Item.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	if line.Qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	return s.mutate(ctx, scope, func(lines []Line) ([]Line, error) {
		return AddCustomized(lines, line), nil
	})
}

func (s *service) Increment(ctx context.Context, scope Scope, lineID string) (*View, error) {
	return s.mutate(ctx, scope, func(lines []Line) ([]Line, error) {
		if _, ok := Find(lines, lineID); !ok {
			return nil, lineNotFound(lineID)
		}
		return Increment(lines, lineID), nil
	})
}

func (s *service) Decrement(ctx context.Context, scope Scope, lineID string) (*View, error) {
	return s.mutate(ctx, scope, func(lines []Line) ([]Line, error) {
		if _, ok := Find(lines, lineID); !ok {
			return nil, lineNotFound(lineID)
		}
		return Decrement(lines, lineID), nil
	})
}

func (s *service) Remove(ctx context.Context, scope Scope, lineID string) (*View, error) {
	return s.mutate(ctx, scope, func(lines []Line) ([]Line, error) {
		if _, ok := Find(lines, lineID); !ok {
			return nil, lineNotFound(lineID)
		}
		return Remove(lines, lineID), nil
	})
}

func (s *service) Clear(ctx context.Context, scope Scope) error {
	if err := validateScope(scope); err != nil {
		return err
	}
	if err := s.store.Clear(ctx, scope.OrganizationID, scope.TableNumber); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to clear cart")
	}
	return nil
}

func (s *service) mutate(ctx context.Context, scope Scope, fn func([]Line) ([]Line, error)) (*View, error) {
	lines, err := s.load(ctx, scope)
	if err != nil {
		return nil, err
	}
	next, err := fn(lines)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, scope.OrganizationID, scope.TableNumber, next); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to save cart")
	}
	return newView(scope, next), nil
}

func (s *service) load(ctx context.Context, scope Scope) ([]Line, error) {
	if err := validateScope(scope); err != nil {
		return nil, err
	}
	lines, err := s.store.Load(ctx, scope.OrganizationID, scope.TableNumber)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load cart")
	}
	return lines, nil
}

func (s *service) loadItem(ctx context.Context, scope Scope, itemID uuid.UUID) (Item, error) {
	if itemID == uuid.Nil {
		return Item{}, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	item, err := s.items.FindMenuItem(ctx, scope.OrganizationID, itemID)
	if err != nil {
		return Item{}, err
	}
	return Item{ID: item.ID, Title: item.Name, Price: item.Price}, nil
}

func validateScope(scope Scope) error {
	if scope.OrganizationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "organization id is required")
	}
	if len(strings.TrimSpace(scope.TableNumber)) > maxTableNumberLen {
		return pkgerrors.New(pkgerrors.CodeValidation, "table number is too long")
	}
	return nil
}

func lineNotFound(id string) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found").WithDetails(map[string]any{"lineId": id})
}

func newView(scope Scope, lines []Line) *View {
	return &View{
		Key:    Key(scope.TableNumber),
		Lines:  lines,
		Totals: Totals(lines),
	}
}
