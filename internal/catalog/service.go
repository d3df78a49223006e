package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tableside-backend/pkg/db/models"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tableside-backend/pkg/errors"
	"github.com/angelmondragon/tableside-backend/pkg/lock"
	"github.com/angelmondragon/tableside-backend/pkg/logger"
)

const maxNameLen = 120

// Entity labels used for delete guards and metrics.
const (
	EntityCategory      = "category"
	EntityModifierGroup = "modifier_group"
	EntityModifier      = "modifier"
	EntityMenuItem      = "menu_item"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type deleteGuard interface {
	TryAcquire(ctx context.Context, key string) (*lock.Handle, bool, error)
}

type lockKeyer interface {
	LockKey(parts ...string) string
}

type deleteRecorder interface {
	ObserveCatalogDelete(entity, result string)
}

// Service edits the catalog. Every mutation answers with the refreshed list
// rather than a locally patched one.
type Service interface {
	ListCategories(ctx context.Context, orgID uuid.UUID) (*Listing[CategoryDTO], error)
	CreateCategory(ctx context.Context, orgID uuid.UUID, name string) (*Listing[CategoryDTO], error)
	RenameCategory(ctx context.Context, orgID, id uuid.UUID, name string) (*Listing[CategoryDTO], error)
	DeleteCategory(ctx context.Context, orgID, id uuid.UUID) (*Listing[CategoryDTO], error)

	ListModifierGroups(ctx context.Context, orgID uuid.UUID) (*Listing[ModifierGroupDTO], error)
	CreateModifierGroup(ctx context.Context, orgID uuid.UUID, input GroupInput) (*Listing[ModifierGroupDTO], error)
	UpdateModifierGroup(ctx context.Context, orgID, id uuid.UUID, input GroupInput) (*Listing[ModifierGroupDTO], error)
	DeleteModifierGroup(ctx context.Context, orgID, id uuid.UUID) (*Listing[ModifierGroupDTO], error)

	CreateModifier(ctx context.Context, orgID, groupID uuid.UUID, input ModifierInput) (*Listing[ModifierGroupDTO], error)
	UpdateModifier(ctx context.Context, orgID, id uuid.UUID, input ModifierInput) (*Listing[ModifierGroupDTO], error)
	DeleteModifier(ctx context.Context, orgID, id uuid.UUID) (*Listing[ModifierGroupDTO], error)

	ListMenuItems(ctx context.Context, orgID uuid.UUID) (*Listing[MenuItemDTO], error)
	FindMenuItem(ctx context.Context, orgID, id uuid.UUID) (*models.MenuItem, error)
	CreateMenuItem(ctx context.Context, orgID uuid.UUID, input MenuItemInput) (*Listing[MenuItemDTO], error)
	UpdateMenuItem(ctx context.Context, orgID, id uuid.UUID, input MenuItemInput) (*Listing[MenuItemDTO], error)
	DeleteMenuItem(ctx context.Context, orgID, id uuid.UUID) (*Listing[MenuItemDTO], error)
}

// ServiceParams groups the catalog service dependencies.
type ServiceParams struct {
	Repo    *Repository
	Tx      txRunner
	Guard   deleteGuard
	Keys    lockKeyer
	Metrics deleteRecorder
	Logger  *logger.Logger
}

type service struct {
	repo    *Repository
	tx      txRunner
	guard   deleteGuard
	keys    lockKeyer
	metrics deleteRecorder
	logg    *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("delete guard required")
	}
	if params.Keys == nil {
		return nil, fmt.Errorf("lock keyer required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		guard:   params.Guard,
		keys:    params.Keys,
		metrics: params.Metrics,
		logg:    logg,
	}, nil
}

// Categories

func (s *service) ListCategories(ctx context.Context, orgID uuid.UUID) (*Listing[CategoryDTO], error) {
	rows, err := s.repo.ListCategories(ctx, orgID)
	if err != nil {
		return &Listing[CategoryDTO]{Items: []CategoryDTO{}}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, categoryDTO(row))
	}
	return &Listing[CategoryDTO]{Items: out}, nil
}

func (s *service) CreateCategory(ctx context.Context, orgID uuid.UUID, name string) (*Listing[CategoryDTO], error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateCategory(ctx, &models.Category{OrganizationID: orgID, Name: name}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to create category")
	}
	list, err := s.ListCategories(ctx, orgID)
	return refreshed(ctx, s.logg, list, err)
}

func (s *service) RenameCategory(ctx context.Context, orgID, id uuid.UUID, name string) (*Listing[CategoryDTO], error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	if err := s.repo.RenameCategory(ctx, orgID, id, name); err != nil {
		return nil, writeError(err, "category", "rename")
	}
	list, err := s.ListCategories(ctx, orgID)
	return refreshed(ctx, s.logg, list, err)
}

// DeleteCategory removes the category's menu items (and their group links)
// before the category row, in one transaction.
func (s *service) DeleteCategory(ctx context.Context, orgID, id uuid.UUID) (*Listing[CategoryDTO], error) {
	err := s.guardedDelete(ctx, EntityCategory, id, func(ctx context.Context) error {
		if _, err := s.repo.FindCategory(ctx, orgID, id); err != nil {
			return writeError(err, "category", "load")
		}
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			itemIDs, err := repo.MenuItemIDsByCategory(ctx, id)
			if err != nil {
				return err
			}
			if err := repo.DeleteLinksByMenuItems(ctx, itemIDs); err != nil {
				return err
			}
			if err := repo.DeleteMenuItemsByIDs(ctx, itemIDs); err != nil {
				return err
			}
			return repo.DeleteCategory(ctx, orgID, id)
		})
	})
	if err != nil {
		return nil, err
	}
	list, err := s.ListCategories(ctx, orgID)
	return refreshed(ctx, s.logg, list, err)
}

// Modifier groups

func (s *service) ListModifierGroups(ctx context.Context, orgID uuid.UUID) (*Listing[ModifierGroupDTO], error) {
	empty := &Listing[ModifierGroupDTO]{Items: []ModifierGroupDTO{}}
	groups, err := s.repo.ListModifierGroups(ctx, orgID)
	if err != nil {
		return empty, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list modifier groups")
	}
	ids := make([]uuid.UUID, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	mods, err := s.repo.ListModifiers(ctx, ids...)
	if err != nil {
		return empty, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list modifiers")
	}
	return &Listing[ModifierGroupDTO]{Items: groupDTOs(groups, mods)}, nil
}

func (s *service) CreateModifierGroup(ctx context.Context, orgID uuid.UUID, input GroupInput) (*Listing[ModifierGroupDTO], error) {
	row, err := groupRow(orgID, input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateModifierGroup(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to create modifier group")
	}
	list, err := s.ListModifierGroups(ctx, orgID)
	return refreshed(ctx, s.logg, list, err)
}

func (s *service) UpdateModifierGroup(ctx context.Context, orgID, id uuid.UUID, input GroupInput) (*Listing[ModifierGroupDTO], error) {
	row, err := groupRow(orgID, input)
	if err != nil {
		return nil, err
	}
	row.ID = id
	if err := s.repo.UpdateModifierGroup(ctx, row); err != nil {
		return nil, writeError(err, "modifier group", "update")
	}
	list, err := s.ListModifierGroups(ctx, orgID)
	return refreshed(ctx, s.logg, list, err)
}

// DeleteModifierGroup deletes child modifiers and menu item links before the
// group row. A failure on any child leaves the group in place.
func (s *service) DeleteModifierGroup(ctx context.Context, orgID, id uuid.UUID) (*Listing[ModifierGroupDTO], error) {
	err := s.guardedDelete(ctx, EntityModifierGroup, id, func(ctx context.Context) error {
		if _, err := s.repo.FindModifierGroup(ctx, orgID, id); err != nil {
			return writeError(err, "modifier group", "load")
		}
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if _, err := repo.DeleteModifiersByGroup(ctx, id); err != nil {
				return err
			}
			if err := repo.DeleteLinksByGroup(ctx, id); err != nil {
				return err
			}
			return repo.DeleteModifierGroup(ctx, orgID, id)
		})
	})
	if err != nil {
		return nil, err
	}
	list, err := s.ListModifierGroups(ctx, orgID)
	return refreshed(ctx, s.logg, list, err)
}

// Modifiers

func (s *service) CreateModifier(ctx context.Context, orgID, groupID uuid.UUID, input ModifierInput) (*Listing[ModifierGroupDTO], error) {
	name, err := cleanName(input.Name)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.FindModifierGroup(ctx, orgID, groupID); err != nil {
		return nil, writeError(err, "modifier group", "load")
	}
	row := &models.Modifier{GroupID: groupID, Name: name, PriceDelta: input.PriceDelta, Position: input.Position}
	if err := s.repo.CreateModifier(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to create modifier")
	}
	list, err := s.ListModifierGroups(ctx, orgID)
	return refreshed(ctx, s.logg, list, err)
}

func (s *service) UpdateModifier(ctx context.Context, orgID, id uuid.UUID, input ModifierInput) (*Listing[ModifierGroupDTO], error) {
	name, err := cleanName(input.Name)
	if err != nil {
		return nil, err
	}
	current, err := s.repo.FindModifier(ctx, orgID, id)
	if err != nil {
		return nil, writeError(err, "modifier", "load")
	}
	current.Name = name
	current.PriceDelta = input.PriceDelta
	current.Position = input.Position
	if err := s.repo.UpdateModifier(ctx, current); err != nil {
		return nil, writeError(err, "modifier", "update")
	}
	list, err := s.ListModifierGroups(ctx, orgID)
	return refreshed(ctx, s.logg, list, err)
}

func (s *service) DeleteModifier(ctx context.Context, orgID, id uuid.UUID) (*Listing[ModifierGroupDTO], error) {
	err := s.guardedDelete(ctx, EntityModifier, id, func(ctx context.Context) error {
		if _, err := s.repo.FindModifier(ctx, orgID, id); err != nil {
			return writeError(err, "modifier", "load")
		}
		return s.repo.DeleteModifier(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	list, err := s.ListModifierGroups(ctx, orgID)
	return refreshed(ctx, s.logg, list, err)
}

// Menu items

func (s *service) ListMenuItems(ctx context.Context, orgID uuid.UUID) (*Listing[MenuItemDTO], error) {
	empty := &Listing[MenuItemDTO]{Items: []MenuItemDTO{}}
	items, err := s.repo.ListMenuItems(ctx, orgID)
	if err != nil {
		return empty, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list menu items")
	}
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	links, err := s.repo.ListMenuItemGroupLinks(ctx, ids...)
	if err != nil {
		return empty, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list menu item modifier groups")
	}
	return &Listing[MenuItemDTO]{Items: menuItemDTOs(items, links)}, nil
}

func (s *service) FindMenuItem(ctx context.Context, orgID, id uuid.UUID) (*models.MenuItem, error) {
	item, err := s.repo.FindMenuItem(ctx, orgID, id)
	if err != nil {
		return nil, writeError(err, "menu item", "load")
	}
	return item, nil
}

func (s *service) CreateMenuItem(ctx context.Context, orgID uuid.UUID, input MenuItemInput) (*Listing[MenuItemDTO], error) {
	row, groupIDs, err := s.menuItemRow(ctx, orgID, input)
	if err != nil {
		return nil, err
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateMenuItem(ctx, row); err != nil {
			return err
		}
		return repo.ReplaceMenuItemGroups(ctx, row.ID, groupIDs)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to create menu item")
	}
	list, err := s.ListMenuItems(ctx, orgID)
	return refreshed(ctx, s.logg, list, err)
}

func (s *service) UpdateMenuItem(ctx context.Context, orgID, id uuid.UUID, input MenuItemInput) (*Listing[MenuItemDTO], error) {
	row, groupIDs, err := s.menuItemRow(ctx, orgID, input)
	if err != nil {
		return nil, err
	}
	row.ID = id
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateMenuItem(ctx, row); err != nil {
			return err
		}
		return repo.ReplaceMenuItemGroups(ctx, id, groupIDs)
	})
	if err != nil {
		return nil, writeError(err, "menu item", "update")
	}
	list, err := s.ListMenuItems(ctx, orgID)
	return refreshed(ctx, s.logg, list, err)
}

func (s *service) DeleteMenuItem(ctx context.Context, orgID, id uuid.UUID) (*Listing[MenuItemDTO], error) {
	err := s.guardedDelete(ctx, EntityMenuItem, id, func(ctx context.Context) error {
		if _, err := s.repo.FindMenuItem(ctx, orgID, id); err != nil {
			return writeError(err, "menu item", "load")
		}
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if err := repo.DeleteLinksByMenuItems(ctx, []uuid.UUID{id}); err != nil {
				return err
			}
			return repo.DeleteMenuItem(ctx, orgID, id)
		})
	})
	if err != nil {
		return nil, err
	}
	list, err := s.ListMenuItems(ctx, orgID)
	return refreshed(ctx, s.logg, list, err)
}

func (s *service) menuItemRow(ctx context.Context, orgID uuid.UUID, input MenuItemInput) (*models.MenuItem, []uuid.UUID, error) {
	name, err := cleanName(input.Name)
	if err != nil {
		return nil, nil, err
	}
	if input.Price.IsNegative() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if input.CategoryID != nil {
		if _, err := s.repo.FindCategory(ctx, orgID, *input.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "category does not exist")
			}
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load category")
		}
	}
	groupIDs := dedupe(input.ModifierGroupIDs)
	owned, err := s.repo.CountOwnedGroups(ctx, orgID, groupIDs)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load modifier groups")
	}
	if int(owned) != len(groupIDs) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown modifier group")
	}
	return &models.MenuItem{
		OrganizationID: orgID,
		CategoryID:     input.CategoryID,
		Name:           name,
		Description:    strings.TrimSpace(input.Description),
		Price:          input.Price,
		IsAddon:        input.IsAddon,
	}, groupIDs, nil
}

// guardedDelete lets one delete per entity id run at a time. The marker is
// released whether or not the delete succeeds.
func (s *service) guardedDelete(ctx context.Context, entity string, id uuid.UUID, fn func(ctx context.Context) error) error {
	handle, ok, err := s.guard.TryAcquire(ctx, s.keys.LockKey("catalog-delete", entity, id.String()))
	if err != nil {
		s.observeDelete(entity, "error")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to acquire delete marker")
	}
	if !ok {
		s.observeDelete(entity, "in_flight")
		return pkgerrors.New(pkgerrors.CodeConflict, "delete already in progress")
	}
	defer func() {
		if err := handle.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("release delete marker: %v", err))
		}
	}()

	if err := fn(ctx); err != nil {
		s.observeDelete(entity, "error")
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("failed to delete %s", strings.ReplaceAll(entity, "_", " ")))
	}
	s.observeDelete(entity, "ok")
	return nil
}

func (s *service) observeDelete(entity, result string) {
	if s.metrics != nil {
		s.metrics.ObserveCatalogDelete(entity, result)
	}
}

// refreshed turns a failed re-read after a successful write into a logged,
// empty listing carrying the error text.
func refreshed[T any](ctx context.Context, logg *logger.Logger, list *Listing[T], err error) (*Listing[T], error) {
	if err == nil {
		return list, nil
	}
	logg.Warn(ctx, fmt.Sprintf("catalog refresh after write failed: %v", err))
	return &Listing[T]{Items: []T{}, RefreshError: err.Error()}, nil
}

func groupRow(orgID uuid.UUID, input GroupInput) (*models.ModifierGroup, error) {
	name, err := cleanName(input.Name)
	if err != nil {
		return nil, err
	}
	mode := input.SelectionMode
	if mode == "" {
		mode = enums.SelectionModeMulti
	}
	if !mode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "selection mode must be single or multi")
	}
	if input.MaxSelect < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max select must not be negative")
	}
	row := &models.ModifierGroup{
		OrganizationID: orgID,
		Name:           name,
		SelectionMode:  mode,
		MaxSelect:      input.MaxSelect,
		Repeatable:     input.Repeatable,
	}
	if mode == enums.SelectionModeSingle {
		row.MaxSelect = 1
		row.Repeatable = false
	}
	return row, nil
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("name must be at most %d characters", maxNameLen))
	}
	return name, nil
}

func writeError(err error, entity, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, entity+" not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("failed to %s %s", action, entity))
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
