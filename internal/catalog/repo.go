package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tableside-backend/pkg/db/models"
)

// Repository persists categories, modifier groups, modifiers and menu items.
// Every read is scoped to an organization.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) ListCategories(ctx context.Context, orgID uuid.UUID) ([]models.Category, error) {
	var rows []models.Category
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("name ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) FindCategory(ctx context.Context, orgID, id uuid.UUID) (*models.Category, error) {
	var row models.Category
	if err := r.db.WithContext(ctx).First(&row, "id = ? AND organization_id = ?", id, orgID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) CreateCategory(ctx context.Context, row *models.Category) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// RenameCategory returns gorm.ErrRecordNotFound when no row matched.
func (r *Repository) RenameCategory(ctx context.Context, orgID, id uuid.UUID, name string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Category{}).
		Where("id = ? AND organization_id = ?", id, orgID).
		Update("name", name)
	return affected(res)
}

func (r *Repository) DeleteCategory(ctx context.Context, orgID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		Delete(&models.Category{})
	return affected(res)
}

func (r *Repository) ListModifierGroups(ctx context.Context, orgID uuid.UUID) ([]models.ModifierGroup, error) {
	var rows []models.ModifierGroup
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("name ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) FindModifierGroup(ctx context.Context, orgID, id uuid.UUID) (*models.ModifierGroup, error) {
	var row models.ModifierGroup
	if err := r.db.WithContext(ctx).First(&row, "id = ? AND organization_id = ?", id, orgID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) CreateModifierGroup(ctx context.Context, row *models.ModifierGroup) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// UpdateModifierGroup writes name, selection mode, max select and repeatable.
func (r *Repository) UpdateModifierGroup(ctx context.Context, row *models.ModifierGroup) error {
	res := r.db.WithContext(ctx).
		Model(&models.ModifierGroup{}).
		Where("id = ? AND organization_id = ?", row.ID, row.OrganizationID).
		Updates(map[string]any{
			"name":           row.Name,
			"selection_mode": row.SelectionMode,
			"max_select":     row.MaxSelect,
			"repeatable":     row.Repeatable,
		})
	return affected(res)
}

func (r *Repository) DeleteModifierGroup(ctx context.Context, orgID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		Delete(&models.ModifierGroup{})
	return affected(res)
}

// ListGroupsForMenuItem returns the item's modifier groups in link order.
func (r *Repository) ListGroupsForMenuItem(ctx context.Context, orgID, itemID uuid.UUID) ([]models.ModifierGroup, error) {
	var rows []models.ModifierGroup
	err := r.db.WithContext(ctx).
		Joins("JOIN menu_item_modifier_group ON menu_item_modifier_group.modifier_group_id = modifier_groups.id").
		Where("menu_item_modifier_group.menu_item_id = ? AND modifier_groups.organization_id = ?", itemID, orgID).
		Order("menu_item_modifier_group.position ASC").
		Find(&rows).Error
	return rows, err
}

// ListModifiers returns the options of the given groups ordered by position.
func (r *Repository) ListModifiers(ctx context.Context, groupIDs ...uuid.UUID) ([]models.Modifier, error) {
	if len(groupIDs) == 0 {
		return []models.Modifier{}, nil
	}
	var rows []models.Modifier
	err := r.db.WithContext(ctx).
		Where("group_id IN ?", groupIDs).
		Order("position ASC, name ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// FindModifier loads a modifier whose group belongs to orgID.
func (r *Repository) FindModifier(ctx context.Context, orgID, id uuid.UUID) (*models.Modifier, error) {
	var row models.Modifier
	err := r.db.WithContext(ctx).
		Joins("JOIN modifier_groups ON modifier_groups.id = modifiers.group_id").
		Where("modifiers.id = ? AND modifier_groups.organization_id = ?", id, orgID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) CreateModifier(ctx context.Context, row *models.Modifier) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) UpdateModifier(ctx context.Context, row *models.Modifier) error {
	res := r.db.WithContext(ctx).
		Model(&models.Modifier{}).
		Where("id = ? AND group_id = ?", row.ID, row.GroupID).
		Updates(map[string]any{
			"name":        row.Name,
			"price_delta": row.PriceDelta,
			"position":    row.Position,
		})
	return affected(res)
}

func (r *Repository) DeleteModifier(ctx context.Context, id uuid.UUID) error {
	return affected(r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Modifier{}))
}

func (r *Repository) DeleteModifiersByGroup(ctx context.Context, groupID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("group_id = ?", groupID).Delete(&models.Modifier{})
	return res.RowsAffected, res.Error
}

func (r *Repository) ListMenuItems(ctx context.Context, orgID uuid.UUID) ([]models.MenuItem, error) {
	var rows []models.MenuItem
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("name ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) FindMenuItem(ctx context.Context, orgID, id uuid.UUID) (*models.MenuItem, error) {
	var row models.MenuItem
	if err := r.db.WithContext(ctx).First(&row, "id = ? AND organization_id = ?", id, orgID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindMenuItems loads the listed items of one organization, keyed by id.
func (r *Repository) FindMenuItems(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]models.MenuItem, error) {
	out := make(map[uuid.UUID]models.MenuItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.MenuItem
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id IN ?", orgID, ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (r *Repository) CreateMenuItem(ctx context.Context, row *models.MenuItem) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) UpdateMenuItem(ctx context.Context, row *models.MenuItem) error {
	res := r.db.WithContext(ctx).
		Model(&models.MenuItem{}).
		Where("id = ? AND organization_id = ?", row.ID, row.OrganizationID).
		Updates(map[string]any{
			"name":        row.Name,
			"description": row.Description,
			"price":       row.Price,
			"category_id": row.CategoryID,
			"is_addon":    row.IsAddon,
		})
	return affected(res)
}

func (r *Repository) DeleteMenuItem(ctx context.Context, orgID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		Delete(&models.MenuItem{})
	return affected(res)
}

// MenuItemIDsByCategory lists the items a category delete will take with it.
func (r *Repository) MenuItemIDsByCategory(ctx context.Context, categoryID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.MenuItem{}).
		Where("category_id = ?", categoryID).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *Repository) DeleteMenuItemsByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.MenuItem{}).Error
}

// ReplaceMenuItemGroups rewrites the item's modifier group links, preserving the given order.
func (r *Repository) ReplaceMenuItemGroups(ctx context.Context, itemID uuid.UUID, groupIDs []uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("menu_item_id = ?", itemID).Delete(&models.MenuItemModifierGroup{}).Error; err != nil {
		return err
	}
	if len(groupIDs) == 0 {
		return nil
	}
	links := make([]models.MenuItemModifierGroup, 0, len(groupIDs))
	for i, groupID := range groupIDs {
		links = append(links, models.MenuItemModifierGroup{MenuItemID: itemID, ModifierGroupID: groupID, Position: i})
	}
	return tx.Create(&links).Error
}

// ListMenuItemGroupLinks returns links for the given items ordered by position.
func (r *Repository) ListMenuItemGroupLinks(ctx context.Context, itemIDs ...uuid.UUID) ([]models.MenuItemModifierGroup, error) {
	if len(itemIDs) == 0 {
		return []models.MenuItemModifierGroup{}, nil
	}
	var rows []models.MenuItemModifierGroup
	err := r.db.WithContext(ctx).
		Where("menu_item_id IN ?", itemIDs).
		Order("menu_item_id ASC, position ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) DeleteLinksByMenuItems(ctx context.Context, itemIDs []uuid.UUID) error {
	if len(itemIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("menu_item_id IN ?", itemIDs).Delete(&models.MenuItemModifierGroup{}).Error
}

func (r *Repository) DeleteLinksByGroup(ctx context.Context, groupID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("modifier_group_id = ?", groupID).Delete(&models.MenuItemModifierGroup{}).Error
}

// CountOwnedGroups reports how many of ids are modifier groups of orgID.
func (r *Repository) CountOwnedGroups(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.ModifierGroup{}).
		Where("organization_id = ? AND id IN ?", orgID, ids).
		Count(&n).Error
	return n, err
}

func affected(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
