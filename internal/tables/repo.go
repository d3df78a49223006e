package tables

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tableside-backend/pkg/db/models"
)

// Repository handles table persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to table operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new table row.
func (r *Repository) Create(ctx context.Context, table *models.Table) error {
	if table.ID == uuid.Nil {
		table.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(table).Error
}

// List returns the organization's tables ordered by number.
func (r *Repository) List(ctx context.Context, organizationID uuid.UUID) ([]models.Table, error) {
	var out []models.Table
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("table_number ASC").
		Find(&out).Error
	return out, err
}

// FindByNumber loads one table by its printed number.
func (r *Repository) FindByNumber(ctx context.Context, organizationID uuid.UUID, number string) (*models.Table, error) {
	var table models.Table
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND table_number = ?", organizationID, number).
		First(&table).Error
	if err != nil {
		return nil, err
	}
	return &table, nil
}
