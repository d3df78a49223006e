package organizations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tableside-backend/pkg/db/models"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
)

// Repository persists users, organizations and the employee rows linking them.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// CreateOrganization inserts a tenant.
func (r *Repository) CreateOrganization(ctx context.Context, name string) (*models.Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("organization name is required")
	}
	org := &models.Organization{ID: uuid.New(), Name: name}
	if err := r.db.WithContext(ctx).Create(org).Error; err != nil {
		return nil, err
	}
	return org, nil
}

// FindOrganization loads a tenant by id.
func (r *Repository) FindOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).First(&org, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// UsersEmailConstraint is the unique index on lower(users.email).
const UsersEmailConstraint = "ux_users_email"

// CreateUser inserts a new active user.
func (r *Repository) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	user := &models.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: in.PasswordHash,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		IsActive:     true,
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindUserByEmail retrieves the user matching the lowercased email.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUserByID loads a user by id.
func (r *Repository) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// UpdatePasswordHash replaces the stored hash, used when the hashing cost changes.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("password_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AddEmployee links a user to an organization with a role.
func (r *Repository) AddEmployee(ctx context.Context, organizationID, userID uuid.UUID, role enums.EmployeeRole) (*models.Employee, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("invalid employee role %q", role)
	}
	employee := &models.Employee{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		UserID:         userID,
		Role:           role,
	}
	if err := r.db.WithContext(ctx).Create(employee).Error; err != nil {
		return nil, err
	}
	return employee, nil
}

// ListMemberships returns every organization the user works for, oldest first.
func (r *Repository) ListMemberships(ctx context.Context, userID uuid.UUID) ([]Membership, error) {
	var rows []membershipRow
	err := r.db.WithContext(ctx).
		Model(&models.Employee{}).
		Select("employees.*, organizations.name AS organization_name").
		Joins("JOIN organizations ON organizations.id = employees.organization_id").
		Where("employees.user_id = ?", userID).
		Order("employees.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return membershipsFromRows(rows), nil
}

// GetMembership loads the user's employee row for one organization.
func (r *Repository) GetMembership(ctx context.Context, userID, organizationID uuid.UUID) (*Membership, error) {
	var rows []membershipRow
	err := r.db.WithContext(ctx).
		Model(&models.Employee{}).
		Select("employees.*, organizations.name AS organization_name").
		Joins("JOIN organizations ON organizations.id = employees.organization_id").
		Where("employees.user_id = ? AND employees.organization_id = ?", userID, organizationID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	out := membershipsFromRows(rows)
	return &out[0], nil
}
