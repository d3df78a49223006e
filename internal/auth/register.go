package auth

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/tableside-backend/internal/organizations"
	"github.com/angelmondragon/tableside-backend/pkg/auth/session"
	"github.com/angelmondragon/tableside-backend/pkg/db"
	"github.com/angelmondragon/tableside-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tableside-backend/pkg/errors"
	"github.com/angelmondragon/tableside-backend/pkg/security"
)

// SignUp creates the user, their organization and the owner employee in one
// transaction, then signs the new owner in.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	orgName := strings.TrimSpace(req.OrganizationName)
	if orgName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization name is required")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password")
	}

	var rec session.Record
	var created *organizations.UserDTO
	var org OrganizationSummary
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := organizations.NewRepository(tx)

		if _, err := repo.FindUserByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !db.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		user, err := repo.CreateUser(ctx, organizations.CreateUserInput{
			Email:        email,
			PasswordHash: passwordHash,
			DisplayName:  req.DisplayName,
		})
		if err != nil {
			if db.IsUniqueViolation(err, organizations.UsersEmailConstraint) {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}

		organization, err := repo.CreateOrganization(ctx, orgName)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create organization")
		}
		if _, err := repo.AddEmployee(ctx, organization.ID, user.ID, enums.EmployeeRoleOwner); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create owner employee")
		}

		rec = session.Record{UserID: user.ID, OrganizationID: organization.ID, Role: enums.EmployeeRoleOwner}
		created = organizations.UserFromModel(user)
		org = OrganizationSummary{ID: organization.ID, Name: organization.Name}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sign up")
	}

	resp, err := s.issue(ctx, s.now().UTC(), rec)
	if err != nil {
		return nil, err
	}
	resp.User = created
	resp.Organizations = []OrganizationSummary{org}

	ctx = s.logg.WithOrganizationID(s.logg.WithUserID(ctx, rec.UserID.String()), rec.OrganizationID.String())
	s.logg.Info(ctx, "organization signed up")
	return resp, nil
}
