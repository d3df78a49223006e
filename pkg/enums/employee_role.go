package enums

import "fmt"

// EmployeeRole represents an organization-level permissions role.
type EmployeeRole string

const (
	EmployeeRoleOwner EmployeeRole = "owner"
	EmployeeRoleAdmin EmployeeRole = "admin"
	EmployeeRoleStaff EmployeeRole = "staff"
)

var validEmployeeRoles = []EmployeeRole{
	EmployeeRoleOwner,
	EmployeeRoleAdmin,
	EmployeeRoleStaff,
}

// String implements fmt.Stringer.
func (r EmployeeRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known EmployeeRole.
func (r EmployeeRole) IsValid() bool {
	for _, candidate := range validEmployeeRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// CanManageCatalog reports whether the role may edit categories, modifiers and menu items.
func (r EmployeeRole) CanManageCatalog() bool {
	return r == EmployeeRoleOwner || r == EmployeeRoleAdmin
}

// ParseEmployeeRole converts raw input into an EmployeeRole.
func ParseEmployeeRole(value string) (EmployeeRole, error) {
	for _, candidate := range validEmployeeRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid employee role %q", value)
}
