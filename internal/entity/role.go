package entity

import (
	"fmt"
	"strings"
)

// Role is the closed set of account roles.
//
// Earlier revisions of the storefront used a two-role system (ADMIN/USER) and
// a three-role system (ADMIN/SUPERVISOR/STUDENT). ParseRole maps USER and
// STUDENT onto CUSTOMER so stored records from either revision keep loading.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleSupervisor Role = "SUPERVISOR"
	RoleCustomer   Role = "CUSTOMER"
)

var legacyRoles = map[string]Role{
	"USER":    RoleCustomer,
	"STUDENT": RoleCustomer,
}

// ParseRole converts a stored or requested role name into a Role.
func ParseRole(s string) (Role, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	switch Role(name) {
	case RoleAdmin, RoleSupervisor, RoleCustomer:
		return Role(name), nil
	}
	if r, ok := legacyRoles[name]; ok {
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSupervisor, RoleCustomer:
		return true
	default:
		return false
	}
}

// IsAdmin reports whether r holds administrative rights.
func (r Role) IsAdmin() bool {
	switch r {
	case RoleAdmin:
		return true
	default:
		return false
	}
}

// CanManageCatalog reports whether r may create, update or delete products.
func (r Role) CanManageCatalog() bool {
	switch r {
	case RoleAdmin, RoleSupervisor:
		return true
	default:
		return false
	}
}

// Identity is the resolved caller of an operation.
type Identity struct {
	UserID string
	Role   Role
}

// Authenticated reports whether the identity carries a user id.
func (i Identity) Authenticated() bool {
	return i.UserID != ""
}
