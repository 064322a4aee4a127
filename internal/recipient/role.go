package recipient

import (
	"fmt"
	"strings"

	"CampusNotify/internal/apperr"
)

// Role is the closed set of user categories a notification can address.
type Role string

const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
	RoleFaculty Role = "faculty"
	RoleAdmin   Role = "admin"
)

// Roles lists every known role in a stable order.
var Roles = []Role{RoleStudent, RoleStaff, RoleFaculty, RoleAdmin}

// ParseRole is the only place a role string is interpreted.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleStudent, RoleStaff, RoleFaculty, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", apperr.ErrInvalidRole, s)
	}
}

func (r Role) String() string {
	return string(r)
}
