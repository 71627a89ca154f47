package session

// IsValid checks if the role is one of the predefined portal roles
func (r Role) IsValid() bool {
	switch r {
	case RoleAdministrator, RoleEmployee, RoleClient:
		return true
	default:
		return false
	}
}

// Home returns the role's home path. Unknown or missing roles land on the
// admin area, matching the portal's historical default.
func (r Role) Home() string {
	switch r {
	case RoleEmployee:
		return "/employee"
	case RoleClient:
		return "/client"
	default:
		return "/admin"
	}
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []Role {
	return []Role{
		RoleAdministrator,
		RoleEmployee,
		RoleClient,
	}
}

// ParseRole safely parses a string into a Role type
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, role.IsValid()
}
