package domain

// Role constants define the allowed user roles.
const (
	RoleSuperAdmin = "SUPERADMIN"
	RoleGerente    = "GERENTE"
	RoleAgente     = "AGENTE"
	RoleCliente    = "CLIENTE"
)

// Role is a static reference record granting a set of permissions.
type Role struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// ValidRoles returns the set of valid role labels.
func ValidRoles() []string {
	return []string{RoleSuperAdmin, RoleGerente, RoleAgente, RoleCliente}
}

// IsValidRole checks whether the given label is a valid role.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles() {
		if r == role {
			return true
		}
	}
	return false
}
