package domain

// Role is the coarse authorization role carried in the resolved context.
// Write predicates match against role allow-lists; roles are not a general
// permission system.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleOperator Role = "operator"
	RoleAuditor  Role = "auditor"
)

var knownRoles = map[Role]struct{}{
	RoleAdmin:    {},
	RoleManager:  {},
	RoleOperator: {},
	RoleAuditor:  {},
}

// IsValid reports whether the role is one of the known roles.
func (r Role) IsValid() bool {
	_, ok := knownRoles[r]
	return ok
}

// In reports whether the role appears in the allow-list. An empty
// allow-list matches nothing.
func (r Role) In(allowed []Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}
