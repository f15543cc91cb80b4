package tenant

import "strings"

// Role is the caller's role inside its organization.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleMember  Role = "member"
	RoleViewer  Role = "viewer"
	// RoleSystem is reserved for background jobs and is rejected in credentials.
	RoleSystem Role = "system"
)

// Permission names an operation class checked before a service is invoked.
type Permission string

const (
	PermRead      Permission = "read"
	PermWrite     Permission = "write"
	PermDelete    Permission = "delete"
	PermAuditRead Permission = "audit:read"
)

var grants = map[Role]map[Permission]struct{}{
	RoleAdmin:   {PermRead: {}, PermWrite: {}, PermDelete: {}, PermAuditRead: {}},
	RoleManager: {PermRead: {}, PermWrite: {}, PermDelete: {}},
	RoleMember:  {PermRead: {}, PermWrite: {}},
	RoleViewer:  {PermRead: {}},
	RoleSystem:  {PermRead: {}, PermWrite: {}},
}

// ParseRole normalizes a role claim. Only roles grantable through a
// credential are accepted.
func ParseRole(raw string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch r {
	case RoleAdmin, RoleManager, RoleMember, RoleViewer:
		return r, true
	default:
		return "", false
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := grants[r]
	return ok
}

// Can reports whether r holds permission p.
func (r Role) Can(p Permission) bool {
	_, ok := grants[r][p]
	return ok
}
