package auth

import "github.com/floortrack/floortrack/internal/db/models"

// Role is the closed enumeration of application roles. Authorization code
// switches exhaustively on this type so a new role name cannot silently
// fall through to a deny without an explicit decision here.
type Role int

const (
	// RoleUnknown is any role name outside the fixed set. Denied everywhere.
	RoleUnknown Role = iota
	// RoleOwner has unconditional access to all resources.
	RoleOwner
	// RoleOrgAdmin is scoped to floors explicitly granted to their groups.
	RoleOrgAdmin
	// RoleSiteAdmin is scoped to whole buildings granted to their groups.
	RoleSiteAdmin
	// RoleViewer may read scoped floors but has no admin access.
	RoleViewer
	// RolePending has no scoped access until promoted by an Owner.
	RolePending
)

// ParseRole maps a stored role name to the enumeration. Unrecognized names
// map to RoleUnknown rather than erroring: an unknown role is an
// authorization fact (deny), not a failure.
func ParseRole(name string) Role {
	switch name {
	case models.RoleNameOwner:
		return RoleOwner
	case models.RoleNameOrgAdmin:
		return RoleOrgAdmin
	case models.RoleNameSiteAdmin:
		return RoleSiteAdmin
	case models.RoleNameViewer:
		return RoleViewer
	case models.RoleNamePending:
		return RolePending
	default:
		return RoleUnknown
	}
}

// String returns the canonical role name, or "unknown".
func (r Role) String() string {
	switch r {
	case RoleOwner:
		return models.RoleNameOwner
	case RoleOrgAdmin:
		return models.RoleNameOrgAdmin
	case RoleSiteAdmin:
		return models.RoleNameSiteAdmin
	case RoleViewer:
		return models.RoleNameViewer
	case RolePending:
		return models.RoleNamePending
	default:
		return "unknown"
	}
}
