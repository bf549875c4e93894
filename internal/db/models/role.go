package models

import "time"

// Role name constants for the fixed role set seeded at startup.
// The set is reference data: rows are created once and never mutated
// by the application.
const (
	// RoleNameOwner has unconditional access to every resource.
	RoleNameOwner = "Owner"
	// RoleNameOrgAdmin is scoped to floors explicitly granted to their groups.
	RoleNameOrgAdmin = "Organization Admin"
	// RoleNameSiteAdmin is scoped to whole buildings granted to their groups.
	RoleNameSiteAdmin = "Site Admin"
	// RoleNameViewer may read scoped floors but has no admin access.
	RoleNameViewer = "Viewer"
	// RoleNamePending is assigned on registration until an Owner promotes the user.
	RoleNamePending = "Pending User"
)

// Role represents a role in the role-based access control system.
// Exactly one role is assigned to each user; role assignment is done
// by an Owner through pending-user assignment.
type Role struct {
	// ID is the unique identifier for the role.
	ID uint64 `gorm:"primaryKey"`
	// Name is the unique name of the role (e.g., "Owner", "Site Admin").
	Name string `gorm:"unique;size:100;not null"`
	// CreatedAt is the timestamp when the role was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the role was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Role model.
// This overrides GORM's default pluralized table naming.
func (Role) TableName() string {
	return "roles"
}
