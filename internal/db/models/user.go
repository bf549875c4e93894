package models

import "time"

// User represents an application user account. Credentials live entirely in
// the external identity provider; the application only stores the provider
// UID and correlates it with the role and group memberships that drive
// authorization decisions.
type User struct {
	// ID is the unique identifier for the user.
	ID uint64 `gorm:"primaryKey"`
	// FirebaseUID is the external identity provider's UID for this account.
	// The column keeps its historical name; it holds the provider UID
	// regardless of which provider backs the deployment.
	FirebaseUID string `gorm:"column:firebase_uid;unique;size:255;not null"`
	// Email is the user's email address.
	Email string `gorm:"size:255;not null"`
	// FirstName is the user's first or given name.
	FirstName string `gorm:"size:100"`
	// LastName is the user's last or family name.
	LastName string `gorm:"size:100"`
	// RoleID is the ID of the role assigned to this user.
	RoleID uint64 `gorm:"column:role_id;not null"`
	// Role is the associated role (enforced with a foreign key constraint).
	Role Role `gorm:"foreignKey:RoleID;references:ID;constraint:OnDelete:RESTRICT,OnUpdate:CASCADE"`
	// UserGroups are the group memberships of this user.
	UserGroups []UserGroup `gorm:"foreignKey:UserID"`
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the User model.
// This overrides GORM's default pluralized table naming.
func (User) TableName() string {
	return "users"
}

// GroupIDs returns the IDs of all groups the user belongs to, in membership
// insertion order. The result is nil when UserGroups was not preloaded or
// the user has no memberships.
func (u *User) GroupIDs() []uint64 {
	if len(u.UserGroups) == 0 {
		return nil
	}

	ids := make([]uint64, 0, len(u.UserGroups))
	for _, ug := range u.UserGroups {
		ids = append(ids, ug.GroupID)
	}

	return ids
}
