package models

import "time"

// Group represents a named scoping unit. Groups carry no hierarchy and no
// permissions of their own; GlobalPermission rows bind a group to the
// buildings and floors its members may act on.
type Group struct {
	// ID is the unique identifier for the group.
	ID uint64 `gorm:"primaryKey"`
	// Name is the display name of the group. Enforced unique.
	Name string `gorm:"unique;size:100;not null"`
	// CreatedAt is the timestamp when the group was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the group was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Group model.
// This overrides GORM's default pluralized table naming.
func (Group) TableName() string {
	return "groups"
}
