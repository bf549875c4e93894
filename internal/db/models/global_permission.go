package models

import "time"

// GlobalPermission is the scoping join mediating group access to the
// location hierarchy: a row grants the group a claim on the floor and,
// depending on the caller's role, on the floor's building.
//
// Invariant: FloorID must reference a floor whose BuildingID equals this
// record's BuildingID. The invariant is validated at creation time; rows
// violating it must never exist.
type GlobalPermission struct {
	// ID is the unique identifier for the grant.
	ID uint64 `gorm:"primaryKey"`
	// GroupID is the ID of the group receiving the grant.
	GroupID uint64 `gorm:"column:group_id;not null;index"`
	// BuildingID is the ID of the building the grant touches.
	BuildingID uint64 `gorm:"column:building_id;not null;index"`
	// FloorID is the ID of the floor the grant touches.
	FloorID uint64 `gorm:"column:floor_id;not null;index"`
	// Group is the granted group (loaded via foreign key).
	// When a group is deleted, its grants are automatically removed (CASCADE).
	Group Group `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
	// Building is the granted building (loaded via foreign key).
	Building Building `gorm:"foreignKey:BuildingID;constraint:OnDelete:CASCADE"`
	// Floor is the granted floor (loaded via foreign key).
	Floor Floor `gorm:"foreignKey:FloorID;constraint:OnDelete:CASCADE"`
	// CreatedAt is the timestamp when the grant was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the grant was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the GlobalPermission model.
func (GlobalPermission) TableName() string {
	return "global_permissions"
}
