package models

import "time"

// AccessPoint is a wireless network node placed on a floor plan. Cx/Cy are
// the marker coordinates in the floor's SVG coordinate space.
type AccessPoint struct {
	// ID is the unique identifier for the access point.
	ID uint64 `gorm:"primaryKey"`
	// Name is the display name of the access point.
	Name string `gorm:"size:255;not null"`
	// Cx is the X coordinate of the marker on the floor plan.
	Cx float64 `gorm:"not null"`
	// Cy is the Y coordinate of the marker on the floor plan.
	Cy float64 `gorm:"not null"`
	// FloorID is the ID of the floor this access point is placed on.
	FloorID uint64 `gorm:"column:floor_id;not null"`
	// Floor is the parent floor (loaded via foreign key).
	Floor Floor `gorm:"foreignKey:FloorID;constraint:OnDelete:RESTRICT"`
	// CreatedAt is the timestamp when the access point was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the access point was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the AccessPoint model.
func (AccessPoint) TableName() string {
	return "access_points"
}
