package models

import "time"

// Floor belongs to exactly one building. The SvgMap payload is an opaque
// rendering blob consumed by the frontend; it plays no part in
// authorization.
type Floor struct {
	// ID is the unique identifier for the floor.
	ID uint64 `gorm:"primaryKey"`
	// Name is the display name of the floor.
	Name string `gorm:"size:255;not null"`
	// BuildingID is the ID of the parent building. Immutable after creation.
	BuildingID uint64 `gorm:"column:building_id;not null"`
	// Building is the parent building (loaded via foreign key).
	Building Building `gorm:"foreignKey:BuildingID;constraint:OnDelete:RESTRICT"`
	// SvgMap is the floor plan SVG served to the visualization view.
	SvgMap string `gorm:"column:svg_map;type:text"`
	// CreatedAt is the timestamp when the floor was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the floor was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Floor model.
func (Floor) TableName() string {
	return "floors"
}
