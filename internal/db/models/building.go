package models

import "time"

// Building is the root of the location hierarchy.
type Building struct {
	// ID is the unique identifier for the building.
	ID uint64 `gorm:"primaryKey"`
	// Name is the display name of the building.
	Name string `gorm:"size:255;not null"`
	// CreatedAt is the timestamp when the building was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the building was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Building model.
func (Building) TableName() string {
	return "buildings"
}
