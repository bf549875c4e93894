package models

import "time"

// UserDevice is a MAC a user self-registers to correlate with ClientDevice
// sightings. The MAC is not required to currently exist as a ClientDevice.
type UserDevice struct {
	// ID is the unique identifier for the registered device.
	ID uint64 `gorm:"primaryKey"`
	// Name is the user-chosen label for the device.
	Name string `gorm:"size:255;not null"`
	// Mac is the registered MAC address, stored normalized and unique.
	Mac string `gorm:"unique;size:64;not null"`
	// UserID is the ID of the owning user.
	UserID uint64 `gorm:"column:user_id;not null"`
	// User is the owning user (loaded via foreign key).
	// When a user is deleted, their registered devices are removed (CASCADE).
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	// CreatedAt is the timestamp when the device was registered (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the registration was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the UserDevice model.
func (UserDevice) TableName() string {
	return "user_devices"
}
