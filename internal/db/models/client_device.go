package models

import (
	"strings"
	"time"
)

// ClientDevice is a network-observed device associated with an access point
// by MAC address. A device is connected to exactly one AP at a time and can
// be reassigned as it roams.
type ClientDevice struct {
	// ID is the unique identifier for the client device.
	ID uint64 `gorm:"primaryKey"`
	// Mac is the device MAC address, stored normalized (see NormalizeMac)
	// and enforced unique so lookups are effectively case-insensitive.
	Mac string `gorm:"unique;size:64;not null"`
	// APID is the ID of the access point the device is currently seen on.
	APID uint64 `gorm:"column:ap_id;not null"`
	// AP is the associated access point (loaded via foreign key).
	AP AccessPoint `gorm:"foreignKey:APID;constraint:OnDelete:RESTRICT"`
	// CreatedAt is the timestamp of the first sighting (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp of the last sighting update (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the ClientDevice model.
func (ClientDevice) TableName() string {
	return "client_devices"
}

// NormalizeMac canonicalizes a MAC address for storage and matching:
// surrounding whitespace is trimmed and hex digits are lower-cased.
// Separator characters are kept as supplied.
func NormalizeMac(mac string) string {
	return strings.ToLower(strings.TrimSpace(mac))
}
