package entities

import "time"

// Site is a geofence definition. RadiusMeters of zero means "use the configured default".
type Site struct {
	ID           string    `gorm:"primaryKey;size:64"`
	Name         string    `gorm:"size:255"`
	Latitude     float64   `gorm:"not null"`
	Longitude    float64   `gorm:"not null"`
	RadiusMeters float64   `gorm:"not null"`
	Active       bool      `gorm:"not null;index"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM.
func (Site) TableName() string {
	return "sites"
}
