package entities

import "time"

// Shift is a scheduled shift from the employee directory
type Shift struct {
	ID             string    `gorm:"primaryKey;size:64"`
	SubjectID      string    `gorm:"size:64;not null;index"`
	ScheduledStart time.Time `gorm:"not null"`
	ScheduledEnd   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM.
func (Shift) TableName() string {
	return "shifts"
}
