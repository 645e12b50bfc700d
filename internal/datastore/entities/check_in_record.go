package entities

import "time"

// CheckInRecord is an immutable audit entry. Rows are inserted once and never
// updated or deleted by the application.
type CheckInRecord struct {
	// Seq orders records that share a CreatedAt
	Seq      uint   `gorm:"primaryKey;autoIncrement"`
	RecordID string `gorm:"size:36;not null;uniqueIndex"`

	ShiftID   string `gorm:"size:64;not null;index:idx_check_in_records_shift_created,priority:1"`
	SubjectID string `gorm:"size:64;not null;index"`
	SiteID    string `gorm:"size:64;not null;index"`

	// Raw reading
	Latitude       float64   `gorm:"not null"`
	Longitude      float64   `gorm:"not null"`
	AccuracyMeters float64   `gorm:"not null"`
	CapturedAt     time.Time `gorm:"not null"`

	// Verdict
	DistanceMeters float64 `gorm:"not null"`
	WithinGeofence bool    `gorm:"not null"`
	AccuracyClass  string  `gorm:"size:16;not null"`

	RecordType      string  `gorm:"size:16;not null"`
	PairedCheckInID *string `gorm:"size:36"`

	CreatedAt time.Time `gorm:"not null;index;index:idx_check_in_records_shift_created,priority:2"`
}

// TableName returns the table name for GORM.
func (CheckInRecord) TableName() string {
	return "check_in_records"
}
