package entities

import "time"

// OpenCheckIn latches a shift while it has an unclosed check-in. It is inserted
// in the same transaction as the check-in record and deleted in the same
// transaction as the closing check-out.
type OpenCheckIn struct {
	ShiftID  string    `gorm:"primaryKey;size:64"`
	RecordID string    `gorm:"size:36;not null"`
	OpenedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM.
func (OpenCheckIn) TableName() string {
	return "open_check_ins"
}
