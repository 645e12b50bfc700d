// Package entities defines the GORM entity models for the check-in audit schema.
//
// # Reference data
//
//   - Site: geofence definitions owned by site administration
//   - Shift: scheduled shifts owned by the employee directory
//
// # Audit trail
//
//   - CheckInRecord: append-only check-in and check-out records
//   - OpenCheckIn: one row per shift with an unclosed check-in. Its primary key
//     is what guarantees a shift never has two open check-ins, across processes.
package entities
