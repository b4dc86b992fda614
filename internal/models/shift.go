package models

import "time"

// Shift is a scheduled block of the exam day. SectionsCount is the number of
// classroom sections active during the shift.
type Shift struct {
	ID            string `db:"id" json:"id"`
	ShiftNumber   int    `db:"shift_number" json:"shift_number"`
	ShiftTime     string `db:"shift_time" json:"shift_time"`
	SectionsCount int    `db:"sections_count" json:"sections_count"`
}

// Section is a classroom needing observer coverage during a shift. Sections
// are created lazily when a shift is first provisioned and are never deleted
// or renumbered.
type Section struct {
	ID            string    `db:"id" json:"id"`
	ShiftID       string    `db:"shift_id" json:"shift_id"`
	SectionNumber int       `db:"section_number" json:"section_number"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
