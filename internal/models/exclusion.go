package models

import "time"

// ManualExclusion records an administrator's explicit veto of a teacher for a
// (date, shift) pair.
type ManualExclusion struct {
	ID            string    `db:"id" json:"id"`
	TeacherID     string    `db:"teacher_id" json:"teacher_id"`
	ExclusionDate string    `db:"exclusion_date" json:"exclusion_date"`
	ShiftID       string    `db:"shift_id" json:"shift_id"`
	Reason        string    `db:"reason" json:"reason"`
	CreatedBy     string    `db:"created_by" json:"created_by"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// ManualExclusionDetail extends ManualExclusion with display fields.
type ManualExclusionDetail struct {
	ManualExclusion
	TeacherName string `db:"teacher_name" json:"teacher_name"`
	ShiftNumber int    `db:"shift_number" json:"shift_number"`
	ShiftTime   string `db:"shift_time" json:"shift_time"`
}

// ManualExclusionFilter captures filters for listing exclusions.
type ManualExclusionFilter struct {
	Date    string
	ShiftID string
}
