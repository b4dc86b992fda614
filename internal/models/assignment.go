package models

import "time"

// HistoryAction is the recorded lifecycle event for an observer assignment.
type HistoryAction string

const (
	HistoryActionAssigned HistoryAction = "assigned"
	HistoryActionRemoved  HistoryAction = "removed"
)

// Assignment is a live observer assignment: one teacher covering one section
// during one (date, shift). The set for a (date, shift) is wholesale-replaced
// on every bulk regeneration.
type Assignment struct {
	ID        string    `db:"id" json:"id"`
	ExamDate  string    `db:"exam_date" json:"exam_date"`
	ShiftID   string    `db:"shift_id" json:"shift_id"`
	SectionID string    `db:"section_id" json:"section_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AssignmentDetail extends Assignment with display fields for roster views.
type AssignmentDetail struct {
	Assignment
	TeacherName   string `db:"teacher_name" json:"teacher_name"`
	ShiftNumber   int    `db:"shift_number" json:"shift_number"`
	ShiftTime     string `db:"shift_time" json:"shift_time"`
	SectionNumber int    `db:"section_number" json:"section_number"`
}

// PlanEntry is one proposed (section, teacher) allocation inside an
// unpersisted plan.
type PlanEntry struct {
	SectionNumber int    `json:"section_number"`
	SectionID     string `json:"section_id"`
	TeacherID     string `json:"teacher_id"`
	TeacherName   string `json:"teacher_name"`
}

// HistoryRecord is an immutable audit entry for an assignment creation or
// removal. Records are append-only and never updated or deleted.
type HistoryRecord struct {
	ID           string        `db:"id" json:"id"`
	ExamDate     string        `db:"exam_date" json:"exam_date"`
	ShiftID      string        `db:"shift_id" json:"shift_id"`
	SectionID    string        `db:"section_id" json:"section_id"`
	TeacherID    string        `db:"teacher_id" json:"teacher_id"`
	AssignmentID string        `db:"assignment_id" json:"assignment_id"`
	ActionType   HistoryAction `db:"action_type" json:"action_type"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
}

// HistoryDetail extends HistoryRecord with display fields.
type HistoryDetail struct {
	HistoryRecord
	TeacherName   string `db:"teacher_name" json:"teacher_name"`
	ShiftNumber   int    `db:"shift_number" json:"shift_number"`
	ShiftTime     string `db:"shift_time" json:"shift_time"`
	SectionNumber int    `db:"section_number" json:"section_number"`
}

// HistoryFilter captures filters for listing history records.
type HistoryFilter struct {
	Date    string
	ShiftID string
}
