package models

import "time"

// Exam schedules a subject into a (date, shift) slot. Department, stage and
// the evening flag are denormalized snapshots captured at creation time.
type Exam struct {
	ID           string    `db:"id" json:"id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	ShiftID      string    `db:"shift_id" json:"shift_id"`
	ExamDate     string    `db:"exam_date" json:"exam_date"`
	DepartmentID string    `db:"department_id" json:"department_id"`
	StageID      string    `db:"stage_id" json:"stage_id"`
	IsEvening    bool      `db:"is_evening" json:"is_evening"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ExamDetail extends Exam with resolved display names.
type ExamDetail struct {
	Exam
	SubjectName    string `db:"subject_name" json:"subject_name"`
	DepartmentName string `db:"department_name" json:"department_name"`
	StageName      string `db:"stage_name" json:"stage_name"`
	ShiftNumber    int    `db:"shift_number" json:"shift_number"`
	ShiftTime      string `db:"shift_time" json:"shift_time"`
}

// ExamFilter captures filters for listing exams.
type ExamFilter struct {
	Date    string
	ShiftID string
	StageID string
}
