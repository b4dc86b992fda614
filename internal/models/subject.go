package models

import "time"

// Subject belongs to one department and one stage and carries a many-to-many
// relation to teachers (co-teachers).
type Subject struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	DepartmentID string    `db:"department_id" json:"department_id"`
	StageID      string    `db:"stage_id" json:"stage_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectDetail extends Subject with resolved names and co-teacher links.
type SubjectDetail struct {
	Subject
	DepartmentName string   `db:"department_name" json:"department_name"`
	StageName      string   `db:"stage_name" json:"stage_name"`
	TeacherIDs     []string `json:"teacher_ids"`
	TeacherNames   []string `json:"teacher_names"`
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	DepartmentID string
	StageID      string
	Search       string
	Page         int
	PageSize     int
}
