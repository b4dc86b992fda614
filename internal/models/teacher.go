package models

import "time"

// Teacher represents an instructor who may be assigned observation duty.
// Available is the general availability flag, independent of any shift.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Available bool      `db:"available" json:"available"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherDetail extends Teacher with its department links.
type TeacherDetail struct {
	Teacher
	DepartmentIDs   []string `json:"department_ids"`
	DepartmentNames []string `json:"department_names"`
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search    string
	Available *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
