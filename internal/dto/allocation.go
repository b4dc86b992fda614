package dto

import "github.com/noah-isme/exam-observer-api/internal/models"

// GenerateAssignmentsRequest asks the engine to allocate observers for a
// (date, shift). Preview builds the plan without persisting it.
type GenerateAssignmentsRequest struct {
	ExamDate string `json:"exam_date" validate:"required,datetime=2006-01-02"`
	ShiftID  string `json:"shift_id" validate:"required"`
	Preview  bool   `json:"preview"`
}

// CommitPlanRequest persists a caller-supplied plan verbatim, typically the
// accepted output of a prior preview.
type CommitPlanRequest struct {
	ExamDate    string             `json:"exam_date" validate:"required,datetime=2006-01-02"`
	ShiftID     string             `json:"shift_id" validate:"required"`
	Assignments []PlanEntryRequest `json:"assignments" validate:"required,min=1,dive"`
}

// PlanEntryRequest is one (section, teacher) pair of a submitted plan.
type PlanEntryRequest struct {
	SectionNumber int    `json:"section_number" validate:"required,min=1"`
	TeacherID     string `json:"teacher_id" validate:"required"`
}

// ClearAssignmentsRequest removes every live assignment for a (date, shift).
type ClearAssignmentsRequest struct {
	ExamDate string `json:"exam_date" validate:"required,datetime=2006-01-02"`
	ShiftID  string `json:"shift_id" validate:"required"`
}

// ManualUpdateRequest applies per-section corrections as one batch. A nil
// TeacherID clears the section's observer without a replacement.
type ManualUpdateRequest struct {
	ExamDate string              `json:"exam_date" validate:"required,datetime=2006-01-02"`
	ShiftID  string              `json:"shift_id" validate:"required"`
	Updates  []SectionUpdateItem `json:"updates" validate:"required,min=1,dive"`
}

// SectionUpdateItem targets one section within a manual update batch.
type SectionUpdateItem struct {
	SectionNumber int     `json:"section_number" validate:"required,min=1"`
	TeacherID     *string `json:"teacher_id"`
}

// AllocationResponse reports the outcome of a generate or commit call.
type AllocationResponse struct {
	Message     string             `json:"message"`
	Preview     bool               `json:"preview"`
	Assignments []models.PlanEntry `json:"assignments"`
}

// ShiftCoverage summarizes one shift's observer coverage for a date.
type ShiftCoverage struct {
	ShiftID       string `json:"shift_id"`
	ShiftNumber   int    `json:"shift_number"`
	ShiftTime     string `json:"shift_time"`
	SectionsCount int    `json:"sections_count"`
	Required      int    `json:"required"`
	Assigned      int    `json:"assigned"`
	Removed       int    `json:"removed"`
	Covered       bool   `json:"covered"`
}

// EligibleTeachersResponse lists the teachers surviving all exclusion rules.
type EligibleTeachersResponse struct {
	ExamDate string           `json:"exam_date"`
	ShiftID  string           `json:"shift_id"`
	Teachers []models.Teacher `json:"teachers"`
}
