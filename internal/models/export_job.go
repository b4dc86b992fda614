package models

import "time"

// ExportJobStatus tracks an archive job through its lifecycle.
type ExportJobStatus string

const (
	ExportJobPending   ExportJobStatus = "pending"
	ExportJobCompleted ExportJobStatus = "completed"
	ExportJobFailed    ExportJobStatus = "failed"
)

// ExportJob is a background roster archive request. Completed jobs expose a
// signed download token valid until ExpiresAt.
type ExportJob struct {
	ID            string          `json:"id"`
	Date          string          `json:"date"`
	ShiftID       string          `json:"shift_id,omitempty"`
	Format        string          `json:"format"`
	Status        ExportJobStatus `json:"status"`
	FilePath      string          `json:"file_path,omitempty"`
	DownloadToken string          `json:"download_token,omitempty"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
	Error         string          `json:"error,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}
