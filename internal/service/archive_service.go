package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-observer-api/internal/models"
	appErrors "github.com/noah-isme/exam-observer-api/pkg/errors"
	"github.com/noah-isme/exam-observer-api/pkg/jobs"
)

// JobTypeRosterArchive names the archive job handled by the export queue.
const JobTypeRosterArchive = "roster_archive"

type rosterRenderer interface {
	Roster(ctx context.Context, date, shiftID, format string) (*ExportResult, error)
}

type archiveStore interface {
	Save(filename string, data []byte) (string, error)
	Read(filename string) ([]byte, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type downloadSigner interface {
	Generate(jobID, relPath string) (string, time.Time, error)
	Parse(token string) (jobID, relPath string, expiresAt time.Time, err error)
}

type jobQueue interface {
	Enqueue(job jobs.Job) error
}

// ArchiveRosterRequest asks for a roster snapshot to be rendered and stored.
type ArchiveRosterRequest struct {
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
	ShiftID string `json:"shift_id"`
	Format  string `json:"format" validate:"omitempty,oneof=csv pdf"`
}

// ArchiveService renders roster snapshots in the background and keeps them on
// disk behind signed download tokens. Job state lives in memory only; a
// restart forgets pending jobs, which callers recover from by re-submitting.
type ArchiveService struct {
	exporter  rosterRenderer
	store     archiveStore
	signer    downloadSigner
	queue     jobQueue
	retention time.Duration

	validator *validator.Validate
	logger    *zap.Logger

	mu   sync.RWMutex
	jobs map[string]*models.ExportJob
}

// NewArchiveService constructs ArchiveService. Start the returned service's
// queue separately; the service only enqueues and records state.
func NewArchiveService(
	exporter rosterRenderer,
	store archiveStore,
	signer downloadSigner,
	retention time.Duration,
	validate *validator.Validate,
	logger *zap.Logger,
) *ArchiveService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &ArchiveService{
		exporter:  exporter,
		store:     store,
		signer:    signer,
		retention: retention,
		validator: validate,
		logger:    logger,
		jobs:      make(map[string]*models.ExportJob),
	}
}

// SetQueue attaches the job queue once it has been built with HandleJob.
func (s *ArchiveService) SetQueue(queue jobQueue) {
	s.queue = queue
}

// EnqueueRoster registers an archive job and hands it to the worker pool.
func (s *ArchiveService) EnqueueRoster(ctx context.Context, req ArchiveRosterRequest) (*models.ExportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid archive request")
	}
	if req.Format == "" {
		req.Format = ExportFormatCSV
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "export queue is not running")
	}

	job := &models.ExportJob{
		ID:        uuid.NewString(),
		Date:      req.Date,
		ShiftID:   req.ShiftID,
		Format:    req.Format,
		Status:    models.ExportJobPending,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: JobTypeRosterArchive, Payload: req}); err != nil {
		s.fail(job.ID, err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue archive job")
	}

	return s.snapshot(job.ID), nil
}

// Job returns the current state of an archive job.
func (s *ArchiveService) Job(jobID string) (*models.ExportJob, error) {
	job := s.snapshot(jobID)
	if job == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return job, nil
}

// HandleJob is the queue handler. Renders the roster, stores the document and
// publishes a signed download token on the job record.
func (s *ArchiveService) HandleJob(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(ArchiveRosterRequest)
	if !ok {
		s.fail(job.ID, fmt.Errorf("unexpected payload type %T", job.Payload))
		return nil
	}

	result, err := s.exporter.Roster(ctx, req.Date, req.ShiftID, req.Format)
	if err != nil {
		s.fail(job.ID, err)
		return err
	}

	relPath := fmt.Sprintf("%s/%s", req.Date, result.FileName)
	if _, err := s.store.Save(relPath, result.Content); err != nil {
		s.fail(job.ID, err)
		return err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		s.fail(job.ID, err)
		return err
	}

	now := time.Now().UTC()
	s.mu.Lock()
	if j, exists := s.jobs[job.ID]; exists {
		j.Status = models.ExportJobCompleted
		j.FilePath = relPath
		j.DownloadToken = token
		j.ExpiresAt = &expiresAt
		j.Error = ""
		j.CompletedAt = &now
	}
	s.mu.Unlock()

	s.logger.Debug("roster archived",
		zap.String("job_id", job.ID),
		zap.String("path", relPath),
	)
	return nil
}

// Download resolves a signed token to the stored document.
func (s *ArchiveService) Download(token string) (*ExportResult, error) {
	_, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}

	content, err := s.store.Read(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "archived export no longer exists")
	}

	fileName := relPath
	if idx := strings.LastIndex(relPath, "/"); idx >= 0 {
		fileName = relPath[idx+1:]
	}

	return &ExportResult{
		FileName:    fileName,
		ContentType: contentTypeFor(fileName),
		Content:     content,
	}, nil
}

// DeleteJob removes an archived document and forgets its job record. Pending
// jobs cannot be deleted; their worker may still write the file.
func (s *ArchiveService) DeleteJob(jobID string) error {
	job := s.snapshot(jobID)
	if job == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	if job.Status == models.ExportJobPending {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "export job is still running")
	}
	if job.FilePath != "" {
		if err := s.store.Delete(job.FilePath); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "delete archived export")
		}
	}

	s.mu.Lock()
	delete(s.jobs, jobID)
	s.mu.Unlock()
	return nil
}

// Cleanup drops archived documents older than the retention window along with
// their job records, and returns the removed file paths.
func (s *ArchiveService) Cleanup() ([]string, error) {
	removed, err := s.store.CleanupOlderThan(s.retention)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "cleanup archived exports")
	}

	gone := make(map[string]struct{}, len(removed))
	for _, path := range removed {
		gone[filepath.ToSlash(path)] = struct{}{}
	}

	s.mu.Lock()
	for id, job := range s.jobs {
		if _, ok := gone[job.FilePath]; ok {
			delete(s.jobs, id)
		}
	}
	s.mu.Unlock()

	if len(removed) > 0 {
		s.logger.Info("archived exports removed", zap.Int("count", len(removed)))
	}
	return removed, nil
}

func (s *ArchiveService) snapshot(jobID string) *models.ExportJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, exists := s.jobs[jobID]
	if !exists {
		return nil
	}
	copied := *job
	return &copied
}

func (s *ArchiveService) fail(jobID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, exists := s.jobs[jobID]; exists {
		job.Status = models.ExportJobFailed
		job.Error = err.Error()
	}
}

func contentTypeFor(fileName string) string {
	if strings.HasSuffix(fileName, ".pdf") {
		return "application/pdf"
	}
	return "text/csv"
}
