package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-observer-api/internal/models"
	"github.com/noah-isme/exam-observer-api/pkg/jobs"
)

type stubRosterRenderer struct {
	result *ExportResult
	err    error
}

func (s *stubRosterRenderer) Roster(ctx context.Context, date, shiftID, format string) (*ExportResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubArchiveStore struct {
	files   map[string][]byte
	expired []string
}

func (s *stubArchiveStore) Save(filename string, data []byte) (string, error) {
	if s.files == nil {
		s.files = make(map[string][]byte)
	}
	s.files[filename] = data
	return filename, nil
}

func (s *stubArchiveStore) Read(filename string) ([]byte, error) {
	data, ok := s.files[filename]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func (s *stubArchiveStore) Delete(filename string) error {
	delete(s.files, filename)
	return nil
}

func (s *stubArchiveStore) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	removed := make([]string, 0, len(s.expired))
	for _, filename := range s.expired {
		delete(s.files, filename)
		removed = append(removed, filename)
	}
	return removed, nil
}

type stubDownloadSigner struct{}

func (s *stubDownloadSigner) Generate(jobID, relPath string) (string, time.Time, error) {
	return jobID + ":" + relPath, time.Now().Add(time.Hour), nil
}

func (s *stubDownloadSigner) Parse(token string) (string, string, time.Time, error) {
	for i := 0; i < len(token); i++ {
		if token[i] == ':' {
			return token[:i], token[i+1:], time.Now().Add(time.Hour), nil
		}
	}
	return "", "", time.Time{}, errors.New("bad token")
}

type stubJobQueue struct {
	enqueued []jobs.Job
	err      error
}

func (s *stubJobQueue) Enqueue(job jobs.Job) error {
	if s.err != nil {
		return s.err
	}
	s.enqueued = append(s.enqueued, job)
	return nil
}

func newArchiveFixture() (*ArchiveService, *stubArchiveStore, *stubJobQueue) {
	store := &stubArchiveStore{}
	queue := &stubJobQueue{}
	svc := NewArchiveService(
		&stubRosterRenderer{result: &ExportResult{
			FileName:    "observers-2026-06-10.csv",
			ContentType: "text/csv",
			Content:     []byte("Date,Shift\n"),
		}},
		store,
		&stubDownloadSigner{},
		time.Hour,
		nil,
		nil,
	)
	svc.SetQueue(queue)
	return svc, store, queue
}

func TestArchiveEnqueueRoster(t *testing.T) {
	svc, _, queue := newArchiveFixture()

	job, err := svc.EnqueueRoster(context.Background(), ArchiveRosterRequest{Date: "2026-06-10"})
	require.NoError(t, err)
	assert.Equal(t, models.ExportJobPending, job.Status)
	assert.Equal(t, ExportFormatCSV, job.Format)

	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, JobTypeRosterArchive, queue.enqueued[0].Type)
	assert.Equal(t, job.ID, queue.enqueued[0].ID)
}

func TestArchiveEnqueueRejectsBadDate(t *testing.T) {
	svc, _, _ := newArchiveFixture()

	_, err := svc.EnqueueRoster(context.Background(), ArchiveRosterRequest{Date: "10/06/2026"})
	require.Error(t, err)
}

func TestArchiveHandleJobStoresAndSigns(t *testing.T) {
	svc, store, queue := newArchiveFixture()

	job, err := svc.EnqueueRoster(context.Background(), ArchiveRosterRequest{Date: "2026-06-10"})
	require.NoError(t, err)

	require.NoError(t, svc.HandleJob(context.Background(), queue.enqueued[0]))

	done, err := svc.Job(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportJobCompleted, done.Status)
	assert.Equal(t, "2026-06-10/observers-2026-06-10.csv", done.FilePath)
	assert.NotEmpty(t, done.DownloadToken)
	assert.Contains(t, store.files, "2026-06-10/observers-2026-06-10.csv")

	result, err := svc.Download(done.DownloadToken)
	require.NoError(t, err)
	assert.Equal(t, "observers-2026-06-10.csv", result.FileName)
	assert.Equal(t, "text/csv", result.ContentType)
}

func TestArchiveHandleJobMarksFailure(t *testing.T) {
	store := &stubArchiveStore{}
	queue := &stubJobQueue{}
	svc := NewArchiveService(
		&stubRosterRenderer{err: errors.New("roster unavailable")},
		store,
		&stubDownloadSigner{},
		time.Hour,
		nil,
		nil,
	)
	svc.SetQueue(queue)

	job, err := svc.EnqueueRoster(context.Background(), ArchiveRosterRequest{Date: "2026-06-10"})
	require.NoError(t, err)

	require.Error(t, svc.HandleJob(context.Background(), queue.enqueued[0]))

	failed, err := svc.Job(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportJobFailed, failed.Status)
	assert.Contains(t, failed.Error, "roster unavailable")
}

func TestArchiveJobUnknownID(t *testing.T) {
	svc, _, _ := newArchiveFixture()

	_, err := svc.Job("missing")
	require.Error(t, err)
}

func TestArchiveDeleteJobRemovesFile(t *testing.T) {
	svc, store, queue := newArchiveFixture()

	job, err := svc.EnqueueRoster(context.Background(), ArchiveRosterRequest{Date: "2026-06-10"})
	require.NoError(t, err)

	require.Error(t, svc.DeleteJob(job.ID), "pending jobs must not be deletable")

	require.NoError(t, svc.HandleJob(context.Background(), queue.enqueued[0]))
	require.NoError(t, svc.DeleteJob(job.ID))

	assert.NotContains(t, store.files, "2026-06-10/observers-2026-06-10.csv")
	_, err = svc.Job(job.ID)
	require.Error(t, err)
}

func TestArchiveCleanupForgetsExpiredJobs(t *testing.T) {
	svc, store, queue := newArchiveFixture()

	job, err := svc.EnqueueRoster(context.Background(), ArchiveRosterRequest{Date: "2026-06-10"})
	require.NoError(t, err)
	require.NoError(t, svc.HandleJob(context.Background(), queue.enqueued[0]))

	store.expired = []string{"2026-06-10/observers-2026-06-10.csv"}
	removed, err := svc.Cleanup()
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-06-10/observers-2026-06-10.csv"}, removed)

	assert.NotContains(t, store.files, "2026-06-10/observers-2026-06-10.csv")
	_, err = svc.Job(job.ID)
	require.Error(t, err)
}
