package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-observer-api/internal/models"
	"github.com/noah-isme/exam-observer-api/internal/service"
	appErrors "github.com/noah-isme/exam-observer-api/pkg/errors"
	"github.com/noah-isme/exam-observer-api/pkg/response"
)

type archiveService interface {
	EnqueueRoster(ctx context.Context, req service.ArchiveRosterRequest) (*models.ExportJob, error)
	Job(jobID string) (*models.ExportJob, error)
	Download(token string) (*service.ExportResult, error)
	DeleteJob(jobID string) error
	Cleanup() ([]string, error)
}

// ExportHandler exposes the background roster archive endpoints.
type ExportHandler struct {
	service archiveService
}

// NewExportHandler builds a new handler.
func NewExportHandler(svc archiveService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Archive godoc
// @Summary Queue a roster archive job
// @Tags Exports
// @Accept json
// @Produce json
// @Param request body service.ArchiveRosterRequest true "Archive request"
// @Success 202 {object} response.Envelope
// @Router /assignments/export/archive [post]
func (h *ExportHandler) Archive(c *gin.Context) {
	var req service.ArchiveRosterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid archive payload"))
		return
	}
	job, err := h.service.EnqueueRoster(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// Status godoc
// @Summary Get an archive job status
// @Tags Exports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assignments/export/archive/{id} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	job, err := h.service.Job(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Delete godoc
// @Summary Delete an archived roster export
// @Tags Exports
// @Produce json
// @Param id path string true "Job ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /assignments/export/archive/{id} [delete]
func (h *ExportHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteJob(c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Cleanup godoc
// @Summary Remove archived exports past the retention window
// @Tags Exports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /assignments/export/cleanup [post]
func (h *ExportHandler) Cleanup(c *gin.Context) {
	removed, err := h.service.Cleanup()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"removed": removed}, nil)
}

// Download godoc
// @Summary Download an archived roster export
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Router /assignments/export/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token query parameter is required"))
		return
	}
	result, err := h.service.Download(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.FileName+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
