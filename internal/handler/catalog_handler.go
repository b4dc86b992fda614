package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-observer-api/internal/service"
	appErrors "github.com/noah-isme/exam-observer-api/pkg/errors"
	"github.com/noah-isme/exam-observer-api/pkg/response"
)

// DepartmentHandler exposes department endpoints.
type DepartmentHandler struct {
	service *service.DepartmentService
}

// NewDepartmentHandler constructs a department handler.
func NewDepartmentHandler(svc *service.DepartmentService) *DepartmentHandler {
	return &DepartmentHandler{service: svc}
}

// List godoc
// @Summary List departments
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /departments [get]
func (h *DepartmentHandler) List(c *gin.Context) {
	departments, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, departments, nil)
}

// Create godoc
// @Summary Create department
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body service.CreateDepartmentRequest true "Department payload"
// @Success 201 {object} response.Envelope
// @Router /departments [post]
func (h *DepartmentHandler) Create(c *gin.Context) {
	var req service.CreateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	department, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, department)
}

// Delete godoc
// @Summary Delete department
// @Tags Catalog
// @Param id path string true "Department ID"
// @Success 204
// @Router /departments/{id} [delete]
func (h *DepartmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// StageHandler exposes academic stage endpoints.
type StageHandler struct {
	service *service.StageService
}

// NewStageHandler constructs a stage handler.
func NewStageHandler(svc *service.StageService) *StageHandler {
	return &StageHandler{service: svc}
}

// List godoc
// @Summary List stages
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stages [get]
func (h *StageHandler) List(c *gin.Context) {
	stages, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stages, nil)
}

// Create godoc
// @Summary Create stage
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body service.CreateStageRequest true "Stage payload"
// @Success 201 {object} response.Envelope
// @Router /stages [post]
func (h *StageHandler) Create(c *gin.Context) {
	var req service.CreateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	stage, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, stage)
}

// Update godoc
// @Summary Update stage
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Stage ID"
// @Param payload body service.UpdateStageRequest true "Stage payload"
// @Success 200 {object} response.Envelope
// @Router /stages/{id} [put]
func (h *StageHandler) Update(c *gin.Context) {
	var req service.UpdateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	stage, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stage, nil)
}

// Delete godoc
// @Summary Delete stage
// @Tags Catalog
// @Param id path string true "Stage ID"
// @Success 204
// @Router /stages/{id} [delete]
func (h *StageHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ShiftHandler exposes the shift catalogue endpoints.
type ShiftHandler struct {
	service *service.ShiftService
}

// NewShiftHandler constructs a shift handler.
func NewShiftHandler(svc *service.ShiftService) *ShiftHandler {
	return &ShiftHandler{service: svc}
}

// List godoc
// @Summary List shifts
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /shifts [get]
func (h *ShiftHandler) List(c *gin.Context) {
	shifts, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, shifts, nil)
}

// Sections godoc
// @Summary List a shift's provisioned sections
// @Tags Catalog
// @Produce json
// @Param id path string true "Shift ID"
// @Success 200 {object} response.Envelope
// @Router /shifts/{id}/sections [get]
func (h *ShiftHandler) Sections(c *gin.Context) {
	sections, err := h.service.Sections(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, nil)
}

// UpdateSections godoc
// @Summary Update a shift's section count
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Shift ID"
// @Param payload body service.UpdateShiftSectionsRequest true "Section count payload"
// @Success 200 {object} response.Envelope
// @Router /shifts/{id} [put]
func (h *ShiftHandler) UpdateSections(c *gin.Context) {
	var req service.UpdateShiftSectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	shift, err := h.service.UpdateSectionsCount(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, shift, nil)
}
