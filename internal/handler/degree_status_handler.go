package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/degree-planner-api/internal/dto"
	"github.com/noah-isme/degree-planner-api/internal/models"
	appErrors "github.com/noah-isme/degree-planner-api/pkg/errors"
	"github.com/noah-isme/degree-planner-api/pkg/response"
)

type degreeStatusService interface {
	Get(ctx context.Context, studentID string) (*models.StudentRecord, error)
	Compute(ctx context.Context, studentID string) (*models.StudentRecord, error)
	ImportTranscript(ctx context.Context, studentID string, req dto.TranscriptRequest) (*models.StudentRecord, error)
	UpdateCourse(ctx context.Context, studentID, courseID string, req dto.UpdateCourseRequest) (*models.StudentRecord, error)
	AssignCatalog(ctx context.Context, studentID string, req dto.AssignCatalogRequest) (*models.StudentRecord, error)
}

type degreeStatusExporter interface {
	Export(ctx context.Context, studentID string, format dto.ExportFormat) (*dto.ExportFile, error)
}

// DegreeStatusHandler exposes per-student degree status endpoints.
type DegreeStatusHandler struct {
	service  degreeStatusService
	exporter degreeStatusExporter
}

// NewDegreeStatusHandler builds a new handler.
func NewDegreeStatusHandler(service degreeStatusService, exporter degreeStatusExporter) *DegreeStatusHandler {
	return &DegreeStatusHandler{service: service, exporter: exporter}
}

// Get godoc
// @Summary Get a student's degree status
// @Tags Degree Status
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/degree-status [get]
func (h *DegreeStatusHandler) Get(c *gin.Context) {
	record, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Compute godoc
// @Summary Recompute a student's degree status
// @Tags Degree Status
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/degree-status/compute [post]
func (h *DegreeStatusHandler) Compute(c *gin.Context) {
	record, err := h.service.Compute(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// AssignCatalog godoc
// @Summary Choose the catalog a student follows
// @Tags Degree Status
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.AssignCatalogRequest true "Catalog selection"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/catalog [put]
func (h *DegreeStatusHandler) AssignCatalog(c *gin.Context) {
	var req dto.AssignCatalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid catalog assignment payload"))
		return
	}
	record, err := h.service.AssignCatalog(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// ImportTranscript godoc
// @Summary Import a transcript into a student's courses
// @Tags Degree Status
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.TranscriptRequest true "Transcript text"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/transcript [post]
func (h *DegreeStatusHandler) ImportTranscript(c *gin.Context) {
	var req dto.TranscriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid transcript payload"))
		return
	}
	record, err := h.service.ImportTranscript(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// UpdateCourse godoc
// @Summary Manually override one course of a student
// @Tags Degree Status
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param courseId path string true "Course ID"
// @Param payload body dto.UpdateCourseRequest true "Course override"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/courses/{courseId} [put]
func (h *DegreeStatusHandler) UpdateCourse(c *gin.Context) {
	var req dto.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course update payload"))
		return
	}
	record, err := h.service.UpdateCourse(c.Request.Context(), c.Param("id"), c.Param("courseId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Export godoc
// @Summary Download a student's degree status
// @Tags Degree Status
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /students/{id}/degree-status/export [get]
func (h *DegreeStatusHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "export service not configured"))
		return
	}
	format := dto.ExportFormat(c.DefaultQuery("format", string(dto.ExportFormatCSV)))
	file, err := h.exporter.Export(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Payload)
}
