package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/degree-planner-api/internal/models"
)

// TranscriptRequest carries raw transcript text as copied from the registrar's sheet.
type TranscriptRequest struct {
	Text string `json:"text" validate:"required"`
}

// TranscriptResponse lists the parsed course statuses.
type TranscriptResponse struct {
	Courses []models.CourseStatus `json:"courses"`
}

// AssignCatalogRequest selects the catalog a student follows.
type AssignCatalogRequest struct {
	CatalogID string `json:"catalog_id" validate:"required"`
}

// UpdateCourseRequest manually overrides one course of a student. Nil fields are left untouched.
// An empty Type releases the course back to automatic assignment.
type UpdateCourseRequest struct {
	Type     *string             `json:"type"`
	State    *models.CourseState `json:"state" validate:"omitempty,oneof=COMPLETE NOT_COMPLETE IN_PROGRESS IRRELEVANT"`
	Grade    *models.Grade       `json:"grade"`
	Semester *string             `json:"semester"`
	Credit   *decimal.Decimal    `json:"credit"`
	Modified *bool               `json:"modified"`
}

// CourseInput is one course of a reference data upload.
type CourseInput struct {
	ID     string          `json:"id" validate:"required,numeric,min=5,max=6"`
	Name   string          `json:"name" validate:"required"`
	Credit decimal.Decimal `json:"credit"`
	Tags   []string        `json:"tags"`
}

// UpsertCoursesRequest uploads course reference data.
type UpsertCoursesRequest struct {
	Courses []CourseInput `json:"courses" validate:"required,min=1,dive"`
}

// CatalogValidation reports the outcome of validating a catalog.
type CatalogValidation struct {
	Valid          bool     `json:"valid"`
	TraversalOrder []string `json:"traversal_order,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// ExportFormat selects the degree status export renderer.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportFile is a rendered export ready to be sent.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}
