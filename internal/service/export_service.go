package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/degree-planner-api/internal/dto"
	"github.com/noah-isme/degree-planner-api/internal/models"
	appErrors "github.com/noah-isme/degree-planner-api/pkg/errors"
	"github.com/noah-isme/degree-planner-api/pkg/export"
)

type degreeStatusReader interface {
	Get(ctx context.Context, studentID string) (*models.StudentRecord, error)
}

type reportRenderer interface {
	Render(report export.Report) ([]byte, error)
}

// ExportService renders degree statuses as downloadable documents.
type ExportService struct {
	statuses degreeStatusReader
	csv      reportRenderer
	pdf      reportRenderer
	logger   *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to the default exporters.
func NewExportService(statuses degreeStatusReader, logger *zap.Logger, csv reportRenderer, pdf reportRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{statuses: statuses, csv: csv, pdf: pdf, logger: logger}
}

// Export loads the student's degree status and renders it.
func (s *ExportService) Export(ctx context.Context, studentID string, format dto.ExportFormat) (*dto.ExportFile, error) {
	if format == "" {
		format = dto.ExportFormatCSV
	}
	if format != dto.ExportFormatCSV && format != dto.ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	record, err := s.statuses.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return s.Render(record, format)
}

// Render turns a student record into a file of the requested format.
func (s *ExportService) Render(record *models.StudentRecord, format dto.ExportFormat) (*dto.ExportFile, error) {
	report := buildDegreeReport(record)

	var (
		payload     []byte
		err         error
		contentType string
	)
	switch format {
	case dto.ExportFormatCSV:
		payload, err = s.csv.Render(report)
		contentType = "text/csv"
	case dto.ExportFormatPDF:
		payload, err = s.pdf.Render(report)
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	if err != nil {
		s.logger.Error("failed to render degree status", zap.String("student_id", record.StudentID), zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &dto.ExportFile{
		Filename:    fmt.Sprintf("degree-status-%s.%s", record.StudentID, format),
		ContentType: contentType,
		Payload:     payload,
	}, nil
}

func buildDegreeReport(record *models.StudentRecord) export.Report {
	status := record.DegreeStatus

	requirements := export.Table{
		Title:   "Requirements",
		Headers: []string{"Bank", "Rule", "Credit", "Required credit", "Courses", "Required courses", "Completed"},
	}
	for _, req := range status.CourseBankRequirements {
		requiredCredit := ""
		if req.CreditRequirement != nil {
			requiredCredit = req.CreditRequirement.String()
		}
		requiredCourses := ""
		if req.CourseRequirement != nil {
			requiredCourses = strconv.Itoa(*req.CourseRequirement)
		}
		requirements.Rows = append(requirements.Rows, []string{
			req.Name,
			req.Type,
			req.CreditCompleted.String(),
			requiredCredit,
			strconv.Itoa(req.CourseCompleted),
			requiredCourses,
			yesNo(req.Completed),
		})
	}

	courses := export.Table{
		Title:   "Courses",
		Headers: []string{"Course", "Name", "Credit", "Semester", "State", "Grade", "Bank"},
	}
	for _, cs := range status.CourseStatuses {
		courses.Rows = append(courses.Rows, []string{
			cs.Course.ID,
			cs.Course.Name,
			cs.Course.Credit.String(),
			deref(cs.Semester),
			string(cs.State),
			gradeLabel(cs.Grade),
			deref(cs.Type),
		})
	}

	notes := append([]string{}, status.OverflowMsgs...)
	notes = append(notes, fmt.Sprintf("Total credit: %s", status.TotalCredit.String()))

	return export.Report{
		Title:  fmt.Sprintf("Degree status %s", record.StudentID),
		Tables: []export.Table{requirements, courses},
		Notes:  notes,
	}
}

func gradeLabel(grade *models.Grade) string {
	if grade == nil {
		return ""
	}
	switch grade.Kind {
	case models.GradeKindNumeric:
		return strconv.Itoa(grade.Score)
	case models.GradeKindBinary:
		if grade.Passed {
			return "pass"
		}
		return "fail"
	default:
		return string(grade.Kind)
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
